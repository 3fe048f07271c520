package server

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/expense-scanner/internal/common"
	"github.com/joseph-ayodele/expense-scanner/internal/extract"
	"github.com/joseph-ayodele/expense-scanner/internal/ocr"
)

const (
	EngineAzure     = "azure"
	EngineTesseract = "tesseract"
)

// NewOCREngine builds the engine named by cfg.Engine.
func NewOCREngine(cfg common.OCRConfig, logger *slog.Logger) (ocr.Engine, error) {
	switch cfg.Engine {
	case EngineAzure, "":
		return ocr.NewAzureEngine(ocr.AzureConfig{
			Endpoint: cfg.AzureEndpoint,
			Key:      cfg.AzureKey,
			Language: cfg.AzureLanguage,
		}, nil, logger)
	case EngineTesseract:
		return ocr.NewLocalEngine(ocr.LocalConfig{
			Tesseract:         cfg.Tesseract,
			TesseractLang:     cfg.TesseractLang,
			TessdataDir:       cfg.TessdataDir,
			PSM:               cfg.TesseractPSM,
			Timeout:           cfg.Timeout,
			MaxImageBytes:     int64(cfg.FetchMaxBytes),
			AllowPrivateHosts: cfg.FetchPrivateHosts,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown ocr engine %q", cfg.Engine)
	}
}

// NewOCRReader wraps the configured engine in a polling reader.
func NewOCRReader(cfg common.OCRConfig, logger *slog.Logger) (*ocr.Reader, error) {
	engine, err := NewOCREngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	return ocr.NewReader(engine, logger,
		ocr.WithPollInterval(cfg.PollInterval),
		ocr.WithMaxPolls(cfg.MaxPolls),
	), nil
}

// NewExtractor uses the keyword file from cfg when one is set.
func NewExtractor(cfg common.ExtractionConfig, logger *slog.Logger) (*extract.Extractor, error) {
	opts := []extract.Option{extract.WithLogger(logger)}
	if cfg.KeywordsFile != "" {
		kw, err := extract.LoadKeywords(cfg.KeywordsFile)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded keyword table", "path", cfg.KeywordsFile, "categories", len(kw.Categories))
		opts = append(opts, extract.WithKeywords(kw))
	}
	return extract.NewExtractor(opts...), nil
}
