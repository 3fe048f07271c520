package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/expense-scanner/constants"
	"github.com/joseph-ayodele/expense-scanner/internal/extract"
	"github.com/joseph-ayodele/expense-scanner/internal/ocr"
)

// ErrBadImageRef is returned for image references that are neither an
// http(s) URL nor a base64 image data URL.
var ErrBadImageRef = errors.New("image reference must be an http(s) URL or a base64 data URL")

// LineReader recovers ordered text lines from an image.
type LineReader interface {
	Read(ctx context.Context, img ocr.Image) ([]string, error)
}

// Result is one processed receipt.
type Result struct {
	Draft extract.Draft
	Lines []string
}

// Processor coordinates OCR (lines) then field extraction (draft).
type Processor struct {
	reader    LineReader
	extractor *extract.Extractor
	logger    *slog.Logger
}

func NewProcessor(reader LineReader, extractor *extract.Extractor, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if extractor == nil {
		extractor = extract.NewExtractor(extract.WithLogger(logger))
	}
	return &Processor{reader: reader, extractor: extractor, logger: logger}
}

// Process reads img and extracts a draft. Extraction only runs on a
// completed read.
func (p *Processor) Process(ctx context.Context, img ocr.Image) (Result, error) {
	start := time.Now()
	lines, err := p.reader.Read(ctx, img)
	if err != nil {
		p.logger.Error("processor.ocr.failed", "error", err)
		return Result{}, err
	}
	p.logger.Info("processor.ocr.ok", "lines", len(lines))

	draft := p.extractor.Extract(lines)
	p.logger.Info("processor.extract.ok",
		"merchant", draft.Merchant,
		"amount_found", draft.Amount.Valid,
		"date", draft.Date,
		"category", draft.Category,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Result{Draft: draft, Lines: lines}, nil
}

// ProcessRef handles an upload reference: a data URL or an http(s) URL.
func (p *Processor) ProcessRef(ctx context.Context, ref string) (Result, error) {
	img, err := ImageFromRef(ref)
	if err != nil {
		return Result{}, err
	}
	return p.Process(ctx, img)
}

// ProcessFile reads a receipt from disk.
func (p *Processor) ProcessFile(ctx context.Context, path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read file: %w", err)
	}
	p.logger.Debug("processor.file", "path", path, "bytes", len(data))
	return p.Process(ctx, ocr.Image{
		Data:        data,
		ContentType: constants.ContentTypeForExt(filepath.Ext(path)),
	})
}

// ImageFromRef decodes "data:image/...;base64,..." into bytes and passes
// http(s) URLs through as references.
func ImageFromRef(ref string) (ocr.Image, error) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "data:image") {
		header, payload, ok := strings.Cut(ref, ",")
		if !ok {
			return ocr.Image{}, fmt.Errorf("data URL has no payload: %w", ErrBadImageRef)
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return ocr.Image{}, fmt.Errorf("decode data URL: %w", errors.Join(ErrBadImageRef, err))
		}
		ct := strings.TrimPrefix(header, "data:")
		ct, _, _ = strings.Cut(ct, ";")
		return ocr.Image{Data: data, ContentType: ct}, nil
	}

	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ocr.Image{}, ErrBadImageRef
	}
	return ocr.Image{URL: ref}, nil
}
