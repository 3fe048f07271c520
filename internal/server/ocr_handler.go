package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joseph-ayodele/expense-scanner/constants"
	"github.com/joseph-ayodele/expense-scanner/internal/common"
	"github.com/joseph-ayodele/expense-scanner/internal/extract"
	"github.com/joseph-ayodele/expense-scanner/internal/ocr"
	"github.com/joseph-ayodele/expense-scanner/internal/pipeline"
)

// maxUploadBytes bounds request bodies carrying base64 data URLs.
const maxUploadBytes = 20 << 20

type ReceiptProcessor interface {
	ProcessRef(ctx context.Context, ref string) (pipeline.Result, error)
}

// OCRHandler serves POST /api/ocr.
type OCRHandler struct {
	proc   ReceiptProcessor
	logger *slog.Logger
}

func NewOCRHandler(proc ReceiptProcessor, logger *slog.Logger) *OCRHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRHandler{proc: proc, logger: logger}
}

type ocrRequest struct {
	ImageURL string `json:"imageUrl"`
}

type draftView struct {
	Merchant string             `json:"merchant"`
	Amount   *float64           `json:"amount"`
	Date     string             `json:"date"`
	Category constants.Category `json:"category"`
}

type ocrResponse struct {
	Success bool      `json:"success"`
	Data    draftView `json:"data"`
	RawText []string  `json:"rawText"`
}

func newDraftView(d extract.Draft) draftView {
	v := draftView{Merchant: d.Merchant, Date: d.Date, Category: d.Category}
	if d.Amount.Valid {
		f := d.Amount.Decimal.InexactFloat64()
		v.Amount = &f
	}
	return v
}

func (h *OCRHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	logger := common.LoggerFromContext(r.Context(), h.logger)

	var req ocrRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.ImageURL) == "" {
		writeMessage(w, http.StatusBadRequest, "Image URL or base64 required")
		return
	}

	logger.Info("processing image", "data_url", strings.HasPrefix(req.ImageURL, "data:"))
	res, err := h.proc.ProcessRef(r.Context(), req.ImageURL)
	switch {
	case err == nil:
	case errors.Is(err, pipeline.ErrBadImageRef):
		writeMessage(w, http.StatusBadRequest, "Invalid image reference")
		return
	case errors.Is(err, ocr.ErrImageFetch):
		logger.Warn("image fetch failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"message": "Failed to process image",
			"error":   ocr.ErrImageFetch.Error(),
		})
		return
	case errors.Is(err, ocr.ErrExtractionUnavailable):
		logger.Warn("ocr failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "OCR processing failed")
		return
	default:
		logger.Error("ocr request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"message": "Failed to process image",
			"error":   err.Error(),
		})
		return
	}

	lines := res.Lines
	if lines == nil {
		lines = []string{}
	}
	writeJSON(w, http.StatusOK, ocrResponse{
		Success: true,
		Data:    newDraftView(res.Draft),
		RawText: lines,
	})
}
