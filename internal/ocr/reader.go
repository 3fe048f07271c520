package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/expense-scanner/constants"
)

// ErrPollLimit is returned when MaxPolls is set and the operation is still pending.
var ErrPollLimit = errors.New("ocr: poll limit reached")

const DefaultPollInterval = time.Second

// Reader submits an image to an Engine and polls until the read settles.
type Reader struct {
	engine   Engine
	interval time.Duration
	maxPolls int
	logger   *slog.Logger
}

type ReaderOption func(*Reader)

func WithPollInterval(d time.Duration) ReaderOption {
	return func(r *Reader) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithMaxPolls caps the number of result requests. Zero means no cap; the
// context then bounds the loop.
func WithMaxPolls(n int) ReaderOption {
	return func(r *Reader) {
		if n >= 0 {
			r.maxPolls = n
		}
	}
}

func NewReader(engine Engine, logger *slog.Logger, opts ...ReaderOption) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reader{engine: engine, interval: DefaultPollInterval, logger: logger}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Read returns the recognized lines in reading order. A failed operation
// yields ErrExtractionUnavailable.
func (r *Reader) Read(ctx context.Context, img Image) ([]string, error) {
	if img.Empty() {
		return nil, ErrEmptyImage
	}
	start := time.Now()

	opID, err := r.engine.Submit(ctx, img)
	if err != nil {
		r.logger.Error("ocr submit failed", "error", err)
		return nil, fmt.Errorf("submit image: %w", err)
	}
	r.logger.Info("ocr submitted", "operation_id", opID)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// the first check runs right away; the interval only separates checks
	for polls := 1; ; polls++ {
		res, err := r.engine.Result(ctx, opID)
		if err != nil {
			r.logger.Error("ocr result failed", "operation_id", opID, "error", err)
			return nil, fmt.Errorf("poll operation %s: %w", opID, err)
		}

		switch res.Status {
		case constants.ReadSucceeded:
			lines := res.Lines()
			r.logger.Info("ocr completed",
				"operation_id", opID,
				"pages", len(res.Pages),
				"lines", len(lines),
				"polls", polls,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return lines, nil
		case constants.ReadFailed:
			r.logger.Warn("ocr operation failed", "operation_id", opID, "polls", polls)
			return nil, fmt.Errorf("operation %s: %w", opID, ErrExtractionUnavailable)
		}

		if r.maxPolls > 0 && polls >= r.maxPolls {
			return nil, fmt.Errorf("operation %s still %s after %d polls: %w", opID, res.Status, polls, ErrPollLimit)
		}

		select {
		case <-ctx.Done():
			r.logger.Warn("ocr polling cancelled", "operation_id", opID, "polls", polls)
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
