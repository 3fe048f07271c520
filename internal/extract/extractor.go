package extract

import (
	"log/slog"
	"time"
)

// Extractor turns OCR lines into a Draft. It holds no per-call state and is
// safe for concurrent use.
type Extractor struct {
	kw     Keywords
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Extractor)

// WithKeywords replaces the built-in tables. The tables are normalized the
// way ParseKeywords does, so mixed case matches and blank words are ignored.
func WithKeywords(kw Keywords) Option {
	return func(e *Extractor) { e.kw = kw.Normalize() }
}

// WithClock sets the source of "today" for receipts without a usable date.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		kw:     DefaultKeywords(),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract runs every extractor over lines. An empty input yields a Draft with
// only defaults.
func (e *Extractor) Extract(lines []string) Draft {
	c := NewCorpus(lines)
	merchant := MerchantOf(c, e.kw)
	d := Draft{
		Merchant: merchant,
		Amount:   AmountOf(c, e.kw),
		Date:     DateOf(c, e.kw, e.now()),
		Category: Classify(merchant, c, e.kw),
	}

	e.logger.Debug("receipt fields extracted",
		"lines", c.Len(),
		"merchant", d.Merchant,
		"amount_found", d.Amount.Valid,
		"amount", d.Amount.Decimal.String(),
		"date", d.Date,
		"category", d.Category,
	)
	return d
}

// Extract runs the default Extractor.
func Extract(lines []string) Draft {
	return NewExtractor().Extract(lines)
}
