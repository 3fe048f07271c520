package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/expense-scanner/internal/common"
)

type RouterConfig struct {
	RateLimitEvery time.Duration
	RateLimitBurst int
	// HealthCheck backs GET /healthz; nil reports healthy.
	HealthCheck func(ctx context.Context) error
}

// NewRouter mounts the OCR and expense endpoints behind request logging,
// panic recovery and a shared rate limiter.
func NewRouter(cfg RouterConfig, ocr *OCRHandler, exp *ExpensesHandler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	every, burst := cfg.RateLimitEvery, cfg.RateLimitBurst
	if every <= 0 {
		every = 100 * time.Millisecond
	}
	if burst <= 0 {
		burst = 30
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(rateLimit(rate.NewLimiter(rate.Every(every), burst)))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.HealthCheck != nil {
			if err := cfg.HealthCheck(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		if ocr != nil {
			r.HandleFunc("/ocr", ocr.ServeHTTP)
		}
		if exp != nil {
			r.Route("/expenses", exp.Routes)
		}
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

func requestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := middleware.GetReqID(r.Context())
			logger := base.With("req_id", reqID)

			ctx := common.WithRequestID(r.Context(), reqID)
			ctx = common.WithLogger(ctx, logger)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			logger.Info("http.request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

func rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				common.LoggerFromContext(r.Context(), nil).Warn("rate limit exceeded", "path", r.URL.Path)
				writeMessage(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeError maps domain errors onto status codes; fallback is the 500 message.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, common.PublicMessage(err))
	case errors.Is(err, common.ErrNotFound):
		writeMessage(w, http.StatusNotFound, common.PublicMessage(err))
	default:
		common.LoggerFromContext(r.Context(), nil).Error("request failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, fallback)
	}
}
