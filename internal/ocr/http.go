package ocr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type httpReply struct {
	status int
	header http.Header
	body   []byte
}

// maxResponseBytes caps reply bodies read from the Read API.
const maxResponseBytes = 32 << 20

// send performs one request and returns the body, reading at most limit
// bytes. Non-2xx replies are returned together with an error so callers can
// decode error payloads.
func send(ctx context.Context, client *http.Client, method, url string, body io.Reader, headers map[string]string, limit int64, logger *slog.Logger) (httpReply, error) {
	reqID := uuid.New().String()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		logger.Error("ocr.http.build_request_error", "req_id", reqID, "error", err)
		return httpReply{}, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	logger.Debug("ocr.http.request", "req_id", reqID, "method", method, "url", url)

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("ocr.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return httpReply{}, err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logger.Warn("ocr.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return httpReply{}, fmt.Errorf("read response: %w", err)
	}
	if int64(len(raw)) > limit {
		logger.Warn("ocr.http.response_too_large", "req_id", reqID, "limit", limit)
		return httpReply{status: resp.StatusCode, header: resp.Header}, fmt.Errorf("%w: over %d bytes", ErrResponseTooLarge, limit)
	}

	logger.Debug("ocr.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	reply := httpReply{status: resp.StatusCode, header: resp.Header, body: raw}
	if resp.StatusCode/100 != 2 {
		return reply, fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return reply, nil
}
