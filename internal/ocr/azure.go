package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/joseph-ayodele/expense-scanner/constants"
)

const (
	azureAnalyzePath = "/vision/v3.2/read/analyze"
	azureResultPath  = "/vision/v3.2/read/analyzeResults/"
	azureKeyHeader   = "Ocp-Apim-Subscription-Key"
)

type AzureConfig struct {
	Endpoint string
	Key      string
	// Language is an optional BCP-47 hint passed to the service.
	Language string
	Timeout  time.Duration
}

// AzureEngine talks to the Azure Computer Vision Read API.
type AzureEngine struct {
	cfg    AzureConfig
	client *http.Client
	logger *slog.Logger
}

func NewAzureEngine(cfg AzureConfig, client *http.Client, logger *slog.Logger) (*AzureEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if cfg.Endpoint == "" {
		return nil, errors.New("azure ocr: endpoint is required")
	}
	if cfg.Key == "" {
		return nil, errors.New("azure ocr: key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &AzureEngine{cfg: cfg, client: client, logger: logger}, nil
}

type azureError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type azureReadResponse struct {
	Status        constants.ReadStatus `json:"status"`
	AnalyzeResult *struct {
		ReadResults []Page `json:"readResults"`
	} `json:"analyzeResult"`
}

// Submit starts a read and returns the operation ID from the Operation-Location header.
func (a *AzureEngine) Submit(ctx context.Context, img Image) (string, error) {
	if img.Empty() {
		return "", ErrEmptyImage
	}

	target := a.cfg.Endpoint + azureAnalyzePath
	if a.cfg.Language != "" {
		target += "?language=" + url.QueryEscape(a.cfg.Language)
	}

	headers := map[string]string{azureKeyHeader: a.cfg.Key}
	var body *bytes.Reader
	if len(img.Data) > 0 {
		headers["Content-Type"] = "application/octet-stream"
		body = bytes.NewReader(img.Data)
	} else {
		bs, err := json.Marshal(map[string]string{"url": img.URL})
		if err != nil {
			return "", fmt.Errorf("encode json: %w", err)
		}
		headers["Content-Type"] = "application/json"
		body = bytes.NewReader(bs)
	}

	reply, err := send(ctx, a.client, http.MethodPost, target, body, headers, maxResponseBytes, a.logger)
	if err != nil {
		return "", a.describe(reply, err)
	}

	loc := reply.header.Get("Operation-Location")
	if loc == "" {
		return "", errors.New("azure ocr: response has no Operation-Location")
	}
	u, err := url.Parse(loc)
	if err != nil {
		return "", fmt.Errorf("azure ocr: bad Operation-Location %q: %w", loc, err)
	}
	id := path.Base(u.Path)
	if id == "" || id == "/" || id == "." {
		return "", fmt.Errorf("azure ocr: bad Operation-Location %q", loc)
	}
	return id, nil
}

// Result fetches the current state of an operation.
func (a *AzureEngine) Result(ctx context.Context, operationID string) (ReadResult, error) {
	target := a.cfg.Endpoint + azureResultPath + url.PathEscape(operationID)
	reply, err := send(ctx, a.client, http.MethodGet, target, nil, map[string]string{azureKeyHeader: a.cfg.Key}, maxResponseBytes, a.logger)
	if err != nil {
		if reply.status == http.StatusNotFound {
			return ReadResult{}, fmt.Errorf("%s: %w", operationID, ErrOperationNotFound)
		}
		return ReadResult{}, a.describe(reply, err)
	}

	var resp azureReadResponse
	if err := json.Unmarshal(reply.body, &resp); err != nil {
		return ReadResult{}, fmt.Errorf("azure ocr: decode result: %w", err)
	}
	out := ReadResult{Status: resp.Status}
	if resp.Status == constants.ReadSucceeded && resp.AnalyzeResult != nil {
		out.Pages = resp.AnalyzeResult.ReadResults
	}
	return out, nil
}

func (a *AzureEngine) describe(reply httpReply, err error) error {
	var ae azureError
	if len(reply.body) > 0 && json.Unmarshal(reply.body, &ae) == nil && ae.Error.Code != "" {
		return fmt.Errorf("azure ocr: %s: %s: %w", ae.Error.Code, ae.Error.Message, err)
	}
	return fmt.Errorf("azure ocr: %w", err)
}
