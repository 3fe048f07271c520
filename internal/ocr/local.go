package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/patrickmn/go-cache"

	"github.com/joseph-ayodele/expense-scanner/constants"
)

type LocalConfig struct {
	Tesseract     string // binary name or absolute path; if empty -> "tesseract"
	TesseractLang string // default "eng"
	TessdataDir   string
	PSM           int // e.g., 6 is good for uniform block of text; 0 keeps tesseract's default
	DPI           float64
	MaxPages      int           // 0 = no limit
	Timeout       time.Duration // per operation
	ResultTTL     time.Duration // how long finished operations stay queryable
	WorkDir       string        // parent for temp dirs; empty uses os.TempDir
	MaxImageBytes int64         // cap on images fetched by URL; default 20 MiB

	// AllowPrivateHosts lets URL fetches reach loopback and private networks.
	AllowPrivateHosts bool
}

// LocalEngine runs tesseract on this host. Operations execute in the background
// and their state is kept in an expiring in-memory store.
type LocalEngine struct {
	cfg    LocalConfig
	runner Runner
	client *http.Client
	store  *cache.Cache
	logger *slog.Logger
	wg     sync.WaitGroup
}

type LocalOption func(*LocalEngine)

// WithRunner swaps the command runner, mainly for tests.
func WithRunner(r Runner) LocalOption {
	return func(e *LocalEngine) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithHTTPClient sets the client used to fetch images submitted by URL. The
// client replaces the public-address guard.
func WithHTTPClient(c *http.Client) LocalOption {
	return func(e *LocalEngine) {
		if c != nil {
			e.client = c
		}
	}
}

func NewLocalEngine(cfg LocalConfig, logger *slog.Logger, opts ...LocalOption) *LocalEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 10 * time.Minute
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 20 << 20
	}
	client := publicOnlyClient(30 * time.Second)
	if cfg.AllowPrivateHosts {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	e := &LocalEngine{
		cfg:    cfg,
		runner: execRunner{},
		client: client,
		store:  cache.New(cfg.ResultTTL, 2*cfg.ResultTTL),
		logger: logger,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *LocalEngine) Submit(ctx context.Context, img Image) (string, error) {
	if img.Empty() {
		return "", ErrEmptyImage
	}
	data, contentType := img.Data, img.ContentType
	if len(data) == 0 {
		reply, err := send(ctx, e.client, http.MethodGet, img.URL, nil, nil, e.cfg.MaxImageBytes, e.logger)
		if err != nil {
			e.logger.Warn("image fetch failed", "error", err)
			return "", fmt.Errorf("%w: %w", ErrImageFetch, err)
		}
		data, contentType = reply.body, reply.header.Get("Content-Type")
	}

	id := ulid.Make().String()
	e.store.Set(id, ReadResult{Status: constants.ReadRunning}, cache.DefaultExpiration)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.Timeout)
		defer cancel()
		e.run(runCtx, id, data, contentType)
	}()

	e.logger.Debug("local ocr queued", "operation_id", id, "bytes", len(data))
	return id, nil
}

func (e *LocalEngine) Result(_ context.Context, operationID string) (ReadResult, error) {
	v, ok := e.store.Get(operationID)
	if !ok {
		return ReadResult{}, fmt.Errorf("%s: %w", operationID, ErrOperationNotFound)
	}
	return v.(ReadResult), nil
}

// Wait blocks until background operations finish or ctx ends.
func (e *LocalEngine) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() { defer close(done); e.wg.Wait() }()
	select {
	case <-ctx.Done():
		e.logger.Warn("local ocr wait interrupted by context")
	case <-done:
	}
}

func (e *LocalEngine) run(ctx context.Context, id string, data []byte, contentType string) {
	start := time.Now()
	pages, err := e.recognize(ctx, data, contentType)
	if err != nil {
		e.logger.Error("local ocr failed", "operation_id", id, "error", err)
		e.store.Set(id, ReadResult{Status: constants.ReadFailed}, cache.DefaultExpiration)
		return
	}
	e.store.Set(id, ReadResult{Status: constants.ReadSucceeded, Pages: pages}, cache.DefaultExpiration)
	e.logger.Info("local ocr finished",
		"operation_id", id,
		"pages", len(pages),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}

func (e *LocalEngine) recognize(ctx context.Context, data []byte, contentType string) ([]Page, error) {
	dir, err := os.MkdirTemp(e.cfg.WorkDir, "ocr-*")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	files, err := writePages(data, contentType, dir, e.cfg.MaxPages, e.cfg.DPI)
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(files))
	for i, f := range files {
		start := time.Now()
		out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.tesseractArgs(f)...)
		if err != nil {
			return nil, fmt.Errorf("tesseract page %d: %w: %s", i+1, err, truncate(string(errb), 512))
		}
		e.logger.Debug("tesseract page done", "page", i+1, "stdout_bytes", len(out), "duration_ms", time.Since(start).Milliseconds())
		pages = append(pages, Page{Number: i + 1, Lines: textToLines(string(out))})
	}
	return pages, nil
}

// Runner runs an external command, returning what it wrote to stdout and stderr.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var out, errb bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout, cmd.Stderr = &out, &errb
	err := cmd.Run()
	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// tesseract <file> stdout -l <lang> [--psm N] [--tessdata-dir D]
func (e *LocalEngine) tesseractArgs(path string) []string {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}
