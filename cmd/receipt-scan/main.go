package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/joseph-ayodele/expense-scanner/internal/async"
	"github.com/joseph-ayodele/expense-scanner/internal/common"
	"github.com/joseph-ayodele/expense-scanner/internal/entity"
	"github.com/joseph-ayodele/expense-scanner/internal/export"
	"github.com/joseph-ayodele/expense-scanner/internal/extract"
	"github.com/joseph-ayodele/expense-scanner/internal/ingest"
	"github.com/joseph-ayodele/expense-scanner/internal/pipeline"
	"github.com/joseph-ayodele/expense-scanner/internal/repository"
	svc "github.com/joseph-ayodele/expense-scanner/internal/server"
)

type counters struct {
	stored    atomic.Int64
	review    atomic.Int64
	failed    atomic.Int64
	processed atomic.Int64
}

func main() {
	fs := ff.NewFlagSet("receipt-scan")
	var (
		dir        = fs.StringLong("dir", "", "directory of receipt images and PDFs (required)")
		out        = fs.StringLong("out", "", "output XLSX path (default: expenses.xlsx next to --dir)")
		engine     = fs.StringLong("engine", svc.EngineTesseract, "OCR engine: tesseract or azure")
		dbDSN      = fs.StringLong("db", ":memory:", "SQLite database file for scanned expenses")
		userStr    = fs.StringLong("user", "", "user UUID to file expenses under (default: random)")
		workers    = fs.IntLong("workers", 4, "concurrent scans")
		watch      = fs.BoolLong("watch", "keep watching --dir for new receipts until interrupted")
		keywords   = fs.StringLong("keywords", "", "YAML keyword table overriding the built-in one")
		azureURL   = fs.StringLong("azure-endpoint", "", "Azure Computer Vision endpoint")
		azureKey   = fs.StringLong("azure-key", "", "Azure Computer Vision key")
		tessdata   = fs.StringLong("tessdata", "", "tesseract tessdata directory")
		ocrTimeout = fs.DurationLong("timeout", 3*time.Minute, "per-receipt processing timeout")
		logLevel   = fs.StringLong("log-level", "info", "debug, info, warn or error")
		logFormat  = fs.StringLong("log-format", "text", "text or json")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("RECEIPT_SCAN")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *dir == "" {
		fmt.Fprintf(os.Stderr, "%s\nerror: --dir is required\n", ffhelp.Flags(fs))
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "expenses.xlsx")
	}

	logger := common.NewLogger(os.Stderr, common.LogConfig{Level: *logLevel, Format: *logFormat})
	slog.SetDefault(logger)

	userID := uuid.New()
	if *userStr != "" {
		var err error
		if userID, err = uuid.Parse(*userStr); err != nil {
			logger.Error("invalid --user", "error", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := svc.ConnectDB(ctx, common.DatabaseConfig{Driver: repository.DriverSQLite, DSN: *dbDSN}, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	extractor, err := svc.NewExtractor(common.ExtractionConfig{KeywordsFile: *keywords}, logger)
	if err != nil {
		logger.Error("failed to load keywords", "error", err)
		os.Exit(1)
	}
	reader, err := svc.NewOCRReader(common.OCRConfig{
		Engine:        *engine,
		AzureEndpoint: *azureURL,
		AzureKey:      *azureKey,
		TessdataDir:   *tessdata,
		PollInterval:  time.Second,
		Timeout:       *ocrTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to configure ocr", "engine", *engine, "error", err)
		os.Exit(1)
	}
	processor := pipeline.NewProcessor(reader, extractor, logger)
	expensesRepo := repository.NewExpenseRepository(db, logger)

	var stats counters
	queue := async.NewQueue(scanHandler(processor, expensesRepo, userID, &stats, logger), logger,
		async.WithWorkers(*workers),
		async.WithProcessTimeout(*ocrTimeout),
	)

	files, dirStats, err := ingest.Walk(ctx, *dir, ingest.Options{SkipHidden: true})
	if err != nil {
		logger.Error("failed to walk directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	logger.Info("directory scanned",
		"scanned", dirStats.Scanned,
		"matched", dirStats.Matched,
		"deduplicated", dirStats.Deduplicated,
		"failed", dirStats.Failed,
	)
	seen := ingest.NewTracker()
	seen.Seed(files)
	for _, f := range files {
		if f.Err != "" || f.DuplicateOf != "" {
			continue
		}
		if err := queue.Enqueue(ctx, async.Job{Path: f.Path}); err != nil {
			logger.Warn("stopped queueing", "error", err)
			break
		}
	}

	if *watch {
		paths, err := ingest.Watch(ctx, ingest.WatchConfig{Roots: []string{*dir}, Debounce: 500 * time.Millisecond}, logger)
		if err != nil {
			logger.Error("failed to watch directory", "error", err)
			os.Exit(1)
		}
		logger.Info("watching for new receipts", "dir", *dir)
		for p := range paths {
			f, fresh, err := seen.Claim(p)
			if err != nil {
				logger.Warn("skipping unreadable receipt", "path", p, "error", err)
				continue
			}
			if !fresh {
				logger.Debug("receipt already taken this run", "path", p, "duplicate_of", f.DuplicateOf)
				continue
			}
			if err := queue.Enqueue(ctx, async.Job{Path: f.Path}); err != nil {
				break
			}
		}
	}

	// let queued scans finish even after an interrupt in watch mode
	queue.Shutdown(context.Background())

	xlsx, err := export.NewService(expensesRepo, logger).ExportXLSX(context.Background(), repository.ExpenseFilter{UserID: &userID})
	if err != nil {
		logger.Error("failed to export expenses", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
		logger.Error("failed to write output file", "path", *out, "error", err)
		os.Exit(1)
	}

	fmt.Printf("Scan complete!\n")
	fmt.Printf("- Receipts processed: %d\n", stats.processed.Load())
	fmt.Printf("- Expenses stored: %d\n", stats.stored.Load())
	fmt.Printf("- Needing review: %d\n", stats.review.Load())
	fmt.Printf("- Failures: %d\n", stats.failed.Load())
	fmt.Printf("- Output: %s\n", *out)
}

// scanHandler stores drafts that carry an amount; the rest are logged for review.
func scanHandler(proc *pipeline.Processor, repo repository.ExpenseRepository, userID uuid.UUID, stats *counters, logger *slog.Logger) async.Handler {
	return func(ctx context.Context, job async.Job) error {
		res, err := proc.ProcessFile(ctx, job.Path)
		stats.processed.Add(1)
		if err != nil {
			stats.failed.Add(1)
			return err
		}
		d := res.Draft
		if !d.Amount.Valid {
			stats.review.Add(1)
			logger.Warn("needs review: no amount found", "path", job.Path, "merchant", d.Merchant)
			return nil
		}

		date, err := time.Parse(extract.DateLayout, d.Date)
		if err != nil {
			date = time.Now().UTC()
		}
		e := &entity.Expense{
			UserID:      userID,
			Category:    d.Category,
			Amount:      d.Amount.Decimal.Round(2),
			ExpenseDate: date,
			ReceiptURL:  &job.Path,
		}
		if d.HasMerchant() {
			e.Notes = &d.Merchant
		}
		if _, err := repo.Create(ctx, e); err != nil {
			stats.failed.Add(1)
			return fmt.Errorf("store expense: %w", err)
		}
		stats.stored.Add(1)
		return nil
	}
}
