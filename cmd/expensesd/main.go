package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/expense-scanner/internal/common"
	"github.com/joseph-ayodele/expense-scanner/internal/expenses"
	"github.com/joseph-ayodele/expense-scanner/internal/export"
	"github.com/joseph-ayodele/expense-scanner/internal/pipeline"
	"github.com/joseph-ayodele/expense-scanner/internal/repository"
	svc "github.com/joseph-ayodele/expense-scanner/internal/server"
)

func main() {
	cfg := common.LoadConfig()
	logger := common.NewLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := svc.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.HealthCheck(ctx, 5*time.Second); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	extractor, err := svc.NewExtractor(cfg.Extraction, logger)
	if err != nil {
		logger.Error("failed to load keywords", "error", err)
		os.Exit(1)
	}
	reader, err := svc.NewOCRReader(cfg.OCR, logger)
	if err != nil {
		logger.Error("failed to configure ocr", "engine", cfg.OCR.Engine, "error", err)
		os.Exit(1)
	}
	processor := pipeline.NewProcessor(reader, extractor, logger)

	expensesRepo := repository.NewExpenseRepository(db, logger)
	router := svc.NewRouter(svc.RouterConfig{
		RateLimitEvery: cfg.Server.RateLimitEvery,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		HealthCheck: func(ctx context.Context) error {
			return db.HealthCheck(ctx, 2*time.Second)
		},
	},
		svc.NewOCRHandler(processor, logger),
		svc.NewExpensesHandler(
			expenses.NewService(expensesRepo, logger),
			export.NewService(expensesRepo, logger),
			logger,
		),
		logger,
	)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer, healthServer := svc.NewGRPCServer(svc.NewExtractorService(extractor, logger), logger)

	go func() {
		logger.Info("grpc listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()
	go func() {
		logger.Info("http listening", "addr", cfg.Server.HTTPAddr, "ocr_engine", cfg.OCR.Engine)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", "error", err)
	}
	grpcServer.GracefulStop()
}
