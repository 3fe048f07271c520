package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/expense-scanner/internal/common"
	"github.com/joseph-ayodele/expense-scanner/internal/repository"
)

// ConnectDB opens the configured database and applies pending migrations.
// Zero pool settings fall back to the defaults below.
func ConnectDB(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*repository.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rc := repository.Config{
		Driver:           cfg.Driver,
		DSN:              cfg.DSN,
		MaxConns:         orDefault(cfg.MaxConns, 20),
		MinConns:         orDefault(cfg.MinConns, 5),
		MaxConnLifetime:  orDefault(cfg.MaxConnLifetime, 30*time.Minute),
		MaxConnIdleTime:  orDefault(cfg.MaxConnIdleTime, 5*time.Minute),
		DialTimeout:      orDefault(cfg.DialTimeout, 3*time.Second),
		StatementTimeout: cfg.StatementTimeout,
	}

	db, err := repository.Open(ctx, rc, logger)
	if err != nil {
		logger.Error("failed to connect to database", "driver", cfg.Driver, "error", err)
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
