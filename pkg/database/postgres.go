package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/auditrail-io/auditrail-engine/pkg/logging"
	"github.com/auditrail-io/auditrail-engine/pkg/retry"
)

// Pool sizing defaults, applied when Config leaves a field zero.
const (
	defaultMaxConns     = 25
	defaultConnLifetime = time.Hour
	defaultConnIdleTime = 30 * time.Minute
)

// DB wraps a pgxpool connection pool.
type DB struct {
	*pgxpool.Pool
}

// Config holds database connection configuration.
type Config struct {
	URL             string
	MaxConnections  int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Connect creates a connection pool, verifies it with a ping, and logs the
// effective pool settings. The URL is sanitized before logging.
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConnections
	if poolConfig.MaxConns == 0 {
		poolConfig.MaxConns = defaultMaxConns
	}
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	if poolConfig.MaxConnLifetime == 0 {
		poolConfig.MaxConnLifetime = defaultConnLifetime
	}
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	if poolConfig.MaxConnIdleTime == 0 {
		poolConfig.MaxConnIdleTime = defaultConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Retry the startup ping while the server is still coming up, but fail
	// fast on permanent errors such as bad credentials.
	if err := retry.DoIfRetryable(ctx, nil, func() error { return pool.Ping(ctx) }); err != nil {
		pool.Close()
		logger.Error("Database ping failed",
			zap.String("url", logging.SanitizeConnectionString(cfg.URL)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database",
		zap.String("url", logging.SanitizeConnectionString(cfg.URL)),
		zap.Int32("max_conns", poolConfig.MaxConns),
		zap.Duration("conn_lifetime", poolConfig.MaxConnLifetime))

	return &DB{Pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}
