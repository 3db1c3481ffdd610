package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Connect создает пул и ждет доступности PostgreSQL, повторяя попытки.
func Connect(ctx context.Context, opts Options, logger *zap.Logger) (*pgxpool.Pool, error) {
	opts = opts.withDefaults()
	poolConfig, err := opts.PoolConfig()
	if err != nil {
		return nil, err
	}

	logger.Info("Attempting to connect to PostgreSQL",
		zap.Int("max_retries", opts.MaxRetries),
		zap.Duration("retry_delay", opts.RetryDelay),
	)

	var lastErr error
	for i := 0; i < opts.MaxRetries; i++ {
		attempt := i + 1
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
		connectCancel()
		if err == nil {
			pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
			err = pool.Ping(pingCtx)
			pingCancel()
			if err == nil {
				logger.Info("Successfully connected and pinged PostgreSQL", zap.Int("attempt", attempt))
				return pool, nil
			}
			pool.Close()
		}

		lastErr = fmt.Errorf("postgres unavailable (attempt %d/%d): %w", attempt, opts.MaxRetries, err)
		logger.Warn("Postgres connection failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", opts.MaxRetries),
			zap.Error(err),
		)

		if i < opts.MaxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(opts.RetryDelay):
			}
		}
	}
	return nil, lastErr
}
