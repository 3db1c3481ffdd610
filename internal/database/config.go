package database

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Options - параметры пула соединений и повторных попыток подключения.
type Options struct {
	URL             string
	MaxConns        int
	MaxConnIdleTime time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxConns <= 0 {
		o.MaxConns = 10
	}
	if o.MaxConnIdleTime <= 0 {
		o.MaxConnIdleTime = 5 * time.Minute
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 10
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 3 * time.Second
	}
	return o
}

// PoolConfig разбирает URL и применяет ограничения пула.
func (o Options) PoolConfig() (*pgxpool.Config, error) {
	o = o.withDefaults()
	poolConfig, err := pgxpool.ParseConfig(o.URL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}
	poolConfig.MaxConns = int32(o.MaxConns)
	poolConfig.MaxConnIdleTime = o.MaxConnIdleTime
	return poolConfig, nil
}
