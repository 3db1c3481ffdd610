package clients

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limits - ограничения исходящих вызовов одного провайдера.
type Limits struct {
	Retry RetryPolicy
	// RequestsPerSecond <= 0 отключает ограничение частоты.
	RequestsPerSecond float64
	Burst             int
	// Timeout на одну попытку.
	Timeout time.Duration
}

// callGuard оборачивает вызов провайдера: лимит частоты, таймаут, повторы, метрики.
type callGuard struct {
	provider string
	limits   Limits
	limiter  *rate.Limiter
	logger   *zap.Logger
}

func newCallGuard(provider string, limits Limits, logger *zap.Logger) *callGuard {
	g := &callGuard{provider: provider, limits: limits, logger: logger}
	if limits.RequestsPerSecond > 0 {
		burst := limits.Burst
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(limits.RequestsPerSecond), burst)
	}
	return g
}

func (g *callGuard) call(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := g.limits.Retry.Do(ctx, func() error {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		attemptCtx := ctx
		if g.limits.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, g.limits.Timeout)
			defer cancel()
		}
		return fn(attemptCtx)
	}, func(err error, wait time.Duration) {
		providerRetriesTotal.WithLabelValues(g.provider, operation).Inc()
		g.logger.Warn("Provider call failed, retrying",
			zap.String("operation", operation),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
	providerRequestDuration.WithLabelValues(g.provider, operation).Observe(time.Since(start).Seconds())
	observeStatus(g.provider, operation, err)
	return err
}
