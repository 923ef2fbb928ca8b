package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Config struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      1.5,
	}
}

// Do runs operation with exponential backoff until it succeeds, the retry
// budget is spent, or ctx is canceled. Each failed attempt is logged.
func Do(ctx context.Context, logger *slog.Logger, operationName string, operation func() error, cfg Config) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	bo.MaxInterval = cfg.MaxInterval
	bo.Multiplier = cfg.Multiplier
	bo.Reset()

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, cfg.MaxRetries), ctx)

	notify := func(err error, next time.Duration) {
		logger.Warn("operation failed, retrying",
			slog.String("operation", operationName),
			slog.String("error", err.Error()),
			slog.String("next_attempt_in", next.Round(time.Millisecond).String()),
		)
	}

	return backoff.RetryNotify(operation, policy, notify)
}
