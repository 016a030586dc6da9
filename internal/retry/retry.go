// Package retry provides a small retry helper for transport calls.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type Config struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     bool // linear backoff: attempt * Delay
}

// TransportConfig is the default policy for feed and API fetches. Enrichment
// calls are never retried; this is for plain HTTP transport only.
func TransportConfig() Config {
	return Config{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true}
}

func Do(ctx context.Context, cfg Config, op string, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err

			if attempt == cfg.MaxAttempts {
				return fmt.Errorf("%s failed after %d attempts: %w", op, cfg.MaxAttempts, err)
			}

			delay := cfg.Delay
			if cfg.Backoff {
				delay = time.Duration(attempt) * cfg.Delay
			}
			slog.Debug("retrying", "op", op, "attempt", attempt, "delay", delay, "error", err)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
		return nil
	}

	return lastErr
}
