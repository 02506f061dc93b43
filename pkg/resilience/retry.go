package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Backoff controls Retry.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

// DefaultBackoff is used for startup connections to optional backends.
var DefaultBackoff = Backoff{Attempts: 3, Initial: 200 * time.Millisecond, Max: 2 * time.Second}

// Retry calls fn until it succeeds, the attempts are used up or ctx is
// done. Delays double from b.Initial up to b.Max with 10% jitter.
func Retry(ctx context.Context, name string, b Backoff, fn func(context.Context) error) error {
	if b.Attempts <= 0 {
		b.Attempts = DefaultBackoff.Attempts
	}
	if b.Initial <= 0 {
		b.Initial = DefaultBackoff.Initial
	}
	if b.Max < b.Initial {
		b.Max = b.Initial
	}
	logger := slog.Default().With("component", "retry", "operation", name)

	var err error
	delay := b.Initial
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			if attempt > 1 {
				logger.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if attempt == b.Attempts {
			break
		}
		wait := jitter(delay)
		logger.Debug("attempt failed, retrying", "attempt", attempt, "next_delay", wait, "error", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", name, ctx.Err())
		}
		delay = min(delay*2, b.Max)
	}
	return fmt.Errorf("%s: %d attempts failed: %w", name, b.Attempts, err)
}

func jitter(d time.Duration) time.Duration {
	spread := float64(d) * 0.1
	return d + time.Duration(spread*(2*rand.Float64()-1))
}
