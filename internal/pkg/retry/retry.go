package retry

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Policy is a small shared retry policy: run fn up to MaxAttempts times,
// sleeping Backoff(attempt) between attempts while Retryable reports the
// error as transient. A non-retryable error aborts immediately.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     func(attempt int, base time.Duration) time.Duration
	Retryable   func(err error) bool
}

// LinearBackoff grows the wait as delay*attempt (attempt starts at 1).
func LinearBackoff(attempt int, base time.Duration) time.Duration {
	return base * time.Duration(attempt)
}

func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = LinearBackoff
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}
		wait := backoff(attempt, p.Delay)
		logutil.GetLogger(ctx).Warn("retrying after failure",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(lastErr),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return lastErr
}
