package wled

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wled-tools/wledbridge/internal/logging"
)

const (
	// DefaultMaxRetries is the retry budget in standard mode
	DefaultMaxRetries = 5

	// CompatMaxRetries is the reduced budget used in compatibility mode,
	// matching older firmware that slows down under repeated bursts
	CompatMaxRetries = 3

	// DefaultRetryDelay is the initial backoff delay
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay caps the exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second
)

// retryPolicy wraps single-attempt operations with bounded retries. Only
// transient failures (timeouts, network errors, 5xx) are retried; protocol
// and caller errors surface immediately.
type retryPolicy struct {
	maxRetries  int
	delay       time.Duration
	maxDelay    time.Duration
	exponential bool
	sleep       func(ctx context.Context, d time.Duration) error // test hook
}

func newRetryPolicy(maxRetries int, delay, maxDelay time.Duration, exponential bool) *retryPolicy {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	if maxDelay <= 0 {
		maxDelay = DefaultMaxRetryDelay
	}
	return &retryPolicy{
		maxRetries:  maxRetries,
		delay:       delay,
		maxDelay:    maxDelay,
		exponential: exponential,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// execute runs op up to maxRetries+1 times. After exhausting the budget the
// last failure is returned unchanged so the caller still sees its kind.
func (p *retryPolicy) execute(ctx context.Context, operation string, op func() error) error {
	var lastErr error
	currentDelay := p.delay

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			logging.Warn("retrying device request",
				zap.String("operation", operation),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", p.maxRetries+1),
				zap.Duration("delay", currentDelay),
			)
			if err := p.sleep(ctx, currentDelay); err != nil {
				return lastErr
			}
			if p.exponential {
				currentDelay *= 2
				if currentDelay > p.maxDelay {
					currentDelay = p.maxDelay
				}
			}
		}

		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
	}

	return lastErr
}
