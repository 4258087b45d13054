package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/streamstore-go/streamstore/eventstore"
)

const (
	defaultMaxAttempts  = 6
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3
)

// ErrInvalidMaxAttempts is returned when max attempts are not positive.
var ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

// ErrNegativeBaseDelay is returned when the base delay is negative.
var ErrNegativeBaseDelay = errors.New("base delay must not be negative")

// ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
var ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")

// Func is a unit of work retried on a lost optimistic-concurrency race,
// typically an eventstore.EventStore.Append call.
type Func func(ctx context.Context) error

type config struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
	metrics      eventstore.MetricsCollector
}

// WithExponentialBackoff runs fn, retrying only on
// eventstore.ErrWrongExpectedVersion with exponential backoff and jitter.
//
// Default schedule: 0ms, 10ms, 20ms, 40ms, 80ms, 160ms (30% jitter), 6
// attempts, worst case ~310ms total before jitter — tuned for a command handler re-reading the
// stream and reapplying its decision before the next attempt.
func WithExponentialBackoff(ctx context.Context, fn Func, options ...Option) error {
	cfg := &config{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
	}

	for _, option := range options {
		if err := option(cfg); err != nil {
			return err
		}
	}

	var lastErr error

	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(cfg, attempt)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if !errors.Is(lastErr, eventstore.ErrWrongExpectedVersion) {
			return lastErr
		}

		recordRetry(ctx, cfg, attempt)
	}

	recordExhausted(ctx, cfg)

	return lastErr
}

func backoffDelay(cfg *config, attempt int) time.Duration {
	delay := cfg.baseDelay * time.Duration(1<<(attempt-1))
	jitter := rand.Float64() * float64(delay) * cfg.jitterFactor //nolint:gosec

	return delay + time.Duration(jitter)
}

func recordRetry(ctx context.Context, cfg *config, attempt int) {
	if cfg.metrics == nil {
		return
	}

	labels := map[string]string{"attempt": itoa(attempt + 1)}

	if contextual, ok := cfg.metrics.(eventstore.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, "retry.wrong_expected_version", labels)
		return
	}

	cfg.metrics.IncrementCounter("retry.wrong_expected_version", labels)
}

func recordExhausted(ctx context.Context, cfg *config) {
	if cfg.metrics == nil {
		return
	}

	if contextual, ok := cfg.metrics.(eventstore.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, "retry.exhausted", nil)
		return
	}

	cfg.metrics.IncrementCounter("retry.exhausted", nil)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}

	neg := n < 0
	if neg {
		n = -n
	}

	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}

	if neg {
		i--
		buf[i] = '-'
	}

	return string(buf[i:])
}

// Option configures WithExponentialBackoff's retry schedule.
type Option func(*config) error

// WithMaxAttempts sets the maximum number of attempts (including the first).
func WithMaxAttempts(attempts int) Option {
	return func(cfg *config) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		cfg.maxAttempts = attempts

		return nil
	}
}

// WithBaseDelay sets the base delay for exponential backoff.
func WithBaseDelay(delay time.Duration) Option {
	return func(cfg *config) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		cfg.baseDelay = delay

		return nil
	}
}

// WithJitterFactor sets the jitter factor (0.0-1.0) applied to each delay.
func WithJitterFactor(factor float64) Option {
	return func(cfg *config) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		cfg.jitterFactor = factor

		return nil
	}
}

// WithMetrics sets the metrics collector retries are reported to.
func WithMetrics(collector eventstore.MetricsCollector) Option {
	return func(cfg *config) error {
		cfg.metrics = collector
		return nil
	}
}
