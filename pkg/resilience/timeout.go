package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/errors"
)

// WithTimeout runs fn under a derived context cancelled after timeout. A
// call that overruns is reported as ErrTimeout; a cancelled parent is
// reported as the parent's error.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := fn(timeoutCtx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
	}
	if errors.Is(err, context.DeadlineExceeded) || timeoutCtx.Err() != nil {
		return fmt.Errorf("%s: %w (limit: %v): %v", name, apperrors.ErrTimeout, timeout, err)
	}
	return err
}

// GuardConfig bundles the policies applied to one collaborator.
type GuardConfig struct {
	Timeout time.Duration
	Retry   RetryConfig
	Breaker CircuitBreakerConfig
}

// Guard wraps calls to a remote collaborator: each attempt is bounded by
// the timeout, failed attempts are retried, and repeated failures trip the
// circuit breaker so later records fail fast.
type Guard struct {
	name    string
	cfg     GuardConfig
	breaker *CircuitBreaker
}

func NewGuard(name string, cfg GuardConfig) *Guard {
	return &Guard{
		name:    name,
		cfg:     cfg,
		breaker: NewCircuitBreaker(name, cfg.Breaker),
	}
}

func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return Retry(ctx, g.name, g.cfg.Retry, func(ctx context.Context) error {
		return g.breaker.Execute(func() error {
			return WithTimeout(ctx, g.cfg.Timeout, g.name, fn)
		})
	})
}

func (g *Guard) State() State { return g.breaker.GetState() }
