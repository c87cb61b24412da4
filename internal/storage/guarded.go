package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type GuardConfig struct {
	StoreTimeout time.Duration
	URLTimeout   time.Duration
	MaxFailures  uint32
	OpenTimeout  time.Duration
}

// Guarded bounds every call to the wrapped gateway with its own timeout and a
// circuit breaker, and reports failures as *domain.StorageError.
//
// Store and Delete are detached from the caller's cancellation: an upload that has
// started runs to completion or to its own deadline, and cleanup deletes still run
// after the originating request is gone.
type Guarded struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker
	cfg  GuardConfig
}

var _ Gateway = (*Guarded)(nil)

func NewGuarded(next Gateway, cfg GuardConfig) *Guarded {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 30 * time.Second
	}
	if cfg.URLTimeout <= 0 {
		cfg.URLTimeout = 5 * time.Second
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}

	st := gobreaker.Settings{
		Name:        "storage",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			observability.GetLogger(context.Background()).Warn("circuit breaker state",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Guarded{next: next, cb: gobreaker.NewCircuitBreaker(st), cfg: cfg}
}

func (g *Guarded) Store(ctx context.Context, r io.Reader, size int64, suggestedName, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.StoreTimeout)
	defer cancel()

	var locator string
	err := g.run(ctx, "store", "", func(ctx context.Context) error {
		var err error
		locator, err = g.next.Store(ctx, r, size, suggestedName, contentType)
		return err
	})
	return locator, err
}

func (g *Guarded) URLFor(ctx context.Context, locator string, ttl time.Duration, downloadName string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.URLTimeout)
	defer cancel()

	var u string
	err := g.run(ctx, "url", locator, func(ctx context.Context) error {
		var err error
		u, err = g.next.URLFor(ctx, locator, ttl, downloadName)
		return err
	})
	return u, err
}

func (g *Guarded) Delete(ctx context.Context, locator string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.StoreTimeout)
	defer cancel()

	return g.run(ctx, "delete", locator, func(ctx context.Context) error {
		return g.next.Delete(ctx, locator)
	})
}

func (g *Guarded) run(ctx context.Context, op, locator string, fn func(ctx context.Context) error) error {
	start := time.Now()
	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})

	result := "ok"
	if err != nil {
		result = "error"
	}
	observability.StorageOperationDuration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())

	if err == nil {
		return nil
	}
	return &domain.StorageError{
		Op:      op,
		Locator: locator,
		Timeout: errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded),
		Err:     err,
	}
}
