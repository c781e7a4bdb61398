// Package resilience guards fragile operations with a circuit breaker and a
// degraded fallback.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrInvalidSettings is returned for breaker settings that cannot be served.
var ErrInvalidSettings = errors.New("invalid circuit breaker settings")

// State is the breaker state as reported to callers and metrics.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

func fromBreakerState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// Settings configures one guard.
type Settings struct {
	Name string `yaml:"name"`
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold uint32 `yaml:"failureThreshold"`
	// ResetTimeout is how long the breaker stays open before probing.
	ResetTimeout time.Duration `yaml:"resetTimeout"`
	// HalfOpenMaxCalls trial calls are admitted while half-open.
	HalfOpenMaxCalls uint32 `yaml:"halfOpenMaxCalls"`
	// Interval clears the closed-state counts periodically. Zero never clears them.
	Interval time.Duration `yaml:"interval"`
	// FallbackOnFailure also serves the fallback for failures while closed.
	FallbackOnFailure bool `yaml:"fallbackOnFailure"`
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings(name string) Settings {
	return Settings{
		Name:             name,
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMaxCalls: 1,
		Interval:         60 * time.Second,
	}
}

// Validate rejects settings that would leave the breaker unusable.
func (s Settings) Validate() error {
	switch {
	case s.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidSettings)
	case s.FailureThreshold == 0:
		return fmt.Errorf("%w: failureThreshold must be positive", ErrInvalidSettings)
	case s.ResetTimeout <= 0:
		return fmt.Errorf("%w: resetTimeout must be positive, got %s", ErrInvalidSettings, s.ResetTimeout)
	case s.HalfOpenMaxCalls == 0:
		return fmt.Errorf("%w: halfOpenMaxCalls must be positive", ErrInvalidSettings)
	case s.Interval < 0:
		return fmt.Errorf("%w: interval must not be negative", ErrInvalidSettings)
	}
	return nil
}

// Operation is the guarded call.
type Operation[A, T any] func(ctx context.Context, arg A) (T, error)

// Fallback produces a degraded result. cause is the failure or rejection that
// prevented the primary result.
type Fallback[A, T any] func(ctx context.Context, arg A, cause error) (T, error)

// Result carries the value and whether the fallback produced it.
type Result[T any] struct {
	Value    T
	Degraded bool
	Cause    error
}

// Guard runs an operation behind a circuit breaker.
type Guard[A, T any] struct {
	settings    Settings
	breaker     *gobreaker.CircuitBreaker
	op          Operation[A, T]
	fallback    Fallback[A, T]
	lastFailure atomic.Pointer[error]
	logger      *zap.Logger
	metrics     *guardMetrics
}

// NewGuard creates a guard. fallback may be nil, in which case rejected calls
// return the rejection error. metrics may be nil.
func NewGuard[A, T any](settings Settings, op Operation[A, T], fallback Fallback[A, T], logger *zap.Logger, metrics *Metrics) (*Guard[A, T], error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if op == nil {
		return nil, fmt.Errorf("%w: operation is required", ErrInvalidSettings)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Guard[A, T]{
		settings: settings,
		op:       op,
		fallback: fallback,
		logger:   logger.Named("breaker").With(zap.String("breaker", settings.Name)),
		metrics:  metrics.forGuard(settings.Name),
	}

	threshold := settings.FailureThreshold
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.HalfOpenMaxCalls,
		Interval:    settings.Interval,
		Timeout:     settings.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn("Circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			g.metrics.state(fromBreakerState(to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	g.metrics.state(StateClosed)
	return g, nil
}

// Name returns the guard name.
func (g *Guard[A, T]) Name() string {
	return g.settings.Name
}

// State returns the current breaker state.
func (g *Guard[A, T]) State() State {
	return fromBreakerState(g.breaker.State())
}

// Execute runs the operation, or the fallback when the breaker rejects the call.
// Failures while closed propagate unless FallbackOnFailure is set. A fallback
// error is returned as-is.
func (g *Guard[A, T]) Execute(ctx context.Context, arg A) (Result[T], error) {
	if err := ctx.Err(); err != nil {
		return Result[T]{}, err
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		v, err := g.op(ctx, arg)
		return v, err
	})
	if err == nil {
		g.metrics.call("success")
		v, _ := out.(T)
		return Result[T]{Value: v}, nil
	}

	if IsRejection(err) {
		g.metrics.call("rejected")
		return g.degrade(ctx, arg, g.rejectionCause(err))
	}

	if errors.Is(err, context.Canceled) {
		return Result[T]{}, err
	}

	g.lastFailure.Store(&err)
	g.metrics.call("failure")
	if g.settings.FallbackOnFailure {
		return g.degrade(ctx, arg, err)
	}
	return Result[T]{}, err
}

func (g *Guard[A, T]) degrade(ctx context.Context, arg A, cause error) (Result[T], error) {
	if g.fallback == nil {
		return Result[T]{}, cause
	}

	g.metrics.fallback()
	g.logger.Info("Serving fallback", zap.Error(cause))

	v, err := g.fallback(ctx, arg, cause)
	if err != nil {
		return Result[T]{}, err
	}
	return Result[T]{Value: v, Degraded: true, Cause: cause}, nil
}

// rejectionCause joins the rejection with the failure that opened the breaker.
func (g *Guard[A, T]) rejectionCause(rejection error) error {
	if last := g.lastFailure.Load(); last != nil {
		return errors.Join(rejection, *last)
	}
	return rejection
}

// IsRejection reports whether err means the breaker refused the call.
func IsRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
