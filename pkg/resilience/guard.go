// Package resilience guards calls to remote dependencies with a circuit
// breaker and an optional token bucket rate limiter.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Opts configures a Guard.
type Opts struct {
	// Name identifies the guarded dependency in logs.
	Name string
	// FailThreshold is how many consecutive failures trip the breaker.
	FailThreshold uint32
	// Timeout is how long the breaker stays open before entering half-open.
	Timeout time.Duration
	// HalfOpenMax is the number of probe calls allowed in half-open state.
	HalfOpenMax uint32
	// Rate is calls per second; 0 disables limiting.
	Rate float64
	// Burst is the limiter bucket size.
	Burst int
}

// DefaultOpts provides sensible defaults.
var DefaultOpts = Opts{
	Name:          "dependency",
	FailThreshold: 5,
	Timeout:       30 * time.Second,
	HalfOpenMax:   1,
}

// Guard wraps calls with a breaker and limiter.
type Guard struct {
	name    string
	cb      *gobreaker.CircuitBreaker[any]
	limiter *rate.Limiter
}

// New creates a Guard. Zero fields take DefaultOpts values.
func New(opts Opts, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Name == "" {
		opts.Name = DefaultOpts.Name
	}
	if opts.FailThreshold == 0 {
		opts.FailThreshold = DefaultOpts.FailThreshold
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOpts.Timeout
	}
	if opts.HalfOpenMax == 0 {
		opts.HalfOpenMax = DefaultOpts.HalfOpenMax
	}

	g := &Guard{name: opts.Name}
	g.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: opts.HalfOpenMax,
		Timeout:     opts.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailThreshold
		},
		IsSuccessful: func(err error) bool {
			// Cancellation is the caller's doing, not the dependency's.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})
	if opts.Rate > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}
	return g
}

// State returns the breaker state name: closed, open or half-open.
func (g *Guard) State() string { return g.cb.State().String() }

// Do waits for a limiter token, then runs f through the breaker.
func (g *Guard) Do(ctx context.Context, f func(context.Context) error) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("resilience: %s: rate limit: %w", g.name, err)
		}
	}
	_, err := g.cb.Execute(func() (any, error) {
		return nil, f(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("resilience: %s: %w", g.name, ErrCircuitOpen)
	}
	return err
}

// Wrap returns f guarded by g.
func Wrap[In, Out any](g *Guard, f func(context.Context, In) (Out, error)) func(context.Context, In) (Out, error) {
	return func(ctx context.Context, in In) (Out, error) {
		var out Out
		err := g.Do(ctx, func(ctx context.Context) error {
			var err error
			out, err = f(ctx, in)
			return err
		})
		return out, err
	}
}
