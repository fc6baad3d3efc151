// Package circuit guards audit sinks that talk to remote brokers.
package circuit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	audit "donorhub/pkg/platform/audit"
)

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = errors.New("audit sink circuit open")

// Publisher wraps an audit publisher with a circuit breaker so a broker
// outage fails fast instead of stalling the audit queue on every event.
type Publisher struct {
	next audit.Publisher
	cb   *gobreaker.CircuitBreaker
}

type Option func(*gobreaker.Settings)

// WithFailureThreshold trips the breaker after n consecutive failures.
func WithFailureThreshold(n uint32) Option {
	return func(s *gobreaker.Settings) {
		if n == 0 {
			return
		}
		s.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= n
		}
	}
}

// WithOpenTimeout sets how long the breaker stays open before probing.
func WithOpenTimeout(d time.Duration) Option {
	return func(s *gobreaker.Settings) {
		s.Timeout = d
	}
}

func New(name string, next audit.Publisher, log *slog.Logger, opts ...Option) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("audit sink circuit changed state",
				"sink", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}
	for _, opt := range opts {
		opt(&st)
	}
	return &Publisher{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.next.Emit(ctx, event)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrOpen
	}
	return err
}

// State reports "closed", "half-open" or "open".
func (p *Publisher) State() string {
	return p.cb.State().String()
}
