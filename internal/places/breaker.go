package places

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mohammed-shakir/favplaces/internal/core/observability"
)

// breaker trips after at least 10 requests in a one minute window with a
// failure ratio of 60% or more, and probes again after 30s. Requests abandoned
// by the caller do not count against the upstream.
type breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[[]byte]
}

func newBreaker(name string, logger *slog.Logger) *breaker {
	observability.SetBreakerState(name, 0)
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			observability.SetBreakerState(name, stateToFloat(to))
		},
	})
	return &breaker{name: name, cb: cb}
}

func (b *breaker) do(fn func() ([]byte, error)) ([]byte, error) {
	out, err := b.cb.Execute(fn)
	switch {
	case err == nil:
		observability.IncBreakerRequest(b.name, "success")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		observability.IncBreakerRequest(b.name, "rejected")
	case errors.Is(err, context.Canceled):
		observability.IncBreakerRequest(b.name, "canceled")
	default:
		observability.IncBreakerRequest(b.name, "failure")
	}
	return out, err
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
