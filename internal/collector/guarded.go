package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"KillZoneSentinel/internal/model"
)

// GuardedFetcher paces requests to an upstream fetcher and stops calling it while it keeps failing.
type GuardedFetcher struct {
	inner   Fetcher
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewGuardedFetcher wraps inner with a limiter of rps requests per second and a breaker
// that trips after failures consecutive errors and half-opens after cooldown.
func NewGuardedFetcher(inner Fetcher, rps float64, failures uint32, cooldown time.Duration) *GuardedFetcher {
	st := gobreaker.Settings{
		Name:     inner.Name(),
		Interval: 60 * time.Second,
		Timeout:  cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("fetcher", name).Str("from", from.String()).Str("to", to.String()).Msg("breaker state change")
		},
	}
	return &GuardedFetcher{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		breaker: gobreaker.NewCircuitBreaker(st),
	}
}

func (g *GuardedFetcher) Name() string { return g.inner.Name() }

// State exposes the breaker state for status reporting.
func (g *GuardedFetcher) State() gobreaker.State { return g.breaker.State() }

func (g *GuardedFetcher) FetchBars(ctx context.Context, symbol, timeframe string, since time.Time) ([]model.Bar, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.FetchBars(ctx, symbol, timeframe, since)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.inner.Name(), err)
	}
	return out.([]model.Bar), nil
}
