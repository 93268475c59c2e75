package collector

import (
	"context"
	"time"

	"KillZoneSentinel/internal/model"
)

// Fetcher defines the interface for fetching market data.
// FetchBars returns bars strictly after since, oldest first. A zero since means
// "as much history as the source offers".
type Fetcher interface {
	FetchBars(ctx context.Context, symbol, timeframe string, since time.Time) ([]model.Bar, error)
	Name() string
}
