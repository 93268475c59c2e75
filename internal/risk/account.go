package risk

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"KillZoneSentinel/internal/model"
)

// Account owns the equity ledger with concurrency safety. When filePath is set the
// state is persisted after every change.
type Account struct {
	mu       sync.Mutex
	state    *model.AccountState
	cal      *Calendar
	filePath string
}

// NewAccount creates an Account, loading state from filePath when given or starting at
// initialEquity.
func NewAccount(filePath string, initialEquity float64, cal *Calendar) (*Account, error) {
	state := &model.AccountState{}
	if filePath != "" {
		loaded, err := LoadState(filePath)
		if err != nil {
			return nil, err
		}
		state = loaded
	}

	// Initialize if fresh state
	if state.StartingEquity == 0 {
		state.StartingEquity = initialEquity
		state.Equity = initialEquity
		state.MaxEquity = initialEquity
		state.MinEquity = initialEquity
	}

	a := &Account{state: state, cal: cal, filePath: filePath}
	if err := a.save(); err != nil {
		return nil, err
	}
	return a, nil
}

// GetState returns a copy of the current account state.
func (a *Account) GetState() model.AccountState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return *a.state
}

// Equity is the current account equity.
func (a *Account) Equity() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Equity
}

// Roll applies calendar resets for now: a new local day zeroes daily P&L and the trade
// count, a new ISO week zeroes weekly P&L.
func (a *Account) Roll(now time.Time) (newDay, newWeek bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	newDay, newWeek = a.roll(now)
	if newDay || newWeek {
		if err := a.save(); err != nil {
			log.Error().Err(err).Msg("failed to save account state after reset")
		}
	}
	return newDay, newWeek
}

// roll only moves forward; a stale timestamp books into the current day and week.
func (a *Account) roll(now time.Time) (newDay, newWeek bool) {
	s := a.state
	if s.LastDailyReset.IsZero() || a.cal.DayKey(now) > a.cal.DayKey(s.LastDailyReset) {
		s.DailyPnL = 0
		s.TradesToday = 0
		s.LastDailyReset = now
		newDay = true
	}
	if s.LastWeeklyReset.IsZero() || a.cal.WeekKey(now) > a.cal.WeekKey(s.LastWeeklyReset) {
		s.WeeklyPnL = 0
		s.LastWeeklyReset = now
		newWeek = true
	}
	return newDay, newWeek
}

// ApplyClosedTrade books a realized P&L at time at.
func (a *Account) ApplyClosedTrade(pnl float64, at time.Time) model.AccountState {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.roll(at)
	s := a.state
	s.Equity += pnl
	s.DailyPnL += pnl
	s.WeeklyPnL += pnl
	s.TradesToday++
	s.MaxEquity = max(s.MaxEquity, s.Equity)
	s.MinEquity = min(s.MinEquity, s.Equity)
	s.MaxDrawdown = max(s.MaxDrawdown, s.CurrentDrawdown())

	if err := a.save(); err != nil {
		log.Error().Err(err).Msg("failed to save account state")
	}
	return *s
}

func (a *Account) save() error {
	if a.filePath == "" {
		return nil
	}
	return SaveState(a.filePath, a.state)
}
