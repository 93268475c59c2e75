package risk

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"KillZoneSentinel/internal/model"
	"KillZoneSentinel/internal/state"
)

// Block reasons that do not halt.
const (
	BlockNews    = "news_blackout"
	BlockSession = "out_of_session"
	BlockHalted  = "halted"
)

// Halt reasons.
const (
	HaltMaxTrades      = "max_trades_per_day"
	HaltDailyDrawdown  = "daily_drawdown"
	HaltWeeklyDrawdown = "weekly_drawdown"
)

// Decision is the outcome of a CanTrade check. Halt is set only when this check halted trading.
type Decision struct {
	Allowed bool
	Reason  string
	Halt    *model.HaltEvent
}

// Canceller closes or cancels an order at a given price.
type Canceller interface {
	CancelOrder(id string, now time.Time, reason string, price float64) (*model.OrderEvent, error)
}

// Supervisor gates new trades: ACTIVE until a limit halts it for the rest of the local day.
type Supervisor struct {
	limits  Limits
	cal     *Calendar
	account *Account
	news    []time.Time

	halted     bool
	haltReason string
	haltDay    string
	lastBias   model.Direction
}

func NewSupervisor(limits Limits, cal *Calendar, account *Account, news []time.Time) *Supervisor {
	return &Supervisor{limits: limits, cal: cal, account: account, news: news}
}

// Halted reports whether trading is suspended and why.
func (s *Supervisor) Halted() (bool, string) {
	return s.halted, s.haltReason
}

// CanTrade applies calendar resets and then checks, in order: halt, news blackout,
// session window, trade count, daily drawdown and weekly drawdown.
func (s *Supervisor) CanTrade(now time.Time) Decision {
	s.account.Roll(now)
	if s.halted && s.cal.DayKey(now) != s.haltDay {
		log.Info().Str("reason", s.haltReason).Msg("new trading day, halt cleared")
		s.halted, s.haltReason, s.haltDay = false, "", ""
	}
	if s.halted {
		return Decision{Reason: BlockHalted}
	}
	if s.inNewsBlackout(now) {
		return Decision{Reason: BlockNews}
	}
	if _, ok := s.cal.Session(now); !ok {
		return Decision{Reason: BlockSession}
	}

	acct := s.account.GetState()
	switch {
	case acct.TradesToday >= s.limits.MaxTradesPerDay:
		return s.halt(now, HaltMaxTrades)
	case -acct.DailyPnL >= acct.StartingEquity*s.limits.MaxDailyDrawdown:
		return s.halt(now, HaltDailyDrawdown)
	case -acct.WeeklyPnL >= acct.StartingEquity*s.limits.MaxWeeklyDrawdown:
		return s.halt(now, HaltWeeklyDrawdown)
	}
	return Decision{Allowed: true}
}

func (s *Supervisor) halt(now time.Time, reason string) Decision {
	s.halted = true
	s.haltReason = reason
	s.haltDay = s.cal.DayKey(now)
	log.Warn().Str("reason", reason).Time("at", now).Msg("trading halted")
	return Decision{Reason: reason, Halt: &model.HaltEvent{Time: now, Reason: reason}}
}

func (s *Supervisor) inNewsBlackout(now time.Time) bool {
	window := time.Duration(s.limits.NewsHaltMinutes) * time.Minute
	for _, t := range s.news {
		d := now.Sub(t)
		if d >= -window && d <= window {
			return true
		}
	}
	return false
}

// RoomForPosition reports whether book has fewer live orders than the concurrency limit.
func (s *Supervisor) RoomForPosition(book *state.Book) bool {
	return len(book.Open()) < s.limits.MaxConcurrentPositions
}

// OnBias reacts to a bias flip: WAITING orders against the new direction are cancelled and
// FILLED/MANAGING ones are closed at price, both through c. The first bias seen only primes
// the supervisor.
func (s *Supervisor) OnBias(book *state.Book, c Canceller, snap *model.BiasSnapshot, price float64, now time.Time) ([]model.OrderEvent, error) {
	prev := s.lastBias
	s.lastBias = snap.Direction
	if prev == "" || prev == snap.Direction {
		return nil, nil
	}

	log.Info().Str("from", string(prev)).Str("to", string(snap.Direction)).Msg("bias flip")
	var events []model.OrderEvent
	for _, o := range book.Open() {
		if o.Direction == snap.Direction {
			continue
		}
		evt, err := c.CancelOrder(o.ID, now, model.ReasonBiasFlip, price)
		if errors.Is(err, state.ErrUnknownOrder) {
			continue
		}
		if err != nil {
			return events, fmt.Errorf("cancel %s on bias flip: %w", o.ID, err)
		}
		if evt != nil {
			events = append(events, *evt)
		}
	}
	return events, nil
}
