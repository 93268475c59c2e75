package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrIllegalTransition is returned when an order is moved along an edge missing from the table.
var ErrIllegalTransition = errors.New("illegal order transition")

// OrderState is the lifecycle state of an order plan.
type OrderState string

const (
	StateWaiting   OrderState = "WAITING"
	StateFilled    OrderState = "FILLED"
	StateManaging  OrderState = "MANAGING"
	StateExit      OrderState = "EXIT"
	StateCancelled OrderState = "CANCELLED"
	StateExpired   OrderState = "EXPIRED"
)

// transitions lists every legal edge of the order lifecycle. Terminal states have none.
var transitions = map[OrderState][]OrderState{
	StateWaiting:  {StateFilled, StateExpired, StateCancelled},
	StateFilled:   {StateManaging, StateExit, StateCancelled},
	StateManaging: {StateExit, StateCancelled},
}

// CanTransition reports whether s may move to next.
func (s OrderState) CanTransition(next OrderState) bool {
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s OrderState) Terminal() bool {
	return len(transitions[s]) == 0
}

// InPosition reports whether the order holds a filled position.
func (s OrderState) InPosition() bool {
	return s == StateFilled || s == StateManaging
}

// OrderKind is the execution style of an order.
type OrderKind string

const (
	KindLimit  OrderKind = "limit"
	KindMarket OrderKind = "market"
)

// EventKind is the fact an order event records.
type EventKind string

const (
	EventPlaced    EventKind = "PLACED"
	EventFilled    EventKind = "FILLED"
	EventTPHit     EventKind = "TP_HIT"
	EventSLHit     EventKind = "SL_HIT"
	EventTimeStop  EventKind = "TIME_STOP"
	EventExpired   EventKind = "EXPIRED"
	EventCancelled EventKind = "CANCELLED"
)

// Exit reasons.
const (
	ReasonExpiry   = "expiry"
	ReasonTimeStop = "time_stop"
	ReasonStopLoss = "sl_hit"
	ReasonTarget   = "tp_hit"
	ReasonBiasFlip = "bias_flip"
)

// OrderEvent is an immutable lifecycle fact.
type OrderEvent struct {
	OrderID  string
	Time     time.Time
	Kind     EventKind
	Price    float64
	PnL      float64
	R        float64
	Reason   string
	Realized bool // the event closed a position and carries P&L
}

// OrderPlan is a sized order owned by the order book.
type OrderPlan struct {
	ID          string
	Symbol      string
	Direction   Direction
	Kind        OrderKind
	Entry       float64
	Stop        float64
	Target      float64
	RR          float64
	Size        int
	CreatedAt   time.Time
	ExpiresAt   time.Time
	BiasID      int64
	StructureID int64

	State      OrderState
	FilledAt   time.Time
	FillPrice  float64
	ClosedAt   time.Time
	ExitPrice  float64
	ExitReason string
	PnL        float64
	R          float64
	BarsHeld   int
	Metadata   map[string]string
}

// StopDistance is the absolute entry-to-stop distance.
func (o *OrderPlan) StopDistance() float64 {
	return math.Abs(o.Entry - o.Stop)
}

// Open reports whether the order can still change state.
func (o *OrderPlan) Open() bool {
	return !o.State.Terminal()
}

// Closed reports whether the order was filled and then closed, by any exit.
func (o *OrderPlan) Closed() bool {
	return o.State.Terminal() && !o.FilledAt.IsZero() && !o.ClosedAt.IsZero()
}

// Apply moves the order along a legal edge and copies the event's facts onto it.
func (o *OrderPlan) Apply(to OrderState, evt OrderEvent) error {
	if !o.State.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s (order %s)", ErrIllegalTransition, o.State, to, o.ID)
	}
	o.State = to
	switch {
	case evt.Kind == EventFilled:
		o.FilledAt = evt.Time
		o.FillPrice = evt.Price
		o.BarsHeld = 0
		o.setMeta("bars_in_trade", "0")
	case evt.Realized:
		o.ClosedAt = evt.Time
		o.ExitPrice = evt.Price
		o.ExitReason = evt.Reason
		o.PnL = evt.PnL
		o.R = evt.R
	default:
		o.ExitReason = evt.Reason
	}
	return nil
}

func (o *OrderPlan) setMeta(key, value string) {
	if o.Metadata == nil {
		o.Metadata = make(map[string]string)
	}
	o.Metadata[key] = value
}

// AccountState tracks equity and the counters the risk supervisor gates on.
type AccountState struct {
	Equity          float64   `json:"equity"`
	StartingEquity  float64   `json:"starting_equity"`
	DailyPnL        float64   `json:"daily_pnl"`
	WeeklyPnL       float64   `json:"weekly_pnl"`
	TradesToday     int       `json:"trades_today"`
	MaxEquity       float64   `json:"max_equity"`
	MinEquity       float64   `json:"min_equity"`
	MaxDrawdown     float64   `json:"max_drawdown"`
	LastDailyReset  time.Time `json:"last_daily_reset"`
	LastWeeklyReset time.Time `json:"last_weekly_reset"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CurrentDrawdown is the fractional distance of equity below its running peak.
func (a *AccountState) CurrentDrawdown() float64 {
	if a.MaxEquity <= 0 {
		return 0
	}
	return (a.MaxEquity - a.Equity) / a.MaxEquity
}
