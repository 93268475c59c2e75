package broker

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"KillZoneSentinel/internal/calculator"
	"KillZoneSentinel/internal/model"
	"KillZoneSentinel/internal/state"
)

// PaperBroker simulates the order lifecycle against incoming bars. Stop is tested before
// target on the same bar.
type PaperBroker struct {
	book          *state.Book
	timeStopBars  int
	valuePerPoint float64
}

func NewPaperBroker(book *state.Book, timeStopBars int, valuePerPoint float64) *PaperBroker {
	return &PaperBroker{book: book, timeStopBars: timeStopBars, valuePerPoint: valuePerPoint}
}

func (b *PaperBroker) Name() string { return "paper" }

func (b *PaperBroker) PlaceOrder(plan *model.OrderPlan, now time.Time) (*model.OrderEvent, error) {
	if err := b.book.Register(plan); err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}
	log.Info().Str("id", plan.ID).Str("dir", string(plan.Direction)).Float64("entry", plan.Entry).
		Float64("sl", plan.Stop).Float64("tp", plan.Target).Float64("rr", plan.RR).Int("size", plan.Size).
		Msg("ORDER_CREATED")
	return &model.OrderEvent{OrderID: plan.ID, Time: now, Kind: model.EventPlaced, Price: plan.Entry}, nil
}

func (b *PaperBroker) CancelOrder(id string, now time.Time, reason string, price float64) (*model.OrderEvent, error) {
	o := b.book.Get(id)
	if o == nil {
		return nil, fmt.Errorf("%w: %s", state.ErrUnknownOrder, id)
	}
	if !o.Open() {
		return nil, nil
	}
	if o.State == model.StateWaiting {
		evt := model.OrderEvent{OrderID: id, Time: now, Kind: model.EventCancelled, Reason: reason}
		if _, err := b.book.Transition(id, model.StateCancelled, evt); err != nil {
			return nil, err
		}
		log.Info().Str("id", id).Str("reason", reason).Msg("ORDER_CANCELLED")
		return &evt, nil
	}
	return b.close(o, now, model.StateCancelled, model.EventCancelled, price, reason)
}

// ProcessBar advances every open order by one bar, in creation order.
func (b *PaperBroker) ProcessBar(bar model.Bar) ([]model.OrderEvent, error) {
	var events []model.OrderEvent
	for _, o := range b.book.Open() {
		evt, err := b.step(o, bar)
		if err != nil {
			return events, err
		}
		if evt != nil {
			events = append(events, *evt)
		}
	}
	return events, nil
}

func (b *PaperBroker) step(o *model.OrderPlan, bar model.Bar) (*model.OrderEvent, error) {
	now := bar.Time
	if o.State == model.StateWaiting {
		if !now.Before(o.ExpiresAt) {
			evt := model.OrderEvent{OrderID: o.ID, Time: now, Kind: model.EventExpired, Reason: model.ReasonExpiry}
			if _, err := b.book.Transition(o.ID, model.StateExpired, evt); err != nil {
				return nil, err
			}
			log.Info().Str("id", o.ID).Msg("ORDER_EXPIRED")
			return &evt, nil
		}
		if bar.Low <= o.Entry && o.Entry <= bar.High {
			evt := model.OrderEvent{OrderID: o.ID, Time: now, Kind: model.EventFilled, Price: o.Entry}
			if _, err := b.book.Transition(o.ID, model.StateFilled, evt); err != nil {
				return nil, err
			}
			log.Info().Str("id", o.ID).Float64("price", o.Entry).Msg("ORDER_FILLED")
			return &evt, nil
		}
		return nil, nil
	}

	if o.State == model.StateFilled {
		if _, err := b.book.Transition(o.ID, model.StateManaging, model.OrderEvent{OrderID: o.ID, Time: now}); err != nil {
			return nil, err
		}
	}

	held, err := b.book.IncrementBarsHeld(o.ID)
	if err != nil {
		return nil, err
	}
	if held >= b.timeStopBars {
		return b.close(o, now, model.StateExit, model.EventTimeStop, bar.Close, model.ReasonTimeStop)
	}

	long := o.Direction == model.Long
	if (long && bar.Low <= o.Stop) || (!long && bar.High >= o.Stop) {
		return b.close(o, now, model.StateExit, model.EventSLHit, o.Stop, model.ReasonStopLoss)
	}
	if (long && bar.High >= o.Target) || (!long && bar.Low <= o.Target) {
		return b.close(o, now, model.StateExit, model.EventTPHit, o.Target, model.ReasonTarget)
	}
	return nil, nil
}

func (b *PaperBroker) close(o *model.OrderPlan, now time.Time, to model.OrderState, kind model.EventKind, price float64, reason string) (*model.OrderEvent, error) {
	pnl, r := b.PnL(o, price)
	evt := model.OrderEvent{OrderID: o.ID, Time: now, Kind: kind, Price: price, PnL: pnl, R: r, Reason: reason, Realized: true}
	if _, err := b.book.Transition(o.ID, to, evt); err != nil {
		return nil, err
	}
	log.Info().Str("id", o.ID).Str("event", string(kind)).Float64("price", price).
		Float64("pnl", pnl).Str("r", fmt.Sprintf("%+.2fR", r)).Msg("ORDER_CLOSED")
	return &evt, nil
}

// PnL returns the cash and R-multiple result of exiting o at price.
func (b *PaperBroker) PnL(o *model.OrderPlan, price float64) (cash, r float64) {
	fill := o.FillPrice
	if o.FilledAt.IsZero() {
		fill = o.Entry
	}
	units := float64(o.Size) * b.valuePerPoint
	cash = (price - fill) * o.Direction.Sign() * units
	r = cash / math.Max(o.StopDistance()*units, calculator.Epsilon)
	return cash, r
}
