package broker

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"KillZoneSentinel/internal/model"
	"KillZoneSentinel/internal/state"
)

// LoggingBroker registers and logs orders but never fills them.
type LoggingBroker struct {
	book *state.Book
}

func NewLoggingBroker(book *state.Book) *LoggingBroker {
	return &LoggingBroker{book: book}
}

func (b *LoggingBroker) Name() string { return "logging" }

func (b *LoggingBroker) PlaceOrder(plan *model.OrderPlan, now time.Time) (*model.OrderEvent, error) {
	if err := b.book.Register(plan); err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}
	log.Info().Str("id", plan.ID).Str("dir", string(plan.Direction)).Float64("entry", plan.Entry).
		Float64("sl", plan.Stop).Float64("tp", plan.Target).Int("size", plan.Size).Msg("order routed (logging only)")
	return &model.OrderEvent{OrderID: plan.ID, Time: now, Kind: model.EventPlaced, Price: plan.Entry}, nil
}

func (b *LoggingBroker) CancelOrder(id string, now time.Time, reason string, price float64) (*model.OrderEvent, error) {
	o := b.book.Get(id)
	if o == nil {
		return nil, fmt.Errorf("%w: %s", state.ErrUnknownOrder, id)
	}
	if !o.Open() {
		return nil, nil
	}
	evt := model.OrderEvent{OrderID: id, Time: now, Kind: model.EventCancelled, Price: price, Reason: reason}
	if _, err := b.book.Transition(id, model.StateCancelled, evt); err != nil {
		return nil, err
	}
	log.Info().Str("id", id).Str("reason", reason).Msg("order cancelled (logging only)")
	return &evt, nil
}

func (b *LoggingBroker) ProcessBar(model.Bar) ([]model.OrderEvent, error) { return nil, nil }
