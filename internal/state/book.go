package state

import (
	"fmt"
	"strconv"

	"KillZoneSentinel/internal/model"
)

// Book owns every order plan. Orders are never removed; closed orders stay for reporting.
type Book struct {
	orders map[string]*model.OrderPlan
	order  []string
}

// NewBook creates an empty order book.
func NewBook() *Book {
	return &Book{orders: make(map[string]*model.OrderPlan)}
}

// Register adds a new plan in WAITING state.
func (b *Book) Register(plan *model.OrderPlan) error {
	if _, dup := b.orders[plan.ID]; dup {
		return fmt.Errorf("order %s already registered", plan.ID)
	}
	plan.State = model.StateWaiting
	b.orders[plan.ID] = plan
	b.order = append(b.order, plan.ID)
	return nil
}

// Get returns the plan with the given id, or nil.
func (b *Book) Get(id string) *model.OrderPlan {
	return b.orders[id]
}

// All returns every order in creation order.
func (b *Book) All() []*model.OrderPlan {
	out := make([]*model.OrderPlan, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.orders[id])
	}
	return out
}

// Open returns the non-terminal orders in creation order.
func (b *Book) Open() []*model.OrderPlan {
	var out []*model.OrderPlan
	for _, id := range b.order {
		if o := b.orders[id]; o.Open() {
			out = append(out, o)
		}
	}
	return out
}

// InPosition counts orders currently holding a filled position.
func (b *Book) InPosition() int {
	n := 0
	for _, o := range b.orders {
		if o.State.InPosition() {
			n++
		}
	}
	return n
}

// Closed returns orders that were filled and then exited, in creation order.
func (b *Book) Closed() []*model.OrderPlan {
	var out []*model.OrderPlan
	for _, id := range b.order {
		if o := b.orders[id]; o.Closed() {
			out = append(out, o)
		}
	}
	return out
}

// Transition moves an order along a legal edge and records the event's facts on it.
func (b *Book) Transition(id string, to model.OrderState, evt model.OrderEvent) (*model.OrderPlan, error) {
	o, ok := b.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOrder, id)
	}
	if err := o.Apply(to, evt); err != nil {
		return nil, err
	}
	return o, nil
}

// IncrementBarsHeld bumps the bars-held counter of an in-position order.
func (b *Book) IncrementBarsHeld(id string) (int, error) {
	o, ok := b.orders[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownOrder, id)
	}
	o.BarsHeld++
	if o.Metadata == nil {
		o.Metadata = make(map[string]string)
	}
	o.Metadata["bars_in_trade"] = strconv.Itoa(o.BarsHeld)
	return o.BarsHeld, nil
}
