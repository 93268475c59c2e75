// Package broker routes order plans. PaperBroker simulates fills and exits from bars;
// LoggingBroker only records intent.
package broker

import (
	"time"

	"KillZoneSentinel/internal/model"
)

// Broker is the order-routing capability. Implementations own the order book transitions
// they perform and return the events they produced, in order.
type Broker interface {
	Name() string
	PlaceOrder(plan *model.OrderPlan, now time.Time) (*model.OrderEvent, error)
	// CancelOrder cancels a WAITING order or closes an open position at price.
	// It returns nil, nil for orders that are already terminal.
	CancelOrder(id string, now time.Time, reason string, price float64) (*model.OrderEvent, error)
	ProcessBar(bar model.Bar) ([]model.OrderEvent, error)
}
