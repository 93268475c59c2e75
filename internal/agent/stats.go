package agent

import (
	"time"

	"KillZoneSentinel/internal/model"
	"KillZoneSentinel/internal/risk"
)

// Stats summarizes closed trades and the account.
type Stats struct {
	Symbol       string  `json:"symbol"`
	ClosedTrades int     `json:"closed_trades"`
	WinRate      float64 `json:"win_rate"`
	AvgR         float64 `json:"avg_rr"`
	TotalPnL     float64 `json:"total_pnl"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	FinalEquity  float64 `json:"final_equity"`
}

// ComputeStats scans orders that were filled and then closed by any exit.
func ComputeStats(symbol string, orders []*model.OrderPlan, acct model.AccountState) Stats {
	s := Stats{Symbol: symbol, MaxDrawdown: acct.MaxDrawdown, FinalEquity: acct.Equity}
	wins := 0
	sumR := 0.0
	for _, o := range orders {
		if !o.Closed() {
			continue
		}
		s.ClosedTrades++
		s.TotalPnL += o.PnL
		sumR += o.R
		if o.PnL > 0 {
			wins++
		}
	}
	if s.ClosedTrades > 0 {
		s.WinRate = float64(wins) / float64(s.ClosedTrades)
		s.AvgR = sumR / float64(s.ClosedTrades)
	}
	return s
}

// Stats returns the current trade statistics.
func (a *Agent) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ComputeStats(a.symbol, a.st.Orders.All(), a.account.GetState())
}

// Orders returns copies of every order, oldest first.
func (a *Agent) Orders() []model.OrderPlan {
	a.mu.Lock()
	defer a.mu.Unlock()
	all := a.st.Orders.All()
	out := make([]model.OrderPlan, 0, len(all))
	for _, o := range all {
		out = append(out, *o)
	}
	return out
}

// OpenOrders returns copies of the non-terminal orders.
func (a *Agent) OpenOrders() []model.OrderPlan {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []model.OrderPlan
	for _, o := range a.st.Orders.Open() {
		out = append(out, *o)
	}
	return out
}

// LatestBias returns a copy of the newest bias snapshot.
func (a *Agent) LatestBias() (model.BiasSnapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b := a.st.LatestBias()
	if b == nil {
		return model.BiasSnapshot{}, false
	}
	return *b, true
}

// LatestStructure returns a copy of the newest zone.
func (a *Agent) LatestStructure() (model.StructureZone, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	z := a.st.LatestStructure()
	if z == nil {
		return model.StructureZone{}, false
	}
	return *z, true
}

// Status is a point-in-time view for operators.
type Status struct {
	Symbol     string             `json:"symbol"`
	Broker     string             `json:"broker"`
	LastBar    time.Time          `json:"last_bar"`
	LastPrice  float64            `json:"last_price"`
	Session    string             `json:"session"`
	Halted     bool               `json:"halted"`
	HaltReason string             `json:"halt_reason,omitempty"`
	OpenOrders int                `json:"open_orders"`
	Account    model.AccountState `json:"account"`
}

// Status reports the agent's current position in the stream.
func (a *Agent) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	halted, reason := a.supervisor.Halted()
	s := Status{
		Symbol:     a.symbol,
		Broker:     a.broker.Name(),
		LastBar:    a.lastBar,
		LastPrice:  a.lastPrice,
		Halted:     halted,
		HaltReason: reason,
		OpenOrders: len(a.st.Orders.Open()),
		Account:    a.account.GetState(),
	}
	if !a.lastBar.IsZero() {
		s.Session = a.cal.Label(a.lastBar)
	}
	return s
}

// Calendar returns the session calendar the supervisor uses.
func (a *Agent) Calendar() *risk.Calendar { return a.cal }
