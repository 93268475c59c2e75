// Package agent wires the analysis engines, the risk supervisor, the broker and the
// audit trail into one bar-driven pipeline.
package agent

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"KillZoneSentinel/internal/broker"
	"KillZoneSentinel/internal/metrics"
	"KillZoneSentinel/internal/model"
	"KillZoneSentinel/internal/recorder"
	"KillZoneSentinel/internal/risk"
	"KillZoneSentinel/internal/state"
	"KillZoneSentinel/internal/strategy"
)

// Observer is told about lifecycle facts after they are recorded and booked.
// Calls happen with the agent lock held; implementations must not call back into the agent.
type Observer interface {
	OnOrderEvent(o model.OrderPlan, evt model.OrderEvent, acct model.AccountState)
	OnHalt(h model.HaltEvent)
}

// Options configures an Agent. State, Broker, Account and Calendar are required.
// BaseTimeframe defaults to the execution primary timeframe.
type Options struct {
	Symbol        string
	BaseTimeframe string
	Bias          strategy.BiasConfig
	Structure     strategy.StructureConfig
	Execution     strategy.ExecutionConfig
	Limits        risk.Limits
	News          []time.Time

	State    *state.Analysis
	Broker   broker.Broker
	Account  *risk.Account
	Calendar *risk.Calendar
	Recorder recorder.Recorder
	Metrics  *metrics.Registry
}

// Agent owns the pipeline. OnBar and every accessor are serialized by one mutex.
type Agent struct {
	mu sync.Mutex

	symbol     string
	baseTF     string
	limits     risk.Limits
	st         *state.Analysis
	bias       *strategy.BiasEngine
	structure  *strategy.StructureEngine
	execution  *strategy.ExecutionEngine
	supervisor *risk.Supervisor
	account    *risk.Account
	cal        *risk.Calendar
	broker     broker.Broker
	recorder   recorder.Recorder
	metrics    *metrics.Registry
	observers  []Observer

	// last base bar; higher timeframe bars arrive after the base bar that completed them
	lastPrice float64
	lastBar   time.Time
}

// New validates opts and builds the engines.
func New(opts Options) (*Agent, error) {
	if opts.State == nil || opts.Broker == nil || opts.Account == nil || opts.Calendar == nil {
		return nil, errors.New("agent: state, broker, account and calendar are required")
	}
	if err := opts.Limits.Validate(); err != nil {
		return nil, err
	}
	structure, err := strategy.NewStructureEngine(opts.Structure)
	if err != nil {
		return nil, fmt.Errorf("structure engine: %w", err)
	}
	baseTF := opts.BaseTimeframe
	if baseTF == "" {
		baseTF = opts.Execution.PrimaryTimeframe
	}
	if _, err := model.TimeframeMinutes(baseTF); err != nil {
		return nil, fmt.Errorf("base timeframe: %w", err)
	}
	rec := opts.Recorder
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	reg := opts.Metrics
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	a := &Agent{
		symbol:     opts.Symbol,
		baseTF:     baseTF,
		limits:     opts.Limits,
		st:         opts.State,
		bias:       strategy.NewBiasEngine(opts.Bias),
		structure:  structure,
		execution:  strategy.NewExecutionEngine(opts.Execution),
		supervisor: risk.NewSupervisor(opts.Limits, opts.Calendar, opts.Account, opts.News),
		account:    opts.Account,
		cal:        opts.Calendar,
		broker:     opts.Broker,
		recorder:   rec,
		metrics:    reg,
	}
	reg.Equity.Set(opts.Account.Equity())
	return a, nil
}

// Subscribe registers an observer for order events and halts.
func (a *Agent) Subscribe(o Observer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, o)
}

// OnBar routes one timeframe-tagged bar through the engines. Bars are expected in
// timestamp order with the base bar before the higher bars it completes.
func (a *Agent) OnBar(bar model.Bar) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.metrics.Bars.WithLabelValues(bar.Timeframe).Inc()
	if bar.Timeframe == a.baseTF && !bar.Time.Before(a.lastBar) {
		a.lastPrice = bar.Close
		a.lastBar = bar.Time
	}

	if snap := a.bias.Update(a.st, bar); snap != nil {
		if err := a.onBias(snap, bar); err != nil {
			return err
		}
	}

	if zone := a.structure.Update(a.st, bar); zone != nil {
		a.metrics.Zones.Inc()
		log.Debug().Str("dir", string(zone.Direction)).Float64("low", zone.Low).Float64("high", zone.High).
			Time("expires", zone.ExpiresAt).Msg("structure zone")
		if err := a.recorder.RecordStructure(zone); err != nil {
			log.Error().Err(err).Msg("record structure")
		}
	}

	if bar.Timeframe == a.execution.Config().PrimaryTimeframe {
		return a.onExecutionBar(bar)
	}
	a.execution.Evaluate(a.st, bar)
	return nil
}

func (a *Agent) onBias(snap *model.BiasSnapshot, bar model.Bar) error {
	a.metrics.BiasSnapshots.WithLabelValues(string(snap.Direction)).Inc()
	log.Info().Str("dir", string(snap.Direction)).Float64("confidence", snap.Confidence).
		Float64("target", snap.Target).Str("session", a.cal.Label(bar.Time)).Msg("bias")
	if err := a.recorder.RecordBias(snap); err != nil {
		log.Error().Err(err).Msg("record bias")
	}
	price, at := a.lastPrice, a.lastBar
	if at.IsZero() {
		// no base bar seen yet: use the close of the completed bar
		price, at = bar.Close, bar.Time
		if d, err := model.TimeframeDuration(bar.Timeframe); err == nil {
			at = bar.Time.Add(d)
		}
	}
	events, err := a.supervisor.OnBias(a.st.Orders, a.broker, snap, price, at)
	a.handle(events)
	return err
}

func (a *Agent) onExecutionBar(bar model.Bar) error {
	events, err := a.broker.ProcessBar(bar)
	a.handle(events)
	if err != nil {
		return fmt.Errorf("process bar %s: %w", bar.Time.Format(time.RFC3339), err)
	}

	decision := a.supervisor.CanTrade(bar.Time)
	if decision.Halt != nil {
		a.onHalt(*decision.Halt)
	}
	if !decision.Allowed {
		a.metrics.Blocks.WithLabelValues(decision.Reason).Inc()
	}

	sig := a.execution.Evaluate(a.st, bar)
	if sig == nil {
		return nil
	}
	if err := a.recorder.RecordSignal(sig); err != nil {
		log.Error().Err(err).Msg("record signal")
	}
	if !decision.Allowed {
		a.metrics.Signals.WithLabelValues("blocked").Inc()
		log.Debug().Str("reason", decision.Reason).Msg("signal blocked")
		return nil
	}
	if !a.supervisor.RoomForPosition(a.st.Orders) {
		a.metrics.Signals.WithLabelValues("no_room").Inc()
		log.Debug().Int("open", len(a.st.Orders.Open())).Msg("signal skipped, position limit reached")
		return nil
	}
	plan := risk.BuildOrderPlan(sig, a.account.Equity(), a.limits, bar.Time)
	if plan == nil {
		a.metrics.Signals.WithLabelValues("zero_size").Inc()
		return nil
	}
	evt, err := a.broker.PlaceOrder(plan, bar.Time)
	if err != nil {
		return err
	}
	a.metrics.Signals.WithLabelValues("placed").Inc()
	a.handle([]model.OrderEvent{*evt})
	return nil
}

// handle records each event, then books realized P&L, then updates metrics and observers.
func (a *Agent) handle(events []model.OrderEvent) {
	for _, evt := range events {
		o := a.st.Orders.Get(evt.OrderID)
		if o == nil {
			continue
		}
		acct := a.account.GetState()
		equity := acct.Equity
		if evt.Realized {
			equity += evt.PnL
		}
		if err := a.recorder.RecordOrderEvent(o, evt, equity); err != nil {
			log.Error().Err(err).Str("id", o.ID).Msg("record order event")
		}
		if evt.Realized {
			acct = a.account.ApplyClosedTrade(evt.PnL, evt.Time)
			if err := a.recorder.RecordEquity(acct, evt.Time); err != nil {
				log.Error().Err(err).Msg("record equity")
			}
			a.metrics.TradeR.Observe(evt.R)
			a.metrics.Equity.Set(acct.Equity)
			a.metrics.Drawdown.Set(acct.CurrentDrawdown())
		}
		a.metrics.OrderEvents.WithLabelValues(string(evt.Kind)).Inc()
		a.metrics.OpenOrders.Set(float64(len(a.st.Orders.Open())))
		for _, obs := range a.observers {
			obs.OnOrderEvent(*o, evt, acct)
		}
	}
}

func (a *Agent) onHalt(h model.HaltEvent) {
	a.metrics.Halts.WithLabelValues(h.Reason).Inc()
	if err := a.recorder.RecordHalt(h); err != nil {
		log.Error().Err(err).Msg("record halt")
	}
	for _, obs := range a.observers {
		obs.OnHalt(h)
	}
}
