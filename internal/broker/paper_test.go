package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KillZoneSentinel/internal/model"
	"KillZoneSentinel/internal/state"
)

var t0 = time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)

func bar(min int, o, h, l, c float64) model.Bar {
	return model.Bar{Symbol: "XAUUSD", Timeframe: "1m", Time: t0.Add(time.Duration(min) * time.Minute), Open: o, High: h, Low: l, Close: c}
}

func longPlan(id string) *model.OrderPlan {
	return &model.OrderPlan{
		ID: id, Symbol: "XAUUSD", Direction: model.Long, Kind: model.KindLimit,
		Entry: 2400, Stop: 2395, Target: 2410, RR: 2, Size: 400,
		CreatedAt: t0, ExpiresAt: t0.Add(30 * time.Minute),
	}
}

func newPaper(t *testing.T, plans ...*model.OrderPlan) (*PaperBroker, *state.Book) {
	t.Helper()
	book := state.NewBook()
	b := NewPaperBroker(book, 20, 1)
	for _, p := range plans {
		evt, err := b.PlaceOrder(p, t0)
		require.NoError(t, err)
		require.Equal(t, model.EventPlaced, evt.Kind)
	}
	return b, book
}

func process(t *testing.T, b *PaperBroker, bars ...model.Bar) []model.OrderEvent {
	t.Helper()
	var all []model.OrderEvent
	for _, br := range bars {
		evts, err := b.ProcessBar(br)
		require.NoError(t, err)
		all = append(all, evts...)
	}
	return all
}

func TestPaperBroker_StopLossScenario(t *testing.T) {
	b, book := newPaper(t, longPlan("o1"))
	evts := process(t, b,
		bar(1, 2401, 2402, 2399, 2400),
		bar(2, 2400, 2400.5, 2394, 2396),
	)
	require.Len(t, evts, 2)
	assert.Equal(t, model.EventFilled, evts[0].Kind)
	sl := evts[1]
	assert.Equal(t, model.EventSLHit, sl.Kind)
	assert.Equal(t, 2395.0, sl.Price)
	assert.InDelta(t, -2000, sl.PnL, 1e-9)
	assert.InDelta(t, -1.0, sl.R, 1e-9)
	assert.True(t, sl.Realized)

	o := book.Get("o1")
	assert.Equal(t, model.StateExit, o.State)
	assert.Equal(t, model.ReasonStopLoss, o.ExitReason)
	assert.True(t, o.Closed())
}

func TestPaperBroker_TargetMeetsRR(t *testing.T) {
	b, _ := newPaper(t, longPlan("o1"))
	evts := process(t, b,
		bar(1, 2401, 2402, 2399, 2400),
		bar(2, 2400, 2411, 2399, 2410.5),
	)
	require.Len(t, evts, 2)
	assert.Equal(t, model.EventTPHit, evts[1].Kind)
	assert.GreaterOrEqual(t, evts[1].R, 2.0-1e-9)
}

func TestPaperBroker_StopBeforeTargetOnSameBar(t *testing.T) {
	b, _ := newPaper(t, longPlan("o1"))
	evts := process(t, b,
		bar(1, 2401, 2402, 2399, 2400),
		bar(2, 2400, 2412, 2390, 2405),
	)
	require.Len(t, evts, 2)
	assert.Equal(t, model.EventSLHit, evts[1].Kind)
}

func TestPaperBroker_FillBarSkipsExitChecks(t *testing.T) {
	b, book := newPaper(t, longPlan("o1"))
	evts := process(t, b, bar(1, 2401, 2402, 2390, 2391))
	require.Len(t, evts, 1)
	assert.Equal(t, model.EventFilled, evts[0].Kind)
	assert.Equal(t, model.StateFilled, book.Get("o1").State)
}

func TestPaperBroker_TimeStop(t *testing.T) {
	book := state.NewBook()
	b := NewPaperBroker(book, 3, 1)
	_, err := b.PlaceOrder(longPlan("o1"), t0)
	require.NoError(t, err)

	evts := process(t, b,
		bar(1, 2401, 2402, 2399, 2400),
		bar(2, 2400, 2402, 2398, 2401),
		bar(3, 2401, 2403, 2399, 2402),
		bar(4, 2402, 2403, 2400, 2402.5),
	)
	require.Len(t, evts, 2)
	ts := evts[1]
	assert.Equal(t, model.EventTimeStop, ts.Kind)
	assert.Equal(t, 2402.5, ts.Price)
	assert.InDelta(t, 1000, ts.PnL, 1e-9)
	assert.Equal(t, "3", book.Get("o1").Metadata["bars_in_trade"])
}

func TestPaperBroker_ExpiryBeatsFill(t *testing.T) {
	b, book := newPaper(t, longPlan("o1"))
	evts := process(t, b, bar(30, 2401, 2402, 2399, 2400))
	require.Len(t, evts, 1)
	assert.Equal(t, model.EventExpired, evts[0].Kind)
	assert.Equal(t, model.ReasonExpiry, evts[0].Reason)
	assert.False(t, book.Get("o1").Closed())
}

func TestPaperBroker_ShortStop(t *testing.T) {
	plan := &model.OrderPlan{ID: "s1", Direction: model.Short, Entry: 100, Stop: 102, Target: 96, Size: 10, ExpiresAt: t0.Add(time.Hour)}
	b, _ := newPaper(t, plan)
	evts := process(t, b,
		bar(1, 99.5, 100.2, 99, 99.8),
		bar(2, 99.8, 102.5, 99.7, 102.2),
	)
	require.Len(t, evts, 2)
	assert.Equal(t, model.EventSLHit, evts[1].Kind)
	assert.InDelta(t, -20, evts[1].PnL, 1e-9)
	assert.LessOrEqual(t, evts[1].R, 0.0)
}

func TestPaperBroker_MonotoneTransitions(t *testing.T) {
	b, book := newPaper(t, longPlan("o1"), longPlan("o2"))
	bars := []model.Bar{
		bar(1, 2401, 2402, 2399, 2400),
		bar(2, 2400, 2401, 2398, 2399),
		bar(3, 2399, 2400, 2394, 2395),
		bar(4, 2395, 2420, 2390, 2415),
	}
	seen := map[string][]model.OrderState{}
	for _, br := range bars {
		_, err := b.ProcessBar(br)
		require.NoError(t, err)
		for _, o := range book.All() {
			hist := seen[o.ID]
			if len(hist) == 0 || hist[len(hist)-1] != o.State {
				seen[o.ID] = append(hist, o.State)
			}
		}
	}
	for id, hist := range seen {
		for i := 1; i < len(hist); i++ {
			assert.True(t, hist[i-1].CanTransition(hist[i]), "%s: %s -> %s", id, hist[i-1], hist[i])
		}
		assert.True(t, hist[len(hist)-1].Terminal(), "%s should have closed", id)
	}
}

func TestPaperBroker_CancelOrder(t *testing.T) {
	b, book := newPaper(t, longPlan("w"), longPlan("f"))
	book.Get("w").Entry = 2300
	process(t, b, bar(1, 2401, 2402, 2399, 2400))
	require.Equal(t, model.StateFilled, book.Get("f").State)

	evt, err := b.CancelOrder("w", t0.Add(2*time.Minute), model.ReasonBiasFlip, 2401)
	require.NoError(t, err)
	assert.False(t, evt.Realized)
	assert.False(t, book.Get("w").Closed())

	evt, err = b.CancelOrder("f", t0.Add(2*time.Minute), model.ReasonBiasFlip, 2398)
	require.NoError(t, err)
	assert.True(t, evt.Realized)
	assert.InDelta(t, -800, evt.PnL, 1e-9)
	assert.True(t, book.Get("f").Closed())

	evt, err = b.CancelOrder("f", t0.Add(3*time.Minute), model.ReasonBiasFlip, 2398)
	assert.NoError(t, err)
	assert.Nil(t, evt)

	_, err = b.CancelOrder("missing", t0, model.ReasonBiasFlip, 0)
	assert.ErrorIs(t, err, state.ErrUnknownOrder)
}

func TestLoggingBroker(t *testing.T) {
	book := state.NewBook()
	b := NewLoggingBroker(book)
	_, err := b.PlaceOrder(longPlan("o1"), t0)
	require.NoError(t, err)
	evts, err := b.ProcessBar(bar(1, 2401, 2402, 2399, 2400))
	require.NoError(t, err)
	assert.Empty(t, evts)
	assert.Equal(t, model.StateWaiting, book.Get("o1").State)

	evt, err := b.CancelOrder("o1", t0, model.ReasonBiasFlip, 2400)
	require.NoError(t, err)
	assert.Equal(t, model.EventCancelled, evt.Kind)
	assert.Equal(t, model.StateCancelled, book.Get("o1").State)
}
