package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderState_TransitionTable(t *testing.T) {
	all := []OrderState{StateWaiting, StateFilled, StateManaging, StateExit, StateCancelled, StateExpired}
	legal := map[OrderState]map[OrderState]bool{
		StateWaiting:  {StateFilled: true, StateExpired: true, StateCancelled: true},
		StateFilled:   {StateManaging: true, StateExit: true, StateCancelled: true},
		StateManaging: {StateExit: true, StateCancelled: true},
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, legal[from][to], from.CanTransition(to), "%s -> %s", from, to)
		}
	}
	for _, s := range []OrderState{StateExit, StateCancelled, StateExpired} {
		assert.True(t, s.Terminal(), "%s should be terminal", s)
	}
}

func TestOrderPlan_ApplyRejectsLeavingTerminal(t *testing.T) {
	now := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	o := &OrderPlan{ID: "o1", State: StateWaiting, Entry: 100, Stop: 99}

	require.NoError(t, o.Apply(StateFilled, OrderEvent{Kind: EventFilled, Time: now, Price: 100}))
	assert.Equal(t, "0", o.Metadata["bars_in_trade"])
	require.NoError(t, o.Apply(StateManaging, OrderEvent{}))
	require.NoError(t, o.Apply(StateExit, OrderEvent{Kind: EventTPHit, Time: now.Add(time.Minute), Price: 102, PnL: 20, R: 2, Reason: ReasonTarget, Realized: true}))
	assert.True(t, o.Closed())
	assert.Equal(t, 102.0, o.ExitPrice)

	err := o.Apply(StateManaging, OrderEvent{})
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, StateExit, o.State)
}

func TestOrderPlan_CancelledWaitingIsNotClosed(t *testing.T) {
	o := &OrderPlan{ID: "o2", State: StateWaiting}
	require.NoError(t, o.Apply(StateCancelled, OrderEvent{Kind: EventCancelled, Reason: ReasonBiasFlip}))
	assert.False(t, o.Closed())
	assert.Equal(t, ReasonBiasFlip, o.ExitReason)
}

func TestTimeframeMinutes(t *testing.T) {
	m, err := TimeframeMinutes("4h")
	require.NoError(t, err)
	assert.Equal(t, 240, m)

	_, err = TimeframeMinutes("2m")
	assert.ErrorIs(t, err, ErrUnsupportedTimeframe)
}

func TestFloorTime(t *testing.T) {
	ts := time.Date(2024, 3, 4, 10, 47, 30, 0, time.UTC)
	got, err := FloorTime(ts, "15m")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 10, 45, 0, 0, time.UTC), got)

	got, err = FloorTime(ts, "4h")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC), got)
}

func TestBarValidate(t *testing.T) {
	ok := Bar{Open: 10, High: 12, Low: 9, Close: 11}
	assert.NoError(t, ok.Validate())
	bad := Bar{Open: 10, High: 10.5, Low: 9, Close: 11}
	assert.Error(t, bad.Validate())
}
