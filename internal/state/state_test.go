package state

import (
	"errors"
	"testing"
	"time"

	"KillZoneSentinel/internal/model"
)

func TestAnalysis_MonotonicIDsAndRetention(t *testing.T) {
	a := NewWithLimits(3, 2, 2)
	for i := 0; i < 5; i++ {
		a.PushBias(&model.BiasSnapshot{Direction: model.Long})
	}
	if got := a.LatestBias().ID; got != 5 {
		t.Fatalf("latest bias id = %d, want 5", got)
	}
	hist := a.BiasHistory()
	if len(hist) != 3 || hist[0].ID != 3 {
		t.Fatalf("unexpected retention: %d records, first id %d", len(hist), hist[0].ID)
	}
}

func TestAnalysis_ActiveStructure(t *testing.T) {
	a := New()
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	if a.ActiveStructure(now) != nil {
		t.Fatal("expected no zone")
	}
	a.PushStructure(&model.StructureZone{Low: 1, High: 2, ExpiresAt: now.Add(time.Hour)})
	z := a.PushStructure(&model.StructureZone{Low: 3, High: 4, ExpiresAt: now.Add(time.Minute)})
	if a.ActiveStructure(now) != z {
		t.Fatal("latest zone should win")
	}
	if a.ActiveStructure(now.Add(time.Minute)) != nil {
		t.Fatal("zone must be inactive at its expiry")
	}
	if len(a.StructureHistory()) != 2 {
		t.Fatal("older zones are kept for audit")
	}
}

func TestBook_TransitionsAndUnknownOrder(t *testing.T) {
	b := NewBook()
	for _, id := range []string{"a", "b", "c"} {
		if err := b.Register(&model.OrderPlan{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.Register(&model.OrderPlan{ID: "a"}); err == nil {
		t.Fatal("duplicate id accepted")
	}

	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	if _, err := b.Transition("b", model.StateFilled, model.OrderEvent{Kind: model.EventFilled, Time: now, Price: 10}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Transition("c", model.StateExpired, model.OrderEvent{Kind: model.EventExpired, Reason: model.ReasonExpiry}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Transition("c", model.StateFilled, model.OrderEvent{Kind: model.EventFilled}); !errors.Is(err, model.ErrIllegalTransition) {
		t.Fatalf("expected illegal transition, got %v", err)
	}
	if _, err := b.Transition("zzz", model.StateFilled, model.OrderEvent{}); !errors.Is(err, ErrUnknownOrder) {
		t.Fatalf("expected unknown order, got %v", err)
	}

	open := b.Open()
	if len(open) != 2 || open[0].ID != "a" || open[1].ID != "b" {
		t.Fatalf("open orders out of creation order: %+v", open)
	}
	if b.InPosition() != 1 {
		t.Fatalf("in position = %d, want 1", b.InPosition())
	}
	n, err := b.IncrementBarsHeld("b")
	if err != nil || n != 1 || b.Get("b").Metadata["bars_in_trade"] != "1" {
		t.Fatalf("bars held = %d, err %v", n, err)
	}
}
