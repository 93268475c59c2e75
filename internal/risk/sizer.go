package risk

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"KillZoneSentinel/internal/model"
)

// PositionSize returns floor(equity × risk ÷ (stop distance × value per point)), or 0.
func PositionSize(equity, riskPerTrade, entry, stop, valuePerPoint float64) int {
	dist := math.Abs(entry - stop)
	if dist <= 0 || valuePerPoint <= 0 {
		return 0
	}
	size := math.Floor(equity * riskPerTrade / (dist * valuePerPoint))
	if size <= 0 {
		return 0
	}
	return int(size)
}

// BuildOrderPlan sizes sig against equity. It returns nil when the size rounds to zero.
func BuildOrderPlan(sig *model.ExecutionSignal, equity float64, limits Limits, now time.Time) *model.OrderPlan {
	size := PositionSize(equity, limits.RiskPerTrade, sig.Entry, sig.Stop, limits.ValuePerPoint)
	if size <= 0 {
		return nil
	}
	kind := model.KindLimit
	if sig.Entry == sig.Target {
		kind = model.KindMarket
	}
	return &model.OrderPlan{
		ID:          uuid.NewString(),
		Symbol:      sig.Symbol,
		Direction:   sig.Direction,
		Kind:        kind,
		Entry:       sig.Entry,
		Stop:        sig.Stop,
		Target:      sig.Target,
		RR:          sig.RR,
		Size:        size,
		CreatedAt:   now,
		ExpiresAt:   now.Add(limits.Expiry()),
		BiasID:      sig.BiasID,
		StructureID: sig.StructureID,
		State:       model.StateWaiting,
		Metadata: map[string]string{
			"size":   strconv.Itoa(size),
			"rr":     fmt.Sprintf("%.2f", sig.RR),
			"reason": sig.Reason,
		},
	}
}
