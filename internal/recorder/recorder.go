package recorder

import (
	"time"

	"KillZoneSentinel/internal/model"
)

// Recorder persists the audit trail: analysis records, order lifecycle, equity and halts.
type Recorder interface {
	RecordBias(b *model.BiasSnapshot) error
	RecordStructure(z *model.StructureZone) error
	RecordSignal(s *model.ExecutionSignal) error
	// RecordOrderEvent appends evt and upserts the order row with o's current state.
	RecordOrderEvent(o *model.OrderPlan, evt model.OrderEvent, equity float64) error
	RecordEquity(acct model.AccountState, at time.Time) error
	RecordHalt(h model.HaltEvent) error
	// ExportCSV writes the order events of day (in day's location) into dir and returns the file path.
	ExportCSV(day time.Time, dir string) (string, error)
	Close() error
}
