package recorder

import (
	"time"

	"KillZoneSentinel/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordBias(_ *model.BiasSnapshot) error { return nil }

func (n *NoopRecorder) RecordStructure(_ *model.StructureZone) error { return nil }

func (n *NoopRecorder) RecordSignal(_ *model.ExecutionSignal) error { return nil }

func (n *NoopRecorder) RecordOrderEvent(_ *model.OrderPlan, _ model.OrderEvent, _ float64) error {
	return nil
}

func (n *NoopRecorder) RecordEquity(_ model.AccountState, _ time.Time) error { return nil }

func (n *NoopRecorder) RecordHalt(_ model.HaltEvent) error { return nil }

func (n *NoopRecorder) ExportCSV(_ time.Time, _ string) (string, error) { return "", nil }

func (n *NoopRecorder) Close() error { return nil }
