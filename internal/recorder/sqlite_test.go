package recorder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KillZoneSentinel/internal/model"
)

func TestSQLiteRecorder_OrderLifecycleAndExport(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewSQLiteRecorder(filepath.Join(dir, "db", "trades.sqlite"))
	require.NoError(t, err)
	defer rec.Close()

	now := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	require.NoError(t, rec.RecordBias(&model.BiasSnapshot{ID: 1, Time: now, Direction: model.Long}))
	require.NoError(t, rec.RecordStructure(&model.StructureZone{ID: 1, Time: now, Low: 1, High: 2, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, rec.RecordSignal(&model.ExecutionSignal{ID: 1, Time: now, Entry: 2400}))

	o := &model.OrderPlan{ID: "o1", Symbol: "XAUUSD", Direction: model.Long, Kind: model.KindLimit,
		Entry: 2400, Stop: 2395, Target: 2410, RR: 2, Size: 400, CreatedAt: now, State: model.StateWaiting}
	require.NoError(t, rec.RecordOrderEvent(o, model.OrderEvent{OrderID: "o1", Time: now, Kind: model.EventPlaced, Price: 2400}, 100000))

	o.State, o.FilledAt, o.FillPrice = model.StateFilled, now.Add(time.Minute), 2400
	require.NoError(t, rec.RecordOrderEvent(o, model.OrderEvent{OrderID: "o1", Time: now.Add(time.Minute), Kind: model.EventFilled, Price: 2400}, 100000))

	o.State, o.ClosedAt, o.ExitPrice, o.PnL, o.R = model.StateExit, now.Add(2*time.Minute), 2395, -2000, -1
	evt := model.OrderEvent{OrderID: "o1", Time: now.Add(2 * time.Minute), Kind: model.EventSLHit, Price: 2395, PnL: -2000, R: -1, Reason: model.ReasonStopLoss, Realized: true}
	require.NoError(t, rec.RecordOrderEvent(o, evt, 98000))
	require.NoError(t, rec.RecordHalt(model.HaltEvent{Time: now, Reason: "daily_drawdown"}))
	require.NoError(t, rec.RecordEquity(model.AccountState{Equity: 98000, MaxEquity: 100000}, now))

	var status string
	var pnl float64
	require.NoError(t, rec.db.QueryRow(`SELECT status, pnl FROM orders WHERE order_id = 'o1'`).Scan(&status, &pnl))
	assert.Equal(t, "EXIT", status)
	assert.Equal(t, -2000.0, pnl)

	path, err := rec.ExportCSV(now, filepath.Join(dir, "exports"))
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "timestamp,order_id,action"))
	assert.Contains(t, lines[3], "SL_HIT")
	assert.Contains(t, lines[3], "-2000")

	// a second close on the same bar keeps its own equity row
	require.NoError(t, rec.RecordEquity(model.AccountState{Equity: 97000, MaxEquity: 100000}, now))
	var rows int
	require.NoError(t, rec.db.QueryRow(`SELECT COUNT(*) FROM equity WHERE timestamp = ?`, now.Unix()).Scan(&rows))
	assert.Equal(t, 2, rows)
	var last float64
	require.NoError(t, rec.db.QueryRow(`SELECT equity FROM equity ORDER BY id DESC LIMIT 1`).Scan(&last))
	assert.Equal(t, 97000.0, last)

	// another day has nothing
	path, err = rec.ExportCSV(now.AddDate(0, 0, 1), filepath.Join(dir, "exports"))
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))
}
