package recorder

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"KillZoneSentinel/internal/model"
)

// SQLiteRecorder persists the audit trail to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so the status server can read while the agent writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bias_snapshots (
			id           INTEGER PRIMARY KEY,
			timestamp    INTEGER NOT NULL,
			symbol       TEXT,
			timeframe    TEXT,
			direction    TEXT,
			confidence   REAL,
			target       REAL,
			invalidation REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bias_ts ON bias_snapshots(timestamp)`,

		`CREATE TABLE IF NOT EXISTS structure_zones (
			id         INTEGER PRIMARY KEY,
			timestamp  INTEGER NOT NULL,
			symbol     TEXT,
			timeframe  TEXT,
			direction  TEXT,
			low        REAL,
			high       REAL,
			expires_at INTEGER
		)`,

		`CREATE TABLE IF NOT EXISTS execution_signals (
			id           INTEGER PRIMARY KEY,
			timestamp    INTEGER NOT NULL,
			symbol       TEXT,
			timeframe    TEXT,
			direction    TEXT,
			entry        REAL,
			stop         REAL,
			target       REAL,
			rr           REAL,
			bias_id      INTEGER,
			structure_id INTEGER,
			reason       TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS orders (
			order_id     TEXT PRIMARY KEY,
			symbol       TEXT,
			direction    TEXT,
			kind         TEXT,
			size         INTEGER,
			rr           REAL,
			entry        REAL,
			stop         REAL,
			target       REAL,
			created_at   INTEGER,
			expires_at   INTEGER,
			filled_at    INTEGER,
			fill_price   REAL,
			exit_at      INTEGER,
			exit_price   REAL,
			status       TEXT,
			exit_reason  TEXT,
			pnl          REAL,
			pnl_r        REAL,
			bias_id      INTEGER,
			structure_id INTEGER,
			metadata     TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS order_events (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			order_id  TEXT,
			action    TEXT,
			price     REAL,
			rr        REAL,
			pnl       REAL,
			pnl_r     REAL,
			reason    TEXT,
			equity    REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_ts ON order_events(timestamp)`,

		`CREATE TABLE IF NOT EXISTS equity (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			equity       REAL,
			daily_pnl    REAL,
			weekly_pnl   REAL,
			drawdown     REAL,
			max_drawdown REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_equity_ts ON equity(timestamp)`,

		`CREATE TABLE IF NOT EXISTS halts (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			reason    TEXT
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func unix(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Unix()
}

func (r *SQLiteRecorder) RecordBias(b *model.BiasSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT OR REPLACE INTO bias_snapshots
		(id, timestamp, symbol, timeframe, direction, confidence, target, invalidation)
		VALUES (?,?,?,?,?,?,?,?)`,
		b.ID, b.Time.Unix(), b.Symbol, b.Timeframe, string(b.Direction), b.Confidence, b.Target, b.Invalidation,
	)
	return err
}

func (r *SQLiteRecorder) RecordStructure(z *model.StructureZone) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT OR REPLACE INTO structure_zones
		(id, timestamp, symbol, timeframe, direction, low, high, expires_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		z.ID, z.Time.Unix(), z.Symbol, z.Timeframe, string(z.Direction), z.Low, z.High, z.ExpiresAt.Unix(),
	)
	return err
}

func (r *SQLiteRecorder) RecordSignal(s *model.ExecutionSignal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT OR REPLACE INTO execution_signals
		(id, timestamp, symbol, timeframe, direction, entry, stop, target, rr, bias_id, structure_id, reason)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.Time.Unix(), s.Symbol, s.Timeframe, string(s.Direction),
		s.Entry, s.Stop, s.Target, s.RR, s.BiasID, s.StructureID, s.Reason,
	)
	return err
}

func (r *SQLiteRecorder) RecordOrderEvent(o *model.OrderPlan, evt model.OrderEvent, equity float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta, err := json.Marshal(o.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO orders
		(order_id, symbol, direction, kind, size, rr, entry, stop, target, created_at, expires_at,
		 filled_at, fill_price, exit_at, exit_price, status, exit_reason, pnl, pnl_r, bias_id, structure_id, metadata)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(order_id) DO UPDATE SET
			filled_at = excluded.filled_at, fill_price = excluded.fill_price,
			exit_at = excluded.exit_at, exit_price = excluded.exit_price,
			status = excluded.status, exit_reason = excluded.exit_reason,
			pnl = excluded.pnl, pnl_r = excluded.pnl_r, metadata = excluded.metadata`,
		o.ID, o.Symbol, string(o.Direction), string(o.Kind), o.Size, o.RR, o.Entry, o.Stop, o.Target,
		unix(o.CreatedAt), unix(o.ExpiresAt), unix(o.FilledAt), o.FillPrice, unix(o.ClosedAt), o.ExitPrice,
		string(o.State), o.ExitReason, o.PnL, o.R, o.BiasID, o.StructureID, string(meta),
	); err != nil {
		return fmt.Errorf("upsert order: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO order_events
		(timestamp, order_id, action, price, rr, pnl, pnl_r, reason, equity)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		evt.Time.Unix(), evt.OrderID, string(evt.Kind), evt.Price, o.RR, evt.PnL, evt.R, evt.Reason, equity,
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordEquity(acct model.AccountState, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO equity
		(timestamp, equity, daily_pnl, weekly_pnl, drawdown, max_drawdown)
		VALUES (?,?,?,?,?,?)`,
		at.Unix(), acct.Equity, acct.DailyPnL, acct.WeeklyPnL, acct.CurrentDrawdown(), acct.MaxDrawdown,
	)
	return err
}

func (r *SQLiteRecorder) RecordHalt(h model.HaltEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO halts (timestamp, reason) VALUES (?,?)`, h.Time.Unix(), h.Reason)
	return err
}

// ExportCSV writes one row per order event of the day.
func (r *SQLiteRecorder) ExportCSV(day time.Time, dir string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	rows, err := r.db.Query(`SELECT timestamp, order_id, action, price, rr, pnl, pnl_r, reason, equity
		FROM order_events WHERE timestamp >= ? AND timestamp < ? ORDER BY id`, start.Unix(), end.Unix())
	if err != nil {
		return "", fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("events-%s.csv", start.Format("20060102")))
	fh, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer fh.Close()

	w := csv.NewWriter(fh)
	if err := w.Write([]string{"timestamp", "order_id", "action", "price", "rr", "pnl", "pnl_r", "reason", "equity"}); err != nil {
		return "", err
	}
	for rows.Next() {
		var (
			ts                          int64
			id, action, reason          string
			price, rr, pnl, pnlR, equit float64
		)
		if err := rows.Scan(&ts, &id, &action, &price, &rr, &pnl, &pnlR, &reason, &equit); err != nil {
			return "", fmt.Errorf("scan event: %w", err)
		}
		f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
		if err := w.Write([]string{
			time.Unix(ts, 0).In(day.Location()).Format(time.RFC3339), id, action,
			f(price), f(rr), f(pnl), f(pnlR), reason, f(equit),
		}); err != nil {
			return "", err
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	w.Flush()
	return path, w.Error()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
