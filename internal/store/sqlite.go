package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"backtester/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RunStore = (*SQLiteStore)(nil)

// SQLiteStore implements RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS backtest_runs (
	id               TEXT PRIMARY KEY,
	ticker           TEXT NOT NULL,
	start_date       INTEGER NOT NULL,
	end_date         INTEGER NOT NULL,
	strategy         TEXT NOT NULL,
	starting_capital REAL NOT NULL,
	interval         TEXT NOT NULL,
	total_return_pct REAL NOT NULL,
	cagr_pct         REAL,
	sharpe           REAL,
	max_drawdown_pct REAL NOT NULL,
	trade_count      INTEGER NOT NULL,
	winrate_pct      REAL,
	created_at       INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS backtest_trades (
	run_id      TEXT NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	entry_time  INTEGER NOT NULL,
	exit_time   INTEGER NOT NULL,
	entry_price REAL NOT NULL,
	exit_price  REAL NOT NULL,
	size        REAL NOT NULL,
	pnl         REAL NOT NULL,
	return_pct  REAL NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS equity_points (
	run_id    TEXT NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
	seq       INTEGER NOT NULL,
	timestamp INTEGER NOT NULL,
	equity    REAL NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON backtest_runs(created_at DESC);
`

func migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// SaveRun inserts the run record, its trades, and its equity curve in one
// transaction. Any failure rolls back all rows.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *domain.Run, trades []domain.Trade, equity []domain.EquityPoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO backtest_runs (
			id, ticker, start_date, end_date, strategy, starting_capital,
			interval, total_return_pct, cagr_pct, sharpe, max_drawdown_pct,
			trade_count, winrate_pct, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Ticker, run.StartDate.UnixMilli(), run.EndDate.UnixMilli(),
		run.Strategy, run.StartingCapital, run.Interval,
		run.TotalReturnPct, nullFloat(run.CAGRPct), nullFloat(run.Sharpe),
		run.MaxDrawdownPct, run.TradeCount, nullFloat(run.WinRatePct),
		run.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	for i, t := range trades {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO backtest_trades (
				run_id, seq, entry_time, exit_time, entry_price,
				exit_price, size, pnl, return_pct
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, t.EntryTime.UnixMilli(), t.ExitTime.UnixMilli(),
			t.EntryPrice, t.ExitPrice, t.Size, t.PnL, t.ReturnPct,
		)
		if err != nil {
			return fmt.Errorf("inserting trade %d for run %s: %w", i, run.ID, err)
		}
	}

	for i, p := range equity {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO equity_points (run_id, seq, timestamp, equity)
			VALUES (?, ?, ?, ?)`,
			run.ID, i, p.Timestamp.UnixMilli(), p.Equity,
		)
		if err != nil {
			return fmt.Errorf("inserting equity point %d for run %s: %w", i, run.ID, err)
		}
	}

	return tx.Commit()
}

// GetRun retrieves a single run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, ticker, start_date, end_date, strategy, starting_capital,
		       interval, total_return_pct, cagr_pct, sharpe, max_drawdown_pct,
		       trade_count, winrate_pct, created_at
		FROM backtest_runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns runs ordered newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	q := `
		SELECT id, ticker, start_date, end_date, strategy, starting_capital,
		       interval, total_return_pct, cagr_pct, sharpe, max_drawdown_pct,
		       trade_count, winrate_pct, created_at
		FROM backtest_runs ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// TradesForRun returns the trades of a run in entry-time order.
func (s *SQLiteStore) TradesForRun(ctx context.Context, runID string) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_time, exit_time, entry_price, exit_price, size, pnl, return_pct
		FROM backtest_trades WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var entryMs, exitMs int64
		if err := rows.Scan(&entryMs, &exitMs, &t.EntryPrice, &t.ExitPrice, &t.Size, &t.PnL, &t.ReturnPct); err != nil {
			return nil, err
		}
		t.EntryTime = time.UnixMilli(entryMs).UTC()
		t.ExitTime = time.UnixMilli(exitMs).UTC()
		t.Duration = t.ExitTime.Sub(t.EntryTime)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// EquityForRun returns the equity curve of a run in timestamp order.
func (s *SQLiteStore) EquityForRun(ctx context.Context, runID string) ([]domain.EquityPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, equity
		FROM equity_points WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []domain.EquityPoint
	for rows.Next() {
		var p domain.EquityPoint
		var ms int64
		if err := rows.Scan(&ms, &p.Equity); err != nil {
			return nil, err
		}
		p.Timestamp = time.UnixMilli(ms).UTC()
		points = append(points, p)
	}
	return points, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*domain.Run, error) {
	var run domain.Run
	var startMs, endMs, createdMs int64
	var cagr, sharpe, winrate sql.NullFloat64
	err := sc.Scan(
		&run.ID, &run.Ticker, &startMs, &endMs, &run.Strategy,
		&run.StartingCapital, &run.Interval, &run.TotalReturnPct,
		&cagr, &sharpe, &run.MaxDrawdownPct, &run.TradeCount,
		&winrate, &createdMs,
	)
	if err != nil {
		return nil, err
	}
	run.StartDate = time.UnixMilli(startMs).UTC()
	run.EndDate = time.UnixMilli(endMs).UTC()
	run.CreatedAt = time.UnixMilli(createdMs).UTC()
	run.CAGRPct = fromNullFloat(cagr)
	run.Sharpe = fromNullFloat(sharpe)
	run.WinRatePct = fromNullFloat(winrate)
	return &run, nil
}

func nullFloat(f domain.Float) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f.Value, Valid: f.Valid}
}

func fromNullFloat(f sql.NullFloat64) domain.Float {
	return domain.Float{Value: f.Float64, Valid: f.Valid}
}
