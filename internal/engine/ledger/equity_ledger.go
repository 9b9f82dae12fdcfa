package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/riptide-labs/riptide/internal/logger"
	"github.com/riptide-labs/riptide/internal/types"
	"github.com/riptide-labs/riptide/pkg/errors"
	"go.uber.org/zap"
)

// EquityLedger is the append-only record of every fill event and every
// equity snapshot, backed by DuckDB. It is the authoritative source for
// performance metrics. Prior records are never mutated.
type EquityLedger struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewEquityLedger opens a ledger at path (":memory:" for in-memory runs).
func NewEquityLedger(path string, log *logger.Logger) (*EquityLedger, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLedgerInitFailed, "failed to open ledger database", err)
	}

	return &EquityLedger{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the trade_events and equity_curve tables.
func (e *EquityLedger) Initialize() error {
	_, err := e.db.Exec(`
		CREATE TABLE IF NOT EXISTS trade_events (
			event_id TEXT PRIMARY KEY,
			time TIMESTAMP,
			symbol TEXT,
			event_type TEXT,
			side TEXT,
			price DOUBLE,
			qty DOUBLE,
			pnl DOUBLE,
			equity_after DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeLedgerInitFailed, "failed to create trade_events table", err)
	}

	_, err = e.db.Exec(`
		CREATE TABLE IF NOT EXISTS equity_curve (
			time TIMESTAMP,
			equity DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeLedgerInitFailed, "failed to create equity_curve table", err)
	}

	return nil
}

// AppendEvent appends one fill event. ENTER events carry a NULL pnl.
func (e *EquityLedger) AppendEvent(event types.TradeEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	var pnl any
	if event.PnL.IsSome() {
		pnl = event.PnL.Unwrap()
	}

	insert := e.sq.
		Insert("trade_events").
		Columns("event_id", "time", "symbol", "event_type", "side", "price", "qty", "pnl", "equity_after").
		Values(event.EventID, event.Time, event.Symbol, event.Type, event.Side, event.Price, event.Quantity, pnl, event.EquityAfter).
		RunWith(e.db)

	if _, err := insert.Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeLedgerWriteFailed, "failed to append trade event", err)
	}

	return nil
}

// AppendEquity appends one equity snapshot row.
func (e *EquityLedger) AppendEquity(point types.EquityPoint) error {
	insert := e.sq.
		Insert("equity_curve").
		Columns("time", "equity").
		Values(point.Time, point.Equity).
		RunWith(e.db)

	if _, err := insert.Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeLedgerWriteFailed, "failed to append equity point", err)
	}

	return nil
}

// Events returns all fill events in append order.
func (e *EquityLedger) Events() ([]types.TradeEvent, error) {
	selectQuery := e.sq.
		Select("event_id", "time", "symbol", "event_type", "side", "price", "qty", "pnl", "equity_after").
		From("trade_events").
		// rowid preserves append order for fills sharing a timestamp,
		// e.g. TP1 and TP2 firing on the same bar.
		OrderBy("time ASC, rowid ASC").
		RunWith(e.db)

	rows, err := selectQuery.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query trade events", err)
	}
	defer rows.Close()

	var events []types.TradeEvent

	for rows.Next() {
		var event types.TradeEvent

		var pnl sql.NullFloat64

		err := rows.Scan(
			&event.EventID,
			&event.Time,
			&event.Symbol,
			&event.Type,
			&event.Side,
			&event.Price,
			&event.Quantity,
			&pnl,
			&event.EquityAfter,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan trade event", err)
		}

		if pnl.Valid {
			event.PnL = optional.Some(pnl.Float64)
		} else {
			event.PnL = optional.None[float64]()
		}

		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating trade events", err)
	}

	return events, nil
}

// EventsForSymbol returns the fill events for one symbol in append order.
func (e *EquityLedger) EventsForSymbol(symbol string) ([]types.TradeEvent, error) {
	events, err := e.Events()
	if err != nil {
		return nil, err
	}

	filtered := events[:0]

	for _, event := range events {
		if event.Symbol == symbol {
			filtered = append(filtered, event)
		}
	}

	return filtered, nil
}

// EquityCurve returns all equity snapshots in time order.
func (e *EquityLedger) EquityCurve() ([]types.EquityPoint, error) {
	selectQuery := e.sq.
		Select("time", "equity").
		From("equity_curve").
		OrderBy("time ASC").
		RunWith(e.db)

	rows, err := selectQuery.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query equity curve", err)
	}
	defer rows.Close()

	var curve []types.EquityPoint

	for rows.Next() {
		var point types.EquityPoint
		if err := rows.Scan(&point.Time, &point.Equity); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan equity point", err)
		}

		curve = append(curve, point)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating equity curve", err)
	}

	return curve, nil
}

// EventCounts returns the number of recorded fills per event type.
func (e *EquityLedger) EventCounts() (map[types.EventType]int, error) {
	selectQuery := e.sq.
		Select("event_type", "COUNT(*)").
		From("trade_events").
		GroupBy("event_type").
		RunWith(e.db)

	rows, err := selectQuery.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count events", err)
	}
	defer rows.Close()

	counts := make(map[types.EventType]int)

	for rows.Next() {
		var eventType types.EventType

		var count int

		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan event count", err)
		}

		counts[eventType] = count
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating event counts", err)
	}

	return counts, nil
}

// Write exports the ledger to Parquet and CSV files in the given directory.
func (e *EquityLedger) Write(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeLedgerWriteFailed, "failed to create results directory", err)
	}

	exports := []struct {
		table  string
		file   string
		format string
	}{
		{"trade_events", "trades.parquet", "(FORMAT PARQUET)"},
		{"equity_curve", "equity_curve.parquet", "(FORMAT PARQUET)"},
		{"trade_events", "trades.csv", "(FORMAT CSV, HEADER)"},
		{"equity_curve", "equity_curve.csv", "(FORMAT CSV, HEADER)"},
	}

	for _, export := range exports {
		outPath := filepath.Join(path, export.file)

		query := fmt.Sprintf(`COPY (SELECT * FROM %s ORDER BY time) TO '%s' %s`, export.table, outPath, export.format)
		if _, err := e.db.Exec(query); err != nil {
			return errors.Wrapf(errors.ErrCodeLedgerWriteFailed, err, "failed to export %s", export.file)
		}
	}

	e.logger.Info("Exported ledger",
		zap.String("path", path),
	)

	return nil
}

// Close releases the underlying database.
func (e *EquityLedger) Close() error {
	return e.db.Close()
}
