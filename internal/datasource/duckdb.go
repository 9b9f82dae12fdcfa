// Package datasource loads bar history into memory. The CSV reader is
// backed by DuckDB so column typing, timestamp parsing and ordering are
// handled by the database rather than hand-rolled parsing.
package datasource

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/riptide-labs/riptide/internal/logger"
	"github.com/riptide-labs/riptide/internal/types"
	"github.com/riptide-labs/riptide/pkg/errors"
	"go.uber.org/zap"
)

// CSVSource reads OHLCV bar files named {SYMBOL}.csv with columns
// time, open, high, low, close, volume.
type CSVSource struct {
	db      *sql.DB
	log     *logger.Logger
	dataDir string
}

// NewCSVSource opens a CSV source over the given data directory.
func NewCSVSource(dataDir string, log *logger.Logger) (*CSVSource, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataLoadFailed, "failed to open duckdb", err)
	}

	return &CSVSource{
		db:      db,
		log:     log,
		dataDir: dataDir,
	}, nil
}

// ReadBars loads the full bar history for one symbol, sorted by time.
func (s *CSVSource) ReadBars(symbol string) ([]types.Bar, error) {
	path := filepath.Join(s.dataDir, symbol+".csv")

	query := fmt.Sprintf(`
		SELECT time, open, high, low, close, volume
		FROM read_csv_auto('%s')
		ORDER BY time ASC
	`, path)

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataLoadFailed, err, "failed to read bars for %s", symbol)
	}
	defer rows.Close()

	var bars []types.Bar

	for rows.Next() {
		var bar types.Bar
		if err := rows.Scan(&bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeDataLoadFailed, err, "failed to scan bar for %s", symbol)
		}

		bars = append(bars, bar)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataLoadFailed, err, "error iterating bars for %s", symbol)
	}

	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no bars found for %s in %s", symbol, path)
	}

	s.log.Debug("Loaded bar history",
		zap.String("symbol", symbol),
		zap.Int("bars", len(bars)),
	)

	return bars, nil
}

// ReadAll loads the bar history of every symbol.
func (s *CSVSource) ReadAll(symbols []string) (map[string][]types.Bar, error) {
	if len(symbols) == 0 {
		return nil, errors.New(errors.ErrCodeNoSymbols, "no symbols configured")
	}

	out := make(map[string][]types.Bar, len(symbols))

	for _, sym := range symbols {
		bars, err := s.ReadBars(sym)
		if err != nil {
			return nil, err
		}

		out[sym] = bars
	}

	return out, nil
}

// Close releases the underlying database.
func (s *CSVSource) Close() error {
	return s.db.Close()
}
