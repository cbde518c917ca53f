// Package source fetches series from columnar stores for detection runs.
package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/Sumatoshi-tech/spikefang/pkg/timeseries"
)

// DriverName is the database/sql driver registered by the duckdb import.
const DriverName = "duckdb"

// Source errors.
var (
	// ErrNoRows reports a query that returned no observations.
	ErrNoRows = errors.New("query returned no rows")

	// ErrNotNumeric reports a value column that cannot be read as a number.
	ErrNotNumeric = errors.New("value column is not numeric")
)

// DuckDB reads series out of a DuckDB database file.
type DuckDB struct {
	db *sql.DB
}

// OpenDuckDB opens the database at path. An empty path opens an in-memory
// database.
func OpenDuckDB(path string) (*DuckDB, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	return &DuckDB{db: db}, nil
}

// Close releases the underlying database handle.
func (d *DuckDB) Close() error {
	return d.db.Close()
}

// Query runs the given SQL and builds a series from the last column of its
// result, one observation per row. Leading columns (timestamps, labels)
// are ignored, so SELECT ts, value layouts work unchanged.
func (d *DuckDB) Query(ctx context.Context, name, query string, args ...any) (*timeseries.Series, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query duckdb: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	series := &timeseries.Series{Name: name}
	holders := make([]any, len(columns))

	for i := range holders {
		holders[i] = new(any)
	}

	for rows.Next() {
		if err := rows.Scan(holders...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		value, err := toFloat(*holders[len(holders)-1].(*any))
		if err != nil {
			return nil, err
		}

		series.Values = append(series.Values, value)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	if len(series.Values) == 0 {
		return nil, ErrNoRows
	}

	return series, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrNotNumeric, v)
	}
}
