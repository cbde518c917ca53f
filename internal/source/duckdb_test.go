package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *DuckDB {
	t.Helper()

	db, err := OpenDuckDB("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestQueryLastColumn(t *testing.T) {
	t.Parallel()

	db := openMemory(t)
	ctx := context.Background()

	_, err := db.db.ExecContext(ctx, `CREATE TABLE metrics (ts INTEGER, clicks DOUBLE)`)
	require.NoError(t, err)

	_, err = db.db.ExecContext(ctx, `INSERT INTO metrics VALUES (1, 10.5), (2, 20.5), (3, 30.5)`)
	require.NoError(t, err)

	series, err := db.Query(ctx, "clicks", `SELECT ts, clicks FROM metrics ORDER BY ts`)

	require.NoError(t, err)
	assert.Equal(t, "clicks", series.Name)
	assert.Equal(t, []float64{10.5, 20.5, 30.5}, series.Values)
}

func TestQueryIntegerColumn(t *testing.T) {
	t.Parallel()

	db := openMemory(t)
	ctx := context.Background()

	series, err := db.Query(ctx, "range", `SELECT * FROM range(5)`)

	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, series.Values)
}

func TestQueryNoRows(t *testing.T) {
	t.Parallel()

	db := openMemory(t)

	_, err := db.Query(context.Background(), "empty", `SELECT 1 WHERE false`)

	require.ErrorIs(t, err, ErrNoRows)
}

func TestQueryBadSQL(t *testing.T) {
	t.Parallel()

	db := openMemory(t)

	_, err := db.Query(context.Background(), "bad", `SELECT FROM nothing`)

	require.Error(t, err)
}

func TestQueryNonNumericColumn(t *testing.T) {
	t.Parallel()

	db := openMemory(t)

	_, err := db.Query(context.Background(), "text", `SELECT 'abc'`)

	require.ErrorIs(t, err, ErrNotNumeric)
}

func TestToFloat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value any
		want  float64
	}{
		{name: "float64", value: float64(1.5), want: 1.5},
		{name: "float32", value: float32(2.5), want: 2.5},
		{name: "int64", value: int64(-3), want: -3},
		{name: "int32", value: int32(4), want: 4},
		{name: "uint64", value: uint64(5), want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := toFloat(tt.value)

			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestToFloatRejectsStrings(t *testing.T) {
	t.Parallel()

	_, err := toFloat("not a number")

	require.ErrorIs(t, err, ErrNotNumeric)
}
