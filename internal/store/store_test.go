package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docingest/internal/common"
	"github.com/joseph-ayodele/docingest/internal/rows"
)

func withSQLiteStore(t *testing.T, action func(ts TableStore)) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1) // one shared in-memory database
	defer db.Close()

	ts, err := NewFromDB(db, "sqlite", nil)
	require.NoError(t, err)
	action(ts)
}

var testColumns = []string{"index", "type", "text", "page_number"}

func makeRows(n int) []rows.Row {
	out := make([]rows.Row, n)
	for i := range out {
		out[i] = rows.Row{
			"index":       i,
			"type":        "NarrativeText",
			"text":        "row",
			"page_number": nil,
		}
	}
	return out
}

func TestEnsureTableIsIdempotent(t *testing.T) {
	withSQLiteStore(t, func(ts TableStore) {
		ctx := context.Background()
		require.NoError(t, ts.EnsureTable(ctx, "t1", testColumns))
		require.NoError(t, ts.EnsureTable(ctx, "t1", testColumns))

		tables, err := ts.ListTables(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"t1"}, tables)
	})
}

func TestInsertAndQueryRoundTrip(t *testing.T) {
	withSQLiteStore(t, func(ts TableStore) {
		ctx := context.Background()
		require.NoError(t, ts.EnsureTable(ctx, "t1", testColumns))

		inserted, err := ts.InsertRows(ctx, "t1", testColumns, makeRows(7), 3)
		require.NoError(t, err)
		assert.Equal(t, 7, inserted)

		got, err := ts.QueryRows(ctx, "t1", 100)
		require.NoError(t, err)
		require.Len(t, got, 7)
		assert.Equal(t, int64(0), got[0]["index"])
		assert.Equal(t, "NarrativeText", got[0]["type"])
		assert.Nil(t, got[0]["page_number"])
	})
}

func TestQueryRespectsLimitAndOrder(t *testing.T) {
	withSQLiteStore(t, func(ts TableStore) {
		ctx := context.Background()
		require.NoError(t, ts.EnsureTable(ctx, "t1", testColumns))
		_, err := ts.InsertRows(ctx, "t1", testColumns, makeRows(20), 100)
		require.NoError(t, err)

		got, err := ts.QueryRows(ctx, "t1", 5)
		require.NoError(t, err)
		require.Len(t, got, 5)
		for i, row := range got {
			assert.Equal(t, int64(i), row["index"])
		}
	})
}

func TestTableStats(t *testing.T) {
	withSQLiteStore(t, func(ts TableStore) {
		ctx := context.Background()
		require.NoError(t, ts.EnsureTable(ctx, "t1", testColumns))
		_, err := ts.InsertRows(ctx, "t1", testColumns, makeRows(12), 100)
		require.NoError(t, err)

		stats, err := ts.TableStats(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, int64(12), stats.RowCount)
		assert.Equal(t, len(testColumns), stats.Columns)
	})
}

func TestUnknownTableIsNotFound(t *testing.T) {
	withSQLiteStore(t, func(ts TableStore) {
		ctx := context.Background()

		_, err := ts.QueryRows(ctx, "nope", 10)
		require.Error(t, err)
		assert.Equal(t, common.CodeNotFound, common.CodeOf(err))

		_, err = ts.TableStats(ctx, "nope")
		require.Error(t, err)
		assert.Equal(t, common.CodeNotFound, common.CodeOf(err))
	})
}

func TestInsertStringifiesValues(t *testing.T) {
	withSQLiteStore(t, func(ts TableStore) {
		ctx := context.Background()
		cols := []string{"index", "text"}
		require.NoError(t, ts.EnsureTable(ctx, "t1", cols))

		_, err := ts.InsertRows(ctx, "t1", cols, []rows.Row{{"index": 0, "text": 12.5}}, 10)
		require.NoError(t, err)

		got, err := ts.QueryRows(ctx, "t1", 1)
		require.NoError(t, err)
		assert.Equal(t, "12.5", got[0]["text"])
	})
}

func TestUnsupportedDriver(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = NewFromDB(db, "oracle", nil)
	require.Error(t, err)
	assert.Equal(t, common.CodeConfig, common.CodeOf(err))
}
