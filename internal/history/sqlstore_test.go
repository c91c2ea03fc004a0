package history

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"pharmadesk/m/internal/migrations"
)

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Connect("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	migrations.Run(db)
	return db
}

func TestSQLStoreAppendAndRecent(t *testing.T) {
	store := NewSQLStore(testDB(t))

	first := sampleRecord("INV-1", "Ariful Islam", "01711223344", 100)
	first.Items = []string{"Napa Extend 665mg", "Concor 5mg"}
	require.NoError(t, store.Append(first))
	require.NoError(t, store.Append(sampleRecord("INV-2", "Salma Begum", "01911223344", 250)))

	t.Run("most recent first with items attached", func(t *testing.T) {
		records, err := store.Recent("")
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "INV-2", records[0].ID)
		assert.Equal(t, "INV-1", records[1].ID)
		assert.Equal(t, []string{"Napa Extend 665mg", "Concor 5mg"}, records[1].Items)
		assert.Equal(t, "Aug 28, 2026", records[0].Date)
	})

	t.Run("duplicate order id is rejected", func(t *testing.T) {
		err := store.Append(sampleRecord("INV-1", "Ariful Islam", "01711223344", 100))
		require.Error(t, err)
	})

	t.Run("query filters name, mobile and id", func(t *testing.T) {
		byName, err := store.Recent("salma")
		require.NoError(t, err)
		require.Len(t, byName, 1)
		assert.Equal(t, "INV-2", byName[0].ID)

		byMobile, err := store.Recent("01711")
		require.NoError(t, err)
		require.Len(t, byMobile, 1)
		assert.Equal(t, "INV-1", byMobile[0].ID)

		byID, err := store.Recent("inv-2")
		require.NoError(t, err)
		require.Len(t, byID, 1)
	})

	t.Run("no match yields empty result", func(t *testing.T) {
		records, err := store.Recent("nope")
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestSQLStoreLifetime(t *testing.T) {
	store := NewSQLStore(testDB(t))
	require.NoError(t, store.Append(sampleRecord("INV-1", "Ariful Islam", "01711223344", 100)))
	require.NoError(t, store.Append(sampleRecord("INV-2", "Ariful Islam", "01711223344", 250.5)))
	require.NoError(t, store.Append(sampleRecord("INV-3", "Salma Begum", "01911223344", 40)))

	stats, err := store.Lifetime("01711223344")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Orders)
	assert.InDelta(t, 350.5, stats.TotalAmount, 0.001)

	empty, err := store.Lifetime("01500000000")
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.Orders)
	assert.Equal(t, 0.0, empty.TotalAmount)
}
