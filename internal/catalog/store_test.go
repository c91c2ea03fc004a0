package catalog

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"pharmadesk/m/domain"
	"pharmadesk/m/internal/migrations"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlx.Connect("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	migrations.Run(db)

	seedRows := []struct {
		brand, generic, strength, rack string
		selling                        float64
		stock, min                     int64
	}{
		{"Napa Extend", "Paracetamol", "665mg", "A1", 15, 50, 20},
		{"Concor", "Bisoprolol", "5mg", "B2", 20, 5, 10},
		{"Seclo", "Omeprazole", "20mg", "A3", 7, 100, 30},
	}
	for _, row := range seedRows {
		_, err := db.Exec(`INSERT INTO medicines (brand, generic, strength, selling_price, rack, stock_total, min_stock) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			row.brand, row.generic, row.strength, row.selling, row.rack, row.stock, row.min)
		require.NoError(t, err)
	}
	_, err = db.Exec(`INSERT INTO patients (name, mobile) VALUES ('Ariful Islam', '01711223344'), ('Salma Begum', '01911223344')`)
	require.NoError(t, err)

	return NewStore(db)
}

func TestSearchMedicines(t *testing.T) {
	store := testStore(t)

	t.Run("empty query lists by brand", func(t *testing.T) {
		medicines, err := store.SearchMedicines("")
		require.NoError(t, err)
		require.Len(t, medicines, 3)
		assert.Equal(t, "Concor", medicines[0].Brand)
	})

	t.Run("matches brand case-insensitively", func(t *testing.T) {
		medicines, err := store.SearchMedicines("napa")
		require.NoError(t, err)
		require.Len(t, medicines, 1)
		assert.Equal(t, "Napa Extend", medicines[0].Brand)
	})

	t.Run("matches generic name", func(t *testing.T) {
		medicines, err := store.SearchMedicines("omepra")
		require.NoError(t, err)
		require.Len(t, medicines, 1)
		assert.Equal(t, "Seclo", medicines[0].Brand)
	})
}

func TestMedicineLookups(t *testing.T) {
	store := testStore(t)

	med, err := store.MedicineByID(1)
	require.NoError(t, err)
	assert.Equal(t, "Napa Extend", med.Brand)

	_, err = store.MedicineByID(999)
	assert.ErrorIs(t, err, ErrMedicineNotFound)

	byBrand, err := store.MedicineByBrand("concor")
	require.NoError(t, err)
	assert.Equal(t, int64(2), byBrand.ID)

	_, err = store.MedicineByBrand("Nonexistent")
	assert.ErrorIs(t, err, ErrMedicineNotFound)
}

func TestSearchPatients(t *testing.T) {
	store := testStore(t)

	all, err := store.SearchPatients("")
	require.NoError(t, err)
	require.Len(t, all, 2)

	byName, err := store.SearchPatients("salma")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Salma Begum", byName[0].Name)

	byMobile, err := store.SearchPatients("01711")
	require.NoError(t, err)
	require.Len(t, byMobile, 1)
	assert.Equal(t, "Ariful Islam", byMobile[0].Name)

	patient, err := store.PatientByID(1)
	require.NoError(t, err)
	assert.Equal(t, "Ariful Islam", patient.Name)

	_, err = store.PatientByID(42)
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestInventory(t *testing.T) {
	store := testStore(t)

	t.Run("orders lowest stock first", func(t *testing.T) {
		medicines, err := store.Inventory("", false)
		require.NoError(t, err)
		require.Len(t, medicines, 3)
		assert.Equal(t, "Concor", medicines[0].Brand)
		assert.Equal(t, "Seclo", medicines[2].Brand)
	})

	t.Run("low stock filter keeps rows at or below minimum", func(t *testing.T) {
		medicines, err := store.Inventory("", true)
		require.NoError(t, err)
		require.Len(t, medicines, 1)
		assert.Equal(t, "Concor", medicines[0].Brand)
	})

	t.Run("query matches rack location", func(t *testing.T) {
		medicines, err := store.Inventory("b2", false)
		require.NoError(t, err)
		require.Len(t, medicines, 1)
		assert.Equal(t, "Concor", medicines[0].Brand)
	})
}

func TestAdjustStock(t *testing.T) {
	store := testStore(t)

	t.Run("applies the change and logs it", func(t *testing.T) {
		med, err := store.AdjustStock(2, 45, domain.StockLogRestock, "admin", "weekly delivery")
		require.NoError(t, err)
		assert.Equal(t, int64(50), med.StockTotal)

		logs, err := store.Logs(2)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, int64(45), logs[0].Change)
		assert.Equal(t, domain.StockLogRestock, logs[0].Type)
		assert.Equal(t, "admin", logs[0].User)
		assert.Equal(t, "weekly delivery", logs[0].Reason)
	})

	t.Run("rejects movements below zero without logging", func(t *testing.T) {
		_, err := store.AdjustStock(1, -60, domain.StockLogAdjustment, "admin", "typo")
		assert.ErrorIs(t, err, ErrInsufficientStock)

		med, err := store.MedicineByID(1)
		require.NoError(t, err)
		assert.Equal(t, int64(50), med.StockTotal)

		logs, err := store.Logs(1)
		require.NoError(t, err)
		assert.Empty(t, logs)
	})

	t.Run("unknown medicine", func(t *testing.T) {
		_, err := store.AdjustStock(999, 1, domain.StockLogAdjustment, "", "")
		assert.ErrorIs(t, err, ErrMedicineNotFound)
	})
}

func TestRecordSale(t *testing.T) {
	store := testStore(t)

	t.Run("deducts and logs per movement", func(t *testing.T) {
		err := store.RecordSale("INV-1", []StockMovement{
			{MedicineID: 1, Quantity: 8},
			{MedicineID: 2, Quantity: 1},
		})
		require.NoError(t, err)

		napa, err := store.MedicineByID(1)
		require.NoError(t, err)
		assert.Equal(t, int64(42), napa.StockTotal)

		logs, err := store.Logs(1)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, int64(-8), logs[0].Change)
		assert.Equal(t, domain.StockLogSale, logs[0].Type)
		assert.Equal(t, "Invoice #INV-1", logs[0].Reason)
	})

	t.Run("clamps at zero instead of failing", func(t *testing.T) {
		err := store.RecordSale("INV-2", []StockMovement{{MedicineID: 2, Quantity: 100}})
		require.NoError(t, err)

		concor, err := store.MedicineByID(2)
		require.NoError(t, err)
		assert.Equal(t, int64(0), concor.StockTotal)

		logs, err := store.Logs(2)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, int64(-4), logs[0].Change)
	})

	t.Run("skips ad-hoc lines and unknown ids", func(t *testing.T) {
		err := store.RecordSale("INV-3", []StockMovement{
			{MedicineID: 0, Quantity: 5},
			{MedicineID: 999, Quantity: 5},
		})
		require.NoError(t, err)
	})
}

func TestRestockSuggestion(t *testing.T) {
	store := testStore(t)

	t.Run("refills to five times minimum stock", func(t *testing.T) {
		med, suggestion, err := store.RestockSuggestion(2)
		require.NoError(t, err)
		assert.Equal(t, "Concor", med.Brand)
		// target 10*5=50, on hand 5
		assert.Equal(t, int64(45), suggestion)
	})

	t.Run("partial shortfall", func(t *testing.T) {
		_, suggestion, err := store.RestockSuggestion(3)
		require.NoError(t, err)
		// target 30*5=150, on hand 100
		assert.Equal(t, int64(50), suggestion)
	})

	t.Run("zero when stock already meets the buffer", func(t *testing.T) {
		_, err := store.AdjustStock(3, 60, domain.StockLogRestock, "admin", "bulk purchase")
		require.NoError(t, err)

		_, suggestion, err := store.RestockSuggestion(3)
		require.NoError(t, err)
		assert.Equal(t, int64(0), suggestion)
	})

	t.Run("unknown medicine", func(t *testing.T) {
		_, _, err := store.RestockSuggestion(999)
		assert.ErrorIs(t, err, ErrMedicineNotFound)
	})
}
