package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"pharmadesk/m/domain"
	"pharmadesk/m/internal/catalog"
	"pharmadesk/m/internal/history"
	"pharmadesk/m/internal/invoice"
	"pharmadesk/m/internal/migrations"
	"pharmadesk/m/internal/refill"
	"pharmadesk/m/internal/scanner"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := sqlx.Connect("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	migrations.Run(db)

	_, err = db.Exec(`INSERT INTO medicines (brand, generic, strength, selling_price, stock_total, min_stock) VALUES
		('Napa Extend', 'Paracetamol', '665mg', 15, 50, 20),
		('Concor', 'Bisoprolol', '5mg', 20, 30, 10)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO patients (name, mobile) VALUES ('Ariful Islam', '01711223344')`)
	require.NoError(t, err)

	handler := New(
		catalog.NewStore(db),
		history.NewSQLStore(db),
		refill.NewStore(db),
		scanner.NewStubClient(),
		invoice.NewTariff(60, 130),
	)
	server := httptest.NewServer(handler.Router())
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func createInvoice(t *testing.T, server *httptest.Server) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, server.URL+"/invoices", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestHealth(t *testing.T) {
	server := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, server.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestInvoiceFlow(t *testing.T) {
	server := newTestServer(t)
	id := createInvoice(t, server)
	base := server.URL + "/invoices/" + id

	// Build the cart: 8x Napa Extend, 1x Concor at 20% off.
	resp, _ := doJSON(t, http.MethodPost, base+"/items", map[string]any{"medicine_id": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodPost, base+"/items", map[string]any{"medicine_id": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body := doJSON(t, http.MethodPut, base+"/items/Napa%20Extend", map[string]any{"quantity": 8})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = doJSON(t, http.MethodPut, base+"/items/Concor", map[string]any{"discount_percent": 20})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	totals := body["totals"].(map[string]any)
	assert.Equal(t, 140.0, totals["subtotal"])
	assert.Equal(t, 4.0, totals["discount"])

	// Patient step: ad-hoc form.
	resp, _ = doJSON(t, http.MethodPut, base+"/patient", map[string]any{
		"mode": "new",
		"form": map[string]any{"name": "Rahim Uddin", "phone": "01811111111"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, http.MethodPost, base+"/next", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "patient", body["step"])
	resp, body = doJSON(t, http.MethodPost, base+"/next", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "fulfillment", body["step"])

	resp, body = doJSON(t, http.MethodPut, base+"/fulfillment", map[string]any{"type": "delivery", "zone": "inside"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 196.0, body["totals"].(map[string]any)["net"])

	resp, record := doJSON(t, http.MethodPost, base+"/confirm", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Rahim Uddin", record["patient_name"])
	assert.Equal(t, "01811111111", record["mobile"])
	assert.Equal(t, 196.0, record["total_amount"])
	assert.Equal(t, "Home Delivery", record["fulfillment_type"])
	assert.Equal(t, "R", record["initial"])

	// The session resets for the next sale.
	resp, body = doJSON(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "items", body["step"])
	assert.Empty(t, body["lines"])

	// The order landed in history.
	ordersResp, err := http.Get(server.URL + "/orders")
	require.NoError(t, err)
	defer ordersResp.Body.Close()
	var orders []domain.OrderRecord
	require.NoError(t, json.NewDecoder(ordersResp.Body).Decode(&orders))
	require.Len(t, orders, 1)
	assert.Equal(t, record["id"], orders[0].ID)
	assert.Equal(t, []string{"Napa Extend 665mg", "Concor 5mg"}, orders[0].Items)

	// Lifetime stats aggregate by mobile.
	resp, stats := doJSON(t, http.MethodGet, server.URL+"/orders/lifetime?mobile=01811111111", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1.0, stats["orders"])
	assert.Equal(t, 196.0, stats["total_amount"])

	// Confirmed quantities were deducted from stock.
	medResp, err := http.Get(server.URL + "/medicines?query=napa")
	require.NoError(t, err)
	defer medResp.Body.Close()
	var medicines []domain.Medicine
	require.NoError(t, json.NewDecoder(medResp.Body).Decode(&medicines))
	require.Len(t, medicines, 1)
	assert.Equal(t, int64(42), medicines[0].StockTotal)
}

func TestInvoiceValidation(t *testing.T) {
	server := newTestServer(t)

	t.Run("unknown session is 404", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost, server.URL+"/invoices/nope/next", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("empty cart blocks next", func(t *testing.T) {
		id := createInvoice(t, server)
		resp, body := doJSON(t, http.MethodPost, server.URL+"/invoices/"+id+"/next", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, "items", body["step"])
	})

	t.Run("confirm off the fulfillment step is 422", func(t *testing.T) {
		id := createInvoice(t, server)
		base := server.URL + "/invoices/" + id
		resp, _ := doJSON(t, http.MethodPost, base+"/items", map[string]any{"medicine_id": 1})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = doJSON(t, http.MethodPost, base+"/confirm", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("nameless new patient lands back on the patient step", func(t *testing.T) {
		id := createInvoice(t, server)
		base := server.URL + "/invoices/" + id
		doJSON(t, http.MethodPost, base+"/items", map[string]any{"medicine_id": 1})
		doJSON(t, http.MethodPost, base+"/next", nil)
		doJSON(t, http.MethodPost, base+"/next", nil)

		resp, body := doJSON(t, http.MethodPost, base+"/confirm", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, "patient", body["step"])
	})

	t.Run("unknown medicine is 404", func(t *testing.T) {
		id := createInvoice(t, server)
		resp, _ := doJSON(t, http.MethodPost, server.URL+"/invoices/"+id+"/items", map[string]any{"medicine_id": 999})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid fulfillment is 400", func(t *testing.T) {
		id := createInvoice(t, server)
		resp, _ := doJSON(t, http.MethodPut, server.URL+"/invoices/"+id+"/fulfillment", map[string]any{"type": "pickup"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("cancel frees the session", func(t *testing.T) {
		id := createInvoice(t, server)
		resp, _ := doJSON(t, http.MethodDelete, server.URL+"/invoices/"+id, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp, _ = doJSON(t, http.MethodGet, server.URL+"/invoices/"+id, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestBulkParsedItems(t *testing.T) {
	server := newTestServer(t)
	id := createInvoice(t, server)
	base := server.URL + "/invoices/" + id

	resp, body := doJSON(t, http.MethodPost, base+"/items/bulk", map[string]any{
		"items": []map[string]any{
			{"brand": "Napa Extend", "qty": 10},
			{"brand": "Unlisted Syrup", "generic": "Ambroxol", "strength": "15mg/5ml", "qty": 2, "selling_price": 55},
			{"brand": "", "qty": 3},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	lines := body["lines"].([]any)
	require.Len(t, lines, 2)

	first := lines[0].(map[string]any)
	assert.Equal(t, 10.0, first["quantity"])
	// Catalog match carries the stored price.
	assert.Equal(t, 15.0, first["medicine"].(map[string]any)["selling_price"])

	second := lines[1].(map[string]any)
	assert.Equal(t, "Unlisted Syrup", second["medicine"].(map[string]any)["brand"])
	assert.Equal(t, 55.0, second["medicine"].(map[string]any)["selling_price"])
}

func TestPatientEndpoints(t *testing.T) {
	server := newTestServer(t)
	id := createInvoice(t, server)
	base := server.URL + "/invoices/" + id

	resp, body := doJSON(t, http.MethodPut, base+"/patient", map[string]any{"mode": "existing", "patient_id": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "existing", body["patient_mode"])
	assert.Equal(t, "Ariful Islam", body["patient"].(map[string]any)["name"])

	t.Run("unknown patient is 404", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPut, base+"/patient", map[string]any{"mode": "existing", "patient_id": 55})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("unknown mode is 400", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPut, base+"/patient", map[string]any{"mode": "guest"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestInventoryEndpoints(t *testing.T) {
	server := newTestServer(t)

	resp, med := doJSON(t, http.MethodPost, server.URL+"/inventory/2/adjust", map[string]any{
		"change": 20, "type": domain.StockLogRestock, "user": "admin", "reason": "delivery",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 50.0, med["stock_total"])

	t.Run("zero change is rejected", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost, server.URL+"/inventory/2/adjust", map[string]any{"change": 0})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("below-zero movement is rejected", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, server.URL+"/inventory/1/adjust", map[string]any{"change": -999})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body["error"], "below zero")
	})

	t.Run("logs are newest first", func(t *testing.T) {
		logResp, err := http.Get(server.URL + "/inventory/2/logs")
		require.NoError(t, err)
		defer logResp.Body.Close()
		var logs []domain.StockLog
		require.NoError(t, json.NewDecoder(logResp.Body).Decode(&logs))
		require.Len(t, logs, 1)
		assert.Equal(t, int64(20), logs[0].Change)
	})

	t.Run("restock suggestion", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodGet, server.URL+"/inventory/1/restock", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		// target 20*5=100, on hand 50
		assert.Equal(t, 50.0, body["suggested_quantity"])
	})
}

func TestPrescriptionEndpoints(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/prescriptions/scan", "application/json",
		bytes.NewReader([]byte(`{"image":"data:image/jpeg;base64,aGVsbG8="}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var items []domain.ParsedItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	assert.NotEmpty(t, items)

	t.Run("missing image is 400", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost, server.URL+"/prescriptions/scan", map[string]any{"image": " "})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("interactions require brands", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost, server.URL+"/prescriptions/interactions", map[string]any{"brands": []string{}})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("interactions return a list", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/prescriptions/interactions", "application/json",
			bytes.NewReader([]byte(`{"brands":["Napa Extend","Concor"]}`)))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var warnings []string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&warnings))
		assert.NotNil(t, warnings)
	})
}

func TestConcurrentSessionsAreIndependent(t *testing.T) {
	server := newTestServer(t)
	first := createInvoice(t, server)
	second := createInvoice(t, server)
	require.NotEqual(t, first, second)

	doJSON(t, http.MethodPost, fmt.Sprintf("%s/invoices/%s/items", server.URL, first), map[string]any{"medicine_id": 1})

	_, body := doJSON(t, http.MethodGet, server.URL+"/invoices/"+second, nil)
	assert.Empty(t, body["lines"])
}
