package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pharmadesk/m/domain"
	"pharmadesk/m/internal/catalog"
	"pharmadesk/m/internal/history"
	"pharmadesk/m/internal/invoice"
	"pharmadesk/m/internal/refill"
	"pharmadesk/m/internal/scanner"
)

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	catalog  *catalog.Store
	orders   history.Store
	refills  *refill.Store
	scanner  scanner.Client
	tariff   invoice.Tariff
	sessions *sessionRegistry
}

// New constructs a Handler.
func New(cat *catalog.Store, orders history.Store, refills *refill.Store, scan scanner.Client, tariff invoice.Tariff) *Handler {
	return &Handler{
		catalog:  cat,
		orders:   orders,
		refills:  refills,
		scanner:  scan,
		tariff:   tariff,
		sessions: newSessionRegistry(),
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/invoices", func(r chi.Router) {
		r.Post("/", h.createInvoice)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getInvoice)
			r.Delete("/", h.cancelInvoice)
			r.Post("/items", h.addItem)
			r.Post("/items/bulk", h.addParsedItems)
			r.Put("/items/{brand}", h.updateItem)
			r.Delete("/items/{brand}", h.removeItem)
			r.Put("/patient", h.setPatient)
			r.Put("/fulfillment", h.setFulfillment)
			r.Post("/next", h.nextStep)
			r.Post("/back", h.backStep)
			r.Post("/confirm", h.confirmInvoice)
		})
	})

	r.Get("/medicines", h.searchMedicines)
	r.Get("/patients", h.searchPatients)

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.recentOrders)
		r.Get("/lifetime", h.lifetimeStats)
	})

	r.Route("/inventory", func(r chi.Router) {
		r.Get("/", h.listInventory)
		r.Post("/{id}/adjust", h.adjustStock)
		r.Get("/{id}/logs", h.stockLogs)
		r.Get("/{id}/restock", h.restockSuggestion)
	})

	r.Route("/refills", func(r chi.Router) {
		r.Get("/", h.listRefills)
		r.Put("/{id}/schedule", h.rescheduleRefill)
		r.Post("/{id}/action", h.refillAction)
	})

	r.Route("/prescriptions", func(r chi.Router) {
		r.Post("/scan", h.scanPrescription)
		r.Post("/interactions", h.checkInteractions)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Invoice wizard

type totalsView struct {
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Delivery float64 `json:"delivery"`
	Net      float64 `json:"net"`
}

type invoiceView struct {
	ID          string                 `json:"id"`
	Step        invoice.Step           `json:"step"`
	Lines       []invoice.CartLine     `json:"lines"`
	PatientMode invoice.PatientMode    `json:"patient_mode"`
	Patient     *domain.Patient        `json:"patient,omitempty"`
	NewPatient  invoice.NewPatientForm `json:"new_patient"`
	Fulfillment invoice.Fulfillment    `json:"fulfillment"`
	Totals      totalsView             `json:"totals"`
}

func viewOf(id string, wiz *invoice.Wizard) invoiceView {
	totals := wiz.Totals()
	return invoiceView{
		ID:          id,
		Step:        wiz.Step(),
		Lines:       wiz.Cart().Lines(),
		PatientMode: wiz.Patient().Mode(),
		Patient:     wiz.Patient().Existing(),
		NewPatient:  wiz.Patient().Form(),
		Fulfillment: wiz.Fulfillment(),
		Totals: totalsView{
			Subtotal: totals.Subtotal.InexactFloat64(),
			Discount: totals.Discount.InexactFloat64(),
			Delivery: totals.Delivery.InexactFloat64(),
			Net:      totals.Net.InexactFloat64(),
		},
	}
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	wiz := invoice.NewWizard(h.tariff, h.orders)
	id := h.sessions.Create(wiz)
	respondJSON(w, http.StatusCreated, viewOf(id, wiz))
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (string, *session, bool) {
	id := chi.URLParam(r, "id")
	sess, ok := h.sessions.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "invoice session not found")
		return "", nil, false
	}
	return id, sess, true
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	respondJSON(w, http.StatusOK, viewOf(id, sess.wizard))
}

func (h *Handler) cancelInvoice(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.mu.Lock()
	sess.wizard.Reset()
	sess.mu.Unlock()
	h.sessions.Delete(id)
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		MedicineID int64 `json:"medicine_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	med, err := h.catalog.MedicineByID(req.MedicineID)
	if errors.Is(err, catalog.ErrMedicineNotFound) {
		respondError(w, http.StatusNotFound, "medicine not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load medicine")
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.wizard.Cart().AddItem(med)
	respondJSON(w, http.StatusOK, viewOf(id, sess.wizard))
}

// addParsedItems folds accepted scanner candidates into the cart.
// Candidates matching a catalog brand use the catalog row; the rest
// become ad-hoc lines priced from the prescription.
func (h *Handler) addParsedItems(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Items []domain.ParsedItem `json:"items"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	for _, item := range req.Items {
		if strings.TrimSpace(item.Brand) == "" {
			continue
		}
		med, err := h.catalog.MedicineByBrand(item.Brand)
		if err != nil {
			med = domain.Medicine{
				Brand:        item.Brand,
				Generic:      item.Generic,
				Strength:     item.Strength,
				SellingPrice: item.SellingPrice,
			}
		}
		sess.wizard.Cart().AddQuantity(med, item.Qty)
	}
	respondJSON(w, http.StatusOK, viewOf(id, sess.wizard))
}

func brandParam(r *http.Request) string {
	raw := chi.URLParam(r, "brand")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Quantity        *float64 `json:"quantity"`
		DiscountPercent *float64 `json:"discount_percent"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	update := invoice.LineUpdate{}
	if req.Quantity != nil {
		qty := int64(*req.Quantity)
		update.Quantity = &qty
	}
	if req.DiscountPercent != nil {
		pct := int64(*req.DiscountPercent)
		update.DiscountPercent = &pct
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.wizard.Cart().UpdateLine(brandParam(r), update) {
		respondError(w, http.StatusNotFound, "cart line not found")
		return
	}
	respondJSON(w, http.StatusOK, viewOf(id, sess.wizard))
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.wizard.Cart().RemoveLine(brandParam(r))
	respondJSON(w, http.StatusOK, viewOf(id, sess.wizard))
}

func (h *Handler) setPatient(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Mode      string                  `json:"mode"`
		PatientID int64                   `json:"patient_id"`
		Form      *invoice.NewPatientForm `json:"form"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	ctx := sess.wizard.Patient()
	switch invoice.PatientMode(req.Mode) {
	case invoice.ModeExisting:
		if req.PatientID > 0 {
			patient, err := h.catalog.PatientByID(req.PatientID)
			if errors.Is(err, catalog.ErrPatientNotFound) {
				respondError(w, http.StatusNotFound, "patient not found")
				return
			}
			if err != nil {
				respondError(w, http.StatusInternalServerError, "unable to load patient")
				return
			}
			ctx.SelectExisting(patient)
		} else {
			ctx.SetMode(invoice.ModeExisting)
		}
	case invoice.ModeNew:
		if req.Form != nil {
			ctx.UpdateForm(*req.Form)
		} else {
			ctx.SetMode(invoice.ModeNew)
		}
	default:
		respondError(w, http.StatusBadRequest, "mode must be existing or new")
		return
	}
	respondJSON(w, http.StatusOK, viewOf(id, sess.wizard))
}

func (h *Handler) setFulfillment(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req invoice.Fulfillment
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.wizard.SetFulfillment(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, viewOf(id, sess.wizard))
}

func (h *Handler) nextStep(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.wizard.Next(); err != nil {
		respondValidation(w, err, sess.wizard.Step())
		return
	}
	respondJSON(w, http.StatusOK, viewOf(id, sess.wizard))
}

func (h *Handler) backStep(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.wizard.Back()
	respondJSON(w, http.StatusOK, viewOf(id, sess.wizard))
}

func (h *Handler) confirmInvoice(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	// Snapshot stock movements before confirmation resets the cart.
	var movements []catalog.StockMovement
	for _, line := range sess.wizard.Cart().Lines() {
		movements = append(movements, catalog.StockMovement{
			MedicineID: line.Medicine.ID,
			Quantity:   line.Quantity,
		})
	}

	record, err := sess.wizard.Confirm()
	if err != nil {
		respondValidation(w, err, sess.wizard.Step())
		return
	}
	if err := h.catalog.RecordSale(record.ID, movements); err != nil {
		// The order is already confirmed; stock drift is logged, not
		// surfaced as a failure.
		log.Printf("unable to deduct stock for order %s: %v", record.ID, err)
	}
	respondJSON(w, http.StatusCreated, record)
}

// Catalog lookups

func (h *Handler) searchMedicines(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.catalog.SearchMedicines(strings.TrimSpace(r.URL.Query().Get("query")))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to search medicines")
		return
	}
	respondJSON(w, http.StatusOK, medicines)
}

func (h *Handler) searchPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.catalog.SearchPatients(strings.TrimSpace(r.URL.Query().Get("query")))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to search patients")
		return
	}
	respondJSON(w, http.StatusOK, patients)
}

// Order history

func (h *Handler) recentOrders(w http.ResponseWriter, r *http.Request) {
	records, err := h.orders.Recent(strings.TrimSpace(r.URL.Query().Get("query")))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load orders")
		return
	}
	respondJSON(w, http.StatusOK, records)
}

func (h *Handler) lifetimeStats(w http.ResponseWriter, r *http.Request) {
	mobile := strings.TrimSpace(r.URL.Query().Get("mobile"))
	if mobile == "" {
		respondError(w, http.StatusBadRequest, "mobile is required")
		return
	}
	stats, err := h.orders.Lifetime(mobile)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load lifetime stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Inventory hub

func (h *Handler) listInventory(w http.ResponseWriter, r *http.Request) {
	lowOnly := r.URL.Query().Get("low_stock") == "true"
	medicines, err := h.catalog.Inventory(strings.TrimSpace(r.URL.Query().Get("query")), lowOnly)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list inventory")
		return
	}
	respondJSON(w, http.StatusOK, medicines)
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid medicine id")
		return
	}
	var req struct {
		Change int64  `json:"change"`
		Type   string `json:"type"`
		User   string `json:"user"`
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Change == 0 {
		respondError(w, http.StatusBadRequest, "change must be non-zero")
		return
	}
	if req.Type == "" {
		req.Type = domain.StockLogAdjustment
	}
	switch req.Type {
	case domain.StockLogRestock, domain.StockLogSale, domain.StockLogAdjustment, domain.StockLogReturn:
	default:
		respondError(w, http.StatusBadRequest, "unknown stock log type")
		return
	}

	med, err := h.catalog.AdjustStock(id, req.Change, req.Type, req.User, req.Reason)
	if errors.Is(err, catalog.ErrMedicineNotFound) {
		respondError(w, http.StatusNotFound, "medicine not found")
		return
	}
	if errors.Is(err, catalog.ErrInsufficientStock) {
		respondError(w, http.StatusBadRequest, "stock cannot go below zero")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to adjust stock")
		return
	}
	respondJSON(w, http.StatusOK, med)
}

func (h *Handler) stockLogs(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid medicine id")
		return
	}
	logs, err := h.catalog.Logs(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load stock logs")
		return
	}
	respondJSON(w, http.StatusOK, logs)
}

func (h *Handler) restockSuggestion(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid medicine id")
		return
	}
	med, suggestion, err := h.catalog.RestockSuggestion(id)
	if errors.Is(err, catalog.ErrMedicineNotFound) {
		respondError(w, http.StatusNotFound, "medicine not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to compute restock suggestion")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"medicine":           med,
		"suggested_quantity": suggestion,
	})
}

// Refill pipeline

func (h *Handler) listRefills(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.refills.List(
		strings.TrimSpace(r.URL.Query().Get("status")),
		strings.TrimSpace(r.URL.Query().Get("query")),
	)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list refill schedules")
		return
	}
	respondJSON(w, http.StatusOK, schedules)
}

func (h *Handler) rescheduleRefill(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid refill id")
		return
	}
	var req struct {
		NextRefillDate string `json:"next_refill_date"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	schedule, err := h.refills.Reschedule(id, req.NextRefillDate)
	if errors.Is(err, refill.ErrInvalidDate) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errors.Is(err, refill.ErrScheduleNotFound) {
		respondError(w, http.StatusNotFound, "refill schedule not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to reschedule refill")
		return
	}
	respondJSON(w, http.StatusOK, schedule)
}

func (h *Handler) refillAction(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid refill id")
		return
	}
	var req struct {
		Action string `json:"action"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	schedule, err := h.refills.RecordAction(id, req.Action)
	if errors.Is(err, refill.ErrUnknownAction) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errors.Is(err, refill.ErrScheduleNotFound) {
		respondError(w, http.StatusNotFound, "refill schedule not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to record refill action")
		return
	}
	respondJSON(w, http.StatusOK, schedule)
}

// Prescription scanning

func (h *Handler) scanPrescription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Image string `json:"image"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}
	items, err := h.scanner.ParsePrescription(r.Context(), req.Image)
	if err != nil {
		respondError(w, http.StatusBadGateway, "unable to parse prescription")
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *Handler) checkInteractions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Brands []string `json:"brands"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Brands) == 0 {
		respondError(w, http.StatusBadRequest, "brands are required")
		return
	}
	warnings, err := h.scanner.CheckInteractions(r.Context(), req.Brands)
	if err != nil {
		respondError(w, http.StatusBadGateway, "unable to check interactions")
		return
	}
	if warnings == nil {
		warnings = []string{}
	}
	respondJSON(w, http.StatusOK, warnings)
}

// Helpers

// respondValidation maps wizard validation errors to 422 with the step
// the wizard landed on, so the caller knows where the correction
// belongs.
func respondValidation(w http.ResponseWriter, err error, step invoice.Step) {
	status := http.StatusUnprocessableEntity
	if !errors.Is(err, invoice.ErrEmptyCart) &&
		!errors.Is(err, invoice.ErrPatientRequired) &&
		!errors.Is(err, invoice.ErrStepLocked) {
		status = http.StatusInternalServerError
	}
	respondJSON(w, status, map[string]string{
		"error": err.Error(),
		"step":  string(step),
	})
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
