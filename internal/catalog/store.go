// Package catalog provides lookup and inventory management over the
// medicine and patient master data.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"pharmadesk/m/domain"
)

var (
	ErrMedicineNotFound  = errors.New("medicine not found")
	ErrPatientNotFound   = errors.New("patient not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

const medicineColumns = `id, brand, generic, strength, pack_size, buying_price, selling_price, rack, stock_total, min_stock, is_chronic`

// Restock suggestions refill to a healthy buffer of five times the
// minimum stock level.
const restockBufferFactor = 5

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// SearchMedicines matches brand or generic name, case-insensitive,
// capped at 25 rows.
func (s *Store) SearchMedicines(query string) ([]domain.Medicine, error) {
	var medicines []domain.Medicine
	var err error
	if query == "" {
		err = s.db.Select(&medicines, `SELECT `+medicineColumns+` FROM medicines ORDER BY brand LIMIT 25`)
	} else {
		like := "%" + query + "%"
		err = s.db.Select(&medicines, `SELECT `+medicineColumns+` FROM medicines WHERE LOWER(brand) LIKE LOWER(?) OR LOWER(generic) LIKE LOWER(?) ORDER BY brand LIMIT 25`, like, like)
	}
	if err != nil {
		return nil, fmt.Errorf("search medicines: %w", err)
	}
	return medicines, nil
}

func (s *Store) MedicineByID(id int64) (domain.Medicine, error) {
	var m domain.Medicine
	err := s.db.Get(&m, `SELECT `+medicineColumns+` FROM medicines WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Medicine{}, ErrMedicineNotFound
	}
	if err != nil {
		return domain.Medicine{}, fmt.Errorf("load medicine %d: %w", id, err)
	}
	return m, nil
}

func (s *Store) MedicineByBrand(brand string) (domain.Medicine, error) {
	var m domain.Medicine
	err := s.db.Get(&m, `SELECT `+medicineColumns+` FROM medicines WHERE LOWER(brand) = LOWER(?) LIMIT 1`, brand)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Medicine{}, ErrMedicineNotFound
	}
	if err != nil {
		return domain.Medicine{}, fmt.Errorf("load medicine %q: %w", brand, err)
	}
	return m, nil
}

func (s *Store) SearchPatients(query string) ([]domain.Patient, error) {
	var patients []domain.Patient
	var err error
	if query == "" {
		err = s.db.Select(&patients, `SELECT id, name, mobile, dob, wallet_balance FROM patients ORDER BY name LIMIT 25`)
	} else {
		like := "%" + query + "%"
		err = s.db.Select(&patients, `SELECT id, name, mobile, dob, wallet_balance FROM patients WHERE LOWER(name) LIKE LOWER(?) OR mobile LIKE ? ORDER BY name LIMIT 25`, like, like)
	}
	if err != nil {
		return nil, fmt.Errorf("search patients: %w", err)
	}
	return patients, nil
}

func (s *Store) PatientByID(id int64) (domain.Patient, error) {
	var p domain.Patient
	err := s.db.Get(&p, `SELECT id, name, mobile, dob, wallet_balance FROM patients WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Patient{}, ErrPatientNotFound
	}
	if err != nil {
		return domain.Patient{}, fmt.Errorf("load patient %d: %w", id, err)
	}
	return p, nil
}

// Inventory lists medicines for the inventory hub, lowest stock first.
// The query matches brand, generic or rack location; lowOnly keeps
// rows at or below their minimum stock level.
func (s *Store) Inventory(query string, lowOnly bool) ([]domain.Medicine, error) {
	sqlQuery := `SELECT ` + medicineColumns + ` FROM medicines`
	var (
		args    []any
		clauses []string
	)
	if query != "" {
		like := "%" + query + "%"
		clauses = append(clauses, `(LOWER(brand) LIKE LOWER(?) OR LOWER(generic) LIKE LOWER(?) OR LOWER(rack) LIKE LOWER(?))`)
		args = append(args, like, like, like)
	}
	if lowOnly {
		clauses = append(clauses, `stock_total <= min_stock`)
	}
	for i, clause := range clauses {
		if i == 0 {
			sqlQuery += ` WHERE ` + clause
		} else {
			sqlQuery += ` AND ` + clause
		}
	}
	sqlQuery += ` ORDER BY stock_total ASC, brand`

	var medicines []domain.Medicine
	if err := s.db.Select(&medicines, sqlQuery, args...); err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return medicines, nil
}

// AdjustStock applies a signed stock movement and records a stock log
// row in the same transaction. Movements that would take stock below
// zero are rejected with ErrInsufficientStock.
func (s *Store) AdjustStock(id int64, change int64, logType, user, reason string) (domain.Medicine, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return domain.Medicine{}, fmt.Errorf("begin stock adjustment: %w", err)
	}
	defer tx.Rollback()

	var m domain.Medicine
	err = tx.Get(&m, `SELECT `+medicineColumns+` FROM medicines WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Medicine{}, ErrMedicineNotFound
	}
	if err != nil {
		return domain.Medicine{}, fmt.Errorf("load medicine %d: %w", id, err)
	}

	newStock := m.StockTotal + change
	if newStock < 0 {
		return domain.Medicine{}, ErrInsufficientStock
	}
	if _, err := tx.Exec(`UPDATE medicines SET stock_total = ? WHERE id = ?`, newStock, id); err != nil {
		return domain.Medicine{}, fmt.Errorf("update stock: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO stock_logs (medicine_id, change, type, user, reason) VALUES (?, ?, ?, ?, ?)`,
		id, change, logType, user, reason); err != nil {
		return domain.Medicine{}, fmt.Errorf("insert stock log: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Medicine{}, fmt.Errorf("commit stock adjustment: %w", err)
	}
	m.StockTotal = newStock
	return m, nil
}

// StockMovement is one deduction applied when an invoice is confirmed.
type StockMovement struct {
	MedicineID int64
	Quantity   int64
}

// RecordSale deducts confirmed invoice quantities and writes Sale log
// rows. An already-confirmed order must not fail on a stock race, so
// deductions clamp at zero instead of rejecting.
func (s *Store) RecordSale(orderID string, movements []StockMovement) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin sale deduction: %w", err)
	}
	defer tx.Rollback()

	reason := "Invoice #" + orderID
	for _, mv := range movements {
		if mv.MedicineID == 0 || mv.Quantity <= 0 {
			continue
		}
		var stock int64
		err := tx.Get(&stock, `SELECT stock_total FROM medicines WHERE id = ?`, mv.MedicineID)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load stock for %d: %w", mv.MedicineID, err)
		}
		deduct := mv.Quantity
		if deduct > stock {
			deduct = stock
		}
		if _, err := tx.Exec(`UPDATE medicines SET stock_total = stock_total - ? WHERE id = ?`, deduct, mv.MedicineID); err != nil {
			return fmt.Errorf("deduct stock for %d: %w", mv.MedicineID, err)
		}
		if _, err := tx.Exec(`INSERT INTO stock_logs (medicine_id, change, type, user, reason) VALUES (?, ?, ?, '', ?)`,
			mv.MedicineID, -deduct, domain.StockLogSale, reason); err != nil {
			return fmt.Errorf("log sale for %d: %w", mv.MedicineID, err)
		}
	}
	return tx.Commit()
}

// Logs returns the stock movement history for one medicine, newest
// first.
func (s *Store) Logs(medicineID int64) ([]domain.StockLog, error) {
	var logs []domain.StockLog
	err := s.db.Select(&logs, `SELECT id, medicine_id, change, type, user, reason, created_at FROM stock_logs WHERE medicine_id = ? ORDER BY id DESC`, medicineID)
	if err != nil {
		return nil, fmt.Errorf("load stock logs: %w", err)
	}
	return logs, nil
}

// RestockSuggestion returns the quantity needed to refill a medicine
// to its healthy buffer. Zero when stock already meets the buffer.
func (s *Store) RestockSuggestion(id int64) (domain.Medicine, int64, error) {
	m, err := s.MedicineByID(id)
	if err != nil {
		return domain.Medicine{}, 0, err
	}
	target := m.MinStock * restockBufferFactor
	suggestion := target - m.StockTotal
	if suggestion < 0 {
		suggestion = 0
	}
	return m, suggestion, nil
}
