package history

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"pharmadesk/m/domain"
)

// SQLStore persists order history in the orders / order_items tables.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Append(rec domain.OrderRecord) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin order insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO orders (id, patient_name, mobile, order_date, total_amount, discount_amount, fulfillment_type, initial) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.PatientName, rec.Mobile, rec.Date, rec.TotalAmount, rec.DiscountAmount, rec.FulfillmentType, rec.Initial)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", rec.ID, err)
	}
	for _, item := range rec.Items {
		if _, err := tx.Exec(`INSERT INTO order_items (order_id, description) VALUES (?, ?)`, rec.ID, item); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) Recent(query string) ([]domain.OrderRecord, error) {
	sqlQuery := `SELECT id, patient_name, mobile, order_date, total_amount, discount_amount, fulfillment_type, initial FROM orders`
	var args []any
	if query != "" {
		like := "%" + query + "%"
		sqlQuery += ` WHERE LOWER(patient_name) LIKE LOWER(?) OR mobile LIKE ? OR LOWER(id) LIKE LOWER(?)`
		args = append(args, like, like, like)
	}
	sqlQuery += ` ORDER BY rowid DESC`

	var records []domain.OrderRecord
	if err := s.db.Select(&records, sqlQuery, args...); err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	if len(records) == 0 {
		return records, nil
	}

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	itemsQuery, itemsArgs, err := sqlx.In(`SELECT order_id, description FROM order_items WHERE order_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("prepare order items query: %w", err)
	}
	itemsQuery = s.db.Rebind(itemsQuery)

	var rows []struct {
		OrderID     string `db:"order_id"`
		Description string `db:"description"`
	}
	if err := s.db.Select(&rows, itemsQuery, itemsArgs...); err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	itemsByOrder := make(map[string][]string)
	for _, row := range rows {
		itemsByOrder[row.OrderID] = append(itemsByOrder[row.OrderID], row.Description)
	}
	for i := range records {
		records[i].Items = itemsByOrder[records[i].ID]
	}
	return records, nil
}

func (s *SQLStore) Lifetime(mobile string) (Lifetime, error) {
	var stats Lifetime
	err := s.db.Get(&stats, `SELECT COUNT(*) AS orders, COALESCE(SUM(total_amount), 0) AS total_amount FROM orders WHERE mobile = ?`, mobile)
	if err != nil {
		return Lifetime{}, fmt.Errorf("lifetime stats for %s: %w", mobile, err)
	}
	return stats, nil
}
