// Package history is the append-only order log. Records are readable
// most-recent-first and aggregated per mobile number for lifetime
// stats.
package history

import "pharmadesk/m/domain"

// Lifetime is the aggregate order count and amount for one contact.
type Lifetime struct {
	Orders      int64   `db:"orders" json:"orders"`
	TotalAmount float64 `db:"total_amount" json:"total_amount"`
}

type Store interface {
	// Append adds a finalized record. Records are never mutated after
	// this call.
	Append(domain.OrderRecord) error
	// Recent returns records most-recent-first, optionally filtered by
	// patient name, mobile or order ID.
	Recent(query string) ([]domain.OrderRecord, error)
	// Lifetime aggregates count and total amount for a mobile number.
	Lifetime(mobile string) (Lifetime, error)
}
