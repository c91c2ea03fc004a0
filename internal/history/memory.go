package history

import (
	"strings"
	"sync"

	"pharmadesk/m/domain"
)

// MemoryStore keeps order history in memory. Used by tests and as the
// default sink when no database is wired.
type MemoryStore struct {
	mu      sync.Mutex
	records []domain.OrderRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(rec domain.OrderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Items = append([]string(nil), rec.Items...)
	s.records = append([]domain.OrderRecord{rec}, s.records...)
	return nil
}

func (s *MemoryStore) Recent(query string) ([]domain.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.OrderRecord, 0, len(s.records))
	for _, rec := range s.records {
		if q != "" &&
			!strings.Contains(strings.ToLower(rec.PatientName), q) &&
			!strings.Contains(rec.Mobile, q) &&
			!strings.Contains(strings.ToLower(rec.ID), q) {
			continue
		}
		rec.Items = append([]string(nil), rec.Items...)
		out = append(out, rec)
	}
	return out, nil
}

func (s *MemoryStore) Lifetime(mobile string) (Lifetime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats Lifetime
	for _, rec := range s.records {
		if rec.Mobile == mobile {
			stats.Orders++
			stats.TotalAmount += rec.TotalAmount
		}
	}
	return stats, nil
}
