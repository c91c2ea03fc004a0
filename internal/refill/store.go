// Package refill manages the recurring-refill pipeline: chronic
// patients with scheduled repeat orders and follow-up outcomes.
package refill

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"pharmadesk/m/domain"
)

const dateLayout = "2006-01-02"

var (
	ErrScheduleNotFound = errors.New("refill schedule not found")
	ErrInvalidDate      = errors.New("date must be in YYYY-MM-DD format")
	ErrUnknownAction    = errors.New("unknown refill action")
)

// Follow-up outcomes recorded against a schedule.
const (
	ActionReorder    = "reorder"
	ActionNoNeed     = "no_need"
	ActionOrderLater = "order_later"
)

// How far a schedule is pushed when the patient asks to be contacted
// again later.
const orderLaterDeferDays = 7

type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// NewStoreWithClock is used by tests to pin the contact timestamp.
func NewStoreWithClock(db *sqlx.DB, now func() time.Time) *Store {
	return &Store{db: db, now: now}
}

// List returns schedules joined with patient identity, due-soonest
// first. Status filters exactly; query matches patient name or mobile.
func (s *Store) List(status, query string) ([]domain.RefillSchedule, error) {
	sqlQuery := `SELECT r.id, r.patient_id, p.name AS patient_name, p.mobile, r.medicine_name, r.next_refill_date, r.interval_days, r.status, r.last_contacted
                FROM refill_schedules r
                JOIN patients p ON p.id = r.patient_id`
	var (
		args    []any
		clauses []string
	)
	if status != "" {
		clauses = append(clauses, `r.status = ?`)
		args = append(args, status)
	}
	if query != "" {
		like := "%" + query + "%"
		clauses = append(clauses, `(LOWER(p.name) LIKE LOWER(?) OR p.mobile LIKE ?)`)
		args = append(args, like, like)
	}
	for i, clause := range clauses {
		if i == 0 {
			sqlQuery += ` WHERE ` + clause
		} else {
			sqlQuery += ` AND ` + clause
		}
	}
	sqlQuery += ` ORDER BY r.next_refill_date ASC`

	var schedules []domain.RefillSchedule
	if err := s.db.Select(&schedules, sqlQuery, args...); err != nil {
		return nil, fmt.Errorf("list refill schedules: %w", err)
	}
	return schedules, nil
}

// Reschedule moves a schedule to a new refill date.
func (s *Store) Reschedule(id int64, nextDate string) (domain.RefillSchedule, error) {
	if _, err := time.Parse(dateLayout, nextDate); err != nil {
		return domain.RefillSchedule{}, ErrInvalidDate
	}
	res, err := s.db.Exec(`UPDATE refill_schedules SET next_refill_date = ? WHERE id = ?`, nextDate, id)
	if err != nil {
		return domain.RefillSchedule{}, fmt.Errorf("reschedule refill %d: %w", id, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return domain.RefillSchedule{}, ErrScheduleNotFound
	}
	return s.byID(id)
}

// RecordAction stores a follow-up outcome:
//   - reorder: the patient repurchased; the next date advances by the
//     schedule interval
//   - no_need: the schedule pauses
//   - order_later: the next date defers by a week
//
// All outcomes stamp last_contacted.
func (s *Store) RecordAction(id int64, action string) (domain.RefillSchedule, error) {
	schedule, err := s.byID(id)
	if err != nil {
		return domain.RefillSchedule{}, err
	}

	contacted := s.now().Format(dateLayout)
	switch action {
	case ActionReorder:
		next, err := shiftDate(schedule.NextRefillDate, int(schedule.IntervalDays))
		if err != nil {
			return domain.RefillSchedule{}, err
		}
		_, err = s.db.Exec(`UPDATE refill_schedules SET next_refill_date = ?, status = ?, last_contacted = ? WHERE id = ?`,
			next, domain.RefillActive, contacted, id)
		if err != nil {
			return domain.RefillSchedule{}, fmt.Errorf("record reorder: %w", err)
		}
	case ActionNoNeed:
		_, err = s.db.Exec(`UPDATE refill_schedules SET status = ?, last_contacted = ? WHERE id = ?`,
			domain.RefillPaused, contacted, id)
		if err != nil {
			return domain.RefillSchedule{}, fmt.Errorf("record no-need: %w", err)
		}
	case ActionOrderLater:
		next, err := shiftDate(schedule.NextRefillDate, orderLaterDeferDays)
		if err != nil {
			return domain.RefillSchedule{}, err
		}
		_, err = s.db.Exec(`UPDATE refill_schedules SET next_refill_date = ?, last_contacted = ? WHERE id = ?`,
			next, contacted, id)
		if err != nil {
			return domain.RefillSchedule{}, fmt.Errorf("record order-later: %w", err)
		}
	default:
		return domain.RefillSchedule{}, ErrUnknownAction
	}
	return s.byID(id)
}

func (s *Store) byID(id int64) (domain.RefillSchedule, error) {
	var schedule domain.RefillSchedule
	err := s.db.Get(&schedule, `SELECT r.id, r.patient_id, p.name AS patient_name, p.mobile, r.medicine_name, r.next_refill_date, r.interval_days, r.status, r.last_contacted
                FROM refill_schedules r
                JOIN patients p ON p.id = r.patient_id
                WHERE r.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RefillSchedule{}, ErrScheduleNotFound
	}
	if err != nil {
		return domain.RefillSchedule{}, fmt.Errorf("load refill %d: %w", id, err)
	}
	return schedule, nil
}

func shiftDate(date string, days int) (string, error) {
	parsed, err := time.Parse(dateLayout, date)
	if err != nil {
		return "", ErrInvalidDate
	}
	return parsed.AddDate(0, 0, days).Format(dateLayout), nil
}
