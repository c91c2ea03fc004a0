package domain

const (
	RefillActive    = "active"
	RefillPaused    = "paused"
	RefillCompleted = "completed"
)

type RefillSchedule struct {
	ID             int64   `db:"id" json:"id"`
	PatientID      int64   `db:"patient_id" json:"patient_id"`
	PatientName    string  `db:"patient_name" json:"patient_name"`
	Mobile         string  `db:"mobile" json:"mobile"`
	MedicineName   string  `db:"medicine_name" json:"medicine_name"`
	NextRefillDate string  `db:"next_refill_date" json:"next_refill_date"`
	IntervalDays   int64   `db:"interval_days" json:"interval_days"`
	Status         string  `db:"status" json:"status"`
	LastContacted  *string `db:"last_contacted" json:"last_contacted,omitempty"`
}
