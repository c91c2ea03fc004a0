package domain

// OrderRecord is the finalized invoice snapshot. Values are copied at
// confirmation time and never mutated afterwards.
type OrderRecord struct {
	ID              string   `db:"id" json:"id"`
	PatientName     string   `db:"patient_name" json:"patient_name"`
	Mobile          string   `db:"mobile" json:"mobile"`
	Date            string   `db:"order_date" json:"date"`
	TotalAmount     float64  `db:"total_amount" json:"total_amount"`
	DiscountAmount  float64  `db:"discount_amount" json:"discount_amount"`
	FulfillmentType string   `db:"fulfillment_type" json:"fulfillment_type"`
	Items           []string `db:"-" json:"items"`
	Initial         string   `db:"initial" json:"initial"`
}
