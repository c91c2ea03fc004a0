package domain

const (
	StockLogRestock    = "Restock"
	StockLogSale       = "Sale"
	StockLogAdjustment = "Adjustment"
	StockLogReturn     = "Return"
)

type StockLog struct {
	ID         int64  `db:"id" json:"id"`
	MedicineID int64  `db:"medicine_id" json:"medicine_id"`
	Date       string `db:"created_at" json:"date"`
	Change     int64  `db:"change" json:"change"`
	Type       string `db:"type" json:"type"`
	User       string `db:"user" json:"user"`
	Reason     string `db:"reason" json:"reason"`
}
