package domain

type Medicine struct {
	ID           int64   `db:"id" json:"id"`
	Brand        string  `db:"brand" json:"brand"`
	Generic      string  `db:"generic" json:"generic"`
	Strength     string  `db:"strength" json:"strength"`
	PackSize     int64   `db:"pack_size" json:"pack_size"`
	BuyingPrice  float64 `db:"buying_price" json:"buying_price"`
	SellingPrice float64 `db:"selling_price" json:"selling_price"`
	Rack         string  `db:"rack" json:"rack"`
	StockTotal   int64   `db:"stock_total" json:"stock_total"`
	MinStock     int64   `db:"min_stock" json:"min_stock"`
	IsChronic    bool    `db:"is_chronic" json:"is_chronic"`
}

// Description is the flattened "Brand Strength" label used on order records.
func (m Medicine) Description() string {
	if m.Strength == "" {
		return m.Brand
	}
	return m.Brand + " " + m.Strength
}
