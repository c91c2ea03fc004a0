package domain

type Patient struct {
	ID            int64   `db:"id" json:"id"`
	Name          string  `db:"name" json:"name"`
	Mobile        string  `db:"mobile" json:"mobile"`
	DOB           string  `db:"dob" json:"dob,omitempty"`
	WalletBalance float64 `db:"wallet_balance" json:"wallet_balance"`
}
