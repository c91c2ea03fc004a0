package domain

// ParsedItem is one line candidate returned by the prescription vision
// service. Confidence is in [0,1]; alternatives are suggested brand
// names when the handwriting was ambiguous.
type ParsedItem struct {
	Brand        string   `json:"brand"`
	Generic      string   `json:"generic"`
	Strength     string   `json:"strength"`
	Dose         string   `json:"dose,omitempty"`
	Qty          int64    `json:"qty"`
	Confidence   float64  `json:"confidence"`
	SellingPrice float64  `json:"selling_price,omitempty"`
	Alternatives []string `json:"alternative_matches,omitempty"`
}
