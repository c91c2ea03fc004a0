package invoice

import "github.com/shopspring/decimal"

type FulfillmentType string

const (
	FulfillmentDirect   FulfillmentType = "direct"
	FulfillmentDelivery FulfillmentType = "delivery"
)

type DeliveryZone string

const (
	ZoneInside  DeliveryZone = "inside"
	ZoneOutside DeliveryZone = "outside"
)

// Fulfillment is the delivery mode of an order. Zone is only relevant
// when Type is delivery.
type Fulfillment struct {
	Type FulfillmentType `json:"type"`
	Zone DeliveryZone    `json:"zone"`
}

// Label is the human-readable fulfillment type stored on order records.
func (f Fulfillment) Label() string {
	if f.Type == FulfillmentDelivery {
		return "Home Delivery"
	}
	return "Direct Sell"
}

// Tariff holds the flat delivery surcharge per zone.
type Tariff struct {
	Inside  decimal.Decimal
	Outside decimal.Decimal
}

func NewTariff(inside, outside float64) Tariff {
	return Tariff{
		Inside:  decimal.NewFromFloat(inside),
		Outside: decimal.NewFromFloat(outside),
	}
}

// Surcharge returns the delivery charge for the choice: zero for direct
// sales, the zone tier otherwise.
func (t Tariff) Surcharge(f Fulfillment) decimal.Decimal {
	if f.Type != FulfillmentDelivery {
		return decimal.Zero
	}
	if f.Zone == ZoneOutside {
		return t.Outside
	}
	return t.Inside
}
