package invoice

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pharmadesk/m/domain"
)

// Step is the wizard position. Transitions are strictly stepwise:
// items -> patient -> fulfillment -> (confirmed).
type Step string

const (
	StepItems       Step = "items"
	StepPatient     Step = "patient"
	StepFulfillment Step = "fulfillment"
)

var (
	ErrEmptyCart          = errors.New("invoice cart is empty")
	ErrPatientRequired    = errors.New("patient name is required")
	ErrStepLocked         = errors.New("confirmation is only available from the order type step")
	ErrInvalidFulfillment = errors.New("unknown fulfillment choice")
)

// History receives finalized order records. Implementations prepend,
// keeping most-recent-first order.
type History interface {
	Append(domain.OrderRecord) error
}

// NewOrderID generates a collision-resistant invoice identifier.
func NewOrderID() string {
	return "INV-" + uuid.NewString()
}

type Option func(*Wizard)

// WithIDGenerator overrides order ID generation, mainly for tests.
func WithIDGenerator(gen func() string) Option {
	return func(w *Wizard) { w.newID = gen }
}

// WithClock overrides the wizard's time source.
func WithClock(now func() time.Time) Option {
	return func(w *Wizard) { w.now = now }
}

// Wizard owns one invoice session: the cart ledger, patient binding,
// fulfillment choice and confirmation state machine. It is
// single-writer; callers serialize access per session.
type Wizard struct {
	step        Step
	cart        Cart
	patient     PatientContext
	fulfillment Fulfillment
	tariff      Tariff
	history     History
	newID       func() string
	now         func() time.Time
}

func NewWizard(tariff Tariff, history History, opts ...Option) *Wizard {
	w := &Wizard{
		step:        StepItems,
		patient:     NewPatientContext(),
		fulfillment: Fulfillment{Type: FulfillmentDirect, Zone: ZoneInside},
		tariff:      tariff,
		history:     history,
		newID:       NewOrderID,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Wizard) Step() Step {
	return w.step
}

func (w *Wizard) Cart() *Cart {
	return &w.cart
}

func (w *Wizard) Patient() *PatientContext {
	return &w.patient
}

func (w *Wizard) Fulfillment() Fulfillment {
	return w.fulfillment
}

func (w *Wizard) SetFulfillment(f Fulfillment) error {
	switch f.Type {
	case FulfillmentDirect, FulfillmentDelivery:
	default:
		return ErrInvalidFulfillment
	}
	if f.Zone == "" {
		f.Zone = ZoneInside
	}
	switch f.Zone {
	case ZoneInside, ZoneOutside:
	default:
		return ErrInvalidFulfillment
	}
	w.fulfillment = f
	return nil
}

// Totals recomputes the pricing summary from the current cart and
// fulfillment choice.
func (w *Wizard) Totals() Totals {
	return ComputeTotals(w.cart.Lines(), w.fulfillment, w.tariff)
}

// Next advances one step. Leaving the items step is blocked while the
// cart is empty. Advancing from the final step is a no-op.
func (w *Wizard) Next() error {
	switch w.step {
	case StepItems:
		if w.cart.Len() == 0 {
			return ErrEmptyCart
		}
		w.step = StepPatient
	case StepPatient:
		w.step = StepFulfillment
	}
	return nil
}

// Back steps backward. Backward transitions always succeed.
func (w *Wizard) Back() {
	switch w.step {
	case StepFulfillment:
		w.step = StepPatient
	case StepPatient:
		w.step = StepItems
	}
}

// Confirm finalizes the invoice: it validates the session, snapshots an
// immutable order record, appends it to history and resets the wizard.
// Validation failures block confirmation and move the wizard to the
// step where the correction belongs.
func (w *Wizard) Confirm() (domain.OrderRecord, error) {
	if w.cart.Len() == 0 {
		w.step = StepItems
		return domain.OrderRecord{}, ErrEmptyCart
	}
	if w.step != StepFulfillment {
		return domain.OrderRecord{}, ErrStepLocked
	}
	if name, _ := w.patient.Identity(); w.patient.Mode() == ModeNew && name == "" {
		w.step = StepPatient
		return domain.OrderRecord{}, ErrPatientRequired
	}

	name, mobile := w.patient.ResolveIdentity()
	totals := w.Totals()
	record := domain.OrderRecord{
		ID:              w.newID(),
		PatientName:     name,
		Mobile:          mobile,
		Date:            w.now().Format("Jan 02, 2006"),
		TotalAmount:     totals.Net.InexactFloat64(),
		DiscountAmount:  totals.Discount.InexactFloat64(),
		FulfillmentType: w.fulfillment.Label(),
		Items:           w.cart.Descriptions(),
		Initial:         initialOf(name),
	}
	if err := w.history.Append(record); err != nil {
		return domain.OrderRecord{}, fmt.Errorf("append order: %w", err)
	}
	w.Reset()
	return record, nil
}

// Reset discards all wizard state and returns to the items step.
func (w *Wizard) Reset() {
	w.cart.Clear()
	w.patient.Reset()
	w.fulfillment = Fulfillment{Type: FulfillmentDirect, Zone: ZoneInside}
	w.step = StepItems
}

func initialOf(name string) string {
	runes := []rune(name)
	if len(runes) == 0 {
		return ""
	}
	return strings.ToUpper(string(runes[0]))
}
