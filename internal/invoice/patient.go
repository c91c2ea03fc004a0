package invoice

import (
	"strings"

	"pharmadesk/m/domain"
)

// Sentinel identity used when an order resolves without explicit
// patient details.
const (
	WalkInName   = "Walk-in Guest"
	WalkInMobile = "00000000000"
)

type PatientMode string

const (
	ModeExisting PatientMode = "existing"
	ModeNew      PatientMode = "new"
)

// NewPatientForm is the transient ad-hoc patient form captured during
// invoicing.
type NewPatientForm struct {
	Name            string `json:"name"`
	Age             string `json:"age,omitempty"`
	Phone           string `json:"phone"`
	Source          string `json:"source,omitempty"`
	Division        string `json:"division,omitempty"`
	District        string `json:"district,omitempty"`
	Thana           string `json:"thana,omitempty"`
	Area            string `json:"area,omitempty"`
	DeliveryAddress string `json:"delivery_address,omitempty"`
}

// PatientContext binds an order to either an existing patient record
// or the new-patient form. Exactly one mode is active at a time, but
// switching modes keeps the inactive side's data so the operator can
// toggle back without losing input.
type PatientContext struct {
	mode     PatientMode
	existing *domain.Patient
	form     NewPatientForm
}

func NewPatientContext() PatientContext {
	return PatientContext{mode: ModeNew}
}

func (c *PatientContext) Mode() PatientMode {
	return c.mode
}

func (c *PatientContext) SetMode(mode PatientMode) bool {
	if mode != ModeExisting && mode != ModeNew {
		return false
	}
	c.mode = mode
	return true
}

// SelectExisting binds the context to a patient record and activates
// existing mode.
func (c *PatientContext) SelectExisting(p domain.Patient) {
	c.existing = &p
	c.mode = ModeExisting
}

// UpdateForm replaces the new-patient form and activates new mode.
func (c *PatientContext) UpdateForm(form NewPatientForm) {
	c.form = form
	c.mode = ModeNew
}

func (c *PatientContext) Form() NewPatientForm {
	return c.form
}

// Existing returns a copy of the selected patient, or nil when none is
// selected.
func (c *PatientContext) Existing() *domain.Patient {
	if c.existing == nil {
		return nil
	}
	p := *c.existing
	return &p
}

// Identity returns the raw (name, mobile) of the active mode, without
// sentinel fallbacks. Used by confirmation validation.
func (c *PatientContext) Identity() (string, string) {
	if c.mode == ModeExisting {
		if c.existing == nil {
			return "", ""
		}
		return c.existing.Name, c.existing.Mobile
	}
	return strings.TrimSpace(c.form.Name), strings.TrimSpace(c.form.Phone)
}

// ResolveIdentity returns a display identity that is guaranteed
// non-empty, substituting the walk-in sentinels where needed.
func (c *PatientContext) ResolveIdentity() (string, string) {
	name, mobile := c.Identity()
	if name == "" {
		name = WalkInName
	}
	if mobile == "" {
		mobile = WalkInMobile
	}
	return name, mobile
}

func (c *PatientContext) Reset() {
	*c = NewPatientContext()
}
