package state

import (
	"time"

	teller "github.com/roboricindustries/tellerlink/pkg/schemas/teller/v1"
)

// TabletState is the receiver's local projection. The Machine is its only
// mutator; everyone else reads copies via Machine.State().
type TabletState struct {
	CurrentPage Page

	Customer                *teller.Customer
	LoggedIn                bool
	PrivacyConsentProcessed bool

	CurrentProduct   *teller.Product
	SimulationAmount float64
	SimulationPeriod int

	Forms            []teller.FormDescriptor
	CurrentForm      *teller.FormDescriptor
	CurrentFormIndex int

	// FieldValues accumulates form input keyed by field id; the same id
	// always means the same logical datum, so values auto-fill across forms.
	FieldValues map[string]string

	FocusedField     *teller.FieldDescriptor
	IsFieldInputMode bool

	// LastEnrollmentAt feeds the 5s recency guard on visualization syncs.
	LastEnrollmentAt time.Time
	// EnrollmentLockedUntil marks the 30s window after a product-enrollment
	// message during which screen/visualization syncs are suppressed.
	EnrollmentLockedUntil time.Time
}

func newTabletState() TabletState {
	return TabletState{
		CurrentPage: PageWelcome,
		FieldValues: make(map[string]string),
	}
}

// clone returns a copy safe to hand out; the field-value map is copied.
func (s TabletState) clone() TabletState {
	out := s
	out.FieldValues = make(map[string]string, len(s.FieldValues))
	for k, v := range s.FieldValues {
		out.FieldValues[k] = v
	}
	return out
}
