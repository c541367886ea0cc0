package state

import (
	"time"

	teller "github.com/roboricindustries/tellerlink/pkg/schemas/teller/v1"
)

const (
	// EnrollmentLockWindow suppresses screen/visualization syncs after a
	// product-enrollment message so they cannot override the in-progress
	// enrollment flow.
	EnrollmentLockWindow = 30 * time.Second
	// VisualizationRecencyWindow drops a visualization sync that arrives
	// just after enrollment started; a slightly-stale update would visually
	// revert the tablet.
	VisualizationRecencyWindow = 5 * time.Second
)

// consentAllowed lists the only message types dispatched before the
// customer has processed the privacy consent.
var consentAllowed = map[teller.MessageType]bool{
	teller.TypeCustomerLoginStart: true,
	teller.TypeCustomerLogin:      true,
	teller.TypeTabletConnected:    true,
	teller.TypeParticipantJoined:  true,
}

// enrollmentSuppressed lists the screen/visualization sync types dominated
// by an active enrollment workflow.
var enrollmentSuppressed = map[teller.MessageType]bool{
	teller.TypeProductSelected:          true,
	teller.TypeProductDetailSync:        true,
	teller.TypeProductVisualizationSync: true,
}

// Suppression reasons, surfaced through the OnSuppressed hook and logs.
const (
	ReasonConsentPending  = "privacy consent not processed"
	ReasonEnrollmentLock  = "enrollment in progress"
	ReasonRecencyWindow   = "stale visualization sync after enrollment"
	ReasonNestedEnvelope  = "nested screen-updated ignored"
	ReasonUnknownType     = "unknown message type"
	ReasonInvalidContract = "invalid payload"
)

func (m *Machine) enrollmentLocked(now time.Time) bool {
	if m.st.CurrentPage == PageProductEnrollment {
		return true
	}
	return !m.st.EnrollmentLockedUntil.IsZero() && now.Before(m.st.EnrollmentLockedUntil)
}

func (m *Machine) recencyBlocked(now time.Time) bool {
	if m.st.LastEnrollmentAt.IsZero() {
		return false
	}
	return now.Sub(m.st.LastEnrollmentAt) < VisualizationRecencyWindow
}
