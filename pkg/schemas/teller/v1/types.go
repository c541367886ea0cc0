package teller

// MessageType discriminates envelope payloads. The set is closed: anything
// not listed here lands in the consumer's default no-op branch.
type MessageType string

const (
	TypeCustomerLoginStart MessageType = "customer-login-start"
	TypeCustomerLogin      MessageType = "customer-login"
	TypeCustomerLogout     MessageType = "customer-logout"

	TypePrivacyConsent         MessageType = "privacy-consent"
	TypePrivacyConsentResponse MessageType = "privacy-consent-response"

	TypeProductSelected          MessageType = "product-selected"
	TypeProductDetailSync        MessageType = "product-detail-sync"
	TypeProductVisualizationSync MessageType = "product-visualization-sync"

	TypeProductEnrollment   MessageType = "product-enrollment"
	TypeFormNavigation      MessageType = "form-navigation"
	TypeFieldFocus          MessageType = "field-focus"
	TypeFieldInputComplete  MessageType = "field-input-complete"
	TypeFieldInputSync      MessageType = "field-input-sync"
	TypeEnrollmentCompleted MessageType = "enrollment-completed"

	TypeProductAnalysis      MessageType = "product-analysis"
	TypeShowComparison       MessageType = "show-comparison"
	TypeProductAnalysisClose MessageType = "product-analysis-close"

	TypeScreenUpdated MessageType = "screen-updated"
	TypeResetToMain   MessageType = "reset-to-main"

	TypeTabletConnected      MessageType = "tablet-connected"
	TypeParticipantJoined    MessageType = "participant-joined"
	TypeParticipantHeartbeat MessageType = "participant-heartbeat"
)
