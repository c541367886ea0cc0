package teller

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roboricindustries/tellerlink/pkg/schemas/common"
)

// ErrUnknownType marks an envelope whose type is outside the taxonomy.
// Consumers treat it as a no-op, not a failure.
var ErrUnknownType = errors.New("unknown message type")

// payloads maps each message type to a factory for its payload struct.
// A closed registry instead of an open-ended switch: dispatch and decoding
// share one source of truth.
var payloads = map[MessageType]func() any{
	TypeCustomerLoginStart:     func() any { return &CustomerLoginStartV1{} },
	TypeCustomerLogin:          func() any { return &CustomerLoginV1{} },
	TypeCustomerLogout:         func() any { return &CustomerLogoutV1{} },
	TypePrivacyConsent:         func() any { return &PrivacyConsentV1{} },
	TypePrivacyConsentResponse: func() any { return &PrivacyConsentResponseV1{} },

	TypeProductSelected:          func() any { return &ProductSelectedV1{} },
	TypeProductDetailSync:        func() any { return &ProductDetailSyncV1{} },
	TypeProductVisualizationSync: func() any { return &ProductVisualizationSyncV1{} },

	TypeProductEnrollment:   func() any { return &ProductEnrollmentV1{} },
	TypeFormNavigation:      func() any { return &FormNavigationV1{} },
	TypeFieldFocus:          func() any { return &FieldFocusV1{} },
	TypeFieldInputComplete:  func() any { return &FieldInputCompleteV1{} },
	TypeFieldInputSync:      func() any { return &FieldInputSyncV1{} },
	TypeEnrollmentCompleted: func() any { return &EnrollmentCompletedV1{} },

	TypeProductAnalysis:      func() any { return &ProductAnalysisV1{} },
	TypeShowComparison:       func() any { return &ProductAnalysisV1{} },
	TypeProductAnalysisClose: func() any { return &ProductAnalysisCloseV1{} },

	TypeScreenUpdated: func() any { return &ScreenUpdatedV1{} },
	TypeResetToMain:   func() any { return &ResetToMainV1{} },

	TypeTabletConnected:      func() any { return &TabletConnectedV1{} },
	TypeParticipantJoined:    func() any { return &ParticipantJoinedV1{} },
	TypeParticipantHeartbeat: func() any { return &ParticipantHeartbeatV1{} },
}

// Known reports whether t is part of the taxonomy.
func Known(t MessageType) bool {
	_, ok := payloads[t]
	return ok
}

// DecodePayload unmarshals raw data into the payload struct for t.
func DecodePayload(t MessageType, data json.RawMessage) (any, error) {
	factory, ok := payloads[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	payload := factory()
	if len(data) > 0 {
		if err := json.Unmarshal(data, payload); err != nil {
			return nil, fmt.Errorf("decode %s: %w", t, err)
		}
	}
	return payload, nil
}

// Decode resolves an envelope to its typed payload.
func Decode(env common.Envelope) (MessageType, any, error) {
	t := MessageType(env.Meta.Type)
	payload, err := DecodePayload(t, env.Data)
	return t, payload, err
}
