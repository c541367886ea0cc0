package teller

import (
	"encoding/json"
	"errors"
)

// ScreenUpdatedV1 wraps one inner message of another known type. Nesting is
// bounded to a single level: an inner screen-updated is rejected, never
// unwrapped recursively.
type ScreenUpdatedV1 struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

var ErrNestedScreenUpdate = errors.New("screen-updated may not wrap another screen-updated")

// Unwrap resolves the inner payload. Returns the inner type alongside so the
// caller can dispatch on it directly.
func (s *ScreenUpdatedV1) Unwrap() (MessageType, any, error) {
	if s.Type == TypeScreenUpdated {
		return s.Type, nil, ErrNestedScreenUpdate
	}
	payload, err := DecodePayload(s.Type, s.Data)
	if err != nil {
		return s.Type, nil, err
	}
	return s.Type, payload, nil
}

type ResetToMainV1 struct{}
