package teller

import "time"

type FieldFocusV1 struct {
	FieldID    string `json:"field_id"`
	FieldLabel string `json:"field_label,omitempty"`
	FieldType  string `json:"field_type,omitempty"`
	FormIndex  int    `json:"form_index"`
	FormName   string `json:"form_name,omitempty"`
	// PrefillValue carries a previously captured value for the same field id.
	PrefillValue string `json:"prefill_value,omitempty"`
}

func (f *FieldFocusV1) Validate() error {
	var verr ValidationError
	if f.FieldID == "" {
		verr.add("field_id", "required")
	}
	if len(verr.Issues) > 0 {
		return &verr
	}
	return nil
}

// FieldInputCompleteV1 flows tablet→employee; authoritative value for the field.
type FieldInputCompleteV1 struct {
	FieldID    string    `json:"field_id"`
	FieldValue string    `json:"field_value"`
	FieldName  string    `json:"field_name,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// FieldInputSyncV1 is a live keystroke preview, not authoritative.
type FieldInputSyncV1 struct {
	FieldID string `json:"field_id"`
	Value   string `json:"value"`
}
