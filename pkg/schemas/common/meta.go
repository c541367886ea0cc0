package common

import "time"

type Meta struct {
	// Trace / request correlation ID
	CorrelationID string `json:"correlation_id,omitempty"`
	// Unique message ID
	ID string `json:"id"`
	// Emitting role, "employee" or "tablet"
	Producer string `json:"producer,omitempty"`
	// Timestamp when the message was emitted. Display and the recency
	// guard only; never used for ordering.
	Time time.Time `json:"time"`
	// Message name, e.g. "product-enrollment"
	Type string `json:"type"`
}
