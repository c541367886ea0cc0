package teller

import "time"

type ConsentField struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

type PrivacyConsentV1 struct {
	Title   string         `json:"title"`
	Content string         `json:"content"`
	Fields  []ConsentField `json:"fields,omitempty"`
}

// PrivacyConsentResponseV1 flows tablet→employee once the customer decides.
type PrivacyConsentResponseV1 struct {
	Accepted bool      `json:"accepted"`
	Keys     []string  `json:"keys,omitempty"`
	At       time.Time `json:"at"`
}
