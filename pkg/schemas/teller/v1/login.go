package teller

// CustomerLoginStartV1 announces that the teller began identifying a
// customer; the tablet may show a greeting before the full profile lands.
type CustomerLoginStartV1 struct {
	Customer Customer `json:"customer"`
}

type CustomerLoginV1 struct {
	Customer Customer `json:"customer"`
}

// CustomerLogoutV1 ends the pairing; the receiver performs a full reset and
// the session topic is torn down.
type CustomerLogoutV1 struct {
	Reason string `json:"reason,omitempty"`
}
