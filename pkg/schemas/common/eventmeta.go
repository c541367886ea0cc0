package common

type EventMeta struct {
	MessageType string // e.g. "product-enrollment"
	Exchange    string // e.g. "teller.sessions"
	RoutingKey  string // e.g. "session.{sessionId}"
}
