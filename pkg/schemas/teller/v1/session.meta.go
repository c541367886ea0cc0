package teller

import "github.com/roboricindustries/tellerlink/pkg/schemas/common"

const (
	Exchange          = "teller.sessions"
	SessionKeyPrefix  = "session."
	ControlRoutingKey = "session.control"
)

// SessionRouteMeta describes the shared route every session-scoped message
// travels; the concrete key substitutes the session id.
var SessionRouteMeta = common.EventMeta{
	MessageType: "session.*",
	Exchange:    Exchange,
	RoutingKey:  SessionKeyPrefix + "{sessionId}",
}
