package teller

import "time"

// TabletConnectedV1 is published by the tablet on the control routing key
// once it has subscribed to its session topic.
type TabletConnectedV1 struct {
	SessionID string `json:"session_id"`
}

type ParticipantJoinedV1 struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role"` // "employee" | "tablet"
}

type ParticipantHeartbeatV1 struct {
	Role string    `json:"role"`
	At   time.Time `json:"at"`
}
