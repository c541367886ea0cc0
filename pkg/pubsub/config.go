package pubsub

import (
	"context"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Options defines channel config and reconnect/heartbeat policy.
type Options struct {
	URL      string
	Exchange string
	// Queue is the client-local queue name; empty means server-named.
	// Queues are exclusive and auto-delete: a channel owns its queue.
	Queue string
	// Role stamps Meta.Producer on outbound envelopes and heartbeats,
	// "employee" or "tablet".
	Role string

	Dialer func(ctx context.Context, url string) (*amqp.Connection, error)

	ReconnectBase        time.Duration // default 1s
	ReconnectCap         time.Duration // default 30s
	MaxReconnectAttempts int           // default 5
	JitterPercent        int           // default 25

	HeartbeatInterval time.Duration // 0 disables heartbeats
	HeartbeatTimeout  time.Duration // default 3x interval

	Logger *slog.Logger
	// OnStateChange observes the connected flag. Called from the channel's
	// own goroutines; keep it cheap.
	OnStateChange func(connected bool)
}

func (o *Options) withDefaults() {
	if o.Dialer == nil {
		o.Dialer = func(_ context.Context, u string) (*amqp.Connection, error) { return amqp.Dial(u) }
	}
	if o.ReconnectBase <= 0 {
		o.ReconnectBase = time.Second
	}
	if o.ReconnectCap <= 0 {
		o.ReconnectCap = 30 * time.Second
	}
	if o.MaxReconnectAttempts <= 0 {
		o.MaxReconnectAttempts = 5
	}
	if o.JitterPercent <= 0 {
		o.JitterPercent = 25
	}
	if o.HeartbeatInterval > 0 && o.HeartbeatTimeout <= 0 {
		o.HeartbeatTimeout = 3 * o.HeartbeatInterval
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}
