package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/roboricindustries/tellerlink/pkg/schemas/common"
	teller "github.com/roboricindustries/tellerlink/pkg/schemas/teller/v1"
)

const heartbeatType = string(teller.TypeParticipantHeartbeat)

// SetHeartbeatKey names the routing key liveness pings are published on,
// normally the session topic. Heartbeats start on the next tick.
func (c *Channel) SetHeartbeatKey(key string) {
	c.mu.Lock()
	c.heartbeatKey = key
	c.mu.Unlock()
}

func (c *Channel) heartbeatLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			key := c.heartbeatKey
			c.mu.Unlock()
			if key == "" || !c.connected.Load() {
				continue
			}
			beat := teller.ParticipantHeartbeatV1{Role: c.opts.Role, At: time.Now().UTC()}
			data, _ := json.Marshal(beat)
			env := common.Envelope{
				Meta: common.Meta{Type: heartbeatType},
				Data: data,
			}
			_ = c.Publish(ctx, key, env)
		}
	}
}

// livenessLoop treats inbound silence beyond HeartbeatTimeout as a dead
// connection and forces a reconnect cycle.
func (c *Channel) livenessLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if !c.connected.Load() {
				continue
			}
			last := time.Unix(0, c.lastInbound.Load())
			if silence := time.Since(last); silence > c.opts.HeartbeatTimeout {
				c.log.Warn("no inbound traffic, forcing reconnect",
					slog.Duration("silence", silence))
				c.teardownConn()
			}
		}
	}
}
