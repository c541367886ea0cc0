package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/roboricindustries/tellerlink/pkg/schemas/common"
)

// Handler consumes one delivered envelope. Invoked in delivery order,
// exactly once per envelope, from a single goroutine.
type Handler func(ctx context.Context, env common.Envelope) error

// Publisher is the outbound half of a channel.
type Publisher interface {
	Publish(ctx context.Context, key string, env common.Envelope) error
	Close() error
}

var ErrClosed = errors.New("channel closed")

// Channel is one logical bidirectional connection to the broker. A client
// role owns exactly one live Channel at a time; session switches tear the
// old one down before creating a new one.
type Channel struct {
	opts Options
	log  *slog.Logger

	mu           sync.Mutex
	conn         *amqp.Connection
	ch           *amqp.Channel
	queue        string
	subs         map[string]Handler
	heartbeatKey string

	connected   atomic.Bool
	dormant     atomic.Bool
	closed      atomic.Bool
	lastInbound atomic.Int64 // unix nanos of the last delivery

	resume chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewChannel(opts Options) *Channel {
	opts.withDefaults()
	return &Channel{
		opts:   opts,
		log:    opts.Logger.With("op", "pubsub.Channel", slog.String("role", opts.Role)),
		subs:   make(map[string]Handler),
		resume: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Connect dials the broker with bounded exponential backoff, declares the
// topology, and starts the consume, supervisor and heartbeat loops.
func (c *Channel) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := c.dialWithRetry(ctx); err != nil {
		return err
	}
	if err := c.setup(); err != nil {
		c.teardownConn()
		return err
	}
	c.setConnected(true)

	c.wg.Add(1)
	go c.supervise(ctx)
	if c.opts.HeartbeatInterval > 0 {
		c.wg.Add(2)
		go c.heartbeatLoop(ctx)
		go c.livenessLoop()
	}
	return nil
}

// dialWithRetry tries the broker up to MaxReconnectAttempts times with
// capped exponential backoff. Respects context cancellation and Close.
func (c *Channel) dialWithRetry(ctx context.Context) error {
	var lastErr error
	for i := 1; i <= c.opts.MaxReconnectAttempts; i++ {
		conn, err := c.opts.Dialer(ctx, c.opts.URL)
		if err == nil {
			if i > 1 {
				c.log.Info("broker connected", slog.Int("attempt", i))
			}
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
			return nil
		}
		lastErr = err

		if i == c.opts.MaxReconnectAttempts {
			break
		}
		sleep := JitteredDelay(
			NextBackoff(c.opts.ReconnectBase, c.opts.ReconnectCap, i),
			c.opts.ReconnectCap,
			c.opts.JitterPercent,
		)
		c.log.Warn("broker dial failed",
			slog.Int("attempt", i),
			slog.Duration("sleep", sleep),
			slog.Any("error", err),
		)
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("dial cancelled: %w", ctx.Err())
		case <-c.done:
			timer.Stop()
			return ErrClosed
		case <-timer.C:
		}
	}
	return fmt.Errorf("failed to connect after %d attempts: %w",
		c.opts.MaxReconnectAttempts, lastErr)
}

// setup declares the exchange and the client's exclusive queue, binds all
// registered routing keys, and starts consuming.
func (c *Channel) setup() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(c.opts.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(c.opts.Queue, false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare queue: %w", err)
	}
	for key := range c.subs {
		if err := ch.QueueBind(q.Name, key, c.opts.Exchange, false, nil); err != nil {
			_ = ch.Close()
			return fmt.Errorf("bind %q: %w", key, err)
		}
	}
	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume: %w", err)
	}

	c.ch = ch
	c.queue = q.Name
	c.lastInbound.Store(time.Now().UnixNano())

	c.wg.Add(1)
	go c.consumeLoop(msgs)
	return nil
}

// consumeLoop dispatches deliveries strictly in order from one goroutine.
// A bad message is logged and skipped; it never breaks the loop.
func (c *Channel) consumeLoop(msgs <-chan amqp.Delivery) {
	defer c.wg.Done()
	for d := range msgs {
		c.lastInbound.Store(time.Now().UnixNano())

		var env common.Envelope
		if err := json.Unmarshal(d.Body, &env); err != nil {
			c.log.Warn("malformed envelope discarded",
				slog.String("key", d.RoutingKey), slog.Any("error", err))
			continue
		}
		// Heartbeats are a transport concern; they refresh liveness above
		// and are not delivered to subscribers.
		if env.Meta.Type == heartbeatType {
			continue
		}
		c.mu.Lock()
		handler := c.subs[d.RoutingKey]
		c.mu.Unlock()
		if handler == nil {
			c.log.Warn("no handler", slog.String("key", d.RoutingKey))
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := handler(ctx, env); err != nil {
			c.log.Error("handler error",
				slog.String("key", d.RoutingKey),
				slog.String("type", env.Meta.Type),
				slog.Any("error", err))
		}
		cancel()
	}
}

// supervise watches for connection loss and reconnects with bounded
// backoff. After the attempt budget is spent the channel goes dormant
// until Resume is called.
func (c *Channel) supervise(ctx context.Context) {
	defer c.wg.Done()
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}
		errCh := conn.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if c.closed.Load() {
				return
			}
			if !ok {
				err = &amqp.Error{Reason: "connection closed"}
			}
			c.log.Error("connection lost, reconnecting", slog.Any("error", err))
			c.setConnected(false)
		}

		for {
			if derr := c.dialWithRetry(ctx); derr != nil {
				if errors.Is(derr, ErrClosed) || ctx.Err() != nil {
					return
				}
				// Attempt budget spent: go dormant until an external
				// trigger (connectivity restored) resumes us.
				c.dormant.Store(true)
				c.log.Warn("reconnect attempts exhausted, going dormant")
				select {
				case <-c.done:
					return
				case <-ctx.Done():
					return
				case <-c.resume:
					c.dormant.Store(false)
					c.log.Info("reconnect resumed")
					continue
				}
			}
			if serr := c.setup(); serr != nil {
				c.log.Error("re-setup failed", slog.Any("error", serr))
				c.teardownConn()
				continue
			}
			c.setConnected(true)
			break
		}
	}
}

// Resume wakes a dormant channel so it retries with a fresh attempt budget.
// No-op unless the channel stopped retrying.
func (c *Channel) Resume() {
	if !c.dormant.Load() {
		return
	}
	select {
	case c.resume <- struct{}{}:
	default:
	}
}

func (c *Channel) Connected() bool { return c.connected.Load() }

func (c *Channel) setConnected(v bool) {
	if c.connected.Swap(v) == v {
		return
	}
	if c.opts.OnStateChange != nil {
		c.opts.OnStateChange(v)
	}
}

// Subscribe registers a handler for one routing key. Safe to call before
// Connect; bindings are (re)applied on every successful setup.
func (c *Channel) Subscribe(key string, handler Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[key] = handler
	if c.ch != nil && c.connected.Load() {
		if err := c.ch.QueueBind(c.queue, key, c.opts.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind %q: %w", key, err)
		}
	}
	return nil
}

// Unsubscribe drops the handler and unbinds the key if live.
func (c *Channel) Unsubscribe(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, key)
	if c.ch != nil && c.connected.Load() {
		if err := c.ch.QueueUnbind(c.queue, key, c.opts.Exchange, nil); err != nil {
			c.log.Warn("unbind failed", slog.String("key", key), slog.Any("error", err))
		}
	}
}

// Publish sends one envelope to the session topic. While disconnected the
// publish is dropped with a warning, never an error: the next equivalent
// teller action re-triggers it.
func (c *Channel) Publish(ctx context.Context, key string, env common.Envelope) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if !c.connected.Load() {
		c.log.Warn("publish skipped: channel inactive",
			slog.String("key", key), slog.String("type", env.Meta.Type))
		return nil
	}

	if env.Meta.ID == "" {
		env.Meta.ID = uuid.NewString()
	}
	if env.Meta.CorrelationID == "" {
		env.Meta.CorrelationID = env.Meta.ID
	}
	if env.Meta.Time.IsZero() {
		env.Meta.Time = time.Now().UTC()
	}
	if env.Meta.Producer == "" {
		env.Meta.Producer = c.opts.Role
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	c.mu.Lock()
	ch := c.ch
	c.mu.Unlock()
	if ch == nil {
		c.log.Warn("publish skipped: channel inactive", slog.String("key", key))
		return nil
	}

	err = ch.PublishWithContext(ctx, c.opts.Exchange, key, false, false,
		amqp.Publishing{
			ContentType:   "application/json",
			MessageId:     env.Meta.ID,
			CorrelationId: env.Meta.CorrelationID,
			Type:          env.Meta.Type,
			AppId:         env.Meta.Producer,
			Timestamp:     env.Meta.Time,
			Body:          body,
		},
	)
	if err != nil {
		// Treated like publish-while-disconnected: logged, not surfaced.
		c.log.Warn("publish failed",
			slog.String("key", key), slog.String("type", env.Meta.Type), slog.Any("error", err))
		return nil
	}
	return nil
}

func (c *Channel) teardownConn() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.ch = nil
	c.mu.Unlock()
	if conn != nil && !conn.IsClosed() {
		_ = conn.Close()
	}
}

// Close tears the channel down: pending reconnect timers are cancelled,
// loops drain, the connection closes. The channel cannot be reused.
func (c *Channel) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)
	c.setConnected(false)
	c.teardownConn()
	c.wg.Wait()
	return nil
}
