package pubsub

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roboricindustries/tellerlink/pkg/schemas/common"
)

func TestNextBackoff_NonDecreasingUpToCap(t *testing.T) {
	base := time.Second
	cap := 30 * time.Second

	var prev time.Duration
	for attempt := 1; attempt <= 10; attempt++ {
		d := NextBackoff(base, cap, attempt)
		assert.GreaterOrEqual(t, d, prev, "delay must never shrink")
		assert.LessOrEqual(t, d, cap, "delay must respect the cap")
		prev = d
	}
	assert.Equal(t, time.Second, NextBackoff(base, cap, 1))
	assert.Equal(t, 2*time.Second, NextBackoff(base, cap, 2))
	assert.Equal(t, cap, NextBackoff(base, cap, 8))
}

func TestJitteredDelay_StaysWithinCap(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := JitteredDelay(20*time.Second, 25*time.Second, 50)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 25*time.Second)
	}
}

func TestConnect_BoundedRetryAttempts(t *testing.T) {
	var dials atomic.Int32
	ch := NewChannel(Options{
		URL:      "amqp://test",
		Exchange: "teller.sessions",
		Dialer: func(_ context.Context, _ string) (*amqp.Connection, error) {
			dials.Add(1)
			return nil, errors.New("refused")
		},
		ReconnectBase:        time.Millisecond,
		ReconnectCap:         4 * time.Millisecond,
		MaxReconnectAttempts: 5,
		Logger:               slog.Default(),
	})
	defer ch.Close()

	err := ch.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(5), dials.Load(), "retry bound must hold")
	assert.False(t, ch.Connected())
}

func TestConnect_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var dials atomic.Int32
	ch := NewChannel(Options{
		URL:      "amqp://test",
		Exchange: "teller.sessions",
		Dialer: func(_ context.Context, _ string) (*amqp.Connection, error) {
			if dials.Add(1) == 1 {
				cancel()
			}
			return nil, errors.New("refused")
		},
		ReconnectBase:        50 * time.Millisecond,
		MaxReconnectAttempts: 5,
		Logger:               slog.Default(),
	})
	defer ch.Close()

	err := ch.Connect(ctx)
	require.Error(t, err)
	assert.LessOrEqual(t, dials.Load(), int32(2))
}

func TestPublish_WhileDisconnectedIsDroppedNotError(t *testing.T) {
	ch := NewChannel(Options{
		URL:      "amqp://test",
		Exchange: "teller.sessions",
		Logger:   slog.Default(),
	})
	defer ch.Close()

	err := ch.Publish(context.Background(), "session.s-1", common.Envelope{
		Meta: common.Meta{Type: "product-selected"},
	})
	assert.NoError(t, err, "publish while disconnected is a logged no-op")
}

func TestPublish_AfterCloseFails(t *testing.T) {
	ch := NewChannel(Options{URL: "amqp://test", Exchange: "x", Logger: slog.Default()})
	require.NoError(t, ch.Close())

	err := ch.Publish(context.Background(), "session.s-1", common.Envelope{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestResume_NoOpWhenNotDormant(t *testing.T) {
	ch := NewChannel(Options{URL: "amqp://test", Exchange: "x", Logger: slog.Default()})
	defer ch.Close()
	ch.Resume() // must not panic or block
}

func TestSubscribeBeforeConnectRegisters(t *testing.T) {
	ch := NewChannel(Options{URL: "amqp://test", Exchange: "x", Logger: slog.Default()})
	defer ch.Close()

	require.NoError(t, ch.Subscribe("session.s-1", func(context.Context, common.Envelope) error {
		return nil
	}))
	ch.Unsubscribe("session.s-1")
}
