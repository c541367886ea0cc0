package pubsub

import (
	"context"
	"log/slog"

	"github.com/roboricindustries/tellerlink/pkg/schemas/common"
)

// FallbackPublisher satisfies Publisher when no broker is reachable at all
// (kiosk demo mode, tests). Every publish is skipped with a warning.
type FallbackPublisher struct {
	log *slog.Logger
}

func (p *FallbackPublisher) Publish(ctx context.Context, key string, msg common.Envelope) error {
	p.log.Warn("FallbackPublisher: skipped publish",
		slog.String("key", key), slog.String("type", msg.Meta.Type))
	return nil
}

func (p *FallbackPublisher) Close() error {
	return nil
}

func NewFallback(logger *slog.Logger) Publisher {
	return &FallbackPublisher{log: logger}
}
