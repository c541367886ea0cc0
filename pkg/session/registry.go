// Package session resolves and persists the identifier pairing one employee
// client with one customer tablet.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	teller "github.com/roboricindustries/tellerlink/pkg/schemas/teller/v1"
	"github.com/roboricindustries/tellerlink/pkg/store"
)

// ControlKey carries join/registration traffic before a session-scoped
// topic is known.
const ControlKey = teller.ControlRoutingKey

// Topic maps a session id to its routing key.
func Topic(sessionID string) string {
	return teller.SessionKeyPrefix + sessionID
}

// EmployeeSessionID derives the deterministic id used when no explicit or
// stored id exists.
func EmployeeSessionID(employeeID string) string {
	return fmt.Sprintf("employee_%s_tablet", employeeID)
}

// Registry owns the single active session id for a client. Switching
// sessions always fully disconnects the old topic before the new one is
// subscribed; the OnSwitch callback runs synchronously in between.
type Registry struct {
	store store.Store
	log   *slog.Logger

	mu     sync.Mutex
	active string

	// OnSwitch is invoked with the outgoing and incoming ids after the old
	// id is retired and before the new one is considered active.
	OnSwitch func(oldID, newID string)
}

func NewRegistry(st store.Store, logger *slog.Logger) *Registry {
	return &Registry{store: st, log: logger.With("op", "session.Registry")}
}

// Resolve picks the session id: explicit parameter first, then the
// persisted value, else empty — the caller must synthesize one (e.g. via
// BindToEmployee on login).
func (r *Registry) Resolve(ctx context.Context, explicit string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if explicit != "" {
		if err := r.store.Put(ctx, store.KeySessionID, explicit); err != nil {
			r.log.Warn("persist session id failed", slog.Any("error", err))
		}
		r.active = explicit
		return explicit, nil
	}
	if stored, ok, err := r.store.Get(ctx, store.KeySessionID); err != nil {
		return "", fmt.Errorf("read stored session id: %w", err)
	} else if ok && stored != "" {
		r.active = stored
		return stored, nil
	}
	return "", nil
}

// BindToEmployee derives employee_{id}_tablet, persists it, and hands the
// old/new pair to OnSwitch so the transport can tear down and reconnect.
func (r *Registry) BindToEmployee(ctx context.Context, employeeID string) (string, error) {
	id := EmployeeSessionID(employeeID)

	r.mu.Lock()
	old := r.active
	if old == id {
		r.mu.Unlock()
		return id, nil
	}
	r.active = ""
	r.mu.Unlock()

	if err := r.store.Put(ctx, store.KeySessionID, id); err != nil {
		r.log.Warn("persist session id failed", slog.Any("error", err))
	}
	if r.OnSwitch != nil {
		r.OnSwitch(old, id)
	}

	r.mu.Lock()
	r.active = id
	r.mu.Unlock()
	r.log.Info("session bound", slog.String("session_id", id))
	return id, nil
}

func (r *Registry) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Clear forgets the active and persisted id (employee logout).
func (r *Registry) Clear(ctx context.Context) {
	r.mu.Lock()
	r.active = ""
	r.mu.Unlock()
	if err := r.store.Delete(ctx, store.KeySessionID); err != nil {
		r.log.Warn("clear session id failed", slog.Any("error", err))
	}
}
