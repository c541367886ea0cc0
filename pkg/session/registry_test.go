package session

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roboricindustries/tellerlink/pkg/store"
)

func TestResolve_ExplicitWinsOverStored(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Put(ctx, store.KeySessionID, "stored-id"))
	r := NewRegistry(st, slog.Default())

	got, err := r.Resolve(ctx, "url-id")
	require.NoError(t, err)
	assert.Equal(t, "url-id", got)
	assert.Equal(t, "url-id", r.Active())

	// The explicit id is persisted for next startup.
	v, ok, err := st.Get(ctx, store.KeySessionID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "url-id", v)
}

func TestResolve_FallsBackToStored(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Put(ctx, store.KeySessionID, "stored-id"))
	r := NewRegistry(st, slog.Default())

	got, err := r.Resolve(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "stored-id", got)
}

func TestResolve_EmptyWhenNothingKnown(t *testing.T) {
	r := NewRegistry(store.NewMemory(), slog.Default())

	got, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, got, "caller must synthesize an id, e.g. on employee login")
}

func TestBindToEmployee_DerivesAndSwitches(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	r := NewRegistry(st, slog.Default())
	_, err := r.Resolve(ctx, "old-session")
	require.NoError(t, err)

	var switchedOld, switchedNew string
	var activeDuringSwitch string
	r.OnSwitch = func(oldID, newID string) {
		switchedOld, switchedNew = oldID, newID
		activeDuringSwitch = r.Active()
	}

	got, err := r.BindToEmployee(ctx, "e-42")
	require.NoError(t, err)
	assert.Equal(t, "employee_e-42_tablet", got)
	assert.Equal(t, "old-session", switchedOld)
	assert.Equal(t, "employee_e-42_tablet", switchedNew)
	assert.Empty(t, activeDuringSwitch,
		"no session may be active while the old topic is being torn down")
	assert.Equal(t, got, r.Active())
}

func TestBindToEmployee_SameIdIsNoOp(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(store.NewMemory(), slog.Default())
	_, err := r.BindToEmployee(ctx, "e-1")
	require.NoError(t, err)

	called := false
	r.OnSwitch = func(_, _ string) { called = true }
	_, err = r.BindToEmployee(ctx, "e-1")
	require.NoError(t, err)
	assert.False(t, called, "rebinding the same employee must not bounce the channel")
}

func TestTopicAndControlKey(t *testing.T) {
	assert.Equal(t, "session.abc", Topic("abc"))
	assert.Equal(t, "session.control", ControlKey)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	r := NewRegistry(st, slog.Default())
	_, err := r.Resolve(ctx, "s-1")
	require.NoError(t, err)

	r.Clear(ctx)
	assert.Empty(t, r.Active())
	_, ok, err := st.Get(ctx, store.KeySessionID)
	require.NoError(t, err)
	assert.False(t, ok)
}
