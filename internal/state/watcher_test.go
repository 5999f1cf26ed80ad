package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steward/internal/api"
)

func waitForChange(t *testing.T, changes <-chan ChangeEvent) ChangeEvent {
	t.Helper()
	select {
	case evt := <-changes:
		return evt
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a change event")
		return ChangeEvent{}
	}
}

func TestWatcher(t *testing.T) {
	store := newTestStore(t)
	identity := testIdentity("web")

	// The state directory must exist before it can be watched.
	require.NoError(t, store.Save(identity, &api.ServiceState{Resources: *api.NewProcessRef(42, 0)}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWatcher(store, identity.Environment, 20*time.Millisecond)
	changes := make(chan ChangeEvent, 8)
	require.NoError(t, w.Start(ctx, changes))
	defer w.Stop()

	t.Run("writes are reported per service", func(t *testing.T) {
		require.NoError(t, store.Save(identity, &api.ServiceState{Resources: *api.NewProcessRef(43, 0)}))

		evt := waitForChange(t, changes)
		assert.Equal(t, OperationWrite, evt.Operation)
		assert.Equal(t, "web", evt.Service)
		assert.Equal(t, identity.Environment, evt.Environment)
	})

	t.Run("deletes are reported", func(t *testing.T) {
		// Drain any residue of the previous write burst.
		for {
			select {
			case <-changes:
				continue
			case <-time.After(100 * time.Millisecond):
			}
			break
		}
		require.NoError(t, store.Clear(identity))

		evt := waitForChange(t, changes)
		assert.Equal(t, OperationDelete, evt.Operation)
		assert.Equal(t, "web", evt.Service)
	})

	t.Run("starting twice is a no-op", func(t *testing.T) {
		assert.NoError(t, w.Start(ctx, changes))
	})
}

func TestWatcherRequiresTheStateDirectory(t *testing.T) {
	store := newTestStore(t)
	w := NewWatcher(store, "ghost-env", 0)
	err := w.Start(context.Background(), make(chan ChangeEvent, 1))
	assert.Error(t, err)
}
