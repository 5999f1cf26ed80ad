package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steward/internal/api"
	"steward/internal/config"
	"steward/internal/state"
)

// countingExecutor records every dispatch so tests can prove a path never
// reached the platform layer.
type countingExecutor struct {
	calls   int
	lastCmd string
	lastCtx *api.HandlerContext
	result  *api.Result
	err     error
}

func (e *countingExecutor) Execute(ctx context.Context, command string, hctx *api.HandlerContext) (*api.Result, error) {
	e.calls++
	e.lastCmd = command
	e.lastCtx = hctx
	if e.result == nil && e.err == nil {
		return &api.Result{Success: true, Status: api.StatusRunning}, nil
	}
	return e.result, e.err
}

func newTestService(t *testing.T, cfg config.ServiceConfig, exec Executor, hooks Hooks) (*Service, *state.Store) {
	t.Helper()
	store := state.NewStore(config.NewStorageWithPath(t.TempDir()))
	identity := api.ServiceIdentity{
		ProjectRoot: "/tmp/project",
		Environment: "local",
		Service:     "web",
		Platform:    api.PlatformProcess,
	}
	return New(identity, cfg, exec, store, hooks), store
}

func webConfig() config.ServiceConfig {
	return config.ServiceConfig{Type: "web", Port: 3000}
}

func TestRun_DryRunNeverDispatches(t *testing.T) {
	exec := &countingExecutor{}
	svc, _ := newTestService(t, webConfig(), exec, Hooks{})

	for _, command := range api.Commands() {
		result, err := svc.Run(context.Background(), command, Options{DryRun: true})
		require.NoError(t, err, command)
		assert.True(t, result.Success, command)
		assert.Equal(t, true, result.Metadata["dryRun"], command)
	}
	assert.Equal(t, 0, exec.calls, "dry-run must never reach the dispatch layer")
}

func TestRun_CapabilityGate(t *testing.T) {
	exec := &countingExecutor{}
	svc, _ := newTestService(t, webConfig(), exec, Hooks{})

	_, err := svc.Run(context.Background(), api.CommandBackup, Options{})
	require.Error(t, err)
	assert.True(t, api.IsUnsupported(err))
	assert.Equal(t, 0, exec.calls)
}

func TestRun_StartPersistsState(t *testing.T) {
	exec := &countingExecutor{result: &api.Result{
		Success:   true,
		Status:    api.StatusRunning,
		Resources: api.NewProcessRef(4242, 3000),
		Endpoint:  "http://localhost:3000",
	}}
	svc, store := newTestService(t, webConfig(), exec, Hooks{})

	result, err := svc.Run(context.Background(), api.CommandStart, Options{})
	require.NoError(t, err)
	require.True(t, result.Success)

	saved, err := store.Load(svc.Identity())
	require.NoError(t, err)
	assert.Equal(t, 4242, saved.Resources.Process.PID)
	assert.Equal(t, "http://localhost:3000", saved.Endpoint)
}

func TestRun_FailedStartPersistsNothing(t *testing.T) {
	exec := &countingExecutor{result: &api.Result{Success: false, Status: api.StatusUnknown, Error: "spawn failed"}}
	svc, store := newTestService(t, webConfig(), exec, Hooks{})

	result, err := svc.Run(context.Background(), api.CommandStart, Options{})
	require.NoError(t, err)
	require.False(t, result.Success)

	_, err = store.Load(svc.Identity())
	assert.True(t, api.IsNotFound(err))
}

func TestRun_StopClearsState(t *testing.T) {
	exec := &countingExecutor{result: &api.Result{Success: true, Status: api.StatusStopped}}
	svc, store := newTestService(t, webConfig(), exec, Hooks{})
	require.NoError(t, store.Save(svc.Identity(), &api.ServiceState{Resources: *api.NewProcessRef(4242, 0)}))

	_, err := svc.Run(context.Background(), api.CommandStop, Options{})
	require.NoError(t, err)

	_, err = store.Load(svc.Identity())
	assert.True(t, api.IsNotFound(err))
}

func TestRun_CheckAttachesClassification(t *testing.T) {
	t.Run("verified for the recorded instance", func(t *testing.T) {
		exec := &countingExecutor{result: &api.Result{
			Success:   true,
			Status:    api.StatusRunning,
			Resources: api.NewProcessRef(4242, 0),
		}}
		svc, store := newTestService(t, webConfig(), exec, Hooks{})
		require.NoError(t, store.Save(svc.Identity(), &api.ServiceState{Resources: *api.NewProcessRef(4242, 0)}))

		result, err := svc.Run(context.Background(), api.CommandCheck, Options{})
		require.NoError(t, err)
		assert.Equal(t, string(state.Verified), result.Metadata["stateClassification"])
		assert.NotContains(t, result.Metadata, "driftWarning")
	})

	t.Run("drift carries a warning", func(t *testing.T) {
		exec := &countingExecutor{result: &api.Result{
			Success:   true,
			Status:    api.StatusRunning,
			Resources: api.NewProcessRef(9999, 0),
		}}
		svc, store := newTestService(t, webConfig(), exec, Hooks{})
		require.NoError(t, store.Save(svc.Identity(), &api.ServiceState{Resources: *api.NewProcessRef(4242, 0)}))

		result, err := svc.Run(context.Background(), api.CommandCheck, Options{})
		require.NoError(t, err)
		assert.Equal(t, string(state.Mismatch), result.Metadata["stateClassification"])
		assert.Contains(t, result.Metadata, "driftWarning")
	})
}

func TestRun_Hooks(t *testing.T) {
	t.Run("a failing pre-hook aborts before dispatch", func(t *testing.T) {
		exec := &countingExecutor{}
		svc, _ := newTestService(t, webConfig(), exec, Hooks{
			Pre: func(ctx context.Context, command string, identity api.ServiceIdentity) error {
				return errors.New("denied")
			},
		})
		_, err := svc.Run(context.Background(), api.CommandStart, Options{})
		require.Error(t, err)
		assert.Equal(t, 0, exec.calls)
	})

	t.Run("a failing post-hook decorates the result instead of failing it", func(t *testing.T) {
		exec := &countingExecutor{}
		svc, _ := newTestService(t, webConfig(), exec, Hooks{
			Post: func(ctx context.Context, command string, identity api.ServiceIdentity) error {
				return errors.New("notify failed")
			},
		})
		result, err := svc.Run(context.Background(), api.CommandCheck, Options{})
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "notify failed", result.Metadata["postHookError"])
	})

	t.Run("hooks see the command and identity", func(t *testing.T) {
		var gotCommand string
		var gotService string
		exec := &countingExecutor{}
		svc, _ := newTestService(t, webConfig(), exec, Hooks{
			Pre: func(ctx context.Context, command string, identity api.ServiceIdentity) error {
				gotCommand = command
				gotService = identity.Service
				return nil
			},
		})
		_, err := svc.Run(context.Background(), api.CommandCheck, Options{})
		require.NoError(t, err)
		assert.Equal(t, api.CommandCheck, gotCommand)
		assert.Equal(t, "web", gotService)
	})
}

func TestRun_HandlerContextContents(t *testing.T) {
	exec := &countingExecutor{}
	cfg := webConfig()
	cfg.Command = []string{"npm", "start"}
	svc, store := newTestService(t, cfg, exec, Hooks{})
	require.NoError(t, store.Save(svc.Identity(), &api.ServiceState{Resources: *api.NewProcessRef(4242, 0)}))

	_, err := svc.Run(context.Background(), api.CommandExec, Options{ExecArgs: []string{"env"}, Verbose: true})
	require.NoError(t, err)

	hctx := exec.lastCtx
	require.NotNil(t, hctx)
	assert.Equal(t, "web", hctx.ServiceType)
	assert.Equal(t, []string{"npm", "start"}, hctx.ServiceConfig["command"])
	assert.Equal(t, []string{"env"}, hctx.ExecArgs)
	assert.True(t, hctx.Verbose)
	require.NotNil(t, hctx.SavedState, "the saved record is handed to handlers")
	assert.Equal(t, 4242, hctx.SavedState.Resources.Process.PID)
	require.NotNil(t, hctx.Requirements.Network)
	assert.Equal(t, []int{3000}, hctx.Requirements.Network.Ports)
}
