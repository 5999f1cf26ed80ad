package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steward/internal/api"
	"steward/internal/config"
	"steward/internal/service"
	"steward/internal/state"
)

// recordingExecutor tracks the services dispatched to it and can be told to
// fail specific ones.
type recordingExecutor struct {
	dispatched []string
	failFor    map[string]error
	resultFor  map[string]*api.Result
}

func (e *recordingExecutor) Execute(ctx context.Context, command string, hctx *api.HandlerContext) (*api.Result, error) {
	e.dispatched = append(e.dispatched, hctx.Identity.Service)
	if err := e.failFor[hctx.Identity.Service]; err != nil {
		return nil, err
	}
	if r := e.resultFor[hctx.Identity.Service]; r != nil {
		return r, nil
	}
	return &api.Result{Success: true, Status: api.StatusRunning}, nil
}

func testEnvironment() *config.EnvironmentConfig {
	return &config.EnvironmentConfig{
		Name:       "local",
		Deployment: config.DeploymentConfig{Default: api.PlatformProcess},
		Services: map[string]config.ServiceConfig{
			"web":    {Type: "web", Port: 3000},
			"api":    {Type: "api", Port: 4000},
			"worker": {Type: "worker"},
			"db":     {Type: "database", Port: 5432},
		},
	}
}

func newTestOrchestrator(t *testing.T, env *config.EnvironmentConfig, exec service.Executor) *Orchestrator {
	t.Helper()
	store := state.NewStore(config.NewStorageWithPath(t.TempDir()))
	strategies := map[api.Platform]service.Executor{api.PlatformProcess: exec}
	return New("/tmp/project", env, store, strategies, service.Hooks{})
}

func TestExpandSelector(t *testing.T) {
	o := newTestOrchestrator(t, testEnvironment(), &recordingExecutor{})

	t.Run("all expands to every service for universal commands", func(t *testing.T) {
		assert.Equal(t, []string{"api", "db", "web", "worker"}, o.ExpandSelector(api.CommandStart, nil))
		assert.Equal(t, []string{"api", "db", "web", "worker"}, o.ExpandSelector(api.CommandStart, []string{SelectorAll}))
	})

	t.Run("all is filtered by capability for gated commands", func(t *testing.T) {
		assert.Equal(t, []string{"api", "web"}, o.ExpandSelector(api.CommandPublish, []string{SelectorAll}))
		assert.Equal(t, []string{"db"}, o.ExpandSelector(api.CommandBackup, nil))
	})

	t.Run("explicit names keep their given order", func(t *testing.T) {
		assert.Equal(t, []string{"worker", "web"}, o.ExpandSelector(api.CommandStart, []string{"worker", "web"}))
	})

	t.Run("expansion is idempotent", func(t *testing.T) {
		once := o.ExpandSelector(api.CommandPublish, []string{SelectorAll})
		twice := o.ExpandSelector(api.CommandPublish, once)
		assert.Equal(t, once, twice)
	})

	t.Run("duplicates collapse to the first occurrence", func(t *testing.T) {
		assert.Equal(t, []string{"web", "api"}, o.ExpandSelector(api.CommandStart, []string{"web", "api", "web", "api"}))
	})

	t.Run("explicit names without the capability are dropped", func(t *testing.T) {
		assert.Equal(t, []string{"db"}, o.ExpandSelector(api.CommandBackup, []string{"web", "db"}))
	})

	t.Run("unknown names pass through for per-service reporting", func(t *testing.T) {
		assert.Equal(t, []string{"ghost", "web"}, o.ExpandSelector(api.CommandStart, []string{"ghost", "web"}))
	})
}

func TestRun_SequentialWithFailureIsolation(t *testing.T) {
	exec := &recordingExecutor{failFor: map[string]error{"db": errors.New("connection refused")}}
	o := newTestOrchestrator(t, testEnvironment(), exec)

	batch, err := o.Run(context.Background(), api.CommandCheck, nil, service.Options{})
	require.NoError(t, err, "a failing service must not abort the batch")
	require.Len(t, batch.Results, 4)

	assert.Equal(t, []string{"api", "db", "web", "worker"}, exec.dispatched, "batch runs sequentially in expansion order")
	assert.Equal(t, 1, batch.Failed())
	assert.False(t, batch.AllSucceeded())

	for _, r := range batch.Results {
		if r.Service == "db" {
			require.Error(t, r.Err)
			assert.False(t, r.Succeeded())
		} else {
			assert.True(t, r.Succeeded(), r.Service)
		}
	}
}

func TestRun_UnsuccessfulResultCountsAsFailed(t *testing.T) {
	exec := &recordingExecutor{resultFor: map[string]*api.Result{
		"web": {Success: false, Status: api.StatusDegraded, Error: "health probe failed"},
	}}
	o := newTestOrchestrator(t, testEnvironment(), exec)

	batch, err := o.Run(context.Background(), api.CommandCheck, []string{"web", "api"}, service.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Failed())
}

func TestRun_UnknownServiceFailsOnlyItself(t *testing.T) {
	exec := &recordingExecutor{}
	o := newTestOrchestrator(t, testEnvironment(), exec)

	batch, err := o.Run(context.Background(), api.CommandStart, []string{"ghost", "web"}, service.Options{})
	require.NoError(t, err)
	require.Len(t, batch.Results, 2)

	assert.True(t, api.IsNotFound(batch.Results[0].Err))
	assert.True(t, batch.Results[1].Succeeded())
	assert.Equal(t, []string{"web"}, exec.dispatched)
}

func TestRun_MissingStrategyIsAPerServiceFailure(t *testing.T) {
	env := testEnvironment()
	container := env.Services["db"]
	container.Platform = api.PlatformContainer
	env.Services["db"] = container

	exec := &recordingExecutor{}
	o := newTestOrchestrator(t, env, exec)

	batch, err := o.Run(context.Background(), api.CommandCheck, []string{"db", "web"}, service.Options{})
	require.NoError(t, err)
	require.Len(t, batch.Results, 2)

	require.Error(t, batch.Results[0].Err)
	assert.Contains(t, batch.Results[0].Err.Error(), "no strategy available")
	assert.True(t, batch.Results[1].Succeeded())
}

func TestRun_CancellationStopsTheBatch(t *testing.T) {
	exec := &recordingExecutor{}
	o := newTestOrchestrator(t, testEnvironment(), exec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := o.Run(ctx, api.CommandStart, nil, service.Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, batch.Results, "no service runs after cancellation")
}

func TestService_BuildsTheRequestedIdentity(t *testing.T) {
	o := newTestOrchestrator(t, testEnvironment(), &recordingExecutor{})

	svc, err := o.Service("web")
	require.NoError(t, err)
	identity := svc.Identity()
	assert.Equal(t, "local", identity.Environment)
	assert.Equal(t, "web", identity.Service)
	assert.Equal(t, api.PlatformProcess, identity.Platform)
	assert.Equal(t, "/tmp/project", identity.ProjectRoot)

	_, err = o.Service("ghost")
	assert.True(t, api.IsNotFound(err))
}
