package platform

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steward/internal/api"
	"steward/internal/requirements"
)

func TestProcessDescriptors(t *testing.T) {
	descriptors := ProcessDescriptors(t.TempDir())

	type key struct{ command, serviceType string }
	seen := make(map[key]bool)
	for _, d := range descriptors {
		assert.Equal(t, api.PlatformProcess, d.Platform)
		assert.False(t, d.RequiresDiscovery, "local processes need no infrastructure discovery")
		seen[key{d.Command, d.ServiceType}] = true
	}

	for _, serviceType := range []string{"web", "api", "worker"} {
		for _, command := range []string{api.CommandStart, api.CommandStop, api.CommandCheck, api.CommandUpdate, api.CommandExec, api.CommandTest} {
			assert.True(t, seen[key{command, serviceType}], "%s/%s missing", command, serviceType)
		}
	}
	assert.False(t, seen[key{api.CommandCheck, "database"}], "databases have no local-process rendition")
	assert.False(t, seen[key{api.CommandProvision, "web"}], "nothing to provision locally")
}

func TestProcessLifecycle(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("process group signalling is POSIX only")
	}

	h := &processHandlers{logDir: filepath.Join(t.TempDir(), "logs")}
	hctx := &api.HandlerContext{
		Identity:      api.ServiceIdentity{Environment: "local", Service: "web", Platform: api.PlatformProcess},
		ServiceType:   "web",
		ServiceConfig: map[string]any{"command": []string{"sleep", "60"}},
	}

	started, err := h.start(context.Background(), hctx)
	require.NoError(t, err)
	require.True(t, started.Success)
	require.NotNil(t, started.Resources.Process)
	pid := started.Resources.Process.PID
	assert.True(t, alive(pid))

	// A second start against the live record is a no-op.
	hctx.SavedState = &api.ServiceState{Resources: *started.Resources}
	again, err := h.start(context.Background(), hctx)
	require.NoError(t, err)
	assert.Equal(t, true, again.Metadata["alreadyRunning"])

	checked, err := h.check(context.Background(), &api.HandlerContext{
		Identity:        hctx.Identity,
		ServiceType:     "web",
		SavedState:      hctx.SavedState,
		SkipHealthCheck: true,
	})
	require.NoError(t, err)
	assert.Equal(t, api.StatusRunning, checked.Status)
	assert.Equal(t, api.HealthUnknown, checked.Health)

	// Signal 0 cannot distinguish a zombie child from a live process, so the
	// stop round-trip is not exercised against our own child here. Kill the
	// group directly to clean up.
	require.NoError(t, syscall.Kill(-pid, syscall.SIGKILL))
}

func TestProcessStopWithoutALiveProcess(t *testing.T) {
	h := &processHandlers{}
	hctx := &api.HandlerContext{
		Identity:    api.ServiceIdentity{Environment: "local", Service: "web", Platform: api.PlatformProcess},
		ServiceType: "web",
	}

	t.Run("no recorded pid", func(t *testing.T) {
		result, err := h.stop(context.Background(), hctx)
		require.NoError(t, err)
		assert.Equal(t, api.StatusStopped, result.Status)
		assert.Equal(t, true, result.Metadata["alreadyStopped"])
	})

	t.Run("recorded pid is gone", func(t *testing.T) {
		dead := *hctx
		dead.SavedState = &api.ServiceState{Resources: *api.NewProcessRef(findDeadPID(t), 0)}
		result, err := h.stop(context.Background(), &dead)
		require.NoError(t, err)
		assert.Equal(t, true, result.Metadata["alreadyStopped"])
	})
}

// findDeadPID returns a pid no process currently holds.
func findDeadPID(t *testing.T) int {
	t.Helper()
	for pid := 100000; pid < 101000; pid++ {
		if !alive(pid) {
			return pid
		}
	}
	t.Fatal("no free pid found")
	return 0
}

func TestProcessExec(t *testing.T) {
	h := &processHandlers{}

	t.Run("a succeeding command reports success", func(t *testing.T) {
		result, err := h.exec(context.Background(), &api.HandlerContext{
			Identity: api.ServiceIdentity{Service: "web"},
			ExecArgs: []string{"true"},
		})
		require.NoError(t, err)
		assert.True(t, result.Success)
	})

	t.Run("a failing command is a handler error", func(t *testing.T) {
		_, err := h.exec(context.Background(), &api.HandlerContext{
			Identity: api.ServiceIdentity{Service: "web"},
			ExecArgs: []string{"false"},
		})
		assert.Error(t, err)
	})

	t.Run("exec without a command is rejected", func(t *testing.T) {
		_, err := h.exec(context.Background(), &api.HandlerContext{Identity: api.ServiceIdentity{Service: "web"}})
		assert.Error(t, err)
	})

	t.Run("test runs the configured test command", func(t *testing.T) {
		result, err := h.test(context.Background(), &api.HandlerContext{
			Identity:      api.ServiceIdentity{Service: "web"},
			ServiceConfig: map[string]any{"testCommand": []string{"true"}},
		})
		require.NoError(t, err)
		assert.True(t, result.Success)

		_, err = h.test(context.Background(), &api.HandlerContext{
			Identity:      api.ServiceIdentity{Service: "web"},
			ServiceConfig: map[string]any{},
		})
		assert.Error(t, err, "a service without a test command cannot run tests")
	})
}

func TestProcessHelpers(t *testing.T) {
	t.Run("alive", func(t *testing.T) {
		assert.True(t, alive(os.Getpid()))
		assert.False(t, alive(0))
		assert.False(t, alive(-1))
	})

	t.Run("pidFromState", func(t *testing.T) {
		assert.Equal(t, 0, pidFromState(nil))
		assert.Equal(t, 0, pidFromState(&api.ServiceState{}))
		assert.Equal(t, 42, pidFromState(&api.ServiceState{Resources: *api.NewProcessRef(42, 0)}))
	})

	t.Run("portFromConfig prefers the explicit port", func(t *testing.T) {
		req := requirements.ServiceRequirements{Network: &requirements.NetworkRequirements{Ports: []int{8080}}}
		assert.Equal(t, 3000, portFromConfig(map[string]any{"port": 3000}, req))
		assert.Equal(t, 8080, portFromConfig(map[string]any{}, req))
		assert.Equal(t, 0, portFromConfig(map[string]any{}, requirements.ServiceRequirements{}))
	})

	t.Run("envList renders key=value pairs", func(t *testing.T) {
		assert.ElementsMatch(t, []string{"A=1", "B=2"}, envList(map[string]string{"A": "1", "B": "2"}))
		assert.Empty(t, envList(nil))
	})
}
