package platform

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"steward/internal/api"
	"steward/internal/registry"
	"steward/internal/requirements"
	"steward/pkg/logging"
)

// processServiceTypes are the service types the process platform handles.
// Managed databases, filesystems and functions have no local-process
// rendition, so no descriptors exist for them and dispatch fails closed.
var processServiceTypes = []string{
	requirements.TypeWeb,
	requirements.TypeAPI,
	requirements.TypeWorker,
}

// ProcessDescriptors returns the handler registrations for the local process
// platform. logDir is where started services' output is captured.
func ProcessDescriptors(logDir string) []registry.Descriptor {
	h := &processHandlers{logDir: logDir}

	var descriptors []registry.Descriptor
	for _, serviceType := range processServiceTypes {
		descriptors = append(descriptors,
			registry.Descriptor{Command: api.CommandStart, Platform: api.PlatformProcess, ServiceType: serviceType, Handler: h.start},
			registry.Descriptor{Command: api.CommandStop, Platform: api.PlatformProcess, ServiceType: serviceType, Handler: h.stop},
			registry.Descriptor{Command: api.CommandCheck, Platform: api.PlatformProcess, ServiceType: serviceType, Handler: h.check},
			registry.Descriptor{Command: api.CommandUpdate, Platform: api.PlatformProcess, ServiceType: serviceType, Handler: h.update},
			registry.Descriptor{Command: api.CommandExec, Platform: api.PlatformProcess, ServiceType: serviceType, Handler: h.exec},
			registry.Descriptor{Command: api.CommandTest, Platform: api.PlatformProcess, ServiceType: serviceType, Handler: h.test},
		)
	}
	return descriptors
}

type processHandlers struct {
	logDir string
}

// start launches the configured command detached in its own process group
// and reports the child's pid as the resource identity.
func (h *processHandlers) start(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error) {
	if hctx.SavedState != nil {
		if alive(pidFromState(hctx.SavedState)) {
			result := &api.Result{Success: true, Status: api.StatusRunning, Resources: &hctx.SavedState.Resources}
			result.SetMetadata("alreadyRunning", true)
			return result, nil
		}
	}

	command := commandFromConfig(hctx.ServiceConfig)
	if len(command) == 0 {
		return nil, fmt.Errorf("service %s has no command configured", hctx.Identity.Service)
	}

	cmd := exec.Command(command[0], command[1:]...)
	if workDir, ok := hctx.ServiceConfig["workDir"].(string); ok && workDir != "" {
		cmd.Dir = workDir
	}
	cmd.Env = append(os.Environ(), envList(hctx.Requirements.Environment)...)
	// Own process group so stopping the service does not signal steward.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if h.logDir != "" {
		if err := os.MkdirAll(h.logDir, 0755); err == nil {
			logPath := filepath.Join(h.logDir, hctx.Identity.Service+".log")
			if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
				cmd.Stdout = f
				cmd.Stderr = f
				defer f.Close()
			}
		}
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", hctx.Identity.Service, err)
	}
	pid := cmd.Process.Pid
	// Detach: the child outlives this invocation.
	if err := cmd.Process.Release(); err != nil {
		logging.Warn("ProcessPlatform", "Failed to release process %d: %v", pid, err)
	}

	port := portFromConfig(hctx.ServiceConfig, hctx.Requirements)
	logging.Info("ProcessPlatform", "Started %s as pid %d", hctx.Identity.Service, pid)

	result := &api.Result{
		Success:   true,
		Status:    api.StatusRunning,
		Resources: api.NewProcessRef(pid, port),
	}
	if port > 0 {
		result.Endpoint = fmt.Sprintf("http://localhost:%d", port)
	}
	return result, nil
}

// stop sends SIGTERM to the recorded process group, escalating to SIGKILL
// after a grace period.
func (h *processHandlers) stop(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error) {
	pid := pidFromState(hctx.SavedState)
	if pid == 0 {
		result := &api.Result{Success: true, Status: api.StatusStopped}
		result.SetMetadata("alreadyStopped", true)
		return result, nil
	}
	if !alive(pid) {
		result := &api.Result{Success: true, Status: api.StatusStopped}
		result.SetMetadata("alreadyStopped", true)
		return result, nil
	}

	// Negative pid signals the whole group started with Setpgid.
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
			return nil, fmt.Errorf("failed to signal pid %d: %w", pid, err)
		}
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if !alive(pid) {
			logging.Info("ProcessPlatform", "Stopped %s (pid %d)", hctx.Identity.Service, pid)
			return &api.Result{Success: true, Status: api.StatusStopped}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}

	logging.Warn("ProcessPlatform", "%s (pid %d) ignored SIGTERM, killing", hctx.Identity.Service, pid)
	_ = syscall.Kill(-pid, syscall.SIGKILL)
	return &api.Result{Success: true, Status: api.StatusStopped}, nil
}

// check probes the recorded pid and, unless suppressed, the health port.
func (h *processHandlers) check(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error) {
	pid := pidFromState(hctx.SavedState)
	if pid == 0 || !alive(pid) {
		return &api.Result{Success: true, Status: api.StatusStopped}, nil
	}

	port := 0
	if hctx.SavedState.Resources.Process != nil {
		port = hctx.SavedState.Resources.Process.Port
	}

	result := &api.Result{
		Success:   true,
		Status:    api.StatusRunning,
		Resources: api.NewProcessRef(pid, port),
	}
	if port > 0 {
		result.Endpoint = fmt.Sprintf("http://localhost:%d", port)
	}

	if hctx.SkipHealthCheck {
		result.Health = api.HealthUnknown
		return result, nil
	}
	healthPort := port
	if hctx.Requirements.Network != nil && hctx.Requirements.Network.HealthCheckPort > 0 {
		healthPort = hctx.Requirements.Network.HealthCheckPort
	}
	result.Health = probeTCP(ctx, healthPort)
	return result, nil
}

// update for a local process is stop-then-start of the same command; there
// is no revision to roll to.
func (h *processHandlers) update(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error) {
	if _, err := h.stop(ctx, hctx); err != nil {
		return nil, fmt.Errorf("restart: %w", err)
	}
	stateless := *hctx
	stateless.SavedState = nil
	result, err := h.start(ctx, &stateless)
	if err != nil {
		return nil, fmt.Errorf("restart: %w", err)
	}
	result.Strategy = "restart"
	return result, nil
}

// exec runs a one-off command in the service's configured environment and
// working directory, streaming output to the caller's terminal.
func (h *processHandlers) exec(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error) {
	if len(hctx.ExecArgs) == 0 {
		return nil, fmt.Errorf("exec requires a command")
	}

	cmd := exec.CommandContext(ctx, hctx.ExecArgs[0], hctx.ExecArgs[1:]...)
	if workDir, ok := hctx.ServiceConfig["workDir"].(string); ok && workDir != "" {
		cmd.Dir = workDir
	}
	cmd.Env = append(os.Environ(), envList(hctx.Requirements.Environment)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("exec %q: %w", strings.Join(hctx.ExecArgs, " "), err)
	}
	result := &api.Result{Success: true, Status: api.StatusUnknown}
	result.SetMetadata("command", strings.Join(hctx.ExecArgs, " "))
	return result, nil
}

// test runs the service's configured test command.
func (h *processHandlers) test(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error) {
	testCommand, ok := hctx.ServiceConfig["testCommand"].([]string)
	if !ok || len(testCommand) == 0 {
		return nil, fmt.Errorf("service %s has no test command configured", hctx.Identity.Service)
	}
	forwarded := *hctx
	forwarded.ExecArgs = testCommand
	return h.exec(ctx, &forwarded)
}

// alive probes a pid with signal 0.
func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

func pidFromState(st *api.ServiceState) int {
	if st == nil || st.Resources.Process == nil {
		return 0
	}
	return st.Resources.Process.PID
}

func commandFromConfig(serviceConfig map[string]any) []string {
	if command, ok := serviceConfig["command"].([]string); ok {
		return command
	}
	return nil
}

func portFromConfig(serviceConfig map[string]any, req requirements.ServiceRequirements) int {
	if port, ok := serviceConfig["port"].(int); ok && port > 0 {
		return port
	}
	if req.Network != nil && len(req.Network.Ports) > 0 {
		return req.Network.Ports[0]
	}
	return 0
}

func envList(env map[string]string) []string {
	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, k+"="+v)
	}
	return list
}
