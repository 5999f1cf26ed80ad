package cli

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"steward/internal/api"
	"steward/internal/config"
	"steward/internal/orchestrator"
	"steward/internal/state"
)

func renderBatch(batch *orchestrator.BatchResult, quiet bool) string {
	var buf bytes.Buffer
	NewRenderer(&buf, quiet).RenderBatch(batch)
	return buf.String()
}

func TestRenderBatch(t *testing.T) {
	t.Run("each service gets a row plus a summary", func(t *testing.T) {
		out := renderBatch(&orchestrator.BatchResult{
			Command:     "check",
			Environment: "local",
			Results: []orchestrator.ServiceResult{
				{Service: "web", Result: &api.Result{Success: true, Status: api.StatusRunning, Health: api.HealthHealthy, Endpoint: "http://localhost:3000"}},
				{Service: "db", Err: errors.New("connection refused")},
			},
		}, false)

		assert.Contains(t, out, "web")
		assert.Contains(t, out, "http://localhost:3000")
		assert.Contains(t, out, "connection refused")
		assert.Contains(t, out, "1 of 2 service(s) failed check")
	})

	t.Run("quiet mode stays silent on success", func(t *testing.T) {
		batch := &orchestrator.BatchResult{
			Command: "start",
			Results: []orchestrator.ServiceResult{
				{Service: "web", Result: &api.Result{Success: true, Status: api.StatusRunning}},
			},
		}
		assert.Empty(t, renderBatch(batch, true))
		assert.Contains(t, renderBatch(batch, false), "start completed for 1 service(s)")
	})

	t.Run("quiet mode still reports failures", func(t *testing.T) {
		out := renderBatch(&orchestrator.BatchResult{
			Command: "start",
			Results: []orchestrator.ServiceResult{
				{Service: "web", Err: errors.New("spawn failed")},
			},
		}, true)
		assert.Contains(t, out, "spawn failed")
	})

	t.Run("an empty batch says so", func(t *testing.T) {
		out := renderBatch(&orchestrator.BatchResult{Command: "backup"}, false)
		assert.Contains(t, out, "No services matched for backup")
	})
}

func TestRenderDetailPriority(t *testing.T) {
	t.Run("drift warnings beat endpoints", func(t *testing.T) {
		sr := &orchestrator.ServiceResult{Result: &api.Result{
			Success:  true,
			Endpoint: "http://localhost:3000",
			Metadata: map[string]any{"driftWarning": "web is running as a different instance than the recorded one"},
		}}
		assert.Contains(t, renderDetail(sr), "different instance")
	})

	t.Run("version movement for updates", func(t *testing.T) {
		sr := &orchestrator.ServiceResult{Result: &api.Result{
			Success:         true,
			PreviousVersion: "web:1",
			NewVersion:      "web:2",
		}}
		assert.Equal(t, "web:1 -> web:2", renderDetail(sr))
	})

	t.Run("backup id for backups", func(t *testing.T) {
		sr := &orchestrator.ServiceResult{Result: &api.Result{Success: true, BackupID: "steward-db-deadbeef"}}
		assert.Equal(t, "backup steward-db-deadbeef", renderDetail(sr))
	})

	t.Run("dry runs are marked", func(t *testing.T) {
		sr := &orchestrator.ServiceResult{Result: &api.Result{Success: true, Metadata: map[string]any{"dryRun": true}}}
		assert.Contains(t, renderDetail(sr), "dry run")
	})

	t.Run("long errors are truncated", func(t *testing.T) {
		long := bytes.Repeat([]byte("x"), 200)
		sr := &orchestrator.ServiceResult{Err: errors.New(string(long))}
		detail := renderDetail(sr)
		assert.Contains(t, detail, "...")
		assert.Less(t, len(detail), 120)
	})
}

func TestRenderServices(t *testing.T) {
	env := &config.EnvironmentConfig{
		Name:       "local",
		Deployment: config.DeploymentConfig{Default: api.PlatformProcess},
		Services: map[string]config.ServiceConfig{
			"web": {Type: "web", Port: 3000, Command: []string{"npm", "start"}},
			"db":  {Type: "database", Platform: api.PlatformCloud},
		},
	}

	t.Run("configured services with their bindings and verbs", func(t *testing.T) {
		var buf bytes.Buffer
		NewRenderer(&buf, false).RenderServices(env, nil)
		out := buf.String()

		assert.Contains(t, out, "web")
		assert.Contains(t, out, "3000")
		assert.Contains(t, out, "cloud")
		assert.Contains(t, out, "backup", "the database row lists its gated verbs")
		assert.NotContains(t, out, "publish, backup", "web and database verb sets differ")
		assert.NotContains(t, out, "tracked", "nothing is tracked without state records")
	})

	t.Run("services with a state record are marked tracked", func(t *testing.T) {
		var buf bytes.Buffer
		NewRenderer(&buf, false).RenderServices(env, []string{"web"})
		out := buf.String()

		assert.Contains(t, out, "tracked")
		assert.NotContains(t, out, "state records without a configured service")
	})

	t.Run("records for unconfigured services are called out", func(t *testing.T) {
		var buf bytes.Buffer
		NewRenderer(&buf, false).RenderServices(env, []string{"web", "zombie", "ghost"})
		out := buf.String()

		assert.Contains(t, out, "state records without a configured service: ghost, zombie")
	})
}

func TestRenderStateChange(t *testing.T) {
	stamp := time.Date(2026, 3, 1, 9, 30, 5, 0, time.UTC)

	t.Run("writes", func(t *testing.T) {
		var buf bytes.Buffer
		NewRenderer(&buf, false).RenderStateChange(state.ChangeEvent{
			Environment: "local",
			Service:     "web",
			Operation:   state.OperationWrite,
			Timestamp:   stamp,
		})
		out := buf.String()
		assert.Contains(t, out, "09:30:05")
		assert.Contains(t, out, "local/web")
		assert.Contains(t, out, "modified")
	})

	t.Run("deletes", func(t *testing.T) {
		var buf bytes.Buffer
		NewRenderer(&buf, false).RenderStateChange(state.ChangeEvent{
			Environment: "local",
			Service:     "db",
			Operation:   state.OperationDelete,
			Timestamp:   stamp,
		})
		assert.Contains(t, buf.String(), "removed")
	})
}
