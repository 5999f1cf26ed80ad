package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"steward/internal/api"
	"steward/internal/config"
	"steward/internal/orchestrator"
	"steward/internal/requirements"
	"steward/internal/state"
)

// Renderer writes human-facing command output. Quiet mode suppresses
// everything except failures.
type Renderer struct {
	out   io.Writer
	quiet bool
}

// NewRenderer creates a Renderer writing to out.
func NewRenderer(out io.Writer, quiet bool) *Renderer {
	return &Renderer{out: out, quiet: quiet}
}

// createTable creates a new table with standard styling.
func (r *Renderer) createTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleRounded)
	return t
}

// RenderBatch prints one row per service with the verb's outcome. The
// summary line at the end repeats the failure count so it survives
// scrollback.
func (r *Renderer) RenderBatch(batch *orchestrator.BatchResult) {
	if r.quiet && batch.AllSucceeded() {
		return
	}
	if len(batch.Results) == 0 {
		fmt.Fprintf(r.out, "%s\n", text.FgYellow.Sprintf("No services matched for %s", batch.Command))
		return
	}

	t := r.createTable()
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("SERVICE"),
		text.FgHiCyan.Sprint("RESULT"),
		text.FgHiCyan.Sprint("STATUS"),
		text.FgHiCyan.Sprint("HEALTH"),
		text.FgHiCyan.Sprint("DETAIL"),
	})

	for i := range batch.Results {
		sr := &batch.Results[i]
		t.AppendRow(table.Row{
			sr.Service,
			renderOutcome(sr),
			renderStatus(sr),
			renderHealth(sr),
			renderDetail(sr),
		})
	}
	t.Render()

	if failed := batch.Failed(); failed > 0 {
		fmt.Fprintf(r.out, "%s\n", text.FgRed.Sprintf("%d of %d service(s) failed %s", failed, len(batch.Results), batch.Command))
	} else if !r.quiet {
		fmt.Fprintf(r.out, "%s\n", text.FgGreen.Sprintf("%s completed for %d service(s)", batch.Command, len(batch.Results)))
	}
}

// RenderServices prints the environment's configured services with their
// platform binding, supported verbs and whether steward holds a state record
// for them. Records for services no longer in the configuration are listed
// after the table.
func (r *Renderer) RenderServices(env *config.EnvironmentConfig, tracked []string) {
	trackedSet := make(map[string]bool, len(tracked))
	for _, name := range tracked {
		trackedSet[name] = true
	}

	t := r.createTable()
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("SERVICE"),
		text.FgHiCyan.Sprint("TYPE"),
		text.FgHiCyan.Sprint("PLATFORM"),
		text.FgHiCyan.Sprint("PORT"),
		text.FgHiCyan.Sprint("STATE"),
		text.FgHiCyan.Sprint("COMMANDS"),
	})

	for _, name := range env.ServiceNames() {
		cfg := env.Services[name]
		port := ""
		if cfg.Port > 0 {
			port = fmt.Sprintf("%d", cfg.Port)
		}
		record := ""
		if trackedSet[name] {
			record = text.FgGreen.Sprint("tracked")
		}
		t.AppendRow(table.Row{
			name,
			cfg.Type,
			string(env.PlatformFor(name)),
			port,
			record,
			strings.Join(supportedCommands(cfg), ", "),
		})
		delete(trackedSet, name)
	}
	t.Render()

	if len(trackedSet) == 0 {
		return
	}
	orphans := make([]string, 0, len(trackedSet))
	for name := range trackedSet {
		orphans = append(orphans, name)
	}
	sort.Strings(orphans)
	fmt.Fprintf(r.out, "%s\n", text.FgYellow.Sprintf("state records without a configured service: %s", strings.Join(orphans, ", ")))
}

// RenderStateChange prints one line per out-of-band state change reported by
// the watcher.
func (r *Renderer) RenderStateChange(evt state.ChangeEvent) {
	op := text.FgYellow.Sprint("modified")
	if evt.Operation == state.OperationDelete {
		op = text.FgRed.Sprint("removed")
	}
	fmt.Fprintf(r.out, "%s  %s/%s state %s outside steward\n",
		evt.Timestamp.Format("15:04:05"), evt.Environment, evt.Service, op)
}

func renderOutcome(sr *orchestrator.ServiceResult) string {
	if sr.Succeeded() {
		return text.FgGreen.Sprint("ok")
	}
	return text.FgRed.Sprint("failed")
}

func renderStatus(sr *orchestrator.ServiceResult) string {
	if sr.Result == nil {
		return ""
	}
	switch sr.Result.Status {
	case api.StatusRunning:
		return text.FgGreen.Sprint(sr.Result.Status)
	case api.StatusDegraded:
		return text.FgYellow.Sprint(sr.Result.Status)
	case api.StatusStopped:
		return string(sr.Result.Status)
	default:
		return string(sr.Result.Status)
	}
}

func renderHealth(sr *orchestrator.ServiceResult) string {
	if sr.Result == nil || sr.Result.Health == "" {
		return ""
	}
	switch sr.Result.Health {
	case api.HealthHealthy:
		return text.FgGreen.Sprint(sr.Result.Health)
	case api.HealthUnhealthy:
		return text.FgRed.Sprint(sr.Result.Health)
	default:
		return string(sr.Result.Health)
	}
}

// renderDetail picks the most informative single cell for a row: the error
// for failures, then drift warnings, then endpoint or version movement.
func renderDetail(sr *orchestrator.ServiceResult) string {
	if sr.Err != nil {
		return text.FgRed.Sprint(truncate(sr.Err.Error(), 80))
	}
	res := sr.Result
	if res == nil {
		return ""
	}
	if res.Error != "" {
		return text.FgRed.Sprint(truncate(res.Error, 80))
	}
	if warning, ok := res.Metadata["driftWarning"].(string); ok {
		return text.FgYellow.Sprint(truncate(warning, 80))
	}
	if res.NewVersion != "" && res.NewVersion != res.PreviousVersion {
		return fmt.Sprintf("%s -> %s", res.PreviousVersion, res.NewVersion)
	}
	if res.BackupID != "" {
		return "backup " + res.BackupID
	}
	if res.Endpoint != "" {
		return res.Endpoint
	}
	if dry, ok := res.Metadata["dryRun"].(bool); ok && dry {
		return text.FgYellow.Sprint("dry run")
	}
	return ""
}

func supportedCommands(cfg config.ServiceConfig) []string {
	reqs := requirements.Effective(cfg.Type, cfg.Port, cfg.Environment, cfg.Requirements)
	var commands []string
	for _, command := range api.Commands() {
		if reqs.SupportsCommand(command) {
			commands = append(commands, command)
		}
	}
	return commands
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
