package orchestrator

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"steward/internal/api"
	"steward/internal/config"
	"steward/internal/requirements"
	"steward/internal/service"
	"steward/internal/state"
	"steward/pkg/logging"
)

// SelectorAll is the selector expanding to every service that supports the
// requested command.
const SelectorAll = "all"

// Orchestrator runs verbs across the services of one environment. It builds
// one façade per targeted service, expands selectors through capability
// annotations, and processes batches sequentially with per-service failure
// isolation.
type Orchestrator struct {
	projectRoot string
	env         *config.EnvironmentConfig
	store       *state.Store
	strategies  map[api.Platform]service.Executor
	hooks       service.Hooks

	// guard coalesces concurrent invocations of the same verb on the same
	// identity so overlapping triggers (CLI plus watcher, say) do not race
	// on the platform.
	guard singleflight.Group
}

// New creates the orchestrator for one environment. strategies must contain
// an executor for every platform the environment's services are bound to;
// a missing platform surfaces as a per-service failure at run time.
func New(projectRoot string, env *config.EnvironmentConfig, store *state.Store, strategies map[api.Platform]service.Executor, hooks service.Hooks) *Orchestrator {
	return &Orchestrator{
		projectRoot: projectRoot,
		env:         env,
		store:       store,
		strategies:  strategies,
		hooks:       hooks,
	}
}

// Service builds the façade for one named service.
func (o *Orchestrator) Service(name string) (*service.Service, error) {
	cfg, ok := o.env.Services[name]
	if !ok {
		return nil, api.NewNotFoundError("service", name)
	}

	platform := o.env.PlatformFor(name)
	executor, ok := o.strategies[platform]
	if !ok {
		return nil, fmt.Errorf("no strategy available for platform %s (service %s)", platform, name)
	}

	identity := api.ServiceIdentity{
		ProjectRoot: o.projectRoot,
		Environment: o.env.Name,
		Service:     name,
		Platform:    platform,
	}
	return service.New(identity, cfg, executor, o.store, o.hooks), nil
}

// ExpandSelector resolves a selector into the concrete, ordered service
// list for a command. "all" (or an empty selector) expands to every
// configured service whose capability annotations support the command, in
// sorted name order. Explicit names are deduplicated in their given order
// and filtered by the same capability rule, so expansion is idempotent.
// Unknown names pass through and fail per-service during the batch.
func (o *Orchestrator) ExpandSelector(command string, selector []string) []string {
	names := selector
	if len(names) == 0 || (len(names) == 1 && names[0] == SelectorAll) {
		names = o.env.ServiceNames()
	}

	var expanded []string
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		cfg, ok := o.env.Services[name]
		if !ok {
			// Kept so the batch reports the missing service explicitly.
			expanded = append(expanded, name)
			continue
		}
		reqs := requirements.Effective(cfg.Type, cfg.Port, cfg.Environment, cfg.Requirements)
		if !reqs.SupportsCommand(command) {
			logging.Debug("Orchestrator", "Selector skips %s: no %s capability", name, command)
			continue
		}
		expanded = append(expanded, name)
	}
	return expanded
}

// ServiceResult is the outcome for one service within a batch.
type ServiceResult struct {
	Service string
	Result  *api.Result
	Err     error
}

// Succeeded reports whether the service's verb completed successfully.
func (r *ServiceResult) Succeeded() bool {
	return r.Err == nil && r.Result != nil && r.Result.Success
}

// BatchResult collects the per-service outcomes of one batch run.
type BatchResult struct {
	Command     string
	Environment string
	Results     []ServiceResult
}

// Failed counts the services whose verb did not succeed.
func (b *BatchResult) Failed() int {
	failed := 0
	for i := range b.Results {
		if !b.Results[i].Succeeded() {
			failed++
		}
	}
	return failed
}

// AllSucceeded reports whether every targeted service succeeded.
func (b *BatchResult) AllSucceeded() bool {
	return b.Failed() == 0
}

// Run executes one verb across the selector's services, sequentially and in
// expansion order. A failing service is recorded and processing continues
// with the next one; only context cancellation stops the batch early. The
// returned error is non-nil solely for that early stop, and the partial
// BatchResult is still returned alongside it.
func (o *Orchestrator) Run(ctx context.Context, command string, selector []string, opts service.Options) (*BatchResult, error) {
	batch := &BatchResult{Command: command, Environment: o.env.Name}

	names := o.ExpandSelector(command, selector)
	logging.Info("Orchestrator", "Running %s for %d service(s) in %s", command, len(names), o.env.Name)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return batch, fmt.Errorf("batch cancelled before %s: %w", name, err)
		}

		result, err := o.runOne(ctx, command, name, opts)
		batch.Results = append(batch.Results, ServiceResult{Service: name, Result: result, Err: err})
		if err != nil {
			logging.Error("Orchestrator", err, "%s failed for %s", command, name)
		}
	}
	return batch, nil
}

// runOne executes the verb for a single service under the per-identity
// guard.
func (o *Orchestrator) runOne(ctx context.Context, command, name string, opts service.Options) (*api.Result, error) {
	svc, err := o.Service(name)
	if err != nil {
		return nil, err
	}

	key := svc.Identity().Key() + ":" + command
	v, err, _ := o.guard.Do(key, func() (any, error) {
		return svc.Run(ctx, command, opts)
	})
	if err != nil {
		return nil, err
	}
	return v.(*api.Result), nil
}
