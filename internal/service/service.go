package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"steward/internal/api"
	"steward/internal/config"
	"steward/internal/requirements"
	"steward/internal/state"
	"steward/pkg/logging"
)

// Executor runs one verb on one platform. platform.Strategy is the real
// implementation; tests substitute fakes.
type Executor interface {
	Execute(ctx context.Context, command string, hctx *api.HandlerContext) (*api.Result, error)
}

// Hook runs before or after a verb. A failing pre-hook aborts the verb; a
// failing post-hook is surfaced as metadata on an otherwise finished result.
type Hook func(ctx context.Context, command string, identity api.ServiceIdentity) error

// Hooks bundles the optional pre/post hooks for one service.
type Hooks struct {
	Pre  Hook
	Post Hook
}

// Options are the per-invocation flags a verb runs with. They are explicit
// parameters, never read from ambient process environment.
type Options struct {
	DryRun            bool
	Verbose           bool
	WaitForCompletion bool
	SkipHealthCheck   bool

	// ExecArgs is the command line for the exec verb.
	ExecArgs []string

	// BackupID selects the snapshot for the restore verb.
	BackupID string
}

// Service is the per-service façade exposing the uniform verb set. It owns
// the cross-cutting sequence around every verb: dry-run short-circuit,
// capability gate, hooks, state persistence and drift classification. The
// platform-specific work is delegated to the Executor.
type Service struct {
	identity api.ServiceIdentity
	cfg      config.ServiceConfig
	reqs     requirements.ServiceRequirements
	executor Executor
	store    *state.Store
	drift    *state.Reconciler
	hooks    Hooks
}

// New builds the façade for one service in one environment. The effective
// requirements are the type-derived defaults overlaid with the service's
// explicit declarations.
func New(identity api.ServiceIdentity, cfg config.ServiceConfig, executor Executor, store *state.Store, hooks Hooks) *Service {
	reqs := requirements.Effective(cfg.Type, cfg.Port, cfg.Environment, cfg.Requirements)
	return &Service{
		identity: identity,
		cfg:      cfg,
		reqs:     reqs,
		executor: executor,
		store:    store,
		drift:    state.NewReconciler(store),
		hooks:    hooks,
	}
}

// Identity returns the service's immutable identity.
func (s *Service) Identity() api.ServiceIdentity {
	return s.identity
}

// Requirements returns the effective requirements after default merging.
func (s *Service) Requirements() requirements.ServiceRequirements {
	return s.reqs
}

// Run executes one verb. The sequence is fixed: dry-run short-circuit,
// capability gate, pre-hook, saved-state load, platform execution, verb
// post-processing (state save/clear, drift classification), post-hook.
func (s *Service) Run(ctx context.Context, command string, opts Options) (*api.Result, error) {
	if opts.DryRun {
		// Nothing below this line runs in dry-run mode, the registry
		// included.
		result := &api.Result{Success: true, Status: api.StatusUnknown}
		result.SetMetadata("dryRun", true)
		result.SetMetadata("command", command)
		return result, nil
	}

	if !s.reqs.SupportsCommand(command) {
		return nil, api.NewUnsupportedError(command, s.identity.Platform, s.cfg.Type,
			fmt.Sprintf("service %s does not declare the %s capability", s.identity.Service, command))
	}

	if s.hooks.Pre != nil {
		if err := s.hooks.Pre(ctx, command, s.identity); err != nil {
			return nil, fmt.Errorf("pre-hook for %s %s: %w", command, s.identity.Key(), err)
		}
	}

	saved, err := s.store.Load(s.identity)
	if err != nil && !api.IsNotFound(err) {
		logging.Warn("Service", "Failed to load state for %s: %v", s.identity.Key(), err)
		saved = nil
	}

	hctx := &api.HandlerContext{
		Identity:          s.identity,
		ServiceType:       s.cfg.Type,
		Requirements:      s.reqs,
		ServiceConfig:     s.cfg.HandlerSettings(),
		SavedState:        saved,
		ExecArgs:          opts.ExecArgs,
		BackupID:          opts.BackupID,
		WaitForCompletion: opts.WaitForCompletion,
		SkipHealthCheck:   opts.SkipHealthCheck,
		Verbose:           opts.Verbose,
	}

	result, err := s.executor.Execute(ctx, command, hctx)
	if err != nil {
		return nil, err
	}

	s.postProcess(command, result)

	if s.hooks.Post != nil {
		if err := s.hooks.Post(ctx, command, s.identity); err != nil {
			logging.Warn("Service", "Post-hook for %s %s failed: %v", command, s.identity.Key(), err)
			result.SetMetadata("postHookError", err.Error())
		}
	}
	return result, nil
}

// postProcess applies the verb's bookkeeping side effects to the store and
// decorates check results with the drift classification.
func (s *Service) postProcess(command string, result *api.Result) {
	switch command {
	case api.CommandStart, api.CommandUpdate:
		if result.Success && result.Resources != nil {
			st := &api.ServiceState{
				Resources: *result.Resources,
				Endpoint:  result.Endpoint,
				StartTime: time.Now().UTC(),
			}
			if err := s.store.Save(s.identity, st); err != nil {
				logging.Warn("Service", "Failed to persist state for %s: %v", s.identity.Key(), err)
				result.SetMetadata("statePersisted", false)
			}
		}
	case api.CommandStop:
		if result.Success {
			if err := s.store.Clear(s.identity); err != nil {
				logging.Warn("Service", "Failed to clear state for %s: %v", s.identity.Key(), err)
				result.SetMetadata("statePersisted", false)
			}
		}
	case api.CommandCheck:
		classification := s.drift.Reconcile(s.identity, result)
		result.SetMetadata("stateClassification", string(classification))
		if classification.IsDrift() {
			result.SetMetadata("driftWarning", driftWarning(classification, s.identity))
			logging.Warn("Service", "Drift for %s: %s", s.identity.Key(), classification)
		}
	}
}

func driftWarning(c state.Classification, identity api.ServiceIdentity) string {
	switch c {
	case state.UntrackedRunning:
		return fmt.Sprintf("%s is running but was not started by this tool", identity.Service)
	case state.Stale:
		return fmt.Sprintf("%s died outside this tool; its stale record was cleared", identity.Service)
	case state.Mismatch:
		return fmt.Sprintf("%s is running as a different instance than the recorded one", identity.Service)
	default:
		return strings.ToLower(string(c))
	}
}
