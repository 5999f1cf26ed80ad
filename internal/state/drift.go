package state

import (
	"steward/internal/api"
	"steward/pkg/logging"
)

// Classification is the outcome of comparing persisted state against a live
// check result. Exactly one classification applies to every combination of
// {state present/absent} x {live running/stopped} x {resource comparison}.
type Classification string

const (
	// Consistent: no state, nothing running. Nothing to reconcile.
	Consistent Classification = "consistent"

	// UntrackedRunning: the service is live but steward has no record of
	// starting it. The record is NOT auto-adopted.
	UntrackedRunning Classification = "untracked-running"

	// Stale: a record survives a service that died externally. Only a
	// definitively stopped report earns this; the record is cleared as a
	// side effect so a future start does not falsely report "already
	// running".
	Stale Classification = "stale"

	// Verified: the live instance is the one the record describes.
	Verified Classification = "verified"

	// Mismatch: same logical service, different physical instance (restarted
	// outside the tool), or a resource ref whose platform tag cannot be
	// compared against the record.
	Mismatch Classification = "mismatch"
)

// IsDrift reports whether the classification represents divergence worth
// warning about.
func (c Classification) IsDrift() bool {
	return c == UntrackedRunning || c == Stale || c == Mismatch
}

// Reconciler classifies drift between the store and live platform reports.
type Reconciler struct {
	store *Store
}

// NewReconciler creates a Reconciler over the given store.
func NewReconciler(store *Store) *Reconciler {
	return &Reconciler{store: store}
}

// Reconcile compares the persisted record for identity against a live check
// result and classifies the relationship. Classification never fails the
// check it decorates: storage errors degrade to Mismatch/UntrackedRunning
// rather than propagating, and the only side effect is clearing a Stale
// record.
func (r *Reconciler) Reconcile(identity api.ServiceIdentity, live *api.Result) Classification {
	saved, err := r.store.Load(identity)
	if err != nil && !api.IsNotFound(err) {
		// Unreadable state is bookkeeping damage, not a live problem. Treat
		// the record as unusable and let the live status stand.
		logging.Warn("DriftReconciler", "Failed to load state for %s: %v", identity.Key(), err)
		saved = nil
	}

	status := api.StatusStopped
	if live != nil {
		status = live.Status
	}
	// Degraded services still have live instances behind them, so they count
	// as alive for classification purposes.
	alive := status == api.StatusRunning || status == api.StatusDegraded

	if saved == nil {
		if alive {
			return UntrackedRunning
		}
		return Consistent
	}

	if status == api.StatusStopped {
		if err := r.store.Clear(identity); err != nil {
			logging.Warn("DriftReconciler", "Failed to clear stale state for %s: %v", identity.Key(), err)
		} else {
			logging.Info("DriftReconciler", "Cleared stale state for %s (live status: stopped)", identity.Key())
		}
		return Stale
	}

	// An unknown status proves nothing either way. The record survives and
	// the resource comparison decides, same as for a live service.
	if matches(&saved.Resources, live.Resources) {
		return Verified
	}
	return Mismatch
}

// matches compares the persisted resource ref against the live one. The
// platform tags must agree before any identifier comparison is meaningful;
// cross-tagged refs are never compared field-wise.
func matches(saved, live *api.ResourceRef) bool {
	if saved == nil || live == nil {
		return false
	}
	if saved.Platform != live.Platform {
		return false
	}

	switch saved.Platform {
	case api.PlatformProcess:
		if saved.Process == nil || live.Process == nil {
			return false
		}
		return saved.Process.PID == live.Process.PID
	case api.PlatformContainer:
		if saved.Container == nil || live.Container == nil {
			return false
		}
		return saved.Container.ContainerID == live.Container.ContainerID
	case api.PlatformCloud:
		if saved.Cloud == nil || live.Cloud == nil {
			return false
		}
		// Either identifier matching is sufficient: some cloud resources
		// rotate the task id while preserving the ARN, and vice versa.
		if saved.Cloud.ARN != "" && saved.Cloud.ARN == live.Cloud.ARN {
			return true
		}
		if saved.Cloud.InstanceID != "" && saved.Cloud.InstanceID == live.Cloud.InstanceID {
			return true
		}
		return false
	default:
		return false
	}
}
