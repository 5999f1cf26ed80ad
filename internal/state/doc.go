// Package state persists steward's belief about running service instances
// and reconciles that belief against live platform reports.
//
// # Store
//
// One YAML record per (environment, service), written on successful start,
// read by check/update/exec, removed on successful stop. Records carry a
// schema version, the owning identity, the platform-tagged resource ref and
// the start time. There is no history and no locking beyond the storage
// layer's: sequential command processing is the concurrency model.
//
// # Drift reconciliation
//
// On every check the Reconciler classifies the (saved, live) pair as exactly
// one of consistent, untracked-running, stale, verified or mismatch. The
// classification is metadata on the check result, never an error: check
// always reports the live status even when the bookkeeping disagrees. The
// single side effect is that a stale record (saved state, live stopped) is
// cleared immediately, because keeping it would make a later start falsely
// report "already running".
//
// Resource comparison is tag-first: a persisted process ref is never
// compared field-wise against a live container ref. For cloud refs either
// the ARN or the instance id matching suffices, since managed resources can
// rotate one identifier while preserving the other.
//
// # Watcher
//
// Watcher wraps fsnotify around an environment's state directory and emits
// debounced events when records change outside a steward command, giving an
// attached dashboard a signal to re-check without polling.
package state
