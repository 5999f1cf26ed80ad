// Package logging provides the structured logging facility shared by every
// steward subsystem.
//
// It wraps log/slog with a subsystem tag and printf-style helpers:
//
//	logging.Info("Orchestrator", "processing %d services", len(targets))
//	logging.Error("StateStore", err, "failed to persist state for %s", name)
//
// Two modes exist, selected once at startup:
//
//   - CLI mode (InitForCLI): entries below the filter level are dropped and
//     the rest are written to the given writer via a slog text handler. This
//     is the mode every steward command uses.
//
//   - Channel mode (InitForChannel): entries are delivered on a buffered
//     channel instead of being written anywhere. This exists for an attached
//     dashboard process, which renders and filters entries itself. If the
//     consumer falls behind, entries spill to stderr rather than blocking
//     lifecycle operations.
//
// The package deliberately exposes package-level functions rather than a
// logger value: subsystems are short strings chosen at the call site, and the
// orchestration engine never needs per-component logger configuration.
package logging
