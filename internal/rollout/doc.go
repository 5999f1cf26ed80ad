// Package rollout tracks a managed-orchestrator deployment to completion.
//
// The update verb on the cloud platform triggers a rolling replacement whose
// outcome cannot be judged by "new instances are healthy" alone: the same
// API represents both version upgrades and no-op restarts of unchanged code,
// and the two complete differently. This package polls the platform on a
// fixed interval and decides among succeeded (upgrade), succeeded (restart
// of the same revision), and failed, while surfacing failure diagnostics the
// moment they are observed rather than in a final summary.
//
// The design splits the work in two:
//
//   - Transition is a pure function (State, Observation) -> (State, []Event).
//     It holds every rule: tracked-deployment liveness, the once-only
//     image-pull timeout extension, stopped-task accounting with the
//     three-consecutive-failures abort, the recovery reset, the completion
//     test, and the timeout. Being pure, it is unit-testable with literal
//     observations and no mocks.
//
//   - Monitor is the outer loop: initiate the rollout through the API
//     contract, sleep, observe, apply Transition, hand emitted events to a
//     Sink for rendering. It honors context cancellation between ticks.
//
// The platform adapter implements the API contract and owns every
// platform-specific judgment, including deriving the typed SteadyState
// signal the restart completion branch requires.
package rollout
