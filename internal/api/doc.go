// Package api holds the types shared across the orchestration engine: the
// platform and command vocabularies, the ServiceIdentity key, the tagged
// ResourceRef union, the normalized Result shape, the HandlerContext passed
// to every handler, and the typed errors the engine distinguishes.
//
// Keeping these in one dependency-free hub lets the leaf packages (registry,
// state, platform strategies, rollout monitor) interoperate without importing
// each other. The package contains no behavior beyond validation and
// formatting helpers.
//
// # Error taxonomy
//
//   - NotFoundError: a named environment, service or state record does not
//     exist. Matched with IsNotFound.
//   - UnsupportedError: dispatch failure, meaning no handler for the
//     (command, platform, service type) triple or the service's capabilities
//     exclude the command. Always a per-service result, never a batch abort.
//   - ConfigError: invalid environment configuration, reported before any
//     platform call.
//
// Platform call failures and rollout failures are ordinary wrapped errors
// carried in Result.Error; drift is never an error at all, only metadata on
// a successful check.
package api
