// Package service provides the per-service façade. Every verb invocation
// flows through it: dry-run requests short-circuit before any dispatch,
// capability annotations gate which verbs a service accepts, pre/post hooks
// wrap platform execution, and the persisted state record is saved on
// successful start, cleared on successful stop, and reconciled against live
// status on check.
package service
