// Package corefail names the error taxonomy the simulation core uses
// internally (spec.md §7). These are kinds, not concrete types: callers
// wrap a sentinel with fmt.Errorf("...: %w", err) and check with errors.Is.
package corefail

import "errors"

var (
	// TransientExternal marks a persistence/item-service failure. Logged,
	// best-effort retry allowed, never blocks a tick.
	TransientExternal = errors.New("transient external failure")

	// InvariantViolation marks a data invariant break (two player entities
	// for one session, a resource prototype typed npc, ...). Logged as an
	// error; the caller takes corrective action (cleanup, rebind).
	InvariantViolation = errors.New("invariant violation")

	// NotFound marks a missing entity/prototype/session. The operation is
	// silently skipped.
	NotFound = errors.New("not found")

	// TargetInvalid marks an Engage State Law rejection. Actions become no-ops.
	TargetInvalid = errors.New("target invalid")

	// ConfigFault marks malformed input (bad room id, non-finite coords).
	// Rejected with a warning; no mutation occurs.
	ConfigFault = errors.New("config fault")

	// ProtectedTarget marks a service/invulnerable NPC. The operation
	// no-ops and returns the current state.
	ProtectedTarget = errors.New("protected target")
)
