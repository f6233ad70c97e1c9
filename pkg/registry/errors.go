package registry

import (
	"errors"
	"fmt"
)

// ErrSealed is returned when Register or AddGroup is called after Seal.
var ErrSealed = errors.New("registry is sealed")

// ErrNotSealed is returned when ScopesFor is called before Seal.
var ErrNotSealed = errors.New("registry is not sealed")

// DuplicateScopeError reports a second registration of the same
// (scope, owner, key) triple. Ambiguous authorship is rejected, never
// silently overwritten; this is fatal to the whole run.
type DuplicateScopeError struct {
	Scope ScopeKind
	Owner string
	Key   string
}

// Error implements the error interface.
func (e *DuplicateScopeError) Error() string {
	if e.Owner != "" {
		return fmt.Sprintf("duplicate registration of key %q in scope %s[%s]", e.Key, e.Scope, e.Owner)
	}
	return fmt.Sprintf("duplicate registration of key %q in scope %s", e.Key, e.Scope)
}

// UnknownGroupReferenceError reports a target declaring membership in a
// group the registry has never seen, or a group whose parent is unknown.
// The configuration model itself is ill-defined; fatal to the whole run.
type UnknownGroupReferenceError struct {
	Group    string
	Referrer string
}

// Error implements the error interface.
func (e *UnknownGroupReferenceError) Error() string {
	return fmt.Sprintf("%s references unknown group %q", e.Referrer, e.Group)
}

// GroupCycleError reports a cycle in the group parent graph.
type GroupCycleError struct {
	Group string
}

// Error implements the error interface.
func (e *GroupCycleError) Error() string {
	return fmt.Sprintf("group %q participates in a membership cycle", e.Group)
}
