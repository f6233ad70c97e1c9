package registry

import "fmt"

// ScopeKind identifies a precedence-ranked source of variables. The rank is
// intrinsic to the kind and never reassigned: a higher value always wins
// over a lower one for the same key.
type ScopeKind int

const (
	// ScopeModuleDefault holds a reusable module's built-in defaults.
	ScopeModuleDefault ScopeKind = iota

	// ScopeModuleInternal holds a module's internal variables.
	ScopeModuleInternal

	// ScopeGroupInventory holds inventory variables of one group; owner is
	// the group name. Specificity between groups is resolved by the
	// registry, not by the rank.
	ScopeGroupInventory

	// ScopeHostInventory holds inventory variables of one host; owner is
	// the host name.
	ScopeHostInventory

	// ScopePlayLocal holds variables bound to the current play.
	ScopePlayLocal

	// ScopeTaskLocal holds variables bound to the current task.
	ScopeTaskLocal

	// ScopeRuntimeFact holds collected facts and registered results.
	ScopeRuntimeFact

	// ScopeOverride holds command-line extra-vars; the highest rank.
	ScopeOverride
)

// scopeNames maps kinds to their wire names, lowest rank first.
var scopeNames = [...]string{
	ScopeModuleDefault:  "module-default",
	ScopeModuleInternal: "module-internal",
	ScopeGroupInventory: "group-inventory",
	ScopeHostInventory:  "host-inventory",
	ScopePlayLocal:      "play-local",
	ScopeTaskLocal:      "task-local",
	ScopeRuntimeFact:    "runtime-fact",
	ScopeOverride:       "override",
}

// AllScopes lists every scope kind, highest precedence first.
var AllScopes = [...]ScopeKind{
	ScopeOverride,
	ScopeRuntimeFact,
	ScopeTaskLocal,
	ScopePlayLocal,
	ScopeHostInventory,
	ScopeGroupInventory,
	ScopeModuleInternal,
	ScopeModuleDefault,
}

// String returns the wire name of the scope kind.
func (s ScopeKind) String() string {
	if int(s) < 0 || int(s) >= len(scopeNames) {
		return fmt.Sprintf("scope(%d)", int(s))
	}
	return scopeNames[s]
}

// Rank returns the integer precedence rank; higher wins.
func (s ScopeKind) Rank() int {
	return int(s)
}

// Owned reports whether documents of this kind are keyed by a host or group
// owner. Global scopes carry an empty owner.
func (s ScopeKind) Owned() bool {
	return s == ScopeHostInventory || s == ScopeGroupInventory
}

// ParseScopeKind resolves a wire name back to a ScopeKind.
func ParseScopeKind(name string) (ScopeKind, error) {
	for kind, n := range scopeNames {
		if n == name {
			return ScopeKind(kind), nil
		}
	}
	return 0, fmt.Errorf("unknown scope kind %q", name)
}
