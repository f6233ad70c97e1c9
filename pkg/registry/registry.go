package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/strataconf/strata/pkg/vars"
)

// Target is the identity of the entity being configured: a unique name plus
// its declared group memberships, in declaration order. Declaration order is
// the documented tie-break between unrelated groups of equal specificity.
type Target struct {
	Name   string
	Groups []string
}

// ScopeDocument is one resolved source of variables for a target: the scope
// kind, the owning host or group (empty for global scopes), and the
// registered mapping.
type ScopeDocument struct {
	Scope ScopeKind
	Owner string
	Vars  vars.Value
}

type group struct {
	name    string
	parents []string
	depth   int
}

// Registry holds every registered scope document for one run. It is
// populated once, sealed, and read-only from then on.
type Registry struct {
	mu     sync.RWMutex
	sealed bool

	// docs indexes top-level variable bindings by scope and owner. Global
	// scopes use the empty owner.
	docs map[ScopeKind]map[string]map[string]vars.Value

	groups map[string]*group
}

// New returns an empty, unsealed registry.
func New() *Registry {
	return &Registry{
		docs:   make(map[ScopeKind]map[string]map[string]vars.Value),
		groups: make(map[string]*group),
	}
}

// AddGroup declares a group and its parent groups (the groups it is nested
// inside). Parents may be declared later; Seal verifies all references.
// Declaring the same group twice merges the parent lists.
func (r *Registry) AddGroup(name string, parents ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrSealed
	}
	g, ok := r.groups[name]
	if !ok {
		g = &group{name: name}
		r.groups[name] = g
	}
	for _, p := range parents {
		if !containsString(g.parents, p) {
			g.parents = append(g.parents, p)
		}
	}
	return nil
}

// Register ingests one already-parsed scope document. Owner must be empty
// for global scopes and a host or group name for inventory scopes. The
// mapping's top-level keys are recorded individually: registering the same
// (scope, owner, key) triple twice fails with DuplicateScopeError.
func (r *Registry) Register(scope ScopeKind, owner string, mapping vars.Value) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrSealed
	}
	if scope.Owned() && owner == "" {
		return fmt.Errorf("scope %s requires a host or group owner", scope)
	}
	if !scope.Owned() && owner != "" {
		return fmt.Errorf("scope %s is global and cannot be owned by %q", scope, owner)
	}
	if mapping.Kind() != vars.KindMapping {
		return fmt.Errorf("scope %s document must be a mapping, got %s", scope, mapping.Kind())
	}

	byOwner, ok := r.docs[scope]
	if !ok {
		byOwner = make(map[string]map[string]vars.Value)
		r.docs[scope] = byOwner
	}
	doc, ok := byOwner[owner]
	if !ok {
		doc = make(map[string]vars.Value)
		byOwner[owner] = doc
	}

	for _, key := range mapping.Keys() {
		if _, exists := doc[key]; exists {
			return &DuplicateScopeError{Scope: scope, Owner: owner, Key: key}
		}
	}
	for _, key := range mapping.Keys() {
		v, _ := mapping.Get(key)
		doc[key] = v
	}

	// A group-inventory registration implicitly declares the group.
	if scope == ScopeGroupInventory {
		if _, ok := r.groups[owner]; !ok {
			r.groups[owner] = &group{name: owner}
		}
	}

	log.Debug().
		Str("scope", scope.String()).
		Str("owner", owner).
		Int("keys", mapping.Len()).
		Msg("Registered scope document")
	return nil
}

// Seal verifies the group graph and flips the registry read-only. All
// Register and AddGroup calls must complete before the first ScopesFor.
func (r *Registry) Seal() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return nil
	}
	for _, g := range r.groups {
		for _, p := range g.parents {
			if _, ok := r.groups[p]; !ok {
				return &UnknownGroupReferenceError{Group: p, Referrer: "group " + g.name}
			}
		}
	}
	if err := r.computeDepths(); err != nil {
		return err
	}
	r.sealed = true

	log.Debug().Int("groups", len(r.groups)).Msg("Registry sealed")
	return nil
}

// computeDepths assigns each group its nesting depth: roots are 0, a child
// is one deeper than its deepest parent. Depth is the specificity measure
// used to order group scopes. Cycles are rejected.
func (r *Registry) computeDepths() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(r.groups))

	var visit func(name string) (int, error)
	visit = func(name string) (int, error) {
		g := r.groups[name]
		switch state[name] {
		case done:
			return g.depth, nil
		case visiting:
			return 0, &GroupCycleError{Group: name}
		}
		state[name] = visiting
		depth := 0
		for _, p := range g.parents {
			pd, err := visit(p)
			if err != nil {
				return 0, err
			}
			if pd+1 > depth {
				depth = pd + 1
			}
		}
		g.depth = depth
		state[name] = done
		return depth, nil
	}

	for name := range r.groups {
		if _, err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// ScopesFor returns the scope documents applicable to the target, highest
// precedence first: all registered global scopes in rank order, the
// target's own host-inventory document, and one document per effective
// group. Effective groups are the declared memberships plus all of their
// ancestors; within the group tier a more deeply nested group outranks a
// shallower one, and equal depths fall back to declaration order.
//
// ScopesFor is a pure function of registry state and target identity.
func (r *Registry) ScopesFor(target Target) ([]ScopeDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.sealed {
		return nil, ErrNotSealed
	}

	effective, err := r.effectiveGroups(target)
	if err != nil {
		return nil, err
	}

	out := make([]ScopeDocument, 0, len(AllScopes)+len(effective))
	for _, scope := range AllScopes {
		switch scope {
		case ScopeHostInventory:
			if doc := r.lookup(scope, target.Name); doc != nil {
				out = append(out, ScopeDocument{Scope: scope, Owner: target.Name, Vars: docMapping(doc)})
			}
		case ScopeGroupInventory:
			for _, name := range effective {
				if doc := r.lookup(scope, name); doc != nil {
					out = append(out, ScopeDocument{Scope: scope, Owner: name, Vars: docMapping(doc)})
				}
			}
		default:
			if doc := r.lookup(scope, ""); doc != nil {
				out = append(out, ScopeDocument{Scope: scope, Vars: docMapping(doc)})
			}
		}
	}
	return out, nil
}

// effectiveGroups expands declared memberships with their ancestors and
// orders the result most specific first.
func (r *Registry) effectiveGroups(target Target) ([]string, error) {
	firstSeen := make(map[string]int)
	var order []string

	var expand func(name string) error
	expand = func(name string) error {
		if _, seen := firstSeen[name]; seen {
			return nil
		}
		g, ok := r.groups[name]
		if !ok {
			return &UnknownGroupReferenceError{Group: name, Referrer: "target " + target.Name}
		}
		firstSeen[name] = len(order)
		order = append(order, name)
		for _, p := range g.parents {
			if err := expand(p); err != nil {
				return err
			}
		}
		return nil
	}

	for _, name := range target.Groups {
		if err := expand(name); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		gi, gj := r.groups[order[i]], r.groups[order[j]]
		if gi.depth != gj.depth {
			return gi.depth > gj.depth
		}
		return firstSeen[order[i]] < firstSeen[order[j]]
	})
	return order, nil
}

// GroupDepth returns the nesting depth of a named group. Valid only after
// Seal; unknown groups report -1.
func (r *Registry) GroupDepth(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[name]
	if !ok {
		return -1
	}
	return g.depth
}

// HasGroup reports whether the group has been declared or registered.
func (r *Registry) HasGroup(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.groups[name]
	return ok
}

func (r *Registry) lookup(scope ScopeKind, owner string) map[string]vars.Value {
	byOwner, ok := r.docs[scope]
	if !ok {
		return nil
	}
	return byOwner[owner]
}

func docMapping(doc map[string]vars.Value) vars.Value {
	entries := make(map[string]vars.Value, len(doc))
	for k, v := range doc {
		entries[k] = v
	}
	return vars.Mapping(entries)
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
