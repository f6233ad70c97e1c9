package merge

import (
	"sort"
	"strings"

	"github.com/strataconf/strata/pkg/registry"
	"github.com/strataconf/strata/pkg/vars"
)

// Provenance records which scope, and for group scopes which owner,
// supplied a field's winning value.
type Provenance struct {
	Scope string `json:"scope"`
	Owner string `json:"owner,omitempty"`
}

// String renders the provenance as scope or scope:owner.
func (p Provenance) String() string {
	if p.Owner == "" {
		return p.Scope
	}
	return p.Scope + ":" + p.Owner
}

// MergedVariableSet is the merged variable mapping of one target plus the
// provenance of every leaf path. It is built fresh per target and never
// mutated afterwards; it is the immutable input to validation.
type MergedVariableSet struct {
	root vars.Value
	prov map[string]Provenance
}

// Merge computes the MergedVariableSet for a target: it obtains the ordered
// scope documents from the registry and folds them lowest precedence first
// under deep-merge semantics. Structural registry errors (unsealed
// registry, unknown group references) are passed through unchanged.
func Merge(reg *registry.Registry, target registry.Target) (*MergedVariableSet, error) {
	docs, err := reg.ScopesFor(target)
	if err != nil {
		return nil, err
	}

	acc := vars.Mapping(nil)
	prov := make(map[string]Provenance)

	// ScopesFor yields highest precedence first; fold from the back so
	// later (higher) documents overwrite earlier ones.
	for i := len(docs) - 1; i >= 0; i-- {
		doc := docs[i]
		p := Provenance{Scope: doc.Scope.String(), Owner: doc.Owner}
		acc = mergeValue(acc, doc.Vars, "", prov, p)
	}

	return &MergedVariableSet{root: acc, prov: prov}, nil
}

// mergeValue merges incoming over existing at path, recording provenance
// for every leaf the incoming value wins.
func mergeValue(existing, incoming vars.Value, path string, prov map[string]Provenance, p Provenance) vars.Value {
	if existing.Kind() == vars.KindMapping && incoming.Kind() == vars.KindMapping {
		merged := make(map[string]vars.Value, existing.Len()+incoming.Len())
		for _, k := range existing.Keys() {
			v, _ := existing.Get(k)
			merged[k] = v
		}
		for _, k := range incoming.Keys() {
			in, _ := incoming.Get(k)
			childPath := joinPath(path, k)
			if ex, ok := existing.Get(k); ok {
				merged[k] = mergeValue(ex, in, childPath, prov, p)
			} else {
				merged[k] = in
				recordLeaves(in, childPath, prov, p)
			}
		}
		return vars.Mapping(merged)
	}

	// Sequences, scalars, and kind mismatches replace wholesale; any
	// provenance recorded beneath the old value is stale.
	clearSubtree(prov, path)
	recordLeaves(incoming, path, prov, p)
	return incoming
}

// recordLeaves writes provenance for every leaf path under v. Non-empty
// mappings recurse; everything else (scalars, sequences, empty mappings)
// is a leaf.
func recordLeaves(v vars.Value, path string, prov map[string]Provenance, p Provenance) {
	if v.Kind() == vars.KindMapping && v.Len() > 0 {
		for _, k := range v.Keys() {
			child, _ := v.Get(k)
			recordLeaves(child, joinPath(path, k), prov, p)
		}
		return
	}
	if path != "" {
		prov[path] = p
	}
}

// clearSubtree removes provenance entries at path and below.
func clearSubtree(prov map[string]Provenance, path string) {
	if path == "" {
		for k := range prov {
			delete(prov, k)
		}
		return
	}
	delete(prov, path)
	prefix := path + "."
	for k := range prov {
		if strings.HasPrefix(k, prefix) {
			delete(prov, k)
		}
	}
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

// Vars returns the merged variable mapping.
func (m *MergedVariableSet) Vars() vars.Value {
	return m.root
}

// Get resolves a dotted path against the merged mapping.
func (m *MergedVariableSet) Get(path string) (vars.Value, bool) {
	cur := m.root
	for _, seg := range strings.Split(path, ".") {
		next, ok := cur.Get(seg)
		if !ok {
			return vars.Value{}, false
		}
		cur = next
	}
	return cur, true
}

// Provenance returns the provenance of a leaf path.
func (m *MergedVariableSet) Provenance(path string) (Provenance, bool) {
	p, ok := m.prov[path]
	return p, ok
}

// ProvenanceMap returns a copy of the full path-to-provenance mapping.
func (m *MergedVariableSet) ProvenanceMap() map[string]Provenance {
	out := make(map[string]Provenance, len(m.prov))
	for k, v := range m.prov {
		out[k] = v
	}
	return out
}

// Paths returns every leaf path with recorded provenance, sorted.
func (m *MergedVariableSet) Paths() []string {
	paths := make([]string, 0, len(m.prov))
	for k := range m.prov {
		paths = append(paths, k)
	}
	sort.Strings(paths)
	return paths
}
