package registry

import (
	"errors"
	"testing"

	"github.com/strataconf/strata/pkg/vars"
)

func mustRegister(t *testing.T, r *Registry, scope ScopeKind, owner string, raw map[string]any) {
	t.Helper()
	if err := r.Register(scope, owner, vars.MustFromGo(raw)); err != nil {
		t.Fatalf("Register(%s, %q): %v", scope, owner, err)
	}
}

func TestScopeKindOrdering(t *testing.T) {
	if !(ScopeOverride.Rank() > ScopeRuntimeFact.Rank() &&
		ScopeRuntimeFact.Rank() > ScopeTaskLocal.Rank() &&
		ScopeTaskLocal.Rank() > ScopePlayLocal.Rank() &&
		ScopePlayLocal.Rank() > ScopeHostInventory.Rank() &&
		ScopeHostInventory.Rank() > ScopeGroupInventory.Rank() &&
		ScopeGroupInventory.Rank() > ScopeModuleInternal.Rank() &&
		ScopeModuleInternal.Rank() > ScopeModuleDefault.Rank()) {
		t.Fatal("scope ranks are not in the documented total order")
	}
}

func TestParseScopeKind(t *testing.T) {
	for _, scope := range AllScopes {
		parsed, err := ParseScopeKind(scope.String())
		if err != nil {
			t.Fatalf("ParseScopeKind(%q): %v", scope.String(), err)
		}
		if parsed != scope {
			t.Errorf("ParseScopeKind(%q) = %v, want %v", scope.String(), parsed, scope)
		}
	}
	if _, err := ParseScopeKind("galactic"); err == nil {
		t.Error("expected error for unknown scope name")
	}
}

func TestRegisterDuplicateKeyRejected(t *testing.T) {
	r := New()
	mustRegister(t, r, ScopeHostInventory, "rtr1", map[string]any{"mtu": 1500})

	err := r.Register(ScopeHostInventory, "rtr1", vars.MustFromGo(map[string]any{"mtu": 9000}))
	var dup *DuplicateScopeError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateScopeError, got %v", err)
	}
	if dup.Key != "mtu" || dup.Owner != "rtr1" || dup.Scope != ScopeHostInventory {
		t.Errorf("unexpected error detail: %+v", dup)
	}

	// Disjoint keys for the same owner are additive, not duplicates.
	mustRegister(t, r, ScopeHostInventory, "rtr1", map[string]any{"description": "uplink"})
}

func TestRegisterOwnerRules(t *testing.T) {
	r := New()
	if err := r.Register(ScopeHostInventory, "", vars.MustFromGo(map[string]any{"a": 1})); err == nil {
		t.Error("host-inventory without owner must be rejected")
	}
	if err := r.Register(ScopeOverride, "rtr1", vars.MustFromGo(map[string]any{"a": 1})); err == nil {
		t.Error("override with owner must be rejected")
	}
	if err := r.Register(ScopeOverride, "", vars.MustFromGo([]any{1})); err == nil {
		t.Error("non-mapping document must be rejected")
	}
}

func TestSealBarrier(t *testing.T) {
	r := New()
	mustRegister(t, r, ScopeModuleDefault, "", map[string]any{"a": 1})

	if _, err := r.ScopesFor(Target{Name: "rtr1"}); !errors.Is(err, ErrNotSealed) {
		t.Errorf("ScopesFor before Seal: got %v, want ErrNotSealed", err)
	}
	if err := r.Seal(); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if err := r.Register(ScopeOverride, "", vars.MustFromGo(map[string]any{"b": 2})); !errors.Is(err, ErrSealed) {
		t.Errorf("Register after Seal: got %v, want ErrSealed", err)
	}
	if err := r.AddGroup("core"); !errors.Is(err, ErrSealed) {
		t.Errorf("AddGroup after Seal: got %v, want ErrSealed", err)
	}
}

func TestSealRejectsUnknownParent(t *testing.T) {
	r := New()
	if err := r.AddGroup("core_switches", "core"); err != nil {
		t.Fatalf("AddGroup: %v", err)
	}
	err := r.Seal()
	var unknown *UnknownGroupReferenceError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownGroupReferenceError, got %v", err)
	}
	if unknown.Group != "core" {
		t.Errorf("unexpected group in error: %q", unknown.Group)
	}
}

func TestSealRejectsGroupCycle(t *testing.T) {
	r := New()
	if err := r.AddGroup("a", "b"); err != nil {
		t.Fatal(err)
	}
	if err := r.AddGroup("b", "a"); err != nil {
		t.Fatal(err)
	}
	err := r.Seal()
	var cycle *GroupCycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected GroupCycleError, got %v", err)
	}
}

func TestScopesForUnknownGroup(t *testing.T) {
	r := New()
	if err := r.Seal(); err != nil {
		t.Fatal(err)
	}
	_, err := r.ScopesFor(Target{Name: "rtr1", Groups: []string{"ghost"}})
	var unknown *UnknownGroupReferenceError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownGroupReferenceError, got %v", err)
	}
}

func TestScopesForOrdering(t *testing.T) {
	r := New()
	if err := r.AddGroup("core"); err != nil {
		t.Fatal(err)
	}
	if err := r.AddGroup("core_switches", "core"); err != nil {
		t.Fatal(err)
	}
	mustRegister(t, r, ScopeOverride, "", map[string]any{"o": 1})
	mustRegister(t, r, ScopeModuleDefault, "", map[string]any{"d": 1})
	mustRegister(t, r, ScopeGroupInventory, "core", map[string]any{"g": 1})
	mustRegister(t, r, ScopeGroupInventory, "core_switches", map[string]any{"g2": 1})
	mustRegister(t, r, ScopeHostInventory, "rtr1", map[string]any{"h": 1})
	mustRegister(t, r, ScopeHostInventory, "rtr2", map[string]any{"h": 2})
	if err := r.Seal(); err != nil {
		t.Fatal(err)
	}

	docs, err := r.ScopesFor(Target{Name: "rtr1", Groups: []string{"core_switches"}})
	if err != nil {
		t.Fatal(err)
	}

	type sd struct {
		scope ScopeKind
		owner string
	}
	want := []sd{
		{ScopeOverride, ""},
		{ScopeHostInventory, "rtr1"},
		{ScopeGroupInventory, "core_switches"},
		{ScopeGroupInventory, "core"},
		{ScopeModuleDefault, ""},
	}
	if len(docs) != len(want) {
		t.Fatalf("got %d docs, want %d", len(docs), len(want))
	}
	for i, w := range want {
		if docs[i].Scope != w.scope || docs[i].Owner != w.owner {
			t.Errorf("docs[%d] = %s[%s], want %s[%s]",
				i, docs[i].Scope, docs[i].Owner, w.scope, w.owner)
		}
	}
}

func TestGroupSpecificityChildBeforeAncestor(t *testing.T) {
	r := New()
	if err := r.AddGroup("core"); err != nil {
		t.Fatal(err)
	}
	if err := r.AddGroup("core_switches", "core"); err != nil {
		t.Fatal(err)
	}
	mustRegister(t, r, ScopeGroupInventory, "core", map[string]any{"v": "core"})
	mustRegister(t, r, ScopeGroupInventory, "core_switches", map[string]any{"v": "core_switches"})
	if err := r.Seal(); err != nil {
		t.Fatal(err)
	}

	// Ancestor listed first must still lose to its child.
	docs, err := r.ScopesFor(Target{Name: "rtr1", Groups: []string{"core", "core_switches"}})
	if err != nil {
		t.Fatal(err)
	}
	if docs[0].Owner != "core_switches" || docs[1].Owner != "core" {
		t.Errorf("child group must outrank ancestor: got %s then %s", docs[0].Owner, docs[1].Owner)
	}
}

func TestGroupTieBreakByDeclarationOrder(t *testing.T) {
	r := New()
	if err := r.AddGroup("alpha"); err != nil {
		t.Fatal(err)
	}
	if err := r.AddGroup("beta"); err != nil {
		t.Fatal(err)
	}
	mustRegister(t, r, ScopeGroupInventory, "alpha", map[string]any{"v": 1})
	mustRegister(t, r, ScopeGroupInventory, "beta", map[string]any{"v": 2})
	if err := r.Seal(); err != nil {
		t.Fatal(err)
	}

	docs, err := r.ScopesFor(Target{Name: "rtr1", Groups: []string{"beta", "alpha"}})
	if err != nil {
		t.Fatal(err)
	}
	if docs[0].Owner != "beta" || docs[1].Owner != "alpha" {
		t.Errorf("first-listed group must win ties: got %s then %s", docs[0].Owner, docs[1].Owner)
	}
}

func TestUndeclaredAncestorsContribute(t *testing.T) {
	r := New()
	if err := r.AddGroup("dc"); err != nil {
		t.Fatal(err)
	}
	if err := r.AddGroup("rack", "dc"); err != nil {
		t.Fatal(err)
	}
	mustRegister(t, r, ScopeGroupInventory, "dc", map[string]any{"site": "ams"})
	if err := r.Seal(); err != nil {
		t.Fatal(err)
	}

	// Target only declares the leaf group; the ancestor's vars still apply.
	docs, err := r.ScopesFor(Target{Name: "sw1", Groups: []string{"rack"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Owner != "dc" {
		t.Fatalf("expected inherited dc document, got %+v", docs)
	}
}

func TestGroupDepth(t *testing.T) {
	r := New()
	if err := r.AddGroup("all"); err != nil {
		t.Fatal(err)
	}
	if err := r.AddGroup("eu", "all"); err != nil {
		t.Fatal(err)
	}
	if err := r.AddGroup("eu_core", "eu"); err != nil {
		t.Fatal(err)
	}
	if err := r.Seal(); err != nil {
		t.Fatal(err)
	}
	for name, want := range map[string]int{"all": 0, "eu": 1, "eu_core": 2, "ghost": -1} {
		if got := r.GroupDepth(name); got != want {
			t.Errorf("GroupDepth(%q) = %d, want %d", name, got, want)
		}
	}
}
