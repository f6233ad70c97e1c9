package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/strataconf/strata/pkg/registry"
	"github.com/strataconf/strata/pkg/schema"
	"github.com/strataconf/strata/pkg/vars"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleInventory = `
hosts:
  rtr2:
    groups: [core]
  rtr1:
    groups: [core, europe]
    vars:
      description: uplink to region
groups:
  backbone:
    vars:
      mtu: 9000
  core:
    parents: [backbone]
    vars:
      enabled: true
  europe:
    vars:
      region: eu
`

func TestLoadAndApplyInventory(t *testing.T) {
	l := New()
	inv, err := l.LoadInventory(writeFile(t, "inventory.yaml", sampleInventory))
	if err != nil {
		t.Fatalf("LoadInventory() = %v", err)
	}

	reg := registry.New()
	targets, err := l.ApplyInventory(reg, inv)
	if err != nil {
		t.Fatalf("ApplyInventory() = %v", err)
	}
	if err := reg.Seal(); err != nil {
		t.Fatalf("Seal() = %v", err)
	}

	// Targets come back sorted by host name; declared group order is kept.
	if len(targets) != 2 {
		t.Fatalf("targets = %v", targets)
	}
	if targets[0].Name != "rtr1" || targets[1].Name != "rtr2" {
		t.Errorf("target order = %s, %s", targets[0].Name, targets[1].Name)
	}
	if len(targets[0].Groups) != 2 || targets[0].Groups[0] != "core" || targets[0].Groups[1] != "europe" {
		t.Errorf("rtr1 groups = %v", targets[0].Groups)
	}

	// core nests under backbone, so it is more specific.
	if reg.GroupDepth("core") <= reg.GroupDepth("backbone") {
		t.Errorf("core depth %d must exceed backbone depth %d",
			reg.GroupDepth("core"), reg.GroupDepth("backbone"))
	}

	docs, err := reg.ScopesFor(targets[0])
	if err != nil {
		t.Fatalf("ScopesFor(rtr1) = %v", err)
	}
	// host-inventory rtr1, then core (deepest), then backbone and europe
	// tied at depth 0 in first-seen order: backbone is reached through
	// core, the first declared group.
	if len(docs) != 4 {
		t.Fatalf("rtr1 scope documents = %d", len(docs))
	}
	if docs[0].Scope != registry.ScopeHostInventory || docs[0].Owner != "rtr1" {
		t.Errorf("docs[0] = %+v", docs[0])
	}
	if docs[1].Owner != "core" || docs[2].Owner != "backbone" || docs[3].Owner != "europe" {
		t.Errorf("group order = %s, %s, %s", docs[1].Owner, docs[2].Owner, docs[3].Owner)
	}
}

func TestLoadInventoryRejectsEmpty(t *testing.T) {
	l := New()
	if _, err := l.LoadInventory(writeFile(t, "empty.yaml", "groups: {}\n")); err == nil {
		t.Error("inventory without hosts must fail validation")
	}
}

func TestLoadInventoryMissingFile(t *testing.T) {
	l := New()
	if _, err := l.LoadInventory(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file must fail")
	}
}

func TestApplyInventoryUnknownParentFailsAtSeal(t *testing.T) {
	l := New()
	inv, err := l.LoadInventory(writeFile(t, "inventory.yaml", `
hosts:
  rtr1: {}
groups:
  core:
    parents: [no-such-group]
`))
	if err != nil {
		t.Fatalf("LoadInventory() = %v", err)
	}

	reg := registry.New()
	if _, err := l.ApplyInventory(reg, inv); err != nil {
		t.Fatalf("ApplyInventory() = %v", err)
	}
	if err := reg.Seal(); err == nil {
		t.Error("sealing with an unknown parent group must fail")
	}
}

func TestLoadScopeDocument(t *testing.T) {
	l := New()
	v, err := l.LoadScopeDocument(writeFile(t, "play.yaml", `
mtu: 1500
dns: [10.0.0.1, 10.0.0.2]
nested:
  enabled: true
`))
	if err != nil {
		t.Fatalf("LoadScopeDocument() = %v", err)
	}
	if v.Kind() != vars.KindMapping || v.Len() != 3 {
		t.Fatalf("document = %v", v)
	}
	mtu, _ := v.Get("mtu")
	if i, ok := mtu.IntVal(); !ok || i != 1500 {
		t.Errorf("mtu = %v", mtu)
	}

	if _, err := l.LoadScopeDocument(writeFile(t, "seq.yaml", "- a\n- b\n")); err == nil {
		t.Error("non-mapping root must fail")
	}
}

func TestLoadSchema(t *testing.T) {
	l := New()
	spec, err := l.LoadSchema(writeFile(t, "schema.yaml", `
fields:
  mtu:
    kind: int
    required: true
    min: 576
    max: 9216
  role:
    kind: enum
    enum: [access, trunk]
    default: access
  dns:
    kind: sequence
    max_len: 3
    elem:
      kind: ipaddr
  description:
    kind: string
    pattern: "^[ -~]*$"
  ports:
    kind: mapping
    value:
      kind: object
      fields:
        enabled:
          kind: bool
`))
	if err != nil {
		t.Fatalf("LoadSchema() = %v", err)
	}

	if spec.Kind != schema.FieldObject || len(spec.Fields) != 5 {
		t.Fatalf("root = %+v", spec)
	}

	mtu := spec.Fields["mtu"]
	if mtu.Kind != schema.FieldInt || !mtu.Required || *mtu.Min != 576 || *mtu.Max != 9216 {
		t.Errorf("mtu = %+v", mtu)
	}

	role := spec.Fields["role"]
	if role.Kind != schema.FieldEnum || len(role.Enum) != 2 {
		t.Fatalf("role = %+v", role)
	}
	if role.Default == nil {
		t.Fatal("role default missing")
	}
	if s, _ := role.Default.StringVal(); s != "access" {
		t.Errorf("role default = %v", role.Default)
	}

	dns := spec.Fields["dns"]
	if dns.Kind != schema.FieldSequence || dns.Elem.Kind != schema.FieldIPAddr || *dns.MaxLen != 3 {
		t.Errorf("dns = %+v", dns)
	}

	if spec.Fields["description"].Pattern == nil {
		t.Error("description pattern not compiled")
	}

	ports := spec.Fields["ports"]
	if ports.Kind != schema.FieldMapping || ports.Value.Fields["enabled"].Kind != schema.FieldBool {
		t.Errorf("ports = %+v", ports)
	}
}

func TestLoadSchemaRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "unknown kind", doc: "fields:\n  x:\n    kind: decimal\n"},
		{name: "no fields", doc: "fields: {}\n"},
		{name: "bad pattern", doc: "fields:\n  x:\n    kind: string\n    pattern: \"[\"\n"},
		{name: "required with default", doc: "fields:\n  x:\n    kind: int\n    required: true\n    default: 1\n"},
		{name: "sequence without elem", doc: "fields:\n  x:\n    kind: sequence\n"},
		{name: "range on string", doc: "fields:\n  x:\n    kind: string\n    min: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			if _, err := l.LoadSchema(writeFile(t, "schema.yaml", tt.doc)); err == nil {
				t.Errorf("schema %q must fail", tt.doc)
			}
		})
	}
}

func TestParseOverrides(t *testing.T) {
	v, err := ParseOverrides([]string{"mtu=9000", "enabled=true", "description=spine uplink", "mtu=1500"})
	if err != nil {
		t.Fatalf("ParseOverrides() = %v", err)
	}

	mtu, _ := v.Get("mtu")
	if i, ok := mtu.IntVal(); !ok || i != 1500 {
		t.Errorf("mtu = %v (later assignment must win)", mtu)
	}
	enabled, _ := v.Get("enabled")
	if b, ok := enabled.BoolVal(); !ok || !b {
		t.Errorf("enabled = %v", enabled)
	}
	desc, _ := v.Get("description")
	if s, _ := desc.StringVal(); s != "spine uplink" {
		t.Errorf("description = %v", desc)
	}
}

func TestParseOverridesRejectsMalformed(t *testing.T) {
	if _, err := ParseOverrides([]string{"mtu"}); err == nil {
		t.Error("missing = must fail")
	}
	if _, err := ParseOverrides([]string{"=x"}); err == nil {
		t.Error("empty key must fail")
	}
}
