package loader

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/strataconf/strata/pkg/registry"
	"github.com/strataconf/strata/pkg/schema"
	"github.com/strataconf/strata/pkg/vars"
)

// Loader parses and validates authored YAML documents.
type Loader struct {
	validate *validator.Validate
}

// New creates a loader.
func New() *Loader {
	return &Loader{validate: validator.New()}
}

// LoadInventory reads and validates an inventory file.
func (l *Loader) LoadInventory(path string) (*InventoryDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory %s: %w", path, err)
	}

	inv := &InventoryDocument{}
	if err := yaml.Unmarshal(raw, inv); err != nil {
		return nil, fmt.Errorf("failed to parse inventory %s: %w", path, err)
	}
	if err := l.validate.Struct(inv); err != nil {
		return nil, fmt.Errorf("inventory %s validation failed: %w", path, err)
	}

	log.Debug().
		Str("path", path).
		Int("hosts", len(inv.Hosts)).
		Int("groups", len(inv.Groups)).
		Msg("Loaded inventory")
	return inv, nil
}

// ApplyInventory registers the inventory's groups and variables and returns
// the target list, ordered by host name. Hosts and groups are processed in
// sorted order so repeated runs register identically.
func (l *Loader) ApplyInventory(reg *registry.Registry, inv *InventoryDocument) ([]registry.Target, error) {
	groupNames := make([]string, 0, len(inv.Groups))
	for name := range inv.Groups {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)

	for _, name := range groupNames {
		entry := inv.Groups[name]
		if err := reg.AddGroup(name, entry.Parents...); err != nil {
			return nil, fmt.Errorf("failed to declare group %s: %w", name, err)
		}
		if len(entry.Vars) == 0 {
			continue
		}
		doc, err := vars.FromGo(entry.Vars)
		if err != nil {
			return nil, fmt.Errorf("group %s variables: %w", name, err)
		}
		if err := reg.Register(registry.ScopeGroupInventory, name, doc); err != nil {
			return nil, fmt.Errorf("failed to register group %s variables: %w", name, err)
		}
	}

	hostNames := make([]string, 0, len(inv.Hosts))
	for name := range inv.Hosts {
		hostNames = append(hostNames, name)
	}
	sort.Strings(hostNames)

	targets := make([]registry.Target, 0, len(hostNames))
	for _, name := range hostNames {
		entry := inv.Hosts[name]
		if len(entry.Vars) > 0 {
			doc, err := vars.FromGo(entry.Vars)
			if err != nil {
				return nil, fmt.Errorf("host %s variables: %w", name, err)
			}
			if err := reg.Register(registry.ScopeHostInventory, name, doc); err != nil {
				return nil, fmt.Errorf("failed to register host %s variables: %w", name, err)
			}
		}
		targets = append(targets, registry.Target{Name: name, Groups: entry.Groups})
	}

	return targets, nil
}

// LoadScopeDocument reads a standalone variable file: a YAML mapping from
// variable names to values.
func (l *Loader) LoadScopeDocument(path string) (vars.Value, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return vars.Null(), fmt.Errorf("failed to read variable file %s: %w", path, err)
	}

	doc := map[string]any{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return vars.Null(), fmt.Errorf("failed to parse variable file %s: %w", path, err)
	}

	v, err := vars.FromGo(doc)
	if err != nil {
		return vars.Null(), fmt.Errorf("variable file %s: %w", path, err)
	}
	return v, nil
}

// LoadSchema reads a schema file and assembles the FieldSpec tree. The
// returned tree has passed its structural check.
func (l *Loader) LoadSchema(path string) (*schema.FieldSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", path, err)
	}

	doc := &SchemaDocument{}
	if err := yaml.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema %s: %w", path, err)
	}
	if err := l.validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("schema %s validation failed: %w", path, err)
	}

	spec, err := l.buildObject(doc.Fields, "$")
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	if err := spec.Check(); err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}

	log.Debug().
		Str("path", path).
		Int("fields", len(spec.Fields)).
		Msg("Loaded schema")
	return spec, nil
}

func (l *Loader) buildObject(fields map[string]*FieldDocument, path string) (*schema.FieldSpec, error) {
	spec := &schema.FieldSpec{
		Kind:   schema.FieldObject,
		Fields: make(map[string]*schema.FieldSpec, len(fields)),
	}
	for name, doc := range fields {
		child, err := l.buildField(doc, path+"."+name)
		if err != nil {
			return nil, err
		}
		spec.Fields[name] = child
	}
	return spec, nil
}

func (l *Loader) buildField(doc *FieldDocument, path string) (*schema.FieldSpec, error) {
	if doc == nil {
		return nil, fmt.Errorf("%s: empty field declaration", path)
	}
	if err := l.validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	spec := &schema.FieldSpec{
		Kind:     schema.FieldKind(doc.Kind),
		Required: doc.Required,
		Min:      doc.Min,
		Max:      doc.Max,
		MinLen:   doc.MinLen,
		MaxLen:   doc.MaxLen,
	}

	if doc.Default != nil {
		v, err := vars.FromGo(doc.Default)
		if err != nil {
			return nil, fmt.Errorf("%s: default: %w", path, err)
		}
		spec.Default = &v
	}

	for i, member := range doc.Enum {
		v, err := vars.FromGo(member)
		if err != nil {
			return nil, fmt.Errorf("%s: enum member %d: %w", path, i, err)
		}
		spec.Enum = append(spec.Enum, v)
	}

	if doc.Pattern != "" {
		re, err := regexp.Compile(doc.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid pattern: %w", path, err)
		}
		spec.Pattern = re
	}

	if doc.Elem != nil {
		elem, err := l.buildField(doc.Elem, path+"[]")
		if err != nil {
			return nil, err
		}
		spec.Elem = elem
	}
	if doc.Value != nil {
		value, err := l.buildField(doc.Value, path+".*")
		if err != nil {
			return nil, err
		}
		spec.Value = value
	}
	if len(doc.Fields) > 0 {
		obj, err := l.buildObject(doc.Fields, path)
		if err != nil {
			return nil, err
		}
		spec.Fields = obj.Fields
	}

	return spec, nil
}

// ParseOverrides turns key=value assignments into a single mapping. Values
// are parsed as YAML scalars, so `mtu=9000` yields an int and
// `enabled=true` a bool. A later assignment of the same key overwrites an
// earlier one.
func ParseOverrides(assignments []string) (vars.Value, error) {
	doc := make(map[string]any, len(assignments))
	for _, assignment := range assignments {
		key, rawValue, ok := strings.Cut(assignment, "=")
		if !ok {
			return vars.Null(), fmt.Errorf("invalid override %q: expected key=value", assignment)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return vars.Null(), fmt.Errorf("invalid override %q: empty key", assignment)
		}

		var value any
		if err := yaml.Unmarshal([]byte(rawValue), &value); err != nil {
			return vars.Null(), fmt.Errorf("invalid override %q: %w", assignment, err)
		}
		doc[key] = value
	}

	v, err := vars.FromGo(doc)
	if err != nil {
		return vars.Null(), fmt.Errorf("overrides: %w", err)
	}
	return v, nil
}
