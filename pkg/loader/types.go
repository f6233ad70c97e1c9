package loader

// InventoryDocument is the parsed form of an inventory file.
type InventoryDocument struct {
	// Hosts maps host names to their entries.
	Hosts map[string]HostEntry `yaml:"hosts" validate:"required,min=1"`

	// Groups maps group names to their entries. Groups referenced by hosts
	// or as parents must appear here or be implicitly declared by carrying
	// variables.
	Groups map[string]GroupEntry `yaml:"groups,omitempty"`
}

// HostEntry is one host in an inventory file.
type HostEntry struct {
	// Groups lists the host's group memberships in declaration order.
	// Order is the documented precedence tie-break between unrelated
	// groups.
	Groups []string `yaml:"groups,omitempty"`

	// Vars holds host-inventory variables.
	Vars map[string]any `yaml:"vars,omitempty"`
}

// GroupEntry is one group in an inventory file.
type GroupEntry struct {
	// Parents lists the groups this group nests under.
	Parents []string `yaml:"parents,omitempty"`

	// Vars holds group-inventory variables.
	Vars map[string]any `yaml:"vars,omitempty"`
}

// SchemaDocument is the parsed form of a schema file. The document as a
// whole describes the root object.
type SchemaDocument struct {
	Fields map[string]*FieldDocument `yaml:"fields" validate:"required,min=1"`
}

// FieldDocument is one field declaration in a schema file.
type FieldDocument struct {
	// Kind names the declared field type.
	Kind string `yaml:"kind" validate:"required,oneof=string int float bool ipaddr enum sequence mapping object"`

	// Required marks the field mandatory.
	Required bool `yaml:"required,omitempty"`

	// Default is the value substituted when an optional field is absent.
	Default any `yaml:"default,omitempty"`

	// Enum lists allowed members for enum fields.
	Enum []any `yaml:"enum,omitempty"`

	// Min and Max bound numeric fields (inclusive).
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`

	// MinLen and MaxLen bound string lengths and sequence element counts.
	MinLen *int `yaml:"min_len,omitempty"`
	MaxLen *int `yaml:"max_len,omitempty"`

	// Pattern is a regular expression constraint for string fields.
	Pattern string `yaml:"pattern,omitempty"`

	// Elem specifies sequence elements.
	Elem *FieldDocument `yaml:"elem,omitempty"`

	// Value specifies mapping values.
	Value *FieldDocument `yaml:"value,omitempty"`

	// Fields specifies object members.
	Fields map[string]*FieldDocument `yaml:"fields,omitempty"`
}
