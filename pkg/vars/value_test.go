package vars

import (
	"reflect"
	"testing"
)

func TestFromGo(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    Value
		wantErr bool
	}{
		{name: "nil", raw: nil, want: Null()},
		{name: "bool", raw: true, want: Bool(true)},
		{name: "int", raw: 42, want: Int(42)},
		{name: "int64", raw: int64(-7), want: Int(-7)},
		{name: "float", raw: 1.5, want: Float(1.5)},
		{name: "string", raw: "vlan", want: String("vlan")},
		{
			name: "sequence",
			raw:  []any{1, "two", true},
			want: Sequence(Int(1), String("two"), Bool(true)),
		},
		{
			name: "nested mapping",
			raw: map[string]any{
				"iface": map[string]any{"mtu": 9000},
			},
			want: Mapping(map[string]Value{
				"iface": Mapping(map[string]Value{"mtu": Int(9000)}),
			}),
		},
		{
			name: "interface keyed mapping",
			raw:  map[any]any{"a": 1},
			want: Mapping(map[string]Value{"a": Int(1)}),
		},
		{name: "struct rejected", raw: struct{}{}, wantErr: true},
		{name: "non-string key rejected", raw: map[any]any{7: "x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromGo(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToGoRoundTrip(t *testing.T) {
	raw := map[string]any{
		"name":    "rtr1",
		"vlan_id": int64(100),
		"dns":     []any{"10.0.0.1", "10.0.0.2"},
		"snmp":    map[string]any{"enabled": true, "community": nil},
	}

	v := MustFromGo(raw)
	back := v.ToGo()
	if !reflect.DeepEqual(back, raw) {
		t.Errorf("round trip mismatch:\n got %#v\nwant %#v", back, raw)
	}
}

func TestEqualDistinguishesKinds(t *testing.T) {
	if Int(1).Equal(Float(1)) {
		t.Error("int and float with the same numeric value must not be equal")
	}
	if String("true").Equal(Bool(true)) {
		t.Error("string and bool must not be equal")
	}
	if Sequence(Int(1)).Equal(Sequence(Int(1), Int(2))) {
		t.Error("sequences of different lengths must not be equal")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := Mapping(map[string]Value{
		"settings": Mapping(map[string]Value{"a": Int(1)}),
		"list":     Sequence(Int(1), Int(2)),
	})

	clone := orig.Clone()
	if !clone.Equal(orig) {
		t.Fatalf("clone differs from original: %v vs %v", clone, orig)
	}

	// Mutate the clone's internals through its accessors' backing storage.
	inner, _ := clone.Get("settings")
	inner.mp["a"] = Int(99)
	clone.Elems()[0] = Int(99)

	if got, _ := orig.mp["settings"].Get("a"); !got.Equal(Int(1)) {
		t.Errorf("mutating clone mapping leaked into original: %v", got)
	}
	if !orig.Elems()[0].Equal(Int(1)) {
		t.Errorf("mutating clone sequence leaked into original")
	}
}

func TestKeysSorted(t *testing.T) {
	v := Mapping(map[string]Value{"zebra": Null(), "alpha": Null(), "mike": Null()})
	want := []string{"alpha", "mike", "zebra"}
	if got := v.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestStringRendering(t *testing.T) {
	v := Mapping(map[string]Value{
		"b": Sequence(Int(1), String("x")),
		"a": Bool(false),
	})
	want := `{a: false, b: [1, "x"]}`
	if got := v.String(); got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
}
