package irschema

import (
	"math/big"
	"testing"

	"github.com/robert-at-pretension-io/tilc/internal/ir"
)

func TestValidateAcceptsEmptyStore(t *testing.T) {
	store := ir.NewStore()
	v, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dump := BuildDump(store)
	if err := v.Validate(dump); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(dump.Types) != 1 {
		t.Fatalf("expected exactly the interned Null type, got %d types", len(dump.Types))
	}
	if dump.Types[0].Kind != "Null" {
		t.Fatalf("expected Null kind, got %q", dump.Types[0].Kind)
	}
}

func TestValidateBitsType(t *testing.T) {
	store := ir.NewStore()
	if _, err := store.InternBits(8); err != nil {
		t.Fatalf("InternBits: %v", err)
	}
	v, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := v.Validate(BuildDump(store)); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateStreamletWithGenerics(t *testing.T) {
	store := ir.NewStore()
	stream, err := store.InternStream(ir.StreamType{
		Data:       store.InternNull(),
		Throughput: ir.Rational{Num: 1, Den: 1},
		Complexity: ir.DefaultComplexity,
	})
	if err != nil {
		t.Fatalf("InternStream: %v", err)
	}
	iface, err := store.InternInterface([]ir.Port{{Name: "in0", Direction: ir.In, Stream: stream, Domain: ir.DefaultDomain}})
	if err != nil {
		t.Fatalf("InternInterface: %v", err)
	}
	id := store.InternStreamlet(ir.Streamlet{
		Name:        "Sized",
		Namespace:   "acme",
		InterfaceID: iface,
		Generics:    []ir.Parameter{{Name: "W", Kind: ir.Natural}},
		GenericArgs: []ir.GenericBinding{{Name: "W", Value: big.NewInt(8)}},
	})

	v, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dump := BuildDump(store)
	if err := v.Validate(dump); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	var entry *StreamletEntry
	for i := range dump.Streamlets {
		if dump.Streamlets[i].ID == int32(id) {
			entry = &dump.Streamlets[i]
		}
	}
	if entry == nil {
		t.Fatalf("streamlet %d not found in dump", id)
	}
	if len(entry.Generics) != 1 || entry.Generics[0].Name != "W" || entry.Generics[0].Kind != "Natural" {
		t.Fatalf("expected one Natural generic named W, got %+v", entry.Generics)
	}
	if entry.Generics[0].HasDefault {
		t.Fatalf("a generic with no default must report HasDefault=false")
	}
	if len(entry.GenericArgs) != 1 || entry.GenericArgs[0].Name != "W" || entry.GenericArgs[0].Value != "8" {
		t.Fatalf("expected GenericArgs = [W=8], got %+v", entry.GenericArgs)
	}
}
