package vhdlgen

import (
	"math/big"
	"strings"
	"testing"

	"github.com/robert-at-pretension-io/tilc/internal/ir"
)

func TestEmitSimpleEntity(t *testing.T) {
	store := ir.NewStore()
	bits, err := store.InternBits(8)
	if err != nil {
		t.Fatalf("InternBits: %v", err)
	}
	streamID, err := store.InternStream(ir.StreamType{
		Data:       bits,
		Throughput: ir.Rational{Num: 1, Den: 1},
		Complexity: ir.DefaultComplexity,
		User:       store.InternNull(),
	})
	if err != nil {
		t.Fatalf("InternStream: %v", err)
	}
	iface, err := store.InternInterface([]ir.Port{
		{Name: "in0", Direction: ir.In, Stream: streamID, Domain: ir.DefaultDomain},
		{Name: "out0", Direction: ir.Out, Stream: streamID, Domain: ir.DefaultDomain},
	})
	if err != nil {
		t.Fatalf("InternInterface: %v", err)
	}
	id := store.InternStreamlet(ir.Streamlet{Name: "Passthrough", Namespace: "acme::io", Domains: []ir.DomainName{ir.DefaultDomain}, InterfaceID: iface})

	out, err := Emit(store, id)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !strings.Contains(out, "entity acme__io__Passthrough_com is") {
		t.Fatalf("missing entity header:\n%s", out)
	}
	if !strings.Contains(out, "in0_data : in std_logic_vector(7 downto 0)") {
		t.Fatalf("missing in0 data port:\n%s", out)
	}
	if !strings.Contains(out, "out0_data : out std_logic_vector(7 downto 0)") {
		t.Fatalf("missing out0 data port:\n%s", out)
	}
	if !strings.Contains(out, "default_clk : in std_logic") {
		t.Fatalf("missing domain clock port:\n%s", out)
	}
}

func TestEmitStructuralArchitecture(t *testing.T) {
	store := ir.NewStore()
	bits, err := store.InternBits(8)
	if err != nil {
		t.Fatalf("InternBits: %v", err)
	}
	streamID, err := store.InternStream(ir.StreamType{
		Data:       bits,
		Throughput: ir.Rational{Num: 1, Den: 1},
		Complexity: ir.DefaultComplexity,
		User:       store.InternNull(),
	})
	if err != nil {
		t.Fatalf("InternStream: %v", err)
	}
	childIface, err := store.InternInterface([]ir.Port{
		{Name: "in0", Direction: ir.In, Stream: streamID, Domain: ir.DefaultDomain},
		{Name: "out0", Direction: ir.Out, Stream: streamID, Domain: ir.DefaultDomain},
	})
	if err != nil {
		t.Fatalf("InternInterface (child): %v", err)
	}
	childID := store.InternStreamlet(ir.Streamlet{
		Name:        "Inner",
		Namespace:   "acme::io",
		Domains:     []ir.DomainName{ir.DefaultDomain},
		InterfaceID: childIface,
		GenericArgs: []ir.GenericBinding{{Name: "WIDTH", Value: big.NewInt(8)}},
	})

	parentIface, err := store.InternInterface([]ir.Port{
		{Name: "a_in", Direction: ir.In, Stream: streamID, Domain: ir.DefaultDomain},
		{Name: "a_out", Direction: ir.Out, Stream: streamID, Domain: ir.DefaultDomain},
	})
	if err != nil {
		t.Fatalf("InternInterface (parent): %v", err)
	}

	binding := ir.NewDomainBinding()
	binding.ChildToParent[ir.DefaultDomain] = ir.DefaultDomain
	impl := ir.Implementation{
		Kind:  ir.Structural,
		Ports: []ir.Port{{Name: "a_in", Direction: ir.In, Stream: streamID, Domain: ir.DefaultDomain}, {Name: "a_out", Direction: ir.Out, Stream: streamID, Domain: ir.DefaultDomain}},
		Instances: []ir.Instance{
			{Name: "inner0", Streamlet: childID, Domains: binding},
		},
		Connections: []ir.Connection{
			{A: ir.Endpoint{Kind: ir.EndpointParent, Port: "a_in"}, B: ir.Endpoint{Kind: ir.EndpointInstance, InstanceName: "inner0", Port: "in0"}},
			{A: ir.Endpoint{Kind: ir.EndpointInstance, InstanceName: "inner0", Port: "out0"}, B: ir.Endpoint{Kind: ir.EndpointParent, Port: "a_out"}},
		},
	}
	implID := store.InternImplementation(impl)
	id := store.InternStreamlet(ir.Streamlet{
		Name:        "Wrapper",
		Namespace:   "acme::io",
		Domains:     []ir.DomainName{ir.DefaultDomain},
		InterfaceID: parentIface,
		Impl:        &implID,
	})

	out, err := Emit(store, id)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !strings.Contains(out, "inner0 : entity work.acme__io__Inner_com") {
		t.Fatalf("missing instance declaration:\n%s", out)
	}
	if !strings.Contains(out, "WIDTH => 8") {
		t.Fatalf("missing generic map entry:\n%s", out)
	}
	if !strings.Contains(out, "in0_data => a_in_data") {
		t.Fatalf("missing pass-through port map entry:\n%s", out)
	}
	if !strings.Contains(out, "out0_data => a_out_data") {
		t.Fatalf("missing pass-through port map entry:\n%s", out)
	}
	if !strings.Contains(out, "default_clk => default_clk") {
		t.Fatalf("missing domain clk port map entry:\n%s", out)
	}
}
