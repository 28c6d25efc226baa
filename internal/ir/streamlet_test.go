package ir

import (
	"math/big"
	"testing"
)

func mustStream(t *testing.T, s *Store) TypeID {
	t.Helper()
	bits, err := s.InternBits(8)
	if err != nil {
		t.Fatalf("InternBits: %v", err)
	}
	id, err := s.InternStream(StreamType{Data: bits, Throughput: Rational{Num: 1, Den: 1}, Complexity: DefaultComplexity})
	if err != nil {
		t.Fatalf("InternStream: %v", err)
	}
	return id
}

func TestInternInterfaceRejectsDuplicatePortsAndNonStreamTypes(t *testing.T) {
	s := NewStore()
	stream := mustStream(t, s)
	bits, _ := s.InternBits(8)

	if _, err := s.InternInterface([]Port{
		{Name: "a", Direction: In, Stream: stream},
		{Name: "a", Direction: Out, Stream: stream},
	}); err == nil {
		t.Fatalf("duplicate port name must fail")
	}

	if _, err := s.InternInterface([]Port{{Name: "a", Direction: In, Stream: bits}}); err == nil {
		t.Fatalf("a non-Stream port type must fail")
	}
}

func TestInternInterfaceDeduplicates(t *testing.T) {
	s := NewStore()
	stream := mustStream(t, s)
	ports := []Port{{Name: "in0", Direction: In, Stream: stream, Domain: DefaultDomain}}

	a, err := s.InternInterface(ports)
	if err != nil {
		t.Fatalf("InternInterface: %v", err)
	}
	b, err := s.InternInterface(ports)
	if err != nil {
		t.Fatalf("InternInterface again: %v", err)
	}
	if a != b {
		t.Fatalf("identical interfaces must canonicalize to the same Id")
	}
}

func TestInternStreamletDeduplicatesAndGenericArgsAreKeyed(t *testing.T) {
	s := NewStore()
	stream := mustStream(t, s)
	iface, err := s.InternInterface([]Port{{Name: "in0", Direction: In, Stream: stream, Domain: DefaultDomain}})
	if err != nil {
		t.Fatalf("InternInterface: %v", err)
	}

	base := Streamlet{Name: "Foo", Namespace: "acme", Domains: []DomainName{DefaultDomain}, InterfaceID: iface}
	a := s.InternStreamlet(base)
	b := s.InternStreamlet(base)
	if a != b {
		t.Fatalf("identical streamlets must canonicalize to the same Id")
	}

	withWidth8 := base
	withWidth8.GenericArgs = []GenericBinding{{Name: "WIDTH", Value: big.NewInt(8)}}
	withWidth16 := base
	withWidth16.GenericArgs = []GenericBinding{{Name: "WIDTH", Value: big.NewInt(16)}}

	id8 := s.InternStreamlet(withWidth8)
	id16 := s.InternStreamlet(withWidth16)
	if id8 == a || id16 == a {
		t.Fatalf("a bound generic argument must not collide with the unbound streamlet")
	}
	if id8 == id16 {
		t.Fatalf("distinct generic argument values must produce distinct Ids")
	}

	id8Again := s.InternStreamlet(withWidth8)
	if id8Again != id8 {
		t.Fatalf("the same generic argument value must canonicalize to the same Id")
	}
}

func TestPortsAccessor(t *testing.T) {
	s := NewStore()
	stream := mustStream(t, s)
	iface, err := s.InternInterface([]Port{
		{Name: "in0", Direction: In, Stream: stream, Domain: DefaultDomain},
		{Name: "out0", Direction: Out, Stream: stream, Domain: DefaultDomain},
	})
	if err != nil {
		t.Fatalf("InternInterface: %v", err)
	}
	id := s.InternStreamlet(Streamlet{Name: "Foo", Namespace: "acme", InterfaceID: iface})

	ports, ok := s.Ports(id)
	if !ok {
		t.Fatalf("Ports: not found")
	}
	if len(ports) != 2 || ports[0].Name != "in0" || ports[1].Name != "out0" {
		t.Fatalf("Ports returned %+v, want [in0 out0] in declaration order", ports)
	}

	if _, ok := s.Ports(StreamletID(999)); ok {
		t.Fatalf("Ports for an unknown Id must report ok=false")
	}
}

func TestInternImplementationDeduplicatesByInstancesAndConnections(t *testing.T) {
	s := NewStore()
	stream := mustStream(t, s)
	iface, _ := s.InternInterface([]Port{{Name: "in0", Direction: In, Stream: stream, Domain: DefaultDomain}})
	child := s.InternStreamlet(Streamlet{Name: "Child", Namespace: "acme", InterfaceID: iface})

	impl := Implementation{
		Kind:      Structural,
		Ports:     []Port{{Name: "in0", Direction: In, Stream: stream, Domain: DefaultDomain}},
		Instances: []Instance{{Name: "c0", Streamlet: child}},
		Connections: []Connection{
			{A: Endpoint{Kind: EndpointParent, Port: "in0"}, B: Endpoint{Kind: EndpointInstance, InstanceName: "c0", Port: "in0"}},
		},
	}
	a := s.InternImplementation(impl)
	b := s.InternImplementation(impl)
	if a != b {
		t.Fatalf("identical implementations must canonicalize to the same Id")
	}

	linked := Implementation{Kind: Linked, Ports: impl.Ports, LinkedPath: "vendor/foo.vhd"}
	c := s.InternImplementation(linked)
	if c == a {
		t.Fatalf("a Linked implementation must not collide with a Structural one")
	}

	linkedOther := Implementation{Kind: Linked, Ports: impl.Ports, LinkedPath: "vendor/bar.vhd"}
	d := s.InternImplementation(linkedOther)
	if d == c {
		t.Fatalf("distinct LinkedPath values must produce distinct Ids")
	}
}
