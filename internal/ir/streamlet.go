package ir

import (
	"fmt"
	"math/big"
	"strings"
)

// PortDir is a port's direction, from the perspective of the
// streamlet's own interface (§3.1). Not to be confused with the
// stream-level Direction carried inside StreamType.
type PortDir uint8

const (
	In PortDir = iota
	Out
)

func (d PortDir) String() string {
	if d == In {
		return "in"
	}
	return "out"
}

// Port is one entry of a StreamletInterface (§3.1). Stream must name a
// Stream LogicalType at the top (enforced by InternInterface).
type Port struct {
	Name      string
	Direction PortDir
	Stream    TypeID
	Domain    DomainName
	Doc       string
}

// Interface is an ordered, name-unique list of ports (§3.1).
type Interface struct {
	Ports []Port
}

// InternInterface validates port-name uniqueness and that every port's
// Stream is in fact a Stream LogicalType, then interns the interface
// by Id so a streamlet can "adopt" another's interface by reference
// without re-evaluating it (§4.6).
func (s *Store) InternInterface(ports []Port) (int32, error) {
	seen := make(map[string]bool, len(ports))
	var key strings.Builder
	key.WriteString("iface:")
	for _, p := range ports {
		if seen[p.Name] {
			return 0, &InvariantError{Kind: DeclarationRedefinition, Message: fmt.Sprintf("duplicate port name %q", p.Name)}
		}
		seen[p.Name] = true
		if !s.IsStream(p.Stream) {
			return 0, &InvariantError{Kind: TypeInvariant, Message: fmt.Sprintf("port %q: type must be a Stream", p.Name)}
		}
		fmt.Fprintf(&key, "%s:%d:%d:%s,", p.Name, p.Direction, p.Stream, p.Domain)
	}
	iface := Interface{Ports: append([]Port(nil), ports...)}
	return s.interfaces.intern(key.String(), iface), nil
}

// Interface looks up an interned Interface by Id.
func (s *Store) InterfaceByID(id int32) (Interface, bool) { return s.interfaces.get(id) }

// GenericBinding is the concrete value one of a streamlet's own
// generic parameters was reduced with (§3.1 "Streamlet{generics:
// [Parameter], ...}"). Every interned Streamlet Id corresponds to
// exactly one such binding per bound parameter (a parameter left free
// has no binding) — a different argument vector
// always produces a distinct Id (the binding is part of the
// interning key below) — which is what lets the VHDL emitter print a
// `generic (name : integer := value)` clause that is actually correct
// for that one entity.
type GenericBinding struct {
	Name  string
	Value *big.Int
}

// Streamlet is a named, optionally-parametric port list with an
// optional implementation (§3.1).
type Streamlet struct {
	Name        string
	Namespace   string // the namespace path this streamlet was declared in (§6.3 entity naming)
	Generics    []Parameter      // the declared parameter list, as surface-level metadata
	GenericArgs []GenericBinding // the concrete values this particular Id was reduced with
	Domains     []DomainName
	InterfaceID int32
	Impl        *ImplID
	IsInterface bool // true for `interface` declarations (§4.6)
	AdoptedFrom string
	Doc         string
	Hash        uint64
}

// InternStreamlet interns a fully-evaluated Streamlet. Applying the
// same streamlet to the same arguments elsewhere in the compilation
// reuses this Id (§3.2 "Entities are created only during evaluation
// ... interning deduplicates"). GenericArgs is part of the canonical
// key so two distinct concrete instantiations of one generic streamlet
// never collide on a single Id even if their interface happens to
// coincide.
func (s *Store) InternStreamlet(st Streamlet) StreamletID {
	var key strings.Builder
	fmt.Fprintf(&key, "streamlet:%s::%s:iface=%d:domains=%v:impl=", st.Namespace, st.Name, st.InterfaceID, st.Domains)
	if st.Impl != nil {
		fmt.Fprintf(&key, "%d", *st.Impl)
	} else {
		key.WriteString("-")
	}
	key.WriteString(":generics=")
	for _, g := range st.GenericArgs {
		fmt.Fprintf(&key, "%s=%s,", g.Name, g.Value.String())
	}
	st.Hash = contentHash(key.String())
	return StreamletID(s.streamlets.intern(key.String(), st))
}

// Streamlet looks up an interned Streamlet by Id.
func (s *Store) Streamlet(id StreamletID) (Streamlet, bool) { return s.streamlets.get(int32(id)) }

// Ports is a convenience accessor for the ports of a streamlet's
// interface.
func (s *Store) Ports(id StreamletID) ([]Port, bool) {
	st, ok := s.Streamlet(id)
	if !ok {
		return nil, false
	}
	iface, ok := s.InterfaceByID(st.InterfaceID)
	if !ok {
		return nil, false
	}
	return iface.Ports, true
}
