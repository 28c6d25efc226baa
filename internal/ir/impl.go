package ir

import (
	"fmt"
	"strings"
)

// ImplKind tags the Implementation variant (§3.1).
type ImplKind uint8

const (
	Structural ImplKind = iota
	Linked
)

// EndpointKind distinguishes a parent-side endpoint from an
// instance-side one inside a structural implementation (§3.1, §4.10).
type EndpointKind uint8

const (
	EndpointParent EndpointKind = iota
	EndpointInstance
)

// Endpoint names one side of a connection: either a parent's own port,
// or a named instance's named port.
type Endpoint struct {
	Kind         EndpointKind
	Port         string
	InstanceName string // only set when Kind == EndpointInstance
}

func (e Endpoint) String() string {
	if e.Kind == EndpointParent {
		return e.Port
	}
	return fmt.Sprintf("%s.%s", e.InstanceName, e.Port)
}

// Connection is one `x -- y` statement inside a structural body.
type Connection struct {
	A, B Endpoint
}

// Instance binds an instance name to a fully-applied streamlet: its
// generics and domains are already resolved at the instance site
// (§4.7). Domains maps each domain the instantiated streamlet
// declares to the enclosing streamlet's domain scope.
type Instance struct {
	Name      string
	Streamlet StreamletID
	Domains   *DomainBinding
}

// Implementation is the tagged variant of §3.1: either Structural
// (instances + connections) or Linked (an externally resolved path).
// Ports is populated for Structural impls only: it is the interface of
// the streamlet the body belongs to, whether the body is written inline
// or declared standalone and referenced by name. A Linked impl carries
// only LinkedPath.
type Implementation struct {
	Kind        ImplKind
	Ports       []Port
	Instances   []Instance
	Connections []Connection
	LinkedPath  string
}

// InternImplementation interns an Implementation. Two implementations
// with identical instances, connections and ports (by Id) intern to
// the same Id, same as any other entity (§4.1).
func (s *Store) InternImplementation(impl Implementation) ImplID {
	var key strings.Builder
	fmt.Fprintf(&key, "impl:kind=%d:ports=", impl.Kind)
	for _, p := range impl.Ports {
		fmt.Fprintf(&key, "%s:%d:%d:%s,", p.Name, p.Direction, p.Stream, p.Domain)
	}
	switch impl.Kind {
	case Linked:
		fmt.Fprintf(&key, ":path=%s", impl.LinkedPath)
	case Structural:
		key.WriteString(":inst=")
		for _, inst := range impl.Instances {
			fmt.Fprintf(&key, "%s=%d,", inst.Name, inst.Streamlet)
		}
		key.WriteString(":conn=")
		for _, c := range impl.Connections {
			fmt.Fprintf(&key, "%s--%s,", c.A, c.B)
		}
	}
	return ImplID(s.impls.intern(key.String(), impl))
}

// Implementation looks up an interned Implementation by Id.
func (s *Store) Implementation(id ImplID) (Implementation, bool) { return s.impls.get(int32(id)) }
