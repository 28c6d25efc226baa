// Package connect implements the structural-implementation connection
// validator (C10): once an Implementation's instances and connections
// are evaluated, every connection is checked for single-driver
// multiplicity, direction polarity, stream-type identity and domain
// compatibility (§4.10).
package connect

import (
	"fmt"

	"github.com/robert-at-pretension-io/tilc/internal/ir"
)

// endpointInfo is the resolved shape of one connection endpoint: its
// direction as seen from inside the implementation, its stream type,
// and its bound domain.
type endpointInfo struct {
	dir    ir.PortDir
	stream ir.TypeID
	domain ir.DomainName
}

// Validate checks every connection of impl against store. The parent
// side of each connection is looked up in impl.Ports, the child side in
// the interned streamlet of the named instance.
func Validate(store *ir.Store, impl ir.Implementation) []ir.InvariantError {
	var errs []ir.InvariantError

	endpoints, endErrs := resolveEndpoints(store, impl)
	errs = append(errs, endErrs...)

	refCount := make(map[string]int, len(impl.Connections)*2)
	for _, c := range impl.Connections {
		a, aok := endpoints[c.A.String()]
		b, bok := endpoints[c.B.String()]
		if !aok || !bok {
			continue // already reported by resolveEndpoints
		}
		refCount[c.A.String()]++
		refCount[c.B.String()]++

		// A connection's driver is whichever endpoint carries data
		// outward into the connection: a parent `in` port or an
		// instance `out` port. The other side is the consumer.
		aDrives := isDriver(c.A, a)
		bDrives := isDriver(c.B, b)
		if aDrives == bDrives {
			errs = append(errs, ir.InvariantError{
				Kind:    ir.ConnectionDirection,
				Message: fmt.Sprintf("connection %s -- %s: both sides are %s", c.A, c.B, sideKind(aDrives)),
			})
			continue
		}

		if a.stream != b.stream {
			errs = append(errs, ir.InvariantError{
				Kind:    ir.ConnectionTypeMismatch,
				Message: fmt.Sprintf("connection %s -- %s: stream types differ (%d vs %d)", c.A, c.B, a.stream, b.stream),
			})
		}
		if !ir.Compatible(a.domain, b.domain) {
			errs = append(errs, ir.InvariantError{
				Kind:    ir.ConnectionDomainMismatch,
				Message: fmt.Sprintf("connection %s -- %s: domains %q and %q are not compatible", c.A, c.B, a.domain, b.domain),
			})
		}
	}

	// Completeness (§4.10, §8 scenario 6): every declared endpoint —
	// every parent port and every instance port — must be referenced by
	// exactly one connection. Zero references is undriven; more than
	// one is a multiplicity violation, whether the repeats land on the
	// driver or the consumer side.
	for _, ep := range allEndpoints(store, impl) {
		key := ep.String()
		switch n := refCount[key]; {
		case n == 0:
			errs = append(errs, ir.InvariantError{
				Kind:    ir.ConnectionDriveMultiplicity,
				Message: fmt.Sprintf("endpoint %s is undriven", ep),
			})
		case n > 1:
			errs = append(errs, ir.InvariantError{
				Kind:    ir.ConnectionDriveMultiplicity,
				Message: fmt.Sprintf("endpoint %s is referenced by %d connections, must be referenced by exactly one", ep, n),
			})
		}
	}
	return errs
}

// allEndpoints enumerates the full completeness set (§4.10): every
// parent port plus every port of every instance, regardless of whether
// any connection mentions it.
func allEndpoints(store *ir.Store, impl ir.Implementation) []ir.Endpoint {
	out := make([]ir.Endpoint, 0, len(impl.Ports))
	for _, p := range impl.Ports {
		out = append(out, ir.Endpoint{Kind: ir.EndpointParent, Port: p.Name})
	}
	for _, inst := range impl.Instances {
		ports, ok := store.Ports(inst.Streamlet)
		if !ok {
			continue
		}
		for _, p := range ports {
			out = append(out, ir.Endpoint{Kind: ir.EndpointInstance, InstanceName: inst.Name, Port: p.Name})
		}
	}
	return out
}

// isDriver reports whether endpoint e (described by info) is the
// source of data flow for its connection: a parent-side `in` port (the
// environment drives data into the implementation) or an
// instance-side `out` port (the instance drives data out to its
// consumer).
func isDriver(e ir.Endpoint, info endpointInfo) bool {
	if e.Kind == ir.EndpointParent {
		return info.dir == ir.In
	}
	return info.dir == ir.Out
}

func sideKind(drives bool) string {
	if drives {
		return "drivers"
	}
	return "consumers"
}

// resolveEndpoints maps every connection endpoint appearing in impl to
// its resolved shape, reporting EndpointUnknown for any name that
// matches neither a parent port nor an instance port.
func resolveEndpoints(store *ir.Store, impl ir.Implementation) (map[string]endpointInfo, []ir.InvariantError) {
	out := make(map[string]endpointInfo)
	var errs []ir.InvariantError

	parentByName := make(map[string]ir.Port, len(impl.Ports))
	for _, p := range impl.Ports {
		parentByName[p.Name] = p
	}
	instanceByName := make(map[string]ir.Instance, len(impl.Instances))
	for _, inst := range impl.Instances {
		instanceByName[inst.Name] = inst
	}

	seen := make(map[string]bool)
	record := func(ep ir.Endpoint) {
		key := ep.String()
		if seen[key] {
			return
		}
		seen[key] = true
		if ep.Kind == ir.EndpointParent {
			p, ok := parentByName[ep.Port]
			if !ok {
				errs = append(errs, ir.InvariantError{Kind: ir.EndpointUnknown, Message: fmt.Sprintf("parent port %q is not declared", ep.Port)})
				return
			}
			out[key] = endpointInfo{dir: p.Direction, stream: p.Stream, domain: p.Domain}
			return
		}
		inst, ok := instanceByName[ep.InstanceName]
		if !ok {
			errs = append(errs, ir.InvariantError{Kind: ir.EndpointUnknown, Message: fmt.Sprintf("instance %q is not declared", ep.InstanceName)})
			return
		}
		ports, ok := store.Ports(inst.Streamlet)
		if !ok {
			errs = append(errs, ir.InvariantError{Kind: ir.EndpointUnknown, Message: fmt.Sprintf("instance %q: streamlet has no ports", ep.InstanceName)})
			return
		}
		for _, p := range ports {
			if p.Name == ep.Port {
				domain := p.Domain
				if inst.Domains != nil {
					domain = inst.Domains.Resolve(p.Domain)
				}
				out[key] = endpointInfo{dir: p.Direction, stream: p.Stream, domain: domain}
				return
			}
		}
		errs = append(errs, ir.InvariantError{Kind: ir.EndpointUnknown, Message: fmt.Sprintf("instance %q has no port %q", ep.InstanceName, ep.Port)})
	}

	for _, c := range impl.Connections {
		record(c.A)
		record(c.B)
	}
	return out, errs
}
