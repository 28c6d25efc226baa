// Package vhdlgen renders a compiled streamlet's entity/architecture
// pair as VHDL text (§6.2-6.3): generics as VHDL generics, ports as
// the physical signal bundles internal/physical computes, and a
// Structural implementation's instances/connections as component
// instantiations, internal signals and port maps. internal/connect has
// already checked drive multiplicity and type/domain compatibility by
// the time this package runs — it trusts the Implementation it is
// given.
package vhdlgen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robert-at-pretension-io/tilc/internal/ir"
	"github.com/robert-at-pretension-io/tilc/internal/physical"
)

// Emit renders the entity and, if the streamlet has a Structural
// implementation, the architecture body for streamlet id.
func Emit(store *ir.Store, id ir.StreamletID) (string, error) {
	st, ok := store.Streamlet(id)
	if !ok {
		return "", fmt.Errorf("vhdlgen: unknown streamlet id %d", id)
	}
	ports, ok := store.Ports(id)
	if !ok {
		return "", fmt.Errorf("vhdlgen: streamlet %q has no ports", st.Name)
	}

	entity := entityName(st.Namespace, st.Name)
	var b strings.Builder
	if err := emitEntity(&b, store, st, entity, ports); err != nil {
		return "", err
	}
	b.WriteString("\n")
	if st.Impl != nil {
		impl, ok := store.Implementation(*st.Impl)
		if ok && impl.Kind == ir.Structural {
			if err := emitArchitecture(&b, store, entity, impl); err != nil {
				return "", err
			}
		}
	}
	return b.String(), nil
}

// entityName builds the emitted entity name of §6.3:
// `<namespace-underscored>__<streamlet-name>_com`, where `::` in the
// namespace path becomes `__`. A streamlet declared at the root
// namespace (ns == "") has no namespace prefix.
func entityName(ns, streamletName string) string {
	if ns == "" {
		return streamletName + "_com"
	}
	return strings.ReplaceAll(ns, "::", "__") + "__" + streamletName + "_com"
}

func vhdlIdent(name string) string { return strings.ReplaceAll(name, "::", "_") }

// splitPrefix names the physical signal bundle for the split'th entry
// of one port/connection's flattened Stream (§4.3 "split point"): the
// root split keeps the bare name, each nested split appends `_s<n>`.
func splitPrefix(base string, split int) string {
	if split == 0 {
		return base
	}
	return fmt.Sprintf("%s_s%d", base, split)
}

// physField is one named physical signal within a flattened Stream
// bundle: width == 0 means a bare std_logic (valid/ready), otherwise a
// std_logic_vector(width-1 downto 0).
type physField struct {
	suffix string
	width  int
}

// physicalFields enumerates ph's present signals in emission order.
// Absent optional signals (stai/endi/strb, zero-width data/last/user)
// are omitted, matching physical.Stream's own "has" flags (§4.3).
func physicalFields(ph physical.Stream) []physField {
	var out []physField
	if ph.DataWidth > 0 {
		out = append(out, physField{"data", ph.DataWidth})
	}
	if ph.LastWidth > 0 {
		out = append(out, physField{"last", ph.LastWidth})
	}
	if ph.HasStai {
		out = append(out, physField{"stai", ph.IndexWidth})
	}
	if ph.HasEndi {
		out = append(out, physField{"endi", ph.IndexWidth})
	}
	if ph.HasStrb {
		out = append(out, physField{"strb", ph.StrbWidth})
	}
	if ph.UserWidth > 0 {
		out = append(out, physField{"user", ph.UserWidth})
	}
	out = append(out, physField{"valid", 0})
	out = append(out, physField{"ready", 0})
	return out
}

func (f physField) vectorType() string {
	if f.width == 0 {
		return "std_logic"
	}
	return fmt.Sprintf("std_logic_vector(%d downto 0)", f.width-1)
}

func emitEntity(b *strings.Builder, store *ir.Store, st ir.Streamlet, entity string, ports []ir.Port) error {
	fmt.Fprintf(b, "entity %s is\n", entity)
	if len(st.GenericArgs) > 0 {
		b.WriteString("  generic (\n")
		for i, g := range st.GenericArgs {
			sep := ";"
			if i == len(st.GenericArgs)-1 {
				sep = ""
			}
			fmt.Fprintf(b, "    %s : integer := %s%s\n", vhdlIdent(g.Name), g.Value.String(), sep)
		}
		b.WriteString("  );\n")
	}
	fmt.Fprintf(b, "  port (\n")
	for _, d := range st.Domains {
		fmt.Fprintf(b, "    %s_clk : in std_logic;\n", d)
		fmt.Fprintf(b, "    %s_rst : in std_logic;\n", d)
	}
	var lines []string
	for _, p := range ports {
		physPorts, err := physical.Compute(store, p.Stream, physicalDir(p.Direction))
		if err != nil {
			return fmt.Errorf("port %q: %w", p.Name, err)
		}
		for split, ph := range physPorts {
			lines = append(lines, portSignalLines(splitPrefix(p.Name, split), ph)...)
		}
	}
	for i, l := range lines {
		sep := ";"
		if i == len(lines)-1 {
			sep = ""
		}
		fmt.Fprintf(b, "    %s%s\n", l, sep)
	}
	b.WriteString("  );\n")
	fmt.Fprintf(b, "end entity %s;\n", entity)
	return nil
}

func physicalDir(d ir.PortDir) ir.Direction {
	if d == ir.In {
		return ir.Forward
	}
	return ir.Reverse
}

// vhdlDir maps a physical bundle's computed Direction to the VHDL
// port-mode keyword: Forward keeps the entity-port direction implied
// by physicalDir (the caller's parentDir argument to physical.Compute),
// Reverse flips it — this is how a Stream's own `direction: Reverse`
// annotation turns an otherwise-input bundle into an output one.
func vhdlDir(physDir ir.Direction) string {
	if physDir == ir.Forward {
		return "in"
	}
	return "out"
}

// portSignalLines renders one physical split's signal bundle as VHDL
// port declaration lines, named `<prefix>_<field>`. ready always runs
// counter to valid's direction, per the handshake protocol.
func portSignalLines(prefix string, ph physical.Stream) []string {
	dir := vhdlDir(ph.Direction)
	out := make([]string, 0, 8)
	for _, f := range physicalFields(ph) {
		d := dir
		if f.suffix == "ready" {
			d = flipDir(dir)
		}
		out = append(out, fmt.Sprintf("%s_%s : %s %s", prefix, f.suffix, d, f.vectorType()))
	}
	return out
}

// signalDeclLines renders one physical split's signal bundle as
// internal `signal` declarations, named `<prefix>_<field>`.
func signalDeclLines(prefix string, ph physical.Stream) []string {
	out := make([]string, 0, 8)
	for _, f := range physicalFields(ph) {
		out = append(out, fmt.Sprintf("signal %s_%s : %s;", prefix, f.suffix, f.vectorType()))
	}
	return out
}

// portMapLines renders one physical split's port-map associations,
// binding the instance's own port signal names (formalPrefix) to the
// wire they connect to (actualPrefix) — either an internal signal or,
// for a connection touching a parent port directly, the entity's own
// port.
func portMapLines(formalPrefix, actualPrefix string, ph physical.Stream) []string {
	out := make([]string, 0, 8)
	for _, f := range physicalFields(ph) {
		out = append(out, fmt.Sprintf("%s_%s => %s_%s", formalPrefix, f.suffix, actualPrefix, f.suffix))
	}
	return out
}

func flipDir(d string) string {
	if d == "in" {
		return "out"
	}
	return "in"
}

// archEndpoint is the resolved shape of one connection endpoint needed
// to emit wiring: just its stream type, since that alone decides the
// physical bundle the connection's wire carries.
type archEndpoint struct {
	stream ir.TypeID
}

// resolveArchEndpoints mirrors internal/connect's own endpoint
// resolution, trusting that internal/connect has already validated
// completeness and compatibility for impl — this just needs the shape
// back out to decide what to wire.
func resolveArchEndpoints(store *ir.Store, impl ir.Implementation) (map[string]archEndpoint, error) {
	out := make(map[string]archEndpoint)
	parentByName := make(map[string]ir.Port, len(impl.Ports))
	for _, p := range impl.Ports {
		parentByName[p.Name] = p
	}
	instanceByName := make(map[string]ir.Instance, len(impl.Instances))
	for _, inst := range impl.Instances {
		instanceByName[inst.Name] = inst
	}

	resolve := func(ep ir.Endpoint) error {
		key := ep.String()
		if _, ok := out[key]; ok {
			return nil
		}
		if ep.Kind == ir.EndpointParent {
			p, ok := parentByName[ep.Port]
			if !ok {
				return fmt.Errorf("parent port %q is not declared", ep.Port)
			}
			out[key] = archEndpoint{stream: p.Stream}
			return nil
		}
		inst, ok := instanceByName[ep.InstanceName]
		if !ok {
			return fmt.Errorf("instance %q is not declared", ep.InstanceName)
		}
		ports, ok := store.Ports(inst.Streamlet)
		if !ok {
			return fmt.Errorf("instance %q: streamlet has no ports", ep.InstanceName)
		}
		for _, p := range ports {
			if p.Name == ep.Port {
				out[key] = archEndpoint{stream: p.Stream}
				return nil
			}
		}
		return fmt.Errorf("instance %q has no port %q", ep.InstanceName, ep.Port)
	}

	for _, c := range impl.Connections {
		if err := resolve(c.A); err != nil {
			return nil, err
		}
		if err := resolve(c.B); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// emitArchitecture renders the instances, internal signals and port
// maps of a Structural implementation (§6.3). A connection touching a
// parent port is wired straight to that entity port (no signal
// needed, legal in VHDL to pass an entity port directly into a
// component's port map); a connection between two instance ports gets
// its own internal signal per physical split.
func emitArchitecture(b *strings.Builder, store *ir.Store, entity string, impl ir.Implementation) error {
	endpoints, err := resolveArchEndpoints(store, impl)
	if err != nil {
		return fmt.Errorf("resolving connections: %w", err)
	}

	// wireBase[i] names the prefix every physical split of connection i
	// is wired through (both endpoints share one flattened bundle shape,
	// since internal/connect already rejected type mismatches).
	wireBase := make([]string, len(impl.Connections))
	var signalLines []string
	for i, c := range impl.Connections {
		a, ok := endpoints[c.A.String()]
		if !ok {
			return fmt.Errorf("connection %s -- %s: unresolved endpoint", c.A, c.B)
		}
		ps, err := physical.Compute(store, a.stream, ir.Forward)
		if err != nil {
			return fmt.Errorf("connection %s -- %s: %w", c.A, c.B, err)
		}

		switch {
		case c.A.Kind == ir.EndpointParent:
			wireBase[i] = c.A.Port
		case c.B.Kind == ir.EndpointParent:
			wireBase[i] = c.B.Port
		default:
			base := fmt.Sprintf("w_%s_%s", vhdlIdent(c.A.InstanceName), vhdlIdent(c.A.Port))
			wireBase[i] = base
			for split, ph := range ps {
				signalLines = append(signalLines, signalDeclLines(splitPrefix(base, split), ph)...)
			}
		}
	}

	// connByEndpoint maps each instance-side endpoint key to the index
	// of the connection that drives/consumes it, so the instance
	// port-map loop below can look up its wire without re-scanning.
	connByEndpoint := make(map[string]int, len(impl.Connections)*2)
	for i, c := range impl.Connections {
		connByEndpoint[c.A.String()] = i
		connByEndpoint[c.B.String()] = i
	}

	fmt.Fprintf(b, "architecture rtl of %s is\n", entity)
	for _, l := range signalLines {
		fmt.Fprintf(b, "  %s\n", l)
	}
	b.WriteString("begin\n\n")

	names := make([]string, len(impl.Instances))
	byName := make(map[string]ir.Instance, len(impl.Instances))
	for i, inst := range impl.Instances {
		names[i] = inst.Name
		byName[inst.Name] = inst
	}
	sort.Strings(names)

	for _, name := range names {
		inst := byName[name]
		child, ok := store.Streamlet(inst.Streamlet)
		if !ok {
			return fmt.Errorf("instance %q: unknown streamlet", name)
		}
		childPorts, ok := store.Ports(inst.Streamlet)
		if !ok {
			return fmt.Errorf("instance %q: unknown streamlet ports", name)
		}

		fmt.Fprintf(b, "  %s : entity work.%s\n", vhdlIdent(name), entityName(child.Namespace, child.Name))
		if len(child.GenericArgs) > 0 {
			fmt.Fprintf(b, "    generic map (\n")
			for i, g := range child.GenericArgs {
				sep := ","
				if i == len(child.GenericArgs)-1 {
					sep = ""
				}
				fmt.Fprintf(b, "      %s => %s%s\n", vhdlIdent(g.Name), g.Value.String(), sep)
			}
			fmt.Fprintf(b, "    )\n")
		}
		fmt.Fprintf(b, "    port map (\n")

		var mapLines []string
		for _, d := range child.Domains {
			parent := ir.DefaultDomain
			if inst.Domains != nil {
				parent = inst.Domains.Resolve(d)
			}
			mapLines = append(mapLines, fmt.Sprintf("%s_clk => %s_clk", d, parent))
			mapLines = append(mapLines, fmt.Sprintf("%s_rst => %s_rst", d, parent))
		}
		for _, p := range childPorts {
			ep := ir.Endpoint{Kind: ir.EndpointInstance, InstanceName: name, Port: p.Name}
			ci, ok := connByEndpoint[ep.String()]
			if !ok {
				return fmt.Errorf("instance %q port %q: not wired by any connection", name, p.Name)
			}
			physPorts, err := physical.Compute(store, p.Stream, physicalDir(p.Direction))
			if err != nil {
				return fmt.Errorf("instance %q port %q: %w", name, p.Name, err)
			}
			for split, ph := range physPorts {
				formal := splitPrefix(p.Name, split)
				actual := splitPrefix(wireBase[ci], split)
				mapLines = append(mapLines, portMapLines(formal, actual, ph)...)
			}
		}
		for i, l := range mapLines {
			sep := ","
			if i == len(mapLines)-1 {
				sep = ""
			}
			fmt.Fprintf(b, "      %s%s\n", l, sep)
		}
		fmt.Fprintf(b, "    );\n\n")
	}

	fmt.Fprintf(b, "end architecture rtl;\n")
	return nil
}

