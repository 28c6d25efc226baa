// Package eval implements the lazy, memoized, bottom-up declaration
// evaluator (C9): it walks the tilast surface tree, reduces every
// referenced declaration to its interned ir form exactly once per
// distinct concrete argument vector, and detects evaluation cycles.
package eval

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robert-at-pretension-io/tilc/internal/ir"
	"github.com/robert-at-pretension-io/tilc/internal/resolve"
	"github.com/robert-at-pretension-io/tilc/internal/tilast"
)

// declKey names one AST declaration by where it lives.
type declKey struct {
	ns   string
	kind resolve.DeclKind
	name string
}

// Evaluator ties the namespace graph (internal/resolve), the
// interning store (internal/ir) and the raw parse trees (tilast)
// together. One Evaluator serves one compilation (§4.9).
type Evaluator struct {
	Store *ir.Store
	Graph *resolve.Graph
	Diags *ir.Diagnostics

	// ResolveLinkedPath, when set, turns a Linked implementation's raw
	// surface path (relative to the source file that named it) into the
	// path the project descriptor resolves it to (§6.4). Left nil it is
	// a no-op passthrough — callers that have no project.Descriptor in
	// scope (e.g. unit tests) still get a working evaluator.
	ResolveLinkedPath func(sourceFile, rawPath string) string

	decls map[declKey]*tilast.Decl

	typeCache      map[string]ir.TypeID
	streamletCache map[string]ir.StreamletID
	implCache      map[string]ir.ImplID

	evaluating map[string]bool
}

// New creates an Evaluator over an empty Store and Graph.
func New() *Evaluator {
	return &Evaluator{
		Store:          ir.NewStore(),
		Graph:          resolve.NewGraph(),
		Diags:          &ir.Diagnostics{},
		decls:          make(map[declKey]*tilast.Decl),
		typeCache:      make(map[string]ir.TypeID),
		streamletCache: make(map[string]ir.StreamletID),
		implCache:      make(map[string]ir.ImplID),
		evaluating:     make(map[string]bool),
	}
}

func toResolveKind(k tilast.DeclKind) resolve.DeclKind {
	switch k {
	case tilast.DeclType:
		return resolve.KindType
	case tilast.DeclStreamlet:
		return resolve.KindStreamlet
	case tilast.DeclInterface:
		return resolve.KindInterface
	case tilast.DeclImpl:
		return resolve.KindImpl
	default:
		return resolve.KindType
	}
}

// LoadFile registers every namespace block of f: its imports (against
// Graph) and its declarations (both in Graph, for name resolution, and
// in the Evaluator's own decls table, for the AST bodies resolve
// itself does not carry). Declarations are only registered here, never
// evaluated — evaluation happens lazily the first time something
// references them (§4.9).
func (e *Evaluator) LoadFile(f *tilast.File) error {
	for i := range f.Namespaces {
		block := &f.Namespaces[i]
		ns := e.Graph.Namespace(block.Path)
		for _, imp := range block.Imports {
			spec := resolve.ImportSpec{From: imp.From, Prefix: imp.Prefix, Span: imp.Span}
			if imp.Wildcard {
				spec.Selector = resolve.ImportSelector{Wildcard: true}
			} else {
				items := make([]resolve.ImportItem, len(imp.Items))
				for j, it := range imp.Items {
					items[j] = resolve.ImportItem{Kind: toResolveKind(it.Kind), Name: it.Name, Alias: it.Alias}
				}
				spec.Selector = resolve.ImportSelector{Items: items}
			}
			ns.Imports = append(ns.Imports, spec)
		}
		for j := range block.Decls {
			d := &block.Decls[j]
			kind := toResolveKind(d.Kind)
			if _, err := ns.Declare(kind, d.Name); err != nil {
				return err
			}
			e.decls[declKey{ns: block.Path, kind: kind, name: d.Name}] = d
		}
	}
	return nil
}

// localNames builds the shadow-set resolve.Graph.Resolve needs: every
// name bound in scope (the enclosing declaration's own generics) plus
// any domain names already in play. Neither generics nor domains ever
// collide with a namespace-level declaration name by construction, but
// resolve still needs to be told so it doesn't also walk imports.
func localNames(scope *Scope, domains []ir.DomainName) map[string]bool {
	out := make(map[string]bool, len(scope.Env())+len(domains))
	for name := range scope.Env() {
		out[name] = true
	}
	for _, d := range domains {
		out[string(d)] = true
	}
	return out
}

// scopeSig returns a stable string signature of scope's bindings, used
// as part of a memoization key (§4.9 "memoized... per distinct
// argument vector").
func scopeSig(scope *Scope) string {
	env := scope.Env()
	names := make([]string, 0, len(env))
	for n := range env {
		names = append(names, n)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, n := range names {
		fmt.Fprintf(&b, "%s=%s,", n, env[n].String())
	}
	return b.String()
}

func cacheKey(ns string, kind resolve.DeclKind, name string, scope *Scope) string {
	return fmt.Sprintf("%s\x00%d\x00%s\x00%s", ns, kind, name, scopeSig(scope))
}

// resolveDecl resolves name under kind starting from the namespace ns,
// returning both the AST declaration and the namespace it actually
// lives in (which may differ from ns via an import).
func (e *Evaluator) resolveDecl(ns string, kind resolve.DeclKind, name string, scope *Scope, domains []ir.DomainName) (string, *tilast.Decl, []resolve.Warning, error) {
	graphNS := e.Graph.Namespace(ns)
	b, warnings, err := e.Graph.Resolve(graphNS, kind, name, localNames(scope, domains))
	if err != nil {
		return "", nil, warnings, err
	}
	if b == nil {
		// Resolve reports a local-scope shadow hit by returning a nil
		// Binding with no error; a generic/domain parameter never names
		// a type, streamlet, implementation, or interface declaration,
		// so this is always a namespace lookup bug, not a valid hit.
		return "", nil, warnings, &ir.InvariantError{Kind: ir.NameKindMismatch, Message: fmt.Sprintf("%s %q resolves to a local parameter, not a declaration", kind, name)}
	}
	d, ok := e.decls[declKey{ns: b.Namespace, kind: kind, name: b.Key.Name}]
	if !ok {
		return "", nil, warnings, &ir.InvariantError{Kind: ir.NameUnresolved, Message: fmt.Sprintf("%s %q resolved but has no body", kind, name)}
	}
	return b.Namespace, d, warnings, nil
}

// ---- types (C2) ----

// EvalType reduces a TypeExpr to an interned TypeID within namespace
// ns, under scope.
func (e *Evaluator) EvalType(ns string, te *tilast.TypeExpr, scope *Scope) (ir.TypeID, error) {
	switch {
	case te.Null:
		return e.Store.InternNull(), nil
	case te.Bits != nil:
		n, err := evalConstExpr(te.Bits, scope)
		if err != nil {
			return 0, err
		}
		return e.Store.InternBits(int(n.Int64()))
	case len(te.Fields) > 0:
		fields := make([]ir.Field, len(te.Fields))
		for i, f := range te.Fields {
			id, err := e.EvalType(ns, &f.Type, scope)
			if err != nil {
				return 0, err
			}
			fields[i] = ir.Field{Name: f.Name, Type: id}
		}
		return e.Store.InternGroup(fields)
	case len(te.Variants) > 0:
		variants := make([]ir.Variant, len(te.Variants))
		for i, v := range te.Variants {
			id, err := e.EvalType(ns, &v.Type, scope)
			if err != nil {
				return 0, err
			}
			variants[i] = ir.Variant{Name: v.Name, Type: id}
		}
		return e.Store.InternUnion(variants)
	case te.Stream != nil:
		return e.evalStreamExpr(ns, te.Stream, scope)
	case te.Ref != "":
		return e.evalTypeRef(ns, te.Ref, te.Args, scope)
	default:
		return 0, fmt.Errorf("empty type expression")
	}
}

func (e *Evaluator) evalStreamExpr(ns string, se *tilast.StreamExpr, scope *Scope) (ir.TypeID, error) {
	data, err := e.EvalType(ns, &se.Data, scope)
	if err != nil {
		return 0, err
	}
	st := ir.StreamType{
		Data:          data,
		Throughput:    ir.Rational{Num: 1, Den: 1},
		Synchronicity: synchronicityOf(se.Synchronicity),
		Complexity:    ir.DefaultComplexity,
		Direction:     directionOf(se.Direction),
		User:          e.Store.InternNull(),
	}
	if se.Throughput != nil {
		r, err := ir.NewRational(se.Throughput.Num, se.Throughput.Den)
		if err != nil {
			return 0, err
		}
		st.Throughput = r
	}
	if se.Dimensionality != nil {
		n, err := evalConstExpr(se.Dimensionality, scope)
		if err != nil {
			return 0, err
		}
		st.Dimensionality = int(n.Int64())
	}
	if len(se.Complexity) > 0 {
		st.Complexity = ir.ComplexityVersion(append([]uint32(nil), se.Complexity...))
	}
	if se.User != nil {
		user, err := e.EvalType(ns, se.User, scope)
		if err != nil {
			return 0, err
		}
		st.User = user
	}
	if se.Keep != nil {
		st.Keep = *se.Keep
	}
	return e.Store.InternStream(st)
}

func (e *Evaluator) evalTypeRef(ns, ref string, args []tilast.Arg, callerScope *Scope) (ir.TypeID, error) {
	declNS, decl, _, err := e.resolveDecl(ns, resolve.KindType, ref, callerScope, nil)
	if err != nil {
		return 0, err
	}
	if decl.Kind != tilast.DeclType {
		return 0, &ir.InvariantError{Kind: ir.NameKindMismatch, Message: fmt.Sprintf("%q does not name a type", ref)}
	}
	childScope, err := bindGenericArgs(decl.Generics, args, callerScope, false)
	if err != nil {
		return 0, err
	}
	key := cacheKey(declNS, resolve.KindType, decl.Name, childScope)
	if id, ok := e.typeCache[key]; ok {
		return id, nil
	}
	if e.evaluating[key] {
		return 0, &ir.InvariantError{Kind: ir.CycleDetected, Message: fmt.Sprintf("type %q is defined in terms of itself", decl.Name)}
	}
	e.evaluating[key] = true
	defer delete(e.evaluating, key)

	id, err := e.EvalType(declNS, decl.Type, childScope)
	if err != nil {
		if ierr, ok := err.(*ir.InvariantError); ok && ierr.Kind == ir.CycleDetected {
			return 0, err
		}
		return 0, &ir.InvariantError{Kind: ir.DerivedFromFailed, Message: fmt.Sprintf("type %q: %v", decl.Name, err)}
	}
	e.typeCache[key] = id
	return id, nil
}

// ---- streamlets and interfaces (C6) ----

// EvalStreamlet resolves and evaluates a streamlet or interface
// declaration named ref, possibly parametric, from within namespace
// ns. allowFree controls whether a generic parameter with neither a
// supplied argument nor a default is left symbolic (top-level
// evaluation, §4.9) or rejected outright (applying a streamlet as an
// instance, where every parameter must end up concrete).
func (e *Evaluator) EvalStreamlet(ns, ref string, args []tilast.Arg, callerScope *Scope, allowFree bool) (ir.StreamletID, error) {
	declNS, decl, _, err := e.resolveDecl(ns, resolve.KindStreamlet, ref, callerScope, nil)
	if err != nil {
		// Interfaces share the streamlet namespace tier at the
		// surface-syntax level but are declared under KindInterface;
		// fall back before giving up.
		var err2 error
		declNS, decl, _, err2 = e.resolveDecl(ns, resolve.KindInterface, ref, callerScope, nil)
		if err2 != nil {
			return 0, err
		}
	}
	if decl.Kind != tilast.DeclStreamlet && decl.Kind != tilast.DeclInterface {
		return 0, &ir.InvariantError{Kind: ir.NameKindMismatch, Message: fmt.Sprintf("%q does not name a streamlet or interface", ref)}
	}
	childScope, err := bindGenericArgs(decl.Generics, args, callerScope, allowFree)
	if err != nil {
		return 0, err
	}
	return e.evalStreamletDecl(declNS, decl, childScope)
}

func (e *Evaluator) evalStreamletDecl(ns string, decl *tilast.Decl, scope *Scope) (ir.StreamletID, error) {
	kind := toResolveKind(decl.Kind)
	key := cacheKey(ns, kind, decl.Name, scope)
	if id, ok := e.streamletCache[key]; ok {
		return id, nil
	}
	if e.evaluating[key] {
		return 0, &ir.InvariantError{Kind: ir.CycleDetected, Message: fmt.Sprintf("streamlet %q is defined in terms of itself", decl.Name)}
	}
	e.evaluating[key] = true
	defer delete(e.evaluating, key)

	body := decl.Streamlet
	domains := make([]ir.DomainName, len(decl.Domains))
	for i, d := range decl.Domains {
		domains[i] = ir.DomainName(d)
	}

	params, err := toParameters(decl.Generics)
	if err != nil {
		return 0, &ir.InvariantError{Kind: ir.ArgumentKind, Message: fmt.Sprintf("streamlet %q: %v", decl.Name, err)}
	}
	genericArgs := make([]ir.GenericBinding, 0, len(decl.Generics))
	for _, p := range decl.Generics {
		if v, ok := scope.Lookup(p.Name); ok {
			genericArgs = append(genericArgs, ir.GenericBinding{Name: p.Name, Value: v})
		}
	}

	var ifaceID int32
	var adoptedFrom string
	if body.AdoptFrom != "" {
		adoptID, err := e.EvalStreamlet(ns, body.AdoptFrom, nil, scope, false)
		if err != nil {
			return 0, &ir.InvariantError{Kind: ir.DerivedFromFailed, Message: fmt.Sprintf("streamlet %q: adopted interface %q: %v", decl.Name, body.AdoptFrom, err)}
		}
		adopted, _ := e.Store.Streamlet(adoptID)
		ifaceID = adopted.InterfaceID
		adoptedFrom = body.AdoptFrom
	} else {
		ports, err := e.evalPorts(ns, body.Ports, scope, domains)
		if err != nil {
			return 0, err
		}
		id, err := e.Store.InternInterface(ports)
		if err != nil {
			return 0, err
		}
		ifaceID = id
	}

	st := ir.Streamlet{
		Name:        decl.Name,
		Namespace:   ns,
		Generics:    params,
		GenericArgs: genericArgs,
		Domains:     domains,
		InterfaceID: ifaceID,
		IsInterface: decl.Kind == tilast.DeclInterface,
		AdoptedFrom: adoptedFrom,
		Doc:         decl.Doc,
	}

	switch {
	case body.Impl != nil:
		implID, err := e.evalImplBody(ns, body.Impl, scope, domains, ifaceID)
		if err != nil {
			return 0, &ir.InvariantError{Kind: ir.DerivedFromFailed, Message: fmt.Sprintf("streamlet %q: %v", decl.Name, err)}
		}
		st.Impl = &implID
	case body.ImplRef != "":
		iface, _ := e.Store.InterfaceByID(ifaceID)
		implID, err := e.EvalImpl(ns, body.ImplRef, scope, iface.Ports, domains)
		if err != nil {
			return 0, &ir.InvariantError{Kind: ir.DerivedFromFailed, Message: fmt.Sprintf("streamlet %q: implementation %q: %v", decl.Name, body.ImplRef, err)}
		}
		st.Impl = &implID
	}

	id := e.Store.InternStreamlet(st)
	e.streamletCache[key] = id
	return id, nil
}

func (e *Evaluator) evalPorts(ns string, ports []tilast.PortDecl, scope *Scope, domains []ir.DomainName) ([]ir.Port, error) {
	out := make([]ir.Port, len(ports))
	for i, p := range ports {
		streamID, err := e.EvalType(ns, &p.Stream, scope)
		if err != nil {
			return nil, err
		}
		dir := ir.In
		if p.Direction == "out" {
			dir = ir.Out
		}
		dom := ir.DefaultDomain
		if p.Domain != "" {
			dom = ir.DomainName(p.Domain)
		} else if len(domains) == 1 {
			dom = domains[0]
		}
		out[i] = ir.Port{Name: p.Name, Direction: dir, Stream: streamID, Domain: dom, Doc: p.Doc}
	}
	return out, nil
}

// ---- implementations (C7) ----

// EvalImpl resolves and evaluates a standalone implementation
// declaration named ref.
func (e *Evaluator) EvalImpl(ns, ref string, scope *Scope, parentPorts []ir.Port, parentDomains []ir.DomainName) (ir.ImplID, error) {
	declNS, decl, _, err := e.resolveDecl(ns, resolve.KindImpl, ref, scope, nil)
	if err != nil {
		return 0, err
	}
	return e.evalImplBodyNamed(declNS, decl, scope, parentDomains, parentPorts)
}

func (e *Evaluator) evalImplBodyNamed(ns string, decl *tilast.Decl, scope *Scope, domains []ir.DomainName, parentPorts []ir.Port) (ir.ImplID, error) {
	key := cacheKey(ns, resolve.KindImpl, decl.Name, scope)
	if id, ok := e.implCache[key]; ok {
		return id, nil
	}
	if e.evaluating[key] {
		return 0, &ir.InvariantError{Kind: ir.CycleDetected, Message: fmt.Sprintf("implementation %q is defined in terms of itself", decl.Name)}
	}
	e.evaluating[key] = true
	defer delete(e.evaluating, key)

	ifaceID, err := e.Store.InternInterface(parentPorts)
	if err != nil {
		return 0, err
	}
	id, err := e.evalImplBody(ns, decl.Impl, scope, domains, ifaceID)
	if err != nil {
		return 0, err
	}
	e.implCache[key] = id
	return id, nil
}

// evalImplBody evaluates one ImplBody — inline or standalone — given
// the enclosing streamlet's own domain scope and interned interface
// (used to populate Ports for a Structural body).
func (e *Evaluator) evalImplBody(ns string, body *tilast.ImplBody, scope *Scope, domains []ir.DomainName, ifaceID int32) (ir.ImplID, error) {
	if body.Path != "" {
		path := body.Path
		if e.ResolveLinkedPath != nil {
			path = e.ResolveLinkedPath(body.Span.File, body.Path)
		}
		return e.Store.InternImplementation(ir.Implementation{Kind: ir.Linked, LinkedPath: path}), nil
	}

	iface, _ := e.Store.InterfaceByID(ifaceID)
	impl := ir.Implementation{Kind: ir.Structural, Ports: iface.Ports}

	instances := make([]ir.Instance, len(body.Instances))
	for i, inst := range body.Instances {
		stID, err := e.EvalStreamlet(ns, inst.StreamletRef, inst.GenericArgs, scope, false)
		if err != nil {
			return 0, fmt.Errorf("instance %q: %w", inst.Name, err)
		}
		child, _ := e.Store.Streamlet(stID)
		binding, err := bindDomainArgs(child.Domains, inst.DomainArgs)
		if err != nil {
			return 0, fmt.Errorf("instance %q: %w", inst.Name, err)
		}
		instances[i] = ir.Instance{Name: inst.Name, Streamlet: stID, Domains: binding}
	}
	impl.Instances = instances

	connections := make([]ir.Connection, len(body.Connections))
	for i, c := range body.Connections {
		connections[i] = ir.Connection{A: toEndpoint(c.A), B: toEndpoint(c.B)}
	}
	impl.Connections = connections

	return e.Store.InternImplementation(impl), nil
}

func toEndpoint(ee tilast.EndpointExpr) ir.Endpoint {
	if ee.Instance == "" {
		return ir.Endpoint{Kind: ir.EndpointParent, Port: ee.Port}
	}
	return ir.Endpoint{Kind: ir.EndpointInstance, Port: ee.Port, InstanceName: ee.Instance}
}
