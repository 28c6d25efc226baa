// Package resolve implements name resolution and the import graph
// (C8): namespaces, a per-namespace symbol table keyed by (kind,
// name), imports (wildcard, selective, aliased, prefixed), and the
// three-tier lookup order of spec §4.8.
package resolve

import (
	"fmt"
	"strings"

	"github.com/robert-at-pretension-io/tilc/internal/ir"
)

// DeclKind distinguishes the four namespaced declaration kinds (§3.1
// Namespace). Names may collide across kinds but not within one.
type DeclKind uint8

const (
	KindType DeclKind = iota
	KindStreamlet
	KindImpl
	KindInterface
)

func (k DeclKind) String() string {
	switch k {
	case KindType:
		return "type"
	case KindStreamlet:
		return "streamlet"
	case KindImpl:
		return "impl"
	case KindInterface:
		return "interface"
	default:
		return "?"
	}
}

// Key is the (kind, name) pair a namespace's symbol table is keyed by.
type Key struct {
	Kind DeclKind
	Name string
}

// Binding is a resolved (namespace-qualified) symbol. Declare sets
// State to NotStarted; no package in this module writes RawID or State
// afterwards (internal/eval memoizes evaluated Ids in its own caches),
// so RawID stays 0 and State stays NotStarted.
type Binding struct {
	Namespace string
	Key       Key
	// RawID is a slot for the entity Id, typed per Key.Kind (resolve
	// itself is agnostic to entity shape, only to naming).
	RawID int32
	State DeclState
}

// DeclState is the declaration-evaluation state machine of §4.11.
type DeclState uint8

const (
	NotStarted DeclState = iota
	InProgress
	Evaluated
	Failed
)

// ImportSelector is Wildcard or a concrete list of (kind, name, alias).
type ImportSelector struct {
	Wildcard bool
	Items    []ImportItem
}

// ImportItem names one selectively-imported symbol, optionally
// rebound under a local alias (`as`).
type ImportItem struct {
	Kind  DeclKind
	Name  string
	Alias string // "" if not aliased
}

// ImportSpec is one `import` declaration (§3.1, §4.8).
type ImportSpec struct {
	From     string // source namespace path
	Selector ImportSelector
	Prefix   string // "" if not prefixed
	Span     ir.Span
}

// Namespace owns a local symbol table and its ordered import list
// (§3.1, §3.2 "Name-to-Id bindings in each namespace live for the
// whole compilation").
type Namespace struct {
	Path    string
	Symbols map[Key]*Binding
	Imports []ImportSpec
}

// NewNamespace creates an empty namespace at path.
func NewNamespace(path string) *Namespace {
	return &Namespace{Path: path, Symbols: make(map[Key]*Binding)}
}

// Declare registers name under kind, failing with
// DeclarationRedefinition if the (kind, name) pair is already bound in
// this namespace (§4.8, §7).
func (n *Namespace) Declare(kind DeclKind, name string) (*Binding, error) {
	key := Key{Kind: kind, Name: name}
	if _, exists := n.Symbols[key]; exists {
		return nil, &ir.InvariantError{
			Kind:    ir.DeclarationRedefinition,
			Message: fmt.Sprintf("%s %q already declared in namespace %q", kind, name, n.Path),
		}
	}
	b := &Binding{Namespace: n.Path, Key: key, State: NotStarted}
	n.Symbols[key] = b
	return b, nil
}

// Local looks up a (kind, name) pair declared directly in this
// namespace (tier 2 of §4.8's resolution order).
func (n *Namespace) Local(kind DeclKind, name string) (*Binding, bool) {
	b, ok := n.Symbols[Key{Kind: kind, Name: name}]
	return b, ok
}

// Graph is the set of namespaces forming one compilation's import
// graph (§4.8 "Imports do not transit transitively" — Graph only ever
// needs to look one hop away from any given namespace).
type Graph struct {
	Namespaces map[string]*Namespace
}

// NewGraph creates an empty namespace graph.
func NewGraph() *Graph { return &Graph{Namespaces: make(map[string]*Namespace)} }

// Namespace returns (creating if absent) the namespace at path.
func (g *Graph) Namespace(path string) *Namespace {
	if ns, ok := g.Namespaces[path]; ok {
		return ns
	}
	ns := NewNamespace(path)
	g.Namespaces[path] = ns
	return ns
}

// Warning is a non-fatal resolution note (§4.8 "the evaluator emits a
// warning record" for shadowing imports).
type Warning struct {
	Namespace string
	Message   string
	Span      ir.Span
}

// Resolve looks up name under kind starting from ns, applying the
// three-tier order of §4.8: (1) the caller supplies localScope (the
// enclosing declaration's own parameter/domain names — resolve has no
// notion of those, so this is the caller's map of already-known local
// symbols that shadow everything else); (2) this namespace's own
// declarations; (3) imports, in declaration order, later imports
// shadowing earlier ones on collision (producing a Warning, not an
// error).
func (g *Graph) Resolve(ns *Namespace, kind DeclKind, name string, localScope map[string]bool) (*Binding, []Warning, error) {
	if localScope[name] {
		// The caller (internal/eval) resolves local scope hits itself
		// since those aren't namespace bindings; resolve only reports
		// that the name is shadowed so eval doesn't also consult
		// imports for it.
		return nil, nil, nil
	}
	if b, ok := ns.Local(kind, name); ok {
		return b, nil, nil
	}

	var found *Binding
	var warnings []Warning
	for _, imp := range ns.Imports {
		srcNS, ok := g.Namespaces[imp.From]
		if !ok {
			continue
		}
		var hit *Binding
		switch {
		case imp.Selector.Wildcard:
			if imp.Prefix != "" && !strings.HasPrefix(name, imp.Prefix+"::") {
				continue
			}
			local := name
			if imp.Prefix != "" {
				local = strings.TrimPrefix(name, imp.Prefix+"::")
			}
			if b, ok := srcNS.Local(kind, local); ok {
				hit = b
			}
		default:
			for _, item := range imp.Selector.Items {
				if item.Kind != kind {
					continue
				}
				localName := item.Name
				if item.Alias != "" {
					localName = item.Alias
				}
				if imp.Prefix != "" {
					localName = imp.Prefix + "::" + localName
				}
				if localName != name {
					continue
				}
				if b, ok := srcNS.Local(kind, item.Name); ok {
					hit = b
				}
			}
		}
		if hit != nil {
			if found != nil {
				warnings = append(warnings, Warning{
					Namespace: ns.Path,
					Message:   fmt.Sprintf("import of %s %q from %q shadows an earlier import", kind, name, imp.From),
					Span:      imp.Span,
				})
			}
			found = hit
		}
	}
	if found == nil {
		return nil, warnings, &ir.InvariantError{
			Kind:    ir.NameUnresolved,
			Message: fmt.Sprintf("%s %q not found in namespace %q or its imports", kind, name, ns.Path),
		}
	}
	return found, warnings, nil
}
