package resolve

import (
	"testing"

	"github.com/robert-at-pretension-io/tilc/internal/ir"
)

func TestDeclareRejectsRedefinition(t *testing.T) {
	ns := NewNamespace("acme::io")
	if _, err := ns.Declare(KindStreamlet, "Foo"); err != nil {
		t.Fatalf("first Declare: %v", err)
	}
	if _, err := ns.Declare(KindStreamlet, "Foo"); err == nil {
		t.Fatalf("redeclaring the same (kind, name) must fail")
	}
	// A different kind with the same name is a distinct key.
	if _, err := ns.Declare(KindImpl, "Foo"); err != nil {
		t.Fatalf("same name under a different kind must succeed: %v", err)
	}
}

func TestLocalLookup(t *testing.T) {
	ns := NewNamespace("acme::io")
	b, err := ns.Declare(KindType, "Word")
	if err != nil {
		t.Fatalf("Declare: %v", err)
	}
	got, ok := ns.Local(KindType, "Word")
	if !ok || got != b {
		t.Fatalf("Local must return the binding Declare created")
	}
	if _, ok := ns.Local(KindType, "Missing"); ok {
		t.Fatalf("Local must report ok=false for an undeclared name")
	}
}

func TestResolveLocalScopeShadows(t *testing.T) {
	g := NewGraph()
	ns := g.Namespace("acme::io")
	if _, err := ns.Declare(KindType, "W"); err != nil {
		t.Fatalf("Declare: %v", err)
	}
	b, warnings, err := g.Resolve(ns, KindType, "W", map[string]bool{"W": true})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if b != nil || len(warnings) != 0 {
		t.Fatalf("a local-scope hit must short-circuit with no binding and no warnings, got %+v / %v", b, warnings)
	}
}

func TestResolveNamespaceLocalBeatsImports(t *testing.T) {
	g := NewGraph()
	src := g.Namespace("acme::util")
	want, err := src.Declare(KindStreamlet, "Foo")
	if err != nil {
		t.Fatalf("Declare in src: %v", err)
	}
	ns := g.Namespace("acme::io")
	if _, err := ns.Declare(KindStreamlet, "Foo"); err != nil {
		t.Fatalf("Declare in ns: %v", err)
	}
	ns.Imports = []ImportSpec{{From: "acme::util", Selector: ImportSelector{Wildcard: true}}}

	b, _, err := g.Resolve(ns, KindStreamlet, "Foo", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if b == want {
		t.Fatalf("a declaration local to ns must win over an import of the same name")
	}
}

func TestResolveWildcardImport(t *testing.T) {
	g := NewGraph()
	src := g.Namespace("acme::util")
	want, err := src.Declare(KindStreamlet, "Foo")
	if err != nil {
		t.Fatalf("Declare: %v", err)
	}
	ns := g.Namespace("acme::io")
	ns.Imports = []ImportSpec{{From: "acme::util", Selector: ImportSelector{Wildcard: true}}}

	b, warnings, err := g.Resolve(ns, KindStreamlet, "Foo", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if b != want {
		t.Fatalf("wildcard import must resolve to the source namespace's binding")
	}
	if len(warnings) != 0 {
		t.Fatalf("a single unambiguous import must not produce a warning")
	}
}

func TestResolveWildcardImportWithPrefix(t *testing.T) {
	g := NewGraph()
	src := g.Namespace("acme::util")
	want, err := src.Declare(KindStreamlet, "Foo")
	if err != nil {
		t.Fatalf("Declare: %v", err)
	}
	ns := g.Namespace("acme::io")
	ns.Imports = []ImportSpec{{From: "acme::util", Selector: ImportSelector{Wildcard: true}, Prefix: "util"}}

	if _, _, err := g.Resolve(ns, KindStreamlet, "Foo", nil); err == nil {
		t.Fatalf("an unprefixed name must not resolve through a prefixed wildcard import")
	}
	b, _, err := g.Resolve(ns, KindStreamlet, "util::Foo", nil)
	if err != nil {
		t.Fatalf("Resolve with prefix: %v", err)
	}
	if b != want {
		t.Fatalf("prefixed wildcard import must resolve %q to the source binding", "util::Foo")
	}
}

func TestResolveSelectiveImportWithAlias(t *testing.T) {
	g := NewGraph()
	src := g.Namespace("acme::util")
	want, err := src.Declare(KindStreamlet, "Foo")
	if err != nil {
		t.Fatalf("Declare: %v", err)
	}
	ns := g.Namespace("acme::io")
	ns.Imports = []ImportSpec{{
		From:     "acme::util",
		Selector: ImportSelector{Items: []ImportItem{{Kind: KindStreamlet, Name: "Foo", Alias: "Bar"}}},
	}}

	if _, _, err := g.Resolve(ns, KindStreamlet, "Foo", nil); err == nil {
		t.Fatalf("the unaliased name must not resolve once aliased on import")
	}
	b, _, err := g.Resolve(ns, KindStreamlet, "Bar", nil)
	if err != nil {
		t.Fatalf("Resolve alias: %v", err)
	}
	if b != want {
		t.Fatalf("the alias must resolve to the source binding")
	}
}

func TestResolveLaterImportShadowsEarlierWithWarning(t *testing.T) {
	g := NewGraph()
	srcA := g.Namespace("acme::a")
	if _, err := srcA.Declare(KindStreamlet, "Foo"); err != nil {
		t.Fatalf("Declare in a: %v", err)
	}
	srcB := g.Namespace("acme::b")
	wantB, err := srcB.Declare(KindStreamlet, "Foo")
	if err != nil {
		t.Fatalf("Declare in b: %v", err)
	}
	ns := g.Namespace("acme::io")
	ns.Imports = []ImportSpec{
		{From: "acme::a", Selector: ImportSelector{Wildcard: true}},
		{From: "acme::b", Selector: ImportSelector{Wildcard: true}},
	}

	b, warnings, err := g.Resolve(ns, KindStreamlet, "Foo", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if b != wantB {
		t.Fatalf("the later import must shadow the earlier one")
	}
	if len(warnings) != 1 {
		t.Fatalf("expected exactly one shadow warning, got %d", len(warnings))
	}
}

func TestResolveUnknownNameIsNameUnresolved(t *testing.T) {
	g := NewGraph()
	ns := g.Namespace("acme::io")
	_, _, err := g.Resolve(ns, KindStreamlet, "Missing", nil)
	if err == nil {
		t.Fatalf("resolving an unknown name must fail")
	}
	var ierr *ir.InvariantError
	if e, ok := err.(*ir.InvariantError); ok {
		ierr = e
	} else {
		t.Fatalf("expected *ir.InvariantError, got %T", err)
	}
	if ierr.Kind != ir.NameUnresolved {
		t.Fatalf("expected NameUnresolved, got %v", ierr.Kind)
	}
}

func TestDeclKindString(t *testing.T) {
	cases := map[DeclKind]string{
		KindType:      "type",
		KindStreamlet: "streamlet",
		KindImpl:      "impl",
		KindInterface: "interface",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Fatalf("%d.String() = %q, want %q", kind, got, want)
		}
	}
}
