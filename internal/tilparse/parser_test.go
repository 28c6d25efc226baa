package tilparse

import "testing"

const sample = `
namespace demo {

type Byte = Bits(8);

streamlet Buffer<N: positive = 16 where N > 0> {
  in data: Stream(Byte, throughput: 1, dimensionality: 0);
  out result: Stream(Byte);

  impl {
    u0 = Passthrough<N>;
    data -- u0.data;
    u0.result -- result;
  }
}

streamlet Passthrough<N: positive> {
  in data: Stream(Byte);
  out result: Stream(Byte);
}

}
`

func TestParseSampleProgram(t *testing.T) {
	f, errs := Parse("sample.til", sample)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	if len(f.Namespaces) != 1 {
		t.Fatalf("expected 1 namespace block, got %d", len(f.Namespaces))
	}
	ns := f.Namespaces[0]
	if ns.Path != "demo" {
		t.Fatalf("namespace path = %q, want demo", ns.Path)
	}
	if len(ns.Decls) != 3 {
		t.Fatalf("expected 3 declarations, got %d", len(ns.Decls))
	}
	buf := ns.Decls[1]
	if buf.Name != "Buffer" || len(buf.Generics) != 1 {
		t.Fatalf("unexpected Buffer decl: %+v", buf)
	}
	if buf.Generics[0].Constraint == nil {
		t.Fatalf("expected Buffer's N to carry a where-constraint")
	}
	if len(buf.Streamlet.Ports) != 2 {
		t.Fatalf("expected 2 ports, got %d", len(buf.Streamlet.Ports))
	}
	if buf.Streamlet.Impl == nil || len(buf.Streamlet.Impl.Instances) != 1 {
		t.Fatalf("expected 1 instance in Buffer's impl")
	}
	if len(buf.Streamlet.Impl.Connections) != 2 {
		t.Fatalf("expected 2 connections, got %d", len(buf.Streamlet.Impl.Connections))
	}
}

func TestParseImportForms(t *testing.T) {
	src := `
import other::*;
import other::{Foo, Bar as Baz} as pre;
type T = Null;
`
	f, errs := Parse("imports.til", src)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	ns := f.Namespaces[0]
	if len(ns.Imports) != 2 {
		t.Fatalf("expected 2 imports, got %d", len(ns.Imports))
	}
	if !ns.Imports[0].Wildcard {
		t.Fatalf("expected first import to be wildcard")
	}
	second := ns.Imports[1]
	if second.Prefix != "pre" || len(second.Items) != 2 {
		t.Fatalf("unexpected second import: %+v", second)
	}
	if second.Items[1].Alias != "Baz" {
		t.Fatalf("expected Bar aliased to Baz, got %+v", second.Items[1])
	}
}

func TestParseConstExprPrecedence(t *testing.T) {
	p := &Parser{lex: New("1 + 2 * 3 - 4 / 2")}
	p.next()
	p.next()
	e := p.parseConstExpr()
	if e.Op != "-" {
		t.Fatalf("expected top-level op '-', got %q", e.Op)
	}
}

func TestParsePredicate(t *testing.T) {
	p := &Parser{lex: New("N > 0 and N <= 32")}
	p.next()
	p.next()
	pred := p.parsePredicate()
	if pred.And[0] == nil || pred.And[1] == nil {
		t.Fatalf("expected a top-level 'and' predicate, got %+v", pred)
	}
}
