package project

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadParsesDescriptor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "til.toml")
	contents := `
name = "example"
sources = ["src/*.til"]
output_dir = "out"
link_relative_to_file = true
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Name != "example" {
		t.Fatalf("Name = %q, want example", d.Name)
	}
	if !d.LinkRelativeToFile {
		t.Fatalf("LinkRelativeToFile = false, want true")
	}
	if d.OutputPath(dir) != filepath.Join(dir, "out") {
		t.Fatalf("OutputPath = %q", d.OutputPath(dir))
	}
}

func TestResolveLinkedPath(t *testing.T) {
	d := &Descriptor{LinkRelativeToFile: true}
	got := d.ResolveLinkedPath("/proj/src/a.til", "/proj", "impl.vhd")
	want := filepath.Join("/proj/src", "impl.vhd")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	d2 := &Descriptor{LinkRelativeToFile: false}
	got2 := d2.ResolveLinkedPath("/proj/src/a.til", "/proj", "impl.vhd")
	want2 := filepath.Join("/proj", "impl.vhd")
	if got2 != want2 {
		t.Fatalf("got %q, want %q", got2, want2)
	}
}

func TestResolveSourcesRecursiveGlob(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(rel string) {
		t.Helper()
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(p, []byte(""), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	mustWrite("a.til")
	mustWrite("sub/b.til")
	mustWrite("sub/deeper/c.til")
	mustWrite("sub/deeper/not_til.vhd")

	d := &Descriptor{Sources: []string{"**/*.til"}}
	got, err := d.ResolveSources(dir)
	if err != nil {
		t.Fatalf("ResolveSources: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 matches, got %d: %v", len(got), got)
	}
}

func TestDefaultDescriptor(t *testing.T) {
	d := Default()
	if d.Name == "" || len(d.Sources) == 0 {
		t.Fatalf("Default() produced an incomplete descriptor: %+v", d)
	}
}
