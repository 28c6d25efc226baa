package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/robert-at-pretension-io/tilc/internal/eval"
	"github.com/robert-at-pretension-io/tilc/internal/ir"
	"github.com/robert-at-pretension-io/tilc/internal/project"
	"github.com/robert-at-pretension-io/tilc/internal/tilast"
	"github.com/robert-at-pretension-io/tilc/internal/tilparse"
	"golang.org/x/sync/errgroup"
)

// parsedFile is one source file's parse result, kept alongside its
// diagnostics so the sequential LoadFile pass below can preserve
// declaration order across files regardless of which goroutine
// finished parsing it first.
type parsedFile struct {
	file *tilast.File
	errs []ir.Diagnostic
}

// loadProject resolves the project descriptor at dir, parses every
// matched source file, and loads the resulting trees into a fresh
// Evaluator. Parse errors are returned as ir.Diagnostics but do not
// stop later files from being parsed, matching the "diagnostics
// accumulate across a whole compilation" contract of internal/ir.
func loadProject(dir string) (*eval.Evaluator, *project.Descriptor, []*tilast.File, error) {
	descPath := dir + "/til.toml"
	var desc *project.Descriptor
	if _, err := os.Stat(descPath); os.IsNotExist(err) {
		desc = project.Default()
	} else {
		desc, err = project.Load(descPath)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	sources, err := desc.ResolveSources(dir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("resolving sources: %w", err)
	}
	if len(sources) == 0 {
		return nil, nil, nil, fmt.Errorf("no .til sources found under %s (sources = %v)", dir, desc.Sources)
	}

	// Reading and lexing/parsing each source is independent work, so it
	// fans out across sources; internal/eval.LoadFile mutates shared
	// namespace/decl tables and runs afterward, in source order, so
	// diagnostics and declaration-redefinition detection stay
	// deterministic regardless of goroutine scheduling.
	parsed := make([]parsedFile, len(sources))
	g, _ := errgroup.WithContext(context.Background())
	for i, path := range sources {
		i, path := i, path
		g.Go(func() error {
			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			f, errs := tilparse.Parse(path, string(raw))
			parsed[i] = parsedFile{file: f, errs: errs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	e := eval.New()
	e.ResolveLinkedPath = func(sourceFile, rawPath string) string {
		return desc.ResolveLinkedPath(sourceFile, dir, rawPath)
	}
	var files []*tilast.File
	for _, pf := range parsed {
		for _, d := range pf.errs {
			e.Diags.Add(d)
		}
		if err := e.LoadFile(pf.file); err != nil {
			return nil, nil, nil, fmt.Errorf("loading %s: %w", pf.file.Path, err)
		}
		files = append(files, pf.file)
	}
	return e, desc, files, nil
}

// topLevelStreamlet names one top-level streamlet declaration
// encountered while walking a parsed file, together with the span its
// declaration started at (for diagnostics raised while evaluating it).
type topLevelStreamlet struct {
	NS, Name string
	Generic  bool
	Span     ir.Span
}

// topLevelStreamlets returns every streamlet declaration across files,
// namespaced to its enclosing block, including generic ones (§1: tilc
// "emits... for every declared component"). No streamlet is skipped;
// Generic records whether the declaration has generic parameters, and
// callers attempt every entry and let the evaluator report any failure).
func topLevelStreamlets(files []*tilast.File) []topLevelStreamlet {
	var out []topLevelStreamlet
	for _, f := range files {
		for _, block := range f.Namespaces {
			for _, decl := range block.Decls {
				if decl.Kind != tilast.DeclStreamlet {
					continue
				}
				out = append(out, topLevelStreamlet{NS: block.Path, Name: decl.Name, Generic: len(decl.Generics) != 0, Span: decl.Span})
			}
		}
	}
	return out
}

func printDiagnostics(diags []ir.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, d.Error())
	}
}

// diagnosticFromError turns an error raised while evaluating the
// top-level declaration at span into a Diagnostic: an *ir.InvariantError
// carries its own Kind, anything else (a wrapped resolution/instance
// error with no single Kind of its own) is recorded as DerivedFromFailed
// so it still shows up in the accumulated diagnostic list instead of
// only aborting the one streamlet that produced it.
func diagnosticFromError(span ir.Span, err error) ir.Diagnostic {
	var ierr *ir.InvariantError
	if errors.As(err, &ierr) {
		return ir.Diagnostic{Kind: ierr.Kind, Message: ierr.Message, Span: span}
	}
	return ir.Diagnostic{Kind: ir.DerivedFromFailed, Message: err.Error(), Span: span}
}
