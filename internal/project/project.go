// Package project loads the TOML project descriptor a tilc
// compilation runs against: its source file list, output directory,
// and the policy for resolving a Linked implementation's external
// path relative to the file that names it.
package project

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Descriptor is the top-level shape of a til.toml project file.
type Descriptor struct {
	// Name is the project name, written by `tilc init`; the compiler
	// and the generated VHDL do not use it.
	Name string `toml:"name"`

	// Sources is an explicit list of glob patterns for .til source
	// files, resolved relative to the descriptor's own directory.
	Sources []string `toml:"sources"`

	// OutputDir is where generated VHDL is written, relative to the
	// descriptor's own directory unless absolute.
	OutputDir string `toml:"output_dir"`

	// LinkRelativeToFile controls how a Linked implementation's Path
	// is resolved: true means relative to the .til file that declares
	// it, false means relative to the project root (the descriptor's
	// own directory).
	LinkRelativeToFile bool `toml:"link_relative_to_file"`
}

// Default returns a Descriptor with sensible defaults for a project
// with no til.toml at all: every .til file under the current
// directory, output written to build/.
func Default() *Descriptor {
	return &Descriptor{
		Name:      "project",
		Sources:   []string{"**/*.til"},
		OutputDir: "build",
	}
}

// Load reads and parses the TOML descriptor at path.
func Load(path string) (*Descriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project descriptor %s: %w", path, err)
	}
	d := Default()
	if err := toml.Unmarshal(raw, d); err != nil {
		return nil, fmt.Errorf("parsing project descriptor %s: %w", path, err)
	}
	return d, nil
}

// ResolveSources expands every glob in Sources relative to dir (the
// descriptor's own directory), returning the deduplicated, sorted set
// of matched file paths. A pattern containing a `**` segment matches
// across directory levels (e.g. the Default() pattern "**/*.til"); Go's
// stdlib filepath.Glob has no such operator, so those patterns are
// expanded with a directory walk instead.
func (d *Descriptor) ResolveSources(dir string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(m string) {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	for _, pattern := range d.Sources {
		if strings.Contains(pattern, "**") {
			matches, err := globRecursive(dir, pattern)
			if err != nil {
				return nil, fmt.Errorf("source pattern %q: %w", pattern, err)
			}
			for _, m := range matches {
				add(m)
			}
			continue
		}
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("source pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			add(m)
		}
	}
	sort.Strings(out)
	return out, nil
}

// globRecursive expands a pattern with exactly one `**` path segment
// (e.g. "**/*.til" or "sub/**/*.til") by walking dir and matching the
// suffix pattern (the part after "**/") against each file's base name,
// at any depth below the `**` segment's position. A suffix with a
// directory component matches no file.
func globRecursive(dir, pattern string) ([]string, error) {
	prefix, suffix, ok := strings.Cut(pattern, "**/")
	if !ok {
		// A bare "**" with nothing after it matches every file.
		prefix, suffix, ok = strings.Cut(pattern, "**")
		if !ok {
			return nil, fmt.Errorf("pattern has no ** segment")
		}
	}
	root := filepath.Join(dir, prefix)
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		matched, err := filepath.Match(strings.TrimPrefix(suffix, "/"), filepath.Base(rel))
		if err != nil {
			return err
		}
		if matched {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveLinkedPath resolves a Linked implementation's Path according
// to LinkRelativeToFile: sourceFile is the .til file the Implementation
// was declared in, projectDir is the descriptor's own directory.
func (d *Descriptor) ResolveLinkedPath(sourceFile, projectDir, linkedPath string) string {
	if filepath.IsAbs(linkedPath) {
		return linkedPath
	}
	if d.LinkRelativeToFile {
		return filepath.Join(filepath.Dir(sourceFile), linkedPath)
	}
	return filepath.Join(projectDir, linkedPath)
}

// OutputPath resolves OutputDir relative to projectDir.
func (d *Descriptor) OutputPath(projectDir string) string {
	if filepath.IsAbs(d.OutputDir) {
		return d.OutputDir
	}
	return filepath.Join(projectDir, d.OutputDir)
}
