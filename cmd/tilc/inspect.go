package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/robert-at-pretension-io/tilc/internal/eval"
	"github.com/robert-at-pretension-io/tilc/internal/irschema"
	"github.com/spf13/cobra"
)

var inspectJSON bool

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Evaluate the project and print the compiled IR as schema-checked JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, _, files, err := loadProject(projectPath)
		if err != nil {
			return err
		}

		// A bad declaration is recorded and skipped, not fatal (§7): the
		// rest of the project still evaluates, and the dump below still
		// gets built from whatever streamlets did reduce cleanly.
		for _, s := range topLevelStreamlets(files) {
			if _, err := e.EvalStreamlet(s.NS, s.Name, nil, eval.NewScope(), true); err != nil {
				e.Diags.Add(diagnosticFromError(s.Span, err))
			}
		}

		if inspectJSON {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			if err := enc.Encode(e.Diags.All()); err != nil {
				return fmt.Errorf("encoding diagnostics: %w", err)
			}
		} else {
			printDiagnostics(e.Diags.All())
		}

		dump := irschema.BuildDump(e.Store)
		v, err := irschema.New()
		if err != nil {
			return fmt.Errorf("loading IR schema: %w", err)
		}
		if err := v.Validate(dump); err != nil {
			return fmt.Errorf("dumped IR does not satisfy its schema: %w", err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(dump); err != nil {
			return err
		}
		if e.Diags.HasErrors() {
			return fmt.Errorf("inspect completed with %d diagnostic(s)", len(e.Diags.All()))
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "emit diagnostics as a JSON array instead of one line per diagnostic")
	rootCmd.AddCommand(inspectCmd)
}
