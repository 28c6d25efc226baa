package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/robert-at-pretension-io/tilc/internal/connect"
	"github.com/robert-at-pretension-io/tilc/internal/eval"
	"github.com/robert-at-pretension-io/tilc/internal/ir"
	"github.com/robert-at-pretension-io/tilc/internal/vhdlgen"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile every top-level streamlet to VHDL",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, desc, files, err := loadProject(projectPath)
		if err != nil {
			return err
		}

		outDir := desc.OutputPath(projectPath)
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}

		streamlets := topLevelStreamlets(files)
		if len(streamlets) == 0 {
			return fmt.Errorf("no top-level streamlets found")
		}

		failed := 0
		for _, s := range streamlets {
			if err := compileOne(e, s, outDir); err != nil {
				e.Diags.Add(diagnosticFromError(s.Span, err))
				log.Error().Err(err).Str("namespace", s.NS).Str("streamlet", s.Name).Msg("compile failed")
				failed++
				continue
			}
			log.Info().Str("namespace", s.NS).Str("streamlet", s.Name).Msg("compiled")
		}
		printDiagnostics(e.Diags.All())
		if e.Diags.HasErrors() || failed > 0 {
			return fmt.Errorf("compilation failed: %d diagnostic(s), %d streamlet failure(s)", len(e.Diags.All()), failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)
}

func compileOne(e *eval.Evaluator, s topLevelStreamlet, outDir string) error {
	id, err := e.EvalStreamlet(s.NS, s.Name, nil, eval.NewScope(), true)
	if err != nil {
		return fmt.Errorf("evaluating %s::%s: %w", s.NS, s.Name, err)
	}

	st, ok := e.Store.Streamlet(id)
	if !ok {
		return fmt.Errorf("internal: streamlet %d not found after evaluation", id)
	}
	if st.Impl != nil {
		impl, ok := e.Store.Implementation(*st.Impl)
		if ok && impl.Kind == ir.Structural {
			for _, verr := range connect.Validate(e.Store, impl) {
				e.Diags.Add(ir.Diagnostic{Kind: verr.Kind, Message: verr.Message, Span: s.Span})
			}
		}
	}

	out, err := vhdlgen.Emit(e.Store, id)
	if err != nil {
		return fmt.Errorf("emitting %s::%s: %w", s.NS, s.Name, err)
	}

	path := filepath.Join(outDir, vhdlFileName(s.Name))
	return os.WriteFile(path, []byte(out), 0o644)
}

func vhdlFileName(streamletName string) string {
	return streamletName + ".vhd"
}
