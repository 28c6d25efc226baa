// Package main implements tilc, the TIL compiler CLI: it parses .til
// sources, evaluates them against the core IR, validates connections,
// and emits VHDL or a schema-checked JSON dump of the compiled IR.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Persistent flag values accessible to all subcommands.
var (
	projectPath string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "tilc",
	Short: "Compile TIL streamlet descriptions to VHDL",
	Long: `tilc compiles TIL (Tydi Intermediate Language) sources: it
interns logical types and streamlets, evaluates generic and domain
parameters, validates structural connections, and emits VHDL entities
and architectures.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
			Level(level).With().Timestamp().Logger()
		log.Logger = logger
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectPath, "project", "p", ".", "project directory (contains til.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("tilc failed")
	}
}
