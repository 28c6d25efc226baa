package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/robert-at-pretension-io/tilc/internal/project"
	"github.com/spf13/cobra"
)

var initName string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default til.toml project descriptor",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(projectPath, "til.toml")
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}

		desc := project.Default()
		if initName != "" {
			desc.Name = initName
		}
		raw, err := toml.Marshal(desc)
		if err != nil {
			return fmt.Errorf("marshaling default descriptor: %w", err)
		}
		if err := os.MkdirAll(projectPath, 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initName, "name", "", "project name (defaults to \"project\")")
	rootCmd.AddCommand(initCmd)
}
