package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ruleweave/factmat"
)

var genCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate Go struct source for schemas known at build time",
	Long: `Renders one Go struct per registered schema. For deployments that know
their schemas ahead of time this replaces runtime struct building entirely.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runGen(cmd); err != nil {
			fmt.Fprintf(os.Stderr, "gen failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	genCmd.Flags().StringP("out", "o", "", "Output file (defaults to stdout)")
	genCmd.Flags().StringP("package", "p", "facts", "Package name for the generated file")
	rootCmd.AddCommand(genCmd)
}

func runGen(cmd *cobra.Command) error {
	_, schemas, err := loadRegistry(cmd)
	if err != nil {
		return err
	}
	pkg, _ := cmd.Flags().GetString("package")
	src, err := factmat.GenerateSource(pkg, schemas)
	if err != nil {
		return err
	}
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		_, err = os.Stdout.Write(src)
		return err
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}
	return os.WriteFile(out, src, 0o644)
}
