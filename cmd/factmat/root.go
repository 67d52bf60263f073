package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ruleweave/factmat"
)

var rootCmd = &cobra.Command{
	Use:   "factmat",
	Short: "factmat materializes JSON facts against registered schemas",
	Long:  `factmat parses declarative schema definitions and turns JSON payloads into typed facts for rule-engine consumption.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("schemas", "s", "", "Path to schema definitions (declarative text, or YAML with --yaml)")
	rootCmd.PersistentFlags().Bool("yaml", false, "Treat the schema file as YAML schema documents")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (trace|debug|info|warn|error)")
}

// newLogger builds a console logger honoring --log-level.
func newLogger(cmd *cobra.Command) zerolog.Logger {
	levelStr, _ := cmd.Flags().GetString("log-level")
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		level = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// loadRegistry reads the --schemas file and registers its definitions.
func loadRegistry(cmd *cobra.Command) (*factmat.Registry, []*factmat.ObjectSchema, error) {
	path, _ := cmd.Flags().GetString("schemas")
	if path == "" {
		return nil, nil, fmt.Errorf("--schemas is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading schemas: %w", err)
	}
	reg := factmat.NewRegistry()
	useYAML, _ := cmd.Flags().GetBool("yaml")
	var schemas []*factmat.ObjectSchema
	if useYAML {
		schemas, err = reg.RegisterYAML(data)
	} else {
		schemas, err = reg.RegisterDecl(string(data))
	}
	if err != nil {
		return nil, nil, err
	}
	return reg, schemas, nil
}
