package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ruleweave/factmat"
)

var materializeCmd = &cobra.Command{
	Use:   "materialize [facts.json]",
	Short: "Materialize JSON facts against the registered schemas",
	Long: `Reads a JSON object or array of objects and prints each materialized fact.
Without --type, each element must carry a "_type" discriminator.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runMaterialize(cmd, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "materialize failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	materializeCmd.Flags().StringP("type", "t", "", "Schema name to materialize every element against")
	materializeCmd.Flags().Bool("map-facts", false, "Force the field-map strategy (no struct building)")
	rootCmd.AddCommand(materializeCmd)
}

func runMaterialize(cmd *cobra.Command, factsPath string) error {
	reg, _, err := loadRegistry(cmd)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(factsPath)
	if err != nil {
		return fmt.Errorf("reading facts: %w", err)
	}

	opts := []factmat.Option{factmat.WithLogger(newLogger(cmd))}
	if forceMap, _ := cmd.Flags().GetBool("map-facts"); forceMap {
		opts = append(opts, factmat.WithStrategy(factmat.StrategyMap))
	}
	m := factmat.NewMaterializer(reg, opts...)

	schemaName, _ := cmd.Flags().GetString("type")
	var facts []factmat.Fact
	if schemaName != "" {
		facts, err = m.FromJSON(data, schemaName)
	} else {
		facts, err = m.FromJSONAutoDetect(data)
	}
	for _, f := range facts {
		fmt.Println(f.String())
	}
	if err != nil {
		if batch, ok := factmat.AsBatchError(err); ok {
			for _, el := range batch {
				fmt.Fprintf(os.Stderr, "element %d: %v\n", el.Index, el.Err)
			}
			return fmt.Errorf("%d of %d elements failed", len(batch), len(batch)+len(facts))
		}
		return err
	}
	return nil
}
