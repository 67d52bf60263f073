package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse schema definitions and list what they declare",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd); err != nil {
			fmt.Fprintf(os.Stderr, "validation failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command) error {
	_, schemas, err := loadRegistry(cmd)
	if err != nil {
		return err
	}
	for _, s := range schemas {
		required := len(s.RequiredFields())
		fmt.Printf("%s: %d fields (%d required)\n", s.Name, len(s.Fields), required)
	}
	return nil
}
