package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/ussdflow/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <flow-file>",
	Short: "Check a flow graph for consistency",
	Long: `Reports schema violations, duplicate ids, dangling edges, unknown node types,
orphaned and unreachable nodes. Exits non-zero when the flow cannot be compiled.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _, closer := setup(cmd)
		defer closer.Close()
		asJSON, _ := cmd.Flags().GetBool("json")

		err := cli.Validate(cmd.OutOrStdout(), args[0], cli.ValidateOptions{Strict: cfg.Strict, JSON: asJSON})
		if errors.Is(err, cli.ErrFlowInvalid) {
			os.Exit(1)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("json", false, "Print the result as JSON")
}
