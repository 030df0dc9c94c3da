package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/ussdflow"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of ussdflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ussdflow version %s\n", strings.TrimSpace(ussdflow.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
