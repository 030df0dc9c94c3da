package main

import (
	"fmt"
	"os"

	"github.com/aretw0/ussdflow/internal/cli"
	"github.com/aretw0/ussdflow/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var docsCmd = &cobra.Command{
	Use:   "docs <flow-file>",
	Short: "Show the README of the program a flow compiles to",
	Long:  `Generates the program in memory and prints its README, rendered when Stdout is a terminal.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger, closer := setup(cmd)
		defer closer.Close()
		name, _ := cmd.Flags().GetString("name")
		raw, _ := cmd.Flags().GetBool("raw")

		var render func(string) (string, error)
		fd := int(os.Stdout.Fd())
		if !raw && term.IsTerminal(fd) {
			width, _, err := term.GetSize(fd)
			if err != nil {
				width = 0
			}
			if render, err = tui.NewRenderer(width); err != nil {
				logger.Warn("markdown renderer unavailable", "err", err)
			}
		}

		if err := cli.Docs(cmd.OutOrStdout(), newBuilder(cfg, logger), args[0], name, render); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating docs: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
	docsCmd.Flags().StringP("name", "n", "", "Project name (defaults to the flow file name)")
	docsCmd.Flags().Bool("raw", false, "Print the markdown without rendering")
}
