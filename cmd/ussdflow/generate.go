package main

import (
	"fmt"
	"os"

	"github.com/aretw0/ussdflow/internal/cli"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate <flow-file>",
	Short: "Compile a flow graph into a Go program",
	Long: `Validates the flow and writes the generated program, its deployment files and
a copy of the flow to a directory (--out) or a zip archive (--zip).`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger, closer := setup(cmd)
		defer closer.Close()

		name, _ := cmd.Flags().GetString("name")
		out, _ := cmd.Flags().GetString("out")
		zipPath, _ := cmd.Flags().GetString("zip")
		if out == "" && zipPath == "" {
			out = "."
		}

		prog, err := cli.Generate(newBuilder(cfg, logger), args[0], cli.GenerateOptions{
			Name:    name,
			OutDir:  out,
			ZipPath: zipPath,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Generation failed: %v\n", err)
			os.Exit(1)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Generated module %s (%d files)\n", prog.Module(), prog.Len())
		if out != "" {
			fmt.Fprintf(w, "  written to %s\n", out)
		}
		if zipPath != "" {
			fmt.Fprintf(w, "  archived to %s\n", zipPath)
		}
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringP("name", "n", "", "Project name (defaults to the flow file name)")
	generateCmd.Flags().StringP("out", "o", "", "Directory to write the program to")
	generateCmd.Flags().String("zip", "", "Zip archive to write the program to")
}
