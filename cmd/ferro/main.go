package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagFormat     string
	flagRoot       string
	flagScriptsDir string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "ferro",
	Short:         "Incremental analysis core for a tree-sitter-backed code analyzer",
	Long:          "ferro indexes a tree of Rust-style source files into an in-memory query engine and answers semantic queries against it. The index lives only for the lifetime of the process: there is no on-disk query cache.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", ".", "directory to index before running a query")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagScriptsDir, "scripts-dir", "scripts", "directory holding macro/assist .risor scripts")

	rootCmd.AddCommand(worldSymbolsCmd)
	rootCmd.AddCommand(parentModuleCmd)
	rootCmd.AddCommand(crateForCmd)
	rootCmd.AddCommand(completionsCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(refsCmd)
	rootCmd.AddCommand(diagnosticsCmd)
	rootCmd.AddCommand(assistsCmd)
	rootCmd.AddCommand(resolveCallableCmd)
	rootCmd.AddCommand(typeOfCmd)
}
