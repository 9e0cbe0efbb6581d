package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set during build using ldflags
var Version = "dev"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "depscope",
	Short:   "Analyzes JavaScript/TypeScript dependency graphs",
	Long:    `depscope scans a JavaScript/TypeScript project, resolves every import, and reports unused, missing and phantom dependencies, circular imports, and peer-dependency conflicts.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
