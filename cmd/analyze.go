package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/depscope/depscope/pkg/analyzer"
	"github.com/depscope/depscope/pkg/config"
	"github.com/depscope/depscope/pkg/logger"
	"github.com/depscope/depscope/pkg/output"
	"github.com/depscope/depscope/pkg/registry"
)

var (
	analyzePath  string
	format       string
	scope        string
	includeDev   bool
	checkPeers   bool
	checkLatest  bool
	maxDepth     int
	excludeFlags []string
	verbose      bool
)

// analyzeCmd represents the analyze subcommand
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a project's dependency graph",
	Long:  "Scan the project's source files, resolve imports against the manifest and the installed tree, and report dependency issues.",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.SetVerbose(verbose)

		cfg, err := config.FindAndLoadConfig(analyzePath)
		if err != nil {
			return err
		}

		opts := analyzer.Options{
			Scope:                 scope,
			IncludeDev:            includeDev,
			CheckPeerDependencies: checkPeers,
			CheckLatest:           checkLatest,
			MaxTraversalDepth:     maxDepth,
			ExcludePatterns:       excludeFlags,
			Config:                cfg,
		}
		if checkLatest {
			opts.Lookup = registry.NewNpmRegistry(cfg.Registry)
		}

		report, err := analyzer.New(opts).Analyze(context.Background(), analyzePath)
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}

		out := os.Stdout
		if cfg.Output.File != "" {
			f, err := os.Create(cfg.Output.File)
			if err != nil {
				return fmt.Errorf("cannot create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		if format == "" {
			format = cfg.Output.Format
		}
		switch format {
		case "json":
			data, err := output.GenerateJSONReport(report)
			if err != nil {
				return fmt.Errorf("failed to marshal report to JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
		case "sarif":
			data, err := output.GenerateSarifReport(report, Version)
			if err != nil {
				return fmt.Errorf("failed to generate SARIF report: %w", err)
			}
			fmt.Fprintln(out, string(data))
		default:
			output.PrintTextReport(out, report)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzePath, "path", "p", ".", "Path to project directory to analyze")
	analyzeCmd.Flags().StringVarP(&format, "format", "f", "", "Output format: text, json or sarif")
	analyzeCmd.Flags().StringVar(&scope, "scope", "", "Declaration buckets to analyze: production, development, peer or all")
	analyzeCmd.Flags().BoolVar(&includeDev, "include-dev", true, "Include devDependencies in the analysis")
	analyzeCmd.Flags().BoolVar(&checkPeers, "check-peers", true, "Check peer-dependency requirements and conflicts")
	analyzeCmd.Flags().BoolVar(&checkLatest, "check-latest", false, "Fetch latest versions for unused and phantom packages")
	analyzeCmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Depth bound for the installed-tree walk (0 = default)")
	analyzeCmd.Flags().StringSliceVar(&excludeFlags, "exclude", nil, "Path patterns to exclude from scanning")
	analyzeCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}
