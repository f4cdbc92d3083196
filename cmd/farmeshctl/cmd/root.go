// Package cmd implements farmeshctl's cobra command tree: a root command
// with a persistent --config flag plus load, run, and bench subcommands,
// following the shape of junjiewwang-perf-analysis/cmd/cli/cmd/root.go.
package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/farmesh/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "farmeshctl",
	Short: "Operate the farmesh distributed edge-processing engine",
	Long: `farmeshctl loads edge lists into a farmesh Engine, runs canned
algorithms over them, and benchmarks cache and partition behavior.`,
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		cfg = config.New()
		if cfgFile != "" {
			if err := cfg.LoadFromFile(cfgFile); err != nil {
				return err
			}
		}
		logger = cfg.CreateLogger()
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML/TOML/JSON config file")
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(benchCmd)
}
