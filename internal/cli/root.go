// Package cli provides the command-line interface for the hedge simulator.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"TailHedge/internal/collector"
	"TailHedge/internal/config"
	"TailHedge/internal/logging"
	"TailHedge/internal/metrics"
)

// Version information
const Version = "0.1.0"

const defaultConfigPath = "configs/config.yaml"

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	// Upstream replaces the Yahoo fetcher when set.
	Upstream collector.Fetcher
	// Metrics is set by serve; other commands run without it.
	Metrics *metrics.Metrics
}

// NewRootCmd creates the root command for the CLI. Configuration is loaded
// before any subcommand runs.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hedge",
		Short: "Tail-risk hedge simulator",
		Long: `hedge simulates a portfolio protected by out-of-the-money put options.

It builds market scenarios from Yahoo Finance data, falling back to cached and
then synthetic data when the upstream is unavailable, and reports how the
hedged portfolio compares with an unhedged one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.Config == nil {
				path, _ := cmd.Flags().GetString("config")
				cfg, err := config.Load(path)
				if err != nil {
					return err
				}
				app.Config = cfg
				app.Logger = logging.New(cfg.Logging)
			}
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	configPath := defaultConfigPath
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		configPath = v
	}
	rootCmd.PersistentFlags().String("config", configPath, "config file path (env CONFIG_PATH)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newScenarioCmd(app))
	rootCmd.AddCommand(newCompareCmd(app))
	rootCmd.AddCommand(newServeCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hedge v%s\n", Version)
		},
	}
}
