package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/broker/dispatcher"
	"github.com/tailored-agentic-units/broker/observability"
)

var (
	configFile string
	verbose    bool
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Serve and call action dispatchers",
	Long: `dispatch runs a demo action broker over connect and calls remote
dispatchers from the command line.

Dispatcher options come from --config (JSON) and DISPATCH_* environment
variables, in that order.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to dispatcher config JSON file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging to stderr")

	rootCmd.AddCommand(serveCmd, callCmd, actionsCmd)
}

// loadOptions resolves dispatcher options from the config file and the
// environment.
func loadOptions() ([]dispatcher.Option, error) {
	observability.RegisterObserver("slog", observability.NewSlogObserver(logger))

	cfg := dispatcher.DefaultConfig()
	if configFile != "" {
		loaded, err := dispatcher.LoadConfig(configFile)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	if err := cfg.ParseEnv(); err != nil {
		return nil, err
	}

	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	return append(opts, dispatcher.WithLogger(logger)), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
