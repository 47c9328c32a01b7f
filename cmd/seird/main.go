package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/seird/internal/config"
	"github.com/nvandessel/seird/internal/logging"
	"github.com/nvandessel/seird/internal/session"
	"github.com/nvandessel/seird/internal/store"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "seird",
		Short: "SEIRD epidemic simulation over contact networks",
		Long: `seird simulates the day-by-day spread of an infectious disease over a
weighted contact network using a five-state Susceptible, Exposed,
Infected, Recovered, Dead model.

Run it headless with 'seird run', serve it to a browser client with
'seird serve', or drive it from an AI agent with 'seird mcp-server'.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.seird/config.yaml)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(),
		newRunCmd(),
		newGenerateCmd(),
		newHistoryCmd(),
		newMCPServerCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

// loadConfig loads and validates the configuration named by --config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newController wires a controller with the configured logger, day trace
// and history store. The returned cleanup closes the trace and the store.
func newController(cfg *config.Config, history store.HistoryStore, logOut io.Writer) (*session.Controller, *slog.Logger, func()) {
	logger := logging.NewLogger(cfg.Logging.Level, logOut)
	dayLog := logging.NewDayLogger(cfg.Storage.DataDir, cfg.Logging.Level)

	ctrl := session.New(cfg.Session(),
		session.WithLogger(logger),
		session.WithDayLogger(dayLog),
		session.WithHistory(history),
	)
	cleanup := func() {
		if err := dayLog.Close(); err != nil {
			logger.Warn("closing day trace", "error", err)
		}
		if err := history.Close(); err != nil {
			logger.Warn("closing history store", "error", err)
		}
	}
	return ctrl, logger, cleanup
}
