package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/seird/internal/mcp"
	"github.com/nvandessel/seird/internal/store"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve the simulation as MCP tools over stdio",
		Long: `Run an MCP (Model Context Protocol) server on stdin/stdout.

Tools: seird_init, seird_start, seird_step, seird_pause, seird_rewind,
seird_reset, seird_state, seird_history, seird_generate.

Logs go to stderr; tool calls are audited to <data_dir>/audit.jsonl.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			history, err := store.Open(cfg.Storage.Path)
			if err != nil {
				return fmt.Errorf("failed to open history store: %w", err)
			}
			ctrl, logger, cleanup := newController(cfg, history, cmd.ErrOrStderr())
			defer cleanup()

			srv := mcp.NewServer(&mcp.Config{
				Name:     "seird",
				Version:  version,
				AuditDir: cfg.Storage.DataDir,
				Logger:   logger,
			}, ctrl)
			defer srv.Close()

			return srv.Run(cmd.Context())
		},
	}
}
