package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/seird/internal/graph"
	"github.com/nvandessel/seird/internal/models"
	"github.com/nvandessel/seird/internal/network"
	"github.com/nvandessel/seird/internal/session"
	"github.com/nvandessel/seird/internal/store"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation headless and print daily counts",
		Long: `Run a simulation to completion (or for --days days) without a client.

Prints one line per day:
  Day 0: S=488 E=0 I=12 R=0 D=0

With --json the completed days are printed as JSON lines instead. With
--db the run is recorded in that SQLite database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			days, _ := cmd.Flags().GetInt("days")
			graphPath, _ := cmd.Flags().GetString("graph")
			db, _ := cmd.Flags().GetString("db")

			if cmd.Flags().Changed("seed") {
				cfg.Simulation.Seed, _ = cmd.Flags().GetUint64("seed")
			}
			if cmd.Flags().Changed("population") {
				cfg.Network.Population, _ = cmd.Flags().GetInt("population")
			}
			if cmd.Flags().Changed("topology") {
				cfg.Network.Topology, _ = cmd.Flags().GetString("topology")
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid options: %w", err)
			}
			if days < 1 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}

			history, err := store.Open(db)
			if err != nil {
				return fmt.Errorf("failed to open history store: %w", err)
			}
			ctrl, _, cleanup := newController(cfg, history, cmd.ErrOrStderr())
			defer cleanup()

			req := session.InitRequest{Topology: network.Topology(cfg.Network.Topology)}
			if graphPath != "" {
				f, err := os.Open(graphPath)
				if err != nil {
					return fmt.Errorf("failed to open graph: %w", err)
				}
				req.Graph, err = graph.ReadJSON(f)
				f.Close()
				if err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			st, err := ctrl.Init(ctx, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !jsonOut {
				fmt.Fprintln(out, store.NewDayRecord(0, countsOf(st)).String())
			}
			for range days {
				if err := ctx.Err(); err != nil {
					return err
				}
				report, err := ctrl.Step(ctx)
				if err != nil {
					return err
				}
				if !jsonOut {
					fmt.Fprintln(out, store.NewDayRecord(report.Day, report.Counts).String())
				}
				if ctrl.State(false).IsFinished {
					break
				}
			}

			if jsonOut {
				records, err := ctrl.History(ctx)
				if err != nil {
					return err
				}
				return store.WriteDaysJSONL(out, records)
			}
			return nil
		},
	}

	cmd.Flags().Int("days", 100, "Maximum number of days to simulate")
	cmd.Flags().Uint64("seed", 0, "Random seed (0 picks a fresh one)")
	cmd.Flags().Int("population", 0, "Population size (overrides network.population)")
	cmd.Flags().String("topology", "", "Network topology: small-world or modular")
	cmd.Flags().String("graph", "", "Load the network from an exchange JSON file")
	cmd.Flags().String("db", "", "Record the run in this SQLite database")
	return cmd
}

// countsOf converts the wire-coded counts of a state back to StatusCounts.
func countsOf(st session.State) models.StatusCounts {
	var c models.StatusCounts
	for code, n := range st.StatusCounts {
		if s, err := models.ParseStatus(code); err == nil {
			c[s] = n
		}
	}
	return c
}
