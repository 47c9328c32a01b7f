package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nvandessel/seird/internal/store"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs, or the days of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			db, _ := cmd.Flags().GetString("db")
			if db == "" {
				db = cfg.Storage.Path
			}
			if db == "" {
				if db, err = store.DefaultDBPath(); err != nil {
					return err
				}
			}

			st, err := store.NewSQLiteHistoryStore(db)
			if err != nil {
				return fmt.Errorf("failed to open history store: %w", err)
			}
			defer st.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				days, err := st.Days(ctx, args[0])
				if err != nil {
					return err
				}
				if jsonOut {
					return store.WriteDaysJSONL(out, days)
				}
				for _, d := range days {
					fmt.Fprintln(out, d.String())
				}
				return nil
			}

			runs, err := st.ListRuns(ctx)
			if err != nil {
				return err
			}
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]any{"runs": runs, "count": len(runs)})
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTARTED\tTOPOLOGY\tPOPULATION\tSEED")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"),
					valueOrDefault(r.Topology, "small-world"), r.Population, r.Seed)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().String("db", "", "SQLite history database (default storage.path or ~/.seird/history.db)")
	return cmd
}

func valueOrDefault(val, def string) string {
	if val == "" {
		return def
	}
	return val
}
