package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcoury/aish/internal/config"
	"github.com/rcoury/aish/internal/journal"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs from the journal",
		Long: `Show recent runs recorded in the execution journal, newest first.

The journal is append-only: aish writes to it during runs but never
consults it when planning.`,
		Args: cobra.NoArgs,
		RunE: historyCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: ~/.aish/config.yaml)")
	cmd.Flags().IntP("limit", "n", 20, "Number of runs to show")

	return cmd
}

func historyCommand(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if !cfg.Journal.Enabled {
		return fmt.Errorf("journal is disabled in configuration")
	}

	jnl, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer jnl.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := jnl.RecentRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no recorded runs")
		return nil
	}

	out := cmd.OutOrStdout()
	for _, run := range runs {
		duration := ""
		if run.Finished.Valid {
			duration = run.Finished.Time.Sub(run.Started).Round(time.Second).String()
		}
		fmt.Fprintf(out, "%s  %-9s  %-12s  %2d steps  %6s  %s\n",
			run.Started.Format("2006-01-02 15:04"),
			run.Status, run.Target, run.Steps, duration, run.Task)
	}
	return nil
}
