package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chainforge/internal/history"
)

var historyLimit int

// historyCmd lists recent invocations
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent chain invocations",
	Long: `Reads the invocation history store and prints the most recent runs.
Requires history to be enabled in the config.`,
	RunE: showHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to show")
}

func showHistory(cmd *cobra.Command, args []string) error {
	if !cfg.History.Enabled {
		return fmt.Errorf("history is disabled; set history.enabled: true in %s", configPath)
	}

	store, err := history.Open(cfg.History.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println(faintStyle.Render("no recorded runs"))
		return nil
	}

	for _, run := range runs {
		status := successStyle.Render(run.Status)
		if run.Status != "ok" {
			status = errorStyle.Render(run.Status)
			if run.FailedStep != "" {
				status += faintStyle.Render(" @" + run.FailedStep)
			}
		}
		fmt.Printf("%s  %-24s %s  %s\n",
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			run.Chain, status,
			faintStyle.Render(run.Duration.String()))
	}
	return nil
}
