package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd(configPath *string) *cobra.Command {
	var historyLimit int
	var windowDays int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent batch history, open non-conformances and a verdict summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, cleanup, err := buildPipeline(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := p.Status(cmd.Context(), historyLimit, time.Duration(windowDays)*24*time.Hour)
			if err != nil {
				return fatalError("status failed", err)
			}

			fmt.Println("Recent batches:")
			for _, b := range report.RecentBatches {
				fmt.Printf("  #%-6d %-12s %-10s files=%d\n", b.ID, b.Status, b.CreatedAt.Format("2006-01-02 15:04"), b.FileCount)
			}
			fmt.Println("Active non-conformances:")
			for _, nc := range report.ActiveNonConformances {
				fmt.Printf("  %-28s asset=%-12s metric=%s\n", nc.EventID, nc.AssetTag, nc.Variable)
			}
			fmt.Printf("Reconciliation verdicts (last %d days):\n", windowDays)
			for verdict, count := range report.VerdictCounts {
				fmt.Printf("  %-16s %d\n", verdict, count)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&historyLimit, "history", 20, "number of recent batches to show")
	cmd.Flags().IntVar(&windowDays, "window-days", 30, "trailing window in days for the verdict summary")
	return cmd
}
