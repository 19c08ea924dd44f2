package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newReconcileCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <date-range>",
		Short: "Re-run daily/hourly reconciliation over a date range for every known asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := parseDateRange(args[0])
			if err != nil {
				return configError("parsing date range", err)
			}

			p, cleanup, err := buildPipeline(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			results, err := p.ReconcileRange(cmd.Context(), from, to)
			if err != nil {
				return fatalError("reconciliation failed", err)
			}
			for _, r := range results {
				fmt.Printf("%-12s %-10s %-16s metrics=%d\n", r.AssetTag, r.BusinessDate.Format("2006-01-02"), r.Overall, len(r.Verdicts))
			}
			log.Info().Int("asset_days", len(results)).Msg("reconcile completed")
			return nil
		},
	}
}
