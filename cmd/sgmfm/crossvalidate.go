package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newCrossValidateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cross-validate <date-range>",
		Short: "Re-run cross-source validation over a date range for every known asset",
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

			results, err := p.CrossValidateRange(cmd.Context(), from, to)
			if err != nil {
				return fatalError("cross-validation failed", err)
			}
			escalated := 0
			for _, r := range results {
				escalated += len(r.NonConformances)
				fmt.Printf("%-12s %-10s metrics=%d escalations=%d\n", r.AssetTag, r.BusinessDate.Format("2006-01-02"), len(r.Verdicts), len(r.NonConformances))
			}
			log.Info().Int("asset_days", len(results)).Int("escalations", escalated).Msg("cross-validate completed")
			return nil
		},
	}
}
