package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/oilfield/sgmfm/internal/domain"
)

func newIngestCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <path>",
		Short: "Ingest a file, directory, or batch archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, cleanup, err := buildPipeline(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := p.IngestPath(cmd.Context(), args[0])
			if err != nil {
				return fatalError("ingest failed", err)
			}

			failedFiles := 0
			for _, f := range summary.Files {
				if f.Status == domain.ParseFailed {
					failedFiles++
				}
				fmt.Printf("%-40s %-28s %-10s records=%d\n", f.Filename, f.Shape, f.Status, f.RecordCount)
			}
			for _, d := range summary.Days {
				fmt.Printf("%-12s %-10s reconciliation=%-16s cross=%d nonconformances=%d alerts=%d\n",
					d.AssetTag, d.BusinessDate.Format("2006-01-02"), d.Reconciliation,
					len(d.CrossVerdicts), len(d.NonConformances), len(d.Alerts))
			}
			log.Info().Str("status", string(summary.Status)).Int("files", len(summary.Files)).Int("days", len(summary.Days)).Msg("ingest completed")

			switch {
			case summary.Status == domain.BatchFailed:
				return fatalError("batch failed: no file succeeded", nil)
			case summary.Status == domain.BatchCancelled:
				return fatalError("batch cancelled", nil)
			case failedFiles > 0:
				return &cliError{code: exitPartial, msg: fmt.Sprintf("%d of %d files failed", failedFiles, len(summary.Files))}
			}
			return nil
		},
	}
	return cmd
}
