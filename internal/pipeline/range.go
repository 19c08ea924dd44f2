package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/oilfield/sgmfm/internal/domain"
)

// ReconcileResult is one asset/day's reconciliation outcome for the
// `reconcile <date-range>` command surface (spec §6), run independently of
// ingestion against whatever facts are already in the Store.
type ReconcileResult struct {
	AssetTag     string
	BusinessDate time.Time
	Verdicts     []domain.ReconciliationVerdict
	Overall      domain.Verdict
}

// CrossValidateResult is one asset/day's cross-validation outcome for the
// `cross-validate <date-range>` command surface.
type CrossValidateResult struct {
	AssetTag        string
	BusinessDate    time.Time
	Verdicts        []domain.CrossVerdict
	NonConformances []domain.NonConformance
}

// StatusReport backs the `status` command surface: recent batch history,
// currently open non-conformances and a verdict-count summary over the
// trailing window.
type StatusReport struct {
	RecentBatches         []domain.Batch
	ActiveNonConformances []domain.NonConformance
	VerdictCounts         map[domain.Verdict]int
}

func dateRange(from, to time.Time) []time.Time {
	var dates []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// ReconcileRange runs the Reconciler alone (no cross-validation, no
// analysis) over every known asset for each day in [from, to], inclusive.
func (p *Pipeline) ReconcileRange(ctx context.Context, from, to time.Time) ([]ReconcileResult, error) {
	assets, err := p.st.ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: listing assets: %w", err)
	}
	var results []ReconcileResult
	for _, asset := range assets {
		for _, date := range dateRange(from, to) {
			verdicts, overall, err := p.reconciler.Reconcile(ctx, asset.Tag, date)
			if err != nil {
				return nil, fmt.Errorf("pipeline: reconciling %s/%s: %w", asset.Tag, date.Format("2006-01-02"), err)
			}
			p.metrics.ReconciliationVerdicts.WithLabelValues(string(overall)).Inc()
			results = append(results, ReconcileResult{AssetTag: asset.Tag, BusinessDate: date, Verdicts: verdicts, Overall: overall})
		}
	}
	return results, nil
}

// CrossValidateRange runs the Cross-validator alone over every known asset,
// every reconciled metric, for each day in [from, to], inclusive.
func (p *Pipeline) CrossValidateRange(ctx context.Context, from, to time.Time) ([]CrossValidateResult, error) {
	assets, err := p.st.ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: listing assets: %w", err)
	}
	var results []CrossValidateResult
	for _, asset := range assets {
		for _, date := range dateRange(from, to) {
			cr := CrossValidateResult{AssetTag: asset.Tag, BusinessDate: date}
			for _, metric := range domain.ReconciledMetrics() {
				res, err := p.crossValid.Validate(ctx, asset.Tag, date, "DAILY", metric)
				if err != nil {
					return nil, fmt.Errorf("pipeline: cross-validating %s/%s/%s: %w", asset.Tag, date.Format("2006-01-02"), metric, err)
				}
				p.metrics.CrossVerdicts.WithLabelValues(string(res.Verdict.Classification)).Inc()
				cr.Verdicts = append(cr.Verdicts, res.Verdict)
				if res.NonConformance != nil {
					p.metrics.StreaksEscalated.Inc()
					cr.NonConformances = append(cr.NonConformances, *res.NonConformance)
				}
			}
			results = append(results, cr)
		}
	}
	return results, nil
}

// Status assembles the `status` command's read-only summary straight from
// the Store, with no pipeline stage invoked.
func (p *Pipeline) Status(ctx context.Context, historyLimit int, verdictWindow time.Duration) (StatusReport, error) {
	batches, err := p.st.BatchHistory(ctx, historyLimit)
	if err != nil {
		return StatusReport{}, fmt.Errorf("pipeline: batch history: %w", err)
	}
	ncs, err := p.st.ActiveNonConformances(ctx)
	if err != nil {
		return StatusReport{}, fmt.Errorf("pipeline: active non-conformances: %w", err)
	}
	now := time.Now().UTC()
	counts, err := p.st.VerdictSummary(ctx, now.Add(-verdictWindow), now)
	if err != nil {
		return StatusReport{}, fmt.Errorf("pipeline: verdict summary: %w", err)
	}
	return StatusReport{RecentBatches: batches, ActiveNonConformances: ncs, VerdictCounts: counts}, nil
}
