// Package reconcile implements the Reconciler (spec §4.E): for a touched
// (asset, business_date), sums each declared metric across the day's HOURLY
// ProductionFacts and compares it against the DAILY fact within a composite
// absolute/relative tolerance, replacing prior verdicts for that key.
package reconcile

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/oilfield/sgmfm/internal/domain"
	"github.com/oilfield/sgmfm/internal/store"
)

// Tolerance is the per-metric-class absolute/relative pair (spec §4.E).
type Tolerance struct {
	Abs float64
	Pct float64
}

var (
	defaultMassTolerance   = Tolerance{Abs: 0.5, Pct: 0.005}
	defaultVolumeTolerance = Tolerance{Abs: 1.0, Pct: 0.005}
)

const epsilon = 1e-6

type Reconciler struct {
	store       store.Store
	toleranceOf func(metric string) Tolerance
}

// New builds a Reconciler using the built-in mass/volume tolerance defaults.
// Pass a custom toleranceOf to apply configuration overrides (spec §6
// reconciliation.tolerances).
func New(st store.Store) *Reconciler {
	return &Reconciler{store: st, toleranceOf: defaultToleranceOf}
}

// WithToleranceFunc overrides the per-metric tolerance lookup.
func (r *Reconciler) WithToleranceFunc(f func(metric string) Tolerance) *Reconciler {
	r.toleranceOf = f
	return r
}

func defaultToleranceOf(metric string) Tolerance {
	if strings.HasSuffix(metric, "_sm3") {
		return defaultVolumeTolerance
	}
	return defaultMassTolerance
}

// Reconcile runs the full declared metric list for one (asset, business_date)
// and replaces the prior verdict set for that key.
func (r *Reconciler) Reconcile(ctx context.Context, assetTag string, businessDate time.Time) ([]domain.ReconciliationVerdict, domain.Verdict, error) {
	daily, hourlies, err := r.store.ProductionFactsForDate(ctx, assetTag, businessDate)
	if err != nil {
		return nil, "", err
	}

	var verdicts []domain.ReconciliationVerdict
	overall := domain.Verdict("")

	for _, metric := range domain.ReconciledMetrics() {
		v := r.reconcileMetric(assetTag, businessDate, metric, daily, hourlies)
		if v == nil {
			continue
		}
		verdicts = append(verdicts, *v)
		if overall == "" {
			overall = v.Verdict
		} else {
			overall = domain.WorstVerdict(overall, v.Verdict)
		}
	}

	if err := r.store.ReplaceReconciliationVerdicts(ctx, assetTag, businessDate, verdicts); err != nil {
		return nil, "", err
	}
	return verdicts, overall, nil
}

// reconcileMetric returns nil when both sides are absent (the metric is
// skipped entirely per spec §4.E degenerate case).
func (r *Reconciler) reconcileMetric(assetTag string, businessDate time.Time, metric string, daily *domain.ProductionFact, hourlies []domain.ProductionFact) *domain.ReconciliationVerdict {
	var dailyValue *float64
	if daily != nil {
		if v, ok := daily.Metrics[metric]; ok {
			dv := v
			dailyValue = &dv
		}
	}

	var sum float64
	found := false
	for _, h := range hourlies {
		if v, ok := h.Metrics[metric]; ok {
			sum += v
			found = true
		}
	}
	var sumValue *float64
	if found {
		sv := sum
		sumValue = &sv
	}

	if dailyValue == nil && sumValue == nil {
		return nil
	}

	v := &domain.ReconciliationVerdict{
		AssetTag:       assetTag,
		BusinessDate:   businessDate,
		Metric:         metric,
		DailyValue:     dailyValue,
		SumHourlyValue: sumValue,
		ComputedAt:     time.Now(),
	}

	switch {
	case dailyValue == nil:
		v.Verdict = domain.VerdictMissingDaily
		return v
	case sumValue == nil:
		v.Verdict = domain.VerdictMissingHourly
		return v
	}

	tol := r.toleranceOf(metric)
	absDelta := math.Abs(*dailyValue - *sumValue)
	var pctDelta float64
	if math.Abs(*dailyValue) > epsilon {
		pctDelta = absDelta / math.Abs(*dailyValue)
	} else if absDelta > tol.Abs {
		pctDelta = 1.0
	}

	v.AbsDelta = absDelta
	v.RelDelta = pctDelta

	switch {
	case absDelta <= tol.Abs && pctDelta <= tol.Pct:
		v.Verdict = domain.VerdictPass
	case absDelta <= 2*tol.Abs:
		v.Verdict = domain.VerdictWarn
	default:
		v.Verdict = domain.VerdictFail
	}
	return v
}
