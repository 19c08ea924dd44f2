// Package analyzer implements the Operational Limits Analyzer (SPEC_FULL.md
// "added: Operational Limits Analyzer"), grounded on original_source's
// daily_analyzer.py: a per-(asset, business_date) sweep of BSW, gas-balance
// closure, production variation and missing-data checks against an
// overridable OperationalLimit table, run after the Reconciler/Cross-
// validator have produced their verdicts for that key so it never races
// them. It only emits Alert values; it never escalates to NonConformance.
package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/oilfield/sgmfm/internal/domain"
	"github.com/oilfield/sgmfm/internal/store"
)

// Analyzer runs the checks of SPEC_FULL.md's Operational Limits Analyzer
// section against a configurable limit table (defaults mirror the original's
// hardcoded constants).
type Analyzer struct {
	store  store.Store
	limits map[string]domain.OperationalLimit
}

func New(st store.Store) *Analyzer {
	return &Analyzer{store: st, limits: domain.DefaultOperationalLimits()}
}

// WithLimits overrides the limit table, e.g. from a config-loaded override.
func (a *Analyzer) WithLimits(limits map[string]domain.OperationalLimit) *Analyzer {
	a.limits = limits
	return a
}

func (a *Analyzer) limit(parameter string, warningFallback, criticalFallback float64) (warning, critical float64) {
	if l, ok := a.limits[parameter]; ok {
		return l.Warning, l.Critical
	}
	return warningFallback, criticalFallback
}

// AnalyzeDay runs the BSW, gas-balance and production-variation checks for
// one (asset, business_date). gasBalances are the day's gas-balance sheets
// as passed through by the Canonicalizer (spec §4.D: not a Fact grain, so
// not fetched back out of the Store).
func (a *Analyzer) AnalyzeDay(ctx context.Context, assetTag string, businessDate time.Time, gasBalances []*domain.GasBalanceRecord) ([]domain.Alert, error) {
	var alerts []domain.Alert

	bswAlert, err := a.checkBSW(ctx, assetTag, businessDate)
	if err != nil {
		return nil, err
	}
	if bswAlert != nil {
		alerts = append(alerts, *bswAlert)
	}

	for _, gb := range gasBalances {
		if gb.AssetTag != assetTag {
			continue
		}
		if alert := a.checkGasBalance(assetTag, businessDate, gb); alert != nil {
			alerts = append(alerts, *alert)
		}
	}

	variationAlerts, err := a.checkProductionVariation(ctx, assetTag, businessDate)
	if err != nil {
		return nil, err
	}
	alerts = append(alerts, variationAlerts...)

	for i := range alerts {
		if err := a.store.InsertAlert(ctx, alerts[i]); err != nil {
			return nil, err
		}
	}
	return alerts, nil
}

// checkBSW computes water-cut as the corrected-mass water/total ratio of the
// DAILY fact (spec: "water / total phase mass ratio").
func (a *Analyzer) checkBSW(ctx context.Context, assetTag string, businessDate time.Time) (*domain.Alert, error) {
	daily, _, err := a.store.ProductionFactsForDate(ctx, assetTag, businessDate)
	if err != nil {
		return nil, err
	}
	if daily == nil {
		return nil, nil
	}
	water, wok := daily.Metric(domain.BankCorrectedMass, domain.PhaseWater)
	total, tok := daily.Metric(domain.BankCorrectedMass, domain.PhaseTotal)
	if !wok || !tok || total == 0 {
		return nil, nil
	}
	bsw := water / total * 100

	warning, critical := a.limit("BSW", 30, 50)
	switch {
	case bsw >= critical:
		return &domain.Alert{
			Type: domain.AlertBSWHigh, Severity: domain.SeverityCritical,
			AssetTag: assetTag, BusinessDate: businessDate, Parameter: "BSW",
			CurrentValue: bsw, LimitValue: critical, Unit: "%",
			Message: fmt.Sprintf("BSW critical on %s: %.1f%% (limit %.0f%%)", assetTag, bsw, critical),
		}, nil
	case bsw >= warning:
		return &domain.Alert{
			Type: domain.AlertBSWHigh, Severity: domain.SeverityWarning,
			AssetTag: assetTag, BusinessDate: businessDate, Parameter: "BSW",
			CurrentValue: bsw, LimitValue: warning, Unit: "%",
			Message: fmt.Sprintf("BSW elevated on %s: %.1f%% (warning %.0f%%)", assetTag, bsw, warning),
		}, nil
	}
	return nil, nil
}

// checkGasBalance sums entradas (sign "+") minus saidas (sign "-") and
// compares against the declared TOTAL row, same arithmetic as the original's
// _check_gas_balance.
func (a *Analyzer) checkGasBalance(assetTag string, businessDate time.Time, gb *domain.GasBalanceRecord) *domain.Alert {
	var entradas, saidas float64
	var declared *float64
	for _, row := range gb.Rows {
		if row.PD == nil {
			continue
		}
		switch row.Sign {
		case "+":
			entradas += *row.PD
		case "-":
			saidas += *row.PD
		case "TOTAL":
			v := *row.PD
			declared = &v
		}
	}
	if entradas == 0 && saidas == 0 {
		return nil
	}
	calculado := entradas - saidas
	if declared == nil {
		v := calculado
		declared = &v
	}
	var diffPct float64
	if calculado != 0 {
		diffPct = absF(calculado-*declared) / absF(calculado) * 100
	}

	warning, critical := a.limit("GAS_BALANCE", 1, 2)
	switch {
	case diffPct >= critical:
		return &domain.Alert{
			Type: domain.AlertGasBalanceError, Severity: domain.SeverityCritical,
			AssetTag: assetTag, BusinessDate: businessDate, Parameter: "GAS_BALANCE",
			CurrentValue: diffPct, LimitValue: critical, Unit: "%",
			Message: fmt.Sprintf("gas balance critical discrepancy on %s: %.2f%%", assetTag, diffPct),
		}
	case diffPct >= warning:
		return &domain.Alert{
			Type: domain.AlertGasBalanceError, Severity: domain.SeverityWarning,
			AssetTag: assetTag, BusinessDate: businessDate, Parameter: "GAS_BALANCE",
			CurrentValue: diffPct, LimitValue: warning, Unit: "%",
			Message: fmt.Sprintf("gas balance discrepancy on %s: %.2f%%", assetTag, diffPct),
		}
	}
	return nil
}

// checkProductionVariation compares every DAILY volume-bank metric against
// the same asset's prior business day, same join key (meter, metric) as the
// original's _check_production_variation.
func (a *Analyzer) checkProductionVariation(ctx context.Context, assetTag string, businessDate time.Time) ([]domain.Alert, error) {
	today, _, err := a.store.ProductionFactsForDate(ctx, assetTag, businessDate)
	if err != nil {
		return nil, err
	}
	if today == nil {
		return nil, nil
	}
	yesterday, _, err := a.store.ProductionFactsForDate(ctx, assetTag, businessDate.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}
	if yesterday == nil {
		return nil, nil
	}

	warning, critical := a.limit("PRODUCTION_VARIATION", 15, 25)
	var alerts []domain.Alert
	for metric, curVal := range today.Metrics {
		if !isVolumeMetric(metric) {
			continue
		}
		prevVal, ok := yesterday.Metrics[metric]
		if !ok || prevVal <= 0 {
			continue
		}
		variation := absF(curVal-prevVal) / prevVal * 100
		switch {
		case variation >= critical:
			alerts = append(alerts, domain.Alert{
				Type: domain.AlertProductionVariation, Severity: domain.SeverityCritical,
				AssetTag: assetTag, BusinessDate: businessDate, Parameter: metric,
				CurrentValue: variation, LimitValue: critical, Unit: "%",
				Message: fmt.Sprintf("critical production variation on %s/%s: %.1f%%", assetTag, metric, variation),
			})
		case variation >= warning:
			alerts = append(alerts, domain.Alert{
				Type: domain.AlertProductionVariation, Severity: domain.SeverityWarning,
				AssetTag: assetTag, BusinessDate: businessDate, Parameter: metric,
				CurrentValue: variation, LimitValue: warning, Unit: "%",
				Message: fmt.Sprintf("production variation on %s/%s: %.1f%%", assetTag, metric, variation),
			})
		}
	}
	return alerts, nil
}

func isVolumeMetric(metricKey string) bool {
	return len(metricKey) > 4 && metricKey[len(metricKey)-4:] == "_sm3"
}

// CheckMissingData sweeps every known asset for businessDate and alerts on
// any with no ProductionFact row at all, mirroring the original's
// _check_missing_data "active meter with no measurement" query. Run once per
// batch over the full asset list rather than per affected (asset, date) pair.
func (a *Analyzer) CheckMissingData(ctx context.Context, businessDate time.Time) ([]domain.Alert, error) {
	assets, err := a.store.ListAssets(ctx)
	if err != nil {
		return nil, err
	}
	var alerts []domain.Alert
	for _, asset := range assets {
		daily, hourlies, err := a.store.ProductionFactsForDate(ctx, asset.Tag, businessDate)
		if err != nil {
			return nil, err
		}
		if daily != nil || len(hourlies) > 0 {
			continue
		}
		alert := domain.Alert{
			Type: domain.AlertMissingData, Severity: domain.SeverityWarning,
			AssetTag: asset.Tag, BusinessDate: businessDate, Parameter: "DATA",
			CurrentValue: 0, LimitValue: 1, Unit: "",
			Message: fmt.Sprintf("no data for asset %s (%s)", asset.Tag, asset.Kind),
		}
		if err := a.store.InsertAlert(ctx, alert); err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

func absF(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
