package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oilfield/sgmfm/internal/domain"
	"github.com/oilfield/sgmfm/internal/store"
)

const assetTag = "13FT0367"

func seedDay(t *testing.T, st store.Store, businessDate time.Time, dailyValue *float64, hourlyValues []float64) {
	t.Helper()
	ctx := context.Background()
	metric := domain.MetricKey(domain.BankCorrectedMass, domain.PhaseOil)

	if dailyValue != nil {
		daily := domain.ProductionFact{
			AssetTag:     assetTag,
			ReportType:   domain.ReportDaily,
			PeriodStart:  businessDate,
			PeriodEnd:    businessDate.Add(24 * time.Hour),
			BusinessDate: businessDate,
			Metrics:      map[string]float64{metric: *dailyValue},
		}
		require.NoError(t, st.UpsertProductionFact(ctx, daily))
	}
	for i, v := range hourlyValues {
		periodEnd := businessDate.Add(time.Duration(i+1) * time.Hour)
		hourly := domain.ProductionFact{
			AssetTag:     assetTag,
			ReportType:   domain.ReportHourly,
			PeriodStart:  periodEnd.Add(-time.Hour),
			PeriodEnd:    periodEnd,
			BusinessDate: businessDate,
			Metrics:      map[string]float64{metric: v},
		}
		require.NoError(t, st.UpsertProductionFact(ctx, hourly))
	}
}

func findVerdict(verdicts []domain.ReconciliationVerdict, metric string) *domain.ReconciliationVerdict {
	for _, v := range verdicts {
		if v.Metric == metric {
			return &v
		}
	}
	return nil
}

func TestReconcile_PassWithinTolerance(t *testing.T) {
	st := store.NewMemStore()
	r := New(st)
	businessDate := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	daily := 100.0
	hourlies := make([]float64, 24)
	hourlies[0] = 99.8
	seedDay(t, st, businessDate, &daily, hourlies)

	verdicts, overall, err := r.Reconcile(context.Background(), assetTag, businessDate)
	require.NoError(t, err)

	v := findVerdict(verdicts, domain.MetricKey(domain.BankCorrectedMass, domain.PhaseOil))
	require.NotNil(t, v)
	assert.Equal(t, domain.VerdictPass, v.Verdict)
	assert.InDelta(t, 0.2, v.AbsDelta, 1e-9)
	assert.Equal(t, domain.VerdictPass, overall)
}

func TestReconcile_WarnBeyondAbsTolerance(t *testing.T) {
	st := store.NewMemStore()
	r := New(st)
	businessDate := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	daily := 100.0
	hourlies := make([]float64, 24)
	hourlies[0] = 99.4 // abs delta 0.6 > tau_abs(0.5), <= 2*tau_abs(1.0)
	seedDay(t, st, businessDate, &daily, hourlies)

	verdicts, _, err := r.Reconcile(context.Background(), assetTag, businessDate)
	require.NoError(t, err)
	v := findVerdict(verdicts, domain.MetricKey(domain.BankCorrectedMass, domain.PhaseOil))
	require.NotNil(t, v)
	assert.Equal(t, domain.VerdictWarn, v.Verdict)
}

func TestReconcile_FailBeyondDoubleAbsTolerance(t *testing.T) {
	st := store.NewMemStore()
	r := New(st)
	businessDate := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	daily := 100.0
	hourlies := make([]float64, 24)
	hourlies[0] = 95.0 // abs delta 5.0 > 2*tau_abs
	seedDay(t, st, businessDate, &daily, hourlies)

	verdicts, overall, err := r.Reconcile(context.Background(), assetTag, businessDate)
	require.NoError(t, err)
	v := findVerdict(verdicts, domain.MetricKey(domain.BankCorrectedMass, domain.PhaseOil))
	require.NotNil(t, v)
	assert.Equal(t, domain.VerdictFail, v.Verdict)
	assert.Equal(t, domain.VerdictFail, overall)
}

func TestReconcile_MissingDailyAndMissingHourly(t *testing.T) {
	st := store.NewMemStore()
	r := New(st)
	businessDate := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	daily := 100.0
	seedDay(t, st, businessDate, &daily, nil)

	verdicts, _, err := r.Reconcile(context.Background(), assetTag, businessDate)
	require.NoError(t, err)
	v := findVerdict(verdicts, domain.MetricKey(domain.BankCorrectedMass, domain.PhaseOil))
	require.NotNil(t, v)
	assert.Equal(t, domain.VerdictMissingHourly, v.Verdict)

	businessDate2 := businessDate.AddDate(0, 0, 1)
	seedDay(t, st, businessDate2, nil, []float64{1, 2, 3})
	verdicts2, _, err := r.Reconcile(context.Background(), assetTag, businessDate2)
	require.NoError(t, err)
	v2 := findVerdict(verdicts2, domain.MetricKey(domain.BankCorrectedMass, domain.PhaseOil))
	require.NotNil(t, v2)
	assert.Equal(t, domain.VerdictMissingDaily, v2.Verdict)
}

func TestReconcile_ReplacesStaleVerdictsOnRerun(t *testing.T) {
	st := store.NewMemStore()
	r := New(st)
	businessDate := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	daily := 100.0
	seedDay(t, st, businessDate, &daily, []float64{50})
	verdicts1, _, err := r.Reconcile(context.Background(), assetTag, businessDate)
	require.NoError(t, err)
	v1 := findVerdict(verdicts1, domain.MetricKey(domain.BankCorrectedMass, domain.PhaseOil))
	require.Equal(t, domain.VerdictFail, v1.Verdict)

	seedDay(t, st, businessDate, nil, []float64{99.9})
	verdicts2, _, err := r.Reconcile(context.Background(), assetTag, businessDate)
	require.NoError(t, err)
	v2 := findVerdict(verdicts2, domain.MetricKey(domain.BankCorrectedMass, domain.PhaseOil))
	require.NotNil(t, v2)
	assert.Equal(t, domain.VerdictPass, v2.Verdict)
}
