package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oilfield/sgmfm/internal/config"
	"github.com/oilfield/sgmfm/internal/domain"
	"github.com/oilfield/sgmfm/internal/metrics"
	"github.com/oilfield/sgmfm/internal/store"
)

func newTestPipelineWithStore() (*Pipeline, store.Store) {
	st := store.NewMemStore()
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	return New(config.Default(), st, nil, reg), st
}

func TestReconcileRange_SweepsEveryKnownAssetAndDay(t *testing.T) {
	p, st := newTestPipelineWithStore()
	ctx := context.Background()
	businessDate := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	metric := domain.MetricKey(domain.BankCorrectedMass, domain.PhaseOil)

	_, _, err := st.UpsertAsset(ctx, domain.Asset{Tag: "13FT0367", Kind: domain.AssetTopside})
	require.NoError(t, err)
	require.NoError(t, st.UpsertProductionFact(ctx, domain.ProductionFact{
		AssetTag: "13FT0367", ReportType: domain.ReportDaily,
		PeriodStart: businessDate, PeriodEnd: businessDate.Add(24 * time.Hour),
		BusinessDate: businessDate, Metrics: map[string]float64{metric: 100},
	}))

	results, err := p.ReconcileRange(ctx, businessDate, businessDate.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, results, 2) // one asset, two days in range
	assert.Equal(t, domain.VerdictMissingHourly, results[0].Overall)
}

func TestCrossValidateRange_NoSourcesIsNoData(t *testing.T) {
	p, st := newTestPipelineWithStore()
	ctx := context.Background()
	businessDate := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	_, _, err := st.UpsertAsset(ctx, domain.Asset{Tag: "13FT0367", Kind: domain.AssetTopside})
	require.NoError(t, err)

	results, err := p.CrossValidateRange(ctx, businessDate, businessDate)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "13FT0367", results[0].AssetTag)
	assert.Equal(t, len(domain.ReconciledMetrics()), len(results[0].Verdicts))
	for _, v := range results[0].Verdicts {
		assert.Equal(t, domain.CrossNoData, v.Classification)
	}
}

func TestStatus_ReflectsBatchHistoryAndVerdictSummary(t *testing.T) {
	p, st := newTestPipelineWithStore()
	ctx := context.Background()

	_, err := st.CreateBatch(ctx, domain.Batch{Name: "b1", FileCount: 1, Status: domain.BatchCompleted})
	require.NoError(t, err)

	report, err := p.Status(ctx, 10, 30*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, report.RecentBatches, 1)
	assert.Equal(t, "b1", report.RecentBatches[0].Name)
	assert.Empty(t, report.ActiveNonConformances)
}
