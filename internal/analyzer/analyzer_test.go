package analyzer

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

func seedDaily(t *testing.T, st store.Store, businessDate time.Time, metrics map[string]float64) {
	t.Helper()
	require.NoError(t, st.UpsertProductionFact(context.Background(), domain.ProductionFact{
		AssetTag:     assetTag,
		ReportType:   domain.ReportDaily,
		PeriodStart:  businessDate,
		PeriodEnd:    businessDate.Add(24 * time.Hour),
		BusinessDate: businessDate,
		Metrics:      metrics,
	}))
}

func pd(v float64) *float64 { return &v }

func TestAnalyzeDay_BSWCritical(t *testing.T) {
	st := store.NewMemStore()
	a := New(st)
	businessDate := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	seedDaily(t, st, businessDate, map[string]float64{
		domain.MetricKey(domain.BankCorrectedMass, domain.PhaseWater): 60,
		domain.MetricKey(domain.BankCorrectedMass, domain.PhaseTotal): 100,
	})

	alerts, err := a.AnalyzeDay(context.Background(), assetTag, businessDate, nil)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertBSWHigh, alerts[0].Type)
	assert.Equal(t, domain.SeverityCritical, alerts[0].Severity)
	assert.InDelta(t, 60.0, alerts[0].CurrentValue, 1e-9)
}

func TestAnalyzeDay_BSWBelowWarningProducesNoAlert(t *testing.T) {
	st := store.NewMemStore()
	a := New(st)
	businessDate := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	seedDaily(t, st, businessDate, map[string]float64{
		domain.MetricKey(domain.BankCorrectedMass, domain.PhaseWater): 5,
		domain.MetricKey(domain.BankCorrectedMass, domain.PhaseTotal): 100,
	})

	alerts, err := a.AnalyzeDay(context.Background(), assetTag, businessDate, nil)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestAnalyzeDay_GasBalanceClosureError(t *testing.T) {
	st := store.NewMemStore()
	a := New(st)
	businessDate := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	gb := &domain.GasBalanceRecord{
		AssetTag:  assetTag,
		PeriodEnd: businessDate.Add(24 * time.Hour),
		Rows: []domain.GasBalanceRow{
			{Sign: "+", PD: pd(100)},
			{Sign: "-", PD: pd(40)},
			{Sign: "TOTAL", PD: pd(58)}, // calculado=60, declarado=58 -> 3.33% diff
		},
	}

	alerts, err := a.AnalyzeDay(context.Background(), assetTag, businessDate, []*domain.GasBalanceRecord{gb})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertGasBalanceError, alerts[0].Type)
	assert.Equal(t, domain.SeverityCritical, alerts[0].Severity)
}

func TestAnalyzeDay_GasBalanceWithinToleranceProducesNoAlert(t *testing.T) {
	st := store.NewMemStore()
	a := New(st)
	businessDate := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	gb := &domain.GasBalanceRecord{
		AssetTag:  assetTag,
		PeriodEnd: businessDate.Add(24 * time.Hour),
		Rows: []domain.GasBalanceRow{
			{Sign: "+", PD: pd(100)},
			{Sign: "-", PD: pd(40)},
			{Sign: "TOTAL", PD: pd(60)},
		},
	}

	alerts, err := a.AnalyzeDay(context.Background(), assetTag, businessDate, []*domain.GasBalanceRecord{gb})
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestAnalyzeDay_ProductionVariationWarning(t *testing.T) {
	st := store.NewMemStore()
	a := New(st)
	day1 := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	metric := domain.MetricKey(domain.BankPVTRefVolumeStd, domain.PhaseOil)

	seedDaily(t, st, day1, map[string]float64{metric: 100})
	seedDaily(t, st, day2, map[string]float64{metric: 120}) // 20% change

	alerts, err := a.AnalyzeDay(context.Background(), assetTag, day2, nil)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertProductionVariation, alerts[0].Type)
	assert.Equal(t, domain.SeverityWarning, alerts[0].Severity)
	assert.Equal(t, metric, alerts[0].Parameter)
}

func TestAnalyzeDay_ProductionVariationIgnoresNonVolumeMetrics(t *testing.T) {
	st := store.NewMemStore()
	a := New(st)
	day1 := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	massMetric := domain.MetricKey(domain.BankCorrectedMass, domain.PhaseOil)

	seedDaily(t, st, day1, map[string]float64{massMetric: 100})
	seedDaily(t, st, day2, map[string]float64{massMetric: 200}) // would be 100% if counted

	alerts, err := a.AnalyzeDay(context.Background(), assetTag, day2, nil)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestCheckMissingData(t *testing.T) {
	st := store.NewMemStore()
	a := New(st)
	businessDate := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	_, _, err := st.UpsertAsset(context.Background(), domain.Asset{Tag: "REPORTING", Kind: domain.AssetTopside})
	require.NoError(t, err)
	_, _, err = st.UpsertAsset(context.Background(), domain.Asset{Tag: "SILENT", Kind: domain.AssetTopside})
	require.NoError(t, err)
	seedDaily(t, &reportingStore{Store: st, tag: "REPORTING"}, businessDate, map[string]float64{"x": 1})

	alerts, err := a.CheckMissingData(context.Background(), businessDate)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "SILENT", alerts[0].AssetTag)
	assert.Equal(t, domain.AlertMissingData, alerts[0].Type)
}

// reportingStore lets seedDaily target an asset tag other than the package
// constant without duplicating the helper.
type reportingStore struct {
	store.Store
	tag string
}

func (r *reportingStore) UpsertProductionFact(ctx context.Context, f domain.ProductionFact) error {
	f.AssetTag = r.tag
	return r.Store.UpsertProductionFact(ctx, f)
}
