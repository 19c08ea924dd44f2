package canon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oilfield/sgmfm/internal/domain"
	"github.com/oilfield/sgmfm/internal/store"
)

func TestCanonicalize_MPFMProduction(t *testing.T) {
	st := store.NewMemStore()
	c := New(st)

	periodEnd := time.Date(2026, 3, 4, 6, 0, 0, 0, time.UTC)
	rec := &domain.MPFMProductionRecord{
		AssetTag:    "13FT0367",
		Bank:        "A",
		Stream:      "TOP",
		Riser:       "NORTH",
		ReportType:  domain.ReportHourly,
		PeriodStart: periodEnd.Add(-time.Hour),
		PeriodEnd:   periodEnd,
		Metrics: map[string]float64{
			domain.MetricKey(domain.BankCorrectedMass, domain.PhaseOil): 12.5,
		},
	}

	out, err := c.Canonicalize(context.Background(), 1, domain.ShapeMPFMHourly, []domain.ParserRecord{rec})
	require.NoError(t, err)
	require.Len(t, out.Affected, 1)
	assert.Equal(t, "13FT0367", out.Affected[0].AssetTag)
	assert.Equal(t, "2026-03-04", out.Affected[0].BusinessDate.Format("2006-01-02"))

	daily, hourlies, err := st.ProductionFactsForDate(context.Background(), "13FT0367", periodEnd)
	require.NoError(t, err)
	assert.Nil(t, daily)
	require.Len(t, hourlies, 1)
	v, ok := hourlies[0].Metric(domain.BankCorrectedMass, domain.PhaseOil)
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)
}

func TestCanonicalize_AssetFirstEncounterSeedsWarnsOnMismatch(t *testing.T) {
	st := store.NewMemStore()
	c := New(st)
	ctx := context.Background()

	base := &domain.MPFMProductionRecord{
		AssetTag:    "13FT0367",
		Bank:        "A",
		ReportType:  domain.ReportHourly,
		PeriodStart: time.Date(2026, 3, 4, 5, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 3, 4, 6, 0, 0, 0, time.UTC),
		Metrics:     map[string]float64{},
	}
	_, err := c.Canonicalize(ctx, 1, domain.ShapeMPFMHourly, []domain.ParserRecord{base})
	require.NoError(t, err)

	mismatched := &domain.MPFMProductionRecord{
		AssetTag:    "13FT0367",
		Bank:        "B",
		ReportType:  domain.ReportHourly,
		PeriodStart: time.Date(2026, 3, 4, 6, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC),
		Metrics:     map[string]float64{},
	}
	out, err := c.Canonicalize(ctx, 2, domain.ShapeMPFMHourly, []domain.ParserRecord{mismatched})
	require.NoError(t, err)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "dimensions disagree")
}

func TestCanonicalize_UnconvertibleUnitFlagsErrUnit(t *testing.T) {
	st := store.NewMemStore()
	c := New(st)

	key := domain.MetricKey(domain.BankUncorrectedMass, domain.PhaseOil)
	rec := &domain.SpreadsheetProductionRecord{
		AssetTag:    "PLAT-01",
		ReportType:  domain.ReportDaily,
		PeriodStart: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		Metrics:     map[string]float64{key: 100},
		RawUnits:    map[string]string{key: "furlongs"},
	}

	out, err := c.Canonicalize(context.Background(), 1, domain.ShapeSpreadsheetDailyOil, []domain.ParserRecord{rec})
	require.NoError(t, err)
	require.Len(t, out.Affected, 1)

	daily, hourlies, err := st.ProductionFactsForDate(context.Background(), "PLAT-01", rec.PeriodEnd)
	require.NoError(t, err)
	require.Len(t, hourlies, 0) // it's a DAILY record
	require.NotNil(t, daily)
	_, present := daily.Metric(domain.BankUncorrectedMass, domain.PhaseOil)
	assert.False(t, present)
	assert.Contains(t, daily.QualityFlags, domain.QualityErrUnit)
}

func TestCanonicalize_XMLProductionMapsCorrectedVolumeToPVTRefBank(t *testing.T) {
	st := store.NewMemStore()
	c := New(st)

	rec := &domain.XMLProductionRecord{
		AssetTag: "CNPJ8-0001",
		Shape:    domain.ShapeXML001,
		Periods: []domain.ProductionPeriod{
			{
				PeriodStart:     time.Date(2026, 3, 4, 5, 0, 0, 0, time.UTC),
				PeriodEnd:       time.Date(2026, 3, 4, 6, 0, 0, 0, time.UTC),
				CorrectedVolume: 42.0,
				GrossVolume:     43.5,
			},
		},
	}

	out, err := c.Canonicalize(context.Background(), 1, domain.ShapeXML001, []domain.ParserRecord{rec})
	require.NoError(t, err)
	require.Len(t, out.Affected, 1)

	_, hourlies, err := st.ProductionFactsForDate(context.Background(), "CNPJ8-0001", rec.Periods[0].PeriodEnd)
	require.NoError(t, err)
	require.Len(t, hourlies, 1)
	v, ok := hourlies[0].Metric(domain.BankPVTRefVolumeStd, domain.PhaseOil)
	assert.True(t, ok)
	assert.Equal(t, 42.0, v)
	assert.Equal(t, domain.ShapeXML001, hourlies[0].SourceShape)
}

func TestCanonicalize_GasBalanceAndAlarmsPassThroughNotStoredAsFacts(t *testing.T) {
	st := store.NewMemStore()
	c := New(st)

	gb := &domain.GasBalanceRecord{AssetTag: "PLAT-01", PeriodEnd: time.Now()}
	alarm := &domain.XMLAlarmRecord{AssetTag: "CNPJ8-0001"}

	out, err := c.Canonicalize(context.Background(), 1, domain.ShapeSpreadsheetGasBalance, []domain.ParserRecord{gb, alarm})
	require.NoError(t, err)
	assert.Empty(t, out.Affected)
	require.Len(t, out.GasBalances, 1)
	require.Len(t, out.Alarms, 1)
}

// calibrationCapture records the last CalibrationFact the Canonicalizer
// persists, so a test can inspect its Status.
type calibrationCapture struct {
	*store.MemStore
	last domain.CalibrationFact
}

func (c *calibrationCapture) UpsertCalibrationFact(ctx context.Context, f domain.CalibrationFact) error {
	c.last = f
	return c.MemStore.UpsertCalibrationFact(ctx, f)
}

func TestCanonicalize_CalibrationWithheldFactorsMarkPartialStatus(t *testing.T) {
	st := &calibrationCapture{MemStore: store.NewMemStore()}
	c := New(st)

	rec := &domain.MPFMCalibrationRecord{
		AssetTag:      "13FT0367",
		CalibrationNo: 7,
		WindowStart:   time.Now().Add(-time.Hour),
		WindowEnd:     time.Now(),
		KFactors: map[domain.CalibrationPhase]domain.KFactor{
			domain.CalWater: {Old: 1.0, New: 1.0},
		},
		Withheld: map[domain.CalibrationPhase]bool{domain.CalWater: true},
		Flags:    []string{domain.FlagIgnoreForKUpdate},
	}

	_, err := c.Canonicalize(context.Background(), 1, domain.ShapeMPFMPVTCalibration, []domain.ParserRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, domain.CalibrationPartial, st.last.Status)
}
