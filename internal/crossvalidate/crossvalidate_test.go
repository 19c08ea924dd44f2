package crossvalidate

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
const metric = "corrected_mass_oil_t"

// seedFact writes one fact per call. Each source class is given a distinct
// ReportType/PeriodEnd so it lands on its own natural key rather than
// colliding with (and overwriting) another source's fact for the same day —
// ProductionFact's key is (asset_tag, period_end, report_type), which omits
// source shape by design (spec §4.D/§4.G).
func seedFact(t *testing.T, st store.Store, shape domain.ReportShape, reportType domain.ReportType, businessDate time.Time, periodEnd time.Time, value float64) {
	t.Helper()
	require.NoError(t, st.UpsertProductionFact(context.Background(), domain.ProductionFact{
		AssetTag:     assetTag,
		ReportType:   reportType,
		PeriodStart:  periodEnd.Add(-time.Hour),
		PeriodEnd:    periodEnd,
		BusinessDate: businessDate,
		Metrics:      map[string]float64{metric: value},
		SourceShape:  shape,
	}))
}

func TestValidate_NoDataAndSingleSource(t *testing.T) {
	st := store.NewMemStore()
	cv := New(st)
	businessDate := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	res, err := cv.Validate(context.Background(), assetTag, businessDate, "DAILY", metric)
	require.NoError(t, err)
	assert.Equal(t, domain.CrossNoData, res.Verdict.Classification)

	seedFact(t, st, domain.ShapeSpreadsheetDailyOil, domain.ReportDaily, businessDate, businessDate.Add(24*time.Hour), 100.0)
	res, err = cv.Validate(context.Background(), assetTag, businessDate, "DAILY", metric)
	require.NoError(t, err)
	assert.Equal(t, domain.CrossSingleSource, res.Verdict.Classification)
}

func TestValidate_ConsistentAcceptableInconsistent(t *testing.T) {
	st := store.NewMemStore()
	cv := New(st)
	businessDate := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	dailyEnd := businessDate.Add(24 * time.Hour)
	xmlEnd := businessDate.Add(time.Hour)

	seedFact(t, st, domain.ShapeSpreadsheetDailyOil, domain.ReportDaily, businessDate, dailyEnd, 100.0)
	seedFact(t, st, domain.ShapeXML001, domain.ReportHourly, businessDate, xmlEnd, 100.0)
	res, err := cv.Validate(context.Background(), assetTag, businessDate, "DAILY", metric)
	require.NoError(t, err)
	assert.Equal(t, domain.CrossConsistent, res.Verdict.Classification)

	xmlEnd = xmlEnd.Add(time.Hour)
	seedFact(t, st, domain.ShapeXML001, domain.ReportHourly, businessDate, xmlEnd, 100.3) // within 0.5% of 100
	res, err = cv.Validate(context.Background(), assetTag, businessDate, "DAILY", metric)
	require.NoError(t, err)
	assert.Equal(t, domain.CrossAcceptable, res.Verdict.Classification)

	xmlEnd = xmlEnd.Add(time.Hour)
	seedFact(t, st, domain.ShapeXML001, domain.ReportHourly, businessDate, xmlEnd, 110.0) // 10% off
	res, err = cv.Validate(context.Background(), assetTag, businessDate, "DAILY", metric)
	require.NoError(t, err)
	assert.Equal(t, domain.CrossInconsistent, res.Verdict.Classification)
}

func TestValidate_StreakEscalatesAfterThreshold(t *testing.T) {
	st := store.NewMemStore()
	cv := New(st)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var lastRes Result
	for i := 0; i < domain.EscalationDays; i++ {
		day := start.AddDate(0, 0, i)
		seedFactForDay(t, st, day)
		res, err := cv.Validate(context.Background(), assetTag, day, "DAILY", metric)
		require.NoError(t, err)
		require.Equal(t, domain.CrossInconsistent, res.Verdict.Classification)
		lastRes = res
	}

	require.NotNil(t, lastRes.NonConformance)
	assert.Equal(t, domain.NonConformanceID(assetTag, metric, start.AddDate(0, 0, domain.EscalationDays-1)), lastRes.NonConformance.EventID)
}

func seedFactForDay(t *testing.T, st store.Store, day time.Time) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.UpsertProductionFact(ctx, domain.ProductionFact{
		AssetTag:     assetTag,
		ReportType:   domain.ReportDaily,
		PeriodStart:  day,
		PeriodEnd:    day.Add(24 * time.Hour),
		BusinessDate: day,
		Metrics:      map[string]float64{metric: 100.0},
		SourceShape:  domain.ShapeSpreadsheetDailyOil,
	}))
	require.NoError(t, st.UpsertProductionFact(ctx, domain.ProductionFact{
		AssetTag:     assetTag,
		ReportType:   domain.ReportHourly,
		PeriodStart:  day,
		PeriodEnd:    day.Add(time.Hour),
		BusinessDate: day,
		Metrics:      map[string]float64{metric: 110.0},
		SourceShape:  domain.ShapeXML001,
	}))
}

func TestValidate_ResolvesStreakOnAcceptable(t *testing.T) {
	st := store.NewMemStore()
	cv := New(st)
	day1 := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	seedFactForDay(t, st, day1)
	_, err := cv.Validate(context.Background(), assetTag, day1, "DAILY", metric)
	require.NoError(t, err)

	streak, err := st.GetOpenStreak(context.Background(), assetTag, metric)
	require.NoError(t, err)
	require.NotNil(t, streak)
	assert.Equal(t, 1, streak.ConsecutiveDays)

	day2 := day1.AddDate(0, 0, 1)
	seedFact(t, st, domain.ShapeSpreadsheetDailyOil, domain.ReportDaily, day2, day2.Add(24*time.Hour), 100.0)
	seedFact(t, st, domain.ShapeXML001, domain.ReportHourly, day2, day2.Add(time.Hour), 100.1)
	_, err = cv.Validate(context.Background(), assetTag, day2, "DAILY", metric)
	require.NoError(t, err)

	streak, err = st.GetOpenStreak(context.Background(), assetTag, metric)
	require.NoError(t, err)
	assert.Nil(t, streak)
}
