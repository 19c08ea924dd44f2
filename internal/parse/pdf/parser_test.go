package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oilfield/sgmfm/internal/domain"
)

func TestParseProduction_Hourly(t *testing.T) {
	text := `MPFM Hourly Report from 2024-01-01 00:00:00 to 2024-01-01 01:00:00
Tag: 13FT0367 Bank B01 Stream A

MPFM Uncorrected Mass: 10.1 5.2 15.3 1.0 16.3
MPFM Corrected Mass: 10.0 5.0 15.0 0.9 15.9
Average Pressure: 1500
Average Temperature: 45
Density (oil): 820
`
	out := parseProduction("13FT0367_B01_hourly.pdf", text)
	require.True(t, out.Success, "warnings=%v errors=%v", out.Warnings, out.Errors)
	require.Len(t, out.Records, 1)

	rec, ok := out.Records[0].(*domain.MPFMProductionRecord)
	require.True(t, ok)
	assert.Equal(t, "13FT0367", rec.AssetTag)
	assert.Equal(t, domain.ReportHourly, rec.ReportType)

	v, ok := rec.Metrics[domain.MetricKey(domain.BankUncorrectedMass, domain.PhaseGas)]
	require.True(t, ok)
	assert.InDelta(t, 10.1, v, 1e-9)

	require.NotNil(t, rec.AvgPressureKPA)
	assert.InDelta(t, 1500, *rec.AvgPressureKPA, 1e-9)
	assert.InDelta(t, 820, rec.Densities[domain.PhaseOil], 1e-9)
}

func TestParseProduction_DailyMultiRiser(t *testing.T) {
	text := `MPFM Daily Report from 2024-01-01 00:00:00 to 2024-01-02 00:00:00

Riser X1 - NORTH
MPFM Corrected Mass: 100 50 150 5 155

Riser X2 - SOUTH
MPFM Corrected Mass: 200 60 260 6 266
`
	out := parseProduction("report_daily.pdf", text)
	require.True(t, out.Success)
	require.Len(t, out.Records, 2)

	rec0 := out.Records[0].(*domain.MPFMProductionRecord)
	assert.Equal(t, "NORTH", rec0.Riser)
	rec1 := out.Records[1].(*domain.MPFMProductionRecord)
	assert.Equal(t, "SOUTH", rec1.Riser)
}

func TestParseCalibration(t *testing.T) {
	text := `PVT Calibration Report
Tag: 13FT0367
Calibration No: 42
Selected MPFM: 13FT0367
Calibration Window: 2024-01-01 00:00:00 to 2024-01-08 00:00:00

Pressure MPFM: 1500 Separator: 1510
Temperature MPFM: 45 Separator: 44

oil MPFM: 100 Separator: 98
water MPFM: 10 Separator: 9

oil Used: 1.0 New: 1.02
water Used: 1.0 New: 1.8
gas Used: 1.0 New: 0.4
`
	out := parseCalibration("13FT0367_pvt_calibration.pdf", text)
	require.True(t, out.Success, "warnings=%v errors=%v", out.Warnings, out.Errors)

	rec, ok := out.Records[0].(*domain.MPFMCalibrationRecord)
	require.True(t, ok)
	assert.Equal(t, "13FT0367", rec.AssetTag)
	assert.Equal(t, 42, rec.CalibrationNo)

	assert.True(t, rec.Withheld[domain.CalWater], "water must always be withheld")
	assert.Contains(t, rec.Flags, domain.FlagIgnoreForKUpdate)

	assert.True(t, rec.Withheld[domain.CalGas], "gas new factor 0.4 is outside [0.5,1.5]")
	assert.Contains(t, rec.Flags, domain.KFactorOutlierFlag(domain.CalGas))

	assert.False(t, rec.Withheld[domain.CalOil], "oil new factor 1.02 is within range")
}
