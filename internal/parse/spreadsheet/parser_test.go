package spreadsheet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"github.com/oilfield/sgmfm/internal/domain"
)

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		cell := row.AddCell()
		cell.Value = v
	}
}

func buildOilSheet() []byte {
	f := xlsx.NewFile()
	sheet, _ := f.AddSheet("oil_daily")
	addRow(sheet, "Field:", "Campo Teste")
	addRow(sheet, "Period:", "2024-01-01 00:00:00 till 2024-01-02 00:00:00")
	addRow(sheet, "Day Totals")
	addRow(sheet, "Tag", "13FT0367", "13FT0368")
	addRow(sheet, "Unit", "t", "t")
	addRow(sheet, "Corrected Mass", "100.5", "200.0")
	addRow(sheet, "Uncorrected Mass", "101.0", "201.0")
	addRow(sheet, "")
	addRow(sheet, "")
	addRow(sheet, "")
	var buf bytes.Buffer
	_ = f.Write(&buf)
	return buf.Bytes()
}

func TestParser_DailyOil_AnchorBlock(t *testing.T) {
	content := buildOilSheet()
	p := Parser{Shape: domain.ShapeSpreadsheetDailyOil}
	out := p.Parse("daily_oil.xlsx", content)

	require.True(t, out.Success, "warnings=%v errors=%v", out.Warnings, out.Errors)
	require.Len(t, out.Records, 2)

	rec, ok := out.Records[0].(*domain.SpreadsheetProductionRecord)
	require.True(t, ok)
	assert.Equal(t, "13FT0367", rec.AssetTag)
	v, ok := rec.Metrics[domain.MetricKey(domain.BankCorrectedMass, domain.PhaseOil)]
	require.True(t, ok)
	assert.InDelta(t, 100.5, v, 1e-9)
}

func TestParseNumeric_AbsentTokens(t *testing.T) {
	for _, tok := range []string{"-", "N/A", "#REF!", "null", "None", ""} {
		_, absent := parseNumeric(tok)
		assert.True(t, absent, "token %q should be absent", tok)
	}
	v, absent := parseNumeric("1,5")
	assert.False(t, absent)
	assert.InDelta(t, 1.5, v, 1e-9)
}

func TestTagGrammar(t *testing.T) {
	assert.True(t, tagGrammar.MatchString("13FT0367"))
	assert.True(t, tagGrammar.MatchString("13FT0367A"))
	assert.False(t, tagGrammar.MatchString("13FT036"))
}
