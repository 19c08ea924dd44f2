// Package spreadsheet parses the three daily-rollup sheet shapes
// (SPREADSHEET_DAILY_OIL/GAS/WATER) and the gas-balance sheet (spec §4.B.1)
// using github.com/tealeg/xlsx, the same library
// spatialmodel-inmap/emissions/aep/aeputil/excel.go uses to read workbooks.
package spreadsheet

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tealeg/xlsx"

	"github.com/oilfield/sgmfm/internal/domain"
	"github.com/oilfield/sgmfm/internal/parse"
)

var tagGrammar = regexp.MustCompile(`^\d{2}[A-Z]{2}\d{4}[A-B]?$`)

type anchorKind int

const (
	anchorCumulativeTotals anchorKind = iota
	anchorDayTotals
	anchorFlowWeightedAverages
	anchorGasBalance
)

var anchorPatterns = []struct {
	kind anchorKind
	re   *regexp.Regexp
}{
	{anchorCumulativeTotals, regexp.MustCompile(`(?i)cumulative totals`)},
	{anchorDayTotals, regexp.MustCompile(`(?i)day totals`)},
	{anchorFlowWeightedAverages, regexp.MustCompile(`(?i)flow weighted averages?`)},
	{anchorGasBalance, regexp.MustCompile(`(?i)gas balance`)},
}

var unitMarkers = map[string]bool{
	"m³": true, "m3": true, "sm³": true, "sm3": true, "kpa": true, "°c": true,
	"kg": true, "t": true, "min": true, "gj": true, "%": true,
}

var absentTokens = map[string]bool{
	"-": true, "n/a": true, "#ref!": true, "null": true, "none": true, "": true,
}

var periodRe = regexp.MustCompile(`(?i)(\S[\S ]*?)\s+till\s+(\S[\S ]*?)(?:\s*$|\s{2,})`)

var periodTimeFormats = []string{
	"2006-01-02 15:04:05", "02/01/2006 15:04:05", "2006-01-02T15:04:05",
	"02-01-2006 15:04", "2006-01-02 15:04", time.RFC3339,
}

// Parser implements parse.Parser for spreadsheet workbooks.
type Parser struct {
	// Shape pins the sheet to its classified phase; SPREADSHEET_GAS_BALANCE
	// routes through parseGasBalance instead.
	Shape domain.ReportShape
}

// Parse opens content as an xlsx workbook and extracts its anchor blocks.
func (p Parser) Parse(filename string, content []byte) parse.ParseOutcome {
	var out parse.ParseOutcome

	f, err := xlsx.OpenBinary(content)
	if err != nil {
		out.Fail("spreadsheet: opening workbook: " + err.Error())
		return out
	}

	sheet := selectSheet(f, p.Shape)
	if sheet == nil {
		out.Fail("spreadsheet: no usable sheet found")
		return out
	}

	if p.Shape == domain.ShapeSpreadsheetGasBalance {
		return parseGasBalance(sheet)
	}

	phase := shapePhase(p.Shape)
	periodStart, periodEnd, ok := extractPeriod(sheet)
	if !ok {
		out.AddWarning("spreadsheet: could not locate period metadata in first 25 rows")
	}

	anchorsFound := 0
	for rowIdx, row := range sheet.Rows {
		kind, matched := matchAnchor(row)
		if !matched {
			continue
		}
		anchorsFound++
		records, warnings := parseAnchorBlock(sheet, rowIdx, kind, phase, periodStart, periodEnd)
		out.Records = append(out.Records, records...)
		out.Warnings = append(out.Warnings, warnings...)
	}

	if anchorsFound == 0 {
		rec, warnings := parseFallback(sheet, phase, periodStart, periodEnd)
		out.Warnings = append(out.Warnings, warnings...)
		if rec != nil {
			out.Records = append(out.Records, rec)
		}
	}

	out.Success = len(out.Records) > 0 || anchorsFound > 0
	if !out.Success {
		out.Fail("spreadsheet: no anchors and fallback layout produced no values")
	}
	return out
}

// selectSheet prefers a sheet name starting with oil_/gas_/water_ or literal
// 0001, else the first sheet (spec §6).
func selectSheet(f *xlsx.File, shape domain.ReportShape) *xlsx.Sheet {
	prefixes := map[domain.ReportShape]string{
		domain.ShapeSpreadsheetDailyOil:   "oil_",
		domain.ShapeSpreadsheetDailyGas:   "gas_",
		domain.ShapeSpreadsheetDailyWater: "water_",
	}
	if prefix, ok := prefixes[shape]; ok {
		for _, s := range f.Sheets {
			if strings.HasPrefix(strings.ToLower(s.Name), prefix) {
				return s
			}
		}
	}
	for _, s := range f.Sheets {
		if s.Name == "0001" {
			return s
		}
	}
	if len(f.Sheets) > 0 {
		return f.Sheets[0]
	}
	return nil
}

func shapePhase(shape domain.ReportShape) domain.Phase {
	switch shape {
	case domain.ShapeSpreadsheetDailyOil:
		return domain.PhaseOil
	case domain.ShapeSpreadsheetDailyGas:
		return domain.PhaseGas
	case domain.ShapeSpreadsheetDailyWater:
		return domain.PhaseWater
	default:
		return domain.PhaseTotal
	}
}

func matchAnchor(row *xlsx.Row) (anchorKind, bool) {
	for _, cell := range row.Cells {
		for _, ap := range anchorPatterns {
			if ap.re.MatchString(cell.Value) {
				return ap.kind, true
			}
		}
	}
	return 0, false
}

// extractPeriod scans the first 25 rows for a "<ts> till <ts>" period string
// (spec §6).
func extractPeriod(sheet *xlsx.Sheet) (time.Time, time.Time, bool) {
	limit := 25
	if len(sheet.Rows) < limit {
		limit = len(sheet.Rows)
	}
	for i := 0; i < limit; i++ {
		for _, cell := range sheet.Rows[i].Cells {
			m := periodRe.FindStringSubmatch(cell.Value)
			if m == nil {
				continue
			}
			start, ok1 := parseTimestamp(strings.TrimSpace(m[1]))
			end, ok2 := parseTimestamp(strings.TrimSpace(m[2]))
			if ok1 && ok2 {
				return start, end, true
			}
		}
	}
	return time.Time{}, time.Time{}, false
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range periodTimeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseAnchorBlock finds the tag row under anchorRow, the tag columns, and
// walks each tag column downward extracting (label, value) pairs.
func parseAnchorBlock(sheet *xlsx.Sheet, anchorRow int, kind anchorKind, phase domain.Phase, periodStart, periodEnd time.Time) ([]domain.ParserRecord, []string) {
	var warnings []string

	tagRowIdx, tagCols, tags := findTagRow(sheet, anchorRow)
	if tagRowIdx < 0 {
		warnings = append(warnings, "spreadsheet: no tag row found within 7 rows of anchor")
		return nil, warnings
	}

	reportType := domain.ReportDaily

	records := make([]domain.ParserRecord, 0, len(tagCols))
	for i, col := range tagCols {
		rec := &domain.SpreadsheetProductionRecord{
			AssetTag:    tags[i],
			ReportType:  reportType,
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
			Metrics:     map[string]float64{},
			RawUnits:    map[string]string{},
		}

		blank := 0
		for r := tagRowIdx + 2; r < len(sheet.Rows); r++ {
			row := sheet.Rows[r]
			if kind2, matched := matchAnchor(row); matched {
				_ = kind2
				break
			}
			label := cellAt(row, 0)
			if strings.TrimSpace(label) == "" {
				blank++
				if blank >= 3 {
					break
				}
				continue
			}
			blank = 0

			raw := cellAt(row, col)
			val, absent := parseNumeric(raw)
			if absent {
				continue
			}

			applyLabelValue(rec, kind, phase, label, val, &warnings)
		}
		records = append(records, rec)
	}
	return records, warnings
}

func applyLabelValue(rec *domain.SpreadsheetProductionRecord, kind anchorKind, basePhase domain.Phase, label string, val float64, warnings *[]string) {
	norm := normalizeLabel(label)
	phase := basePhase
	switch {
	case strings.Contains(norm, "total"):
		phase = domain.PhaseTotal
	case strings.Contains(norm, "hc"):
		phase = domain.PhaseHC
	}

	if kind == anchorFlowWeightedAverages {
		switch {
		case strings.Contains(norm, "pressure"):
			rec.Metrics["avg_pressure_kpa"] = val
		case strings.Contains(norm, "temperature"):
			rec.Metrics["avg_temperature_c"] = val
		case strings.Contains(norm, "density"):
			rec.Metrics["density_"+string(phase)+"_kgm3"] = val
		default:
			rec.Metrics[snakeCase(label)] = val
		}
		return
	}

	if bank, ok := lookupBank(norm); ok {
		rec.Metrics[domain.MetricKey(bank, phase)] = val
		return
	}
	rec.Metrics[snakeCase(label)] = val
}

// findTagRow scans up to 7 rows below anchorRow for a row with >=2 cells
// matching the tag grammar (spec §4.B.1).
func findTagRow(sheet *xlsx.Sheet, anchorRow int) (int, []int, []string) {
	for r := anchorRow + 1; r <= anchorRow+7 && r < len(sheet.Rows); r++ {
		row := sheet.Rows[r]
		var cols []int
		var tags []string
		for c, cell := range row.Cells {
			v := strings.TrimSpace(cell.Value)
			if tagGrammar.MatchString(v) {
				cols = append(cols, c)
				tags = append(tags, v)
			}
		}
		if len(cols) >= 2 {
			return r, cols, tags
		}
	}
	return -1, nil, nil
}

func cellAt(row *xlsx.Row, col int) string {
	if col < 0 || col >= len(row.Cells) {
		return ""
	}
	return row.Cells[col].Value
}

// parseNumeric accepts either decimal separator and the absent-value tokens
// of spec §4.B.1.
func parseNumeric(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if absentTokens[strings.ToLower(s)] {
		return 0, true
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, true
	}
	return v, false
}

// parseFallback treats the sheet as a flat label/value layout when no
// anchors were found (spec §4.B.1).
var inlineValueRe = regexp.MustCompile(`^([\d.,\-]+)\s*(.*)$`)

func parseFallback(sheet *xlsx.Sheet, phase domain.Phase, periodStart, periodEnd time.Time) (domain.ParserRecord, []string) {
	rec := &domain.SpreadsheetProductionRecord{
		ReportType:  domain.ReportDaily,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Metrics:     map[string]float64{},
		RawUnits:    map[string]string{},
	}
	var warnings []string
	found := false
	for _, row := range sheet.Rows {
		if len(row.Cells) < 2 {
			continue
		}
		label := strings.TrimSpace(row.Cells[0].Value)
		value := strings.TrimSpace(row.Cells[1].Value)
		if label == "" || value == "" {
			continue
		}
		m := inlineValueRe.FindStringSubmatch(value)
		var numTok, unitTok string
		if m != nil {
			numTok, unitTok = m[1], strings.TrimSpace(m[2])
		} else {
			numTok = value
		}
		val, absent := parseNumeric(numTok)
		if absent {
			continue
		}
		found = true
		norm := normalizeLabel(label)
		if bank, ok := lookupBank(norm); ok {
			rec.Metrics[domain.MetricKey(bank, phase)] = val
		} else {
			rec.Metrics[snakeCase(label)] = val
		}
		if unitTok != "" {
			rec.RawUnits[snakeCase(label)] = unitTok
		}
	}
	if !found {
		warnings = append(warnings, "spreadsheet: fallback layout produced no numeric values")
		return nil, warnings
	}
	return rec, warnings
}
