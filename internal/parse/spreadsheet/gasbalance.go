package spreadsheet

import (
	"regexp"
	"strings"

	"github.com/tealeg/xlsx"

	"github.com/oilfield/sgmfm/internal/domain"
	"github.com/oilfield/sgmfm/internal/parse"
)

var (
	headerSign   = regexp.MustCompile(`(?i)^sign$`)
	headerDesc   = regexp.MustCompile(`(?i)^descri`)
	headerFlow   = regexp.MustCompile(`(?i)flow.?rate`)
	headerPD     = regexp.MustCompile(`(?i)^pd$`)
	gasBalanceRe = regexp.MustCompile(`(?i)gas balance`)
)

// parseGasBalance reads the gas-balance sheet from its header row to (and
// including) the TOTAL row (spec §4.B.1).
func parseGasBalance(sheet *xlsx.Sheet) parse.ParseOutcome {
	var out parse.ParseOutcome

	headerRow := -1
	for i, row := range sheet.Rows {
		for _, cell := range row.Cells {
			if gasBalanceRe.MatchString(cell.Value) {
				headerRow = i
				break
			}
		}
		if headerRow >= 0 {
			break
		}
	}
	if headerRow < 0 {
		out.Fail("gas balance: no header found")
		return out
	}

	signCol, descCol, flowCol, pdCol := 0, 1, 2, 3
	for r := headerRow + 1; r <= headerRow+3 && r < len(sheet.Rows); r++ {
		cols := sheet.Rows[r]
		aligned := false
		for c, cell := range cols.Cells {
			switch {
			case headerSign.MatchString(cell.Value):
				signCol, aligned = c, true
			case headerDesc.MatchString(cell.Value):
				descCol, aligned = c, true
			case headerFlow.MatchString(cell.Value):
				flowCol, aligned = c, true
			case headerPD.MatchString(cell.Value):
				pdCol, aligned = c, true
			}
		}
		if aligned {
			headerRow = r
			break
		}
	}

	rec := &domain.GasBalanceRecord{}
	order := 0
	for r := headerRow + 1; r < len(sheet.Rows); r++ {
		row := sheet.Rows[r]
		sign := strings.ToUpper(strings.TrimSpace(cellAt(row, signCol)))
		desc := strings.TrimSpace(cellAt(row, descCol))
		if sign == "" && desc == "" {
			continue
		}
		order++
		gbRow := domain.GasBalanceRow{
			Order:       order,
			Sign:        sign,
			Description: desc,
		}
		if v, absent := parseNumeric(cellAt(row, flowCol)); !absent {
			gbRow.FlowRate = &v
		}
		if v, absent := parseNumeric(cellAt(row, pdCol)); !absent {
			gbRow.PD = &v
		}
		rec.Rows = append(rec.Rows, gbRow)
		if sign == "TOTAL" {
			break
		}
	}

	out.Records = []domain.ParserRecord{rec}
	out.Success = len(rec.Rows) > 0
	if !out.Success {
		out.Fail("gas balance: no rows read")
	}
	return out
}
