package pdf

import (
	"strings"
	"time"

	"github.com/oilfield/sgmfm/internal/domain"
	"github.com/oilfield/sgmfm/internal/parse"
)

var periodTimeFormats = []string{
	"2006-01-02 15:04:05", "02/01/2006 15:04:05", "02/01/2006 15:04",
	"2006-01-02T15:04:05", time.RFC3339,
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range periodTimeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseProduction handles the hourly and daily MPFM production reports. A
// daily report may cover several risers, each introduced by a "Riser X -
// <name>" heading; an hourly report has a single implicit riser section
// spanning the whole document.
func parseProduction(filename, text string) parse.ParseOutcome {
	var out parse.ParseOutcome

	reportType := domain.ReportHourly
	if subShapeDailyRe.MatchString(text) {
		reportType = domain.ReportDaily
	}

	periodStart, periodEnd, ok := extractPeriod(text)
	if !ok {
		out.AddWarning("pdf: could not locate report period")
	}

	tag := parseTag(text, filename)
	bank := parseBank(text, filename)

	sections := splitRiserSections(text)
	for _, sec := range sections {
		rec := &domain.MPFMProductionRecord{
			AssetTag:    tag,
			Bank:        bank,
			Stream:      sec.stream,
			Riser:       sec.riser,
			ReportType:  reportType,
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
			Metrics:     map[string]float64{},
			Densities:   map[domain.Phase]float64{},
		}
		applyProductionLines(rec, sec.body)
		applyAverages(rec, sec.body)
		out.Records = append(out.Records, rec)
	}

	out.Success = len(out.Records) > 0
	if !out.Success {
		out.Fail("pdf: no production records extracted")
	}
	if tag == "" {
		out.AddWarning("pdf: no asset tag found in filename or text")
	}
	return out
}

func extractPeriod(text string) (time.Time, time.Time, bool) {
	m := periodRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}
	start, ok1 := parseTimestamp(m[2])
	end, ok2 := parseTimestamp(m[3])
	return start, end, ok1 && ok2
}

type riserSection struct {
	riser  string
	stream string
	body   string
}

// splitRiserSections breaks the document on "Riser N - name" headings. When
// no heading is found, the whole text is treated as a single section whose
// riser/stream come from free-form "stream:"/"riser:" labels if present.
func splitRiserSections(text string) []riserSection {
	locs := riserSectionRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		sec := riserSection{body: text}
		if m := streamRe.FindStringSubmatch(text); m != nil {
			sec.stream = m[1]
		}
		if m := riserRe.FindStringSubmatch(text); m != nil {
			sec.riser = m[1]
		}
		return []riserSection{sec}
	}

	sections := make([]riserSection, 0, len(locs))
	for i, loc := range locs {
		start := loc[1]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		name := text[loc[4]:loc[5]]
		sections = append(sections, riserSection{
			riser:  name,
			stream: name,
			body:   text[start:end],
		})
	}
	return sections
}

func applyProductionLines(rec *domain.MPFMProductionRecord, body string) {
	for _, pl := range productionLineRes {
		m := pl.re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		values := numberTokens(m[1], len(domain.AllPhases))
		bank := bankForLabel(pl.label)
		for i, phase := range domain.AllPhases {
			if i >= len(values) {
				break
			}
			rec.Metrics[domain.MetricKey(bank, phase)] = values[i]
		}
	}
}

func bankForLabel(label string) domain.Bank {
	switch label {
	case "uncorrected_mass":
		return domain.BankUncorrectedMass
	case "corrected_mass":
		return domain.BankCorrectedMass
	case "pvt_ref_mass_20c":
		return domain.BankPVTRefMass20C
	case "pvt_ref_volume_20c":
		return domain.BankPVTRefVolume20C
	default:
		return domain.BankCorrectedMass
	}
}

func applyAverages(rec *domain.MPFMProductionRecord, body string) {
	if m := avgPressureRe.FindStringSubmatch(body); m != nil {
		if v, ok := parseNumber(m[1]); ok {
			rec.AvgPressureKPA = &v
		}
	}
	if m := avgTemperatureRe.FindStringSubmatch(body); m != nil {
		if v, ok := parseNumber(m[1]); ok {
			rec.AvgTemperatureC = &v
		}
	}
	for _, m := range densityRe.FindAllStringSubmatch(body, -1) {
		phase := domain.Phase(strings.ToLower(m[1]))
		if v, ok := parseNumber(m[2]); ok {
			rec.Densities[phase] = v
		}
	}
}
