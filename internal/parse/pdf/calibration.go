package pdf

import (
	"strconv"
	"strings"

	"github.com/oilfield/sgmfm/internal/domain"
	"github.com/oilfield/sgmfm/internal/parse"
)

// parseCalibration handles the PVT calibration report: a calibration
// number, window, selected-MPFM label, average pressure/temperature pairs,
// accumulated mass pairs and K-factor (used/new) pairs, each given as an
// MPFM value and a separator value (spec §4.B.2). Average density lines
// match avgValuesRe but are not stored: rec.Densities stays empty.
func parseCalibration(filename, text string) parse.ParseOutcome {
	var out parse.ParseOutcome

	rec := &domain.MPFMCalibrationRecord{
		AssetTag:        parseTag(text, filename),
		Densities:       map[domain.CalibrationPhase]domain.DualSideValue{},
		AccumulatedMass: map[domain.CalibrationPhase]domain.DualSideValue{},
	}

	if m := calibrationNoRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			rec.CalibrationNo = n
		}
	}
	if m := mpfmLabelRe.FindStringSubmatch(text); m != nil {
		rec.Label = m[1]
	}
	if m := calWindowRe.FindStringSubmatch(text); m != nil {
		start, ok1 := parseTimestamp(m[1])
		end, ok2 := parseTimestamp(m[2])
		if ok1 && ok2 {
			rec.WindowStart, rec.WindowEnd = start, end
		}
	}

	for _, m := range avgValuesRe.FindAllStringSubmatch(text, -1) {
		mpfm, ok1 := parseNumber(m[2])
		sep, ok2 := parseNumber(m[3])
		if !ok1 || !ok2 {
			continue
		}
		dsv := domain.DualSideValue{MPFM: mpfm, Separator: sep}
		switch strings.ToLower(m[1]) {
		case "pressure":
			rec.AvgPressureKPA = dsv
		case "temperature":
			rec.AvgTemperatureC = dsv
		}
	}

	for _, m := range accumMassRe.FindAllStringSubmatch(text, -1) {
		phase := domain.CalibrationPhase(strings.ToLower(m[1]))
		mpfm, ok1 := parseNumber(m[2])
		sep, ok2 := parseNumber(m[3])
		if ok1 && ok2 {
			rec.AccumulatedMass[phase] = domain.DualSideValue{MPFM: mpfm, Separator: sep}
		}
	}

	factors := map[domain.CalibrationPhase]domain.KFactor{}
	for _, m := range kFactorRe.FindAllStringSubmatch(text, -1) {
		phase := domain.CalibrationPhase(strings.ToLower(m[1]))
		used, ok1 := parseNumber(m[2])
		newVal, ok2 := parseNumber(m[3])
		if ok1 && ok2 {
			factors[phase] = domain.KFactor{Old: used, New: newVal}
		}
	}
	rec.KFactors = factors
	rec.Flags, rec.Withheld = domain.ApplyKFactorFlags(factors)

	out.Records = []domain.ParserRecord{rec}
	out.Success = len(factors) > 0
	if !out.Success {
		out.Fail("pdf: no K-factor pairs found in calibration report")
	}
	if rec.AssetTag == "" {
		out.AddWarning("pdf: no asset tag found in filename or text")
	}
	return out
}
