package spreadsheet

import (
	"regexp"
	"strings"

	"github.com/oilfield/sgmfm/internal/domain"
)

// lexicon maps a normalized (lowercased, whitespace-collapsed) variable
// label to the Bank it represents; the phase is supplied separately by the
// caller (derived from the sheet's declared shape, or from a phase token
// embedded in the label itself — see phaseHint). Unknown names are not an
// error: they degrade to a snake_case key of the raw label, stored verbatim
// in the record's Metrics map under that fallback key instead of a MetricKey,
// matching spec §4.B.1 ("unknown names degrade to snake_case of the raw").
var lexicon = map[string]domain.Bank{
	"uncorrected mass":               domain.BankUncorrectedMass,
	"corrected mass":                 domain.BankCorrectedMass,
	"pvt reference mass":             domain.BankPVTRefMass,
	"pvt reference volume":           domain.BankPVTRefVolumeStd,
	"gross standard volume":          domain.BankPVTRefVolumeStd,
	"pvt reference mass 20degc":      domain.BankPVTRefMass20C,
	"pvt reference mass at 20 degc":  domain.BankPVTRefMass20C,
	"pvt reference volume 20degc":    domain.BankPVTRefVolume20C,
	"pvt reference volume at 20 degc": domain.BankPVTRefVolume20C,
}

var (
	collapseWS = regexp.MustCompile(`\s+`)
	nonAlnum   = regexp.MustCompile(`[^a-z0-9]+`)
)

// normalizeLabel lowercases and collapses whitespace for lexicon lookup.
func normalizeLabel(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = collapseWS.ReplaceAllString(s, " ")
	return s
}

// snakeCase turns an arbitrary label into the fallback key used when the
// lexicon has no entry for it.
func snakeCase(raw string) string {
	s := normalizeLabel(raw)
	s = nonAlnum.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// lookupBank resolves a normalized label to a Bank, if recognized.
func lookupBank(label string) (domain.Bank, bool) {
	b, ok := lexicon[label]
	return b, ok
}
