package domain

import (
	"fmt"
	"time"
)

// Phase is one of the five phase breakdowns carried by every metric bank.
type Phase string

const (
	PhaseGas   Phase = "gas"
	PhaseOil   Phase = "oil"
	PhaseHC    Phase = "hc"
	PhaseWater Phase = "water"
	PhaseTotal Phase = "total"
)

var AllPhases = []Phase{PhaseGas, PhaseOil, PhaseHC, PhaseWater, PhaseTotal}

// Bank is one of the six phase-banks a ProductionFact carries.
type Bank string

const (
	BankUncorrectedMass Bank = "uncorrected_mass"
	BankCorrectedMass   Bank = "corrected_mass"
	BankPVTRefMass      Bank = "pvt_ref_mass"
	BankPVTRefVolumeStd Bank = "pvt_ref_volume_std"
	BankPVTRefMass20C   Bank = "pvt_ref_mass_20c"
	BankPVTRefVolume20C Bank = "pvt_ref_volume_20c"
)

var AllBanks = []Bank{
	BankUncorrectedMass, BankCorrectedMass, BankPVTRefMass,
	BankPVTRefVolumeStd, BankPVTRefMass20C, BankPVTRefVolume20C,
}

// isVolumeBank reports whether bank carries volumes (Sm3) rather than masses (t).
func (b Bank) isVolumeBank() bool {
	return b == BankPVTRefVolumeStd || b == BankPVTRefVolume20C
}

// unitSuffix is the canonical metric-key unit suffix for bank, matching the
// harmonized units of §4.D: masses in tonnes, volumes in standard cubic metres.
func (b Bank) unitSuffix() string {
	if b.isVolumeBank() {
		return "sm3"
	}
	return "t"
}

// MetricKey builds the canonical (bank, phase) metric identifier, e.g.
// "corrected_mass_oil_t" or "pvt_ref_volume_std_gas_sm3". Every key starts
// with its bank name, so a bank-less name such as "mass_hc_t" is never
// produced.
func MetricKey(bank Bank, phase Phase) string {
	return fmt.Sprintf("%s_%s_%s", bank, phase, bank.unitSuffix())
}

// ReportType distinguishes the two ProductionFact grains.
type ReportType string

const (
	ReportHourly ReportType = "HOURLY"
	ReportDaily  ReportType = "DAILY"
)

// QualityErrUnit is added to a ProductionFact's QualityFlags when one of its
// metric values has a unit that cannot be converted (§4.D, §7).
const QualityErrUnit = "ERR_UNIT"

// ProductionFact is the canonical grain: (asset, period_end, report_type).
type ProductionFact struct {
	ID           int64
	AssetTag     string
	ReportType   ReportType
	PeriodStart  time.Time
	PeriodEnd    time.Time
	BusinessDate time.Time // local date of PeriodEnd

	// Metrics maps a MetricKey to its value; absent keys mean "not reported".
	Metrics map[string]float64

	AvgPressureKPA   *float64
	AvgTemperatureC  *float64
	Densities        map[Phase]float64 // kg/m3

	QualityFlags []string // e.g. ERR_UNIT, per value — see Warnings on the owning RawFile for detail

	OwningRawFileID int64
	// SourceShape records which ReportShape produced this fact, so the
	// Cross-validator can bucket facts by SourceClass (spec §4.F).
	SourceShape ReportShape
}

// Metric returns the value for (bank, phase) and whether it was present.
func (f *ProductionFact) Metric(bank Bank, phase Phase) (float64, bool) {
	v, ok := f.Metrics[MetricKey(bank, phase)]
	return v, ok
}

// SetMetric stores a value for (bank, phase), creating the map if needed.
func (f *ProductionFact) SetMetric(bank Bank, phase Phase, value float64) {
	if f.Metrics == nil {
		f.Metrics = make(map[string]float64)
	}
	f.Metrics[MetricKey(bank, phase)] = value
}

// ReconciledMetrics is the declared metric list the Reconciler verifies:
// uncorrected mass and corrected mass by phase, and PVT-reference mass/volume
// by phase at both reference conditions (spec §4.E).
func ReconciledMetrics() []string {
	banks := []Bank{
		BankUncorrectedMass, BankCorrectedMass,
		BankPVTRefMass, BankPVTRefVolumeStd,
		BankPVTRefMass20C, BankPVTRefVolume20C,
	}
	keys := make([]string, 0, len(banks)*len(AllPhases))
	for _, b := range banks {
		for _, p := range AllPhases {
			keys = append(keys, MetricKey(b, p))
		}
	}
	return keys
}
