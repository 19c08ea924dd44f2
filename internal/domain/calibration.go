package domain

import "time"

// CalibrationPhase is the subset of phases a K-factor calibration tracks.
type CalibrationPhase string

const (
	CalOil   CalibrationPhase = "oil"
	CalGas   CalibrationPhase = "gas"
	CalWater CalibrationPhase = "water"
	CalHC    CalibrationPhase = "hc"
)

var AllCalibrationPhases = []CalibrationPhase{CalOil, CalGas, CalWater, CalHC}

// KFactorOutlierMin and KFactorOutlierMax bound the range a new K-factor must fall within to be
// applied; outside it the factor is withheld and flagged (spec §3, §4.B.2).
const (
	KFactorOutlierMin = 0.5
	KFactorOutlierMax = 1.5
)

// KFactorOutlierFlag returns cal_factor_outlier_<phase>.
func KFactorOutlierFlag(phase CalibrationPhase) string {
	return "cal_factor_outlier_" + string(phase)
}

const FlagIgnoreForKUpdate = "ignore_for_k_update"

// KFactor holds the old and new correction factor for one phase.
type KFactor struct {
	Old float64
	New float64
}

// DualSideValue pairs an MPFM-observed value with the separator-observed
// reference used during a calibration window.
type DualSideValue struct {
	MPFM      float64
	Separator float64
}

// CalibrationStatus mirrors parse status naming but is domain-specific.
type CalibrationStatus string

const (
	CalibrationAccepted CalibrationStatus = "ACCEPTED"
	CalibrationPartial  CalibrationStatus = "PARTIAL" // one or more K-factors withheld
)

// CalibrationFact is keyed by (asset, calibration_no).
type CalibrationFact struct {
	ID             int64
	AssetTag       string
	CalibrationNo  int
	WindowStart    time.Time
	WindowEnd      time.Time
	Status         CalibrationStatus

	KFactors map[CalibrationPhase]KFactor

	AvgPressureKPA  DualSideValue
	AvgTemperatureC DualSideValue
	Densities       map[CalibrationPhase]DualSideValue

	AccumulatedMass map[CalibrationPhase]DualSideValue

	Flags []string // ignore_for_k_update, cal_factor_outlier_<phase>

	OwningRawFileID int64
}

// ApplyKFactorFlags evaluates §3's K-factor discipline against the record's
// new K-factors and returns the flags to attach, plus the set of phases whose
// new factor must be withheld (never propagated).
func ApplyKFactorFlags(factors map[CalibrationPhase]KFactor) (flags []string, withheld map[CalibrationPhase]bool) {
	withheld = make(map[CalibrationPhase]bool)
	if kf, ok := factors[CalWater]; ok {
		_ = kf
		flags = append(flags, FlagIgnoreForKUpdate)
		withheld[CalWater] = true
	}
	for _, phase := range AllCalibrationPhases {
		kf, ok := factors[phase]
		if !ok {
			continue
		}
		if kf.New < KFactorOutlierMin || kf.New > KFactorOutlierMax {
			flags = append(flags, KFactorOutlierFlag(phase))
			withheld[phase] = true
		}
	}
	return flags, withheld
}
