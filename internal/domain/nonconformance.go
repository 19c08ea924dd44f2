package domain

import "time"

// NonConformance is opened when an InconsistencyStreak crosses the
// escalation threshold (spec §3, §4.F).
type NonConformance struct {
	EventID          string // NC-CV-{asset}-{metric}-{date}, unique
	AssetTag         string
	Variable         string
	OccurrenceDate   time.Time
	DetectedAt       time.Time
	Deviation        string
	PartialDeadline  time.Time
	FinalDeadline    time.Time
}

// Default deadlines after detection, in calendar days. Mirrors the kind of
// regulatory partial/final correction windows the original system tracked;
// overridable via configuration in a future revision (not a recognized
// option in spec §6, so fixed here).
const (
	DefaultPartialDeadlineDays = 15
	DefaultFinalDeadlineDays   = 30
)

// NewNonConformance builds a NonConformance from an escalating streak.
func NewNonConformance(asset, metric string, occurrence, detectedAt time.Time, deviation string) NonConformance {
	return NonConformance{
		EventID:         NonConformanceID(asset, metric, occurrence),
		AssetTag:        asset,
		Variable:        metric,
		OccurrenceDate:  occurrence,
		DetectedAt:      detectedAt,
		Deviation:       deviation,
		PartialDeadline: detectedAt.AddDate(0, 0, DefaultPartialDeadlineDays),
		FinalDeadline:   detectedAt.AddDate(0, 0, DefaultFinalDeadlineDays),
	}
}
