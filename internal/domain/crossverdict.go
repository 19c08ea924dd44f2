package domain

import "time"

// CrossClassification is the Cross-validator's per-group outcome.
type CrossClassification string

const (
	CrossConsistent   CrossClassification = "CONSISTENT"
	CrossAcceptable   CrossClassification = "ACCEPTABLE"
	CrossInconsistent CrossClassification = "INCONSISTENT"
	CrossSingleSource CrossClassification = "SINGLE_SOURCE"
	CrossNoData       CrossClassification = "NO_DATA"
)

// CrossVerdict is per (asset, business_date, time_window, metric).
type CrossVerdict struct {
	ID              int64
	AssetTag        string
	BusinessDate    time.Time
	TimeWindow      string // e.g. "HOURLY:2024-01-01T03:00:00Z" or "DAILY"
	Metric          string
	Observed        map[SourceClass]float64
	SourcesPresent  map[SourceClass]bool
	MaxAbsDeviation float64
	MaxRelDeviation float64
	AppliedTolerance float64
	Classification  CrossClassification
	ComputedAt      time.Time
}
