package domain

import (
	"fmt"
	"time"
)

// StreakStatus is the lifecycle state of an InconsistencyStreak.
type StreakStatus string

const (
	StreakActive    StreakStatus = "ACTIVE"
	StreakResolved  StreakStatus = "RESOLVED"
	StreakEscalated StreakStatus = "ESCALATED"
)

// EscalationDays is the number of consecutive INCONSISTENT days that
// transitions a streak to ESCALATED. The Cross-validator always uses this
// constant; the config value cross_validation.escalation_days is not applied.
const EscalationDays = 10

// InconsistencyStreak is per (asset, metric).
type InconsistencyStreak struct {
	ID              int64
	AssetTag        string
	Metric          string
	Status          StreakStatus
	FirstOccurrence time.Time
	LastOccurrence  time.Time
	ConsecutiveDays int
}

// NonConformanceID builds the deterministic, idempotent NC key of spec §4.F:
// "NC-CV-{asset}-{metric}-{date}".
func NonConformanceID(asset, metric string, occurrence time.Time) string {
	return fmt.Sprintf("NC-CV-%s-%s-%s", asset, metric, occurrence.Format("2006-01-02"))
}
