package domain

import "time"

// Verdict is the per-metric reconciliation outcome.
type Verdict string

const (
	VerdictPass           Verdict = "PASS"
	VerdictWarn           Verdict = "WARN"
	VerdictFail           Verdict = "FAIL"
	VerdictMissingDaily   Verdict = "MISSING_DAILY"
	VerdictMissingHourly  Verdict = "MISSING_HOURLY"
)

// verdictRank orders verdicts worst-first for the day-level overall status
// (spec §4.E: "worst verdict across metrics, FAIL > WARN > PASS > MISSING_*").
var verdictRank = map[Verdict]int{
	VerdictFail:          4,
	VerdictWarn:          3,
	VerdictPass:          2,
	VerdictMissingDaily:  1,
	VerdictMissingHourly: 1,
}

// WorstVerdict returns the worst of a and b by verdictRank; ties keep a.
func WorstVerdict(a, b Verdict) Verdict {
	if verdictRank[b] > verdictRank[a] {
		return b
	}
	return a
}

// ReconciliationVerdict is per (asset, business_date, metric).
type ReconciliationVerdict struct {
	ID             int64
	AssetTag       string
	BusinessDate   time.Time
	Metric         string
	DailyValue     *float64
	SumHourlyValue *float64
	AbsDelta       float64
	RelDelta       float64
	Verdict        Verdict
	ComputedAt     time.Time
}
