package domain

import "time"

// AlertSeverity mirrors original_source's daily_analyzer.AlertSeverity.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "INFO"
	SeverityWarning  AlertSeverity = "WARNING"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// AlertType enumerates the operational-limit checks the analyzer runs.
type AlertType string

const (
	AlertBSWHigh            AlertType = "BSW_HIGH"
	AlertGasBalanceError    AlertType = "GAS_BALANCE_ERROR"
	AlertProductionVariation AlertType = "PRODUCTION_VARIATION"
	AlertMissingData        AlertType = "MISSING_DATA"
)

// OperationalLimit is an overridable warning/critical threshold for one
// analyzer parameter (SPEC_FULL.md "Operational Limits Analyzer").
type OperationalLimit struct {
	Parameter   string
	Warning     float64
	Critical    float64
	Unit        string
	Description string
	Active      bool
}

// DefaultOperationalLimits mirrors the constants the original analyzer used
// when no override row existed.
func DefaultOperationalLimits() map[string]OperationalLimit {
	return map[string]OperationalLimit{
		"BSW":                 {Parameter: "BSW", Warning: 30, Critical: 50, Unit: "%"},
		"GAS_BALANCE":         {Parameter: "GAS_BALANCE", Warning: 1, Critical: 2, Unit: "%"},
		"PRODUCTION_VARIATION": {Parameter: "PRODUCTION_VARIATION", Warning: 15, Critical: 25, Unit: "%"},
	}
}

// Alert is the analyzer's output value.
type Alert struct {
	Type         AlertType
	Severity     AlertSeverity
	AssetTag     string
	BusinessDate time.Time
	Parameter    string
	CurrentValue float64
	LimitValue   float64
	Unit         string
	Message      string
}
