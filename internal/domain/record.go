package domain

import "time"

// RecordKind discriminates the ParserRecord sum type (design note §9: "model
// parser outputs as tagged records per shape, not generic maps").
type RecordKind string

const (
	KindSpreadsheetProduction RecordKind = "spreadsheet_production"
	KindGasBalance            RecordKind = "gas_balance"
	KindMPFMProduction        RecordKind = "mpfm_production"
	KindMPFMCalibration       RecordKind = "mpfm_calibration"
	KindXMLProduction         RecordKind = "xml_production"
	KindXMLAlarm              RecordKind = "xml_alarm"
)

// ParserRecord is implemented by every concrete record variant a Parser
// emits. The Canonicalizer type-switches on Kind() rather than reflecting
// over an untyped map.
type ParserRecord interface {
	Kind() RecordKind
}

// SpreadsheetProductionRecord is one tag/column's worth of values read from
// a cumulative-totals, day-totals or flow-weighted-average anchor block.
type SpreadsheetProductionRecord struct {
	AssetTag    string
	ReportType  ReportType
	PeriodStart time.Time
	PeriodEnd   time.Time
	Metrics     map[string]float64 // MetricKey -> value, already unit-harmonized where possible
	RawUnits    map[string]string  // MetricKey -> unit token as read, for ERR_UNIT detection
}

func (SpreadsheetProductionRecord) Kind() RecordKind { return KindSpreadsheetProduction }

// GasBalanceRow is one row of a gas-balance sheet.
type GasBalanceRow struct {
	Order       int
	Sign        string // "+", "-", "TOTAL"
	Description string
	FlowRate    *float64
	PD          *float64
}

// GasBalanceRecord is a full gas-balance sheet for one asset/period.
type GasBalanceRecord struct {
	AssetTag    string
	PeriodEnd   time.Time
	Rows        []GasBalanceRow
}

func (GasBalanceRecord) Kind() RecordKind { return KindGasBalance }

// MPFMProductionRecord is one HOURLY/DAILY MPFM PDF section (a DAILY report
// may yield several, one per riser section).
type MPFMProductionRecord struct {
	AssetTag    string
	Bank        string
	Stream      string
	Riser       string
	ReportType  ReportType
	PeriodStart time.Time
	PeriodEnd   time.Time
	Metrics     map[string]float64
	AvgPressureKPA  *float64
	AvgTemperatureC *float64
	Densities       map[Phase]float64
}

func (MPFMProductionRecord) Kind() RecordKind { return KindMPFMProduction }

// MPFMCalibrationRecord is the PVT-calibration PDF variant, already carrying
// the K-factor flags computed by the parser per §4.B.2/§3.
type MPFMCalibrationRecord struct {
	AssetTag      string
	CalibrationNo int
	WindowStart   time.Time
	WindowEnd     time.Time
	Label         string // selected MPFM label

	KFactors        map[CalibrationPhase]KFactor
	Withheld        map[CalibrationPhase]bool
	Flags           []string

	AvgPressureKPA  DualSideValue
	AvgTemperatureC DualSideValue
	Densities       map[CalibrationPhase]DualSideValue
	AccumulatedMass map[CalibrationPhase]DualSideValue
}

func (MPFMCalibrationRecord) Kind() RecordKind { return KindMPFMCalibration }

// FlowComputerConfig is the header metadata read from a production-shape XML.
type FlowComputerConfig struct {
	Serial             string
	CollectedAt        time.Time
	AmbientConditions  string
	ReferenceConditions string
	SoftwareVersion    string
}

// MeterFactorPulse is one of the 12 indexed meter-factor/pulse-count pairs.
type MeterFactorPulse struct {
	Index       int
	MeterFactor float64
	PulseCount  float64
}

// InstrumentRecord is one pressure or temperature instrument inventory entry.
type InstrumentRecord struct {
	Serial             string
	Kind               string // "pressure" | "temperature"
	Manufacturer       string
	Model              string
	Range              string
	LastCalibration     time.Time
	StandardUncertainty float64
}

// ProductionPeriod is one reporting period read from a production-shape XML.
type ProductionPeriod struct {
	PeriodStart     time.Time
	PeriodEnd       time.Time
	GrossVolume     float64
	NetVolume       float64
	CorrectedVolume float64
	TotalizerStart  float64
	TotalizerEnd    float64
	BSW             float64
	DensityKgM3     float64
	PressureKPA     float64
	TemperatureC    float64
	CTL             float64
	CPL             float64
	CTPL            float64
	MeterFactor     float64
}

// XMLProductionRecord is the full parse of one DADOS_BASICOS element from a
// 001/002/003 regulator XML file.
type XMLProductionRecord struct {
	AssetTag      string
	Shape         ReportShape
	CNPJ8         string
	Installation  string
	GeneratedAt   time.Time
	Config        FlowComputerConfig
	MeterFactors  [12]MeterFactorPulse
	Pressure      []InstrumentRecord
	Temperature   []InstrumentRecord
	Periods       []ProductionPeriod
}

func (XMLProductionRecord) Kind() RecordKind { return KindXMLProduction }

// XMLAlarmEvent is a single alarm or audit entry from a 004 XML.
type XMLAlarmEvent struct {
	Timestamp time.Time
	Parameter string
	Value     string
	OldValue  string // audit events only
	NewValue  string // audit events only
	IsAudit   bool
}

// XMLAlarmRecord is the full parse of one DADOS_BASICOS element from a 004
// regulator XML file.
type XMLAlarmRecord struct {
	AssetTag     string
	CNPJ8        string
	Installation string
	GeneratedAt  time.Time
	Events       []XMLAlarmEvent
}

func (XMLAlarmRecord) Kind() RecordKind { return KindXMLAlarm }
