// Package xmlparse decodes the regulator production/alarm XML shapes
// (XML_001..XML_004, spec §4.B.3) with the standard library's encoding/xml,
// the same way the rest of the corpus reaches for stdlib when no
// third-party XML library carries a clear advantage over it.
package xmlparse

import (
	"encoding/xml"
	"regexp"

	"github.com/oilfield/sgmfm/internal/domain"
	"github.com/oilfield/sgmfm/internal/parse"
)

// Parser implements parse.Parser for the four regulator XML shapes.
type Parser struct {
	Shape domain.ReportShape
}

var filenameRe = regexp.MustCompile(`^(\d{8})\d*_([A-Za-z0-9\-]+)_`)

func (p Parser) Parse(filename string, content []byte) parse.ParseOutcome {
	if p.Shape == domain.ShapeXML004 {
		return parseAlarm(filename, content)
	}
	return parseProduction(filename, content, p.Shape)
}

func filenameHints(filename string) (cnpj8, installation string) {
	m := filenameRe.FindStringSubmatch(filename)
	if m == nil {
		return "", ""
	}
	return m[1], m[2]
}

func parseProduction(filename string, content []byte, shape domain.ReportShape) parse.ParseOutcome {
	var out parse.ParseOutcome

	var raw rawProduction
	if err := xml.Unmarshal(content, &raw); err != nil {
		out.Fail("xml: decoding production document: " + err.Error())
		return out
	}

	cnpj := cnpj8(raw.CNPJ)
	installation := raw.Plant
	if cnpj == "" || installation == "" {
		fcnpj, finst := filenameHints(filename)
		if cnpj == "" {
			cnpj = fcnpj
		}
		if installation == "" {
			installation = finst
		}
	}

	rec := &domain.XMLProductionRecord{
		AssetTag:     installation,
		Shape:        shape,
		CNPJ8:        cnpj,
		Installation: installation,
		GeneratedAt:  parseXMLTime(raw.Created),
		Config: domain.FlowComputerConfig{
			Serial:              raw.Config.Serial,
			CollectedAt:         parseXMLTime(raw.Config.CollectedAt),
			AmbientConditions:   raw.Config.Ambient,
			ReferenceConditions: raw.Config.Reference,
			SoftwareVersion:     raw.Config.SoftwareVer,
		},
	}

	for i, f := range raw.Factors.Factor {
		if i >= len(rec.MeterFactors) {
			break
		}
		idx := f.Index
		if idx <= 0 {
			idx = i + 1
		}
		rec.MeterFactors[i] = domain.MeterFactorPulse{
			Index:       idx,
			MeterFactor: parseDecimal(f.Factor),
			PulseCount:  parseDecimal(f.Pulses),
		}
	}

	for _, instr := range raw.Instr.Instrument {
		entry := domain.InstrumentRecord{
			Serial:              instr.Serial,
			Kind:                instr.Kind,
			Manufacturer:        instr.Manufacturer,
			Model:               instr.Model,
			Range:               instr.Range,
			LastCalibration:     parseXMLTime(instr.LastCal),
			StandardUncertainty: parseDecimal(instr.Uncertainty),
		}
		switch instr.Kind {
		case "pressao", "pressure":
			rec.Pressure = append(rec.Pressure, entry)
		case "temperatura", "temperature":
			rec.Temperature = append(rec.Temperature, entry)
		default:
			out.AddWarning("xml: instrument with unrecognized kind " + instr.Kind)
		}
	}

	for _, per := range raw.Periods.Period {
		rec.Periods = append(rec.Periods, domain.ProductionPeriod{
			PeriodStart:     parseXMLTime(per.Start),
			PeriodEnd:       parseXMLTime(per.End),
			GrossVolume:     parseDecimal(per.GrossVolume),
			NetVolume:       parseDecimal(per.NetVolume),
			CorrectedVolume: parseDecimal(per.CorrectedVolume),
			TotalizerStart:  parseDecimal(per.TotalizerStart),
			TotalizerEnd:    parseDecimal(per.TotalizerEnd),
			BSW:             parseDecimal(per.BSW),
			DensityKgM3:     parseDecimal(per.Density),
			PressureKPA:     parseDecimal(per.Pressure),
			TemperatureC:    parseDecimal(per.Temperature),
			CTL:             parseDecimal(per.CTL),
			CPL:             parseDecimal(per.CPL),
			CTPL:            parseDecimal(per.CTPL),
			MeterFactor:     parseDecimal(per.MeterFactor),
		})
	}

	out.Records = []domain.ParserRecord{rec}
	out.Success = len(rec.Periods) > 0
	if !out.Success {
		out.Fail("xml: no reporting periods found")
	}
	if cnpj == "" {
		out.AddWarning("xml: no CNPJ root found in document or filename")
	}
	return out
}

func parseAlarm(filename string, content []byte) parse.ParseOutcome {
	var out parse.ParseOutcome

	var raw rawAlarm
	if err := xml.Unmarshal(content, &raw); err != nil {
		out.Fail("xml: decoding alarm document: " + err.Error())
		return out
	}

	cnpj := cnpj8(raw.CNPJ)
	installation := raw.Plant
	if cnpj == "" || installation == "" {
		fcnpj, finst := filenameHints(filename)
		if cnpj == "" {
			cnpj = fcnpj
		}
		if installation == "" {
			installation = finst
		}
	}

	rec := &domain.XMLAlarmRecord{
		AssetTag:     installation,
		CNPJ8:        cnpj,
		Installation: installation,
		GeneratedAt:  parseXMLTime(raw.Created),
	}

	for _, e := range raw.Events.Event {
		rec.Events = append(rec.Events, domain.XMLAlarmEvent{
			Timestamp: parseXMLTime(e.Timestamp),
			Parameter: e.Parameter,
			Value:     e.Value,
			OldValue:  e.OldValue,
			NewValue:  e.NewValue,
			IsAudit:   e.Audit == "true" || e.Audit == "1" || e.OldValue != "" || e.NewValue != "",
		})
	}

	out.Records = []domain.ParserRecord{rec}
	out.Success = len(rec.Events) > 0
	if !out.Success {
		out.Fail("xml: no alarm/audit events found")
	}
	return out
}
