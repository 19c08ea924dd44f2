// Package canon implements the Canonicalizer (spec §4.D): translates parser
// records into ProductionFact/CalibrationFact rows on the harmonized unit
// grain, resolves/upserts assets under the first-encounter-seeds rule, and
// persists via Store's idempotent upserts (INSERT OR REPLACE on the natural
// key, per spec).
package canon

import (
	"context"
	"fmt"
	"time"

	"github.com/oilfield/sgmfm/internal/domain"
	"github.com/oilfield/sgmfm/internal/store"
)

// AffectedDay is an (asset, business-date) pair touched by a canonicalize
// call, handed to the Reconciler/Cross-validator afterward (spec §2).
type AffectedDay struct {
	AssetTag     string
	BusinessDate time.Time
}

// Outcome summarizes one Canonicalize call.
type Outcome struct {
	Affected    []AffectedDay
	GasBalances []*domain.GasBalanceRecord // not a Fact grain; analyzer input only
	Alarms      []*domain.XMLAlarmRecord   // not a Fact grain; analyzer input only
	Warnings    []string
}

type Canonicalizer struct {
	store store.Store
}

func New(st store.Store) *Canonicalizer {
	return &Canonicalizer{store: st}
}

// unitFactor converts a raw unit token into the harmonized unit's multiplier,
// or reports it unconvertible (spec §4.D / §7: "unconvertible values yield
// an ERR_UNIT quality flag ... and are stored as absent").
func unitFactor(rawUnit string, volumeBank bool) (float64, bool) {
	switch normalizeUnit(rawUnit) {
	case "":
		return 1, true // absent unit token: assume already harmonized
	case "t", "ton", "tonne", "tonnes":
		return 1, !volumeBank
	case "kg":
		return 0.001, !volumeBank
	case "sm3", "std m3", "nm3":
		return 1, volumeBank
	case "m3":
		return 1, volumeBank // standard conditions assumed absent a reference correction
	case "kpa":
		return 1, true
	case "bar":
		return 100, true
	case "c", "degc":
		return 1, true
	case "kgm3", "kg/m3":
		return 1, true
	default:
		return 0, false
	}
}

func normalizeUnit(u string) string {
	s := ""
	for _, r := range u {
		if r == ' ' || r == '.' || r == '°' {
			continue
		}
		s += string(r)
	}
	return lower(s)
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Canonicalize translates every record produced by one RawFile into facts,
// persists them, and returns the (asset, date) pairs touched.
func (c *Canonicalizer) Canonicalize(ctx context.Context, rawFileID int64, shape domain.ReportShape, records []domain.ParserRecord) (Outcome, error) {
	var out Outcome
	seen := map[string]bool{}

	addAffected := func(tag string, businessDate time.Time) {
		key := fmt.Sprintf("%s|%s", tag, businessDate.Format("2006-01-02"))
		if !seen[key] {
			seen[key] = true
			out.Affected = append(out.Affected, AffectedDay{AssetTag: tag, BusinessDate: businessDate})
		}
	}

	for _, rec := range records {
		switch r := rec.(type) {
		case *domain.SpreadsheetProductionRecord:
			fact := c.spreadsheetToFact(r, shape, rawFileID, &out.Warnings)
			asset := domain.Asset{Tag: r.AssetTag, Kind: domain.AssetTopside}
			if err := c.upsertFact(ctx, asset, fact, &out.Warnings); err != nil {
				return out, err
			}
			addAffected(fact.AssetTag, fact.BusinessDate)

		case *domain.GasBalanceRecord:
			out.GasBalances = append(out.GasBalances, r)

		case *domain.MPFMProductionRecord:
			fact := c.mpfmToFact(r, shape, rawFileID, &out.Warnings)
			asset := domain.Asset{Tag: r.AssetTag, Kind: domain.AssetMPFM, Bank: r.Bank, Stream: r.Stream, Riser: r.Riser}
			if err := c.upsertFact(ctx, asset, fact, &out.Warnings); err != nil {
				return out, err
			}
			addAffected(fact.AssetTag, fact.BusinessDate)

		case *domain.MPFMCalibrationRecord:
			if err := c.upsertCalibration(ctx, r, rawFileID); err != nil {
				return out, err
			}

		case *domain.XMLProductionRecord:
			asset := domain.Asset{Tag: r.AssetTag, Kind: domain.AssetTopside}
			for _, fact := range c.xmlToFacts(r, shape, rawFileID, &out.Warnings) {
				if err := c.upsertFact(ctx, asset, fact, &out.Warnings); err != nil {
					return out, err
				}
				addAffected(fact.AssetTag, fact.BusinessDate)
			}

		case *domain.XMLAlarmRecord:
			out.Alarms = append(out.Alarms, r)
		}
	}
	return out, nil
}

func businessDateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// upsertFact resolves/upserts the owning asset under the first-encounter-
// seeds rule (spec §4.D: later encounters that disagree on Bank/Stream/Riser
// never overwrite what was seeded, they only warn) and then upserts the fact
// itself on its natural key.
func (c *Canonicalizer) upsertFact(ctx context.Context, asset domain.Asset, f domain.ProductionFact, warnings *[]string) error {
	if _, mismatched, err := c.store.UpsertAsset(ctx, asset); err != nil {
		return err
	} else if mismatched {
		*warnings = append(*warnings, "canon: asset "+f.AssetTag+" dimensions disagree with earlier encounter, kept earlier value")
	}
	return c.store.UpsertProductionFact(ctx, f)
}

func (c *Canonicalizer) upsertCalibration(ctx context.Context, r *domain.MPFMCalibrationRecord, rawFileID int64) error {
	status := domain.CalibrationAccepted
	if len(r.Withheld) > 0 {
		status = domain.CalibrationPartial
	}
	fact := domain.CalibrationFact{
		AssetTag:        r.AssetTag,
		CalibrationNo:   r.CalibrationNo,
		WindowStart:     r.WindowStart,
		WindowEnd:       r.WindowEnd,
		Status:          status,
		KFactors:        r.KFactors,
		AvgPressureKPA:  r.AvgPressureKPA,
		AvgTemperatureC: r.AvgTemperatureC,
		Densities:       r.Densities,
		AccumulatedMass: r.AccumulatedMass,
		Flags:           r.Flags,
		OwningRawFileID: rawFileID,
	}
	if _, _, err := c.store.UpsertAsset(ctx, domain.Asset{Tag: r.AssetTag, Kind: domain.AssetMPFM}); err != nil {
		return err
	}
	return c.store.UpsertCalibrationFact(ctx, fact)
}

// spreadsheetToFact lifts the already bank/phase-keyed Metrics map, applying
// unit harmonization against RawUnits and pulling the special
// avg_pressure_kpa/avg_temperature_c/density_<phase>_kgm3 keys into their own
// fields (spec §4.B.1 parseAnchorBlock / §4.D).
func (c *Canonicalizer) spreadsheetToFact(r *domain.SpreadsheetProductionRecord, shape domain.ReportShape, rawFileID int64, warnings *[]string) domain.ProductionFact {
	f := domain.ProductionFact{
		AssetTag:        r.AssetTag,
		ReportType:      r.ReportType,
		PeriodStart:     r.PeriodStart,
		PeriodEnd:       r.PeriodEnd,
		BusinessDate:    businessDateOf(r.PeriodEnd),
		Metrics:         map[string]float64{},
		Densities:       map[domain.Phase]float64{},
		OwningRawFileID: rawFileID,
		SourceShape:     shape,
	}
	for key, val := range r.Metrics {
		switch {
		case key == "avg_pressure_kpa":
			v := val
			f.AvgPressureKPA = &v
			continue
		case key == "avg_temperature_c":
			v := val
			f.AvgTemperatureC = &v
			continue
		case isDensityKey(key):
			f.Densities[densityPhase(key)] = val
			continue
		}
		applyHarmonized(f.Metrics, &f.QualityFlags, key, val, r.RawUnits[key], warnings)
	}
	return f
}

func (c *Canonicalizer) mpfmToFact(r *domain.MPFMProductionRecord, shape domain.ReportShape, rawFileID int64, warnings *[]string) domain.ProductionFact {
	f := domain.ProductionFact{
		AssetTag:        r.AssetTag,
		ReportType:      r.ReportType,
		PeriodStart:     r.PeriodStart,
		PeriodEnd:       r.PeriodEnd,
		BusinessDate:    businessDateOf(r.PeriodEnd),
		Metrics:         map[string]float64{},
		AvgPressureKPA:  r.AvgPressureKPA,
		AvgTemperatureC: r.AvgTemperatureC,
		Densities:       r.Densities,
		OwningRawFileID: rawFileID,
		SourceShape:     shape,
	}
	for key, val := range r.Metrics {
		applyHarmonized(f.Metrics, &f.QualityFlags, key, val, "", warnings)
	}
	return f
}

// xmlToFacts maps a regulator XML production record's Periods onto the
// declared bank/phase metric grain. The shape fixes the phase (001 is oil,
// 002/003 are gas per §4.B.3); CorrectedVolume lands on the PVT-reference
// standard-volume bank since that is the only declared bank sharing its
// unit (Sm3), making it the one XML value the Cross-validator can compare
// against spreadsheet/PDF sources for the same asset/day. Gross volume and
// the remaining flow-computer fields have no declared-bank counterpart and
// are kept as auxiliary, non-reconciled metric keys.
func (c *Canonicalizer) xmlToFacts(r *domain.XMLProductionRecord, shape domain.ReportShape, rawFileID int64, warnings *[]string) []domain.ProductionFact {
	phase := domain.PhaseGas
	if shape == domain.ShapeXML001 {
		phase = domain.PhaseOil
	}

	facts := make([]domain.ProductionFact, 0, len(r.Periods))
	for _, p := range r.Periods {
		reportType := domain.ReportHourly
		if p.PeriodEnd.Sub(p.PeriodStart) >= 23*time.Hour {
			reportType = domain.ReportDaily
		}
		pressure, temperature := p.PressureKPA, p.TemperatureC
		f := domain.ProductionFact{
			AssetTag:        r.AssetTag,
			ReportType:      reportType,
			PeriodStart:     p.PeriodStart,
			PeriodEnd:       p.PeriodEnd,
			BusinessDate:    businessDateOf(p.PeriodEnd),
			Metrics:         map[string]float64{},
			AvgPressureKPA:  &pressure,
			AvgTemperatureC: &temperature,
			Densities:       map[domain.Phase]float64{phase: p.DensityKgM3},
			OwningRawFileID: rawFileID,
			SourceShape:     shape,
		}
		f.SetMetric(domain.BankPVTRefVolumeStd, phase, p.CorrectedVolume)
		f.Metrics["xml_gross_volume_sm3"] = p.GrossVolume
		f.Metrics["xml_net_volume_sm3"] = p.NetVolume
		f.Metrics["xml_bsw_pct"] = p.BSW
		f.Metrics["xml_meter_factor"] = p.MeterFactor
		facts = append(facts, f)
	}
	if len(facts) == 0 {
		*warnings = append(*warnings, "canon: xml production record for "+r.AssetTag+" carried no periods")
	}
	return facts
}

func isDensityKey(key string) bool {
	return len(key) > 9 && key[:8] == "density_" && key[len(key)-5:] == "_kgm3"
}

func densityPhase(key string) domain.Phase {
	return domain.Phase(key[8 : len(key)-5])
}

// applyHarmonized converts val from rawUnit into the harmonized unit implied
// by key (Sm3 for pvt_ref_volume keys, tonnes for every other key) and
// stores it, or flags ERR_UNIT and leaves it absent if unconvertible.
func applyHarmonized(metrics map[string]float64, qualityFlags *[]string, key string, val float64, rawUnit string, warnings *[]string) {
	volumeBank := len(key) > 4 && (contains(key, "pvt_ref_volume"))
	factor, ok := unitFactor(rawUnit, volumeBank)
	if !ok {
		*qualityFlags = append(*qualityFlags, domain.QualityErrUnit)
		*warnings = append(*warnings, fmt.Sprintf("canon: unconvertible unit %q for %s, stored absent", rawUnit, key))
		return
	}
	metrics[key] = val * factor
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
