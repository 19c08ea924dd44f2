package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/oilfield/sgmfm/internal/domain"
)

// PostgresStore implements Store over Postgres via pgx's database/sql
// driver, queried through sqlx — the same pairing the teacher uses
// (`pgx/v5/stdlib` registering the "pgx" driver, `jmoiron/sqlx` and
// `lib/pq` for convenience helpers such as array/JSON handling) elsewhere
// in its db layer.
type PostgresStore struct {
	db *sqlx.DB
}

// Open connects to Postgres using the pgx stdlib driver.
func Open(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connecting: %w", err)
	}
	db.MapperFunc(toSnakeCase)
	return &PostgresStore{db: db}, nil
}

// toSnakeCase maps exported struct field names (AssetTag, OwningRawFileID)
// to the matching snake_case column name (asset_tag, owning_raw_file_id)
// sqlx uses for struct scans. An underscore is only inserted before an
// uppercase letter that follows a lowercase one, so acronym runs like "ID"
// collapse correctly instead of becoming "i_d".
func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func businessDateOf(t time.Time) time.Time {
	y, m, d := t.In(time.UTC).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *PostgresStore) StageRawFile(ctx context.Context, rf domain.RawFile, force bool) (domain.RawFile, bool, error) {
	var existing domain.RawFile
	var status string
	err := s.db.GetContext(ctx, &status, `SELECT status FROM raw_file WHERE fingerprint = $1`, rf.Fingerprint)
	if err == nil {
		if status == string(domain.ParseSuccess) && !force {
			if loadErr := s.db.GetContext(ctx, &existing, rawFileSelect+` WHERE fingerprint = $1`, rf.Fingerprint); loadErr != nil {
				return domain.RawFile{}, false, loadErr
			}
			return existing, true, nil
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return domain.RawFile{}, false, err
	}

	var id int64
	row := s.db.QueryRowxContext(ctx, `
		INSERT INTO raw_file (filename, fingerprint, size_bytes, shape, status, source_path, batch_id, staged_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7, now())
		ON CONFLICT (fingerprint) DO UPDATE SET status = EXCLUDED.status, batch_id = EXCLUDED.batch_id
		RETURNING id`,
		rf.Filename, rf.Fingerprint, rf.Size, rf.Shape, rf.Status, rf.SourcePath, rf.BatchID)
	if err := row.Scan(&id); err != nil {
		return domain.RawFile{}, false, fmt.Errorf("store: staging raw file: %w", err)
	}
	rf.ID = id
	return rf, false, nil
}

const rawFileSelect = `SELECT id, filename, fingerprint, size_bytes AS size, shape, status, source_path, batch_id, record_count, staged_at, parsed_at FROM raw_file`

func (s *PostgresStore) UpdateRawFileResult(ctx context.Context, rf domain.RawFile) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE raw_file SET status=$1, record_count=$2, warnings=$3, errors=$4, parsed_at=now()
		WHERE id=$5`,
		rf.Status, rf.RecordCount, pq.Array(rf.Warnings), pq.Array(rf.Errors), rf.ID)
	return err
}

func (s *PostgresStore) CreateBatch(ctx context.Context, b domain.Batch) (domain.Batch, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, `
		INSERT INTO batch (name, fingerprint, file_count, status) VALUES ($1,$2,$3,$4) RETURNING id`,
		b.Name, b.Fingerprint, b.FileCount, b.Status)
	if err != nil {
		return domain.Batch{}, fmt.Errorf("store: creating batch: %w", err)
	}
	b.ID = id
	return b, nil
}

func (s *PostgresStore) UpdateBatchStatus(ctx context.Context, batchID int64, status domain.BatchStatus) error {
	_, err := s.db.ExecContext(ctx, `UPDATE batch SET status=$1, finished_at = CASE WHEN $1 IN ('COMPLETED','FAILED','CANCELLED') THEN now() ELSE finished_at END WHERE id=$2`, status, batchID)
	return err
}

func (s *PostgresStore) UpsertManifest(ctx context.Context, m domain.Manifest) (domain.Manifest, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, `
		INSERT INTO manifest (batch_id, asset_tag, business_date, expected_hourly, found_hourly, has_daily, has_calibration, quality_flags)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (batch_id, asset_tag, business_date) DO UPDATE SET
			found_hourly = manifest.found_hourly + EXCLUDED.found_hourly,
			has_daily = manifest.has_daily OR EXCLUDED.has_daily,
			has_calibration = manifest.has_calibration OR EXCLUDED.has_calibration,
			quality_flags = EXCLUDED.quality_flags
		RETURNING id`,
		m.BatchID, m.AssetTag, businessDateOf(m.BusinessDate), m.ExpectedHourly, m.FoundHourly, m.HasDaily, m.HasCalibration, pq.Array(m.QualityFlags))
	if err != nil {
		return domain.Manifest{}, fmt.Errorf("store: upserting manifest: %w", err)
	}
	m.ID = id
	return m, nil
}

func (s *PostgresStore) UpsertAsset(ctx context.Context, a domain.Asset) (domain.Asset, bool, error) {
	var existing domain.Asset
	err := s.db.GetContext(ctx, &existing, `SELECT tag, kind, bank, stream, riser, created_at FROM asset WHERE tag=$1`, a.Tag)
	if errors.Is(err, sql.ErrNoRows) {
		_, err := s.db.ExecContext(ctx, `INSERT INTO asset (tag, kind, bank, stream, riser) VALUES ($1,$2,$3,$4,$5)`,
			a.Tag, a.Kind, a.Bank, a.Stream, a.Riser)
		if err != nil {
			return domain.Asset{}, false, fmt.Errorf("store: inserting asset: %w", err)
		}
		return a, false, nil
	}
	if err != nil {
		return domain.Asset{}, false, err
	}
	mismatched := existing.Kind != a.Kind || existing.Bank != a.Bank || existing.Stream != a.Stream || existing.Riser != a.Riser
	return existing, mismatched, nil
}

func (s *PostgresStore) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	var out []domain.Asset
	if err := s.db.SelectContext(ctx, &out, `SELECT tag, kind, bank, stream, riser, created_at FROM asset`); err != nil {
		return nil, fmt.Errorf("store: listing assets: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpsertProductionFact(ctx context.Context, f domain.ProductionFact) error {
	metrics, err := json.Marshal(f.Metrics)
	if err != nil {
		return err
	}
	densities, err := json.Marshal(f.Densities)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO production_fact (asset_tag, report_type, period_start, period_end, business_date, metrics, avg_pressure_kpa, avg_temperature_c, densities, quality_flags, owning_raw_file_id, source_shape)
		VALUES ($1,$2,$3,$4,$5,$6::jsonb,$7,$8,$9::jsonb,$10,$11,$12)
		ON CONFLICT (asset_tag, period_end, report_type) DO UPDATE SET
			period_start = EXCLUDED.period_start,
			business_date = EXCLUDED.business_date,
			metrics = EXCLUDED.metrics,
			avg_pressure_kpa = EXCLUDED.avg_pressure_kpa,
			avg_temperature_c = EXCLUDED.avg_temperature_c,
			densities = EXCLUDED.densities,
			quality_flags = EXCLUDED.quality_flags,
			owning_raw_file_id = EXCLUDED.owning_raw_file_id,
			source_shape = EXCLUDED.source_shape`,
		f.AssetTag, f.ReportType, f.PeriodStart, f.PeriodEnd, businessDateOf(f.BusinessDate), string(metrics),
		f.AvgPressureKPA, f.AvgTemperatureC, string(densities), pq.Array(f.QualityFlags), f.OwningRawFileID, f.SourceShape)
	return err
}

func (s *PostgresStore) UpsertCalibrationFact(ctx context.Context, f domain.CalibrationFact) error {
	kFactors, _ := json.Marshal(f.KFactors)
	avgP, _ := json.Marshal(f.AvgPressureKPA)
	avgT, _ := json.Marshal(f.AvgTemperatureC)
	densities, _ := json.Marshal(f.Densities)
	accum, _ := json.Marshal(f.AccumulatedMass)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calibration_fact (asset_tag, calibration_no, window_start, window_end, status, k_factors, avg_pressure_kpa, avg_temperature_c, densities, accumulated_mass, flags, owning_raw_file_id)
		VALUES ($1,$2,$3,$4,$5,$6::jsonb,$7::jsonb,$8::jsonb,$9::jsonb,$10::jsonb,$11,$12)
		ON CONFLICT (calibration_no, asset_tag) DO UPDATE SET
			window_start = EXCLUDED.window_start,
			window_end = EXCLUDED.window_end,
			status = EXCLUDED.status,
			k_factors = EXCLUDED.k_factors,
			avg_pressure_kpa = EXCLUDED.avg_pressure_kpa,
			avg_temperature_c = EXCLUDED.avg_temperature_c,
			densities = EXCLUDED.densities,
			accumulated_mass = EXCLUDED.accumulated_mass,
			flags = EXCLUDED.flags,
			owning_raw_file_id = EXCLUDED.owning_raw_file_id`,
		f.AssetTag, f.CalibrationNo, f.WindowStart, f.WindowEnd, f.Status, string(kFactors), string(avgP), string(avgT),
		string(densities), string(accum), pq.Array(f.Flags), f.OwningRawFileID)
	return err
}

func (s *PostgresStore) ProductionFactsForDate(ctx context.Context, assetTag string, businessDate time.Time) (*domain.ProductionFact, []domain.ProductionFact, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT asset_tag, report_type, period_start, period_end, business_date, metrics, avg_pressure_kpa, avg_temperature_c, densities, quality_flags, owning_raw_file_id
		FROM production_fact WHERE asset_tag=$1 AND business_date=$2`, assetTag, businessDateOf(businessDate))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var daily *domain.ProductionFact
	var hourlies []domain.ProductionFact
	for rows.Next() {
		f, err := scanProductionFact(rows)
		if err != nil {
			return nil, nil, err
		}
		switch f.ReportType {
		case domain.ReportDaily:
			fc := f
			daily = &fc
		case domain.ReportHourly:
			hourlies = append(hourlies, f)
		}
	}
	return daily, hourlies, rows.Err()
}

func scanProductionFact(rows *sqlx.Rows) (domain.ProductionFact, error) {
	var f domain.ProductionFact
	var metricsRaw, densitiesRaw []byte
	var qualityFlags pq.StringArray
	if err := rows.Scan(&f.AssetTag, &f.ReportType, &f.PeriodStart, &f.PeriodEnd, &f.BusinessDate,
		&metricsRaw, &f.AvgPressureKPA, &f.AvgTemperatureC, &densitiesRaw, &qualityFlags, &f.OwningRawFileID); err != nil {
		return f, err
	}
	f.QualityFlags = []string(qualityFlags)
	f.Metrics = map[string]float64{}
	if len(metricsRaw) > 0 {
		_ = json.Unmarshal(metricsRaw, &f.Metrics)
	}
	f.Densities = map[domain.Phase]float64{}
	if len(densitiesRaw) > 0 {
		_ = json.Unmarshal(densitiesRaw, &f.Densities)
	}
	return f, nil
}

func (s *PostgresStore) ReplaceReconciliationVerdicts(ctx context.Context, assetTag string, businessDate time.Time, verdicts []domain.ReconciliationVerdict) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	bd := businessDateOf(businessDate)
	if _, err := tx.ExecContext(ctx, `DELETE FROM reconciliation_verdict WHERE asset_tag=$1 AND business_date=$2`, assetTag, bd); err != nil {
		return err
	}
	for _, v := range verdicts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO reconciliation_verdict (asset_tag, business_date, metric, daily_value, sum_hourly_value, abs_delta, rel_delta, verdict)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			v.AssetTag, bd, v.Metric, v.DailyValue, v.SumHourlyValue, v.AbsDelta, v.RelDelta, v.Verdict); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) ObservedValues(ctx context.Context, assetTag string, businessDate time.Time, timeWindow, metric string) (map[domain.SourceClass]float64, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT source_shape, metrics FROM production_fact
		WHERE asset_tag=$1 AND business_date=$2
		ORDER BY period_end`, assetTag, businessDateOf(businessDate))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[domain.SourceClass]float64{}
	for rows.Next() {
		var shape string
		var metricsRaw []byte
		if err := rows.Scan(&shape, &metricsRaw); err != nil {
			return nil, err
		}
		class, ok := domain.ClassOf(domain.ReportShape(shape))
		if !ok {
			continue
		}
		var metrics map[string]float64
		if len(metricsRaw) > 0 {
			_ = json.Unmarshal(metricsRaw, &metrics)
		}
		if v, ok := metrics[metric]; ok {
			out[class] = v
		}
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpsertCrossVerdict(ctx context.Context, v domain.CrossVerdict) error {
	observed, _ := json.Marshal(v.Observed)
	present, _ := json.Marshal(v.SourcesPresent)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cross_verdict (asset_tag, business_date, time_window, metric, observed, sources_present, max_abs_deviation, max_rel_deviation, applied_tolerance, classification)
		VALUES ($1,$2,$3,$4,$5::jsonb,$6::jsonb,$7,$8,$9,$10)
		ON CONFLICT (asset_tag, business_date, time_window, metric) DO UPDATE SET
			observed = EXCLUDED.observed,
			sources_present = EXCLUDED.sources_present,
			max_abs_deviation = EXCLUDED.max_abs_deviation,
			max_rel_deviation = EXCLUDED.max_rel_deviation,
			applied_tolerance = EXCLUDED.applied_tolerance,
			classification = EXCLUDED.classification,
			computed_at = now()`,
		v.AssetTag, businessDateOf(v.BusinessDate), v.TimeWindow, v.Metric, string(observed), string(present),
		v.MaxAbsDeviation, v.MaxRelDeviation, v.AppliedTolerance, v.Classification)
	return err
}

func (s *PostgresStore) GetOpenStreak(ctx context.Context, assetTag, metric string) (*domain.InconsistencyStreak, error) {
	var st domain.InconsistencyStreak
	err := s.db.GetContext(ctx, &st, `
		SELECT id, asset_tag, metric, status, first_occurrence, last_occurrence, consecutive_days
		FROM inconsistency_streak WHERE asset_tag=$1 AND metric=$2 AND status='ACTIVE'`, assetTag, metric)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *PostgresStore) UpsertStreak(ctx context.Context, st domain.InconsistencyStreak) error {
	if st.ID == 0 {
		return s.db.GetContext(ctx, &st.ID, `
			INSERT INTO inconsistency_streak (asset_tag, metric, status, first_occurrence, last_occurrence, consecutive_days)
			VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
			st.AssetTag, st.Metric, st.Status, st.FirstOccurrence, st.LastOccurrence, st.ConsecutiveDays)
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE inconsistency_streak SET status=$1, last_occurrence=$2, consecutive_days=$3 WHERE id=$4`,
		st.Status, st.LastOccurrence, st.ConsecutiveDays, st.ID)
	return err
}

func (s *PostgresStore) InsertNonConformance(ctx context.Context, nc domain.NonConformance) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO non_conformance (event_id, asset_tag, variable, occurrence_date, detected_at, deviation, partial_deadline, final_deadline)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (event_id) DO NOTHING`,
		nc.EventID, nc.AssetTag, nc.Variable, nc.OccurrenceDate, nc.DetectedAt, nc.Deviation, nc.PartialDeadline, nc.FinalDeadline)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *PostgresStore) InsertAlert(ctx context.Context, a domain.Alert) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert (alert_type, severity, asset_tag, business_date, parameter, current_value, limit_value, unit, message)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.Type, a.Severity, a.AssetTag, businessDateOf(a.BusinessDate), a.Parameter, a.CurrentValue, a.LimitValue, a.Unit, a.Message)
	return err
}

func (s *PostgresStore) BatchHistory(ctx context.Context, limit int) ([]domain.Batch, error) {
	var out []domain.Batch
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, name, fingerprint, file_count, status, created_at, finished_at
		FROM batch ORDER BY created_at DESC LIMIT $1`, limit)
	return out, err
}

func (s *PostgresStore) ActiveNonConformances(ctx context.Context) ([]domain.NonConformance, error) {
	var out []domain.NonConformance
	err := s.db.SelectContext(ctx, &out, `
		SELECT event_id, asset_tag, variable, occurrence_date, detected_at, deviation, partial_deadline, final_deadline
		FROM non_conformance ORDER BY detected_at DESC`)
	return out, err
}

func (s *PostgresStore) VerdictSummary(ctx context.Context, from, to time.Time) (map[domain.Verdict]int, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT verdict, count(*) FROM reconciliation_verdict
		WHERE business_date BETWEEN $1 AND $2 GROUP BY verdict`, businessDateOf(from), businessDateOf(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[domain.Verdict]int{}
	for rows.Next() {
		var v string
		var n int
		if err := rows.Scan(&v, &n); err != nil {
			return nil, err
		}
		out[domain.Verdict(v)] = n
	}
	return out, rows.Err()
}
