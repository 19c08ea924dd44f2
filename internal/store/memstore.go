package store

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/oilfield/sgmfm/internal/domain"
)

// MemStore is an in-memory Store used by the other packages' tests so the
// Canonicalizer/Reconciler/Cross-validator can be exercised without a live
// Postgres instance. It implements the uniqueness/idempotency rules the real
// schema enforces (fingerprint, natural-key upserts, first-encounter-seeds
// assets, one ACTIVE streak per asset/metric) in plain Go maps.
type MemStore struct {
	mu sync.Mutex

	assets       map[string]domain.Asset
	rawByFP      map[string]domain.RawFile
	rawByID      map[int64]domain.RawFile
	nextRawID    int64
	batches      map[int64]domain.Batch
	nextBatchID  int64
	manifests    map[string]domain.Manifest
	nextManiID   int64
	facts        map[string]domain.ProductionFact // key: assetTag|periodEnd|reportType
	calibrations map[string]domain.CalibrationFact // key: calibrationNo|assetTag
	verdicts     map[string][]domain.ReconciliationVerdict
	crossVerdict map[string]domain.CrossVerdict
	streaks      map[string]domain.InconsistencyStreak // key: assetTag|metric, ACTIVE only
	nonconf      map[string]domain.NonConformance
	alerts       []domain.Alert
}

func NewMemStore() *MemStore {
	return &MemStore{
		assets:       map[string]domain.Asset{},
		rawByFP:      map[string]domain.RawFile{},
		rawByID:      map[int64]domain.RawFile{},
		batches:      map[int64]domain.Batch{},
		manifests:    map[string]domain.Manifest{},
		facts:        map[string]domain.ProductionFact{},
		calibrations: map[string]domain.CalibrationFact{},
		verdicts:     map[string][]domain.ReconciliationVerdict{},
		crossVerdict: map[string]domain.CrossVerdict{},
		streaks:      map[string]domain.InconsistencyStreak{},
		nonconf:      map[string]domain.NonConformance{},
	}
}

func (m *MemStore) Close() error { return nil }

func (m *MemStore) StageRawFile(ctx context.Context, rf domain.RawFile, force bool) (domain.RawFile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.rawByFP[rf.Fingerprint]; ok {
		if existing.Status == domain.ParseSuccess && !force {
			return existing, true, nil
		}
		return existing, false, nil
	}
	m.nextRawID++
	rf.ID = m.nextRawID
	rf.StagedAt = time.Now()
	m.rawByFP[rf.Fingerprint] = rf
	m.rawByID[rf.ID] = rf
	return rf, false, nil
}

func (m *MemStore) UpdateRawFileResult(ctx context.Context, rf domain.RawFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rawByID[rf.ID] = rf
	m.rawByFP[rf.Fingerprint] = rf
	return nil
}

func (m *MemStore) CreateBatch(ctx context.Context, b domain.Batch) (domain.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextBatchID++
	b.ID = m.nextBatchID
	b.CreatedAt = time.Now()
	m.batches[b.ID] = b
	return b, nil
}

func (m *MemStore) UpdateBatchStatus(ctx context.Context, batchID int64, status domain.BatchStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[batchID]
	if !ok {
		return nil
	}
	b.Status = status
	if status == domain.BatchCompleted || status == domain.BatchFailed || status == domain.BatchCancelled {
		now := time.Now()
		b.FinishedAt = &now
	}
	m.batches[batchID] = b
	return nil
}

func (m *MemStore) UpsertManifest(ctx context.Context, man domain.Manifest) (domain.Manifest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := manifestKey(man.BatchID, man.AssetTag, man.BusinessDate)
	if existing, ok := m.manifests[key]; ok {
		man.ID = existing.ID
	} else {
		m.nextManiID++
		man.ID = m.nextManiID
	}
	m.manifests[key] = man
	return man, nil
}

func manifestKey(batchID int64, assetTag string, businessDate time.Time) string {
	return strconv.FormatInt(batchID, 10) + "|" + assetTag + "|" + businessDate.Format("2006-01-02")
}

func (m *MemStore) UpsertAsset(ctx context.Context, a domain.Asset) (domain.Asset, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.assets[a.Tag]
	if !ok {
		a.CreatedAt = time.Now()
		m.assets[a.Tag] = a
		return a, false, nil
	}
	mismatched := existing.Kind != a.Kind || existing.Bank != a.Bank || existing.Stream != a.Stream || existing.Riser != a.Riser
	return existing, mismatched, nil
}

func (m *MemStore) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Asset, 0, len(m.assets))
	for _, a := range m.assets {
		out = append(out, a)
	}
	return out, nil
}

func factKey(assetTag string, periodEnd time.Time, reportType domain.ReportType) string {
	return assetTag + "|" + periodEnd.Format(time.RFC3339) + "|" + string(reportType)
}

func (m *MemStore) UpsertProductionFact(ctx context.Context, f domain.ProductionFact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := factKey(f.AssetTag, f.PeriodEnd, f.ReportType)
	if existing, ok := m.facts[key]; ok {
		f.ID = existing.ID
	}
	m.facts[key] = f
	return nil
}

func calibrationKey(calibrationNo int, assetTag string) string {
	return assetTag + "|" + strconv.Itoa(calibrationNo)
}

func (m *MemStore) UpsertCalibrationFact(ctx context.Context, f domain.CalibrationFact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := calibrationKey(f.CalibrationNo, f.AssetTag)
	if existing, ok := m.calibrations[key]; ok {
		f.ID = existing.ID
	}
	m.calibrations[key] = f
	return nil
}

func (m *MemStore) ProductionFactsForDate(ctx context.Context, assetTag string, businessDate time.Time) (*domain.ProductionFact, []domain.ProductionFact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var daily *domain.ProductionFact
	var hourlies []domain.ProductionFact
	for _, f := range m.facts {
		if f.AssetTag != assetTag || !sameDate(f.BusinessDate, businessDate) {
			continue
		}
		f := f
		if f.ReportType == domain.ReportDaily {
			daily = &f
		} else {
			hourlies = append(hourlies, f)
		}
	}
	return daily, hourlies, nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (m *MemStore) ReplaceReconciliationVerdicts(ctx context.Context, assetTag string, businessDate time.Time, verdicts []domain.ReconciliationVerdict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := assetTag + "|" + businessDate.Format("2006-01-02")
	m.verdicts[key] = verdicts
	return nil
}

// ObservedValues picks, per present source class, the value of metric from
// whichever of that source's facts for the day has the latest PeriodEnd
// (ProductionFact's natural key omits source shape, so distinct sources
// sharing the same asset/period_end/report_type would otherwise collide;
// the real join is by time_window, this is a day-level simplification — see
// DESIGN.md).
func (m *MemStore) ObservedValues(ctx context.Context, assetTag string, businessDate time.Time, timeWindow, metric string) (map[domain.SourceClass]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[domain.SourceClass]float64{}
	latest := map[domain.SourceClass]time.Time{}
	for _, f := range m.facts {
		if f.AssetTag != assetTag || !sameDate(f.BusinessDate, businessDate) {
			continue
		}
		class, ok := domain.ClassOf(f.SourceShape)
		if !ok {
			continue
		}
		v, present := f.Metrics[metric]
		if !present {
			continue
		}
		if prev, seen := latest[class]; !seen || f.PeriodEnd.After(prev) {
			latest[class] = f.PeriodEnd
			out[class] = v
		}
	}
	return out, nil
}

func (m *MemStore) UpsertCrossVerdict(ctx context.Context, v domain.CrossVerdict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := v.AssetTag + "|" + v.BusinessDate.Format("2006-01-02") + "|" + v.TimeWindow + "|" + v.Metric
	m.crossVerdict[key] = v
	return nil
}

func (m *MemStore) GetOpenStreak(ctx context.Context, assetTag, metric string) (*domain.InconsistencyStreak, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.streaks[assetTag+"|"+metric]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemStore) UpsertStreak(ctx context.Context, s domain.InconsistencyStreak) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := s.AssetTag + "|" + s.Metric
	if s.Status == domain.StreakActive {
		m.streaks[key] = s
	} else {
		delete(m.streaks, key)
	}
	return nil
}

func (m *MemStore) InsertNonConformance(ctx context.Context, nc domain.NonConformance) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nonconf[nc.EventID]; ok {
		return false, nil
	}
	m.nonconf[nc.EventID] = nc
	return true, nil
}

func (m *MemStore) InsertAlert(ctx context.Context, a domain.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, a)
	return nil
}

func (m *MemStore) BatchHistory(ctx context.Context, limit int) ([]domain.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Batch, 0, len(m.batches))
	for _, b := range m.batches {
		out = append(out, b)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) ActiveNonConformances(ctx context.Context) ([]domain.NonConformance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.NonConformance, 0, len(m.nonconf))
	for _, nc := range m.nonconf {
		out = append(out, nc)
	}
	return out, nil
}

func (m *MemStore) VerdictSummary(ctx context.Context, from, to time.Time) (map[domain.Verdict]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[domain.Verdict]int{}
	for _, vs := range m.verdicts {
		for _, v := range vs {
			if v.BusinessDate.Before(from) || v.BusinessDate.After(to) {
				continue
			}
			out[v.Verdict]++
		}
	}
	return out, nil
}

var _ Store = (*MemStore)(nil)
