// Package store defines the durable persistence boundary (spec §4.G): typed
// upserts and range queries over assets, raw files, batches, facts, verdicts,
// streaks and non-conformances, with uniqueness enforced at the schema level
// for idempotency.
package store

import (
	"context"
	"time"

	"github.com/oilfield/sgmfm/internal/domain"
)

// Store is the full persistence surface the pipeline stages depend on.
type Store interface {
	Close() error

	// StageRawFile upserts a RawFile keyed by fingerprint. If a row already
	// exists with ParseStatus == SUCCESS and force is false, existed is true
	// and the caller should short-circuit (spec §4.C step 2).
	StageRawFile(ctx context.Context, rf domain.RawFile, force bool) (result domain.RawFile, existed bool, err error)
	UpdateRawFileResult(ctx context.Context, rf domain.RawFile) error

	CreateBatch(ctx context.Context, b domain.Batch) (domain.Batch, error)
	UpdateBatchStatus(ctx context.Context, batchID int64, status domain.BatchStatus) error
	UpsertManifest(ctx context.Context, m domain.Manifest) (domain.Manifest, error)

	// UpsertAsset applies the first-encounter-seeds rule: the first call for
	// a tag sets Kind/Bank/Stream/Riser; later calls never overwrite them,
	// returning mismatched=true if the caller's values disagree.
	UpsertAsset(ctx context.Context, a domain.Asset) (result domain.Asset, mismatched bool, err error)

	// ListAssets returns every known asset, for the Operational Limits
	// Analyzer's missing-data sweep.
	ListAssets(ctx context.Context) ([]domain.Asset, error)

	UpsertProductionFact(ctx context.Context, f domain.ProductionFact) error
	UpsertCalibrationFact(ctx context.Context, f domain.CalibrationFact) error

	// ProductionFactsForDate fetches the DAILY fact (nil if absent) and all
	// HOURLY facts for (assetTag, businessDate), for reconciliation.
	ProductionFactsForDate(ctx context.Context, assetTag string, businessDate time.Time) (daily *domain.ProductionFact, hourlies []domain.ProductionFact, err error)

	// ReplaceReconciliationVerdicts deletes prior verdicts for (assetTag,
	// businessDate) and inserts the new set in one transaction (spec §4.E).
	ReplaceReconciliationVerdicts(ctx context.Context, assetTag string, businessDate time.Time, verdicts []domain.ReconciliationVerdict) error

	// ObservedValues returns, for a (assetTag, businessDate, timeWindow,
	// metric) cross-validation group, the latest value contributed by each
	// source class present.
	ObservedValues(ctx context.Context, assetTag string, businessDate time.Time, timeWindow, metric string) (map[domain.SourceClass]float64, error)

	UpsertCrossVerdict(ctx context.Context, v domain.CrossVerdict) error

	GetOpenStreak(ctx context.Context, assetTag, metric string) (*domain.InconsistencyStreak, error)
	UpsertStreak(ctx context.Context, s domain.InconsistencyStreak) error

	// InsertNonConformance is idempotent on EventID; inserted is false if the
	// row already existed.
	InsertNonConformance(ctx context.Context, nc domain.NonConformance) (inserted bool, err error)

	InsertAlert(ctx context.Context, a domain.Alert) error

	// BatchHistory, ActiveNonConformances and VerdictSummary back the
	// read-only `status` CLI surface (spec §6).
	BatchHistory(ctx context.Context, limit int) ([]domain.Batch, error)
	ActiveNonConformances(ctx context.Context) ([]domain.NonConformance, error)
	VerdictSummary(ctx context.Context, from, to time.Time) (map[domain.Verdict]int, error)
}
