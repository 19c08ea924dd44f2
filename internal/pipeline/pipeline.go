// Package pipeline orchestrates the staged data-flow of spec §5: classify,
// parse (batch-level parallelism, bounded worker pool), canonicalize, then
// -- once every file in the batch has either succeeded or failed -- run the
// Reconciler, Cross-validator and Operational Limits Analyzer per affected
// (asset, business_date) key.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/oilfield/sgmfm/internal/analyzer"
	"github.com/oilfield/sgmfm/internal/canon"
	"github.com/oilfield/sgmfm/internal/classify"
	"github.com/oilfield/sgmfm/internal/config"
	"github.com/oilfield/sgmfm/internal/crossvalidate"
	"github.com/oilfield/sgmfm/internal/domain"
	"github.com/oilfield/sgmfm/internal/logging"
	"github.com/oilfield/sgmfm/internal/metrics"
	"github.com/oilfield/sgmfm/internal/parse"
	"github.com/oilfield/sgmfm/internal/parse/archive"
	"github.com/oilfield/sgmfm/internal/parse/pdf"
	"github.com/oilfield/sgmfm/internal/parse/spreadsheet"
	"github.com/oilfield/sgmfm/internal/parse/xmlparse"
	"github.com/oilfield/sgmfm/internal/reconcile"
	"github.com/oilfield/sgmfm/internal/stage"
	"github.com/oilfield/sgmfm/internal/store"
)

// FileResult is the per-file outcome reported in a Summary.
type FileResult struct {
	Filename    string
	Shape       domain.ReportShape
	Status      domain.ParseStatus
	RecordCount int
	Warnings    []string
	Errors      []string
}

// DayResult is the post-processing outcome for one affected (asset, date).
type DayResult struct {
	AssetTag        string
	BusinessDate    time.Time
	Reconciliation  domain.Verdict
	CrossVerdicts   []domain.CrossVerdict
	NonConformances []domain.NonConformance
	Alerts          []domain.Alert
}

// Summary is what IngestPath returns: per-file outcomes plus the downstream
// verdicts/alerts computed for every (asset, date) the batch touched.
type Summary struct {
	BatchID  int64
	Status   domain.BatchStatus
	Files    []FileResult
	Days     []DayResult
	Warnings []string
}

// Pipeline wires every stage together: Stager, Classifier, per-shape
// Parsers, Canonicalizer, Reconciler, Cross-validator and Analyzer, all
// sharing one Store and one metrics Registry.
type Pipeline struct {
	cfg config.Config
	st  store.Store
	log zerolog.Logger

	stager      *stage.Stager
	classifier  *classify.Classifier
	canon       *canon.Canonicalizer
	reconciler  *reconcile.Reconciler
	crossValid  *crossvalidate.CrossValidator
	analyzer    *analyzer.Analyzer
	metrics     *metrics.Registry

	maxArchiveBytes int64
}

// New wires a Pipeline from its shared dependencies. cache may be nil to
// disable the Classifier's sniff-result memoization (spec §4.A degrades to
// direct re-sniff when Redis is unavailable).
func New(cfg config.Config, st store.Store, cache *redis.Client, reg *metrics.Registry) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Pipeline{
		cfg:             cfg,
		st:              st,
		log:             logging.Component("pipeline"),
		stager:          stage.New(st, reg),
		classifier:      classify.New(cache),
		canon:           canon.New(st),
		reconciler: reconcile.New(st).WithToleranceFunc(func(metric string) reconcile.Tolerance {
			rc := cfg.Reconciliation
			if strings.HasSuffix(metric, "_sm3") {
				return reconcile.Tolerance{Abs: rc.AbsoluteVolumeSm3, Pct: rc.RelativePct / 100}
			}
			return reconcile.Tolerance{Abs: rc.AbsoluteMassT, Pct: rc.RelativePct / 100}
		}),
		crossValid:      crossvalidate.New(st),
		analyzer:        analyzer.New(st),
		metrics:         reg,
		maxArchiveBytes: archive.DefaultMaxUncompressedBytes,
	}
}

// pendingFile is one file queued for staging, either read off disk or
// extracted from an archive member (no SourcePath in the latter case).
type pendingFile struct {
	Name       string
	Content    []byte
	SourcePath string
}

// IngestPath implements the `ingest <path>` command surface (spec §6): path
// may be a single file, a directory (walked non-recursively into its
// immediate files), or a batch archive, which is expanded and its members
// re-submitted as if individually ingested.
func (p *Pipeline) IngestPath(ctx context.Context, root string) (Summary, error) {
	files, err := gatherFiles(root)
	if err != nil {
		return Summary{}, err
	}

	batch, err := p.st.CreateBatch(ctx, domain.Batch{
		Name:      root,
		FileCount: len(files),
		Status:    domain.BatchPending,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("pipeline: creating batch: %w", err)
	}
	if err := p.st.UpdateBatchStatus(ctx, batch.ID, domain.BatchRunning); err != nil {
		return Summary{}, fmt.Errorf("pipeline: starting batch: %w", err)
	}

	var (
		mu          sync.Mutex
		results     []FileResult
		warnings    []string
		gasBalances []*domain.GasBalanceRecord
		anySuccess  bool
		affected    = map[string]canon.AffectedDay{}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for _, f := range files {
		f := f
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil // batch cancelled: leave unfinished files out, marked below
			}
			fileResults, outcomes := p.processFile(gctx, batch.ID, f)
			mu.Lock()
			defer mu.Unlock()
			for _, fr := range fileResults {
				results = append(results, fr)
				if fr.Status == domain.ParseSuccess || fr.Status == domain.ParsePartial {
					anySuccess = true
				}
				warnings = append(warnings, fr.Warnings...)
			}
			for _, o := range outcomes {
				gasBalances = append(gasBalances, o.GasBalances...)
				for _, day := range o.Affected {
					key := day.AssetTag + "|" + day.BusinessDate.Format("2006-01-02")
					affected[key] = day
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	status := domain.BatchFailed
	switch {
	case ctx.Err() != nil:
		status = domain.BatchCancelled
	case anySuccess:
		status = domain.BatchCompleted
	}
	if err := p.st.UpdateBatchStatus(ctx, batch.ID, status); err != nil {
		return Summary{}, fmt.Errorf("pipeline: finishing batch: %w", err)
	}

	days, err := p.postProcess(ctx, affected, gasBalances)
	if err != nil {
		return Summary{}, err
	}

	return Summary{BatchID: batch.ID, Status: status, Files: results, Days: days, Warnings: warnings}, nil
}

// gatherFiles resolves root to its immediate file list: itself if a file,
// or its direct children (non-recursive) if a directory.
func gatherFiles(root string) ([]pendingFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("pipeline: stat %s: %w", root, err)
	}
	if !info.IsDir() {
		content, err := os.ReadFile(root)
		if err != nil {
			return nil, fmt.Errorf("pipeline: reading %s: %w", root, err)
		}
		return []pendingFile{{Name: filepath.Base(root), Content: content, SourcePath: root}}, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("pipeline: reading dir %s: %w", root, err)
	}
	var out []pendingFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(root, e.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("pipeline: reading %s: %w", path, err)
		}
		out = append(out, pendingFile{Name: e.Name(), Content: content, SourcePath: path})
	}
	return out, nil
}

// processFile stages, classifies and parses one file, recursing synchronously
// into archive members (not through the worker pool, to keep the bounded
// errgroup from deadlocking on self-queued work) and canonicalizing
// everything it parses successfully.
func (p *Pipeline) processFile(ctx context.Context, batchID int64, f pendingFile) ([]FileResult, []canon.Outcome) {
	fp := stage.Fingerprint(f.Content)
	sampleLen := len(f.Content)
	if sampleLen > 4096 {
		sampleLen = 4096
	}
	shape := p.classifier.Classify(ctx, fp, f.Name, f.Content[:sampleLen])
	p.metrics.FilesClassified.WithLabelValues(string(shape)).Inc()

	if shape == domain.ShapeBatchArchive {
		return p.processArchive(ctx, batchID, f)
	}

	rawRef, err := p.stager.Stage(ctx, batchID, f.Name, f.Content, shape, p.cfg.ForceReparse)
	if err != nil {
		return []FileResult{{Filename: f.Name, Shape: shape, Status: domain.ParseFailed, Errors: []string{err.Error()}}}, nil
	}
	if rawRef.Existed {
		return []FileResult{{Filename: f.Name, Shape: shape, Status: rawRef.RawFile.Status, RecordCount: rawRef.RawFile.RecordCount}}, nil
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, p.cfg.ParseTimeout())
	defer cancel()

	parser, ok := parserFor(shape)
	rf := rawRef.RawFile
	if !ok {
		rf.Status = domain.ParseFailed
		rf.Errors = []string{"pipeline: no parser for shape " + string(shape)}
		now := time.Now()
		rf.ParsedAt = &now
		p.metrics.ParseOutcomes.WithLabelValues(string(shape), string(rf.Status)).Inc()
		_ = p.stager.Finish(ctx, rf)
		return []FileResult{{Filename: f.Name, Shape: shape, Status: rf.Status, Errors: rf.Errors}}, nil
	}

	timer := prometheusTimer(p.metrics, "parse")
	outcome := parser.Parse(f.Name, f.Content)
	timer()

	now := time.Now()
	rf.ParsedAt = &now
	rf.RecordCount = len(outcome.Records)
	rf.Warnings = outcome.Warnings
	rf.Errors = outcome.Errors
	switch {
	case timeoutCtx.Err() != nil:
		rf.Status = domain.ParseFailed
		rf.Errors = append(rf.Errors, "pipeline: parse timed out")
	case !outcome.Success && len(outcome.Records) == 0:
		rf.Status = domain.ParseFailed
	case len(outcome.Errors) > 0:
		rf.Status = domain.ParsePartial
	default:
		rf.Status = domain.ParseSuccess
	}
	p.metrics.ParseOutcomes.WithLabelValues(string(shape), string(rf.Status)).Inc()
	p.metrics.RecordsExtracted.Add(float64(len(outcome.Records)))
	if err := p.stager.Finish(ctx, rf); err != nil {
		return []FileResult{{Filename: f.Name, Shape: shape, Status: domain.ParseFailed, Errors: []string{err.Error()}}}, nil
	}

	fr := FileResult{Filename: f.Name, Shape: shape, Status: rf.Status, RecordCount: rf.RecordCount, Warnings: rf.Warnings, Errors: rf.Errors}
	if rf.Status == domain.ParseFailed || len(outcome.Records) == 0 {
		return []FileResult{fr}, nil
	}

	canonOutcome, err := p.canon.Canonicalize(ctx, rf.ID, shape, outcome.Records)
	if err != nil {
		fr.Errors = append(fr.Errors, "pipeline: canonicalize: "+err.Error())
		return []FileResult{fr}, nil
	}
	fr.Warnings = append(fr.Warnings, canonOutcome.Warnings...)
	return []FileResult{fr}, []canon.Outcome{canonOutcome}
}

// processArchive stages the archive itself as a RawFile (so its fingerprint
// participates in at-most-once dedup like any other upload), expands it, and
// recurses processFile over every member so nested archives unwrap fully.
func (p *Pipeline) processArchive(ctx context.Context, batchID int64, f pendingFile) ([]FileResult, []canon.Outcome) {
	rawRef, err := p.stager.Stage(ctx, batchID, f.Name, f.Content, domain.ShapeBatchArchive, p.cfg.ForceReparse)
	if err != nil {
		return []FileResult{{Filename: f.Name, Shape: domain.ShapeBatchArchive, Status: domain.ParseFailed, Errors: []string{err.Error()}}}, nil
	}
	if rawRef.Existed {
		return []FileResult{{Filename: f.Name, Shape: domain.ShapeBatchArchive, Status: rawRef.RawFile.Status}}, nil
	}

	members, err := archive.Expand(f.Content, p.maxArchiveBytes)
	rf := rawRef.RawFile
	now := time.Now()
	rf.ParsedAt = &now
	if err != nil {
		rf.Status = domain.ParseFailed
		rf.Errors = []string{"pipeline: expanding archive: " + err.Error()}
		_ = p.stager.Finish(ctx, rf)
		return []FileResult{{Filename: f.Name, Shape: domain.ShapeBatchArchive, Status: rf.Status, Errors: rf.Errors}}, nil
	}
	rf.Status = domain.ParseSuccess
	rf.RecordCount = len(members)
	if err := p.stager.Finish(ctx, rf); err != nil {
		return []FileResult{{Filename: f.Name, Shape: domain.ShapeBatchArchive, Status: domain.ParseFailed, Errors: []string{err.Error()}}}, nil
	}

	allResults := []FileResult{{Filename: f.Name, Shape: domain.ShapeBatchArchive, Status: rf.Status, RecordCount: rf.RecordCount}}
	var allOutcomes []canon.Outcome
	for _, member := range members {
		memberResults, memberOutcomes := p.processFile(ctx, batchID, pendingFile{Name: member.Name, Content: member.Content})
		allResults = append(allResults, memberResults...)
		allOutcomes = append(allOutcomes, memberOutcomes...)
	}
	return allResults, allOutcomes
}

func parserFor(shape domain.ReportShape) (parse.Parser, bool) {
	switch shape {
	case domain.ShapeSpreadsheetDailyOil, domain.ShapeSpreadsheetDailyGas, domain.ShapeSpreadsheetDailyWater, domain.ShapeSpreadsheetGasBalance:
		return spreadsheet.Parser{Shape: shape}, true
	case domain.ShapeMPFMHourly, domain.ShapeMPFMDaily, domain.ShapeMPFMPVTCalibration:
		return pdf.Parser{Shape: shape}, true
	case domain.ShapeXML001, domain.ShapeXML002, domain.ShapeXML003, domain.ShapeXML004:
		return xmlparse.Parser{Shape: shape}, true
	default:
		return nil, false
	}
}

// postProcess runs the Reconciler, Cross-validator and Analyzer over every
// affected (asset, date) key, honoring spec §5's ordering guarantee: the
// Reconciler sees every parser's final state for that key, and the Cross-
// validator sees the Reconciler's. Units of work across distinct keys run
// concurrently; the Cross-validator's own streak update stays serialized
// per (asset, metric) via its internal lock map regardless of how these
// goroutines interleave.
func (p *Pipeline) postProcess(ctx context.Context, affected map[string]canon.AffectedDay, gasBalances []*domain.GasBalanceRecord) ([]DayResult, error) {
	byTag := map[string][]*domain.GasBalanceRecord{}
	for _, gb := range gasBalances {
		byTag[gb.AssetTag] = append(byTag[gb.AssetTag], gb)
	}

	dates := map[string]time.Time{}
	for _, day := range affected {
		dates[day.BusinessDate.Format("2006-01-02")] = day.BusinessDate
	}

	var (
		mu      sync.Mutex
		results []DayResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for _, day := range affected {
		day := day
		g.Go(func() error {
			dr, err := p.processDay(gctx, day, byTag[day.AssetTag])
			if err != nil {
				return err
			}
			mu.Lock()
			results = append(results, dr)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, date := range dates {
		if _, err := p.analyzer.CheckMissingData(ctx, date); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (p *Pipeline) processDay(ctx context.Context, day canon.AffectedDay, gasBalances []*domain.GasBalanceRecord) (DayResult, error) {
	_, overall, err := p.reconciler.Reconcile(ctx, day.AssetTag, day.BusinessDate)
	if err != nil {
		return DayResult{}, fmt.Errorf("pipeline: reconciling %s/%s: %w", day.AssetTag, day.BusinessDate, err)
	}
	p.metrics.ReconciliationVerdicts.WithLabelValues(string(overall)).Inc()

	var crossVerdicts []domain.CrossVerdict
	var nonConformances []domain.NonConformance
	for _, metric := range domain.ReconciledMetrics() {
		res, err := p.crossValid.Validate(ctx, day.AssetTag, day.BusinessDate, "DAILY", metric)
		if err != nil {
			return DayResult{}, fmt.Errorf("pipeline: cross-validating %s/%s/%s: %w", day.AssetTag, day.BusinessDate, metric, err)
		}
		p.metrics.CrossVerdicts.WithLabelValues(string(res.Verdict.Classification)).Inc()
		crossVerdicts = append(crossVerdicts, res.Verdict)
		if res.NonConformance != nil {
			p.metrics.StreaksEscalated.Inc()
			nonConformances = append(nonConformances, *res.NonConformance)
		}
	}

	alerts, err := p.analyzer.AnalyzeDay(ctx, day.AssetTag, day.BusinessDate, gasBalances)
	if err != nil {
		return DayResult{}, fmt.Errorf("pipeline: analyzing %s/%s: %w", day.AssetTag, day.BusinessDate, err)
	}

	return DayResult{
		AssetTag:        day.AssetTag,
		BusinessDate:    day.BusinessDate,
		Reconciliation:  overall,
		CrossVerdicts:   crossVerdicts,
		NonConformances: nonConformances,
		Alerts:          alerts,
	}, nil
}

func prometheusTimer(reg *metrics.Registry, stage string) func() {
	start := time.Now()
	return func() {
		reg.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}
