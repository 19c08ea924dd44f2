// Package stage implements the Stager (spec §4.C): fingerprinting,
// at-most-once deduplication, batch/manifest bookkeeping, and the transient
// I/O retry loop of §7. Every store attempt inside that loop runs through a
// circuit breaker, so sustained store failures open it and later attempts
// fail fast instead of reaching the store.
package stage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sony/gobreaker"

	"github.com/oilfield/sgmfm/internal/domain"
	"github.com/oilfield/sgmfm/internal/metrics"
	"github.com/oilfield/sgmfm/internal/store"
)

// RawFileRef is the handle returned by Stage (spec §4.C contract).
type RawFileRef struct {
	RawFile  domain.RawFile
	Existed  bool // short-circuited: already staged with a SUCCESS parse
}

// Stager coordinates fingerprinting, staging and manifest bookkeeping.
type Stager struct {
	store   store.Store
	metrics *metrics.Registry
	breaker *gobreaker.CircuitBreaker

	maxRetries int
	baseDelay  time.Duration
}

// New builds a Stager. The breaker trips after more than 5 consecutive store
// failures (from any concurrent stage() call, spec §5) and stays open for a
// 10-second cool-down before allowing a trial attempt.
func New(st store.Store, reg *metrics.Registry) *Stager {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "stager-store",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
	return &Stager{store: st, metrics: reg, breaker: cb, maxRetries: 3, baseDelay: 200 * time.Millisecond}
}

// Fingerprint hashes file content with SHA-256, hex-encoded (spec §4.C step 1).
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Stage upserts the RawFile keyed by fingerprint, short-circuiting if it was
// already staged with a SUCCESS parse (unless force is set). The at-most-
// once guarantee is enforced by the store's unique constraint on
// fingerprint; a losing concurrent call observes the winner's row.
func (s *Stager) Stage(ctx context.Context, batchID int64, filename string, content []byte, shape domain.ReportShape, force bool) (RawFileRef, error) {
	fp := Fingerprint(content)
	rf := domain.RawFile{
		Filename:    filename,
		Fingerprint: fp,
		Size:        int64(len(content)),
		Shape:       shape,
		Status:      domain.ParsePending,
		BatchID:     &batchID,
	}

	result, existed, err := s.stageWithRetry(ctx, rf, force)
	if err != nil {
		return RawFileRef{}, err
	}
	return RawFileRef{RawFile: result, Existed: existed}, nil
}

// stageWithRetry retries transient I/O failures against the store with
// exponential backoff (spec §7: "retried up to 3 times with exponential
// backoff"), guarded by the breaker so a sustained store outage stops being
// hammered by every racing worker.
func (s *Stager) stageWithRetry(ctx context.Context, rf domain.RawFile, force bool) (domain.RawFile, bool, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return domain.RawFile{}, false, ctx.Err()
			}
		}

		out, err := s.breaker.Execute(func() (interface{}, error) {
			result, existed, err := s.store.StageRawFile(ctx, rf, force)
			if err != nil {
				return nil, err
			}
			return stageOutcome{result, existed}, nil
		})
		if err == nil {
			o := out.(stageOutcome)
			return o.rf, o.existed, nil
		}
		lastErr = err
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			continue
		}
		if !isTransient(err) {
			return domain.RawFile{}, false, err
		}
	}
	return domain.RawFile{}, false, lastErr
}

type stageOutcome struct {
	rf      domain.RawFile
	existed bool
}

// isTransient treats context cancellation and programmer errors (foreign-key
// violations) as final; every other store failure is treated as generic I/O
// and retried (spec §7 distinguishes the two).
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
		return false
	}
	return true
}

// Finish writes back the parse outcome for a staged file (spec §4.C step 4).
func (s *Stager) Finish(ctx context.Context, rf domain.RawFile) error {
	return s.store.UpdateRawFileResult(ctx, rf)
}

// Manifest upserts the per-(asset, date) manifest counters for a batch
// (spec §4.C step 3).
func (s *Stager) Manifest(ctx context.Context, m domain.Manifest) (domain.Manifest, error) {
	result, err := s.store.UpsertManifest(ctx, m)
	if err != nil {
		return domain.Manifest{}, err
	}
	if result.FoundHourly < domain.ExpectedHourlyCount {
		hasFlag := false
		for _, f := range result.QualityFlags {
			if f == domain.QualityBatchIncomplete {
				hasFlag = true
				break
			}
		}
		if !hasFlag {
			result.QualityFlags = append(result.QualityFlags, domain.QualityBatchIncomplete)
		}
	}
	return result, nil
}
