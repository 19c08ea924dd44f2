// Package crossvalidate implements the Cross-validator (spec §4.F): for one
// (asset, business_date, time_window, metric) it compares the values
// contributed by each present source class (spreadsheet/xml/pdf/txt),
// classifies the group, and maintains the per-(asset, metric) inconsistency
// streak that escalates to a NonConformance after EscalationDays.
package crossvalidate

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oilfield/sgmfm/internal/domain"
	"github.com/oilfield/sgmfm/internal/store"
)

// Tolerance is the per-metric absolute/relative pair (spec §4.F).
type Tolerance struct {
	Abs float64
	Pct float64
}

var (
	massTolerance   = Tolerance{Abs: 0, Pct: 0.005}
	volumeTolerance = Tolerance{Abs: 0, Pct: 0.001}
	energyTolerance = Tolerance{Abs: 0, Pct: 0.01}
	exactTolerance  = Tolerance{Abs: 0, Pct: 0}
)

func defaultToleranceOf(metric string) Tolerance {
	switch {
	case metric == "flow_time":
		return exactTolerance
	case strings.HasPrefix(metric, "energy_"):
		return energyTolerance
	case strings.HasSuffix(metric, "_sm3"):
		return volumeTolerance
	default:
		return massTolerance
	}
}

// CrossValidator holds a per-(asset, metric) mutex set so the streak update
// step stays serialized under concurrent (asset, date) processing (spec §5).
type CrossValidator struct {
	store       store.Store
	toleranceOf func(metric string) Tolerance

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(st store.Store) *CrossValidator {
	return &CrossValidator{store: st, toleranceOf: defaultToleranceOf, locks: map[string]*sync.Mutex{}}
}

// WithToleranceFunc overrides the per-metric tolerance lookup.
func (c *CrossValidator) WithToleranceFunc(f func(metric string) Tolerance) *CrossValidator {
	c.toleranceOf = f
	return c
}

func (c *CrossValidator) lockFor(assetTag, metric string) *sync.Mutex {
	key := assetTag + "|" + metric
	c.locksMu.Lock()
	defer c.locksMu.Unlock()
	l, ok := c.locks[key]
	if !ok {
		l = &sync.Mutex{}
		c.locks[key] = l
	}
	return l
}

// Result bundles a classification with the non-conformance it may have
// triggered (nil unless a streak just escalated).
type Result struct {
	Verdict        domain.CrossVerdict
	NonConformance *domain.NonConformance
}

// Validate classifies one (asset, business_date, time_window, metric) group
// and applies the streak-maintenance rule of spec §4.F.
func (c *CrossValidator) Validate(ctx context.Context, assetTag string, businessDate time.Time, timeWindow, metric string) (Result, error) {
	observed, err := c.store.ObservedValues(ctx, assetTag, businessDate, timeWindow, metric)
	if err != nil {
		return Result{}, err
	}

	verdict := classify(assetTag, businessDate, timeWindow, metric, observed, c.toleranceOf(metric))
	if err := c.store.UpsertCrossVerdict(ctx, verdict); err != nil {
		return Result{}, err
	}

	lock := c.lockFor(assetTag, metric)
	lock.Lock()
	defer lock.Unlock()

	nc, err := c.applyStreak(ctx, assetTag, businessDate, metric, verdict.Classification)
	if err != nil {
		return Result{}, err
	}
	return Result{Verdict: verdict, NonConformance: nc}, nil
}

func classify(assetTag string, businessDate time.Time, timeWindow, metric string, observed map[domain.SourceClass]float64, tol Tolerance) domain.CrossVerdict {
	v := domain.CrossVerdict{
		AssetTag:       assetTag,
		BusinessDate:   businessDate,
		TimeWindow:     timeWindow,
		Metric:         metric,
		Observed:       observed,
		SourcesPresent: map[domain.SourceClass]bool{},
		ComputedAt:     time.Now(),
	}
	for class := range observed {
		v.SourcesPresent[class] = true
	}

	switch len(observed) {
	case 0:
		v.Classification = domain.CrossNoData
		return v
	case 1:
		v.Classification = domain.CrossSingleSource
		return v
	}

	var maxVal, minVal float64
	first := true
	for _, val := range observed {
		if first {
			maxVal, minVal = val, val
			first = false
			continue
		}
		if val > maxVal {
			maxVal = val
		}
		if val < minVal {
			minVal = val
		}
	}

	maxAbs := maxVal - minVal
	reference := maxVal
	denom := absF(maxVal)
	if absF(minVal) > denom {
		denom = absF(minVal)
	}
	var maxPct float64
	if denom > 0 {
		maxPct = maxAbs / denom
	}
	applied := tol.Abs
	if t := absF(reference) * tol.Pct; t > applied {
		applied = t
	}

	v.MaxAbsDeviation = maxAbs
	v.MaxRelDeviation = maxPct
	v.AppliedTolerance = applied

	switch {
	case maxAbs == 0:
		v.Classification = domain.CrossConsistent
	case maxAbs <= applied:
		v.Classification = domain.CrossAcceptable
	default:
		v.Classification = domain.CrossInconsistent
	}
	return v
}

func absF(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// applyStreak implements spec §4.F's streak-maintenance rule. Must be called
// with the (asset, metric) lock held.
func (c *CrossValidator) applyStreak(ctx context.Context, assetTag string, businessDate time.Time, metric string, classification domain.CrossClassification) (*domain.NonConformance, error) {
	streak, err := c.store.GetOpenStreak(ctx, assetTag, metric)
	if err != nil {
		return nil, err
	}

	if classification != domain.CrossInconsistent {
		if streak != nil && streak.Status == domain.StreakActive {
			streak.Status = domain.StreakResolved
			if err := c.store.UpsertStreak(ctx, *streak); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	if streak == nil {
		streak = &domain.InconsistencyStreak{
			AssetTag:        assetTag,
			Metric:          metric,
			Status:          domain.StreakActive,
			FirstOccurrence: businessDate,
			LastOccurrence:  businessDate,
			ConsecutiveDays: 1,
		}
	} else if sameDate(streak.LastOccurrence.AddDate(0, 0, 1), businessDate) {
		streak.ConsecutiveDays++
		streak.LastOccurrence = businessDate
	} else {
		streak.ConsecutiveDays = 1
		streak.FirstOccurrence = businessDate
		streak.LastOccurrence = businessDate
	}

	var nc *domain.NonConformance
	if streak.ConsecutiveDays >= domain.EscalationDays {
		streak.Status = domain.StreakEscalated
		built := domain.NewNonConformance(assetTag, metric, businessDate, time.Now(), "INCONSISTENT")
		if _, err := c.store.InsertNonConformance(ctx, built); err != nil {
			return nil, err
		}
		nc = &built
	}

	if err := c.store.UpsertStreak(ctx, *streak); err != nil {
		return nil, err
	}
	return nc, nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
