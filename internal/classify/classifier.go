// Package classify assigns a domain.ReportShape to each ingested file from
// its filename and, failing that, a content sample (spec §4.A).
package classify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oilfield/sgmfm/internal/domain"
)

var (
	archiveExt = map[string]bool{".zip": true, ".7z": true, ".tar": true, ".gz": true}

	xmlPrefixRe = regexp.MustCompile(`^0*([0-9]{1,3})_`)

	contentHints = []struct {
		shape ReportShapeMatcher
		re    *regexp.Regexp
	}{
		{matchConst(domain.ShapeMPFMHourly), regexp.MustCompile(`(?i)hourly report from`)},
		{matchConst(domain.ShapeMPFMDaily), regexp.MustCompile(`(?i)daily report from`)},
		{matchConst(domain.ShapeMPFMPVTCalibration), regexp.MustCompile(`(?i)mass correction factors`)},
		{matchConst(domain.ShapeSpreadsheetGasBalance), regexp.MustCompile(`(?i)gas balance`)},
		{matchConst(domain.ShapeSpreadsheetDailyOil), regexp.MustCompile(`(?i)cumulative totals`)},
	}
)

// ReportShapeMatcher returns the shape a content hint resolves to.
type ReportShapeMatcher func() domain.ReportShape

func matchConst(s domain.ReportShape) ReportShapeMatcher { return func() domain.ReportShape { return s } }

// filenameRules are evaluated in order; first match wins (spec §4.A).
type filenameRule struct {
	re    *regexp.Regexp
	shape domain.ReportShape
}

var filenameRules = []filenameRule{
	{regexp.MustCompile(`(?i)mpfm.*hourly`), domain.ShapeMPFMHourly},
	{regexp.MustCompile(`(?i)mpfm.*daily`), domain.ShapeMPFMDaily},
	{regexp.MustCompile(`(?i)pvtcalibration`), domain.ShapeMPFMPVTCalibration},
	{regexp.MustCompile(`(?i)daily_oil`), domain.ShapeSpreadsheetDailyOil},
	{regexp.MustCompile(`(?i)daily_gas`), domain.ShapeSpreadsheetDailyGas},
	{regexp.MustCompile(`(?i)daily_water`), domain.ShapeSpreadsheetDailyWater},
	{regexp.MustCompile(`(?i)gasbalance`), domain.ShapeSpreadsheetGasBalance},
}

// Classifier assigns a ReportShape to a file. An optional Redis client
// memoizes content-sniff results keyed by (fingerprint, content-sample hash)
// so "a repeated sniff result must be deterministic" (§4.A) holds even if a
// sniff regex is ever changed to something environment-dependent; Redis
// unavailability degrades to a direct re-sniff, never an error.
type Classifier struct {
	cache *redis.Client
	ttl   time.Duration
}

// New builds a Classifier. cache may be nil to disable memoization.
func New(cache *redis.Client) *Classifier {
	return &Classifier{cache: cache, ttl: 24 * time.Hour}
}

// Classify implements the rule order of spec §4.A: archive extension →
// XML extension with numeric prefix → filename substrings → content sniff →
// UNKNOWN.
func (c *Classifier) Classify(ctx context.Context, fingerprint, filename string, contentSample []byte) domain.ReportShape {
	ext := strings.ToLower(filepath.Ext(filename))
	base := filepath.Base(filename)

	if archiveExt[ext] {
		return domain.ShapeBatchArchive
	}

	if ext == ".xml" {
		if m := xmlPrefixRe.FindStringSubmatch(base); m != nil {
			switch m[1] {
			case "1", "001":
				return domain.ShapeXML001
			case "2", "002":
				return domain.ShapeXML002
			case "3", "003":
				return domain.ShapeXML003
			case "4", "004":
				return domain.ShapeXML004
			}
		}
	}

	for _, rule := range filenameRules {
		if rule.re.MatchString(base) {
			return rule.shape
		}
	}

	if len(contentSample) == 0 {
		return domain.ShapeUnknown
	}

	if shape, ok := c.lookupSniffCache(ctx, fingerprint, contentSample); ok {
		return shape
	}

	shape := sniff(contentSample)
	c.storeSniffCache(ctx, fingerprint, contentSample, shape)
	return shape
}

func sniff(sample []byte) domain.ReportShape {
	text := string(sample)
	for _, hint := range contentHints {
		if hint.re.MatchString(text) {
			return hint.shape()
		}
	}
	return domain.ShapeUnknown
}

func sampleKey(fingerprint string, sample []byte) string {
	h := sha256.Sum256(sample)
	return "sgmfm:sniff:" + fingerprint + ":" + hex.EncodeToString(h[:8])
}

func (c *Classifier) lookupSniffCache(ctx context.Context, fingerprint string, sample []byte) (domain.ReportShape, bool) {
	if c.cache == nil {
		return "", false
	}
	v, err := c.cache.Get(ctx, sampleKey(fingerprint, sample)).Result()
	if err != nil {
		return "", false
	}
	return domain.ReportShape(v), true
}

func (c *Classifier) storeSniffCache(ctx context.Context, fingerprint string, sample []byte, shape domain.ReportShape) {
	if c.cache == nil {
		return
	}
	c.cache.Set(ctx, sampleKey(fingerprint, sample), string(shape), c.ttl)
}
