// Package brandrepair detects and repairs known brand truncation errors,
// where a source mis-tokenizes a multi-word brand as {first word} brand +
// {second word + rest} name.
package brandrepair

import (
	"context"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/normalizers"
	"github.com/Ramsey-B/bramble/pkg/productkey"
)

// MinAutoConfidence is the confidence below which a pattern is logged for
// manual review instead of applied.
const MinAutoConfidence = 0.95

// PatternSource loads the known split patterns
type PatternSource interface {
	ListPatterns(ctx context.Context) ([]models.BrandSplitPattern, error)
}

// Repairer rewrites truncated brands on staging records before matching
type Repairer struct {
	logger   ectologger.Logger
	patterns map[string]models.BrandSplitPattern // keyed by truncated brand slug
}

// NewRepairer creates a repairer from a static pattern set
func NewRepairer(logger ectologger.Logger, patterns []models.BrandSplitPattern) *Repairer {
	byslug := make(map[string]models.BrandSplitPattern, len(patterns))
	for _, p := range patterns {
		byslug[p.TruncatedSlug] = p
	}
	return &Repairer{logger: logger, patterns: byslug}
}

// Load creates a repairer with patterns read from the source
func Load(ctx context.Context, logger ectologger.Logger, source PatternSource) (*Repairer, error) {
	patterns, err := source.ListPatterns(ctx)
	if err != nil {
		return nil, err
	}
	return NewRepairer(logger, patterns), nil
}

// Apply repairs the record in place if it matches a known split pattern.
// Returns true when a rewrite happened. The operation is idempotent: a record
// whose brand is already the full multi-word form does not match the
// truncated slug again, so re-running it changes nothing.
func (r *Repairer) Apply(ctx context.Context, rec *models.StagingRecord) bool {
	pattern, ok := r.patterns[rec.BrandSlug]
	if !ok {
		return false
	}

	// The leftover token must actually lead the name, otherwise the truncated
	// slug is a legitimate single-word brand that happens to collide.
	name := normalizers.CollapseWhitespace(rec.ProductNameRaw)
	prefix := pattern.LeftoverPrefix
	if !strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
		return false
	}
	rest := strings.TrimSpace(name[len(prefix):])
	if rest == "" {
		return false
	}

	if pattern.Confidence < MinAutoConfidence {
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"record_id":  rec.ID,
			"brand_slug": rec.BrandSlug,
			"full_brand": pattern.FullBrand,
			"confidence": pattern.Confidence,
		}).Warn("Brand split pattern below auto-apply confidence; flagged for manual review")
		return false
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"record_id": rec.ID,
		"from":      rec.BrandRaw,
		"to":        pattern.FullBrand,
	}).Info("Repaired truncated brand")

	rec.BrandRaw = pattern.FullBrand
	rec.ProductNameRaw = rest
	rec.BrandSlug = productkey.Slugify(pattern.FullBrand)
	rec.NameSlug = productkey.Slugify(rest)
	rec.ProductKeyComputed = productkey.Compute(rec.BrandRaw, rec.ProductNameRaw)
	return true
}
