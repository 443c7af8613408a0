// Package matching resolves staged records against the canonical catalog
// through a fixed tier ladder:
//  1. exact product key
//  2. exact (brand_slug, name_slug) pair
//  3. fuzzy name similarity restricted to the same brand
//
// Earlier tiers win outright; the fuzzy tier is the only one that consults
// thresholds.
package matching

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/stem/pkg/tracing"
)

// Config contains configuration for the matching engine.
type Config struct {
	AutoMergeThreshold float64 // Fuzzy score at or above which to auto-merge (default: 0.8)
	ReviewThreshold    float64 // Fuzzy score at or above which to flag for review (default: 0.5)
	MaxCandidates      int     // Maximum fuzzy candidates to load per brand (default: 500)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		AutoMergeThreshold: 0.8,
		ReviewThreshold:    0.5,
		MaxCandidates:      500,
	}
}

// CanonicalReader is the catalog lookup surface the engine needs.
type CanonicalReader interface {
	GetByProductKey(ctx context.Context, productKey string) (*models.CanonicalProduct, error)
	GetByBrandNameSlug(ctx context.Context, brandSlug, nameSlug string) (*models.CanonicalProduct, error)
	ListByBrandSlug(ctx context.Context, brandSlug string, limit int) ([]models.CanonicalProduct, error)
}

// Engine finds the canonical product a staged record belongs to.
type Engine struct {
	log        ectologger.Logger
	catalog    CanonicalReader
	similarity Similarity
	cfg        Config
}

// NewEngine creates a new matching engine. A nil similarity falls back to
// token-set scoring.
func NewEngine(log ectologger.Logger, catalog CanonicalReader, similarity Similarity, cfg Config) *Engine {
	if similarity == nil {
		similarity = NewTokenSetSimilarity()
	}
	return &Engine{
		log:        log,
		catalog:    catalog,
		similarity: similarity,
		cfg:        cfg,
	}
}

// Resolve walks the tier ladder for a single staged record. It never returns
// a candidate from a different brand: fuzzy comparison is restricted to
// canonical products sharing the record's brand slug.
func (e *Engine) Resolve(ctx context.Context, rec *models.StagingRecord) (*models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.Resolve")
	defer span.End()

	log := e.log.WithContext(ctx).WithFields(map[string]any{
		"staging_id":  rec.ID,
		"product_key": rec.ProductKeyComputed,
	})

	// Tier 1: exact product key
	byKey, err := e.catalog.GetByProductKey(ctx, rec.ProductKeyComputed)
	if err != nil {
		log.WithError(err).Error("Failed to look up product by key")
		return nil, err
	}
	if byKey != nil {
		return &models.MatchResult{
			Tier:       models.MatchTierExactKey,
			Confidence: 1.0,
			Candidate:  byKey,
		}, nil
	}

	// Tier 2: exact brand+name slug pair. Hits here mean the record's key
	// differs from the canonical key for the same product, usually after a
	// brand repair changed the key derivation.
	bySlug, err := e.catalog.GetByBrandNameSlug(ctx, rec.BrandSlug, rec.NameSlug)
	if err != nil {
		log.WithError(err).Error("Failed to look up product by slug pair")
		return nil, err
	}
	if bySlug != nil {
		return &models.MatchResult{
			Tier:       models.MatchTierBrandNameSlug,
			Confidence: 0.9,
			Candidate:  bySlug,
		}, nil
	}

	// Tier 3: fuzzy within brand
	candidates, err := e.catalog.ListByBrandSlug(ctx, rec.BrandSlug, e.cfg.MaxCandidates)
	if err != nil {
		log.WithError(err).Error("Failed to list brand candidates")
		return nil, err
	}
	if len(candidates) == 0 {
		return &models.MatchResult{Tier: models.MatchTierNone}, nil
	}

	best, score := e.bestCandidate(rec.NameSlug, candidates)

	switch {
	case score >= e.cfg.AutoMergeThreshold:
		return &models.MatchResult{
			Tier:       models.MatchTierFuzzy,
			Confidence: score,
			Candidate:  best,
		}, nil
	case score >= e.cfg.ReviewThreshold:
		log.WithFields(map[string]any{
			"candidate_key": best.ProductKey,
			"score":         score,
		}).Info("Fuzzy score in review band; record will not auto-merge")
		return &models.MatchResult{
			Tier:        models.MatchTierNone,
			NeedsReview: true,
			ReviewScore: score,
			Candidate:   best,
		}, nil
	default:
		return &models.MatchResult{Tier: models.MatchTierNone}, nil
	}
}

// Nearest returns the closest same-brand candidate and its score regardless
// of thresholds, or nil when the brand has no canonical products. Diagnostics
// use this to explain near misses.
func (e *Engine) Nearest(ctx context.Context, rec *models.StagingRecord) (*models.CanonicalProduct, float64, error) {
	candidates, err := e.catalog.ListByBrandSlug(ctx, rec.BrandSlug, e.cfg.MaxCandidates)
	if err != nil {
		return nil, 0, err
	}
	if len(candidates) == 0 {
		return nil, 0, nil
	}
	best, score := e.bestCandidate(rec.NameSlug, candidates)
	return best, score, nil
}

// bestCandidate scores every candidate name slug and returns the winner.
// Ties break toward the most recently updated product so repeated resolutions
// against a stable catalog stay deterministic.
func (e *Engine) bestCandidate(nameSlug string, candidates []models.CanonicalProduct) (*models.CanonicalProduct, float64) {
	type scored struct {
		idx   int
		score float64
	}

	results := make([]scored, 0, len(candidates))
	for i := range candidates {
		results = append(results, scored{
			idx:   i,
			score: e.similarity.Score(nameSlug, candidates[i].NameSlug),
		})
	}

	sort.SliceStable(results, func(a, b int) bool {
		if results[a].score != results[b].score {
			return results[a].score > results[b].score
		}
		return candidates[results[a].idx].UpdatedAt.After(candidates[results[b].idx].UpdatedAt)
	})

	top := results[0]
	return &candidates[top.idx], top.score
}
