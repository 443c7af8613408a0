// Package diagnostics explains how a run's staging records would resolve
// without writing anything. Its purpose is to let an operator tell "genuinely
// new products" apart from "key generation bug" before trusting bulk merge
// output; the two look identical in raw record counts.
package diagnostics

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/pkg/brandrepair"
	"github.com/Ramsey-B/bramble/pkg/matching"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/productkey"
	"github.com/Ramsey-B/stem/pkg/tracing"
)

// RecordDiagnosis explains one staging record's would-be resolution.
type RecordDiagnosis struct {
	StagingRecordID string           `json:"staging_record_id"`
	ProductKey      string           `json:"product_key"`
	BrandSlug       string           `json:"brand_slug"`
	Tier            models.MatchTier `json:"tier"`
	Confidence      float64          `json:"confidence"`
	CandidateKey    string           `json:"candidate_key,omitempty"`
	NearestKey      string           `json:"nearest_key,omitempty"`
	NearestScore    float64          `json:"nearest_score,omitempty"`
	BrandExists     bool             `json:"brand_exists"`
	NeedsReview     bool             `json:"needs_review,omitempty"`
}

// Report aggregates a diagnostic pass over one run.
type Report struct {
	RunID        string                   `json:"run_id"`
	Sampled      int                      `json:"sampled"`
	TierCounts   map[models.MatchTier]int `json:"tier_counts"`
	BrandMissing int                      `json:"brand_missing"`
	Records      []RecordDiagnosis        `json:"records"`
}

// StagingStore loads the records of a run.
type StagingStore interface {
	ListByRunID(ctx context.Context, runID string) ([]models.StagingRecord, error)
}

// Service runs read-only match diagnosis.
type Service struct {
	logger   ectologger.Logger
	staging  StagingStore
	matcher  *matching.Engine
	catalog  matching.CanonicalReader
	repairer *brandrepair.Repairer
}

// NewService creates a new diagnostics service. The repairer may be nil when
// no brand split patterns are loaded.
func NewService(logger ectologger.Logger, staging StagingStore, matcher *matching.Engine, catalog matching.CanonicalReader, repairer *brandrepair.Repairer) *Service {
	return &Service{
		logger:   logger,
		staging:  staging,
		matcher:  matcher,
		catalog:  catalog,
		repairer: repairer,
	}
}

// Diagnose resolves up to sampleSize records of the run through the match
// ladder and reports per-record and per-tier results. A sampleSize of zero or
// less means the whole run.
func (s *Service) Diagnose(ctx context.Context, runID string, sampleSize int) (*Report, error) {
	ctx, span := tracing.StartSpan(ctx, "diagnostics.Service.Diagnose")
	defer span.End()

	log := s.logger.WithContext(ctx).WithField("run_id", runID)

	records, err := s.staging.ListByRunID(ctx, runID)
	if err != nil {
		log.WithError(err).Error("Failed to load staging records")
		return nil, err
	}

	if sampleSize > 0 && len(records) > sampleSize {
		records = records[:sampleSize]
	}

	report := &Report{
		RunID:      runID,
		Sampled:    len(records),
		TierCounts: make(map[models.MatchTier]int),
	}

	for i := range records {
		rec := &records[i]

		// Records go through the same normalize and brand repair pass a merge
		// applies, so the report predicts what a merge would actually do.
		normalize(rec)
		if s.repairer != nil {
			s.repairer.Apply(ctx, rec)
		}

		diag := RecordDiagnosis{
			StagingRecordID: rec.ID,
			ProductKey:      rec.ProductKeyComputed,
			BrandSlug:       rec.BrandSlug,
		}

		result, err := s.matcher.Resolve(ctx, rec)
		if err != nil {
			return nil, err
		}
		diag.Tier = result.Tier
		diag.Confidence = result.Confidence
		diag.NeedsReview = result.NeedsReview
		if result.Candidate != nil {
			diag.CandidateKey = result.Candidate.ProductKey
		}

		nearest, score, err := s.matcher.Nearest(ctx, rec)
		if err != nil {
			return nil, err
		}
		if nearest != nil {
			diag.NearestKey = nearest.ProductKey
			diag.NearestScore = score
			diag.BrandExists = true
		} else {
			report.BrandMissing++
		}

		report.TierCounts[result.Tier]++
		report.Records = append(report.Records, diag)
	}

	log.WithFields(map[string]any{
		"sampled":       report.Sampled,
		"brand_missing": report.BrandMissing,
	}).Info("Diagnosis complete")

	return report, nil
}

func normalize(rec *models.StagingRecord) {
	if rec.BrandSlug == "" {
		rec.BrandSlug = productkey.Slugify(rec.BrandRaw)
	}
	if rec.NameSlug == "" {
		rec.NameSlug = productkey.Slugify(rec.ProductNameRaw)
	}
	if rec.ProductKeyComputed == "" {
		rec.ProductKeyComputed = productkey.Compute(rec.BrandRaw, rec.ProductNameRaw)
	}
}
