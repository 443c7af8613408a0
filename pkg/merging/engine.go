// Package merging implements the canonical merge pass: every staging record
// in a run resolves to exactly one outcome (inserted, updated, no_op or
// skipped with a reason), and the run as a whole is health-checked so key
// drift between harvester and merge engine cannot masquerade as a quiet run.
package merging

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/pkg/admission"
	"github.com/Ramsey-B/bramble/pkg/brandrepair"
	"github.com/Ramsey-B/bramble/pkg/matching"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/productkey"
	"github.com/Ramsey-B/stem/pkg/tracing"
)

// Config contains configuration for the merge engine.
type Config struct {
	MinSampleSize int // Staged count at which a zero-activity run becomes a hard failure (default: 50)
	WorkerCount   int // Concurrent brand partitions (default: 4)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MinSampleSize: 50,
		WorkerCount:   4,
	}
}

// StagingStore loads the records of a run.
type StagingStore interface {
	ListByRunID(ctx context.Context, runID string) ([]models.StagingRecord, error)
}

// CanonicalWriter is the catalog write surface. UpdateFilled addresses the row
// by previousKey so a key rewrite and the field fills land in the same UPDATE.
type CanonicalWriter interface {
	Insert(ctx context.Context, p *models.CanonicalProduct) error
	UpdateFilled(ctx context.Context, p *models.CanonicalProduct, previousKey string) error
}

// PublicationWriter seeds the publication state machine for new products.
type PublicationWriter interface {
	EnsurePending(ctx context.Context, productKey string) error
}

// EventSink publishes catalog change events. Emission failures are logged and
// never fail the merge.
type EventSink interface {
	ProductCreated(ctx context.Context, p *models.CanonicalProduct) error
	ProductUpdated(ctx context.Context, p *models.CanonicalProduct, filledFields []string) error
}

// Engine runs the match-or-create pass over a staged run.
type Engine struct {
	logger       ectologger.Logger
	staging      StagingStore
	canonical    CanonicalWriter
	publications PublicationWriter
	matcher      *matching.Engine
	policy       admission.Policy
	repairer     *brandrepair.Repairer
	events       EventSink
	fieldMerger  *FieldMerger
	cfg          Config
}

// NewEngine creates a new merge engine. The repairer and event sink are
// optional; everything else is required.
func NewEngine(
	logger ectologger.Logger,
	staging StagingStore,
	canonical CanonicalWriter,
	publications PublicationWriter,
	matcher *matching.Engine,
	policy admission.Policy,
	repairer *brandrepair.Repairer,
	events EventSink,
	cfg Config,
) *Engine {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultConfig().WorkerCount
	}
	return &Engine{
		logger:       logger,
		staging:      staging,
		canonical:    canonical,
		publications: publications,
		matcher:      matcher,
		policy:       policy,
		repairer:     repairer,
		events:       events,
		fieldMerger:  NewFieldMerger(),
		cfg:          cfg,
	}
}

// MergeRun processes every staging record of the run and returns the full
// accounting. Records are partitioned by brand slug: matching is restricted to
// a record's own brand and product keys embed the brand slug, so two workers
// on different brands can never race on the same canonical row, while records
// of one brand apply strictly in order.
//
// When the run stages at least MinSampleSize records and not a single one
// resolved to a canonical row, the summary is returned together with a
// *models.HealthCheckError. Re-running a fully merged run stays healthy: the
// records resolve tier 1 and no_op, which counts as resolution.
func (e *Engine) MergeRun(ctx context.Context, runID string) (*models.MergeSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.MergeRun")
	defer span.End()

	log := e.logger.WithContext(ctx).WithField("run_id", runID)

	records, err := e.staging.ListByRunID(ctx, runID)
	if err != nil {
		log.WithError(err).Error("Failed to load staging records")
		return nil, err
	}

	summary := &models.MergeSummary{
		RunID:  runID,
		Staged: len(records),
	}

	if len(records) == 0 {
		log.Info("Run has no staged records")
		return summary, nil
	}

	// Repair runs before partitioning: a brand split fix changes the brand
	// slug, and the slug decides which partition owns the record.
	groups := make(map[string][]models.StagingRecord)
	for i := range records {
		rec := records[i]
		e.normalize(&rec)
		if e.repairer != nil {
			e.repairer.Apply(ctx, &rec)
		}
		groups[rec.BrandSlug] = append(groups[rec.BrandSlug], rec)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	groupCh := make(chan []models.StagingRecord)
	outcomeCh := make(chan models.MergeOutcome)

	var firstErr error
	var errOnce sync.Once

	var workers sync.WaitGroup
	for i := 0; i < e.cfg.WorkerCount; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for group := range groupCh {
				for j := range group {
					outcome, err := e.processRecord(ctx, &group[j])
					if err != nil {
						errOnce.Do(func() {
							firstErr = err
							cancel()
						})
						return
					}
					select {
					case outcomeCh <- outcome:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}

	go func() {
		defer close(groupCh)
		for _, group := range groups {
			select {
			case groupCh <- group:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		workers.Wait()
		close(outcomeCh)
	}()

	for outcome := range outcomeCh {
		summary.Record(outcome)
	}

	if firstErr != nil {
		log.WithError(firstErr).Error("Merge run aborted")
		return nil, firstErr
	}

	log.WithFields(map[string]any{
		"staged":   summary.Staged,
		"inserted": summary.Inserted,
		"updated":  summary.Updated,
		"no_ops":   summary.NoOps,
		"skipped":  summary.Skipped,
	}).Info("Merge run complete")

	resolved := summary.Inserted + summary.Updated + summary.NoOps
	if summary.Staged >= e.cfg.MinSampleSize && resolved == 0 {
		return summary, &models.HealthCheckError{
			RunID:  runID,
			Staged: summary.Staged,
			Merged: resolved,
		}
	}

	return summary, nil
}

// normalize makes the record's derived fields consistent with its raw fields.
// Harvesters are expected to send slugs and a computed key; records from older
// pipelines may carry only raw values, so missing derivations are recomputed.
// Running this twice is a no-op.
func (e *Engine) normalize(rec *models.StagingRecord) {
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

// processRecord resolves one record to its outcome. Record-local problems
// produce a skipped outcome and a nil error; a non-nil error is an
// infrastructure failure that aborts the run.
func (e *Engine) processRecord(ctx context.Context, rec *models.StagingRecord) (models.MergeOutcome, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.processRecord")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"staging_id": rec.ID,
		"run_id":     rec.RunID,
	})

	if err := e.validate(rec); err != nil {
		log.WithError(err).Warn("Record failed normalization")
		return models.MergeOutcome{
			StagingRecordID: rec.ID,
			Kind:            models.MergeOutcomeSkipped,
			SkipReason:      models.SkipReasonInvalidRecord,
		}, nil
	}

	match, err := e.matcher.Resolve(ctx, rec)
	if err != nil {
		return models.MergeOutcome{}, err
	}

	if match.Matched() {
		return e.applyMatch(ctx, rec, match, log)
	}

	if match.NeedsReview {
		log.WithFields(map[string]any{
			"candidate_key": match.Candidate.ProductKey,
			"score":         match.ReviewScore,
		}).Info("Record held for review")
		return models.MergeOutcome{
			StagingRecordID: rec.ID,
			Kind:            models.MergeOutcomeSkipped,
			Tier:            match.Tier,
			SkipReason:      models.SkipReasonNeedsReview,
		}, nil
	}

	return e.applyInsert(ctx, rec, log)
}

// applyMatch updates the matched canonical row. A tier 2 hit also rewrites the
// canonical key to the record's computed key, in the same UPDATE as the field
// fills so the row is never observable with mixed identity.
func (e *Engine) applyMatch(ctx context.Context, rec *models.StagingRecord, match *models.MatchResult, log ectologger.Logger) (models.MergeOutcome, error) {
	product := match.Candidate
	previousKey := product.ProductKey

	filled := e.fieldMerger.Apply(product, rec)

	rewritten := false
	if match.Tier == models.MatchTierBrandNameSlug && rec.ProductKeyComputed != product.ProductKey {
		product.ProductKey = rec.ProductKeyComputed
		rewritten = true
	}

	product.UpdatedAt = time.Now().UTC()
	if err := e.canonical.UpdateFilled(ctx, product, previousKey); err != nil {
		return models.MergeOutcome{}, err
	}

	if rewritten {
		log.WithFields(map[string]any{
			"previous_key": previousKey,
			"product_key":  product.ProductKey,
		}).Info("Rewrote canonical product key from slug-pair match")
	}

	if len(filled) == 0 && !rewritten {
		return models.MergeOutcome{
			StagingRecordID: rec.ID,
			ProductKey:      product.ProductKey,
			Kind:            models.MergeOutcomeNoOp,
			Tier:            match.Tier,
		}, nil
	}

	if e.events != nil {
		if err := e.events.ProductUpdated(ctx, product, filled); err != nil {
			log.WithError(err).Warn("Failed to emit product.updated event")
		}
	}

	return models.MergeOutcome{
		StagingRecordID: rec.ID,
		ProductKey:      product.ProductKey,
		Kind:            models.MergeOutcomeUpdated,
		Tier:            match.Tier,
		FilledFields:    filled,
	}, nil
}

// applyInsert admits an unmatched record as a new canonical product, or skips
// it when the brand is not allowlisted.
func (e *Engine) applyInsert(ctx context.Context, rec *models.StagingRecord, log ectologger.Logger) (models.MergeOutcome, error) {
	permitted, err := e.policy.Permits(ctx, rec.BrandSlug)
	if err != nil {
		return models.MergeOutcome{}, err
	}
	if !permitted {
		log.WithField("brand_slug", rec.BrandSlug).Info("Brand not allowlisted; record skipped")
		return models.MergeOutcome{
			StagingRecordID: rec.ID,
			Kind:            models.MergeOutcomeSkipped,
			Tier:            models.MatchTierNone,
			SkipReason:      models.SkipReasonNotAllowlisted,
		}, nil
	}

	now := time.Now().UTC()
	product := &models.CanonicalProduct{
		ProductKey:        rec.ProductKeyComputed,
		Brand:             rec.BrandRaw,
		BrandSlug:         rec.BrandSlug,
		ProductName:       rec.ProductNameRaw,
		NameSlug:          rec.NameSlug,
		IngredientsRaw:    rec.IngredientsRaw,
		IngredientsTokens: rec.IngredientsTokens,
		ProteinPercent:    rec.ProteinPercent,
		FatPercent:        rec.FatPercent,
		FiberPercent:      rec.FiberPercent,
		AshPercent:        rec.AshPercent,
		MoisturePercent:   rec.MoisturePercent,
		KcalPer100g:       rec.KcalPer100g,
		ImageURL:          rec.ImageURL,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if rec.SourceURL != "" {
		product.Sources = models.StringList{rec.SourceURL}
	}

	if err := e.canonical.Insert(ctx, product); err != nil {
		return models.MergeOutcome{}, err
	}

	if err := e.publications.EnsurePending(ctx, product.ProductKey); err != nil {
		return models.MergeOutcome{}, err
	}

	if e.events != nil {
		if err := e.events.ProductCreated(ctx, product); err != nil {
			log.WithError(err).Warn("Failed to emit product.created event")
		}
	}

	log.WithField("product_key", product.ProductKey).Info("Created canonical product")

	return models.MergeOutcome{
		StagingRecordID: rec.ID,
		ProductKey:      product.ProductKey,
		Kind:            models.MergeOutcomeInserted,
		Tier:            models.MatchTierNone,
	}, nil
}

// validate rejects records that cannot produce a stable identity.
func (e *Engine) validate(rec *models.StagingRecord) error {
	if strings.TrimSpace(rec.BrandRaw) == "" {
		return &models.NormalizationError{Field: "brand_raw", Reason: "empty"}
	}
	if rec.BrandSlug == "" {
		return &models.NormalizationError{Field: "brand_slug", Reason: "brand produced an empty slug"}
	}
	if strings.TrimSpace(rec.ProductNameRaw) == "" {
		return &models.NormalizationError{Field: "product_name_raw", Reason: "empty"}
	}
	if rec.NameSlug == "" {
		return &models.NormalizationError{Field: "name_slug", Reason: "name produced an empty slug"}
	}
	if rec.ProductKeyComputed == "" {
		return &models.NormalizationError{Field: "product_key_computed", Reason: "empty"}
	}
	return nil
}
