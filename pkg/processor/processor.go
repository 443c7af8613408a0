// Package processor handles incoming harvester messages and manages the
// staging pipeline. Observations land in the staging table as they arrive; a
// run.completed signal triggers the merge pass and a promotion sweep for the
// finished run.
package processor

import (
	"context"
	"errors"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Ramsey-B/bramble/pkg/kafka"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/productkey"
	"github.com/Ramsey-B/stem/pkg/tracing"
)

// StagingWriter persists incoming observations.
type StagingWriter interface {
	Create(ctx context.Context, rec *models.StagingRecord) (*models.StagingRecord, error)
}

// MergeRunner merges a completed run.
type MergeRunner interface {
	MergeRun(ctx context.Context, runID string) (*models.MergeSummary, error)
}

// Promoter sweeps pending publication records.
type Promoter interface {
	Promote(ctx context.Context) (*models.PromotionSummary, error)
}

// RunEventSink publishes run-level summary events.
type RunEventSink interface {
	RunMerged(ctx context.Context, summary *models.MergeSummary) error
}

// Processor consumes the staged-products topic.
type Processor struct {
	logger   ectologger.Logger
	staging  StagingWriter
	merger   MergeRunner
	gate     Promoter
	events   RunEventSink
	validate *validator.Validate
}

// NewProcessor creates a new message processor. The event sink is optional.
func NewProcessor(
	logger ectologger.Logger,
	staging StagingWriter,
	merger MergeRunner,
	gate Promoter,
	events RunEventSink,
) *Processor {
	return &Processor{
		logger:   logger,
		staging:  staging,
		merger:   merger,
		gate:     gate,
		events:   events,
		validate: validator.New(),
	}
}

// HandleMessage routes one Kafka message. A nil return commits the offset, so
// malformed or invalid payloads return nil after logging: retrying them can
// never succeed and would wedge the partition.
func (p *Processor) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.HandleMessage")
	defer span.End()

	if msg.IsRunCompleted() {
		evt, err := msg.ParseRunCompleted()
		if err != nil {
			p.logger.WithContext(ctx).WithError(err).Error("Failed to parse run.completed message")
			return nil
		}
		return p.handleRunCompleted(ctx, evt)
	}

	return p.handleHarvestMessage(ctx, msg)
}

// handleHarvestMessage stages one observation. Slugs and the product key are
// computed here, never trusted from the producer, so both sides of the
// pipeline share a single key implementation.
func (p *Processor) handleHarvestMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.handleHarvestMessage")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"topic":  msg.Topic,
		"offset": msg.Offset,
	})

	harvest, err := msg.ParseHarvestMessage()
	if err != nil {
		log.WithError(err).Error("Failed to parse harvest message")
		return nil
	}

	if err := p.validate.Struct(harvest); err != nil {
		log.WithError(err).WithField("run_id", harvest.RunID).Warn("Harvest message failed validation")
		return nil
	}

	rec := p.buildStagingRecord(harvest)

	if _, err := p.staging.Create(ctx, rec); err != nil {
		log.WithError(err).WithField("run_id", rec.RunID).Error("Failed to stage record")
		return err
	}

	log.WithFields(map[string]any{
		"run_id":      rec.RunID,
		"product_key": rec.ProductKeyComputed,
	}).Debug("Staged harvest record")

	return nil
}

// handleRunCompleted merges the finished run and sweeps the publication gate.
// A failed health check is terminal for the message: the failure is loud in
// logs and in the run summary, and redelivery would only fail identically.
func (p *Processor) handleRunCompleted(ctx context.Context, evt *kafka.RunCompletedMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.handleRunCompleted")
	defer span.End()

	log := p.logger.WithContext(ctx).WithField("run_id", evt.RunID)
	log.WithField("staged", evt.Staged).Info("Run completed; starting merge")

	summary, err := p.merger.MergeRun(ctx, evt.RunID)
	if err != nil {
		var healthErr *models.HealthCheckError
		if errors.As(err, &healthErr) {
			log.WithError(err).WithFields(map[string]any{
				"staged": healthErr.Staged,
				"merged": healthErr.Merged,
			}).Error("Merge health check failed; run aborted")
			return nil
		}
		log.WithError(err).Error("Merge run failed")
		return err
	}

	if p.events != nil {
		if err := p.events.RunMerged(ctx, summary); err != nil {
			log.WithError(err).Warn("Failed to emit run.merged event")
		}
	}

	promo, err := p.gate.Promote(ctx)
	if err != nil {
		log.WithError(err).Error("Promotion sweep failed")
		return err
	}

	log.WithFields(map[string]any{
		"inserted": summary.Inserted,
		"updated":  summary.Updated,
		"skipped":  summary.Skipped,
		"promoted": promo.Promoted,
	}).Info("Run merged and promotion sweep complete")

	return nil
}

func (p *Processor) buildStagingRecord(harvest *models.HarvestMessage) *models.StagingRecord {
	extractedAt := harvest.ExtractedAt
	if extractedAt.IsZero() {
		extractedAt = time.Now().UTC()
	}

	return &models.StagingRecord{
		ID:                 uuid.NewString(),
		RunID:              harvest.RunID,
		BrandRaw:           harvest.Brand,
		ProductNameRaw:     harvest.ProductName,
		BrandSlug:          productkey.Slugify(harvest.Brand),
		NameSlug:           productkey.Slugify(harvest.ProductName),
		ProductKeyComputed: productkey.Compute(harvest.Brand, harvest.ProductName),
		IngredientsRaw:     harvest.IngredientsRaw,
		IngredientsTokens:  harvest.IngredientsTokens,
		ProteinPercent:     harvest.ProteinPercent,
		FatPercent:         harvest.FatPercent,
		FiberPercent:       harvest.FiberPercent,
		AshPercent:         harvest.AshPercent,
		MoisturePercent:    harvest.MoisturePercent,
		KcalPer100g:        harvest.KcalPer100g,
		ImageURL:           harvest.ImageURL,
		SourceURL:          harvest.SourceURL,
		ExtractedAt:        extractedAt,
	}
}
