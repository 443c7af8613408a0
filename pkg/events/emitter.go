// Package events handles event emission for catalog lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/stem/pkg/tracing"

	"github.com/Ramsey-B/bramble/pkg/kafka"
	"github.com/Ramsey-B/bramble/pkg/models"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes catalog lifecycle events. It satisfies the merge engine's
// and publication gate's event sink interfaces.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// ProductCreated emits a product.created event
func (e *Emitter) ProductCreated(ctx context.Context, p *models.CanonicalProduct) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.ProductCreated")
	defer span.End()

	payload := ProductCreatedEvent{
		BaseEvent:   NewBaseEvent(EventTypeProductCreated),
		ProductKey:  p.ProductKey,
		Brand:       p.Brand,
		BrandSlug:   p.BrandSlug,
		ProductName: p.ProductName,
	}
	data, _ := json.Marshal(payload)

	event := &kafka.CatalogEvent{
		EventType:  string(EventTypeProductCreated),
		ProductKey: p.ProductKey,
		BrandSlug:  p.BrandSlug,
		Data:       data,
	}

	if err := e.producer.PublishCatalogEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit product.created event")
		return err
	}

	return nil
}

// ProductUpdated emits a product.updated event listing the filled fields
func (e *Emitter) ProductUpdated(ctx context.Context, p *models.CanonicalProduct, filledFields []string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.ProductUpdated")
	defer span.End()

	payload := ProductUpdatedEvent{
		BaseEvent:    NewBaseEvent(EventTypeProductUpdated),
		ProductKey:   p.ProductKey,
		BrandSlug:    p.BrandSlug,
		FilledFields: filledFields,
	}
	data, _ := json.Marshal(payload)

	event := &kafka.CatalogEvent{
		EventType:    string(EventTypeProductUpdated),
		ProductKey:   p.ProductKey,
		BrandSlug:    p.BrandSlug,
		Data:         data,
		FilledFields: filledFields,
	}

	if err := e.producer.PublishCatalogEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit product.updated event")
		return err
	}

	return nil
}

// ProductPublished emits a product.published event
func (e *Emitter) ProductPublished(ctx context.Context, productKey string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.ProductPublished")
	defer span.End()

	payload := ProductPublishedEvent{
		BaseEvent:  NewBaseEvent(EventTypeProductPublished),
		ProductKey: productKey,
	}
	data, _ := json.Marshal(payload)

	event := &kafka.CatalogEvent{
		EventType:  string(EventTypeProductPublished),
		ProductKey: productKey,
		Data:       data,
	}

	if err := e.producer.PublishCatalogEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit product.published event")
		return err
	}

	return nil
}

// RunMerged emits a run.merged summary event
func (e *Emitter) RunMerged(ctx context.Context, summary *models.MergeSummary) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.RunMerged")
	defer span.End()

	payload := RunMergedEvent{
		BaseEvent: NewBaseEvent(EventTypeRunMerged),
		RunID:     summary.RunID,
		Staged:    summary.Staged,
		Inserted:  summary.Inserted,
		Updated:   summary.Updated,
		Skipped:   summary.Skipped,
	}
	data, _ := json.Marshal(payload)

	event := &kafka.CatalogEvent{
		EventType:  string(EventTypeRunMerged),
		ProductKey: summary.RunID, // run-level event, keyed by run for ordering
		Data:       data,
	}

	if err := e.producer.PublishCatalogEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit run.merged event")
		return err
	}

	return nil
}
