// Package publication drives the PENDING to ACTIVE state machine. Promotion
// is level-triggered: every pass re-evaluates all PENDING records against the
// completeness predicate, so a product promoted late needs no special replay.
package publication

import (
	"context"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/stem/pkg/tracing"
)

// Store is the publication record persistence surface.
type Store interface {
	Get(ctx context.Context, productKey string) (*models.PublicationRecord, error)
	ListByStatus(ctx context.Context, status models.PublicationStatus) ([]models.PublicationRecord, error)
	Update(ctx context.Context, rec *models.PublicationRecord) error
}

// CatalogReader loads the canonical product a publication record tracks.
type CatalogReader interface {
	GetByProductKey(ctx context.Context, productKey string) (*models.CanonicalProduct, error)
}

// EventSink publishes promotion events. Failures are logged, never fatal.
type EventSink interface {
	ProductPublished(ctx context.Context, productKey string) error
}

// Gate evaluates publication completeness and applies state transitions.
type Gate struct {
	logger  ectologger.Logger
	store   Store
	catalog CatalogReader
	events  EventSink
}

// NewGate creates a new publication gate. The event sink is optional.
func NewGate(logger ectologger.Logger, store Store, catalog CatalogReader, events EventSink) *Gate {
	return &Gate{
		logger:  logger,
		store:   store,
		catalog: catalog,
		events:  events,
	}
}

// Promote re-evaluates every PENDING record and promotes those satisfying the
// completeness predicate: an image, non-empty ingredients, and at least one
// macro-nutrient. ACTIVE rows are never revisited. Completeness flags are
// persisted even when a record stays PENDING so operators can see how close
// each product is.
func (g *Gate) Promote(ctx context.Context) (*models.PromotionSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "publication.Gate.Promote")
	defer span.End()

	log := g.logger.WithContext(ctx)

	pending, err := g.store.ListByStatus(ctx, models.PublicationStatusPending)
	if err != nil {
		log.WithError(err).Error("Failed to list pending publication records")
		return nil, err
	}

	summary := &models.PromotionSummary{Evaluated: len(pending)}

	for i := range pending {
		rec := pending[i]

		product, err := g.catalog.GetByProductKey(ctx, rec.ProductKey)
		if err != nil {
			return nil, err
		}
		if product == nil {
			// Key was rewritten after this record was seeded. The record for
			// the new key exists separately; leave this one for cleanup.
			log.WithField("product_key", rec.ProductKey).Warn("Publication record has no canonical product")
			summary.Remaining++
			continue
		}

		rec.HasImage = product.ImageURL != nil && *product.ImageURL != ""
		rec.HasIngredients = hasIngredients(product)
		rec.HasMacros = product.HasAnyMacro()

		if rec.HasImage && rec.HasIngredients && rec.HasMacros {
			now := time.Now().UTC()
			rec.Status = models.PublicationStatusActive
			rec.PromotedAt = &now
			if err := g.store.Update(ctx, &rec); err != nil {
				return nil, err
			}
			summary.Promoted++
			summary.Keys = append(summary.Keys, rec.ProductKey)

			if g.events != nil {
				if err := g.events.ProductPublished(ctx, rec.ProductKey); err != nil {
					log.WithError(err).WithField("product_key", rec.ProductKey).Warn("Failed to emit product.published event")
				}
			}
			continue
		}

		if err := g.store.Update(ctx, &rec); err != nil {
			return nil, err
		}
		summary.Remaining++
	}

	log.WithFields(map[string]any{
		"evaluated": summary.Evaluated,
		"promoted":  summary.Promoted,
		"remaining": summary.Remaining,
	}).Info("Promotion pass complete")

	return summary, nil
}

// Reject manually withholds a PENDING product. ACTIVE and already REJECTED
// records are left untouched and reported as such.
func (g *Gate) Reject(ctx context.Context, productKey string) (*models.PublicationRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "publication.Gate.Reject")
	defer span.End()

	rec, err := g.store.Get(ctx, productKey)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	if rec.Status != models.PublicationStatusPending {
		return rec, nil
	}

	rec.Status = models.PublicationStatusRejected
	if err := g.store.Update(ctx, rec); err != nil {
		return nil, err
	}

	g.logger.WithContext(ctx).WithField("product_key", productKey).Info("Publication record rejected")
	return rec, nil
}

func hasIngredients(p *models.CanonicalProduct) bool {
	if len(p.IngredientsTokens) > 0 {
		return true
	}
	return p.IngredientsRaw != nil && strings.TrimSpace(*p.IngredientsRaw) != ""
}
