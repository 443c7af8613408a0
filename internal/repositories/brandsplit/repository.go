package brandsplit

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/stem/pkg/database"
	"github.com/Ramsey-B/stem/pkg/tracing"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/bramble/pkg/models"
)

var columns = []string{"truncated_slug", "full_brand", "leftover_prefix", "confidence", "created_at", "updated_at"}

// Repository handles brand split pattern persistence. It is the pattern
// source the brand repairer loads from at startup.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ListPatterns returns every known brand split pattern.
func (r *Repository) ListPatterns(ctx context.Context) ([]models.BrandSplitPattern, error) {
	ctx, span := tracing.StartSpan(ctx, "brandsplit.Repository.ListPatterns")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("brand_split_patterns")
	sb.OrderBy("truncated_slug ASC")

	query, args := sb.Build()
	var patterns []models.BrandSplitPattern
	if err := r.db.SelectContext(ctx, &patterns, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list brand split patterns")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list brand split patterns: %v", err)
	}
	return patterns, nil
}

// Upsert records a split pattern, replacing any existing one for the slug.
func (r *Repository) Upsert(ctx context.Context, pattern *models.BrandSplitPattern) (*models.BrandSplitPattern, error) {
	ctx, span := tracing.StartSpan(ctx, "brandsplit.Repository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	pattern.UpdatedAt = now
	if pattern.CreatedAt.IsZero() {
		pattern.CreatedAt = now
	}

	query := `
		INSERT INTO brand_split_patterns (truncated_slug, full_brand, leftover_prefix, confidence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (truncated_slug) DO UPDATE SET
			full_brand = EXCLUDED.full_brand,
			leftover_prefix = EXCLUDED.leftover_prefix,
			confidence = EXCLUDED.confidence,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, pattern.TruncatedSlug, pattern.FullBrand, pattern.LeftoverPrefix, pattern.Confidence, pattern.CreatedAt, pattern.UpdatedAt); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("truncated_slug", pattern.TruncatedSlug).Error("Failed to upsert brand split pattern")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to upsert brand split pattern: %v", err)
	}
	return pattern, nil
}
