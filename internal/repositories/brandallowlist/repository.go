package brandallowlist

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

var columns = []string{"brand_slug", "brand", "status", "notes", "created_at", "updated_at"}

// Repository handles brand allowlist persistence. The merge engine only reads
// it through the admission policy; writes come from the governance surface.
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

// GetByBrandSlug retrieves a brand's allowlist entry, nil when absent.
func (r *Repository) GetByBrandSlug(ctx context.Context, brandSlug string) (*models.BrandAllowlistEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "brandallowlist.Repository.GetByBrandSlug")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("brand_allowlist")
	sb.Where(sb.Equal("brand_slug", brandSlug))

	query, args := sb.Build()
	var entry models.BrandAllowlistEntry
	if err := r.db.GetContext(ctx, &entry, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("brand_slug", brandSlug).Error("Failed to get allowlist entry")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get allowlist entry: %v", err)
	}
	return &entry, nil
}

// Upsert sets a brand's governance status.
func (r *Repository) Upsert(ctx context.Context, entry *models.BrandAllowlistEntry) (*models.BrandAllowlistEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "brandallowlist.Repository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	entry.UpdatedAt = now
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}

	query := `
		INSERT INTO brand_allowlist (brand_slug, brand, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (brand_slug) DO UPDATE SET
			brand = EXCLUDED.brand,
			status = EXCLUDED.status,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, entry.BrandSlug, entry.Brand, entry.Status, entry.Notes, entry.CreatedAt, entry.UpdatedAt); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"brand_slug": entry.BrandSlug, "status": entry.Status}).Error("Failed to upsert allowlist entry")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to upsert allowlist entry: %v", err)
	}
	return entry, nil
}

// List returns all allowlist entries ordered by brand slug.
func (r *Repository) List(ctx context.Context) ([]models.BrandAllowlistEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "brandallowlist.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("brand_allowlist")
	sb.OrderBy("brand_slug ASC")

	query, args := sb.Build()
	var entries []models.BrandAllowlistEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list allowlist entries")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list allowlist entries: %v", err)
	}
	return entries, nil
}
