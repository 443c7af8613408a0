package canonicalproduct

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

var columns = []string{
	"product_key", "brand", "brand_slug", "product_name", "name_slug",
	"ingredients_raw", "ingredients_tokens",
	"protein_percent", "fat_percent", "fiber_percent", "ash_percent",
	"moisture_percent", "kcal_per_100g", "image_url", "sources",
	"created_at", "updated_at",
}

// Repository handles canonical product persistence. It satisfies the matching
// engine's read surface and the merge engine's write surface.
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

// GetByProductKey retrieves a product by its primary identity, nil when absent.
func (r *Repository) GetByProductKey(ctx context.Context, productKey string) (*models.CanonicalProduct, error) {
	ctx, span := tracing.StartSpan(ctx, "canonicalproduct.Repository.GetByProductKey")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("canonical_products")
	sb.Where(sb.Equal("product_key", productKey))

	query, args := sb.Build()
	var product models.CanonicalProduct
	if err := r.db.GetContext(ctx, &product, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("product_key", productKey).Error("Failed to get canonical product")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get canonical product: %v", err)
	}
	return &product, nil
}

// GetByBrandNameSlug retrieves a product by the secondary slug-pair key.
// Ties on a near-unique pair resolve to the most recently updated row.
func (r *Repository) GetByBrandNameSlug(ctx context.Context, brandSlug, nameSlug string) (*models.CanonicalProduct, error) {
	ctx, span := tracing.StartSpan(ctx, "canonicalproduct.Repository.GetByBrandNameSlug")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("canonical_products")
	sb.Where(
		sb.Equal("brand_slug", brandSlug),
		sb.Equal("name_slug", nameSlug),
	)
	sb.OrderBy("updated_at DESC")
	sb.Limit(1)

	query, args := sb.Build()
	var product models.CanonicalProduct
	if err := r.db.GetContext(ctx, &product, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"brand_slug": brandSlug, "name_slug": nameSlug}).Error("Failed to get canonical product by slug pair")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get canonical product by slug pair: %v", err)
	}
	return &product, nil
}

// ListByBrandSlug returns a brand's products for fuzzy candidate scoring.
func (r *Repository) ListByBrandSlug(ctx context.Context, brandSlug string, limit int) ([]models.CanonicalProduct, error) {
	ctx, span := tracing.StartSpan(ctx, "canonicalproduct.Repository.ListByBrandSlug")
	defer span.End()

	if limit <= 0 {
		limit = 500
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("canonical_products")
	sb.Where(sb.Equal("brand_slug", brandSlug))
	sb.OrderBy("updated_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var products []models.CanonicalProduct
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("brand_slug", brandSlug).Error("Failed to list canonical products by brand")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list canonical products: %v", err)
	}
	return products, nil
}

// Insert creates a new canonical product. A duplicate key is a conflict, not
// an internal error: the caller resolved matches moments ago, so a collision
// means a concurrent writer won the row.
func (r *Repository) Insert(ctx context.Context, p *models.CanonicalProduct) error {
	ctx, span := tracing.StartSpan(ctx, "canonicalproduct.Repository.Insert")
	defer span.End()

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("canonical_products")
	ib.Cols(columns...)
	ib.Values(
		p.ProductKey, p.Brand, p.BrandSlug, p.ProductName, p.NameSlug,
		p.IngredientsRaw, p.IngredientsTokens,
		p.ProteinPercent, p.FatPercent, p.FiberPercent, p.AshPercent,
		p.MoisturePercent, p.KcalPer100g, p.ImageURL, p.Sources,
		p.CreatedAt, p.UpdatedAt,
	)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("product_key", p.ProductKey).Error("Failed to insert canonical product")
		return httperror.NewHTTPErrorf(http.StatusConflict, "failed to insert canonical product: %v", err)
	}
	return nil
}

// UpdateFilled writes the merged row back. The row is addressed by
// previousKey so a key rewrite from a slug-pair match lands in the same
// UPDATE as the field fills; publication rows follow via the key's cascade.
func (r *Repository) UpdateFilled(ctx context.Context, p *models.CanonicalProduct, previousKey string) error {
	ctx, span := tracing.StartSpan(ctx, "canonicalproduct.Repository.UpdateFilled")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("canonical_products")
	ub.Set(
		ub.Assign("product_key", p.ProductKey),
		ub.Assign("ingredients_raw", p.IngredientsRaw),
		ub.Assign("ingredients_tokens", p.IngredientsTokens),
		ub.Assign("protein_percent", p.ProteinPercent),
		ub.Assign("fat_percent", p.FatPercent),
		ub.Assign("fiber_percent", p.FiberPercent),
		ub.Assign("ash_percent", p.AshPercent),
		ub.Assign("moisture_percent", p.MoisturePercent),
		ub.Assign("kcal_per_100g", p.KcalPer100g),
		ub.Assign("image_url", p.ImageURL),
		ub.Assign("sources", p.Sources),
		ub.Assign("updated_at", p.UpdatedAt),
	)
	ub.Where(ub.Equal("product_key", previousKey))

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"product_key": p.ProductKey, "previous_key": previousKey}).Error("Failed to update canonical product")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update canonical product: %v", err)
	}
	return nil
}

// List returns a page of the catalog together with the total count.
func (r *Repository) List(ctx context.Context, page, pageSize int) ([]models.CanonicalProduct, int, error) {
	ctx, span := tracing.StartSpan(ctx, "canonicalproduct.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 50
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM canonical_products"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count canonical products")
		return nil, 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to count canonical products: %v", err)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("canonical_products")
	sb.OrderBy("updated_at DESC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args := sb.Build()
	var products []models.CanonicalProduct
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list canonical products")
		return nil, 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list canonical products: %v", err)
	}
	return products, total, nil
}

// ListPublished returns the production projection: canonical products whose
// publication record is ACTIVE, joined with the brand's allowlist status.
// Products carrying a source from an excluded host are filtered out.
func (r *Repository) ListPublished(ctx context.Context, excludedSources []string, page, pageSize int) ([]models.PublishedProduct, int, error) {
	ctx, span := tracing.StartSpan(ctx, "canonicalproduct.Repository.ListPublished")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 50
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"cp.product_key", "cp.brand", "cp.brand_slug", "cp.product_name", "cp.name_slug",
		"cp.ingredients_raw", "cp.ingredients_tokens",
		"cp.protein_percent", "cp.fat_percent", "cp.fiber_percent", "cp.ash_percent",
		"cp.moisture_percent", "cp.kcal_per_100g", "cp.image_url", "cp.sources",
		"cp.created_at", "cp.updated_at",
		"COALESCE(ba.status, 'PENDING') AS allowlist_status",
		"pr.promoted_at AS published_at",
	)
	sb.From("canonical_products cp")
	sb.JoinWithOption(sqlbuilder.InnerJoin, "publication_records pr", "pr.product_key = cp.product_key")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "brand_allowlist ba", "ba.brand_slug = cp.brand_slug")
	where := []string{sb.Equal("pr.status", string(models.PublicationStatusActive))}
	for _, src := range excludedSources {
		if src == "" {
			continue
		}
		// Exclude products observed on a distrusted host.
		where = append(where, sb.NotLike("cp.sources::text", "%"+src+"%"))
	}
	sb.Where(where...)

	countQuery, countArgs := sb.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM ("+countQuery+") published", countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count published products")
		return nil, 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to count published products: %v", err)
	}

	sb.OrderBy("cp.updated_at DESC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args := sb.Build()
	var products []models.PublishedProduct
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list published products")
		return nil, 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list published products: %v", err)
	}
	return products, total, nil
}
