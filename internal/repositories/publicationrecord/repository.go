package publicationrecord

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
	"product_key", "status", "has_image", "has_ingredients", "has_macros",
	"promoted_at", "created_at", "updated_at",
}

// Repository handles publication record persistence
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

// Get retrieves a publication record by product key, nil when absent.
func (r *Repository) Get(ctx context.Context, productKey string) (*models.PublicationRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "publicationrecord.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("publication_records")
	sb.Where(sb.Equal("product_key", productKey))

	query, args := sb.Build()
	var rec models.PublicationRecord
	if err := r.db.GetContext(ctx, &rec, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("product_key", productKey).Error("Failed to get publication record")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get publication record: %v", err)
	}
	return &rec, nil
}

// ListByStatus returns every record in the given state, oldest first so
// long-waiting rows are evaluated before fresh ones.
func (r *Repository) ListByStatus(ctx context.Context, status models.PublicationStatus) ([]models.PublicationRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "publicationrecord.Repository.ListByStatus")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("publication_records")
	sb.Where(sb.Equal("status", string(status)))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var records []models.PublicationRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("status", status).Error("Failed to list publication records")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list publication records: %v", err)
	}
	return records, nil
}

// Update writes a record's status and completeness flags back.
func (r *Repository) Update(ctx context.Context, rec *models.PublicationRecord) error {
	ctx, span := tracing.StartSpan(ctx, "publicationrecord.Repository.Update")
	defer span.End()

	rec.UpdatedAt = time.Now().UTC()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("publication_records")
	ub.Set(
		ub.Assign("status", string(rec.Status)),
		ub.Assign("has_image", rec.HasImage),
		ub.Assign("has_ingredients", rec.HasIngredients),
		ub.Assign("has_macros", rec.HasMacros),
		ub.Assign("promoted_at", rec.PromotedAt),
		ub.Assign("updated_at", rec.UpdatedAt),
	)
	ub.Where(ub.Equal("product_key", rec.ProductKey))

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("product_key", rec.ProductKey).Error("Failed to update publication record")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update publication record: %v", err)
	}
	return nil
}

// EnsurePending seeds a PENDING record for a new product. Re-admitting an
// existing key is a no-op so merge re-runs stay idempotent.
func (r *Repository) EnsurePending(ctx context.Context, productKey string) error {
	ctx, span := tracing.StartSpan(ctx, "publicationrecord.Repository.EnsurePending")
	defer span.End()

	now := time.Now().UTC()
	query := `
		INSERT INTO publication_records (product_key, status, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (product_key) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, productKey, string(models.PublicationStatusPending), now); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("product_key", productKey).Error("Failed to seed publication record")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to seed publication record: %v", err)
	}
	return nil
}
