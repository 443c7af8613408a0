package stagingrecord

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/stem/pkg/database"
	"github.com/Ramsey-B/stem/pkg/tracing"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/bramble/pkg/models"
)

var columns = []string{
	"id", "run_id", "brand_raw", "product_name_raw", "brand_slug", "name_slug",
	"product_key_computed", "ingredients_raw", "ingredients_tokens",
	"protein_percent", "fat_percent", "fiber_percent", "ash_percent",
	"moisture_percent", "kcal_per_100g", "image_url", "source_url",
	"extracted_at", "created_at",
}

// Repository handles staging record persistence
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

// Create inserts one staging record. Rows are immutable once written.
func (r *Repository) Create(ctx context.Context, rec *models.StagingRecord) (*models.StagingRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "stagingrecord.Repository.Create")
	defer span.End()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("staging_records")
	ib.Cols(columns...)
	ib.Values(
		rec.ID, rec.RunID, rec.BrandRaw, rec.ProductNameRaw, rec.BrandSlug, rec.NameSlug,
		rec.ProductKeyComputed, rec.IngredientsRaw, rec.IngredientsTokens,
		rec.ProteinPercent, rec.FatPercent, rec.FiberPercent, rec.AshPercent,
		rec.MoisturePercent, rec.KcalPer100g, rec.ImageURL, rec.SourceURL,
		rec.ExtractedAt, rec.CreatedAt,
	)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"run_id": rec.RunID, "product_key": rec.ProductKeyComputed}).Error("Failed to create staging record")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to create staging record: %v", err)
	}

	return rec, nil
}

// ListByRunID returns every record of a run in arrival order.
func (r *Repository) ListByRunID(ctx context.Context, runID string) ([]models.StagingRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "stagingrecord.Repository.ListByRunID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("staging_records")
	sb.Where(sb.Equal("run_id", runID))
	sb.OrderBy("created_at ASC", "id ASC")

	query, args := sb.Build()
	var records []models.StagingRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("run_id", runID).Error("Failed to list staging records")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list staging records: %v", err)
	}
	return records, nil
}

// GetByID retrieves a single staging record, nil when absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.StagingRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "stagingrecord.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("staging_records")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var rec models.StagingRecord
	if err := r.db.GetContext(ctx, &rec, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to get staging record")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get staging record: %v", err)
	}
	return &rec, nil
}

// CountByRunID returns the number of records staged for a run.
func (r *Repository) CountByRunID(ctx context.Context, runID string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "stagingrecord.Repository.CountByRunID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("staging_records")
	sb.Where(sb.Equal("run_id", runID))

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("run_id", runID).Error("Failed to count staging records")
		return 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to count staging records: %v", err)
	}
	return count, nil
}

// ListRunIDs returns the distinct run ids currently staged, most recent first.
func (r *Repository) ListRunIDs(ctx context.Context, limit int) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "stagingrecord.Repository.ListRunIDs")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT run_id
		FROM staging_records
		GROUP BY run_id
		ORDER BY MAX(created_at) DESC
		LIMIT $1
	`

	var runIDs []string
	if err := r.db.SelectContext(ctx, &runIDs, query, limit); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list run ids")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list run ids: %v", err)
	}
	return runIDs, nil
}
