package merge

import (
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/bramble/internal/repositories/stagingrecord"
	"github.com/Ramsey-B/bramble/pkg/merging"
	"github.com/Ramsey-B/bramble/pkg/models"
)

// Register registers run and merge routes
func Register(g *echo.Group) {
	g.GET("", ListRuns)
	g.GET("/:runId/records", ListRunRecords)
	g.GET("/:runId/records/:recordId", GetRunRecord)
	g.GET("/:runId/summary", RunSummary)
	g.POST("/:runId/merge", MergeRun)
}

// GetRunRecord gets a single staging record of a run
func GetRunRecord(c echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("runId")
	recordID := c.Param("recordId")

	ctx, repo, err := ectoinject.GetContext[*stagingrecord.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	rec, err := repo.GetByID(ctx, recordID)
	if err != nil {
		return err
	}
	if rec == nil || rec.RunID != runID {
		return httperror.NewHTTPError(http.StatusNotFound, "staging record not found")
	}

	return c.JSON(http.StatusOK, rec)
}

// RunSummary reports how many records a run staged
func RunSummary(c echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("runId")

	ctx, repo, err := ectoinject.GetContext[*stagingrecord.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	staged, err := repo.CountByRunID(ctx, runID)
	if err != nil {
		return err
	}
	if staged == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "run not found")
	}

	return c.JSON(http.StatusOK, map[string]any{"run_id": runID, "staged": staged})
}

// ListRuns lists staged run ids, most recent first
func ListRuns(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, repo, err := ectoinject.GetContext[*stagingrecord.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	runIDs, err := repo.ListRunIDs(ctx, 100)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"run_ids": runIDs})
}

// ListRunRecords lists the staging records of a run
func ListRunRecords(c echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("runId")

	ctx, repo, err := ectoinject.GetContext[*stagingrecord.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	records, err := repo.ListByRunID(ctx, runID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.StagingRecordListResponse{
		Items:      records,
		TotalCount: len(records),
		Page:       1,
		PageSize:   len(records),
	})
}

// MergeResponse wraps a merge summary with the health check verdict
type MergeResponse struct {
	Summary *models.MergeSummary `json:"summary"`
	Error   string               `json:"error,omitempty"`
}

// MergeRun merges every staged record of a run into the canonical catalog.
// A failed run-level health check returns 500 with the summary attached so
// the operator can see what the run actually did.
func MergeRun(c echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("runId")

	ctx, engine, err := ectoinject.GetContext[*merging.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	summary, err := engine.MergeRun(ctx, runID)
	if err != nil {
		var healthErr *models.HealthCheckError
		if errors.As(err, &healthErr) {
			return c.JSON(http.StatusInternalServerError, MergeResponse{
				Summary: summary,
				Error:   healthErr.Error(),
			})
		}
		return err
	}

	return c.JSON(http.StatusOK, MergeResponse{Summary: summary})
}
