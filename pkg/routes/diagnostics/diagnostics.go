package diagnostics

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/bramble/pkg/diagnostics"
)

// Register registers diagnostics routes
func Register(g *echo.Group) {
	g.GET("/:runId/diagnostics", DiagnoseRun)
}

// DiagnoseRun reports the would-be match tier for a sample of the run's
// records without writing anything
func DiagnoseRun(c echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("runId")

	sampleSize := 0
	if raw := c.QueryParam("sample_size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return httperror.NewHTTPError(http.StatusBadRequest, "sample_size must be a non-negative integer")
		}
		sampleSize = parsed
	}

	ctx, svc, err := ectoinject.GetContext[*diagnostics.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	report, err := svc.Diagnose(ctx, runID, sampleSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, report)
}
