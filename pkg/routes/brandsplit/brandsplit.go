package brandsplit

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/bramble/internal/repositories/brandsplit"
	"github.com/Ramsey-B/bramble/pkg/models"
)

var validate = validator.New()

// Register registers brand split pattern governance routes
func Register(g *echo.Group) {
	g.GET("", ListPatterns)
	g.PUT("", UpsertPattern)
}

// ListPatterns lists every known brand split pattern
func ListPatterns(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, repo, err := ectoinject.GetContext[*brandsplit.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	patterns, err := repo.ListPatterns(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, patterns)
}

// UpsertPattern records a verified brand split pattern. New patterns take
// effect on the next service start, when the repairer reloads the table.
func UpsertPattern(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.UpsertBrandSplitRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid request: %v", err)
	}

	ctx, repo, err := ectoinject.GetContext[*brandsplit.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	pattern, err := repo.Upsert(ctx, &models.BrandSplitPattern{
		TruncatedSlug:  req.TruncatedSlug,
		FullBrand:      req.FullBrand,
		LeftoverPrefix: req.LeftoverPrefix,
		Confidence:     req.Confidence,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, pattern)
}
