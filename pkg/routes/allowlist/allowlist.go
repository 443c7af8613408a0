package allowlist

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/bramble/internal/repositories/brandallowlist"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/productkey"
)

var validate = validator.New()

// Register registers brand governance routes
func Register(g *echo.Group) {
	g.GET("", ListBrands)
	g.GET("/:brandSlug", GetBrand)
	g.PUT("", AdmitBrand)
}

// ListBrands lists every brand's governance entry
func ListBrands(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, repo, err := ectoinject.GetContext[*brandallowlist.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	entries, err := repo.List(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entries)
}

// GetBrand gets one brand's governance entry
func GetBrand(c echo.Context) error {
	ctx := c.Request().Context()
	brandSlug := c.Param("brandSlug")

	ctx, repo, err := ectoinject.GetContext[*brandallowlist.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	entry, err := repo.GetByBrandSlug(ctx, brandSlug)
	if err != nil {
		return err
	}
	if entry == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "brand not found")
	}

	return c.JSON(http.StatusOK, entry)
}

// AdmitBrand sets a brand's governance status. The slug is derived from the
// brand name with the same normalization the merge engine uses.
func AdmitBrand(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.AdmitBrandRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid request: %v", err)
	}

	ctx, repo, err := ectoinject.GetContext[*brandallowlist.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	entry := &models.BrandAllowlistEntry{
		BrandSlug: productkey.Slugify(req.Brand),
		Brand:     req.Brand,
		Status:    req.Status,
		Notes:     req.Notes,
	}

	saved, err := repo.Upsert(ctx, entry)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, saved)
}
