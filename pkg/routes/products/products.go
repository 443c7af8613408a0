package products

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/bramble/config"
	"github.com/Ramsey-B/bramble/internal/repositories/canonicalproduct"
	"github.com/Ramsey-B/bramble/pkg/models"
)

// Register registers canonical catalog routes
func Register(g *echo.Group) {
	g.GET("", ListProducts)
	g.GET("/published", ListPublished)
	g.GET("/:productKey", GetProduct)
}

// PublishedListResponse is the response for the published catalog projection
type PublishedListResponse struct {
	Items      []models.PublishedProduct `json:"items"`
	TotalCount int                       `json:"total_count"`
	Page       int                       `json:"page"`
	PageSize   int                       `json:"page_size"`
}

// ListProducts lists canonical products regardless of publication state
func ListProducts(c echo.Context) error {
	ctx := c.Request().Context()

	page, pageSize, err := pagination(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*canonicalproduct.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	items, total, err := repo.List(ctx, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.CanonicalProductListResponse{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// ListPublished lists the production-facing projection: published products
// with their allowlist status, minus products from distrusted sources.
func ListPublished(c echo.Context) error {
	ctx := c.Request().Context()

	page, pageSize, err := pagination(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*canonicalproduct.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	ctx, cfg, err := ectoinject.GetContext[config.Config](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	items, total, err := repo.ListPublished(ctx, cfg.DistrustedSources, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, PublishedListResponse{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// GetProduct gets a single canonical product by its key
func GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	productKey := c.Param("productKey")

	ctx, repo, err := ectoinject.GetContext[*canonicalproduct.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	product, err := repo.GetByProductKey(ctx, productKey)
	if err != nil {
		return err
	}
	if product == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "product not found")
	}

	return c.JSON(http.StatusOK, product)
}

func pagination(c echo.Context) (int, int, error) {
	page := 1
	pageSize := 50

	if raw := c.QueryParam("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return 0, 0, httperror.NewHTTPError(http.StatusBadRequest, "page must be a positive integer")
		}
		page = v
	}
	if raw := c.QueryParam("page_size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 500 {
			return 0, 0, httperror.NewHTTPError(http.StatusBadRequest, "page_size must be between 1 and 500")
		}
		pageSize = v
	}

	return page, pageSize, nil
}
