package publication

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/bramble/internal/repositories/publicationrecord"
	"github.com/Ramsey-B/bramble/pkg/publication"
)

// Register registers publication gate routes
func Register(g *echo.Group) {
	g.POST("/promote", Promote)
	g.GET("/:productKey", GetRecord)
	g.POST("/:productKey/reject", Reject)
}

// Promote runs one promotion pass over every pending publication record
func Promote(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, gate, err := ectoinject.GetContext[*publication.Gate](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	summary, err := gate.Promote(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, summary)
}

// GetRecord gets a product's publication record
func GetRecord(c echo.Context) error {
	ctx := c.Request().Context()
	productKey := c.Param("productKey")

	ctx, repo, err := ectoinject.GetContext[*publicationrecord.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	rec, err := repo.Get(ctx, productKey)
	if err != nil {
		return err
	}
	if rec == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "publication record not found")
	}

	return c.JSON(http.StatusOK, rec)
}

// Reject withdraws a pending product from publication
func Reject(c echo.Context) error {
	ctx := c.Request().Context()
	productKey := c.Param("productKey")

	ctx, gate, err := ectoinject.GetContext[*publication.Gate](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	rec, err := gate.Reject(ctx, productKey)
	if err != nil {
		return err
	}
	if rec == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "publication record not found")
	}

	return c.JSON(http.StatusOK, rec)
}
