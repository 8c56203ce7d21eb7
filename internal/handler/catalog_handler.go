package handler

import (
	"net/http"

	"marketplace/internal/repository"

	"github.com/labstack/echo/v4"
)

// /vendors, /materials の公開API
type CatalogHandler struct {
	catalog repository.CatalogRepository
}

// DI
func NewCatalogHandler(catalog repository.CatalogRepository) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func (h *CatalogHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/vendors", h.vendors)
	e.GET("/materials", h.materials)
}

func (h *CatalogHandler) vendors(c echo.Context) error {
	out, err := h.catalog.ListVendors(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// vendor_id があればそのベンダーだけ
func (h *CatalogHandler) materials(c echo.Context) error {
	out, err := h.catalog.ListMaterials(c.Request().Context(), c.QueryParam("vendor_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
