package server

import (
	"net/http"

	"marketplace/internal/handler"
	"marketplace/internal/metrics"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"sessions": d.Sessions.Len(),
		})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	handler.NewSessionHandler(d.Sessions).RegisterRoutes(e)
	handler.NewCatalogHandler(d.Catalog).RegisterRoutes(e)
	handler.NewCartHandler(d.Catalog).RegisterRoutes(e, d.Sessions)
	handler.NewOrderHandler(d.Nominal).RegisterRoutes(e, d.Sessions)
}
