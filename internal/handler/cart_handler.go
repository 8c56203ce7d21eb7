package handler

import (
	"net/http"
	"strings"

	"marketplace/internal/domain/model"
	"marketplace/internal/middleware"
	"marketplace/internal/repository"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"

// /cart, /checkout のHTTP
type CartHandler struct {
	catalog repository.CatalogRepository
}

// DI
func NewCartHandler(catalog repository.CatalogRepository) *CartHandler {
	return &CartHandler{catalog: catalog}
}

type AddCartItemRequest struct {
	VendorID   string `json:"vendor_id"`
	MaterialID string `json:"material_id"`
	Quantity   int    `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type CheckoutRequest struct {
	Address       model.Address `json:"address"`
	PaymentMethod string        `json:"payment_method"`
}

// /cart, /checkout を登録（どちらもセッション必須）
func (h *CartHandler) RegisterRoutes(e *echo.Echo, sessions middleware.SessionStore) {
	g := e.Group("/cart")
	g.Use(middleware.RequireSession(sessions))

	g.GET("", h.getCart)
	g.POST("/items", h.addItem)
	g.PATCH("/items/:vendor_id/:material_id", h.patchItem)
	g.DELETE("/items/:vendor_id/:material_id", h.deleteItem)
	g.DELETE("", h.clear)

	e.POST("/checkout", h.checkout, middleware.RequireSession(sessions))
}

func (h *CartHandler) getCart(c echo.Context) error {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "session required"})
	}
	return c.JSON(http.StatusOK, s.Cart.Summary())
}

// 資材はカタログから引く（価格・在庫はサーバー側の値）
func (h *CartHandler) addItem(c echo.Context) error {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "session required"})
	}

	var req AddCartItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if strings.TrimSpace(req.VendorID) == "" || strings.TrimSpace(req.MaterialID) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "vendor_id and material_id required"})
	}

	m, err := h.catalog.FindMaterial(c.Request().Context(), req.VendorID, req.MaterialID)
	if err != nil {
		return writeError(c, err)
	}
	if err := s.Cart.AddItem(m, req.VendorID, req.Quantity); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, s.Cart.Summary())
}

// quantity 0以下は削除
func (h *CartHandler) patchItem(c echo.Context) error {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "session required"})
	}

	var req UpdateCartItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	s.Cart.UpdateQuantity(c.Param("material_id"), c.Param("vendor_id"), req.Quantity)
	return c.JSON(http.StatusOK, s.Cart.Summary())
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "session required"})
	}

	s.Cart.RemoveItem(c.Param("material_id"), c.Param("vendor_id"))
	return c.JSON(http.StatusOK, s.Cart.Summary())
}

func (h *CartHandler) clear(c echo.Context) error {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "session required"})
	}

	s.Cart.Clear()
	return c.NoContent(http.StatusNoContent)
}

// 配送料はカートに入っているベンダー分の合計（CreateOrder が明細から計算する）
func (h *CartHandler) checkout(c echo.Context) error {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "session required"})
	}

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	order, err := s.Cart.CreateOrder(usecase.CheckoutInput{
		Address:        req.Address,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: c.Request().Header.Get(HeaderIdempotencyKey),
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, newOrderResponse(order))
}
