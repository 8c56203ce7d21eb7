package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"marketplace/internal/domain/model"
	"marketplace/internal/middleware"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// /ordersのHTTP
type OrderHandler struct {
	//残り時間表示の基準
	nominal time.Duration
}

// DI
func NewOrderHandler(nominal time.Duration) *OrderHandler {
	return &OrderHandler{nominal: nominal}
}

type OrderResponse struct {
	model.Order
	ShortID   string          `json:"short_id"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

type EstimateResponse struct {
	RemainingSeconds int64  `json:"remaining_seconds"`
	Hours            int    `json:"hours"`
	Minutes          int    `json:"minutes"`
	Delivered        bool   `json:"delivered"`
	Text             string `json:"text"`
}

type OrderDetailResponse struct {
	OrderResponse
	Estimate   EstimateResponse `json:"estimate"`
	InProgress bool             `json:"in_progress"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

func newOrderResponse(o model.Order) OrderResponse {
	return OrderResponse{
		Order:     o,
		ShortID:   o.ShortID(),
		Total:     o.Total(),
		ItemCount: o.ItemCount(),
	}
}

// /orders を登録（セッション必須）
func (h *OrderHandler) RegisterRoutes(e *echo.Echo, sessions middleware.SessionStore) {
	g := e.Group("/orders")
	g.Use(middleware.RequireSession(sessions))

	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.POST("/:id/advance", h.advance)
	g.PUT("/:id/status", h.setStatus)
	g.POST("/:id/progression", h.startProgression)
	g.DELETE("/:id/progression", h.cancelProgression)
	g.GET("/:id/events", h.events)
}

// 新しい順
func (h *OrderHandler) list(c echo.Context) error {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "session required"})
	}

	orders := s.Orders.ListOrders()
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, newOrderResponse(o))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "session required"})
	}

	id := c.Param("id")
	o, err := s.Orders.FindOrder(id)
	if err != nil {
		return writeError(c, err)
	}
	est, err := s.Orders.EstimateTimeRemaining(id, h.nominal)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, OrderDetailResponse{
		OrderResponse: newOrderResponse(o),
		Estimate: EstimateResponse{
			RemainingSeconds: int64(est.Remaining / time.Second),
			Hours:            est.Hours,
			Minutes:          est.Minutes,
			Delivered:        est.Delivered,
			Text:             est.String(),
		},
		InProgress: s.Orders.InProgress(id),
	})
}

// delivered なら409
func (h *OrderHandler) advance(c echo.Context) error {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "session required"})
	}

	o, err := s.Orders.AdvanceStatus(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newOrderResponse(o))
}

// 前方向のみ
func (h *OrderHandler) setStatus(c echo.Context) error {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "session required"})
	}

	var req SetStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	status, err := model.ParseOrderStatus(req.Status)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid status"})
	}

	o, err := s.Orders.SetStatus(c.Param("id"), status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newOrderResponse(o))
}

func (h *OrderHandler) startProgression(c echo.Context) error {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "session required"})
	}

	if err := s.Orders.StartProgression(c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *OrderHandler) cancelProgression(c echo.Context) error {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "session required"})
	}

	if err := s.Orders.CancelProgression(c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// events はステータス変化をSSEで流す。delivered かクライアント切断で終わる。
func (h *OrderHandler) events(c echo.Context) error {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "session required"})
	}

	ch, cancel, err := s.Orders.Subscribe(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	defer cancel()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case o, ok := <-ch:
			if !ok {
				return nil
			}
			if err := writeEvent(res, "status", newOrderResponse(o)); err != nil {
				return nil
			}
		}
	}
}

func writeEvent(res *echo.Response, event string, data interface{}) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, b); err != nil {
		return err
	}
	res.Flush()
	return nil
}
