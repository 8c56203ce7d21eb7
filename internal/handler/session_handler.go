package handler

import (
	"net/http"
	"time"

	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /sessionsのHTTP
type SessionHandler struct {
	sessions *usecase.SessionManager
}

// DI
func NewSessionHandler(sessions *usecase.SessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type SessionResponse struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *SessionHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/sessions", h.open)
	e.DELETE("/sessions/:id", h.close)
}

func (h *SessionHandler) open(c echo.Context) error {
	s := h.sessions.Open()
	return c.JSON(http.StatusCreated, SessionResponse{
		SessionID: s.ID,
		CreatedAt: s.CreatedAt,
	})
}

// 予約中のステータス進行も止まる
func (h *SessionHandler) close(c echo.Context) error {
	if err := h.sessions.Close(c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
