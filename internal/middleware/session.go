package middleware

import (
	"errors"
	"net/http"
	"strings"

	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
)

const (
	HeaderSessionID = "X-Session-ID"
	CtxSessionKey   = "session" // *usecase.Session
)

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}

// SessionStore は SessionManager の参照部分
type SessionStore interface {
	Get(id string) (*usecase.Session, error)
}

// RequireSession は X-Session-ID からセッションを引いて context に入れる。
func RequireSession(store SessionStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//ヘッダ必須
			id := strings.TrimSpace(c.Request().Header.Get(HeaderSessionID))
			if id == "" {
				return c.JSON(http.StatusBadRequest, errorJSON("session id required"))
			}

			s, err := store.Get(id)
			if errors.Is(err, usecase.ErrSessionNotFound) {
				return c.JSON(http.StatusNotFound, errorJSON("session not found"))
			}
			if err != nil || s == nil {
				return c.JSON(http.StatusInternalServerError, errorJSON("internal error"))
			}

			c.Set(CtxSessionKey, s)
			return next(c)
		}
	}
}

// SessionFrom は RequireSession が入れたセッションを取り出す
func SessionFrom(c echo.Context) (*usecase.Session, bool) {
	s, ok := c.Get(CtxSessionKey).(*usecase.Session)
	return s, ok && s != nil
}
