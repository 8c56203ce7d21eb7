package handler

import (
	"errors"
	"fmt"
	"net/http"

	"marketplace/internal/repository"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

// AsHTTPError はusecaseのエラーをステータスに変換する
func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he, true
	}

	switch {
	case errors.Is(err, usecase.ErrOrderNotFound),
		errors.Is(err, usecase.ErrSessionNotFound):
		return &HTTPError{Status: http.StatusNotFound, Message: err.Error()}, true
	case errors.Is(err, repository.ErrNotFound):
		return &HTTPError{Status: http.StatusNotFound, Message: "not found"}, true
	case errors.Is(err, usecase.ErrEmptyCart),
		errors.Is(err, usecase.ErrInvalidQuantity),
		errors.Is(err, usecase.ErrInvalidMaterial),
		errors.Is(err, usecase.ErrInvalidCheckout),
		errors.Is(err, usecase.ErrInvalidTransition):
		return &HTTPError{Status: http.StatusBadRequest, Message: err.Error()}, true
	case errors.Is(err, usecase.ErrMaterialUnavailable),
		errors.Is(err, usecase.ErrAlreadyTerminal),
		errors.Is(err, usecase.ErrDuplicateOrder):
		return &HTTPError{Status: http.StatusConflict, Message: err.Error()}, true
	case errors.Is(err, usecase.ErrTrackerClosed):
		return &HTTPError{Status: http.StatusGone, Message: err.Error()}, true
	}
	return nil, false
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
