package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"marketplace/internal/repository"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestAsHTTPError_MapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("find order x: %w", usecase.ErrOrderNotFound), http.StatusNotFound},
		{usecase.ErrSessionNotFound, http.StatusNotFound},
		{repository.ErrNotFound, http.StatusNotFound},
		{usecase.ErrEmptyCart, http.StatusBadRequest},
		{usecase.ErrInvalidQuantity, http.StatusBadRequest},
		{fmt.Errorf("address required: %w", usecase.ErrInvalidCheckout), http.StatusBadRequest},
		{usecase.ErrInvalidTransition, http.StatusBadRequest},
		{usecase.ErrMaterialUnavailable, http.StatusConflict},
		{usecase.ErrAlreadyTerminal, http.StatusConflict},
		{usecase.ErrTrackerClosed, http.StatusGone},
		{NewHTTPError(http.StatusTeapot, "teapot"), http.StatusTeapot},
	}

	for _, tc := range cases {
		he, ok := AsHTTPError(tc.err)
		if assert.True(t, ok, tc.err.Error()) {
			assert.Equal(t, tc.status, he.Status, tc.err.Error())
		}
	}

	_, ok := AsHTTPError(errors.New("boom"))
	assert.False(t, ok)
}

func TestWriteError_UnknownIs500(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	_ = writeError(c, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}
