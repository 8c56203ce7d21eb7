package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"marketplace/internal/metrics"
	"marketplace/internal/middleware"
	"marketplace/internal/repository"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// サーバーが必要とする部品
type Deps struct {
	Sessions *usecase.SessionManager
	Catalog  repository.CatalogRepository
	//残り時間表示の基準
	Nominal time.Duration
	Logger  *zap.Logger
}

// New はミドルウェアとルートを設定した echo を返す
func New(d Deps) *echo.Echo {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(metrics.Middleware())
	e.Use(middleware.RequestLogger(d.Logger))

	RegisterRoutes(e, d)
	return e
}

// Start は ctx が終わるまで待ち、shutdownTimeout 内で止める。
func Start(ctx context.Context, e *echo.Echo, addr string, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
