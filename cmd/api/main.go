package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"marketplace/internal/config"
	"marketplace/internal/infra/db"
	infraRepo "marketplace/internal/infra/repository"
	"marketplace/internal/metrics"
	"marketplace/internal/scheduler"
	"marketplace/internal/server"
	"marketplace/internal/usecase"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsProd() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func main() {
	//.envは無くてもよい
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//カタログ（配送料も兼ねる）
	catalog := infraRepo.NewMemoryCatalog()
	catalog.Seed()

	observers := []usecase.OrderObserver{metrics.NewOrderObserver()}

	//DATABASE_URL があるときだけ注文をアーカイブする
	if cfg.DatabaseURL != "" {
		gormDB, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("db connect failed", zap.Error(err))
		}
		archive := infraRepo.NewOrderArchiveGormRepository(gormDB)
		if err := archive.Migrate(ctx); err != nil {
			logger.Fatal("db migrate failed", zap.Error(err))
		}
		observers = append(observers, usecase.NewArchiveObserver(archive, logger))
		logger.Info("order archive enabled")
	}

	policy := usecase.ProgressionPolicy{
		ConfirmDelay: cfg.OrderConfirmDelay,
		StepDelay:    cfg.OrderStepDelay,
		AutoStart:    cfg.OrderAutoProgress,
	}
	sessions := usecase.NewSessionManager(usecase.SessionDeps{
		Clock:     scheduler.NewRealClock(),
		Policy:    policy,
		Fees:      catalog,
		IDs:       &uuidGenerator{},
		Logger:    logger,
		Observers: observers,
	})
	metrics.Registry.MustRegister(metrics.SessionGauge(sessions.Len))

	e := server.New(server.Deps{
		Sessions: sessions,
		Catalog:  catalog,
		Nominal:  policy.EstimateNominal(cfg.OrderNominalDuration),
		Logger:   logger,
	})

	logger.Info("server starting", zap.String("addr", cfg.Addr()), zap.String("env", cfg.GoEnv))
	if err := server.Start(ctx, e, cfg.Addr(), cfg.ShutdownTimeout); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}

	//予約中のタイマーを止める
	sessions.CloseAll()
	logger.Info("server stopped")
}
