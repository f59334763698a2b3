// Package main запускает HTTP-сервер сервиса бронирования парковок.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/tuparking/internal/config"
	"github.com/mmeshcher/tuparking/internal/handler"
	"github.com/mmeshcher/tuparking/internal/middleware"
	"github.com/mmeshcher/tuparking/internal/model"
	"github.com/mmeshcher/tuparking/internal/repository"
	"github.com/mmeshcher/tuparking/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		sugar.Warnw("load .env file", "error", err.Error())
	}

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := newRepository(cfg, sugar)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	var revoked middleware.RevocationStore
	if cfg.RedisAddress != "" {
		client, err := repository.ConnectRedis(ctx, cfg.RedisAddress)
		if err != nil {
			sugar.Fatalw("redis initialization error", "error", err.Error())
		}
		defer client.Close()
		revoked = repository.NewRedisRevocationStore(client)
	} else {
		sugar.Warn("REDIS_ADDRESS is empty, token revocation disabled")
	}

	if cfg.JWTSecret == "" {
		sugar.Warn("JWT_SECRET is empty, tokens will not survive restart")
	}
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret, cfg.TokenTTL, revoked, logger)

	svc := service.NewService(repo, authMiddleware, logger, model.PaymentMethod(cfg.DefaultPaymentMethod))
	defer svc.Close()

	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter(handler.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Фоновое завершение просроченных бронирований
	svc.StartReservationSweeper(ctx, cfg.SweepInterval)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting tuparking server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

func newRepository(cfg *config.Config, sugar *zap.SugaredLogger) (service.Repository, error) {
	if cfg.DatabaseURI == "" {
		sugar.Warn("DATABASE_URI is empty, using in-memory storage with demo parking lots")
		return repository.NewMemoryRepository(repository.DemoLots()...), nil
	}
	return repository.NewPostgresRepository(cfg.DatabaseURI)
}
