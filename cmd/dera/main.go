// Package main запускает HTTP-сервер магазина DERA.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/valelectronic/DERA-PROJECT/internal/cache"
	"github.com/valelectronic/DERA-PROJECT/internal/config"
	"github.com/valelectronic/DERA-PROJECT/internal/handler"
	"github.com/valelectronic/DERA-PROJECT/internal/imagehost"
	"github.com/valelectronic/DERA-PROJECT/internal/middleware"
	"github.com/valelectronic/DERA-PROJECT/internal/paystack"
	"github.com/valelectronic/DERA-PROJECT/internal/repository"
	"github.com/valelectronic/DERA-PROJECT/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	var redisCache *cache.RedisCache
	if cfg.RedisAddress != "" {
		redisCache, err = cache.NewRedisCache(cfg.RedisAddress, cfg.RedisPassword)
		if err != nil {
			sugar.Fatalw("redis initialization error", "error", err.Error())
		}
		defer redisCache.Close()
	}

	gateway := paystack.NewClient(cfg.GatewayAddress, cfg.GatewaySecret)

	var images *imagehost.Client
	if cfg.AssetHostURL != "" {
		images = imagehost.NewClient(cfg.AssetHostURL, cfg.AssetHostKey)
	}

	// Интерфейсы принимают только ненулевые реализации:
	// typed-nil в интерфейсе не распознаётся проверкой на nil.
	var svcCache service.Cache
	if redisCache != nil {
		svcCache = redisCache
	}
	var svcImages service.ImageHost
	if images != nil {
		svcImages = images
	}

	svc := service.NewService(repo, svcCache, gateway, svcImages, service.Options{
		CallbackBaseURL: cfg.CallbackBaseURL,
		CurrencyCode:    cfg.CurrencyCode,
	})
	// Закрывает и пул соединений репозитория.
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, gateway, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting dera server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
