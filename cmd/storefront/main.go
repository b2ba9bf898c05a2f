// Package main запускает HTTP-сервер витрины.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/storefront/internal/cache"
	"github.com/mmeshcher/storefront/internal/config"
	"github.com/mmeshcher/storefront/internal/handler"
	"github.com/mmeshcher/storefront/internal/middleware"
	"github.com/mmeshcher/storefront/internal/orderstore"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/service"
)

// openRepository выбирает источник данных: PostgreSQL, внешнее хранилище заказов
// или JSON-фикстуры, в порядке приоритета.
func openRepository(cfg *config.Config, sugar *zap.SugaredLogger) (service.Repository, error) {
	switch {
	case cfg.DatabaseURI != "":
		sugar.Infow("using postgres repository")
		repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case cfg.OrderStoreAddress != "":
		sugar.Infow("using order store", "addr", cfg.OrderStoreAddress)
		return orderstore.NewClient(cfg.OrderStoreAddress), nil
	default:
		sugar.Infow("using fixture repository", "dir", cfg.FixturesDir, "delay", cfg.FixtureDelay)
		repo, err := repository.NewFixtureRepository(cfg.FixturesDir, cfg.FixtureDelay)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	// Переменные из .env не перекрывают уже заданные в окружении.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		sugar.Warnw("failed to load .env", "error", err.Error())
	}

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	policy, err := cfg.Policy()
	if err != nil {
		sugar.Fatalw("pricing configuration error", "error", err.Error())
	}

	repo, err := openRepository(cfg, sugar)
	if err != nil {
		sugar.Fatalw("repository initialization error", "error", err.Error())
	}

	opts := []service.Option{service.WithLogger(logger), service.WithCartTTL(cfg.CartTTL)}
	if cfg.RedisAddress != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddress, "storefront")

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := redisCache.Ping(pingCtx)
		cancel()

		if err != nil {
			sugar.Warnw("redis unavailable, tracking cache disabled", "addr", cfg.RedisAddress, "error", err.Error())
			_ = redisCache.Close()
		} else {
			opts = append(opts, service.WithCache(redisCache, cfg.CacheTTL))
		}
	}

	svc := service.NewService(repo, policy, opts...)
	defer svc.Close()

	session := middleware.NewSessionMiddleware(cfg.SessionSecret, cfg.CartTTL)
	h := handler.NewHandler(svc, logger, session)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		svc.StartCartEviction(ctx, cfg.CartSweepInterval)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting storefront server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

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
