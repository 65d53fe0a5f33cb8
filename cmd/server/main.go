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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/tablekeep/backoffice/internal/cache"
	"github.com/tablekeep/backoffice/internal/config"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/logging"
	"github.com/tablekeep/backoffice/internal/router"
	"github.com/tablekeep/backoffice/internal/ws"
)

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Fatal("server exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = pool.Ping(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	logger.Info("connected to database")

	menuCache, locker, closeRedis := setupRedis(ctx, cfg, logger)
	defer closeRedis()

	hub := ws.NewHub()
	go hub.Run(ctx)

	handler := router.New(router.Deps{
		Config:    cfg,
		Logger:    logger,
		Queries:   database.New(pool),
		Pool:      pool,
		Hub:       hub,
		MenuCache: menuCache,
		Locker:    locker,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("port", cfg.Port).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// setupRedis returns Redis-backed cache and locker when REDIS_ADDR is set and
// reachable. Anything else degrades to the no-op implementations. The
// returned func closes the client and is always safe to call.
func setupRedis(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (cache.MenuCache, cache.Locker, func()) {
	noop := func() {}
	if !cfg.RedisEnabled() {
		logger.Info("redis not configured, menu cache and split locks disabled")
		return cache.NoopMenuCache{}, cache.NoopLocker{}, noop
	}

	client := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.WithError(err).WithField("addr", cfg.RedisAddr).Warn("redis unreachable, continuing without it")
		client.Close() //nolint:errcheck
		return cache.NoopMenuCache{}, cache.NoopLocker{}, noop
	}

	logger.WithField("addr", cfg.RedisAddr).Info("connected to redis")
	closeClient := func() {
		if err := client.Close(); err != nil {
			logger.WithError(err).Warn("close redis")
		}
	}
	return cache.NewRedisMenuCache(client, cfg.MenuCacheTTL), cache.NewRedisLocker(client, cfg.SplitLockTTL), closeClient
}
