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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/anime-search-bot/internal/cache"
	"github.com/kitbuilder587/anime-search-bot/internal/config"
	"github.com/kitbuilder587/anime-search-bot/internal/metrics"
	"github.com/kitbuilder587/anime-search-bot/internal/ratelimit"
	"github.com/kitbuilder587/anime-search-bot/internal/repository"
	pgRepo "github.com/kitbuilder587/anime-search-bot/internal/repository/postgres"
	"github.com/kitbuilder587/anime-search-bot/internal/search"
	"github.com/kitbuilder587/anime-search-bot/internal/search/jikan"
	"github.com/kitbuilder587/anime-search-bot/internal/service"
	"github.com/kitbuilder587/anime-search-bot/internal/telegram"
	"github.com/kitbuilder587/anime-search-bot/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// логгера ещё нет
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("bot stopped with error", zap.Error(err))
	}
	logger.Info("bot stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.Init(ctx, telemetry.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Log.Service,
	}, logger)
	if err != nil {
		logger.Warn("otel init failed", zap.Error(err))
	}
	defer func() {
		if shutdownTracer == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	m := metrics.New(nil)

	logger.Info("configuration loaded",
		zap.String("jikan_url", cfg.Jikan.BaseURL),
		zap.Duration("jikan_timeout", cfg.Jikan.Timeout),
		zap.Int("page_limit", cfg.Jikan.PageLimit),
		zap.Duration("cache_ttl", cfg.Cache.TTL),
		zap.Duration("debounce", cfg.Session.Debounce),
		zap.Bool("has_database", cfg.Database.URL != ""),
		zap.String("metrics_addr", cfg.Metrics.Addr),
	)

	upstream := jikan.New(jikan.Config{
		BaseURL:           cfg.Jikan.BaseURL,
		Timeout:           cfg.Jikan.Timeout,
		PageLimit:         cfg.Jikan.PageLimit,
		RequestsPerSecond: cfg.Jikan.RequestsPerSecond,
	}, logger.Named("jikan"))
	client := search.NewCachingClient(upstream, cache.New(cfg.Cache.TTL), search.CachingConfig{
		HitDelay: cfg.Cache.HitDelay,
	}, logger.Named("search"), m)

	users, sessions, closeDB, err := openRepositories(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	userSvc := service.NewUserService(users, logger)
	searchSvc := service.NewSearchService(service.SearchServiceDeps{
		Client:   client,
		Sessions: sessions,
		Users:    userSvc,
		Cache:    client,
		Config: service.SearchConfig{
			Debounce:    cfg.Session.Debounce,
			IdleTimeout: cfg.Session.IdleTimeout,
		},
		Logger:  logger.Named("sessions"),
		Metrics: m,
	})

	limiter := ratelimit.New(ratelimit.Config{RequestsPerMinute: cfg.RateLimit.RequestsPerMinute})

	bot, err := telegram.New(telegram.BotConfig{
		Token: cfg.Telegram.Token,
		Debug: cfg.Log.Level == "debug",
	}, userSvc, searchSvc, limiter, logger.Named("telegram"), m)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return searchSvc.Run(gctx)
	})
	g.Go(func() error {
		limiter.Run(gctx)
		return nil
	})
	g.Go(func() error {
		err := bot.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.Metrics.Addr, logger)
		})
	}

	logger.Info("anime search bot started")
	return g.Wait()
}

// openRepositories без DATABASE_URL отдаёт хранилища в памяти
func openRepositories(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (repository.UserRepository, repository.SessionRepository, func(), error) {
	if cfg.URL == "" {
		logger.Warn("DATABASE_URL is empty, sessions are kept in memory")
		return repository.NewMemoryUserRepository(), repository.NewMemorySessionRepository(), func() {}, nil
	}

	db, err := pgRepo.New(ctx, cfg.URL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	logger.Info("connected to database")

	return pgRepo.NewUserRepo(db), pgRepo.NewSessionRepo(db), db.Close, nil
}

func serveMetrics(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("metrics server started", zap.String("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
