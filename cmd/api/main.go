package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mohammed-shakir/favplaces/internal/auth"
	"github.com/mohammed-shakir/favplaces/internal/cache"
	"github.com/mohammed-shakir/favplaces/internal/cache/memstore"
	"github.com/mohammed-shakir/favplaces/internal/cache/rediscache"
	"github.com/mohammed-shakir/favplaces/internal/cache/redisstore"
	"github.com/mohammed-shakir/favplaces/internal/core/config"
	"github.com/mohammed-shakir/favplaces/internal/core/health"
	"github.com/mohammed-shakir/favplaces/internal/core/httpclient"
	"github.com/mohammed-shakir/favplaces/internal/core/observability"
	"github.com/mohammed-shakir/favplaces/internal/core/server"
	"github.com/mohammed-shakir/favplaces/internal/events"
	"github.com/mohammed-shakir/favplaces/internal/favorites"
	"github.com/mohammed-shakir/favplaces/internal/logger"
	"github.com/mohammed-shakir/favplaces/internal/mapper/h3"
	"github.com/mohammed-shakir/favplaces/internal/places"
	"github.com/mohammed-shakir/favplaces/internal/search"
	"github.com/mohammed-shakir/favplaces/internal/store"
	"github.com/mohammed-shakir/favplaces/pkg/adaptive"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", "", "listen address, overrides ADDR")
	flag.Parse()

	cfg := config.FromEnv()
	if *addr != "" {
		cfg.Addr = strings.TrimSpace(*addr)
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "favplaces",
		Component: "api",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	metrics := observability.NewProvider()
	observability.Init(metrics.Registerer(), cfg.MetricsEnabled)
	observability.ExposeBuildInfo(Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLog.Info("starting api",
		"addr", cfg.Addr,
		"version", Version,
		"cache_driver", cfg.CacheDriver,
		"events", cfg.Events.Enabled)

	ready := map[string]health.Pinger{}

	pageStore, err := cache.New(ctx, cfg.CacheDriver, cfg, appLog)
	if err != nil {
		appLog.Error("page cache setup failed", "err", err)
		return 1
	}
	if p, ok := pageStore.(health.Pinger); ok {
		ready["cache"] = p
	}

	sessionStore, err := newSessionStore(ctx, cfg)
	if err != nil {
		appLog.Error("session store setup failed", "err", err)
		return 1
	}

	db, err := store.Open(cfg.DBPath, appLog)
	if err != nil {
		appLog.Error("database open failed", "err", err)
		return 1
	}
	defer func() { _ = db.Close() }()
	ready["db"] = db

	placesClient, err := places.New(cfg.Places, appLog, httpclient.NewOutbound(cfg.Places.Timeout, cfg.Places.RPS))
	if err != nil {
		appLog.Error("places client setup failed", "err", err)
		return 1
	}

	var sink events.Sink = events.Nop{}
	if cfg.Events.Enabled {
		pub, err := events.NewPublisher(cfg.Events.BrokerList(), cfg.Events.Topic, cfg.Events.Queue, appLog)
		if err != nil {
			appLog.Error("event publisher setup failed", "err", err)
			return 1
		}
		defer func() { _ = pub.Close() }()
		sink = pub
	}

	cells, err := h3mapper.New(cfg.FavoritesH3Res)
	if err != nil {
		appLog.Error("h3 mapper setup failed", "err", err)
		return 1
	}

	searchSvc := search.New(cache.NewPages(pageStore), placesClient, appLog,
		search.WithEvents(sink),
		search.WithPageDelay(cfg.Places.PageDelay))
	favSvc := favorites.New(db, placesClient, cells, cfg.NearRadius, sink, appLog)
	authSvc := auth.NewService(db,
		auth.NewSessions(sessionStore),
		auth.NewTokens(cfg.Auth.Secret, cfg.Auth.TokenTTL),
		appLog)

	deps := server.Deps{
		Search:    searchSvc,
		Favorites: favSvc,
		Auth:      authSvc,
		Ready:     ready,
	}
	if cfg.MetricsEnabled {
		deps.Metrics = metrics.Handler()
	}
	handler := server.NewRouter(cfg, appLog, deps)

	if err := server.Run(ctx, cfg, appLog, handler); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

// newSessionStore keeps sessions next to the page cache, with their own TTL.
func newSessionStore(ctx context.Context, cfg config.Config) (cache.Store, error) {
	if cfg.CacheDriver != "redis" {
		return memstore.New(cfg.Auth.TokenTTL), nil
	}
	rc, err := redisstore.New(ctx, cfg.RedisAddr, redisstore.WithOpTimeout(cfg.CacheOpTimeout))
	if err != nil {
		return nil, err
	}
	return rediscache.New(rc, cfg.RedisPartition, cfg.CacheOpTimeout, adaptive.Static(cfg.Auth.TokenTTL)), nil
}
