package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/favplaces/internal/core/config"
	"github.com/mohammed-shakir/favplaces/internal/core/health"
	"github.com/mohammed-shakir/favplaces/internal/core/middleware"
	"github.com/mohammed-shakir/favplaces/internal/core/router"
)

// Deps are the services the HTTP surface is built from.
type Deps struct {
	Search    router.Searcher
	Favorites router.Favorites
	Auth      interface {
		router.Auth
		middleware.Authenticator
	}
	Ready   map[string]health.Pinger
	Metrics http.Handler
}

// NewRouter mounts every route. Search and favorites need a session and are
// rate limited per user.
func NewRouter(cfg config.Config, logger *slog.Logger, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(2*time.Second, d.Ready))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", router.Register(logger, d.Auth))
		r.Post("/login", router.Login(logger, d.Auth))
		r.With(middleware.RequireAuth(d.Auth)).Post("/logout", router.Logout(logger, d.Auth))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(d.Auth))
		r.Use(middleware.RateLimit(cfg.RateLimitRPM))
		r.Get("/search", router.Search(logger, d.Search))
		r.Get("/favorites", router.ListFavorites(logger, d.Favorites))
		r.Post("/favorites/{placeId}", router.AddFavorite(logger, d.Favorites))
		r.Delete("/favorites/{placeId}", router.RemoveFavorite(logger, d.Favorites))
	})
	return r
}

// sets up http and starts serving
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, handler http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
