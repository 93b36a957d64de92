package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"crypto_dash/internal/detail"
	"crypto_dash/internal/engine"
	"crypto_dash/internal/infra"
	"crypto_dash/internal/table"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Dashboard is the live table the API reads. *app.Dashboard implements it.
type Dashboard interface {
	Table() *table.Model
	Reload(ctx context.Context) error
	Stats() engine.Stats
}

// Favorites is the favorites set. *favorites.Store implements it.
type Favorites interface {
	Has(id string) bool
	List() []string
	Toggle(ctx context.Context, id string) (bool, error)
	UpdatedAt(ctx context.Context) (time.Time, error)
}

// Deps are the components the HTTP API serves.
type Deps struct {
	Dashboard Dashboard
	Favorites Favorites
	NewDetail func(id string) *detail.View
	Ping      func(ctx context.Context) error // storage health, optional
}

// Server exposes the dashboard over HTTP.
type Server struct {
	engine *gin.Engine
	srv    *http.Server
	deps   Deps

	reloadLimiter *infra.RateLimiter // nil when unlimited
	reloadTimeout time.Duration
}

// New builds the gin engine with CORS, request ids and access logs.
func New(cfg *infra.Config, deps Deps) *Server {
	r := gin.New()
	r.SetTrustedProxies(nil)
	r.Use(gin.Recovery(), RequestID(), AccessLog())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{
		engine:        r,
		deps:          deps,
		reloadLimiter: infra.NewRateLimiter(1, float64(cfg.Server.ReloadPerMinute)/60),
		reloadTimeout: time.Duration(max(cfg.API.TimeoutSec, 1)) * 3 * time.Second,
		srv: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.health)

	api := s.engine.Group("/api")
	{
		api.GET("/assets", s.listAssets)
		api.POST("/assets/reload", s.reloadAssets)
		api.GET("/details/:id", s.getDetail)
		api.GET("/favorites", s.listFavorites)
		api.POST("/favorites/:id/toggle", s.toggleFavorite)
	}
}

// Handler returns the HTTP handler (for tests and embedding).
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", slog.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	slog.Info("HTTP server shutting down")
	return s.srv.Shutdown(shutdownCtx)
}
