// Package livehttp serves the bot dashboard and its JSON API.
package livehttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"marlin/internal/dashboard"
	"marlin/internal/logger"
	"marlin/internal/store"

	"github.com/gin-gonic/gin"
)

// Server exposes the dashboard state and journal over HTTP.
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig describes the server's dependencies.
type ServerConfig struct {
	Addr    string
	State   *dashboard.State
	Journal *store.Journal // optional; trade history and charts need it
}

// NewServer builds the dashboard HTTP server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.State == nil {
		return nil, errors.New("dashboard http server requires a state sink")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/status", statusHandler(cfg.State))
	api.GET("/logs", logsHandler(cfg.State))
	api.GET("/stats", statsHandler(cfg.State))
	api.GET("/trades", tradesHandler(cfg.State, cfg.Journal))
	router.GET("/chart", chartHandler(cfg.Journal))

	return &Server{addr: cfg.Addr, router: router}, nil
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start runs the HTTP server until ctx is canceled or serving fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("dashboard: listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
