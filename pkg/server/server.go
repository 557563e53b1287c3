// Package server exposes studios over HTTP. Each uploaded image opens a
// session holding its own canvas; the engine and background-removal
// service are shared.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Fepozopo/promptcanvas/pkg/config"
	"github.com/Fepozopo/promptcanvas/pkg/logging"
	"github.com/Fepozopo/promptcanvas/pkg/studio"
)

type Server struct {
	cfg        config.ServerConfig
	env        *studio.Env
	sessions   *Sessions
	version    string
	httpServer *http.Server
}

func New(cfg config.ServerConfig, env *studio.Env, version string) *Server {
	return &Server{
		cfg:      cfg,
		env:      env,
		sessions: NewSessions(cfg.SessionTTL),
		version:  version,
	}
}

func (s *Server) Sessions() *Sessions { return s.sessions }

// Routes builds the gin engine.
func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(Logger())
	r.Use(CORS())
	r.MaxMultipartMemory = s.env.Intake.MaxSize + 1<<20

	r.GET("/health", s.health)

	api := r.Group("/api")
	api.Use(Timeout(s.cfg.WriteTimeout))
	{
		api.GET("/commands", s.commands)
		api.POST("/sessions", s.createSession)

		sess := api.Group("/sessions/:id")
		{
			sess.GET("", s.getSession)
			sess.DELETE("", s.deleteSession)
			sess.POST("/commands", s.runCommand)
			sess.GET("/history", s.history)
			sess.POST("/filters", s.applyFilter)
			sess.POST("/reset", s.reset)
			sess.POST("/background", s.removeBackground)
			sess.GET("/image", s.image)
			sess.GET("/mask", s.mask)
		}
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:           s.cfg.Port,
		Handler:        s.Routes(),
		MaxHeaderBytes: 1 << 20,
		ReadTimeout:    s.cfg.ReadTimeout,
		WriteTimeout:   s.cfg.WriteTimeout,
	}

	go s.sessions.Janitor(ctx, s.cfg.SessionTTL/2)

	errc := make(chan error, 1)
	go func() {
		logging.Logger.Info("server starting", zap.String("addr", s.cfg.Port), zap.String("version", s.version))
		errc <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logging.Logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

func (s *Server) Shutdown(ctx context.Context) error {
	defer s.sessions.CloseAll()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
