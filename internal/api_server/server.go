package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/config"
	handlers "github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/handlers/v1alpha1"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/session"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/pkg/metrics"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/pkg/middleware"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
)

// Drainer is the background side of the server. It is closed once the http server stopped
// accepting requests, so no batch can be dispatched after it.
type Drainer interface {
	Close(ctx context.Context) error
}

type Server struct {
	cfg      *config.Config
	handler  *handlers.ServiceHandler
	sessions *session.Manager
	drainer  Drainer
	listener net.Listener
	metrics  *metrics.Middleware
}

// New returns a new instance of the cv analysis api server.
func New(
	cfg *config.Config,
	handler *handlers.ServiceHandler,
	sessions *session.Manager,
	drainer Drainer,
	listener net.Listener,
) *Server {
	return &Server{
		cfg:      cfg,
		handler:  handler,
		sessions: sessions,
		drainer:  drainer,
		listener: listener,
		metrics:  metrics.NewMiddleware("api_server"),
	}
}

func (s *Server) Router() http.Handler {
	router := chi.NewRouter()

	router.Use(
		s.metrics.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.Service.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			ExposedHeaders:   []string{"X-Request-Id", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	router.Get("/health", handlers.Health)
	router.Group(func(r chi.Router) {
		r.Use(s.sessions.Middleware)
		r.Route("/api/v1", s.handler.Routes)
	})

	return router
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")
	s.metrics.MustRegisterDefault()

	srv := http.Server{Addr: s.cfg.Service.Address, Handler: s.Router()}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")

		drainCtx, cancelDrain := context.WithTimeout(context.Background(), s.cfg.Service.ShutdownTimeout)
		defer cancelDrain()
		if err := s.drainer.Close(drainCtx); err != nil {
			zap.S().Named("api_server").Warnw("running jobs did not finish in time", "error", err)
		}
		zap.S().Named("api_server").Info("background jobs drained")
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-stopped

	return nil
}

// SecureCookies reports whether the session cookie must carry the Secure flag.
func SecureCookies(baseURL string) bool {
	return strings.HasPrefix(strings.ToLower(baseURL), "https://")
}
