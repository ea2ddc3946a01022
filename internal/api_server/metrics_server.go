package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/pkg/metrics"
)

const defaultSessionResetPeriod = 7 * 24 * time.Hour

type MetricServerOption func(m *MetricServer)

// WithSessionResetPeriod changes how often the distinct sessions gauge starts over.
func WithSessionResetPeriod(d time.Duration) MetricServerOption {
	return func(m *MetricServer) {
		if d > 0 {
			m.resetPeriod = d
		}
	}
}

// MetricServer exposes the prometheus registry on its own listener so /metrics never goes
// through the session and cors middlewares of the api.
type MetricServer struct {
	httpServer  *http.Server
	listener    net.Listener
	resetPeriod time.Duration
	log         *zap.SugaredLogger
}

func NewMetricServer(bindAddress string, listener net.Listener, opts ...MetricServerOption) *MetricServer {
	router := chi.NewRouter()
	router.Use(chiMiddleware.Recoverer)
	router.Handle("/metrics", metrics.NewPrometheusMetricsHandler().Handler())

	m := &MetricServer{
		listener:    listener,
		resetPeriod: defaultSessionResetPeriod,
		log:         zap.S().Named("metrics_server"),
		httpServer: &http.Server{
			Addr:              bindAddress,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *MetricServer) Run(ctx context.Context) error {
	go m.shutdownOnDone(ctx)
	go m.resetSessions(ctx)

	m.log.Infof("serving metrics: %s", m.listener.Addr().String())
	if err := m.httpServer.Serve(m.listener); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (m *MetricServer) shutdownOnDone(ctx context.Context) {
	<-ctx.Done()
	ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	m.httpServer.SetKeepAlivesEnabled(false)
	_ = m.httpServer.Shutdown(ctxTimeout)
	m.log.Info("metrics server terminated")
}

func (m *MetricServer) resetSessions(ctx context.Context) {
	ticker := time.NewTicker(m.resetPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.UniqueSessionsPerWeek.Reset()
			m.log.Debug("unique sessions metric reset")
		case <-ctx.Done():
			return
		}
	}
}
