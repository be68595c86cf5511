package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// metricsServer serves Prometheus metrics over HTTP.
type metricsServer struct {
	srv *http.Server
	log *zap.Logger
}

func newMetricsRouter(g prometheus.Gatherer) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	return r
}

func newMetricsServer(addr string, g prometheus.Gatherer, l *zap.Logger) *metricsServer {
	return &metricsServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      newMetricsRouter(g),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: l,
	}
}

// start serves metrics in the background.
func (s *metricsServer) start() {
	s.log.Info("serving metrics", zap.String("address", s.srv.Addr))

	go func() {
		err := s.srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("metrics server failed", zap.Error(err))
		}
	}()
}

// stop gracefully shuts down the server.
func (s *metricsServer) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.Warn("metrics server shutdown failed", zap.Error(err))
	}
}
