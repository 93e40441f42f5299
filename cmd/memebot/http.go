package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Vladymirovich/MemeBot/internal/logging"
	"github.com/Vladymirovich/MemeBot/internal/observability"
)

// metricsServer serves /metrics and /health.
type metricsServer struct {
	srv    *http.Server
	logger zerolog.Logger
	done   chan struct{}
}

func newRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", observability.Handler())
	return r
}

func startMetricsServer(addr string, logger zerolog.Logger) *metricsServer {
	m := &metricsServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           newRouter(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logging.Component(logger, "http"),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(m.done)
		m.logger.Info().Str("addr", addr).Msg("starting metrics server")
		if err := m.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().Err(err).Msg("metrics server error")
		}
	}()
	return m
}

// Shutdown stops the server, waiting up to five seconds for open requests.
func (m *metricsServer) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.srv.Shutdown(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("metrics server shutdown")
	}
	<-m.done
}
