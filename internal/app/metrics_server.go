package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/solanize/solanize-client/internal/metrics"
)

const (
	metricsPath                  = "/metrics"
	metricsServerShutdownTimeout = 5 * time.Second
)

func metricsHandler(metricsService metrics.MetricsService) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, promhttp.HandlerFor(metricsService.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func startMetricsServer(port int, metricsService metrics.MetricsService) *http.Server {
	server := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           metricsHandler(metricsService),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("Starting metrics server on port %d", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Metrics server error: %v", err)
		}
	}()
	return server
}

func shutdownMetricsServer(ctx context.Context, server *http.Server) {
	ctx, cancel := context.WithTimeout(ctx, metricsServerShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Ctx(ctx).Errorf("shutting down metrics server: %v", err)
	}
}
