package server

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// GracefulShutdown blocks until SIGINT/SIGTERM, then drains the HTTP server
// and signals done. A second signal during the drain forces exit.
func GracefulShutdown(srv *http.Server, logger *zap.Logger, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info("Shutdown signal received, draining requests")

	stop()

	// In-flight requests get 5 seconds before the listener is torn down.
	drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(drainCtx); err != nil {
		logger.Error("Drain timed out, forcing shutdown", zap.Error(err))
	}

	done <- true
}
