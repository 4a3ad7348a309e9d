package shutdownsetup

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brasserie/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// SetupGracefulShutdown blocks until SIGINT/SIGTERM, then drains the HTTP
// server before returning.
func SetupGracefulShutdown(server *http.Server, log *logger.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	sig := <-stop
	log.Info("Shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Graceful shutdown failed, forcing close", "error", err)
		if err := server.Close(); err != nil {
			log.Error("Forced close failed", "error", err)
		}
		return
	}

	log.Info("Server shut down cleanly")
}
