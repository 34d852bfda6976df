package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// StartServer runs the HTTP API on the given port in a background goroutine
// and returns the http.Server for graceful shutdown.
func StartServer(router *gin.Engine, port string) *http.Server {
	addr := fmt.Sprintf(":%s", port)

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("address", addr).Msg("HTTP API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	return srv
}

// ShutdownServer stops accepting new requests and waits up to timeout for
// in-flight requests to finish.
func ShutdownServer(srv *http.Server, timeout time.Duration) error {
	log.Info().Msg("Shutting down HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("HTTP server shutdown complete")
	return nil
}
