package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"bullshark/src/handler"
	"bullshark/src/repository"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logger "github.com/sirupsen/logrus"
)

// NewRouter exposes health, prometheus metrics and read-only views of the
// store.
func NewRouter(store *repository.Store) http.Handler {
	// Router with middleware
	r := chi.NewRouter()
	// === Global Middleware ===
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error(" \"/health error")
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/status", handler.StatusHandler(store.States))
	r.Get("/trades", handler.RecentTradesHandler(store.Trades))
	r.Get("/exceptions", handler.RecentExceptionsHandler(store.Exceptions))

	return r
}

// StartServer serves h on port until ctx is cancelled, then shuts down
// gracefully. It returns once the server has stopped.
func StartServer(ctx context.Context, port string, h http.Handler) error {
	// Server setup
	addr := ":" + port
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	// Start server in goroutine
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("Server crashed")
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown error")
		return err
	}
	return nil
}
