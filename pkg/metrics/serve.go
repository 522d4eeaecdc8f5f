package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 5 * time.Second

// Serve exposes gatherer on addr at /metrics until ctx ends. Workers that have
// no HTTP surface of their own run it alongside their main loop.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", Handler(gatherer))
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
