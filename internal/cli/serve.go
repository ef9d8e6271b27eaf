package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpAdapter "github.com/aretw0/storewizard/pkg/adapters/http"
	"github.com/aretw0/storewizard/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ShutdownTimeout bounds graceful shutdown of the HTTP server.
const ShutdownTimeout = 5 * time.Second

// NewServeHandler returns the wizard API with /metrics mounted when enabled.
func NewServeHandler(stack *Stack, sessions *session.Manager, gatherer prometheus.Gatherer) (http.Handler, error) {
	api, err := httpAdapter.NewHandler(sessions,
		httpAdapter.WithRemoteValidator(stack.Validator),
		httpAdapter.WithStreams(stack.Streams),
		httpAdapter.WithLogger(stack.Logger),
		httpAdapter.WithRequestValidation(stack.Config.Server.RequestValidationEnabled()),
	)
	if err != nil {
		return nil, err
	}
	if !stack.Config.Metrics.Enabled || gatherer == nil {
		return api, nil
	}

	mux := http.NewServeMux()
	mux.Handle(stack.Config.Metrics.Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/", api)
	return mux, nil
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, stack *Stack, gatherer prometheus.Gatherer) error {
	sessions := stack.Sessions()
	defer sessions.Shutdown()

	handler, err := NewServeHandler(stack, sessions, gatherer)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              stack.Config.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		stack.Logger.Info("storewizard server listening",
			"addr", srv.Addr,
			"kind", stack.Blueprint.Kind,
			"store", stack.Config.Store.Driver,
			"metrics", stack.Config.Metrics.Enabled,
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", ShutdownTimeout, err)
		}
		stack.Logger.Info("storewizard server stopped")
		return nil
	}
}
