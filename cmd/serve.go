package main

import (
	"bitfrost-bridge/internal/emitters"
	"bitfrost-bridge/internal/health"
	"bitfrost-bridge/internal/logger"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge client as a daemon",
	Long: `Keep the registry fresh and serve the transfer API: preflight, fee
estimates, building and tracking under /v1. Events are streamed on the /events
websocket feed and also go to Kafka and the Postgres journal when those are
configured. /healthz and /readyz report liveness and readiness.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, cleanup, err := newBridgeClient(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	feed := emitters.NewFeed(logger.Component("feed"))
	defer feed.Close()
	client.Events().SubscribeEmitter("websocket", feed)

	// The first load happened inside New; refresh once more so readiness
	// has a status before the server starts.
	health.RegisterRegistry(client.Cache())
	if err := client.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to refresh registry: %w", err)
	}
	health.SetReady(true)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", health.LivenessHandler)
	mux.HandleFunc("/readyz", health.ReadinessHandler)
	mux.Handle("/events", feed)

	api := newTransferAPI(ctx, client, logger.Component("api"))
	api.register(mux)

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.ListenAddress).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	health.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	shutdownErr := server.Shutdown(shutdownCtx)

	// Tracking loops end with ctx; wait so their last events reach the sinks
	stop()
	api.Wait()

	if runErr != nil {
		return runErr
	}
	return shutdownErr
}
