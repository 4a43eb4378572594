package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/helix/internal/cli"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local HTTP control server",
	Long: `Serves the signaling proxy (client secret and session offer), session control,
cached collections, direct tool calls, an SSE event stream and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			e.cfg.ListenAddr = addr
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		h, err := e.orchestrator(sigCtx)
		if err != nil {
			return err
		}
		defer h.Close()

		if err := h.Reconciler().RefreshAll(sigCtx); err != nil {
			e.logger.Warn("Initial cache refresh incomplete", "err", err)
		}

		handler, err := h.Handler()
		if err != nil {
			return err
		}
		srv := &http.Server{
			Addr:              e.cfg.ListenAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			e.logger.Info("HELIX server listening", "address", srv.Addr, "core_url", e.cfg.CoreURL)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-sigCtx.Done():
			e.logger.Info("Shutting down", "signal", sigCtx.Signal())
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				e.logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				return srv.Close()
			}
			e.logger.Info("HELIX server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides listen_addr)")
}
