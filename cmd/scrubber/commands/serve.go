package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/scrubber/api"
	"github.com/use-agent/scrubber/scrubber"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the scrape API over HTTP.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// ── 1. Load configuration + logging ─────────────────────────
		cfg, err := loadConfig(os.Stdout)
		if err != nil {
			return err
		}
		slog.Info("scrubber starting",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
			"mode", cfg.Server.Mode,
			"base_url", cfg.Scraper.BaseURL,
			"cache_dir", cfg.Cache.Dir,
		)

		// ── 2. Initialise orchestrator ──────────────────────────────
		s, err := scrubber.NewFromConfig(cfg, slog.Default())
		if err != nil {
			return fmt.Errorf("failed to initialise scrubber: %w", err)
		}

		// ── 3. Setup router + server ────────────────────────────────
		router := api.NewRouter(s, cfg, time.Now())
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: router,
		}

		errc := make(chan error, 1)
		go func() {
			slog.Info("HTTP server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()

		// ── 4. Graceful shutdown ────────────────────────────────────
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		select {
		case err := <-errc:
			return fmt.Errorf("HTTP server error: %w", err)
		case <-ctx.Done():
			slog.Info("shutdown signal received")
		}

		// Give in-flight requests 5 seconds to complete.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server forced shutdown", "error", err)
		} else {
			slog.Info("HTTP server drained gracefully")
		}
		slog.Info("scrubber stopped")
		return nil
	},
}
