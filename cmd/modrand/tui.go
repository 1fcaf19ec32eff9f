package main

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

	"modrand/internal/core"
	"modrand/internal/tui"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var metricsAddr string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive mod list",
	Long: `Open the interactive view: the mod checklist of the shown profile,
the profile list and the settings.

Changes made elsewhere, for example by another modrand process, show up
live. With --metrics-addr the session counters are served on /metrics.

Examples:
  modrand tui
  modrand tui --metrics-addr 127.0.0.1:9464`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (default: metrics_addr from config)")

	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := metricsAddr
	if addr == "" {
		addr = service.Config().MetricsAddr
	}
	if addr != "" {
		shutdown := serveMetrics(addr, service.Metrics())
		defer shutdown()
	}

	if err := tui.Run(ctx, service); err != nil {
		return err
	}
	return flushSession(context.WithoutCancel(ctx), service)
}

// serveMetrics exposes m on addr until the returned func is called.
func serveMetrics(addr string, m *core.Metrics) (shutdown func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("metrics server stopped", "addr", addr, "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
