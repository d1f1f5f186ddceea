package main

import (
	"context"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"netboxdeploy/internal/history"
	"netboxdeploy/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	serveHost     string
	servePort     int
	serveTestMode bool
	serveRemote   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the render HTTP API",
	Long: `Serve the render API.

Endpoints:
  GET  /health                 Liveness check
  POST /validate               Validate a config (JSON or YAML body)
  POST /render/{deployment}    Render a config, ?provision=true adds scripts
  GET  /renders/{deployment}   Latest and recent renders of a deployment

Rendered artifacts include the secret key and every password of the posted
config, and the API has no authentication. It listens on loopback only unless
--allow-remote is given; put it behind an authenticating proxy in that case.

Test mode disables rate limiting and the history database.`,
	Example: `  netboxdeploy serve --host 0.0.0.0 --port 5000
  NETBOXDEPLOY_PORT=8080 netboxdeploy serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Address to listen on")
	serveCmd.Flags().IntVar(&servePort, "port", 5000, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveTestMode, "test-mode", false, "Disable rate limiting and history")
	serveCmd.Flags().BoolVar(&serveRemote, "allow-remote", false, "Allow listening on non-loopback addresses")
}

func runServe(cmd *cobra.Command, args []string) error {
	if servePort < 1 || servePort > 65535 {
		return fmt.Errorf("port out of range (1-65535), got %d", servePort)
	}

	if !serveRemote && !isLoopbackHost(serveHost) {
		return fmt.Errorf("refusing to serve rendered secrets on %s without --allow-remote", serveHost)
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !isLoopbackHost(serveHost) {
		logger.Warn("render API reachable from the network without authentication", zap.String("host", serveHost))
	}

	var hist *history.History
	if !serveTestMode {
		hist, err = history.NewHistory(historyDB)
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
	}

	srv := server.NewServer(newRenderer(logger, templateDirs()...), hist, logger, serveTestMode)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(serveHost, servePort)
	}()

	select {
	case err := <-errCh:
		if hist != nil {
			hist.Close()
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
		return err
	}
	return <-errCh
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	addr, err := netip.ParseAddr(host)
	return err == nil && addr.IsLoopback()
}
