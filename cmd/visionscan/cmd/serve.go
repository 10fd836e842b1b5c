package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/visionscan/internal/server"
	"github.com/MeKo-Tech/visionscan/internal/version"
	"github.com/spf13/cobra"
)

func (a *app) serveCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP scan API",
		Long: `Start an HTTP server that scans uploaded photos.

The server provides the following endpoints:
  POST /scan/barcode - Read the first barcode in an uploaded image
  POST /scan/text    - Read the text in an uploaded image
  GET  /ws/scan      - WebSocket scans with cancellation
  GET  /health       - Health check endpoint
  GET  /metrics      - Prometheus metrics

Uploads are stored as transient files and deleted after every scan.

Examples:
  visionscan serve
  visionscan serve --port 8080
  visionscan serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
		RunE: a.runServe,
	}
	c.Flags().StringP("host", "H", "localhost", "server host")
	c.Flags().IntP("port", "p", 8080, "server port")
	c.Flags().String("cors-origin", "*", "CORS allowed origins")
	c.Flags().Int("max-upload-size", 20, "maximum upload size in MB")
	c.Flags().Int("timeout", 60, "request timeout in seconds")
	c.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	c.Flags().String("upload-dir", "", "directory for transient uploads (default is the system temp dir)")
	// Rate limiting flags
	c.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	c.Flags().Int("requests-per-minute", 60, "maximum requests per minute per client")
	c.Flags().Int("requests-per-hour", 1000, "maximum requests per hour per client")
	c.Flags().Int("max-requests-per-day", 5000, "maximum requests per day per client")
	c.Flags().Int64("max-data-per-day", 100*1024*1024, "maximum data processed per day per client (bytes)")
	return c
}

func (a *app) runServe(cmd *cobra.Command, args []string) error {
	cfg := *a.cfg
	flags := cmd.Flags()

	if flags.Changed("host") {
		cfg.Server.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("cors-origin") {
		cfg.Server.CORSOrigin, _ = flags.GetString("cors-origin")
	}
	if flags.Changed("max-upload-size") {
		cfg.Server.MaxUploadMB, _ = flags.GetInt("max-upload-size")
	}
	if flags.Changed("timeout") {
		cfg.Server.TimeoutSec, _ = flags.GetInt("timeout")
	}
	if flags.Changed("shutdown-timeout") {
		cfg.Server.ShutdownTimeout, _ = flags.GetInt("shutdown-timeout")
	}
	if flags.Changed("upload-dir") {
		cfg.Server.UploadDir, _ = flags.GetString("upload-dir")
	}

	rl := &cfg.Server.RateLimit
	if flags.Changed("rate-limit-enabled") {
		rl.Enabled, _ = flags.GetBool("rate-limit-enabled")
	}
	if flags.Changed("requests-per-minute") {
		rl.RequestsPerMinute, _ = flags.GetInt("requests-per-minute")
	}
	if flags.Changed("requests-per-hour") {
		rl.RequestsPerHour, _ = flags.GetInt("requests-per-hour")
	}
	if flags.Changed("max-requests-per-day") {
		rl.MaxRequestsPerDay, _ = flags.GetInt("max-requests-per-day")
	}
	if flags.Changed("max-data-per-day") {
		rl.MaxDataPerDay, _ = flags.GetInt64("max-data-per-day")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	detector, err := a.newDetector(&cfg)
	if err != nil {
		return fmt.Errorf("failed to create detector: %w", err)
	}

	scanServer, err := server.NewServer(server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		CORSOrigin:   cfg.Server.CORSOrigin,
		MaxUploadMB:  int64(cfg.Server.MaxUploadMB),
		TimeoutSec:   cfg.Server.TimeoutSec,
		UploadDir:    cfg.Server.UploadDir,
		BarcodeScale: cfg.BarcodeScale(),
		TextScale:    cfg.TextScale(),
		RateLimit: server.RateLimitConfig{
			Enabled:           rl.Enabled,
			RequestsPerMinute: rl.RequestsPerMinute,
			RequestsPerHour:   rl.RequestsPerHour,
			MaxRequestsPerDay: rl.MaxRequestsPerDay,
			MaxDataPerDay:     rl.MaxDataPerDay,
		},
		Version: version.Version,
	}, detector)
	if err != nil {
		_ = detector.Close()
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	mux := http.NewServeMux()
	scanServer.SetupRoutes(mux)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	httpServer := &http.Server{
		Addr:              cfg.Address(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.RequestTimeout(),
		// scans may use the full request timeout before the response is written
		WriteTimeout: cfg.RequestTimeout() + 5*time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Starting scan server", "host", cfg.Server.Host, "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Received shutdown signal, initiating shutdown")
	case err := <-serveErr:
		if err != nil {
			slog.Error("Server error", "error", err)
			runErr = err
		}
	}

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server shutdown completed")
	}
	// wait for the listener goroutine, it closes serveErr on exit
	<-serveErr

	if err := scanServer.Close(); err != nil {
		slog.Error("Server cleanup error", "error", err)
	}

	slog.Info("Graceful shutdown completed")
	return runErr
}
