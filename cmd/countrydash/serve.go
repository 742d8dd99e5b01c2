package main

import (
	"context"
	"countrydash/internal/api"
	"countrydash/internal/config"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		return run(context.Background(), cfg, logger)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}

// run sets up and runs the HTTP server until ctx is done or a signal arrives.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tableService := newTableService(cfg, logger)
	countryHandler := api.NewCountryHandler(tableService, logger, api.PageOptions{
		PreviewRows:  cfg.Dashboard.PreviewRows,
		DefaultChart: cfg.Dashboard.DefaultChart,
		SourceURL:    cfg.Source.URL,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(countryHandler, logger),
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
		IdleTimeout:  cfg.GetIdleTimeout(),
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("error starting server: %w", err)
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("addr", ln.Addr().String()))
		// Serve always returns a non-nil error; ErrServerClosed means a graceful shutdown.
		if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("error running server: %w", err)
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("Server gracefully stopped")
	return nil
}
