package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/the-spice-must-sort/internal/api"
	"github.com/Veraticus/the-spice-must-sort/internal/cli"
	"github.com/Veraticus/the-spice-must-sort/internal/engine"
	"github.com/Veraticus/the-spice-must-sort/internal/jobs"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the categorization API: trigger and poll background jobs, manage
merchant and description rules, and apply manual corrections.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default from server.address)")
	_ = viper.BindPFlag("server.address", cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viper.GetViper()
	logger := slog.Default()

	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Server", "Waiting for any running categorization job to finish.")
	ctx := interrupts.HandleInterrupts(cmd.Context())

	store, err := initStorage(ctx, v)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	p, err := newPipeline(v, store, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	runner := jobs.NewRunner(store, p.categorizer, jobs.NewRegistry(), logger)
	server := api.NewServer(runner, store, engine.NewCorrector(store, logger), logger)

	if v.GetString("logging.level") != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	addr := v.GetString("server.address")
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "address", addr, "database", store.Path())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}

	runner.Wait()
	logger.Info("HTTP server stopped")
	return nil
}
