// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/deck-engine/internal/backend"
	"github.com/pdiddy/deck-engine/internal/blob"
	"github.com/pdiddy/deck-engine/internal/llm"
	"github.com/pdiddy/deck-engine/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the backend collaborator",
	Long: `Serve hosts the backend action protocol over HTTP. Presentation and
question metadata live in SQLite; deck artifacts go to the configured blob
store (filesystem or MinIO). The aiProxy action forwards prompts to every
provider that has an API key.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Backend.Listen = listen
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	blobs, err := blob.New(ctx, cfg.Blob)
	if err != nil {
		return err
	}

	router, err := newRouter(ctx, cfg.AI, logger)
	if err != nil {
		return err
	}
	var gen llm.Generator
	if router != nil {
		gen = router
	} else {
		logger.Warn("no generation provider configured; aiProxy is disabled")
	}

	svc := backend.NewService(st, blobs, gen, logger)
	srv := &http.Server{
		Addr:              cfg.Backend.Listen,
		Handler:           backend.NewHTTPServer(svc, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	fmt.Fprintf(os.Stderr, "deck-engine backend listening on %s\n", cfg.Backend.Listen)
	logger.Info("backend started",
		zap.String("listen", cfg.Backend.Listen),
		zap.String("store", cfg.Store.Path),
		zap.String("blob", string(cfg.Blob.Backend)))

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	logger.Info("backend stopped")
	return nil
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (overrides backend.listen)")

	rootCmd.AddCommand(serveCmd)
}
