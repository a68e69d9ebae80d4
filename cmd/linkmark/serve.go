package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/theognis1002/linkmark/internal/server"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, root, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, root *rootOptions, addr string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, root, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	if addr != "" {
		a.cfg.Server.Addr = addr
	}

	var snapshots server.SnapshotStore
	snaps, err := a.snapshots(ctx)
	if err != nil {
		return err
	}
	if snaps != nil {
		snapshots = snaps
	}

	loader, err := a.loader()
	if err != nil {
		return err
	}

	srv := server.New(loader, a.settingsStore(), snapshots, a.cfg.Server, a.highlightDefaults(), a.cfg.Fetcher.MaxBodyBytes, a.logger)
	httpServer := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.Server.ShutdownTimeoutS)*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		a.logger.Error("server error", "error", err)
		return err
	}
	a.logger.Info("server stopped")
	return nil
}
