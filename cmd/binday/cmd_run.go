package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"binday/internal/server"
)

var runFlags struct {
	listen string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the schedule feed for every household and serve the results over HTTP",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runFlags.listen, "listen", "", "HTTP listen address (overrides config)")
}

func runRun(cmd *cobra.Command, _ []string) error {
	a, err := setupApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.registry.Open(ctx); err != nil {
		return err
	}

	addr := a.cfg.Server.Listen
	if runFlags.listen != "" {
		addr = runFlags.listen
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(server.NewHandler(a.registry, a.now), a.cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.registry.Run(gctx)
	})
	g.Go(func() error {
		a.log.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	a.log.Info("stopped")
	return err
}
