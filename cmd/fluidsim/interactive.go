package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/san-kum/fluidsim/internal/gui"
	"github.com/san-kum/fluidsim/internal/stream"
	"github.com/san-kum/fluidsim/internal/viz"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func runLive(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && configFile == "" && preset == "" {
		return viz.RunInteractive(logger)
	}
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	return viz.RunLive(cfg, logger)
}

func runGUI(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	return gui.Run(cfg, logger)
}

// runServe steps the solver, serves its frames and optionally watches the
// config file, until interrupted.
func runServe(cmd *cobra.Command, args []string) error {
	if watchFile != "" && configFile == "" {
		configFile = watchFile
	}
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	if fps <= 0 {
		fps = 30
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s := stream.New(cfg, stream.WithInterval(time.Second/time.Duration(fps)), stream.WithLogger(logger))
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Run(ctx) })
	if watchFile != "" {
		g.Go(func() error { return s.Watch(ctx, watchFile) })
	}
	g.Go(func() error {
		logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	})
	return g.Wait()
}
