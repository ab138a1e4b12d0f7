package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	appLog "tourcal/internal/log"
	"tourcal/internal/schedule"
	"tourcal/internal/source"
	"tourcal/internal/web"
)

const eventsCacheTTL = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API and revalidate links on a schedule",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var (
	serveListen string
	serveOnce   bool
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP listen address (overrides config listen)")
	serveCmd.Flags().BoolVar(&serveOnce, "once", false, "Run one validation pass, log the result and exit")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if serveListen != "" {
		cfg.Listen = serveListen
	}

	src, err := openSource()
	if err != nil {
		return err
	}
	links, err := openLinks()
	if err != nil {
		return err
	}
	cached := source.NewCached(src, eventsCacheTTL)
	reval := schedule.NewRevalidator(cached, links)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	res, err := reval.Run(ctx)
	if err != nil {
		appLog.Error("initial validation failed", err)
	} else {
		appLog.Info("validated", "conflicts", len(res.Conflicts), "errors", res.Errors, "warnings", res.Warnings)
	}
	if serveOnce {
		return err
	}

	sched, err := schedule.Start(ctx, cfg.Revalidate, reval)
	if err != nil {
		return err
	}
	defer sched.Stop()

	srv := web.NewServer(cfg, cached, links, reval)
	if err := srv.ListenAndServe(ctx); err != nil {
		return err
	}
	appLog.Info("tourcal exiting")
	return nil
}
