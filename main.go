package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	configPath      = flag.String("config", "", "JSON config file (routes, sink URLs, cadence); built-in defaults when empty")
	listenAddr      = flag.String("listen", ":8080", "monitor server address; empty disables it")
	shutdownTimeout = flag.Duration("shutdown_timeout", 10*time.Second, "monitor server shutdown timeout")
	logLevel        = flag.String("log_level", "info", "log level: debug, info, warn, error")
	maxCycles       = flag.Int("max_cycles", -1, "stop after this many publish cycles; overrides the config when >= 0")
)

func main() {
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "bad -log_level: %v\n", err)
		os.Exit(2)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(1)
	}
	if ctx.Err() != nil {
		slog.Info("interrupted, publisher stopped")
	}
}

func loadConfig() (Config, error) {
	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = LoadConfig(*configPath); err != nil {
			return Config{}, err
		}
	}
	if *maxCycles >= 0 {
		cfg.MaxCycles = *maxCycles
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg Config) error {
	hub := newWsHub()
	track := newTracker(hub)
	sink := NewHTTPSink(cfg.BaseURLs, cfg.Collection, cfg.Field, time.Duration(cfg.RequestTimeout))
	pub, err := NewPublisher(cfg, sink, WithRecorder(track))
	if err != nil {
		return err
	}
	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		if b, err := json.Marshal(cfg); err == nil {
			slog.Debug("effective config", "config", string(b))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancelRun := context.WithCancel(gctx)
	defer cancelRun()

	g.Go(func() error {
		// a bounded run ends the monitor server too
		defer cancelRun()
		return pub.Run(runCtx)
	})

	if *listenAddr != "" {
		mux := http.NewServeMux()
		registerRoutes(mux, track, hub)
		srv := &http.Server{
			Addr:              *listenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			slog.Info("monitor server starting", "addr", *listenAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				// the monitor is optional; the publisher keeps going without it
				slog.Error("monitor server stopped", "addr", *listenAddr, "err", err)
			}
			return nil
		})
		g.Go(func() error {
			<-runCtx.Done()
			hub.closeAll()
			sctx, cancel := context.WithTimeout(context.Background(), *shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				return fmt.Errorf("monitor server shutdown: %w", err)
			}
			slog.Info("monitor server shut down")
			return nil
		})
	}

	return g.Wait()
}
