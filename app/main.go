package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wezm/rsspls/app/api"
	"github.com/wezm/rsspls/app/cache"
	"github.com/wezm/rsspls/app/cfg"
	"github.com/wezm/rsspls/app/config"
	"github.com/wezm/rsspls/app/fetch"
	"github.com/wezm/rsspls/app/output"
	"github.com/wezm/rsspls/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	if appCfg.Debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	if err := run(appCfg); err != nil {
		slog.Error("Run failed", "error", err)
		os.Exit(1)
	}
}

func run(appCfg *cfg.Cfg) error {
	feedConfig, err := config.NewLoader(appCfg.ConfigPath).Load()
	if err != nil {
		return err
	}
	slog.Info("Configuration loaded", "path", appCfg.ConfigPath, "feeds", len(feedConfig.Feeds))

	outputDir, err := resolveOutputDir(appCfg, feedConfig)
	if err != nil {
		return err
	}
	if err := output.EnsureDir(outputDir); err != nil {
		return err
	}

	store, err := cache.NewStore(appCfg.CacheDB)
	if err != nil {
		return err
	}
	defer store.Close()

	fetcher := fetch.NewFetcher(appCfg.UserAgent, time.Duration(appCfg.RequestTimeout)*time.Second)
	runner := tasks.NewRunner(feedConfig.Feeds, fetcher, store, outputDir, appCfg.WorkerCount)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed := runOnce(ctx, runner)

	if !appCfg.Serve {
		if failed {
			return fmt.Errorf("one or more feeds failed")
		}
		return nil
	}

	return serve(ctx, appCfg, runner, store, feedConfig.Feeds, outputDir)
}

// runOnce processes every feed and reports whether any of them failed.
func runOnce(ctx context.Context, runner *tasks.Runner) bool {
	written, skipped, failed := 0, 0, 0
	for _, result := range runner.Run(ctx) {
		switch result.Status {
		case tasks.StatusWritten:
			written++
		case tasks.StatusSkipped:
			skipped++
		case tasks.StatusFailed:
			failed++
		}
	}
	slog.Info("Run complete", "written", written, "skipped", skipped, "failed", failed)
	return failed > 0
}

// serve keeps the process alive, regenerating feeds on an interval and
// serving the generated files over HTTP.
func serve(ctx context.Context, appCfg *cfg.Cfg, runner *tasks.Runner, store *cache.Store,
	feeds []config.Feed, outputDir string) error {
	handler := api.NewHandler(outputDir, store, feeds)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Serving feeds", "port", appCfg.Port, "output_dir", outputDir)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	go func() {
		interval := time.Duration(appCfg.RefreshInterval) * time.Second
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runOnce(ctx, runner)
			}
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutting down")
	case serveErr = <-serverErrChan:
		slog.Error("Server error", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	return serveErr
}

// resolveOutputDir prefers the command line flag over the configuration
// file's [rsspls] output setting, expanding a leading tilde in the latter.
func resolveOutputDir(appCfg *cfg.Cfg, feedConfig *config.Config) (string, error) {
	if appCfg.OutputDir != "" {
		return appCfg.OutputDir, nil
	}
	if feedConfig.Rsspls.Output != "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("unable to determine home directory: %w", err)
		}
		return config.ExpandTilde(feedConfig.Rsspls.Output, home), nil
	}
	return "", fmt.Errorf("output directory must be supplied via --output or be present in configuration file")
}
