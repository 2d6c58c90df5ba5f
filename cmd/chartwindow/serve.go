package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/chartwindow/internal/api"
	"github.com/dgnsrekt/chartwindow/internal/chartdata"
	"github.com/dgnsrekt/chartwindow/internal/config"
	"github.com/dgnsrekt/chartwindow/internal/controller"
	"github.com/dgnsrekt/chartwindow/internal/livefeed"
	"github.com/dgnsrekt/chartwindow/internal/netutil"
	"github.com/dgnsrekt/chartwindow/internal/prefs"
	"github.com/dgnsrekt/chartwindow/internal/relay"
	"github.com/dgnsrekt/chartwindow/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chart session HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		return fmt.Errorf("logger setup failed: %w", err)
	}

	slog.Info("chartwindow config loaded",
		"bind_addr", cfg.BindAddr,
		"port_candidates", cfg.PortCandidates,
		"port_auto_fallback", cfg.PortAutoFallback,
		"data_url", cfg.DataURL,
		"feed_url", cfg.FeedURL,
		"prefs_backend", cfg.PrefsBackend,
		"prefs_path", cfg.PrefsPath,
		"tape_dir", cfg.TapeDir,
		"buffer_size", cfg.BufferSize,
		"default_window", cfg.DefaultWindow,
		"prune_policy", cfg.PrunePolicy,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, closeKV, err := openPrefs(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeKV()

	broker := relay.NewBroker()
	rl := relay.NewRelay(broker)

	deps := controller.Deps{
		Fetcher: chartdata.New(cfg.DataURL, cfg.DataToken, cfg.FetchTimeout),
		Prefs:   prefs.NewTimeframes(kv, prefs.DefaultTimeframe),
		Relay:   rl,
	}

	if cfg.FeedURL != "" {
		feed := livefeed.New(cfg.FeedURL, cfg.FeedMinBackoff, cfg.FeedMaxBackoff)
		feed.OnStatus = rl.OnFeedStatus
		deps.Feed = feed
		go func() {
			if err := feed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("live feed stopped", "url", cfg.FeedURL, "error", err)
			}
		}()
	}

	if cfg.TapeDir != "" {
		tape := storage.NewTape(cfg.TapeDir, cfg.TapeBufferSize, cfg.TapeMaxSizeMB)
		deps.Recorder = tape
		defer func() {
			if err := tape.Close(); err != nil {
				slog.Warn("bar tape close failed", "error", err)
			}
		}()
	}

	svc := controller.NewService(cfg.WindowOptions(), deps)
	defer svc.Close()

	openStartupSessions(ctx, svc, cfg.SessionsFile)

	ln, err := netutil.Listen(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		return err
	}
	addr := ln.Addr().String()
	srv := &http.Server{Addr: addr, Handler: api.NewServer(svc, relay.SSEHandler(broker))}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("chartwindow listening", "addr", addr, "docs", "http://"+addr+"/docs")
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		slog.Error("chartwindow server failed", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("chartwindow shutdown failed", "error", err)
	}
	return nil
}

func openPrefs(ctx context.Context, cfg *config.Config) (prefs.KV, func(), error) {
	switch cfg.PrefsBackend {
	case config.PrefsSQLite:
		store, err := prefs.NewSQLiteStore(ctx, cfg.PrefsPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				slog.Debug("prefs store close failed", "error", err)
			}
		}, nil
	case config.PrefsMemory:
		return prefs.NewMemoryStore(), func() {}, nil
	default:
		store, err := prefs.NewFileStore(cfg.PrefsPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

func openStartupSessions(ctx context.Context, svc *controller.Service, path string) {
	sc, err := config.LoadSessions(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("startup sessions skipped", "path", path, "error", err)
		}
		return
	}
	for _, entry := range sc.Sessions {
		snap, err := svc.CreateSession(ctx, entry.Symbol, entry.Timeframe, entry.Live)
		if err != nil {
			slog.Warn("startup session failed", "symbol", entry.Symbol, "error", err)
			continue
		}
		slog.Info("startup session opened", "session_id", snap.SessionID, "symbol", snap.Symbol, "timeframe", snap.Timeframe)
	}
}
