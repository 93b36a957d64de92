package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"crypto_dash/internal/app"
	"crypto_dash/internal/infra"
	"crypto_dash/internal/server"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(ctx, app.Options{}); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	cfg := bootstrap.Config
	infra.PrintBanner(cfg)

	// 2. Pprof Server (localhost only)
	if cfg.Server.Pprof {
		go func() {
			slog.Info("🕵️ Pprof server started on localhost:6060")
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}

	// 3. Live table: asset list + price feed
	if err := bootstrap.Dashboard.Mount(ctx); err != nil {
		// The table stays empty; POST /api/assets/reload retries.
		slog.Error("Initial asset load failed", slog.Any("error", err))
	}

	// 4. HTTP API
	srv := server.New(cfg, server.Deps{
		Dashboard: bootstrap.Dashboard,
		Favorites: bootstrap.Favorites,
		NewDetail: bootstrap.NewDetailView,
		Ping:      bootstrap.Ping,
	})

	slog.InfoContext(ctx, "✨ Crypto Dash fully operational. Press Ctrl+C to exit.", "addr", cfg.Server.Addr)
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server failed", slog.Any("error", err))
	}

	slog.Info("👋 Shutting down gracefully...")
}
