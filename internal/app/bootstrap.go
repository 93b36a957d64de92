package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"crypto_dash/internal/detail"
	"crypto_dash/internal/favorites"
	"crypto_dash/internal/infra"
	"crypto_dash/internal/infra/coincap"
	"crypto_dash/internal/storage"
	"crypto_dash/internal/table"
)

// Options control Initialize. Zero values use the defaults.
type Options struct {
	ConfigPath string // default: infra.ResolveConfigPath()
	WorkDir    string // default: infra.GetWorkspaceDir()
	LogFile    bool   // log to <workspace>/logs when logging.file is unset (TUI)
	LogOutput  io.Writer
	OnUpdate   func()
}

// metaBackend is a favorites backend that can be closed and pinged.
type metaBackend interface {
	favorites.Backend
	Ping(ctx context.Context) error
	Close() error
}

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config      *infra.Config
	ConfigFound bool
	Client      *coincap.Client
	Favorites   *favorites.Store
	Table       *table.Model
	Dashboard   *Dashboard

	store    metaBackend
	unlock   func()
	closeLog func() error
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads config, sets up logging, opens the favorites store and
// wires the dashboard. It does not mount anything.
func (b *Bootstrap) Initialize(ctx context.Context, opts Options) error {
	// 1. Config (.env first so it can override file values)
	infra.LoadDotEnv()
	path := opts.ConfigPath
	if path == "" {
		path = infra.ResolveConfigPath()
	}
	cfg, found, err := infra.LoadConfigOrDefault(path)
	if err != nil {
		return err
	}
	b.Config = cfg
	b.ConfigFound = found

	// 2. Directories
	workDir := opts.WorkDir
	if workDir == "" {
		workDir = infra.GetWorkspaceDir()
	}
	if err := infra.EnsureDir(infra.DataDir(workDir)); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := infra.EnsureDir(infra.LogDir(workDir)); err != nil {
		return fmt.Errorf("failed to create log dir: %w", err)
	}

	// 3. Logger
	out := opts.LogOutput
	if out == nil {
		logPath := cfg.Logging.File
		if logPath == "" && opts.LogFile {
			logPath = filepath.Join(infra.LogDir(workDir), infra.AppName+".log")
		}
		w, closeFn, err := infra.OpenLogOutput(logPath)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		out, b.closeLog = w, closeFn
	}
	slog.SetDefault(infra.NewLogger(cfg, out))
	slog.Info("🚀 Bootstrapping Crypto Dash...", "version", cfg.App.Version)
	if !found {
		slog.Warn("Config file not found, using defaults", "path", path)
	}

	// 4. Favorites backend
	switch cfg.Storage.Backend {
	case infra.BackendRedis:
		rs, err := storage.NewRedisStore(ctx, cfg.Storage.Redis.Addr, cfg.Storage.Redis.Password, cfg.Storage.Redis.DB)
		if err != nil {
			return err
		}
		b.store = rs
		slog.Info("✅ Favorites store ready (redis)", "addr", cfg.Storage.Redis.Addr)
	default:
		// Single writer per SQLite file
		unlock, err := infra.CreateLockFile(workDir)
		if err != nil {
			return err
		}
		b.unlock = unlock

		dbPath := infra.ResolveSQLitePath(cfg, workDir)
		if err := infra.EnsureDir(filepath.Dir(dbPath)); err != nil {
			return fmt.Errorf("failed to create db dir: %w", err)
		}
		ms, err := storage.NewMetaStore(dbPath)
		if err != nil {
			return err
		}
		b.store = ms
		slog.Info("✅ Favorites store ready (sqlite, WAL-mode)", "path", dbPath)
	}

	b.Favorites = favorites.NewStore(b.store, cfg.Storage.FavoritesKey)
	b.Favorites.Load(ctx)

	// 5. Data client, table and dashboard
	b.Client = coincap.NewClientFromConfig(cfg)
	b.Table = table.NewModel(cfg.UI.PageSizes, cfg.UI.DefaultPageSize)
	b.Dashboard = NewDashboard(b.Client, b.Table, PriceFeedFactory(cfg), cfg.Live.InboxSize, opts.OnUpdate)

	return nil
}

// DetailOptions returns the detail view settings from config.
func (b *Bootstrap) DetailOptions() detail.Options {
	return detail.Options{
		Window:     time.Duration(b.Config.UI.HistoryDays) * 24 * time.Hour,
		Interval:   b.Config.UI.HistoryInterval,
		DateLayout: b.Config.UI.DateLayout,
	}
}

// NewDetailView opens a detail view for id backed by the REST client.
func (b *Bootstrap) NewDetailView(id string) *detail.View {
	return detail.NewView(b.Client, id, b.DetailOptions())
}

// Ping checks the favorites backend.
func (b *Bootstrap) Ping(ctx context.Context) error {
	if b.store == nil {
		return fmt.Errorf("store not initialized")
	}
	return b.store.Ping(ctx)
}

// Close releases everything Initialize acquired, in reverse order.
func (b *Bootstrap) Close() {
	if b.Dashboard != nil {
		b.Dashboard.Unmount()
	}
	if b.store != nil {
		if err := b.store.Close(); err != nil {
			slog.Warn("Failed to close store", slog.Any("error", err))
		}
	}
	if b.unlock != nil {
		b.unlock()
	}
	if b.closeLog != nil {
		b.closeLog()
	}
}
