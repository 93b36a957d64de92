package infra

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var currentUserAgent = GetPlatformUserAgent()

// GetUserAgent returns the User-Agent sent on REST and websocket requests.
func GetUserAgent() string {
	return currentUserAgent
}

// GetPlatformUserAgent generates a browser-like User-Agent string based on current OS.
func GetPlatformUserAgent() string {
	chromeVer := "120.0.0.0"
	arch := runtime.GOARCH

	switch runtime.GOOS {
	case "windows":
		return fmt.Sprintf("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36", chromeVer)
	case "linux":
		linuxArch := "x86_64"
		if arch == "arm64" {
			linuxArch = "aarch64"
		}
		return fmt.Sprintf("Mozilla/5.0 (X11; Linux %s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36", linuxArch, chromeVer)
	case "darwin":
		return fmt.Sprintf("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36", chromeVer)
	default:
		return "Mozilla/5.0 (compatible; CryptoDash/1.0)"
	}
}

// Storage backends for the favorites set.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds every setting of the dashboard.
// LoadConfig reads it from YAML, then environment variables override secrets and endpoints.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		RestURL           string  `yaml:"rest_url"`
		WSURL             string  `yaml:"ws_url"`
		APIKey            string  `yaml:"api_key"`
		TimeoutSec        int     `yaml:"timeout_sec"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"api"`

	Live struct {
		Reconnect      bool `yaml:"reconnect"`
		ReadTimeoutSec int  `yaml:"read_timeout_sec"`
		InboxSize      int  `yaml:"inbox_size"`
	} `yaml:"live"`

	Storage struct {
		Backend      string `yaml:"backend"` // "sqlite" or "redis"
		SQLitePath   string `yaml:"sqlite_path"`
		FavoritesKey string `yaml:"favorites_key"`
		Redis        struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"storage"`

	UI struct {
		PageSizes       []int  `yaml:"page_sizes"`
		DefaultPageSize int    `yaml:"default_page_size"`
		HistoryDays     int    `yaml:"history_days"`
		HistoryInterval string `yaml:"history_interval"`
		DateLayout      string `yaml:"date_layout"`
	} `yaml:"ui"`

	Server struct {
		Addr         string   `yaml:"addr"`
		AllowOrigins []string `yaml:"allow_origins"`
		Pprof        bool     `yaml:"pprof"`
		// ReloadPerMinute throttles POST /api/assets/reload. 0 disables the limit.
		ReloadPerMinute int `yaml:"reload_per_minute"`
	} `yaml:"server"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // "text" or "json"
		File   string `yaml:"file"`
	} `yaml:"logging"`
}

// DefaultConfig returns the settings used when no config file is found.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "crypto-dash"
	cfg.App.Version = "0.1.0"

	cfg.API.RestURL = "https://api.coincap.io/v2"
	cfg.API.WSURL = "wss://ws.coincap.io"
	cfg.API.TimeoutSec = 10
	cfg.API.RequestsPerSecond = 5
	cfg.API.Burst = 5

	cfg.Live.ReadTimeoutSec = 60
	cfg.Live.InboxSize = 1024

	cfg.Storage.Backend = BackendSQLite
	cfg.Storage.FavoritesKey = "favorites"
	cfg.Storage.Redis.Addr = "localhost:6379"

	cfg.UI.PageSizes = []int{10, 25, 50}
	cfg.UI.DefaultPageSize = 10
	cfg.UI.HistoryDays = 30
	cfg.UI.HistoryInterval = "d1"
	cfg.UI.DateLayout = "1/2/2006"

	cfg.Server.Addr = ":8080"
	cfg.Server.AllowOrigins = []string{"http://localhost:3000"}
	cfg.Server.ReloadPerMinute = 6

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	return &cfg
}

// LoadConfig reads and parses the YAML file at path on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadConfigOrDefault behaves like LoadConfig but falls back to DefaultConfig
// (with env overrides applied) when the file does not exist.
func LoadConfigOrDefault(path string) (*Config, bool, error) {
	cfg, err := LoadConfig(path)
	if err == nil {
		return cfg, true, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}

	cfg = DefaultConfig()
	overrideWithEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, false, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, false, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if !hasPrefix(c.API.RestURL, "http://") && !hasPrefix(c.API.RestURL, "https://") {
		return fmt.Errorf("invalid REST URL: %q", c.API.RestURL)
	}
	if !hasPrefix(c.API.WSURL, "ws://") && !hasPrefix(c.API.WSURL, "wss://") {
		return fmt.Errorf("invalid WS URL: %q", c.API.WSURL)
	}
	if c.API.RequestsPerSecond < 0 || c.API.Burst < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}

	switch c.Storage.Backend {
	case BackendSQLite:
	case BackendRedis:
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("redis backend requires storage.redis.addr")
		}
	default:
		return fmt.Errorf("unknown storage backend: %q", c.Storage.Backend)
	}
	if c.Storage.FavoritesKey == "" {
		return fmt.Errorf("storage.favorites_key must not be empty")
	}

	if len(c.UI.PageSizes) == 0 {
		return fmt.Errorf("at least one page size is required")
	}
	for _, s := range c.UI.PageSizes {
		if s <= 0 {
			return fmt.Errorf("page sizes must be positive, got %d", s)
		}
	}
	found := false
	for _, s := range c.UI.PageSizes {
		if s == c.UI.DefaultPageSize {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("default page size %d is not one of %v", c.UI.DefaultPageSize, c.UI.PageSizes)
	}
	if c.Server.ReloadPerMinute < 0 {
		return fmt.Errorf("server.reload_per_minute must not be negative")
	}
	if c.UI.HistoryDays <= 0 {
		return fmt.Errorf("history days must be positive")
	}

	return nil
}

func hasPrefix(s, prefix string) bool {
	return strings.HasPrefix(s, prefix)
}

// LoadDotEnv loads a .env file from the working directory if one exists.
// Variables already set in the environment win.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// overrideWithEnv applies environment variables on top of the file values.
// Environment variables take precedence over the config file.
func overrideWithEnv(cfg *Config) {
	if cfg.API.APIKey != "" || cfg.Storage.Redis.Password != "" {
		fmt.Println("⚠️  SECURITY WARNING: secrets found in config file.")
		fmt.Println("   Recommendation: use CRYPTO_DASH_API_KEY / CRYPTO_DASH_REDIS_PASSWORD instead.")
	}

	if v := os.Getenv("CRYPTO_DASH_API_KEY"); v != "" {
		cfg.API.APIKey = v
	}
	if v := os.Getenv("CRYPTO_DASH_REST_URL"); v != "" {
		cfg.API.RestURL = v
	}
	if v := os.Getenv("CRYPTO_DASH_WS_URL"); v != "" {
		cfg.API.WSURL = v
	}
	if v := os.Getenv("CRYPTO_DASH_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CRYPTO_DASH_REDIS_ADDR"); v != "" {
		cfg.Storage.Redis.Addr = v
	}
	if v := os.Getenv("CRYPTO_DASH_REDIS_PASSWORD"); v != "" {
		cfg.Storage.Redis.Password = v
	}
	if v := os.Getenv("CRYPTO_DASH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
