package infra

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  rest_url: "https://example.test/v2"
ui:
  page_sizes: [5, 10]
  default_page_size: 5
storage:
  backend: redis
  redis:
    addr: "cache:6379"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.API.RestURL != "https://example.test/v2" {
		t.Errorf("RestURL = %q", cfg.API.RestURL)
	}
	if cfg.API.WSURL != "wss://ws.coincap.io" {
		t.Errorf("WSURL should keep its default, got %q", cfg.API.WSURL)
	}
	if cfg.UI.HistoryDays != 30 {
		t.Errorf("HistoryDays should default to 30, got %d", cfg.UI.HistoryDays)
	}
	if cfg.Storage.Backend != BackendRedis || cfg.Storage.Redis.Addr != "cache:6379" {
		t.Errorf("unexpected storage config: %+v", cfg.Storage)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "app:\n  name: test\n")
	t.Setenv("CRYPTO_DASH_API_KEY", "secret")
	t.Setenv("CRYPTO_DASH_WS_URL", "ws://localhost:9999")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.API.APIKey != "secret" {
		t.Errorf("APIKey = %q, want env value", cfg.API.APIKey)
	}
	if cfg.API.WSURL != "ws://localhost:9999" {
		t.Errorf("WSURL = %q, want env value", cfg.API.WSURL)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad ws url":        "api:\n  ws_url: \"http://nope\"\n",
		"bad backend":       "storage:\n  backend: mongo\n",
		"default page size": "ui:\n  default_page_size: 7\n",
		"history days":      "ui:\n  history_days: 0\n",
		"malformed yaml":    "api: [\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadConfigOrDefault_MissingFile(t *testing.T) {
	cfg, found, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("found should be false for a missing file")
	}
	if cfg.Storage.Backend != BackendSQLite {
		t.Errorf("expected default backend, got %q", cfg.Storage.Backend)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("DEBUG").String() != "DEBUG" {
		t.Error("debug not parsed")
	}
	if ParseLevel("nonsense").String() != "INFO" {
		t.Error("unknown level should be info")
	}
}
