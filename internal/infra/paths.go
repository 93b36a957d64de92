package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

const (
	AppName = "crypto-dash"

	localWorkspace = "_workspace"
	configFile     = "config.yaml"
	favoritesDB    = "favorites.db"
	lockFile       = "instance.lock"
)

// GetWorkspaceDir returns the root directory for runtime data.
// A local "_workspace" directory wins (portable/dev); otherwise the OS data directory is used.
func GetWorkspaceDir() string {
	if _, err := os.Stat(localWorkspace); err == nil {
		return localWorkspace
	}

	var baseDir string
	switch runtime.GOOS {
	case "windows":
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			baseDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, _ := os.UserHomeDir()
		baseDir = filepath.Join(home, "Library", "Application Support")
	case "linux":
		baseDir = os.Getenv("XDG_DATA_HOME")
		if baseDir == "" {
			home, _ := os.UserHomeDir()
			baseDir = filepath.Join(home, ".local", "share")
		}
	default:
		return localWorkspace
	}

	return filepath.Join(baseDir, AppName)
}

// DataDir is <workspace>/data.
func DataDir(workDir string) string {
	return filepath.Join(workDir, "data")
}

// LogDir is <workspace>/logs.
func LogDir(workDir string) string {
	return filepath.Join(workDir, "logs")
}

// ResolveSQLitePath returns the configured SQLite path or the default under the data dir.
func ResolveSQLitePath(cfg *Config, workDir string) string {
	if cfg.Storage.SQLitePath != "" {
		return cfg.Storage.SQLitePath
	}
	return filepath.Join(DataDir(workDir), favoritesDB)
}

// EnsureDir creates the directory if it doesn't exist (0755).
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// CreateLockFile creates an exclusive lock file so only one process writes the
// favorites store at a time. The returned func removes it.
func CreateLockFile(workDir string) (func(), error) {
	lockPath := filepath.Join(workDir, lockFile)

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("another instance is already running (lock file exists: %s)", lockPath)
		}
		return nil, err
	}

	f.WriteString(strconv.Itoa(os.Getpid()))
	f.Close()

	return func() { os.Remove(lockPath) }, nil
}

// ResolveConfigPath finds config.yaml.
// Priority: 1. ./configs, 2. OS config dir. The first candidate is returned when neither exists.
func ResolveConfigPath() string {
	defaultPath := filepath.Join("configs", configFile)
	if _, err := os.Stat(defaultPath); err == nil {
		return defaultPath
	}

	if configRoot, err := os.UserConfigDir(); err == nil {
		osPath := filepath.Join(configRoot, AppName, configFile)
		if _, err := os.Stat(osPath); err == nil {
			return osPath
		}
	}

	return defaultPath
}
