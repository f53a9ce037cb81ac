// Package config loads zkeep settings from ZKEEP_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config holds runtime settings. Empty paths fall back to locations under
// DataDir.
type Config struct {
	DataDir      string `env:"ZKEEP_DATA_DIR"`
	Listen       string `env:"ZKEEP_LISTEN" envDefault:"127.0.0.1:7450"`
	ProxyListen  string `env:"ZKEEP_PROXY_LISTEN" envDefault:"127.0.0.1:7451"`
	Origin       string `env:"ZKEEP_ORIGIN" envDefault:"http://127.0.0.1:7450"`
	CachePath    string `env:"ZKEEP_CACHE_PATH"`
	ManifestPath string `env:"ZKEEP_MANIFEST"`
	LogLevel     string `env:"ZKEEP_LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment and fills in derived defaults.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if c.DataDir == "" {
		c.DataDir = DataDir()
	}
	if c.CachePath == "" {
		c.CachePath = filepath.Join(c.DataDir, "offline.db")
	}
	return c, nil
}

// DataDir returns the default data directory for zkeep.
func DataDir() string {
	if d := os.Getenv("XDG_DATA_HOME"); d != "" {
		return filepath.Join(d, "zkeep")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".zkeep"
	}
	return filepath.Join(home, ".local", "share", "zkeep")
}

// EnsureDataDir creates dir with owner-only permissions.
func EnsureDataDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}
