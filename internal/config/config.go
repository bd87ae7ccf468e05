// Package config loads the Vizzy configuration from a TOML file and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ayusman/vizzy/internal/gesture"
	"github.com/caarlos0/env/v11"
)

// Config holds all Vizzy configuration.
type Config struct {
	DatabasePath string `toml:"database_path" env:"VIZZY_DATABASE"`
	Addr         string `toml:"addr" env:"VIZZY_ADDR"`
	Bodies       int    `toml:"bodies" env:"VIZZY_BODIES"`
	Tray         bool   `toml:"tray" env:"VIZZY_TRAY"`

	Replay ReplayConfig `toml:"replay"`
}

// ReplayConfig configures playback of a recorded tracking log.
type ReplayConfig struct {
	Path string `toml:"path" env:"VIZZY_REPLAY"`
	Loop bool   `toml:"loop" env:"VIZZY_REPLAY_LOOP"`
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DatabasePath: "~/.vizzy/vizzy.db",
		Addr:         ":8080",
		Bodies:       gesture.MaxBodies,
		Tray:         false,
	}
}

// Load reads config from path, or from the standard locations when path is
// empty, falling back to defaults. Environment variables override the file.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else {
		for _, p := range configPaths() {
			if _, err := os.Stat(p); err == nil {
				if _, err := toml.DecodeFile(p, &cfg); err != nil {
					return cfg, fmt.Errorf("parse config %s: %w", p, err)
				}
				break
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	cfg.DatabasePath = expandHome(cfg.DatabasePath)
	cfg.Replay.Path = expandHome(cfg.Replay.Path)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Bodies < 1 || c.Bodies > gesture.MaxBodies {
		return fmt.Errorf("bodies must be between 1 and %d, got %d", gesture.MaxBodies, c.Bodies)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path must be set")
	}
	return nil
}

// DataDir returns the directory holding the gesture database.
func (c Config) DataDir() string {
	return filepath.Dir(c.DatabasePath)
}

func configPaths() []string {
	var paths []string

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "vizzy", "config.toml"))
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		paths = append(paths, filepath.Join(home, ".vizzy", "config.toml"))
	}

	return paths
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
