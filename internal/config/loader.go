package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "/etc/blockd/blockd.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Data.Dir, "BLOCKD_DATA_DIR")
	setString(&cfg.Bridge.EventsPath, "BLOCKD_EVENTS_PATH")
	setString(&cfg.Bridge.ActionsPath, "BLOCKD_ACTIONS_PATH")
	setString(&cfg.Blocker.OwnPackage, "BLOCKD_OWN_PACKAGE")
	setStringList(&cfg.Blocker.ExemptPackages, "BLOCKD_EXEMPT_PACKAGES")
	setDuration(&cfg.Blocker.SettleDelay, "BLOCKD_SETTLE_DELAY")
	setDuration(&cfg.Blocker.RefreshInterval, "BLOCKD_REFRESH_INTERVAL")
	setDuration(&cfg.Blocker.HeartbeatInterval, "BLOCKD_HEARTBEAT_INTERVAL")
	setString(&cfg.Logging.Level, "BLOCKD_LOG_LEVEL")
	setString(&cfg.Logging.File, "BLOCKD_LOG_FILE")
}

func validate(cfg *Config) error {
	if cfg.Data.Dir == "" {
		return errors.New("data.dir must not be empty")
	}
	if cfg.Blocker.OwnPackage == "" {
		return errors.New("blocker.own_package must not be empty")
	}
	if cfg.Blocker.SettleDelay < 0 {
		return errors.New("blocker.settle_delay must not be negative")
	}
	if cfg.Blocker.RefreshInterval <= 0 {
		return errors.New("blocker.refresh_interval must be positive")
	}
	if cfg.Blocker.HeartbeatInterval <= 0 {
		return errors.New("blocker.heartbeat_interval must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setStringList(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		*dst = out
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
