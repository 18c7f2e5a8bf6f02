// Package config provides hierarchical configuration loading for blockd.
// Precedence: defaults < YAML file < environment variables.
package config

import (
	"path/filepath"
	"time"
)

// Config holds all runtime configuration for the blockd daemon.
type Config struct {
	Data    Data    `yaml:"data"`
	Bridge  Bridge  `yaml:"bridge"`
	Blocker Blocker `yaml:"blocker"`
	Logging Logging `yaml:"logging"`
}

// Data holds storage locations.
type Data struct {
	Dir string `yaml:"dir"` // Directory for policy, usage DB and key file
}

// Bridge holds the accessibility-bridge stream endpoints. The platform side
// writes NDJSON events to EventsPath and executes NDJSON actions read from
// ActionsPath (both typically named pipes).
type Bridge struct {
	EventsPath  string `yaml:"events_path"`
	ActionsPath string `yaml:"actions_path"`
}

// Blocker holds decision-engine tuning knobs.
type Blocker struct {
	// OwnPackage is the app's own identity, always exempt.
	OwnPackage string `yaml:"own_package"`

	// ExemptPackages are additional always-exempt surfaces (launcher,
	// system UI). Configurable because the launcher package differs
	// per OEM (e.g. com.miui.home on Xiaomi).
	ExemptPackages []string `yaml:"exempt_packages"`

	// SettleDelay is how long to wait after the home-redirect before
	// launching the warning interstitial. Tuning knob, not a
	// correctness requirement.
	SettleDelay time.Duration `yaml:"settle_delay"`

	// RefreshInterval drives the low-frequency recomputation of the
	// displayed blocking state. Off the decision path.
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// HeartbeatInterval drives the listener liveness timestamp.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
}

// Logging holds log output configuration.
type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // Empty means stderr
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	dataDir := "/var/tmp/blockd"
	return Config{
		Data: Data{Dir: dataDir},
		Bridge: Bridge{
			EventsPath:  filepath.Join(dataDir, "events.ndjson"),
			ActionsPath: filepath.Join(dataDir, "actions.ndjson"),
		},
		Blocker: Blocker{
			OwnPackage: "com.lorenzoconte.Exizt",
			ExemptPackages: []string{
				"com.android.systemui",
				"com.miui.home",
			},
			SettleDelay:       50 * time.Millisecond,
			RefreshInterval:   60 * time.Second,
			HeartbeatInterval: 30 * time.Second,
		},
		Logging: Logging{Level: "info"},
	}
}
