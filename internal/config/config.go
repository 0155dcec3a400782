// Package config loads LANWard runtime configuration via Viper and
// constructs the process logger from it.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for LANWard.
type Config struct {
	// Interface is the network interface to monitor. Empty selects the
	// first active non-loopback interface.
	Interface string `mapstructure:"interface"`

	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Control   ControlConfig   `mapstructure:"control"`
	Vendor    VendorConfig    `mapstructure:"vendor"`
}

// MonitorConfig controls the repeating discovery/estimation cycle.
type MonitorConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	StalenessWindow time.Duration `mapstructure:"staleness_window"`
}

// DiscoveryConfig controls a single discovery pass.
type DiscoveryConfig struct {
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	Concurrency  int           `mapstructure:"concurrency"`
	// SweepEnabled turns on the ICMP warm-up sweep that populates the
	// kernel neighbor table before the passive read.
	SweepEnabled bool          `mapstructure:"sweep_enabled"`
	SweepTimeout time.Duration `mapstructure:"sweep_timeout"`
}

// ControlConfig controls the protect/cut announcement loops.
type ControlConfig struct {
	AnnounceInterval time.Duration `mapstructure:"announce_interval"`
}

// VendorConfig controls manufacturer lookups.
type VendorConfig struct {
	RemoteEnabled bool          `mapstructure:"remote_enabled"`
	RemoteTimeout time.Duration `mapstructure:"remote_timeout"`
}

// Load reads configuration from ./config.yaml or ~/.lanward/config.yaml
// and falls back to defaults. Environment variables with prefix LANWARD_
// override file values. The returned Viper instance carries the logging
// settings consumed by NewLogger.
func Load(path string) (*Config, *viper.Viper, error) {
	v := viper.New()

	v.SetDefault("interface", "")
	v.SetDefault("monitor.interval", 5*time.Second)
	v.SetDefault("monitor.staleness_window", 2*time.Minute)
	v.SetDefault("discovery.probe_timeout", 3*time.Second)
	v.SetDefault("discovery.concurrency", 64)
	v.SetDefault("discovery.sweep_enabled", false)
	v.SetDefault("discovery.sweep_timeout", 2*time.Second)
	v.SetDefault("control.announce_interval", time.Second)
	v.SetDefault("vendor.remote_enabled", true)
	v.SetDefault("vendor.remote_timeout", 2*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.lanward")
	}
	if err := v.ReadInConfig(); err != nil {
		// The config file is optional; only a malformed file is fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return nil, nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("LANWARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, v, nil
}
