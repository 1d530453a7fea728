// Package config loads dashboard and demo-server settings from defaults, an
// optional YAML file, and GGV_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/daviddao/grillgauge_viewer/internal/model"
	"github.com/daviddao/grillgauge_viewer/internal/timeframe"
)

// Config holds all configuration for the dashboard and the demo server.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Poll    PollConfig    `mapstructure:"poll"`
	Display DisplayConfig `mapstructure:"display"`
	Session SessionConfig `mapstructure:"session"`
	Log     LogConfig     `mapstructure:"log"`
	Demo    DemoConfig    `mapstructure:"demo"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type DisplayConfig struct {
	Unit      string `mapstructure:"unit"`
	Timeframe int    `mapstructure:"timeframe"`
}

type SessionConfig struct {
	File string `mapstructure:"file"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

type DemoConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Step            time.Duration `mapstructure:"step"`
	History         int           `mapstructure:"history"`
	Seed            int64         `mapstructure:"seed"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Token           string        `mapstructure:"token"`
	Store           StoreConfig   `mapstructure:"store"`
}

// StoreConfig selects where the demo server keeps reading history.
// Driver is "memory", "sqlite" or "postgres".
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Unit returns the parsed display unit.
func (c *Config) Unit() model.Unit {
	u, _ := model.ParseUnit(c.Display.Unit)
	return u
}

// Load reads configuration. When path is empty, a file named ggv.yaml is
// looked up in ./config and ~/.grillgauge; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GGV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ggv")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".grillgauge"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	dir := filepath.Join(home, ".grillgauge")

	// API defaults
	v.SetDefault("api.base_url", "http://localhost:8080/api/v1")
	v.SetDefault("api.timeout", "10s")

	// Poll defaults
	v.SetDefault("poll.interval", "30s")

	// Display defaults
	v.SetDefault("display.unit", string(model.Fahrenheit))
	v.SetDefault("display.timeframe", timeframe.DefaultMinutes)

	// Session / log defaults
	v.SetDefault("session.file", "")
	v.SetDefault("log.file", filepath.Join(dir, "ggv.log"))
	v.SetDefault("log.level", "info")

	// Demo server defaults
	v.SetDefault("demo.host", "0.0.0.0")
	v.SetDefault("demo.port", 8080)
	v.SetDefault("demo.step", "30s")
	v.SetDefault("demo.history", 720)
	v.SetDefault("demo.seed", 0)
	v.SetDefault("demo.shutdown_timeout", "10s")
	v.SetDefault("demo.token", "")
	v.SetDefault("demo.store.driver", "memory")
	v.SetDefault("demo.store.dsn", "")
}

func validateConfig(config *Config) error {
	if config.API.BaseURL == "" {
		return fmt.Errorf("api base_url is required")
	}
	if config.Poll.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", config.Poll.Interval)
	}
	if _, ok := model.ParseUnit(config.Display.Unit); !ok {
		return fmt.Errorf("display unit %q must be C or F", config.Display.Unit)
	}
	if tf := config.Display.Timeframe; tf < timeframe.MinMinutes || tf > timeframe.MaxMinutes {
		return fmt.Errorf("display timeframe %d must be within %d..%d minutes", tf, timeframe.MinMinutes, timeframe.MaxMinutes)
	}
	switch config.Demo.Store.Driver {
	case "memory":
	case "sqlite", "postgres":
		if config.Demo.Store.DSN == "" {
			return fmt.Errorf("demo store dsn is required for driver %q", config.Demo.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown demo store driver %q", config.Demo.Store.Driver)
	}
	if config.Demo.History <= 0 {
		return fmt.Errorf("demo history must be positive")
	}
	return nil
}
