package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/jengzang/location-replay-go/internal/locationlog"
	"github.com/jengzang/location-replay-go/internal/models"
)

// Provider kinds
const (
	KindReplay = "replay"
	KindRoute  = "route"
)

// DefaultPath is read when CONFIG_PATH is not set
const DefaultPath = "./config/replay.yaml"

// Config 应用配置
type Config struct {
	Port         string           `yaml:"port"`
	DBPath       string           `yaml:"db_path"`
	JWTSecret    string           `yaml:"jwt_secret"`
	TickInterval time.Duration    `yaml:"tick_interval"`
	RecordDir    string           `yaml:"record_dir"` // empty disables log recording
	RateLimit    int              `yaml:"rate_limit"` // requests per minute per client IP
	Providers    []ProviderConfig `yaml:"providers"`
	Agents       []string         `yaml:"agents"`
}

// ProviderConfig declares one pooled provider
type ProviderConfig struct {
	Name      string       `yaml:"name"`
	Kind      string       `yaml:"kind"` // replay or route
	LogFile   string       `yaml:"log_file"`
	Schema    string       `yaml:"schema"`    // schema name, or "auto"
	Waypoints [][2]float64 `yaml:"waypoints"` // [lat, lng] pairs
	SpeedMps  float64      `yaml:"speed_mps"`
	AccuracyM float64      `yaml:"accuracy_m"`
}

// envOverrides are applied on top of the file
type envOverrides struct {
	ConfigPath   string        `env:"CONFIG_PATH"`
	Port         string        `env:"PORT"`
	DBPath       string        `env:"DB_PATH"`
	JWTSecret    string        `env:"JWT_SECRET"`
	TickInterval time.Duration `env:"TICK_INTERVAL"`
	RecordDir    string        `env:"RECORD_DIR"`
	RateLimit    int           `env:"RATE_LIMIT"`
	Agents       []string      `env:"AGENTS" envSeparator:","`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Port:         ":8080",
		DBPath:       "./data/replay/replay.db",
		JWTSecret:    "your-secret-key-change-in-production",
		TickInterval: time.Second,
		RateLimit:    120,
	}
}

// Load 加载配置: defaults, then the YAML file, then environment overrides
func Load() (*Config, error) {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	path := overrides.ConfigPath
	required := path != ""
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	if err := cfg.loadFile(path, required); err != nil {
		return nil, err
	}
	cfg.apply(overrides)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads one YAML file over the defaults, without environment overrides
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path, true); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) apply(o envOverrides) {
	if o.Port != "" {
		c.Port = o.Port
	}
	if o.DBPath != "" {
		c.DBPath = o.DBPath
	}
	if o.JWTSecret != "" {
		c.JWTSecret = o.JWTSecret
	}
	if o.TickInterval > 0 {
		c.TickInterval = o.TickInterval
	}
	if o.RecordDir != "" {
		c.RecordDir = o.RecordDir
	}
	if o.RateLimit > 0 {
		c.RateLimit = o.RateLimit
	}
	if len(o.Agents) > 0 {
		c.Agents = o.Agents
	}
}

// Validate checks the settings the simulation cannot start without
func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick_interval must be positive", models.ErrConfiguration)
	}
	if len(c.Providers) == 0 {
		return fmt.Errorf("%w: empty list of providers", models.ErrConfiguration)
	}

	for i, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("%w: provider %d has no name", models.ErrConfiguration, i)
		}
		switch p.Kind {
		case KindReplay:
			if p.LogFile == "" {
				return fmt.Errorf("%w: replay provider %s has no log_file", models.ErrConfiguration, p.Name)
			}
			if p.Schema != "" && p.Schema != locationlog.SchemaAuto {
				if _, err := locationlog.LookupSchema(p.Schema); err != nil {
					return fmt.Errorf("provider %s: %w", p.Name, err)
				}
			}
		case KindRoute:
			if len(p.Waypoints) < 2 {
				return fmt.Errorf("%w: route provider %s needs at least two waypoints", models.ErrConfiguration, p.Name)
			}
			if p.SpeedMps < 0 {
				return fmt.Errorf("%w: route provider %s has negative speed", models.ErrConfiguration, p.Name)
			}
		default:
			return fmt.Errorf("%w: provider %s has unknown kind %q", models.ErrConfiguration, p.Name, p.Kind)
		}
	}

	if len(c.Agents) > len(c.Providers) {
		return fmt.Errorf("%w: %d agents but only %d providers", models.ErrConfiguration, len(c.Agents), len(c.Providers))
	}
	return nil
}

// AgentNames returns the configured agents, or one agent per provider
// named after it
func (c *Config) AgentNames() []string {
	if len(c.Agents) > 0 {
		return append([]string(nil), c.Agents...)
	}
	names := make([]string, len(c.Providers))
	for i, p := range c.Providers {
		names[i] = p.Name
	}
	return names
}
