package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"bibmatch/sport"
)

// Config represents the complete pipeline configuration
type Config struct {
	Event    EventConfig            `yaml:"event"`
	Cache    CacheConfig            `yaml:"cache"`
	Temporal TemporalConfig         `yaml:"temporal"`
	Trace    TraceConfig            `yaml:"trace"`
	Logging  LoggingConfig          `yaml:"logging"`
	Sports   map[string]sport.Patch `yaml:"sports"`
}

// EventConfig identifies the shoot being processed
type EventConfig struct {
	Name  string `yaml:"name"`
	Sport string `yaml:"sport"`
}

// CacheConfig wires the three cache tiers. Local and Shared are optional and
// disabled when their path/URL is empty.
type CacheConfig struct {
	MemoryMaxEntries int `yaml:"memory_max_entries"`
	MemoryTTLSeconds int `yaml:"memory_ttl_seconds"`

	PebblePath       string `yaml:"pebble_path"`
	PebbleTTLSeconds int    `yaml:"pebble_ttl_seconds"`
	PebbleMaxEntries int    `yaml:"pebble_max_entries"`

	SharedURL            string `yaml:"shared_url"`
	SharedTTLSeconds     int    `yaml:"shared_ttl_seconds"`
	SharedTimeoutSeconds int    `yaml:"shared_timeout_seconds"`
}

// MemoryTTL returns the memory tier TTL as a duration (zero when unset).
func (c CacheConfig) MemoryTTL() time.Duration {
	return time.Duration(c.MemoryTTLSeconds) * time.Second
}

// PebbleTTL returns the local persistent tier TTL as a duration.
func (c CacheConfig) PebbleTTL() time.Duration {
	return time.Duration(c.PebbleTTLSeconds) * time.Second
}

// SharedTTL returns the shared tier TTL as a duration.
func (c CacheConfig) SharedTTL() time.Duration {
	return time.Duration(c.SharedTTLSeconds) * time.Second
}

// SharedTimeout returns the shared tier request timeout as a duration.
func (c CacheConfig) SharedTimeout() time.Duration {
	return time.Duration(c.SharedTimeoutSeconds) * time.Second
}

// TemporalConfig contains timestamp extraction settings
type TemporalConfig struct {
	MaxConcurrent       int `yaml:"max_concurrent"`
	BatchTimeoutSeconds int `yaml:"batch_timeout_seconds"`
}

// BatchTimeout returns the batch extraction timeout as a duration.
func (c TemporalConfig) BatchTimeout() time.Duration {
	return time.Duration(c.BatchTimeoutSeconds) * time.Second
}

// TraceConfig contains decision trace logger settings
type TraceConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	QueueSize int    `yaml:"queue_size"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load loads configuration from a YAML file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// Default returns a usable configuration for runs without a config file.
func Default() *Config {
	return &Config{
		Event: EventConfig{Sport: sport.DefaultSport},
	}
}

// ApplySports merges the per-sport overrides into the registry.
func (c *Config) ApplySports(registry *sport.Registry) {
	if len(c.Sports) == 0 {
		return
	}
	registry.Import(c.Sports)
}

// Print displays the configuration
func (c *Config) Print() {
	fmt.Printf("Event: %s (sport: %s)\n", c.Event.Name, c.Event.Sport)
	if c.Cache.PebblePath != "" {
		fmt.Printf("Local cache: %s\n", c.Cache.PebblePath)
	}
	if c.Cache.SharedURL != "" {
		fmt.Printf("Shared cache: %s\n", c.Cache.SharedURL)
	}
	if c.Trace.Enabled {
		fmt.Printf("Decision traces: %s\n", c.Trace.Path)
	}
	if len(c.Sports) > 0 {
		fmt.Printf("Sport overrides: %d\n", len(c.Sports))
	}
}
