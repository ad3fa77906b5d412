// Package config holds the application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"markfleet/pkg/model"
)

// Config holds the application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	DB     DBConfig     `yaml:"db"`
	Follow FollowConfig `yaml:"follow"`
	Sim    SimConfig    `yaml:"sim"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Path   string `yaml:"path"`
	Level  string `yaml:"level"`  // DEBUG, INFO, WARN, ERROR
	Stdout bool   `yaml:"stdout"` // mirror to stderr/stdout console
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// FollowConfig holds the follow controller defaults. Runtime changes go
// through the settings API; these are the startup values.
type FollowConfig struct {
	DistanceThresholdMeters  float64  `yaml:"distance_threshold_meters"`
	PollInterval             Duration `yaml:"poll_interval"`
	DebounceTime             Duration `yaml:"debounce_time"`
	AcceptableDistanceMeters float64  `yaml:"acceptable_distance_meters"`
}

// Settings converts the config values into follow settings.
func (f FollowConfig) Settings() model.FollowSettings {
	return model.FollowSettings{
		DistanceThresholdMeters:  f.DistanceThresholdMeters,
		PollInterval:             time.Duration(f.PollInterval),
		DebounceTime:             time.Duration(f.DebounceTime),
		AcceptableDistanceMeters: f.AcceptableDistanceMeters,
	}
}

// SimConfig holds settings for the fleet motion simulator.
type SimConfig struct {
	Enabled bool        `yaml:"enabled"`
	Fleet   []BuoySpawn `yaml:"fleet"`
}

// BuoySpawn seeds one simulated buoy.
type BuoySpawn struct {
	ID   string  `yaml:"id"`
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lng  float64 `yaml:"lng"`
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() *Config {
	follow := model.DefaultFollowSettings()
	return &Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:8520",
		},
		Log: LogConfig{
			Path:   "./logs/markfleet.log",
			Level:  "INFO",
			Stdout: true,
		},
		DB: DBConfig{
			Path: "./data/markfleet.db",
		},
		Follow: FollowConfig{
			DistanceThresholdMeters:  follow.DistanceThresholdMeters,
			PollInterval:             Duration(follow.PollInterval),
			DebounceTime:             Duration(follow.DebounceTime),
			AcceptableDistanceMeters: follow.AcceptableDistanceMeters,
		},
		Sim: SimConfig{
			Enabled: true,
			Fleet: []BuoySpawn{
				{ID: "buoy-01", Name: "Mark Boat 1", Lat: 37.7985, Lng: -122.2855},
				{ID: "buoy-02", Name: "Mark Boat 2", Lat: 37.7990, Lng: -122.2850},
				{ID: "buoy-03", Name: "Mark Boat 3", Lat: 37.7995, Lng: -122.2845},
				{ID: "buoy-04", Name: "Mark Boat 4", Lat: 37.8000, Lng: -122.2840},
				{ID: "buoy-05", Name: "Mark Boat 5", Lat: 37.8005, Lng: -122.2835},
				{ID: "buoy-06", Name: "Mark Boat 6", Lat: 37.8010, Lng: -122.2830},
			},
		},
	}
}

// Load reads the config file at path, applying defaults for missing fields.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	// Read existing file if it exists
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Env override for the listen address (useful in containerized runs).
	if addr := os.Getenv("MARKFLEET_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}

	return cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# markfleet configuration
# Durations accept Go syntax plus d (day) and w (week), e.g. "5s", "2m".

`)
	data = append(header, data...)

	return os.WriteFile(path, data, 0o644)
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, do nothing
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
