// Package config loads seird configuration from YAML files and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/seird/internal/checkpoint"
	"github.com/nvandessel/seird/internal/constants"
	"github.com/nvandessel/seird/internal/models"
	"github.com/nvandessel/seird/internal/network"
	"github.com/nvandessel/seird/internal/session"
	"github.com/nvandessel/seird/internal/store"
)

// Config contains all seird settings.
type Config struct {
	Server     ServerConfig     `json:"server" yaml:"server"`
	Network    NetworkConfig    `json:"network" yaml:"network"`
	Scenario   models.Params    `json:"scenario" yaml:"scenario"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Storage    StorageConfig    `json:"storage" yaml:"storage"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Addr is the listen address. Port 0 picks a free port.
	Addr string `json:"addr" yaml:"addr"`

	// AllowedOrigins lists the CORS origins permitted to call the API.
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
}

// NetworkConfig configures contact network generation.
type NetworkConfig struct {
	// Topology is "small-world" (default) or "modular".
	Topology          string  `json:"topology" yaml:"topology"`
	Population        int     `json:"population" yaml:"population"`
	MeanDegree        int     `json:"mean_degree" yaml:"mean_degree"`
	RewireProbability float64 `json:"rewire_probability" yaml:"rewire_probability"`

	// Modular topology only.
	Hubs                int     `json:"hubs" yaml:"hubs"`
	HubDegree           int     `json:"hub_degree" yaml:"hub_degree"`
	InterHubProbability float64 `json:"inter_hub_probability" yaml:"inter_hub_probability"`
	HubSizeVariation    float64 `json:"hub_size_variation" yaml:"hub_size_variation"`

	InfectedRange network.Range `json:"infected_range" yaml:"infected_range"`
	DoctorRange   network.Range `json:"doctor_range" yaml:"doctor_range"`
}

// SimulationConfig configures the run loop.
type SimulationConfig struct {
	// SpeedMs is the delay between automatic days, floored at 50ms.
	SpeedMs int `json:"speed_ms" yaml:"speed_ms"`

	// Seed makes generated networks and transitions reproducible. 0 picks a
	// fresh seed per run.
	Seed uint64 `json:"seed" yaml:"seed"`

	// StopOnExposed keeps a run going until both Infected and Exposed
	// reach zero.
	StopOnExposed bool `json:"stop_on_exposed" yaml:"stop_on_exposed"`
}

// StorageConfig configures history persistence.
type StorageConfig struct {
	// Path is the SQLite database. Empty keeps history in memory.
	Path string `json:"path" yaml:"path"`

	// DataDir holds the day trace written at debug level.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// CheckpointSchedule is a cron spec for graph snapshots, e.g.
	// "@every 30s". Empty disables checkpoints.
	CheckpointSchedule string `json:"checkpoint_schedule" yaml:"checkpoint_schedule"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is "info" (default), "debug" or "trace". "debug" also writes
	// a per-day trace to <data_dir>/days.jsonl.
	Level string `json:"level" yaml:"level"`
}

// Default returns a Config with the built-in defaults.
func Default() *Config {
	opts := network.DefaultOptions()
	dataDir, err := store.DefaultDataDir()
	if err != nil {
		dataDir = store.DataDirName
	}
	return &Config{
		Server: ServerConfig{
			Addr:           "localhost:8080",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Network: NetworkConfig{
			Topology:            string(opts.Topology),
			Population:          opts.Population,
			MeanDegree:          opts.MeanDegree,
			RewireProbability:   opts.RewireProbability,
			Hubs:                opts.Hubs,
			HubDegree:           opts.HubDegree,
			InterHubProbability: opts.InterHubProbability,
			HubSizeVariation:    opts.HubSizeVariation,
			InfectedRange:       opts.InfectedRange,
			DoctorRange:         opts.DoctorRange,
		},
		Scenario: models.DefaultParams(),
		Simulation: SimulationConfig{
			SpeedMs:       constants.DefaultSpeedMs,
			StopOnExposed: true,
		},
		Storage: StorageConfig{
			DataDir:            dataDir,
			CheckpointSchedule: "@every 30s",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from path, or from ~/.seird/config.yaml when
// path is empty and that file exists, then applies environment overrides.
// Order: defaults -> file -> environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if dir, err := store.DefaultDataDir(); err == nil {
			candidate := filepath.Join(dir, "config.yaml")
			if _, statErr := os.Stat(candidate); statErr == nil {
				path = candidate
			}
		}
	}
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		cfg = fileCfg
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.Storage.Path = expandEnvVars(cfg.Storage.Path)
	cfg.Storage.DataDir = expandEnvVars(cfg.Storage.DataDir)
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch network.Topology(c.Network.Topology) {
	case network.SmallWorld, network.Modular, "":
	default:
		return fmt.Errorf("invalid topology: %s (valid: small-world, modular)", c.Network.Topology)
	}
	if c.Network.Population < 1 {
		return fmt.Errorf("population must be positive, got %d", c.Network.Population)
	}
	if c.Network.MeanDegree < 0 || c.Network.MeanDegree%2 != 0 || c.Network.MeanDegree >= c.Network.Population {
		return fmt.Errorf("mean_degree must be even and smaller than population, got %d", c.Network.MeanDegree)
	}
	if c.Network.RewireProbability < 0 || c.Network.RewireProbability > 1 {
		return fmt.Errorf("rewire_probability must be between 0 and 1, got %f", c.Network.RewireProbability)
	}
	if err := checkRange("infected_range", c.Network.InfectedRange); err != nil {
		return err
	}
	if err := checkRange("doctor_range", c.Network.DoctorRange); err != nil {
		return err
	}

	if err := c.Scenario.Validate(); err != nil {
		return fmt.Errorf("scenario: %w", err)
	}

	if c.Simulation.SpeedMs < 0 {
		return fmt.Errorf("speed_ms must be non-negative, got %d", c.Simulation.SpeedMs)
	}

	if c.Storage.CheckpointSchedule != "" {
		if _, err := checkpoint.ParseSchedule(c.Storage.CheckpointSchedule); err != nil {
			return err
		}
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}
	return nil
}

func checkRange(name string, r network.Range) error {
	if r.Min < 0 || r.Max > 1 || r.Min > r.Max {
		return fmt.Errorf("%s must satisfy 0 <= min <= max <= 1, got [%v, %v]", name, r.Min, r.Max)
	}
	return nil
}

// NetworkOptions converts the network section to builder options.
func (c *Config) NetworkOptions() network.Options {
	n := c.Network
	return network.Options{
		Topology:            network.Topology(n.Topology),
		Population:          n.Population,
		MeanDegree:          n.MeanDegree,
		RewireProbability:   n.RewireProbability,
		Hubs:                n.Hubs,
		HubDegree:           n.HubDegree,
		InterHubProbability: n.InterHubProbability,
		HubSizeVariation:    n.HubSizeVariation,
		InfectedRange:       n.InfectedRange,
		DoctorRange:         n.DoctorRange,
	}
}

// Session returns the controller configuration.
func (c *Config) Session() session.Config {
	return session.Config{
		Network:       c.NetworkOptions(),
		Params:        c.Scenario,
		SpeedMs:       c.Simulation.SpeedMs,
		Seed:          c.Simulation.Seed,
		StopOnExposed: c.Simulation.StopOnExposed,
	}
}

// applyEnvOverrides applies SEIRD_* environment variables. Malformed
// numeric values are an error.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SEIRD_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SEIRD_TOPOLOGY"); v != "" {
		cfg.Network.Topology = v
	}
	if v := os.Getenv("SEIRD_POPULATION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SEIRD_POPULATION: %w", err)
		}
		cfg.Network.Population = n
	}
	if v := os.Getenv("SEIRD_SEED"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SEIRD_SEED: %w", err)
		}
		cfg.Simulation.Seed = n
	}
	if v := os.Getenv("SEIRD_SPEED_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SEIRD_SPEED_MS: %w", err)
		}
		cfg.Simulation.SpeedMs = n
	}
	if v := os.Getenv("SEIRD_DB"); v != "" {
		cfg.Storage.Path = v
	}
	if v, ok := os.LookupEnv("SEIRD_CHECKPOINT"); ok {
		cfg.Storage.CheckpointSchedule = v
	}
	if v := os.Getenv("SEIRD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// expandEnvVars expands ${VAR} patterns.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
