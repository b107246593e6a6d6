package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Simulation SimulationConfig `yaml:"simulation"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// SimulationConfig tunes the engagement and detection engines.
type SimulationConfig struct {
	// Seed for the random source. 0 means seed from the wall clock,
	// giving a different run every start.
	Seed int64 `yaml:"seed"`

	// ModelMinuteMS is how many wall-clock milliseconds one simulated
	// minute takes. 60000 runs in real time; the demo default of 1000
	// compresses an hour-long campaign into a minute.
	ModelMinuteMS int `yaml:"model_minute_ms"`

	MeanOpenDelayMinutes   float64 `yaml:"mean_open_delay_minutes"`
	MeanClickDelayMinutes  float64 `yaml:"mean_click_delay_minutes"`
	MeanReportDelayMinutes float64 `yaml:"mean_report_delay_minutes"`

	// ReconcileIntervalSeconds is the cadence of the sweep that applies
	// overdue detection actions. 0 disables the sweep.
	ReconcileIntervalSeconds int `yaml:"reconcile_interval_seconds"`
}

// RedisConfig holds the live event feed configuration. An empty URL
// disables the feed.
type RedisConfig struct {
	URL     string `yaml:"url"`
	Channel string `yaml:"channel"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII bool   `yaml:"redact_pii"`
}

// ModelMinute converts the configured compression factor to a duration.
func (s SimulationConfig) ModelMinute() time.Duration {
	return time.Duration(s.ModelMinuteMS) * time.Millisecond
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the built-in configuration used when no config file is
// present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Simulation.ModelMinuteMS == 0 {
		cfg.Simulation.ModelMinuteMS = 1000
	}
	if cfg.Simulation.MeanOpenDelayMinutes == 0 {
		cfg.Simulation.MeanOpenDelayMinutes = 10
	}
	if cfg.Simulation.MeanClickDelayMinutes == 0 {
		cfg.Simulation.MeanClickDelayMinutes = 6
	}
	if cfg.Simulation.MeanReportDelayMinutes == 0 {
		cfg.Simulation.MeanReportDelayMinutes = 4
	}
	if cfg.Simulation.ReconcileIntervalSeconds == 0 {
		cfg.Simulation.ReconcileIntervalSeconds = 30
	}
	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = "phishsim:events"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so local overrides can live in .env and real env vars in deployment.
// A missing config file falls back to the built-in defaults.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = Default()
	}

	// Override with environment variables if present
	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if seed := os.Getenv("SIM_SEED"); seed != "" {
		if s, err := strconv.ParseInt(seed, 10, 64); err == nil {
			cfg.Simulation.Seed = s
		}
	}
	if ms := os.Getenv("SIM_MODEL_MINUTE_MS"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 {
			cfg.Simulation.ModelMinuteMS = v
		}
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("REDIS_CHANNEL"); v != "" {
		cfg.Redis.Channel = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_REDACT_PII"); v != "" {
		cfg.Logging.RedactPII = v == "true" || v == "1"
	}

	return cfg, nil
}
