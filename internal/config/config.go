package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Port    int    `yaml:"port"`
	DBPath  string `yaml:"db_path"`
	Version string `yaml:"-"`

	Forecast ForecastConfig `yaml:"forecast"`
}

// ForecastConfig is the tuning surface of the forecasting engine.
type ForecastConfig struct {
	Window             int     `yaml:"window"`
	Horizon            int     `yaml:"horizon_years"`
	Hidden1            int     `yaml:"hidden_layer1"`
	Hidden2            int     `yaml:"hidden_layer2"`
	LearningRate       float64 `yaml:"learning_rate"`
	Epochs             int     `yaml:"epochs"`
	SearchArchitecture bool    `yaml:"search_architecture"`
	Seed               int64   `yaml:"seed"`

	Particles  int     `yaml:"particles"`
	Iterations int     `yaml:"iterations"`
	Inertia    float64 `yaml:"inertia_weight"`
	Cognitive  float64 `yaml:"cognitive_weight"`
	Social     float64 `yaml:"social_weight"`
	Workers    int     `yaml:"workers"`
}

// Load reads the YAML config at path (optional), applies environment
// overrides, then fills in defaults. A missing file is fine; a malformed
// one is not.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	envOverrideInt(&cfg.Port, "PORT")
	envOverride(&cfg.DBPath, "DB_PATH")

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.DBPath == "" {
		c.DBPath = "./energy-planner.db"
	}

	f := &c.Forecast
	if f.Window <= 0 {
		f.Window = 4
	}
	if f.Horizon <= 0 {
		f.Horizon = 10
	}
	if f.Hidden1 <= 0 {
		f.Hidden1 = 8
	}
	if f.LearningRate <= 0 {
		f.LearningRate = 0.01
	}
	if f.Epochs <= 0 {
		f.Epochs = 500
	}
	if f.Particles <= 0 {
		f.Particles = 30
	}
	if f.Iterations <= 0 {
		f.Iterations = 100
	}
	if f.Inertia == 0 {
		f.Inertia = 0.7
	}
	if f.Cognitive == 0 {
		f.Cognitive = 1.5
	}
	if f.Social == 0 {
		f.Social = 1.5
	}
}

func envOverride(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func envOverrideInt(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}
