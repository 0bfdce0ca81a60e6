package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
// An empty path yields the defaults.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables in the YAML content
		expandedData := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.County == "" {
		cfg.County = DefaultCounty
	}
	cfg.County = strings.ToLower(cfg.County)
	if cfg.Output == "" {
		cfg.Output = DefaultOutput
	}

	if cfg.Fetch.MaxAttempts <= 0 {
		cfg.Fetch.MaxAttempts = 5
	}
	if cfg.Fetch.Workers <= 0 {
		cfg.Fetch.Workers = 1
	}
	if cfg.Fetch.CallTimeout == nil {
		timeout := 30 * time.Second
		cfg.Fetch.CallTimeout = &timeout
	}
	if cfg.Fetch.InitialDelay == nil {
		delay := 2 * time.Second
		cfg.Fetch.InitialDelay = &delay
	}
	if cfg.Fetch.MaxDelay == 0 {
		cfg.Fetch.MaxDelay = 60 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "pgx"
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = 7 * 24 * time.Hour
	}
	if cfg.Email.Port == 0 {
		cfg.Email.Port = 587
	}
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = "docket"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
