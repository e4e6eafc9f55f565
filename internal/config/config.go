package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration. Defaults are merged with an
// optional YAML file and then environment overrides, so local runs need no
// file at all.
type Config struct {
	HTTPPort int

	RedisURL       string
	ReferralAPIURL string
	JWTSecret      string

	// AttributionWindowDays bounds how long an affiliate click id stays
	// attributable. Affiliate channel only.
	AttributionWindowDays int

	TrackerWorkers   int
	TrackerQueueSize int
}

// configFile mirrors the YAML schema.
type configFile struct {
	Service struct {
		HTTPPort int `yaml:"http_port"`
	} `yaml:"service"`
	Dependencies struct {
		RedisURL       string `yaml:"redis_url"`
		ReferralAPIURL string `yaml:"referral_api_url"`
	} `yaml:"dependencies"`
	Attribution struct {
		WindowDays       int `yaml:"window_days"`
		TrackerWorkers   int `yaml:"tracker_workers"`
		TrackerQueueSize int `yaml:"tracker_queue_size"`
	} `yaml:"attribution"`
}

// Load resolves configuration in priority order: defaults -> file -> env.
// An empty path skips the file stage.
func Load(path string) (Config, error) {
	cfg := Config{
		HTTPPort:              8080,
		AttributionWindowDays: 30,
		TrackerWorkers:        2,
		TrackerQueueSize:      256,
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		var file configFile
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
		if file.Service.HTTPPort > 0 {
			cfg.HTTPPort = file.Service.HTTPPort
		}
		if file.Dependencies.RedisURL != "" {
			cfg.RedisURL = file.Dependencies.RedisURL
		}
		if file.Dependencies.ReferralAPIURL != "" {
			cfg.ReferralAPIURL = file.Dependencies.ReferralAPIURL
		}
		if file.Attribution.WindowDays > 0 {
			cfg.AttributionWindowDays = file.Attribution.WindowDays
		}
		if file.Attribution.TrackerWorkers > 0 {
			cfg.TrackerWorkers = file.Attribution.TrackerWorkers
		}
		if file.Attribution.TrackerQueueSize > 0 {
			cfg.TrackerQueueSize = file.Attribution.TrackerQueueSize
		}
	}

	if v := os.Getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("HTTP_PORT: %w", err)
		}
		cfg.HTTPPort = port
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("REFERRAL_API_URL"); v != "" {
		cfg.ReferralAPIURL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("ATTRIBUTION_WINDOW_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			return Config{}, fmt.Errorf("ATTRIBUTION_WINDOW_DAYS: invalid value %q", v)
		}
		cfg.AttributionWindowDays = days
	}

	return cfg, nil
}
