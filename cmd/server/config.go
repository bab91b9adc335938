// Package main provides the Watchtower server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openestate/watchtower/internal/models"
)

// Config represents the server configuration.
type Config struct {
	Server       ServerConfig                  `yaml:"server"`
	Alerting     AlertingConfig                `yaml:"alerting"`
	Notification NotificationConfig            `yaml:"notification"`
	Channels     []*models.NotificationChannel `yaml:"channels"`
	Policies     []*models.EscalationPolicy    `yaml:"policies"`
	Verbose      bool                          `yaml:"-"` // set via CLI flag
}

// ServerConfig contains listener settings.
type ServerConfig struct {
	HTTPAddress    string `yaml:"http_address"`    // management API address (default: :8080)
	MetricsAddress string `yaml:"metrics_address"` // Prometheus address (default: :9090)
	RateLimitPerIP int    `yaml:"rate_limit_per_ip"`
}

// AlertingConfig contains evaluator settings.
type AlertingConfig struct {
	RulesFile          string        `yaml:"rules_file"`          // YAML rules file, watched for changes
	EvaluationInterval time.Duration `yaml:"evaluation_interval"` // default: 60s
	SnapshotHistory    int           `yaml:"snapshot_history"`    // retained metric snapshots
}

// NotificationConfig contains dispatcher settings.
type NotificationConfig struct {
	HistoryCapacity int    `yaml:"history_capacity"` // retained send records (default: 1000)
	Environment     string `yaml:"environment"`      // substituted into templates
	DashboardURL    string `yaml:"dashboard_url"`    // substituted into templates
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = ":8080"
	}
	if c.Server.MetricsAddress == "" {
		c.Server.MetricsAddress = ":9090"
	}
	if c.Server.RateLimitPerIP == 0 {
		c.Server.RateLimitPerIP = 300
	}
	if c.Alerting.EvaluationInterval == 0 {
		c.Alerting.EvaluationInterval = 60 * time.Second
	}
	if c.Notification.HistoryCapacity == 0 {
		c.Notification.HistoryCapacity = 1000
	}
	if c.Notification.Environment == "" {
		c.Notification.Environment = "production"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.HTTPAddress == "" {
		return fmt.Errorf("server.http_address is required")
	}
	if c.Alerting.EvaluationInterval < time.Second {
		return fmt.Errorf("alerting.evaluation_interval must be at least 1s")
	}
	if c.Notification.HistoryCapacity < 0 {
		return fmt.Errorf("notification.history_capacity must not be negative")
	}
	for i, channel := range c.Channels {
		if err := channel.Validate(); err != nil {
			return fmt.Errorf("channel at index %d: %w", i, err)
		}
	}
	for i, policy := range c.Policies {
		if err := policy.Validate(); err != nil {
			return fmt.Errorf("policy at index %d: %w", i, err)
		}
	}
	return nil
}
