// Package config loads server configuration from env vars and an optional
// app.env file. The lateness windows live here, not in code: the
// municipality publishes them and they change by ordinance.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/edificio/billing-engine/billing"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	// Path is the SQLite database file; ":memory:" for ephemeral runs.
	Path string
}

type PolicyConfig struct {
	DueDay          int
	GraceDays       int
	DelinquencyDays int
}

type MonitorConfig struct {
	Enabled  bool
	Interval time.Duration
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Policy      PolicyConfig
	Monitor     MonitorConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AutomaticEnv()

	v.SetDefault("POLICY_DUE_DAY", 10)
	v.SetDefault("POLICY_GRACE_DAYS", 5)
	v.SetDefault("POLICY_DELINQUENCY_DAYS", 30)

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			Path: v.GetString("DB_PATH"),
		},
		Policy: PolicyConfig{
			DueDay:          v.GetInt("POLICY_DUE_DAY"),
			GraceDays:       v.GetInt("POLICY_GRACE_DAYS"),
			DelinquencyDays: v.GetInt("POLICY_DELINQUENCY_DAYS"),
		},
		Monitor: MonitorConfig{
			Enabled:  v.GetBool("MONITOR_ENABLED"),
			Interval: v.GetDuration("MONITOR_INTERVAL"),
		},
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.DB.Path == "" {
		cfg.DB.Path = "./data/billing.db"
	}
	if cfg.Monitor.Interval == 0 {
		cfg.Monitor.Interval = time.Hour
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Policy.DueDay < 1 || cfg.Policy.DueDay > 28 {
		return fmt.Errorf("POLICY_DUE_DAY must be 1-28, got %d", cfg.Policy.DueDay)
	}
	if cfg.Policy.GraceDays < 0 {
		return fmt.Errorf("POLICY_GRACE_DAYS must be non-negative, got %d", cfg.Policy.GraceDays)
	}
	if cfg.Policy.DelinquencyDays < 0 {
		return fmt.Errorf("POLICY_DELINQUENCY_DAYS must be non-negative, got %d", cfg.Policy.DelinquencyDays)
	}
	return nil
}

// LatenessPolicy converts the configured windows into the domain policy.
func (c *Config) LatenessPolicy() billing.LatenessPolicy {
	return billing.LatenessPolicy{
		DueDay:          c.Policy.DueDay,
		GraceDays:       c.Policy.GraceDays,
		DelinquencyDays: c.Policy.DelinquencyDays,
	}
}

// Addr returns the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}
