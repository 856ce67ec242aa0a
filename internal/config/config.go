// Package config loads PhishLens settings from a YAML file, a .env file and
// the environment. All three binaries share it so a single configs/phishlens.yaml
// drives the server, the CLI and the MCP bridge.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmerrifield20/phishlens/internal/alerts"
	"github.com/jmerrifield20/phishlens/internal/events"
	"github.com/jmerrifield20/phishlens/internal/oracle"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config is the full set of runtime settings.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Database DatabaseConfig `mapstructure:"database"`
	Health   HealthConfig   `mapstructure:"health"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Events   events.Config  `mapstructure:"events"`
}

type ServerConfig struct {
	HTTPPort       int      `mapstructure:"http_port"`
	GRPCPort       int      `mapstructure:"grpc_port"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
	RateLimitRPS   int      `mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
	GRPCReflection bool     `mapstructure:"grpc_reflection"`
}

type OracleConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AnalysisConfig struct {
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	BatchConcurrency int           `mapstructure:"batch_concurrency"`
}

type DatabaseConfig struct {
	URL         string `mapstructure:"url"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type HealthConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
	FailThreshold int           `mapstructure:"fail_threshold"`
}

type AlertsConfig struct {
	Webhooks     []alerts.Target `mapstructure:"webhooks"`
	MinRiskScore int             `mapstructure:"min_risk_score"`
}

// Options controls where Load looks for settings.
type Options struct {
	// File is an explicit config file path. When empty, Name is searched for
	// in ./configs and the working directory.
	File    string
	Name    string
	// EnvFile is loaded with godotenv before the environment is read.
	// Missing files are ignored.
	EnvFile string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.grpc_port", 9090)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.rate_limit_rps", 10)
	v.SetDefault("server.rate_limit_burst", 20)
	v.SetDefault("server.grpc_reflection", false)
	v.SetDefault("oracle.api_key", "")
	v.SetDefault("oracle.model", oracle.DefaultGeminiModel)
	v.SetDefault("oracle.base_url", oracle.DefaultGeminiBaseURL)
	v.SetDefault("oracle.timeout", "15s")
	v.SetDefault("analysis.cache_ttl", "0s")
	v.SetDefault("analysis.batch_concurrency", 4)
	v.SetDefault("database.url", "")
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("health.check_interval", "1m")
	v.SetDefault("health.fail_threshold", 3)
	v.SetDefault("alerts.webhooks", []map[string]any{})
	v.SetDefault("alerts.min_risk_score", 0)
	v.SetDefault("events.brokers", []string{})
	v.SetDefault("events.topic", events.DefaultTopic)
	v.SetDefault("events.phishing_only", false)
}

// Load reads settings in increasing order of precedence: defaults, the
// config file, then environment variables (server.http_port is
// SERVER_HTTP_PORT). GEMINI_API_KEY is accepted for oracle.api_key.
func Load(opts Options, logger *zap.Logger) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err == nil {
		logger.Debug("loaded environment file", zap.String("path", envFile))
	}

	v := viper.New()
	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		name := opts.Name
		if name == "" {
			name = "phishlens"
		}
		v.SetConfigName(name)
		v.SetConfigType("yaml")
		v.AddConfigPath("configs")
		v.AddConfigPath(".")
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("oracle.api_key", "ORACLE_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind oracle key env: %w", err)
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		logger.Debug("no config file found, using defaults and env vars")
	} else {
		logger.Info("config loaded", zap.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch {
	case c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535:
		return fmt.Errorf("server.http_port %d out of range", c.Server.HTTPPort)
	case c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535:
		return fmt.Errorf("server.grpc_port %d out of range", c.Server.GRPCPort)
	case c.Server.RateLimitRPS < 0:
		return errors.New("server.rate_limit_rps must not be negative")
	case c.Oracle.Timeout < 0:
		return errors.New("oracle.timeout must not be negative")
	case c.Analysis.CacheTTL < 0:
		return errors.New("analysis.cache_ttl must not be negative")
	case c.Analysis.BatchConcurrency <= 0:
		return errors.New("analysis.batch_concurrency must be positive")
	}
	for i, w := range c.Alerts.Webhooks {
		if w.URL == "" {
			return fmt.Errorf("alerts.webhooks[%d].url is required", i)
		}
	}
	return nil
}

// Oracle is an oracle.Oracle that can report whether its backend is reachable.
type Oracle interface {
	oracle.Oracle
	Ping(ctx context.Context) error
}

// NewOracle returns a Gemini-backed oracle when an API key is configured
// and an always-unavailable one otherwise.
func (c OracleConfig) NewOracle(logger *zap.Logger) Oracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	g, err := oracle.NewGeminiOracle(oracle.GeminiConfig{
		APIKey:  c.APIKey,
		Model:   c.Model,
		BaseURL: c.BaseURL,
	}, logger)
	if err != nil {
		logger.Warn("AI oracle disabled; verdicts will use the heuristic model", zap.Error(err))
		return oracle.NewUnavailableOracle(logger)
	}
	logger.Info("AI oracle configured", zap.String("model", g.Model()))
	return g
}
