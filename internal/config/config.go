// Package config loads application configuration from file and
// environment and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/brightpath-abroad/counsel-engine/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Providers ProvidersConfig `yaml:"providers" mapstructure:"providers"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Analysis  AnalysisConfig  `yaml:"analysis" mapstructure:"analysis"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// ProvidersConfig holds the model vendor settings and credential pools.
// Key lists are read once at startup and never mutated afterwards.
type ProvidersConfig struct {
	Preferred  string           `yaml:"preferred" mapstructure:"preferred"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Keys              []string `yaml:"keys" mapstructure:"keys"`
	Model             string   `yaml:"model" mapstructure:"model"`
	FallbackModel     string   `yaml:"fallback_model" mapstructure:"fallback_model"`
	MaxTokens         int64    `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs       int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond float64  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Keys              []string `yaml:"keys" mapstructure:"keys"`
	BaseURL           string   `yaml:"base_url" mapstructure:"base_url"`
	Model             string   `yaml:"model" mapstructure:"model"`
	FallbackModel     string   `yaml:"fallback_model" mapstructure:"fallback_model"`
	TimeoutSecs       int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond float64  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// EnrichConfig configures enrichment cache freshness tiers.
type EnrichConfig struct {
	VerifiedTTLDays int `yaml:"verified_ttl_days" mapstructure:"verified_ttl_days"`
	ManualTTLDays   int `yaml:"manual_ttl_days" mapstructure:"manual_ttl_days"`
	MachineTTLDays  int `yaml:"machine_ttl_days" mapstructure:"machine_ttl_days"`
}

// AnalysisConfig configures the per-user analysis cache.
type AnalysisConfig struct {
	TTLDays int `yaml:"ttl_days" mapstructure:"ttl_days"`
}

// BatchConfig configures batch model calls.
type BatchConfig struct {
	// MaxEntities caps how many entities one model call covers. Entities
	// beyond the cap receive default records without a call.
	MaxEntities int `yaml:"max_entities" mapstructure:"max_entities"`
	// MaxConcurrent bounds concurrent sub-calls per provider.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COUNSEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("providers.preferred", "anthropic")
	v.SetDefault("providers.anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("providers.anthropic.fallback_model", "claude-haiku-4-5-20251001")
	v.SetDefault("providers.anthropic.max_tokens", 4096)
	v.SetDefault("providers.anthropic.timeout_secs", 30)
	v.SetDefault("providers.anthropic.requests_per_second", 2)
	v.SetDefault("providers.perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("providers.perplexity.model", "sonar-pro")
	v.SetDefault("providers.perplexity.fallback_model", "sonar")
	v.SetDefault("providers.perplexity.timeout_secs", 30)
	v.SetDefault("providers.perplexity.requests_per_second", 2)
	v.SetDefault("enrich.verified_ttl_days", 180)
	v.SetDefault("enrich.manual_ttl_days", 90)
	v.SetDefault("enrich.machine_ttl_days", 30)
	v.SetDefault("analysis.ttl_days", 7)
	v.SetDefault("batch.max_entities", 50)
	v.SetDefault("batch.max_concurrent", 10)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
