// Package config loads application configuration from file and environment
// and owns global logger setup.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/enrich-cli/internal/fanout"
	"github.com/sells-group/enrich-cli/internal/gate"
	"github.com/sells-group/enrich-cli/internal/provider"
	"github.com/sells-group/enrich-cli/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Providers []provider.Spec `yaml:"providers" mapstructure:"providers"`
	Fanout    FanoutConfig    `yaml:"fanout" mapstructure:"fanout"`
	Gate      gate.Policy     `yaml:"gate" mapstructure:"gate"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// FanoutConfig tunes concurrent provider lookups.
type FanoutConfig struct {
	// MaxInFlight caps concurrent provider calls across the whole batch.
	MaxInFlight int `yaml:"max_in_flight" mapstructure:"max_in_flight"`
	// CallTimeoutSecs bounds each individual provider call.
	CallTimeoutSecs int `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
	// CacheTTLMins is the lookup cache lifetime; 0 disables caching.
	CacheTTLMins int `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
	// BreakerThreshold is the consecutive-failure run that opens a
	// provider's circuit.
	BreakerThreshold int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	// BreakerCooldownSecs is how long an open circuit fails fast.
	BreakerCooldownSecs int `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// ToFanout converts the config values into the orchestrator's config.
func (f FanoutConfig) ToFanout() fanout.Config {
	cfg := fanout.DefaultConfig()
	if f.MaxInFlight > 0 {
		cfg.MaxInFlight = int64(f.MaxInFlight)
	}
	if f.CallTimeoutSecs > 0 {
		cfg.CallTimeout = time.Duration(f.CallTimeoutSecs) * time.Second
	}
	if f.CacheTTLMins >= 0 {
		cfg.CacheTTL = time.Duration(f.CacheTTLMins) * time.Minute
	}
	breaker := resilience.DefaultBreakerConfig()
	if f.BreakerThreshold > 0 {
		breaker.FailureThreshold = f.BreakerThreshold
	}
	if f.BreakerCooldownSecs > 0 {
		breaker.CoolDown = time.Duration(f.BreakerCooldownSecs) * time.Second
	}
	cfg.Breaker = breaker
	return cfg
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// StoreConfig configures the evidence store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "enrich.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("fanout.max_in_flight", 16)
	v.SetDefault("fanout.call_timeout_secs", 20)
	v.SetDefault("fanout.cache_ttl_mins", 60)
	v.SetDefault("fanout.breaker_threshold", 5)
	v.SetDefault("fanout.breaker_cooldown_secs", 30)
	v.SetDefault("gate.min_sources", 2)
	v.SetDefault("gate.require_official", true)
	v.SetDefault("gate.allow_dual_official", false)
	v.SetDefault("gate.confidence_threshold", 70)
	v.SetDefault("gate.require_fresh_contact", true)

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

// PolicyFile is the optional YAML policy document overriding providers and
// gate rules for one run (taxonomies live here too, as data).
type PolicyFile struct {
	Providers []provider.Spec `yaml:"providers"`
	Gate      *gate.Policy    `yaml:"gate"`
}

// LoadPolicyFile reads a policy YAML and merges it over the config.
func LoadPolicyFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "config: read policy %s", path)
	}
	var pf PolicyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return eris.Wrap(err, "config: parse policy")
	}
	if len(pf.Providers) > 0 {
		cfg.Providers = pf.Providers
	}
	if pf.Gate != nil {
		cfg.Gate = *pf.Gate
	}
	return nil
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
