// Package config loads application configuration from an optional yaml
// file plus LEADFINDER_-prefixed environment variables.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Places    PlacesConfig    `yaml:"places" mapstructure:"places"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Notify    NotifyConfig    `yaml:"notify" mapstructure:"notify"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// PlacesConfig holds the search provider credential. An empty key switches
// the search layer to mock mode.
type PlacesConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
	LeadsTable  string `yaml:"leads_table" mapstructure:"leads_table"`
}

// AnthropicConfig holds Anthropic API settings. An empty key disables the
// LLM coordinator; discovery then runs the deterministic pipeline.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// NotifyConfig configures the progress-event listener.
type NotifyConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the delivery timeout as a duration.
func (c NotifyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// SearchConfig tunes business discovery. RadiusKM, MaxResults, MinRating,
// and BusinessTypes are the fallbacks for requests that leave those fields
// unset.
type SearchConfig struct {
	RadiusKM           int      `yaml:"radius_km" mapstructure:"radius_km"`
	MaxResults         int      `yaml:"max_results" mapstructure:"max_results"`
	MinRating          float64  `yaml:"min_rating" mapstructure:"min_rating"`
	BusinessTypes      []string `yaml:"business_types" mapstructure:"business_types"`
	DetailQPS          float64  `yaml:"detail_qps" mapstructure:"detail_qps"`
	PageTokenDelaySecs int      `yaml:"page_token_delay_secs" mapstructure:"page_token_delay_secs"`
	ChainsFile         string   `yaml:"chains_file" mapstructure:"chains_file"`
}

// PageTokenDelay returns the continuation-token wait as a duration.
func (c SearchConfig) PageTokenDelay() time.Duration {
	return time.Duration(c.PageTokenDelaySecs) * time.Second
}

// ServerConfig configures the HTTP server.
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

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Credential keys default to empty so their env bindings
	// register; empty means the corresponding integration is disabled.
	v.SetDefault("places.key", "")
	v.SetDefault("places.base_url", "")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.path", "leads.db")
	v.SetDefault("store.leads_table", "business_leads")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("notify.url", "")
	v.SetDefault("notify.timeout_secs", 10)
	v.SetDefault("search.radius_km", 10)
	v.SetDefault("search.max_results", 60)
	v.SetDefault("search.min_rating", 0.0)
	v.SetDefault("search.business_types", []string{})
	v.SetDefault("search.detail_qps", 10)
	v.SetDefault("search.page_token_delay_secs", 2)
	v.SetDefault("search.chains_file", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks that the configuration is usable for the given mode.
// Modes: "serve", "discover", "migrate".
func (c *Config) Validate(mode string) error {
	var missing []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
	case "discover":
		// Discovery works without any credential: no places key means
		// mock results, no anthropic key means deterministic orchestration.
	case "migrate":
		// Driver checks below cover it.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required for the postgres driver")
		}
	case "sqlite":
		if c.Store.Path == "" {
			missing = append(missing, "store.path is required for the sqlite driver")
		}
	default:
		missing = append(missing, "store.driver must be postgres or sqlite")
	}

	if len(missing) > 0 {
		return eris.New("config: " + strings.Join(missing, "; "))
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
