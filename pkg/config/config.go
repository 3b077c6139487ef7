// Package config loads livecache settings from defaults, an optional YAML file
// and LIVECACHE_ environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/junaikey/livecache/internal/codec"
	"github.com/junaikey/livecache/pkg/constants"
	"github.com/junaikey/livecache/pkg/filter"
	"github.com/junaikey/livecache/pkg/models"
)

// EnvPrefix prefixes environment overrides: page.viewer is LIVECACHE_PAGE_VIEWER.
const EnvPrefix = "LIVECACHE"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Page    PageConfig    `mapstructure:"page"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig locates the entity service.
type ServerConfig struct {
	URL     string        `mapstructure:"url"`
	Codec   string        `mapstructure:"codec"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PageConfig is the scope a watched page starts with.
type PageConfig struct {
	Table      string        `mapstructure:"table"`
	Viewer     string        `mapstructure:"viewer"`
	Filter     filter.Filter `mapstructure:"filter"`
	Optimistic bool          `mapstructure:"optimistic"`
	QueueSize  int           `mapstructure:"queue_size"`
}

// RetryConfig shapes the exponential backoff used to re-establish a page.
type RetryConfig struct {
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	// Format is "json" (zerolog) or "text" (slog).
	Format string `mapstructure:"format"`
	// Path, when set, sends logs to a file instead of stderr.
	Path string `mapstructure:"path"`
}

type MetricsConfig struct {
	// Addr serves /metrics when set, e.g. ":9464".
	Addr string `mapstructure:"addr"`
}

var knownTables = []models.Table{
	models.TemplateTable,
	models.GlossaryTable,
	models.CollectionTable,
	models.NotificationTable,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "ws://127.0.0.1:8765")
	v.SetDefault("server.codec", codec.NameCBOR)
	v.SetDefault("server.timeout", constants.DefaultWSTimeout)

	v.SetDefault("page.table", string(models.TemplateTable))
	v.SetDefault("page.viewer", "")
	v.SetDefault("page.filter.type", "")
	v.SetDefault("page.filter.tags", []string{})
	v.SetDefault("page.filter.unread_only", false)
	v.SetDefault("page.optimistic", false)
	v.SetDefault("page.queue_size", constants.DefaultQueueSize)

	v.SetDefault("retry.initial_delay", 500*time.Millisecond)
	v.SetDefault("retry.max_delay", 30*time.Second)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.max_retries", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.path", "")

	v.SetDefault("metrics.addr", "")
}

// Load reads the configuration. With an empty path, ./livecache.yaml is used
// if it exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("livecache")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.Page.Filter.Tags = filter.ParseTags(strings.Join(cfg.Page.Filter.Tags, ","))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that required fields are set and consistent.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("server.url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("server.url must use ws or wss, got %q", c.Server.URL)
	}
	if _, err := codec.ByName(c.Server.Codec); err != nil {
		return fmt.Errorf("server.codec: %w", err)
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("server.timeout must be >= 0")
	}

	if !c.knownTable() {
		return fmt.Errorf("page.table %q is not one of %v", c.Page.Table, knownTables)
	}
	if c.Page.QueueSize < 0 {
		return fmt.Errorf("page.queue_size must be >= 0")
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}

	if c.Retry.InitialDelay <= 0 {
		return fmt.Errorf("retry.initial_delay must be greater than 0")
	}
	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		return fmt.Errorf("retry.max_delay (%s) must not be less than retry.initial_delay (%s)", c.Retry.MaxDelay, c.Retry.InitialDelay)
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("retry.multiplier must be >= 1")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0")
	}
	return nil
}

func (c *Config) knownTable() bool {
	for _, t := range knownTables {
		if c.Page.Table == string(t) {
			return true
		}
	}
	return false
}

// Viewer returns the configured viewer. An empty id is the anonymous viewer.
func (c *Config) Viewer() models.Viewer {
	return models.Viewer{ID: c.Page.Viewer}
}
