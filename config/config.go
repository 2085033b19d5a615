package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

/* Config holds the runtime settings of the tester.
 * Values come from an optional .env file (TOML) in the working directory,
 * overridden by environment variables of the same name.
 */
type Config struct {
	Port                string `mapstructure:"PORT"`
	AdminPort           string `mapstructure:"ADMIN_PORT"`
	DataDir             string `mapstructure:"DATA_DIR"`
	FrontendDir         string `mapstructure:"FRONTEND_DIR"`
	FlushThreshold      int    `mapstructure:"FLUSH_THRESHOLD"`
	BroadcastCapacity   int    `mapstructure:"BROADCAST_CAPACITY"`
	DefaultOriginalPort int    `mapstructure:"DEFAULT_ORIGINAL_PORT"`
	OriginalDstLookup   bool   `mapstructure:"ORIGINAL_DST_LOOKUP"`
	MaxBodyBytes        int64  `mapstructure:"MAX_BODY_BYTES"`
	LogLevel            string `mapstructure:"LOG_LEVEL"`
	RedisAddr           string `mapstructure:"REDIS_ADDR"`
	RedisPassword       string `mapstructure:"REDIS_PASSWORD"`
	RedisDB             int    `mapstructure:"REDIS_DB"`
	RedisStreamMaxLen   int64  `mapstructure:"REDIS_STREAM_MAXLEN"`
}

var defaults = map[string]any{
	"PORT":                  "8080",
	"ADMIN_PORT":            "9090",
	"DATA_DIR":              "data",
	"FRONTEND_DIR":          "frontend",
	"FLUSH_THRESHOLD":       100,
	"BROADCAST_CAPACITY":    100,
	"DEFAULT_ORIGINAL_PORT": 8080,
	"ORIGINAL_DST_LOOKUP":   false,
	"MAX_BODY_BYTES":        2 << 20,
	"LOG_LEVEL":             "info",
	"REDIS_ADDR":            "",
	"REDIS_PASSWORD":        "",
	"REDIS_DB":              0,
	"REDIS_STREAM_MAXLEN":   10000,
}

// GetConfig loads the configuration from ./.env and the environment
func GetConfig() (*Config, error) {
	return Load(".")
}

// Load reads the .env file from dir when present and applies defaults for
// everything that is not set
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &config, nil
}

// Validate checks the values the pipeline cannot run without
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.FlushThreshold < 1 {
		return fmt.Errorf("FLUSH_THRESHOLD must be at least 1 (got %d)", c.FlushThreshold)
	}
	if c.BroadcastCapacity < 1 {
		return fmt.Errorf("BROADCAST_CAPACITY must be at least 1 (got %d)", c.BroadcastCapacity)
	}
	if c.DefaultOriginalPort < 1 || c.DefaultOriginalPort > 65535 {
		return fmt.Errorf("DEFAULT_ORIGINAL_PORT must be between 1 and 65535 (got %d)", c.DefaultOriginalPort)
	}
	if c.MaxBodyBytes < 1 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive (got %d)", c.MaxBodyBytes)
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR cannot be empty")
	}
	return nil
}

// RedisEnabled reports whether flushed batches are mirrored to Redis
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}
