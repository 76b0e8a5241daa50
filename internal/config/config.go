// Package config loads runtime configuration for both the TUI client and
// the analysis server. Values come from the environment, an optional
// AUDIENZE_ENV file, and defaults, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/audienze/audienze/internal/store"
)

// Config is the merged configuration for the whole application.
type Config struct {
	// Client side.
	DBPath         string `mapstructure:"db_path" validate:"required"`
	GatewayURL     string `mapstructure:"gateway_url" validate:"required,url"`
	GatewayTimeout int    `mapstructure:"gateway_timeout_seconds" validate:"min=1"`
	Retention      int    `mapstructure:"retention" validate:"min=1"`

	// Server side.
	Host         string `mapstructure:"host" validate:"required"`
	Port         int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	OpenAIAPIKey string `mapstructure:"openai_api_key"`

	// Shared.
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogPath  string `mapstructure:"log_path" validate:"required"`
}

// Addr is the listen address for the analysis server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads config from the environment with the AUDIENZE_ prefix. An env
// file can be pointed at with AUDIENZE_ENV.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("audienze")
	v.AutomaticEnv()

	if path := os.Getenv("AUDIENZE_ENV"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read env file %s: %w", path, err)
		}
	}

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", defaultDBPath())
	v.SetDefault("gateway_url", "http://localhost:3001")
	v.SetDefault("gateway_timeout_seconds", 60)
	v.SetDefault("retention", store.DefaultRetention)

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 3001)
	v.SetDefault("openai_api_key", "")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_path", defaultLogPath())
}

func defaultDBPath() string {
	return store.DefaultDBPath()
}

func defaultLogPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "audienze.log"
	}
	return filepath.Join(dir, "audienze", "audienze.log")
}
