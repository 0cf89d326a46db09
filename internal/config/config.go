// Package config loads tool configuration from file and environment and
// bootstraps the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. Command-line flags take
// precedence over everything here.
type Config struct {
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	HTTP    HTTPConfig    `yaml:"http" mapstructure:"http"`
	Keys    KeysConfig    `yaml:"keys" mapstructure:"keys"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// GeocodeConfig holds defaults for a geocoding run.
type GeocodeConfig struct {
	Location        string  `yaml:"location" mapstructure:"location"`
	Delay           float64 `yaml:"delay" mapstructure:"delay"`
	LatitudeColumn  string  `yaml:"latitude_column" mapstructure:"latitude_column"`
	LongitudeColumn string  `yaml:"longitude_column" mapstructure:"longitude_column"`
	UserAgent       string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// HTTPConfig configures the outbound HTTP transport shared by all providers.
type HTTPConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// KeysConfig holds per-provider API keys. Each can also be supplied with the
// --api-key flag, which wins.
type KeysConfig struct {
	Google   string `yaml:"google" mapstructure:"google"`
	Bing     string `yaml:"bing" mapstructure:"bing"`
	MapQuest string `yaml:"mapquest" mapstructure:"mapquest"`
	Mapbox   string `yaml:"mapbox" mapstructure:"mapbox"`
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

	// Environment, e.g. GEOCODE_KEYS_GOOGLE, GEOCODE_LOG_LEVEL.
	v.SetEnvPrefix("GEOCODE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("geocode.location", "{location}")
	v.SetDefault("geocode.delay", 1.0)
	v.SetDefault("geocode.latitude_column", "latitude")
	v.SetDefault("geocode.longitude_column", "longitude")
	v.SetDefault("http.timeout_secs", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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
