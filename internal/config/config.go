package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

const (
	envPrefix = "IDEA"
	dotEnv    = ".env"

	defaultDBFile = "ideas.db"
)

var (
	Module = fx.Provide(
		NewConfig,
	)

	validLogLevels = []string{"debug", "info", "warn", "error"}
)

type (
	Config struct {
		Host     string `mapstructure:"HOST"`
		Port     string `mapstructure:"PORT"`
		DBPath   string `mapstructure:"DB_PATH"`
		DBLog    bool   `mapstructure:"DB_LOG"`
		LogLevel string `mapstructure:"LOG_LEVEL"`
	}
)

// NewConfig reads IDEA_* environment variables, after loading an optional
// .env file from the working directory.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(dotEnv); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "get working directory")
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)

	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", "8000")
	v.SetDefault("DB_PATH", filepath.Join(wd, defaultDBFile))
	v.SetDefault("DB_LOG", false)
	v.SetDefault("LOG_LEVEL", "info")

	envs := []string{"HOST", "PORT", "DB_PATH", "DB_LOG", "LOG_LEVEL"}
	for _, key := range envs {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// Listen is the address the HTTP server binds to.
func (c *Config) Listen() string {
	return c.Host + ":" + c.Port
}

func validate(cfg *Config) error {
	if cfg.DBPath == "" {
		return errors.New("DB path is empty")
	}
	for _, validValue := range validLogLevels {
		if cfg.LogLevel == validValue {
			return nil
		}
	}
	return errors.New(fmt.Sprintf("log level is invalid: %s", cfg.LogLevel))
}
