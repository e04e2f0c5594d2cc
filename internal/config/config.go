package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/viper"
)

type Config struct {
	Package   string   `mapstructure:"package"`
	Entry     string   `mapstructure:"entry"`
	Database  string   `mapstructure:"database"`
	Output    string   `mapstructure:"output"`
	Mode      string   `mapstructure:"mode"`
	Format    string   `mapstructure:"format"`
	Files     []string `mapstructure:"files"`
	Workers   int      `mapstructure:"workers"`
	MaxDepth  int      `mapstructure:"max_depth"`
	LogLevel  string   `mapstructure:"log_level"`
	LogFormat string   `mapstructure:"log_format"`
}

// Load reads configuration from cfgFile, or from bg3pak.yaml in the home
// directory or working directory when cfgFile is empty. A missing default
// file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("entry", "Globals.lsf")
	v.SetDefault("database", "bg3.db")
	v.SetDefault("mode", "full")
	v.SetDefault("format", "json")
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("max_depth", 1024)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetEnvPrefix("BG3PAK")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigName("bg3pak")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
