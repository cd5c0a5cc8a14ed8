package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// ReadConfig reads the configuration from the specified JSON file.
func ReadConfig(configPath string) (Config, error) {
	var cfg Config

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("chat_prefix", "redchat")
	v.SetDefault("history_limit", 1000)

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// MustReadConfig reads the configuration or panics if there's an error.
func MustReadConfig(configPath string) Config {
	cfg, err := ReadConfig(configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	return cfg
}
