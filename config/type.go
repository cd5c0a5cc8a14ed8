package config

type Config struct {
	Port         int    `mapstructure:"port"`
	LogLevel     string `mapstructure:"log_level"`
	LogFile      string `mapstructure:"log_file"`
	RedisURL     string `mapstructure:"redis_url"`
	ChatPrefix   string `mapstructure:"chat_prefix"`
	HistoryLimit int    `mapstructure:"history_limit"`
}
