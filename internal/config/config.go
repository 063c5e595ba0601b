package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the client configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig holds the backend connection configuration
type ServerConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AuthConfig locates the cached bearer credential
type AuthConfig struct {
	TokenFile string `mapstructure:"token_file"`
}

// ChatConfig holds chat session defaults
type ChatConfig struct {
	HistoryLimit int `mapstructure:"history_limit"`
}

// ArchiveConfig locates the local transcript archive database
type ArchiveConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads the configuration from config.yaml, searching the working
// directory and ~/.trustaudit. Environment variables prefixed TRUSTAUDIT_
// override file values (e.g. TRUSTAUDIT_SERVER_BASE_URL).
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".trustaudit"))
	}

	v.SetEnvPrefix("TRUSTAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.base_url", "http://localhost:8000")
	v.SetDefault("server.timeout", 60*time.Second)
	v.SetDefault("chat.history_limit", 100)
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; defaults and env cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Auth.TokenFile == "" {
		config.Auth.TokenFile = defaultPath("token")
	}
	if config.Archive.Path == "" {
		config.Archive.Path = defaultPath("archive.db")
	}

	return &config, nil
}

func defaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".trustaudit", name)
}
