// Package config loads batchrev configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/sprite-ai/batchrev/internal/automation"
)

type Config struct {
	Backend    BackendConfig    `mapstructure:"backend"`
	Automation AutomationConfig `mapstructure:"automation"`
}

type BackendConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// Query selects the incoming queue; empty uses the reviewer default.
	Query string `mapstructure:"query"`
}

type AutomationConfig struct {
	Port    int   `mapstructure:"port"`
	MaxBody int64 `mapstructure:"max_body"`
}

func Defaults() Config {
	return Config{
		Automation: AutomationConfig{
			Port:    automation.DefaultPort,
			MaxBody: automation.DefaultMaxBody,
		},
	}
}

// Load reads the user config file (default ~/.batchrev/config.yaml) and
// applies BATCHREV_* environment overrides. A missing file is not an error;
// the backend URL is validated at the point of use, not here.
func Load(configPath string) (Config, error) {
	cfg := Defaults()

	path := configPath
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".batchrev", "config.yaml")
	}

	v := viper.New()
	v.SetEnvPrefix("BATCHREV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) && configPath == "" {
			// Default location absent: env and defaults only.
			applyEnv(v, &cfg)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	applyEnv(v, &cfg)

	if cfg.Automation.Port == 0 {
		cfg.Automation.Port = automation.DefaultPort
	}
	if cfg.Automation.MaxBody == 0 {
		cfg.Automation.MaxBody = automation.DefaultMaxBody
	}
	return cfg, nil
}

// applyEnv covers the keys AutomaticEnv cannot see through Unmarshal.
func applyEnv(v *viper.Viper, cfg *Config) {
	if s := v.GetString("backend.url"); s != "" {
		cfg.Backend.URL = s
	}
	if s := v.GetString("backend.username"); s != "" {
		cfg.Backend.Username = s
	}
	if s := v.GetString("backend.password"); s != "" {
		cfg.Backend.Password = s
	}
	if s := v.GetString("backend.query"); s != "" {
		cfg.Backend.Query = s
	}
	if p := v.GetInt("automation.port"); p != 0 {
		cfg.Automation.Port = p
	}
}
