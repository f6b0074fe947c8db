package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. AGENTTEAM_ENGINE_KIND.
const EnvPrefix = "AGENTTEAM"

// Loader handles configuration loading from defaults, an optional file,
// the environment and explicit overrides (highest precedence last).
type Loader struct {
	configPath string
	overrides  map[string]any
}

// NewLoader creates a new config loader. An empty path skips the file.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		overrides:  map[string]any{},
	}
}

// Set records an override for a dotted key such as "engine.kind".
func (l *Loader) Set(key string, value any) *Loader {
	l.overrides[key] = value
	return l
}

// Load resolves the configuration and validates it.
func (l *Loader) Load() (*Config, error) {
	v := viper.New()

	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if l.configPath != "" {
		if _, err := os.Stat(l.configPath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found", l.configPath)
			}
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}

		v.SetConfigFile(l.configPath)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for key, value := range l.overrides {
		v.Set(key, value)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every key so environment variables are honored by
// Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("app_name", cfg.AppName)
	v.SetDefault("user_id", cfg.UserID)
	v.SetDefault("session_id", cfg.SessionID)

	v.SetDefault("engine.kind", cfg.Engine.Kind)
	v.SetDefault("engine.max_steps", cfg.Engine.MaxSteps)
	v.SetDefault("engine.max_delegation_depth", cfg.Engine.MaxDelegationDepth)
	v.SetDefault("engine.max_parallel_tools", cfg.Engine.MaxParallelTools)
	v.SetDefault("engine.stream", cfg.Engine.Stream)

	v.SetDefault("model.provider", cfg.Model.Provider)
	v.SetDefault("model.name", cfg.Model.Name)
	v.SetDefault("model.temperature", cfg.Model.Temperature)
	v.SetDefault("model.api_key", cfg.Model.APIKey)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.backend", cfg.Logging.Backend)
}

// Load is a convenience function that creates a loader and loads the config.
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}
