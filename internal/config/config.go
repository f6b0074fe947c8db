// Package config loads the settings of the weatherteam command.
package config

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/hupe1980/agentteam/logging"
)

// Engine kinds.
const (
	EngineRules = "rules"
	EngineModel = "model"
)

// Config is the root configuration.
type Config struct {
	AppName   string        `mapstructure:"app_name"`
	UserID    string        `mapstructure:"user_id"`
	SessionID string        `mapstructure:"session_id"`
	Engine    EngineConfig  `mapstructure:"engine"`
	Model     ModelConfig   `mapstructure:"model"`
	Logging   LoggingConfig `mapstructure:"logging"`
}

// EngineConfig selects and tunes the reasoning engine.
type EngineConfig struct {
	Kind               string `mapstructure:"kind"`
	MaxSteps           int    `mapstructure:"max_steps"`
	MaxDelegationDepth int    `mapstructure:"max_delegation_depth"`
	MaxParallelTools   int    `mapstructure:"max_parallel_tools"`
	Stream             bool   `mapstructure:"stream"`
}

// ModelConfig selects the model provider for the model engine.
type ModelConfig struct {
	Provider string `mapstructure:"provider"`
	// Name selects the provider model; empty means the adapter default.
	Name        string  `mapstructure:"name"`
	Temperature float64 `mapstructure:"temperature"`
	// APIKey overrides the provider's environment variable.
	APIKey string `mapstructure:"api_key"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	Backend string `mapstructure:"backend"`
}

// Providers lists the supported model providers.
var Providers = []string{"gemini", "openai", "anthropic", "mock"}

// DefaultConfig returns the configuration of the weather demo.
func DefaultConfig() *Config {
	return &Config{
		AppName:   "Weather Agent Demo",
		UserID:    "user_1",
		SessionID: "session_001",
		Engine: EngineConfig{
			Kind:               EngineRules,
			MaxSteps:           8,
			MaxDelegationDepth: 1,
		},
		Model: ModelConfig{
			Provider:    "gemini",
			Temperature: 0.2,
		},
		Logging: LoggingConfig{
			Level:   "warn",
			Format:  "pretty",
			Backend: "zerolog",
		},
	}
}

// Validate checks the configuration for unsupported values.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.AppName) == "" {
		errs = append(errs, errors.New("app_name must not be empty"))
	}

	if strings.TrimSpace(c.UserID) == "" {
		errs = append(errs, errors.New("user_id must not be empty"))
	}

	switch c.Engine.Kind {
	case EngineRules, EngineModel:
	default:
		errs = append(errs, fmt.Errorf("engine.kind must be %q or %q, got %q", EngineRules, EngineModel, c.Engine.Kind))
	}

	if c.Engine.MaxSteps < 0 {
		errs = append(errs, errors.New("engine.max_steps must not be negative"))
	}

	if c.Engine.MaxDelegationDepth < 0 {
		errs = append(errs, errors.New("engine.max_delegation_depth must not be negative"))
	}

	if c.Engine.Kind == EngineModel && !slices.Contains(Providers, c.Model.Provider) {
		errs = append(errs, fmt.Errorf("model.provider must be one of %s, got %q", strings.Join(Providers, ", "), c.Model.Provider))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text", "pretty":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json, text or pretty, got %q", c.Logging.Format))
	}

	switch strings.ToLower(c.Logging.Backend) {
	case "zerolog", "slog":
	default:
		errs = append(errs, fmt.Errorf("logging.backend must be zerolog or slog, got %q", c.Logging.Backend))
	}

	return errors.Join(errs...)
}

// LoggerConfig converts the logging section for logging.NewLogger.
func (c *Config) LoggerConfig(out io.Writer) *logging.LoggerConfig {
	return &logging.LoggerConfig{
		Level:   logging.ParseLevel(c.Logging.Level),
		Backend: strings.ToLower(c.Logging.Backend),
		Format:  strings.ToLower(c.Logging.Format),
		Output:  out,
	}
}
