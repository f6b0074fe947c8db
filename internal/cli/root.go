// Package cli implements the weatherteam command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hupe1980/agentteam/internal/config"
	"github.com/hupe1980/agentteam/logging"
)

const version = "0.1.0"

// app is the state shared by the sub commands once flags are parsed.
type app struct {
	cfgFile string
	envFile string

	// flag name -> config key, applied when the flag was set explicitly
	overrides map[string]string

	cfg    *config.Config
	logger logging.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{
		overrides: map[string]string{
			"engine":       "engine.kind",
			"provider":     "model.provider",
			"model":        "model.name",
			"user":         "user_id",
			"session":      "session_id",
			"log-level":    "logging.level",
			"log-format":   "logging.format",
			"stream":       "engine.stream",
			"max-steps":    "engine.max_steps",
			"api-key":      "model.api_key",
			"app-name":     "app_name",
			"max-parallel": "engine.max_parallel_tools",
		},
	}

	root := &cobra.Command{
		Use:   "weatherteam",
		Short: "Weather agent team demo",
		Long: `weatherteam runs a small hierarchical agent team: a weather agent that
delegates greetings and farewells to two specialised agents.

The default "rules" engine works offline; "--engine model" uses an LLM
provider (gemini, openai or anthropic) configured through flags, a config
file, AGENTTEAM_* variables or a .env file.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (yaml or json)")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file with provider API keys")
	pf.String("engine", config.EngineRules, "reasoning engine (rules, model)")
	pf.String("provider", "gemini", "model provider (gemini, openai, anthropic, mock)")
	pf.String("model", "", "model name (provider default when empty)")
	pf.String("api-key", "", "provider API key (defaults to the provider's environment variable)")
	pf.String("app-name", "", "application name scoping sessions")
	pf.String("user", "", "user id")
	pf.String("session", "", "session id")
	pf.String("log-level", "warn", "log level (debug, info, warn, error)")
	pf.String("log-format", "pretty", "log format (json, text, pretty)")
	pf.Bool("stream", false, "stream model output")
	pf.Int("max-steps", 8, "model calls per turn (0 = unlimited)")
	pf.Int("max-parallel", 0, "concurrent tool calls per model response (0 = unlimited)")

	root.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)

	root.AddCommand(
		newChatCmd(a),
		newAskCmd(a),
		newEvalCmd(a),
	)

	return root
}

// Execute runs the command line with os.Args.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}

	loader := config.NewLoader(a.cfgFile)

	for flag, key := range a.overrides {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		loader.Set(key, f.Value.String())
	}

	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logging.NewLogger(cfg.LoggerConfig(cmd.ErrOrStderr()))

	a.logger.Debug("cli.config.loaded", "engine", cfg.Engine.Kind, "provider", cfg.Model.Provider)

	return nil
}
