package cli

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentteam"
	"github.com/hupe1980/agentteam/engine"
	"github.com/hupe1980/agentteam/internal/config"
	"github.com/hupe1980/agentteam/model"
	"github.com/hupe1980/agentteam/model/anthropic"
	"github.com/hupe1980/agentteam/model/gemini"
	"github.com/hupe1980/agentteam/model/openai"
	"github.com/hupe1980/agentteam/weatherteam"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
)

// newTeam wires the weather team with the configured engine.
func (a *app) newTeam(ctx context.Context) (*agentteam.Team, error) {
	root, err := weatherteam.NewTeam(func(o *weatherteam.Options) {
		o.MaxHistoryMessages = 20
	})
	if err != nil {
		return nil, err
	}

	eng, err := a.newEngine(ctx)
	if err != nil {
		return nil, err
	}

	return agentteam.New(root, eng, func(o *agentteam.Options) {
		o.AppName = a.cfg.AppName
		o.Logger = a.logger
	}), nil
}

func (a *app) newEngine(ctx context.Context) (engine.Engine, error) {
	cfg := a.cfg

	if cfg.Engine.Kind == config.EngineRules {
		return weatherteam.NewRuleEngine(nil, func(o *engine.RuleEngineOptions) {
			o.MaxDelegationDepth = cfg.Engine.MaxDelegationDepth
			o.Logger = a.logger
		}), nil
	}

	m, err := newModel(ctx, cfg.Model)
	if err != nil {
		return nil, err
	}

	a.logger.Info("cli.model.ready", "provider", m.Info().Provider, "model", m.Info().Name)

	return engine.NewModelEngine(m, func(o *engine.ModelEngineOptions) {
		o.MaxSteps = cfg.Engine.MaxSteps
		o.MaxDelegationDepth = cfg.Engine.MaxDelegationDepth
		o.MaxParallelTools = cfg.Engine.MaxParallelTools
		o.Stream = cfg.Engine.Stream
		o.Logger = a.logger
	}), nil
}

func newModel(ctx context.Context, cfg config.ModelConfig) (model.Model, error) {
	switch cfg.Provider {
	case "gemini":
		m, err := gemini.NewModel(ctx, func(o *gemini.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			o.Temperature = float32(cfg.Temperature)
			o.APIKey = cfg.APIKey
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			o.Temperature = cfg.Temperature
			o.APIKey = cfg.APIKey
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Name != "" {
				o.Model = anthropicsdk.Model(cfg.Name)
			}
			o.Temperature = cfg.Temperature
			o.APIKey = cfg.APIKey
		}), nil
	case "mock":
		name := cfg.Name
		if name == "" {
			name = "mock-model"
		}
		return model.NewMockModel(name, "mock"), nil
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
	}
}
