// Package gemini implements model.Model on top of the Google Gen AI SDK
// (Gemini API backend).
package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/model"
	genai "google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// ErrMissingAPIKey is returned when neither Options.APIKey nor GOOGLE_API_KEY is set.
var ErrMissingAPIKey = errors.New("gemini: missing API key; set GOOGLE_API_KEY")

// Options configure the Gemini model adapter.
type Options struct {
	Model       string
	Temperature float32
	// APIKey overrides GOOGLE_API_KEY.
	APIKey string
}

// Model wraps the Gemini GenerateContent API behind the generic model.Model interface.
type Model struct {
	client *genai.Client
	opts   Options
}

// NewModel creates a new Gemini model using the Gemini API backend.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := defaultOptions(optFns...)

	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}

	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &Model{client: client, opts: opts}, nil
}

// NewModelFromClient creates a new Gemini model from an existing client.
func NewModelFromClient(client *genai.Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: defaultOptions(optFns...)}
}

func defaultOptions(optFns ...func(o *Options)) Options {
	opts := Options{
		Model:       DefaultModel,
		Temperature: 0.7,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return opts
}

// Generate implements model.Model.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		contents := buildContents(req.Contents)
		cfg := buildConfig(req, m.opts.Temperature)

		if req.Stream {
			m.handleStreaming(ctx, contents, cfg, out, errCh)
			return
		}

		res, err := m.client.Models.GenerateContent(ctx, m.opts.Model, contents, cfg)
		if err != nil {
			errCh <- fmt.Errorf("gemini api error: %w", err)
			return
		}

		out <- toResponse(res, nil)
	}()

	return out, errCh
}

func (m *Model) handleStreaming(
	ctx context.Context,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
	out chan<- model.Response,
	errCh chan<- error,
) {
	var (
		text  string
		calls []*genai.FunctionCall
		last  *genai.GenerateContentResponse
	)

	for res, err := range m.client.Models.GenerateContentStream(ctx, m.opts.Model, contents, cfg) {
		if err != nil {
			errCh <- fmt.Errorf("gemini streaming error: %w", err)
			return
		}

		last = res

		if delta := res.Text(); delta != "" {
			text += delta
			out <- model.Response{
				Partial: true,
				Content: core.Content{
					Role:  core.ContentRoleAssistant,
					Parts: []core.Part{core.TextPart{Text: delta}},
				},
			}
		}

		calls = append(calls, res.FunctionCalls()...)
	}

	if last == nil {
		errCh <- model.ErrNoResponse
		return
	}

	final := toResponse(last, calls)
	final.Content.Parts = append([]core.Part{}, functionCallParts(calls)...)
	if text != "" {
		final.Content.Parts = append([]core.Part{core.TextPart{Text: text}}, final.Content.Parts...)
	}

	out <- final
}

// buildContents converts normalized contents to Gemini contents. Assistant
// turns use the "model" role; tool responses travel as user function
// responses.
func buildContents(contents []core.Content) []*genai.Content {
	out := make([]*genai.Content, 0, len(contents))

	for _, c := range contents {
		role := genai.RoleUser
		if c.Role == core.ContentRoleAssistant {
			role = genai.RoleModel
		}

		var parts []*genai.Part

		for _, p := range c.Parts {
			switch part := p.(type) {
			case core.TextPart:
				if part.Text != "" {
					parts = append(parts, &genai.Part{Text: part.Text})
				}
			case core.FunctionCallPart:
				args, err := model.DecodeArguments(part.FunctionCall.Arguments)
				if err != nil {
					args = map[string]any{}
				}
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   part.FunctionCall.ID,
					Name: part.FunctionCall.Name,
					Args: args,
				}})
			case core.FunctionResponsePart:
				parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:       part.FunctionResponse.ID,
					Name:     part.FunctionResponse.Name,
					Response: part.FunctionResponse.Response,
				}})
			}
		}

		if len(parts) == 0 {
			continue
		}

		out = append(out, &genai.Content{Role: role, Parts: parts})
	}

	return out
}

func buildConfig(req model.Request, temperature float32) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temperature),
	}

	if req.Instructions != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.Instructions}}}
	}

	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, def := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:                 def.Function.Name,
				Description:          def.Function.Description,
				ParametersJsonSchema: def.Function.Parameters,
			})
		}

		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	return cfg
}

func functionCallParts(calls []*genai.FunctionCall) []core.Part {
	parts := make([]core.Part, 0, len(calls))

	for i, fc := range calls {
		id := fc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d_%s", i, fc.Name)
		}

		parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
			ID:        id,
			Name:      fc.Name,
			Arguments: model.EncodeArguments(fc.Args),
		}})
	}

	return parts
}

// toResponse converts a Gemini response; calls overrides the response's own
// function calls when non-nil.
func toResponse(res *genai.GenerateContentResponse, calls []*genai.FunctionCall) model.Response {
	if calls == nil {
		calls = res.FunctionCalls()
	}

	var parts []core.Part
	if text := res.Text(); text != "" {
		parts = append(parts, core.TextPart{Text: text})
	}
	parts = append(parts, functionCallParts(calls)...)

	finishReason := "stop"
	if len(calls) > 0 {
		finishReason = "tool_calls"
	} else if len(res.Candidates) > 0 && res.Candidates[0].FinishReason != "" {
		finishReason = string(res.Candidates[0].FinishReason)
	}

	resp := model.Response{
		ID:           res.ResponseID,
		Content:      core.Content{Role: core.ContentRoleAssistant, Parts: parts},
		FinishReason: finishReason,
	}

	if u := res.UsageMetadata; u != nil {
		resp.Usage = &model.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}

	return resp
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "gemini",
		SupportsTools: true,
	}
}
