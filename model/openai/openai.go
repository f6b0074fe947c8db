// Package openai implements model.Model on top of the OpenAI Chat
// Completions API, including streaming and tool calling.
package openai

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/model"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrNoChoices is returned when a completion carries no choice.
var ErrNoChoices = errors.New("openai: completion without choices")

// Options configure the OpenAI model adapter.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	// APIKey overrides OPENAI_API_KEY.
	APIKey string
}

// Model adapts a Chat Completions client to model.Model.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a Model with its own client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions(optFns...)

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := openai.NewClient(clientOpts...)

	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a Model sharing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: defaultOptions(optFns...)}
}

func defaultOptions(optFns ...func(o *Options)) Options {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
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

		params := m.buildParams(req, buildMessages(req))

		var err error
		if req.Stream {
			err = m.stream(ctx, params, out)
		} else {
			err = m.complete(ctx, params, out)
		}

		if err != nil {
			errCh <- err
		}
	}()

	return out, errCh
}

// buildMessages flattens contents into chat messages. Every tool message
// directly follows the assistant message holding its call; results whose
// call is not in the request are appended at the end in arrival order.
func buildMessages(req model.Request) []openai.ChatCompletionMessageParamUnion {
	results, order := toolResults(req.Contents)

	var messages []openai.ChatCompletionMessageParamUnion
	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}

	for _, c := range req.Contents {
		switch c.Role {
		case core.ContentRoleTool:
			// Emitted next to their calls.
		case core.ContentRoleAssistant:
			calls := toolCallParams(c)
			if len(calls) == 0 {
				messages = append(messages, openai.AssistantMessage(c.Text()))
				continue
			}

			messages = append(messages, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{Role: "assistant", ToolCalls: calls},
			})

			for _, call := range calls {
				if res, ok := results[call.ID]; ok {
					messages = append(messages, openai.ToolMessage(res, call.ID))
					delete(results, call.ID)
				}
			}
		case "system":
			messages = append(messages, openai.SystemMessage(c.Text()))
		default:
			if text := c.Text(); text != "" {
				messages = append(messages, openai.UserMessage(text))
			}
		}
	}

	for _, id := range order {
		if res, ok := results[id]; ok {
			messages = append(messages, openai.ToolMessage(res, id))
		}
	}

	return messages
}

// toolResults encodes function responses by call id; the first response for
// an id wins.
func toolResults(contents []core.Content) (map[string]string, []string) {
	results := map[string]string{}

	var order []string

	for _, c := range contents {
		if c.Role != core.ContentRoleTool {
			continue
		}

		for _, p := range c.Parts {
			fr, ok := p.(core.FunctionResponsePart)
			if !ok || fr.FunctionResponse.ID == "" {
				continue
			}

			if _, seen := results[fr.FunctionResponse.ID]; seen {
				continue
			}

			results[fr.FunctionResponse.ID] = model.EncodeFunctionResponse(fr.FunctionResponse.Response)
			order = append(order, fr.FunctionResponse.ID)
		}
	}

	return results, order
}

func toolCallParams(c core.Content) []openai.ChatCompletionMessageToolCallParam {
	var calls []openai.ChatCompletionMessageToolCallParam

	for _, fc := range c.FunctionCalls() {
		calls = append(calls, openai.ChatCompletionMessageToolCallParam{
			ID:   fc.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      fc.Name,
				Arguments: fc.Arguments,
			},
		})
	}

	return calls
}

func (m *Model) buildParams(req model.Request, messages []openai.ChatCompletionMessageParamUnion) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}

	for _, def := range req.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        def.Function.Name,
				Description: openai.String(def.Function.Description),
				Parameters:  def.Function.Parameters,
			},
		})
	}

	return params
}

// pendingCall accumulates the deltas of one streamed tool call.
type pendingCall struct{ id, name, args string }

func (p *pendingCall) call() core.FunctionCall {
	return core.FunctionCall{ID: p.id, Name: p.name, Arguments: p.args}
}

// stream forwards text deltas and growing tool calls as partial responses
// and sends the assembled response once a finish reason arrives.
func (m *Model) stream(ctx context.Context, params openai.ChatCompletionNewParams, out chan<- model.Response) error {
	s := m.client.Chat.Completions.NewStreaming(ctx, params)

	var text strings.Builder

	pending := map[int64]*pendingCall{}

	for s.Next() {
		for _, ch := range s.Current().Choices {
			if delta := ch.Delta.Content; delta != "" {
				text.WriteString(delta)
				out <- partial(core.TextPart{Text: delta})
			}

			for _, d := range ch.Delta.ToolCalls {
				p, ok := pending[d.Index]
				if !ok {
					p = &pendingCall{}
					pending[d.Index] = p
				}

				if d.ID != "" {
					p.id = d.ID
				}
				if d.Function.Name != "" {
					p.name = d.Function.Name
				}
				p.args += d.Function.Arguments

				out <- partial(core.FunctionCallPart{FunctionCall: p.call()})
			}

			if ch.FinishReason != "" {
				out <- assembled(text.String(), pending, ch.FinishReason)
			}
		}
	}

	if err := s.Err(); err != nil {
		return fmt.Errorf("openai streaming error: %w", err)
	}

	return nil
}

func partial(p core.Part) model.Response {
	return model.Response{
		Partial: true,
		Content: core.Content{Role: core.ContentRoleAssistant, Parts: []core.Part{p}},
	}
}

// assembled builds the final streamed response with calls in index order.
func assembled(text string, pending map[int64]*pendingCall, finishReason string) model.Response {
	parts := make([]core.Part, 0, len(pending)+1)
	if text != "" {
		parts = append(parts, core.TextPart{Text: text})
	}

	indexes := make([]int64, 0, len(pending))
	for idx := range pending {
		indexes = append(indexes, idx)
	}

	slices.Sort(indexes)

	for _, idx := range indexes {
		parts = append(parts, core.FunctionCallPart{FunctionCall: pending[idx].call()})
	}

	return model.Response{
		Content:      core.Content{Role: core.ContentRoleAssistant, Parts: parts},
		FinishReason: finishReason,
	}
}

func (m *Model) complete(ctx context.Context, params openai.ChatCompletionNewParams, out chan<- model.Response) error {
	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return ErrNoChoices
	}

	choice := resp.Choices[0]

	parts := make([]core.Part, 0, len(choice.Message.ToolCalls)+1)
	if choice.Message.Content != "" {
		parts = append(parts, core.TextPart{Text: choice.Message.Content})
	}

	for _, tc := range choice.Message.ToolCalls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}})
	}

	out <- model.Response{
		ID:           resp.ID,
		Content:      core.Content{Role: core.ContentRoleAssistant, Parts: parts},
		FinishReason: choice.FinishReason,
		Usage: &model.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}

	return nil
}

// Info implements model.Model.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "openai",
		SupportsTools: true,
	}
}
