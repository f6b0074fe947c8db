package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/agentteam/core"
)

// ErrNoResponse is returned by Collect when a model closed its stream
// without a final response.
var ErrNoResponse = errors.New("model returned no final response")

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// NewToolDefinition builds a function tool definition.
func NewToolDefinition(name, description string, parameters map[string]any) ToolDefinition {
	return ToolDefinition{
		Type: "function",
		Function: FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// Request captures the normalized model input produced by the engine.
type Request struct {
	Instructions string           `json:"instructions"`
	Contents     []core.Content   `json:"contents"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a streaming model.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "gemini", "mock"
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by the model engine to drive generation.
//
// Generate returns a response channel and an error channel. Implementations
// close both when done; at most one error is sent. The last response on a
// successful stream has Partial=false.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// Collect drains a Generate call and returns the final (non-partial)
// response. Partial chunks are passed to onPartial when it is non-nil.
func Collect(ctx context.Context, m Model, req Request, onPartial func(Response)) (Response, error) {
	respCh, errCh := m.Generate(ctx, req)

	var (
		final    Response
		hasFinal bool
	)

	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}

			if resp.Partial {
				if onPartial != nil {
					onPartial(resp)
				}
				continue
			}

			final, hasFinal = resp, true
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}

			if err != nil {
				return Response{}, err
			}
		}
	}

	if !hasFinal {
		return Response{}, ErrNoResponse
	}

	return final, nil
}

// MockModel is a scripted in-memory Model useful for tests and offline demos.
//
// Each Generate call consumes the next scripted step. When the script is
// exhausted the model answers with an echo of the last user text.
type MockModel struct {
	info Info

	mu     sync.Mutex
	script []mockStep
	calls  []Request
}

type mockStep struct {
	resp Response
	err  error
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
	}
}

// AddResponse appends a scripted response.
func (m *MockModel) AddResponse(resp Response) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.script = append(m.script, mockStep{resp: resp})

	return m
}

// AddText appends a scripted plain text answer.
func (m *MockModel) AddText(text string) *MockModel {
	return m.AddResponse(Response{
		Content: core.Content{
			Role:  core.ContentRoleAssistant,
			Parts: []core.Part{core.TextPart{Text: text}},
		},
		FinishReason: "stop",
	})
}

// AddFunctionCall appends a scripted response requesting the given calls.
func (m *MockModel) AddFunctionCall(calls ...core.FunctionCall) *MockModel {
	parts := make([]core.Part, 0, len(calls))
	for _, c := range calls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: c})
	}

	return m.AddResponse(Response{
		Content:      core.Content{Role: core.ContentRoleAssistant, Parts: parts},
		FinishReason: "tool_calls",
	})
}

// AddError appends a scripted failure.
func (m *MockModel) AddError(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.script = append(m.script, mockStep{err: err})

	return m
}

// Calls returns the requests received so far.
func (m *MockModel) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Request, len(m.calls))
	copy(out, m.calls)

	return out
}

func (m *MockModel) next(req Request) mockStep {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)

	if len(m.script) > 0 {
		step := m.script[0]
		m.script = m.script[1:]

		return step
	}

	input := LastUserText(req.Contents)

	return mockStep{resp: Response{
		Content: core.Content{
			Role:  core.ContentRoleAssistant,
			Parts: []core.Part{core.TextPart{Text: fmt.Sprintf("Mock response to: %s", input)}},
		},
		FinishReason: "stop",
	}}
}

// Generate implements Model. Streaming requests emit the text of the
// scripted response rune by rune before the final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	step := m.next(req)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if step.err != nil {
			errCh <- step.err
			return
		}

		if req.Stream {
			for _, r := range step.resp.Content.Text() {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{
					Partial: true,
					Content: core.Content{
						Role:  core.ContentRoleAssistant,
						Parts: []core.Part{core.TextPart{Text: string(r)}},
					},
				}:
				}
			}
		}

		final := step.resp
		final.Partial = false

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- final:
		}
	}()

	return respCh, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
