package testutil

import (
	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/tool"
)

// EventBuilder provides a fluent helper for constructing events in tests.
// Example:
//
//	ev := NewEventBuilder().Author("greeting_agent").Final("Hello!").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type EventBuilder struct {
	author       string
	invocationID string
	id           string
	kind         core.EventKind
	text         string
	errorMessage *string
	action       *core.Action
}

// NewEventBuilder creates a builder for an intermediate event by "agent".
func NewEventBuilder() *EventBuilder { return &EventBuilder{author: "agent"} }

// Author sets the author name for the event (chainable).
func (b *EventBuilder) Author(a string) *EventBuilder { b.author = a; return b }

// Invocation sets the invocation ID associated with the event (chainable).
func (b *EventBuilder) Invocation(id string) *EventBuilder { b.invocationID = id; return b }

// ID overrides the auto-generated event ID (chainable).
func (b *EventBuilder) ID(id string) *EventBuilder { b.id = id; return b }

// Final turns the event into a final answer (chainable).
func (b *EventBuilder) Final(text string) *EventBuilder {
	b.kind = core.EventFinal
	b.text = text
	return b
}

// Escalate turns the event into an escalation; an empty message leaves
// ErrorMessage nil (chainable).
func (b *EventBuilder) Escalate(msg string) *EventBuilder {
	b.kind = core.EventEscalated
	b.errorMessage = nil
	if msg != "" {
		b.errorMessage = &msg
	}
	return b
}

// Transfer records a delegation to the named agent (chainable).
func (b *EventBuilder) Transfer(to string) *EventBuilder {
	return b.Action(core.Action{Kind: core.ActionTransfer, Agent: to})
}

// ToolCall records a tool invocation request (chainable).
func (b *EventBuilder) ToolCall(name string, args map[string]any) *EventBuilder {
	return b.Action(core.Action{Kind: core.ActionToolCall, Tool: name, Args: args})
}

// ToolResult records the outcome of a tool invocation (chainable).
func (b *EventBuilder) ToolResult(name string, res tool.Result) *EventBuilder {
	return b.Action(core.Action{Kind: core.ActionToolResult, Tool: name, Result: &res})
}

// Reasoning records free-form engine output (chainable).
func (b *EventBuilder) Reasoning(text string) *EventBuilder {
	return b.Action(core.Action{Kind: core.ActionReasoning, Text: text})
}

// Action attaches a custom decision trace (chainable).
func (b *EventBuilder) Action(a core.Action) *EventBuilder {
	b.kind = core.EventIntermediate
	b.action = &a
	return b
}

// Build constructs the core.Event value.
func (b *EventBuilder) Build() core.Event {
	var ev core.Event

	switch b.kind {
	case core.EventFinal:
		ev = core.NewFinalEvent(b.invocationID, b.author, b.text)
	case core.EventEscalated:
		ev = core.NewEscalatedEvent(b.invocationID, b.author, "")
		ev.ErrorMessage = b.errorMessage
	default:
		if b.action != nil {
			ev = core.NewActionEvent(b.invocationID, b.author, *b.action)
		} else {
			ev = core.NewEvent(b.invocationID, b.author)
		}
	}

	if b.id != "" {
		ev.ID = b.id
	}

	return ev
}
