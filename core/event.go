package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/agentteam/tool"
)

// EventKind classifies an Event yielded by a reasoning engine.
type EventKind int

const (
	// EventIntermediate is progress that does not end the turn.
	EventIntermediate EventKind = iota
	// EventFinal carries the answer for the turn.
	EventFinal
	// EventEscalated signals the engine gave up; an optional error message is attached.
	EventEscalated
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventIntermediate:
		return "intermediate"
	case EventFinal:
		return "final"
	case EventEscalated:
		return "escalated"
	default:
		return "unknown"
	}
}

// ActionKind classifies the decision recorded on an intermediate event.
type ActionKind string

const (
	// ActionTransfer records a delegation from one agent to a child.
	ActionTransfer ActionKind = "transfer"
	// ActionToolCall records a tool invocation request.
	ActionToolCall ActionKind = "tool_call"
	// ActionToolResult records the outcome of a tool invocation.
	ActionToolResult ActionKind = "tool_result"
	// ActionDecline records that no agent could service the utterance.
	ActionDecline ActionKind = "decline"
	// ActionReasoning records free-form engine output (e.g. partial model text).
	ActionReasoning ActionKind = "reasoning"
)

// Action is the decision trace attached to intermediate events. Decisions are
// data so that callers can assert on them without parsing text.
type Action struct {
	Kind   ActionKind     `json:"kind"`
	From   string         `json:"from,omitempty"`   // Deciding agent
	Agent  string         `json:"agent,omitempty"`  // Transfer target
	Tool   string         `json:"tool,omitempty"`   // Tool name for call/result
	CallID string         `json:"call_id,omitempty"`
	Args   map[string]any `json:"args,omitempty"`
	Result *tool.Result   `json:"result,omitempty"`
	Text   string         `json:"text,omitempty"`
}

// Event is the primary unit emitted by reasoning engines and consumed by the
// runner. After emission it should be treated as immutable.
//
// Final events carry Content; escalated events may carry ErrorMessage;
// intermediate events may carry an Action.
type Event struct {
	ID           string    `json:"id"`
	InvocationID string    `json:"invocation_id"`
	Author       string    `json:"author"`
	Kind         EventKind `json:"kind"`
	Content      *Message  `json:"content,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	Action       *Action   `json:"action,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewEvent creates a bare intermediate event authored by 'author' bound to an invocation.
// Prefer the helper constructors for the terminal kinds.
func NewEvent(invocationID, author string) Event {
	return Event{
		ID:           NewID(),
		InvocationID: invocationID,
		Author:       author,
		Kind:         EventIntermediate,
		Timestamp:    time.Now().UTC(),
	}
}

// NewActionEvent creates an intermediate event carrying a decision trace.
func NewActionEvent(invocationID, author string, action Action) Event {
	e := NewEvent(invocationID, author)
	if action.From == "" {
		action.From = author
	}
	e.Action = &action
	return e
}

// NewFinalEvent creates a final event whose content is an agent message.
func NewFinalEvent(invocationID, author, text string) Event {
	e := NewEvent(invocationID, author)
	e.Kind = EventFinal
	msg := NewAgentMessage(author, text)
	e.Content = &msg
	return e
}

// NewEscalatedEvent creates an escalated event. An empty message leaves
// ErrorMessage nil.
func NewEscalatedEvent(invocationID, author, message string) Event {
	e := NewEvent(invocationID, author)
	e.Kind = EventEscalated
	if message != "" {
		e.ErrorMessage = &message
	}
	return e
}

// NewID generates a new unique identifier for events and invocations.
func NewID() string { return uuid.NewString() }

// IsTerminal reports whether the event ends a turn.
func (e Event) IsTerminal() bool { return e.Kind == EventFinal || e.Kind == EventEscalated }

// IsFinal reports whether the event carries the turn's answer.
func (e Event) IsFinal() bool { return e.Kind == EventFinal }

// IsEscalated reports whether the engine gave up on the turn.
func (e Event) IsEscalated() bool { return e.Kind == EventEscalated }

// Text returns the text of the carried content, if any.
func (e Event) Text() string {
	if e.Content == nil {
		return ""
	}
	return e.Content.Text
}

// UnixSeconds returns the timestamp as fractional seconds since Unix epoch.
func (e Event) UnixSeconds() float64 { return float64(e.Timestamp.UnixNano()) / 1e9 }
