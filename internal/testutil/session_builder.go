package testutil

import (
	"github.com/hupe1980/agentteam/core"
)

// SessionBuilder helps construct sessions with fluent chaining for tests.
// Example:
//
//	sess := NewSessionBuilder("sess-1").User("hello").Agent("greeting_agent", "Hello!").Build()
type SessionBuilder struct {
	key  core.SessionKey
	msgs []core.Message
}

// NewSessionBuilder creates a builder for session id under app "app" and
// user "user".
func NewSessionBuilder(id string) *SessionBuilder {
	return &SessionBuilder{key: core.SessionKey{AppName: "app", UserID: "user", SessionID: id}}
}

// Key overrides the whole session key (chainable).
func (b *SessionBuilder) Key(appName, userID, sessionID string) *SessionBuilder {
	b.key = core.SessionKey{AppName: appName, UserID: userID, SessionID: sessionID}
	return b
}

// User appends a user message (chainable).
func (b *SessionBuilder) User(text string) *SessionBuilder {
	b.msgs = append(b.msgs, core.NewUserMessage(text))
	return b
}

// Agent appends an agent message (chainable).
func (b *SessionBuilder) Agent(author, text string) *SessionBuilder {
	b.msgs = append(b.msgs, core.NewAgentMessage(author, text))
	return b
}

// Build returns a *core.Session holding the recorded history.
func (b *SessionBuilder) Build() *core.Session {
	s := core.NewSession(b.key)
	s.Append(b.msgs...)

	return s
}
