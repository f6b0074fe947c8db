package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrSessionNotFound is returned by SessionStore.Get for unknown identities.
var ErrSessionNotFound = errors.New("session not found")

// SessionKey is the identity of a conversation.
type SessionKey struct {
	AppName   string `json:"app_name"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// String renders the key as app/user/session.
func (k SessionKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.AppName, k.UserID, k.SessionID)
}

// SessionView is the read-only projection of a session handed to reasoning
// engines. Engines may read history but never append to it.
type SessionView interface {
	Key() SessionKey
	History() []Message
}

// Session is a conversational container holding an ordered message history.
// It is safe for concurrent access.
//
// Contract:
//   - History returns a defensive copy to avoid external mutation
//   - Append updates the Updated timestamp
//   - AcquireTurn hands out the turn slot in arrival order, one holder at a time
type Session struct {
	key     SessionKey
	created time.Time

	mu      sync.RWMutex
	updated time.Time
	history []Message

	turns turnQueue
}

// NewSession creates an empty session for key.
func NewSession(key SessionKey) *Session {
	now := time.Now().UTC()
	return &Session{key: key, created: now, updated: now, history: []Message{}}
}

// Key returns the identity of the session.
func (s *Session) Key() SessionKey { return s.key }

// ID returns the session id component of the key.
func (s *Session) ID() string { return s.key.SessionID }

// Created returns the creation time.
func (s *Session) Created() time.Time { return s.created }

// Updated returns the time of the last append.
func (s *Session) Updated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated
}

// Append adds messages to the end of the history.
func (s *Session) Append(msgs ...Message) {
	if len(msgs) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msgs...)
	s.updated = time.Now().UTC()
}

// History returns a defensive copy of the message history.
func (s *Session) History() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// Len returns the number of messages in the history.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// AcquireTurn blocks until the caller holds the session's turn slot. Slots
// are granted in the order AcquireTurn was called. The returned release
// function must be called exactly once; extra calls are ignored. If ctx is
// cancelled while waiting the caller leaves the queue and ctx.Err() is returned.
func (s *Session) AcquireTurn(ctx context.Context) (func(), error) {
	return s.turns.acquire(ctx)
}

// SessionStore creates and looks up sessions by identity.
type SessionStore interface {
	// Create returns the session for the identity, creating it if absent.
	// An existing session is returned unchanged. An empty sessionID requests
	// a generated one.
	Create(ctx context.Context, appName, userID, sessionID string) (*Session, error)

	// Get returns the session or ErrSessionNotFound.
	Get(ctx context.Context, appName, userID, sessionID string) (*Session, error)

	// List returns the sessions of a user ordered by session id.
	List(ctx context.Context, appName, userID string) ([]*Session, error)
}
