package session

import (
	"context"
	"fmt"
	"sort"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/hupe1980/agentteam/core"
)

// InMemoryStore is a volatile SessionStore implementation storing sessions
// in a process local map. It is safe for concurrent access and suited for
// tests and demo processes. Sessions are never evicted.
//
// Unlike snapshot based stores it hands out the live *core.Session so the
// runner's appends and the session's turn sequencing are shared by every
// caller holding the same identity.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[core.SessionKey]*core.Session
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[core.SessionKey]*core.Session)}
}

// Create returns the session for the identity, creating it when absent.
// Creating an identity that already exists returns the existing session with
// its history untouched. An empty sessionID gets a generated id.
func (s *InMemoryStore) Create(ctx context.Context, appName, userID, sessionID string) (*core.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if sessionID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("generate session id: %w", err)
		}
		sessionID = id
	}

	key := core.SessionKey{AppName: appName, UserID: userID, SessionID: sessionID}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[key]; ok {
		return sess, nil
	}

	sess := core.NewSession(key)
	s.sessions[key] = sess

	return sess, nil
}

// Get returns an existing session or core.ErrSessionNotFound.
func (s *InMemoryStore) Get(ctx context.Context, appName, userID, sessionID string) (*core.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := core.SessionKey{AppName: appName, UserID: userID, SessionID: sessionID}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if sess, ok := s.sessions[key]; ok {
		return sess, nil
	}

	return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, key)
}

// List returns all sessions of a user, ordered by session id.
func (s *InMemoryStore) List(ctx context.Context, appName, userID string) ([]*core.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]*core.Session, 0)
	for key, sess := range s.sessions {
		if key.AppName == appName && key.UserID == userID {
			out = append(out, sess)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })

	return out, nil
}

// Len returns the number of stored sessions.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
