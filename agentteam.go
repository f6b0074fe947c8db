// Package agentteam provides a small façade over the runner, the session
// store and a reasoning engine for hierarchical agent teams.
//
// A Team owns one agent tree. Applications typically:
//  1. build the tree with agent.New (root, children, tools)
//  2. pick an engine (engine.NewRuleEngine or engine.NewModelEngine)
//  3. create sessions and run turns through the Team
//
// All defaults are in-memory and safe for local development and tests.
package agentteam

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentteam/agent"
	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/engine"
	"github.com/hupe1980/agentteam/logging"
	"github.com/hupe1980/agentteam/runner"
	"github.com/hupe1980/agentteam/session"
)

// Options configures a Team.
type Options struct {
	// AppName scopes the team's sessions.
	AppName string
	// SessionStore keeps conversations (defaults to an in-memory store).
	SessionStore core.SessionStore
	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
	// TracerProvider records turn spans (defaults to the global provider).
	TracerProvider trace.TracerProvider
	// OnEvent observes every event of every turn.
	OnEvent func(core.Event)
}

// Team binds an agent tree to an engine and a session store.
type Team struct {
	opts   Options
	runner *runner.Runner
}

// New creates a Team for the tree rooted at root, reasoning with eng.
func New(root *agent.Agent, eng engine.Engine, optFns ...func(o *Options)) *Team {
	opts := Options{
		AppName: runner.DefaultAppName,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.SessionStore == nil {
		opts.SessionStore = session.NewInMemoryStore()
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	r := runner.New(root, eng, func(o *runner.Options) {
		o.AppName = opts.AppName
		o.SessionStore = opts.SessionStore
		o.Logger = opts.Logger
		o.TracerProvider = opts.TracerProvider
		o.OnEvent = opts.OnEvent
	})

	return &Team{opts: opts, runner: r}
}

// Runner exposes the underlying runner.
func (t *Team) Runner() *runner.Runner { return t.runner }

// Root returns the root agent.
func (t *Team) Root() *agent.Agent { return t.runner.Root() }

// AppName returns the application name sessions are created under.
func (t *Team) AppName() string { return t.opts.AppName }

// CreateSession returns the session for (AppName, userID, sessionID),
// creating it if absent. Repeated calls return the same session.
func (t *Team) CreateSession(ctx context.Context, userID, sessionID string) (*core.Session, error) {
	sess, err := t.opts.SessionStore.Create(ctx, t.opts.AppName, userID, sessionID)
	if err != nil {
		return nil, err
	}

	t.opts.Logger.Debug("team.session.ready", "session", sess.Key().String())

	return sess, nil
}

// RunTurn runs one turn in sess and returns the answer text.
func (t *Team) RunTurn(ctx context.Context, sess *core.Session, utterance string) string {
	return t.runner.RunTurn(ctx, sess, utterance)
}

// Turn runs one turn in sess and returns its detailed result.
func (t *Team) Turn(ctx context.Context, sess *core.Session, utterance string) runner.TurnResult {
	return t.runner.Turn(ctx, sess, utterance)
}

// Ask runs one turn in the session identified by userID and sessionID,
// creating the session on first use.
func (t *Team) Ask(ctx context.Context, userID, sessionID, utterance string) (string, error) {
	sess, err := t.CreateSession(ctx, userID, sessionID)
	if err != nil {
		return "", err
	}

	return t.RunTurn(ctx, sess, utterance), nil
}
