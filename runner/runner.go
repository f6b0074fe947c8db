package runner

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentteam/agent"
	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/engine"
	"github.com/hupe1980/agentteam/logging"
	"github.com/hupe1980/agentteam/session"
)

const tracerName = "github.com/hupe1980/agentteam/runner"

// Default user-facing texts.
const (
	DefaultNoResponseText    = "⚠️ Agent did not produce a response."
	DefaultEscalationPrefix  = "⚠️ Agent escalated: "
	DefaultEscalationMessage = "No message."
	DefaultAppName           = "agentteam"
)

// Outcome classifies how a turn ended.
type Outcome string

const (
	// OutcomeFinal means the engine produced a final answer.
	OutcomeFinal Outcome = "final"
	// OutcomeEscalated means the engine escalated the turn.
	OutcomeEscalated Outcome = "escalated"
	// OutcomeNoResponse means the sequence ended without a terminal event
	// (including cancellation).
	OutcomeNoResponse Outcome = "no_response"
)

// Session is the part of a session the runner drives: a readable history
// plus appends and the per-session turn slot. *core.Session implements it.
type Session interface {
	core.SessionView
	Append(msgs ...core.Message)
	AcquireTurn(ctx context.Context) (func(), error)
}

// TurnResult is the detailed outcome of one turn.
type TurnResult struct {
	// Text is the user-facing answer; never empty.
	Text    string
	Outcome Outcome
	// Author is the agent that produced the terminal event (empty for
	// OutcomeNoResponse).
	Author string
	// Intermediate counts the non-terminal events consumed.
	Intermediate int
	// Actions is the decision trace carried by intermediate events.
	Actions []core.Action
}

// Options holds dependency and configuration overrides passed to New().
type Options struct {
	// AppName scopes sessions resolved by Run.
	AppName string
	// SessionStore backs Run. Defaults to an in-memory store.
	SessionStore core.SessionStore
	// Logger provides structured logging. Defaults to NoOp.
	Logger logging.Logger
	// TracerProvider creates the turn spans. Defaults to the global provider.
	TracerProvider trace.TracerProvider
	// NoResponseText is returned when no terminal event was produced.
	NoResponseText string
	// EscalationPrefix is prepended to escalation messages.
	EscalationPrefix string
	// DefaultEscalationMessage replaces an absent escalation message.
	DefaultEscalationMessage string
	// OnEvent observes every consumed event (progress reporting).
	OnEvent func(core.Event)
}

// Runner drives one turn at a time per session: it appends the user message,
// pulls events from the engine until the first terminal one and records the
// agent's answer. Public methods are safe for concurrent use.
type Runner struct {
	root   *agent.Agent
	engine engine.Engine
	opts   Options
	tracer trace.Tracer
}

// New constructs a Runner for the agent tree rooted at root.
func New(root *agent.Agent, eng engine.Engine, optFns ...func(o *Options)) *Runner {
	opts := Options{
		AppName:                  DefaultAppName,
		NoResponseText:           DefaultNoResponseText,
		EscalationPrefix:         DefaultEscalationPrefix,
		DefaultEscalationMessage: DefaultEscalationMessage,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.SessionStore == nil {
		opts.SessionStore = session.NewInMemoryStore()
	}

	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Runner{
		root:   root,
		engine: eng,
		opts:   opts,
		tracer: opts.TracerProvider.Tracer(tracerName),
	}
}

// Root returns the root agent.
func (r *Runner) Root() *agent.Agent { return r.root }

// SessionStore returns the store used by Run.
func (r *Runner) SessionStore() core.SessionStore { return r.opts.SessionStore }

// AppName returns the application name used by Run.
func (r *Runner) AppName() string { return r.opts.AppName }

// Run resolves the session (appName, userID, sessionID) from the store and
// runs one turn. The error is reserved for unknown sessions.
func (r *Runner) Run(ctx context.Context, userID, sessionID, utterance string) (string, error) {
	sess, err := r.opts.SessionStore.Get(ctx, r.opts.AppName, userID, sessionID)
	if err != nil {
		return "", fmt.Errorf("run turn: %w", err)
	}

	return r.RunTurn(ctx, sess, utterance), nil
}

// RunTurn runs one turn and returns the user-facing text.
func (r *Runner) RunTurn(ctx context.Context, sess Session, utterance string) string {
	return r.Turn(ctx, sess, utterance).Text
}

// Turn runs one turn and returns its detailed result.
//
// Turns of one session are serialized in call order. The user message is
// appended before the engine starts; the agent message only when a final
// event arrives. A turn cancelled while waiting for its slot appends nothing.
func (r *Runner) Turn(ctx context.Context, sess Session, utterance string) TurnResult {
	key := sess.Key()

	ctx, span := r.tracer.Start(ctx, "runner.turn", trace.WithAttributes(
		attribute.String("agentteam.app", key.AppName),
		attribute.String("agentteam.user", key.UserID),
		attribute.String("agentteam.session", key.SessionID),
		attribute.String("agentteam.root_agent", r.root.Name()),
	))
	defer span.End()

	release, err := sess.AcquireTurn(ctx)
	if err != nil {
		r.opts.Logger.Warn("runner.turn.abandoned", "session", key.String(), "error", err.Error())

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return r.finish(span, TurnResult{Text: r.opts.NoResponseText, Outcome: OutcomeNoResponse})
	}
	defer release()

	msg := core.NewUserMessage(utterance)
	sess.Append(msg)

	r.opts.Logger.Debug("runner.turn.start", "session", key.String(), "agent", r.root.Name())

	res := r.consume(ctx, r.engine.StartTurn(ctx, r.root, sess, msg))

	if res.Outcome == OutcomeFinal {
		sess.Append(core.NewAgentMessage(res.Author, res.Text))
	}

	if err := ctx.Err(); err != nil && res.Outcome == OutcomeNoResponse {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	r.opts.Logger.Info("runner.turn.done",
		"session", key.String(),
		"outcome", string(res.Outcome),
		"author", res.Author,
		"intermediate", res.Intermediate,
	)

	return r.finish(span, res)
}

// consume pulls events one at a time until the first terminal event. A final
// event without text ends the turn without a response.
func (r *Runner) consume(ctx context.Context, seq iter.Seq[core.Event]) TurnResult {
	next, stop := iter.Pull(seq)
	defer stop()

	res := TurnResult{Text: r.opts.NoResponseText, Outcome: OutcomeNoResponse}

	for {
		if ctx.Err() != nil {
			return res
		}

		ev, ok := next()
		if !ok {
			return res
		}

		if r.opts.OnEvent != nil {
			r.opts.OnEvent(ev)
		}

		switch ev.Kind {
		case core.EventFinal:
			text := ev.Text()
			if strings.TrimSpace(text) == "" {
				r.opts.Logger.Warn("runner.turn.empty_final", "author", ev.Author)
				return res
			}

			res.Outcome = OutcomeFinal
			res.Author = ev.Author
			res.Text = text

			return res
		case core.EventEscalated:
			msg := r.opts.DefaultEscalationMessage
			if ev.ErrorMessage != nil && *ev.ErrorMessage != "" {
				msg = *ev.ErrorMessage
			}

			res.Outcome = OutcomeEscalated
			res.Author = ev.Author
			res.Text = r.opts.EscalationPrefix + msg

			return res
		default:
			res.Intermediate++
			if ev.Action != nil {
				res.Actions = append(res.Actions, *ev.Action)
			}
		}
	}
}

func (r *Runner) finish(span trace.Span, res TurnResult) TurnResult {
	span.SetAttributes(
		attribute.String("agentteam.outcome", string(res.Outcome)),
		attribute.String("agentteam.author", res.Author),
		attribute.Int("agentteam.intermediate_events", res.Intermediate),
	)

	if res.Outcome == OutcomeEscalated {
		span.SetStatus(codes.Error, res.Text)
	}

	return res
}
