package engine

import (
	"context"
	"iter"

	"github.com/hupe1980/agentteam/agent"
	"github.com/hupe1980/agentteam/core"
)

// Engine is the reasoning engine contract consumed by the runner.
//
// StartTurn returns a lazy, finite sequence of events for one user message.
// Nothing runs until the caller starts pulling. The sequence:
//   - yields zero or more intermediate events (decision trace, progress)
//   - yields at most one terminal event (final or escalated) and then stops
//   - stops early, without a terminal event, when ctx is cancelled or the
//     consumer stops pulling
//
// The session view is read-only: engines never append to history. The
// runner has already appended msg to the session before StartTurn is called.
//
// Implementations must tolerate concurrent StartTurn calls for distinct
// sessions; a single sequence has exactly one consumer.
type Engine interface {
	StartTurn(ctx context.Context, root *agent.Agent, sess core.SessionView, msg core.Message) iter.Seq[core.Event]
}

// Func is a functional adapter to allow ordinary functions to be used as Engines.
type Func func(ctx context.Context, root *agent.Agent, sess core.SessionView, msg core.Message) iter.Seq[core.Event]

// StartTurn implements Engine.
func (f Func) StartTurn(ctx context.Context, root *agent.Agent, sess core.SessionView, msg core.Message) iter.Seq[core.Event] {
	return f(ctx, root, sess, msg)
}

// Static returns an Engine that replays the given events for every turn.
// It is useful for wiring tests and demos.
func Static(events ...core.Event) Engine {
	return Func(func(ctx context.Context, _ *agent.Agent, _ core.SessionView, _ core.Message) iter.Seq[core.Event] {
		return func(yield func(core.Event) bool) {
			for _, ev := range events {
				if ctx.Err() != nil {
					return
				}
				if !yield(ev) {
					return
				}
				if ev.IsTerminal() {
					return
				}
			}
		}
	})
}
