package testutil

import (
	"context"
	"iter"
	"sync"

	"github.com/hupe1980/agentteam/agent"
	"github.com/hupe1980/agentteam/core"
)

// ScriptedEngine is an engine.Engine that replays one script of events per
// turn, in call order. Once the scripts run out every turn yields nothing.
// It records the messages it was started with.
type ScriptedEngine struct {
	mu       sync.Mutex
	scripts  [][]core.Event
	messages []core.Message
}

// NewScriptedEngine creates an engine replaying scripts.
func NewScriptedEngine(scripts ...[]core.Event) *ScriptedEngine {
	return &ScriptedEngine{scripts: scripts}
}

// Then appends the script of the next turn (chainable).
func (e *ScriptedEngine) Then(events ...core.Event) *ScriptedEngine {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.scripts = append(e.scripts, events)

	return e
}

// Messages returns the user messages the engine has been started with.
func (e *ScriptedEngine) Messages() []core.Message {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]core.Message(nil), e.messages...)
}

// StartTurn implements engine.Engine.
func (e *ScriptedEngine) StartTurn(ctx context.Context, _ *agent.Agent, _ core.SessionView, msg core.Message) iter.Seq[core.Event] {
	e.mu.Lock()
	e.messages = append(e.messages, msg)

	var script []core.Event
	if len(e.scripts) > 0 {
		script, e.scripts = e.scripts[0], e.scripts[1:]
	}
	e.mu.Unlock()

	return func(yield func(core.Event) bool) {
		for _, ev := range script {
			if ctx.Err() != nil || !yield(ev) {
				return
			}
		}
	}
}
