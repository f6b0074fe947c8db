package runner

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/hupe1980/agentteam/agent"
	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/engine"
	"github.com/hupe1980/agentteam/internal/testutil"
	"github.com/hupe1980/agentteam/session"
)

func newRoot(t *testing.T) *agent.Agent {
	t.Helper()

	root, err := agent.New("root")
	require.NoError(t, err)

	return root
}

func newSession(t *testing.T) *core.Session {
	t.Helper()

	store := session.NewInMemoryStore()
	sess, err := store.Create(context.Background(), "app", "user", "s1")
	require.NoError(t, err)

	return sess
}

func intermediate(n int) []core.Event {
	out := make([]core.Event, 0, n)
	for i := range n {
		out = append(out, core.NewActionEvent("inv", "root", core.Action{Kind: core.ActionReasoning, Text: fmt.Sprint(i)}))
	}
	return out
}

func TestRunTurn_Final(t *testing.T) {
	events := append(intermediate(5), core.NewFinalEvent("inv", "greeting_agent", "Hello!"))
	r := New(newRoot(t), engine.Static(events...))
	sess := newSession(t)

	res := r.Turn(context.Background(), sess, "hello")

	assert.Equal(t, "Hello!", res.Text)
	assert.Equal(t, OutcomeFinal, res.Outcome)
	assert.Equal(t, "greeting_agent", res.Author)
	assert.Equal(t, 5, res.Intermediate)
	assert.Len(t, res.Actions, 5)

	history := sess.History()
	require.Len(t, history, 2)
	assert.Equal(t, core.RoleUser, history[0].Role)
	assert.Equal(t, "hello", history[0].Text)
	assert.Equal(t, core.RoleAgent, history[1].Role)
	assert.Equal(t, "Hello!", history[1].Text)
	assert.Equal(t, "greeting_agent", history[1].Author)
}

func TestRunTurn_StopsAtFirstTerminal(t *testing.T) {
	pulled := 0

	eng := engine.Func(func(context.Context, *agent.Agent, core.SessionView, core.Message) iter.Seq[core.Event] {
		return func(yield func(core.Event) bool) {
			for _, ev := range []core.Event{
				core.NewFinalEvent("inv", "root", "first"),
				core.NewFinalEvent("inv", "root", "second"),
			} {
				pulled++
				if !yield(ev) {
					return
				}
			}
		}
	})

	sess := newSession(t)
	text := New(newRoot(t), eng).RunTurn(context.Background(), sess, "x")

	assert.Equal(t, "first", text)
	assert.Equal(t, 1, pulled)
	assert.Equal(t, 2, sess.Len())
}

func TestRunTurn_EscalatedWithMessage(t *testing.T) {
	r := New(newRoot(t), engine.Static(core.NewEscalatedEvent("inv", "root", "internal timeout")))
	sess := newSession(t)

	res := r.Turn(context.Background(), sess, "hello")

	assert.Equal(t, "⚠️ Agent escalated: internal timeout", res.Text)
	assert.Contains(t, res.Text, "internal timeout")
	assert.Equal(t, OutcomeEscalated, res.Outcome)
	assert.Equal(t, 1, sess.Len())
}

func TestRunTurn_EscalatedWithoutMessage(t *testing.T) {
	r := New(newRoot(t), engine.Static(core.NewEscalatedEvent("inv", "root", "")))

	text := r.RunTurn(context.Background(), newSession(t), "hello")

	assert.Equal(t, "⚠️ Agent escalated: No message.", text)
}

func TestRunTurn_NoTerminalEvent(t *testing.T) {
	for name, eng := range map[string]engine.Engine{
		"empty":             engine.Static(),
		"only intermediate": engine.Static(intermediate(3)...),
	} {
		t.Run(name, func(t *testing.T) {
			sess := newSession(t)

			res := New(newRoot(t), eng).Turn(context.Background(), sess, "hello")

			assert.Equal(t, DefaultNoResponseText, res.Text)
			assert.Equal(t, OutcomeNoResponse, res.Outcome)

			history := sess.History()
			require.Len(t, history, 1)
			assert.Equal(t, core.RoleUser, history[0].Role)
		})
	}
}

func TestRunTurn_FinalWithoutText(t *testing.T) {
	for name, ev := range map[string]core.Event{
		"no content": {Kind: core.EventFinal, Author: "root"},
		"blank text": core.NewFinalEvent("inv", "root", "  "),
	} {
		t.Run(name, func(t *testing.T) {
			sess := newSession(t)

			res := New(newRoot(t), engine.Static(ev)).Turn(context.Background(), sess, "hello")

			assert.Equal(t, DefaultNoResponseText, res.Text)
			assert.Equal(t, OutcomeNoResponse, res.Outcome)
			assert.Empty(t, res.Author)

			history := sess.History()
			require.Len(t, history, 1)
			assert.Equal(t, "hello", history[0].Text)
		})
	}
}

func TestRunTurn_CustomTexts(t *testing.T) {
	r := New(newRoot(t), engine.Static(), func(o *Options) {
		o.NoResponseText = "nothing"
	})

	assert.Equal(t, "nothing", r.RunTurn(context.Background(), newSession(t), "hello"))
}

func TestRunTurn_CancelledMidTurn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := append(intermediate(1), core.NewFinalEvent("inv", "root", "too late"))

	r := New(newRoot(t), engine.Static(events...), func(o *Options) {
		o.OnEvent = func(core.Event) { cancel() }
	})
	sess := newSession(t)

	res := r.Turn(ctx, sess, "hello")

	assert.Equal(t, OutcomeNoResponse, res.Outcome)
	assert.Equal(t, DefaultNoResponseText, res.Text)
	assert.Equal(t, 1, sess.Len())
}

func TestRunTurn_CancelledBeforeSlot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sess := newSession(t)
	res := New(newRoot(t), engine.Static(core.NewFinalEvent("inv", "root", "x"))).Turn(ctx, sess, "hello")

	assert.Equal(t, OutcomeNoResponse, res.Outcome)
	assert.Equal(t, 0, sess.Len())
}

func TestRunTurn_SerializesTurnsPerSession(t *testing.T) {
	unblock := make(chan struct{})

	eng := engine.Func(func(ctx context.Context, root *agent.Agent, _ core.SessionView, msg core.Message) iter.Seq[core.Event] {
		return func(yield func(core.Event) bool) {
			if msg.Text == "first" {
				<-unblock
			}
			yield(core.NewFinalEvent("inv", root.Name(), "re: "+msg.Text))
		}
	})

	r := New(newRoot(t), eng)
	sess := newSession(t)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		r.RunTurn(context.Background(), sess, "first")
	}()

	require.Eventually(t, func() bool { return sess.Len() == 1 }, timeout, tick)

	wg.Add(1)
	go func() {
		defer wg.Done()
		r.RunTurn(context.Background(), sess, "second")
	}()

	// The second turn must not append its user message while the first runs.
	assert.Never(t, func() bool { return sess.Len() > 1 }, shortWait, tick)

	close(unblock)
	wg.Wait()

	var texts []string
	for _, m := range sess.History() {
		texts = append(texts, m.Text)
	}

	assert.Equal(t, []string{"first", "re: first", "second", "re: second"}, texts)
}

func TestRunTurn_DistinctSessionsConcurrently(t *testing.T) {
	store := session.NewInMemoryStore()
	r := New(newRoot(t), engine.Func(func(_ context.Context, root *agent.Agent, _ core.SessionView, msg core.Message) iter.Seq[core.Event] {
		return func(yield func(core.Event) bool) {
			yield(core.NewFinalEvent("inv", root.Name(), "echo "+msg.Text))
		}
	}), func(o *Options) { o.SessionStore = store })

	var wg sync.WaitGroup

	for i := range 10 {
		sess, err := store.Create(context.Background(), r.AppName(), "user", fmt.Sprintf("s%d", i))
		require.NoError(t, err)

		wg.Add(1)
		go func() {
			defer wg.Done()
			r.RunTurn(context.Background(), sess, "hi")
		}()
	}

	wg.Wait()

	sessions, err := store.List(context.Background(), r.AppName(), "user")
	require.NoError(t, err)
	require.Len(t, sessions, 10)

	for _, s := range sessions {
		assert.Equal(t, 2, s.Len())
	}
}

func TestRun(t *testing.T) {
	store := session.NewInMemoryStore()
	r := New(newRoot(t), engine.Static(core.NewFinalEvent("inv", "root", "ok")), func(o *Options) {
		o.AppName = "weather"
		o.SessionStore = store
	})

	_, err := store.Create(context.Background(), "weather", "u1", "s1")
	require.NoError(t, err)

	text, err := r.Run(context.Background(), "u1", "s1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)

	_, err = r.Run(context.Background(), "u1", "missing", "hello")
	require.True(t, errors.Is(err, core.ErrSessionNotFound))
}

func TestRunTurn_Span(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	r := New(newRoot(t), engine.Static(core.NewEscalatedEvent("inv", "root", "internal timeout")), func(o *Options) {
		o.TracerProvider = tp
	})

	r.RunTurn(context.Background(), newSession(t), "hello")

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "runner.turn", spans[0].Name())

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}

	assert.Equal(t, "escalated", attrs["agentteam.outcome"].AsString())
	assert.Equal(t, "s1", attrs["agentteam.session"].AsString())
}

const (
	timeout   = 2 * time.Second
	shortWait = 50 * time.Millisecond
	tick      = 5 * time.Millisecond
)

func TestRunTurn_ScriptedConversation(t *testing.T) {
	eng := testutil.NewScriptedEngine().
		Then(
			testutil.NewEventBuilder().Author("root").Transfer("greeting_agent").Build(),
			testutil.NewEventBuilder().Author("greeting_agent").Final("Hello!").Build(),
		).
		Then(testutil.NewEventBuilder().Author("root").Escalate("internal timeout").Build()).
		Then(testutil.NewEventBuilder().Reasoning("thinking").Build())

	sess := testutil.NewSessionBuilder("s1").User("earlier").Agent("root", "reply").Build()
	r := New(newRoot(t), eng)

	first := r.Turn(context.Background(), sess, "hello")
	assert.Equal(t, "Hello!", first.Text)
	assert.Equal(t, []core.Action{{Kind: core.ActionTransfer, From: "root", Agent: "greeting_agent"}}, first.Actions)

	assert.Equal(t, "⚠️ Agent escalated: internal timeout", r.RunTurn(context.Background(), sess, "weather?"))
	assert.Equal(t, DefaultNoResponseText, r.RunTurn(context.Background(), sess, "anyone?"))

	// 2 seeded + (user, agent) + user + user
	assert.Equal(t, 6, sess.Len())

	seen := eng.Messages()
	require.Len(t, seen, 3)
	assert.Equal(t, []string{"hello", "weather?", "anyone?"}, []string{seen[0].Text, seen[1].Text, seen[2].Text})
}
