package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/hupe1980/agentteam/agent"
	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/model"
	"github.com/hupe1980/agentteam/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelEngine_TextAnswer(t *testing.T) {
	m := model.NewMockModel("mock", "mock").AddText("Hi there!")
	e := NewModelEngine(m)
	msg := core.NewUserMessage("hello")

	events := collect(e.StartTurn(context.Background(), testTeam(t), newTestSession(msg), msg))

	require.Len(t, events, 1)
	assert.True(t, events[0].IsFinal())
	assert.Equal(t, "weather_root", events[0].Author)
	assert.Equal(t, "Hi there!", events[0].Text())

	calls := m.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Instructions, "greeting_agent: Handles greetings")

	var names []string
	for _, d := range calls[0].Tools {
		names = append(names, d.Function.Name)
	}
	assert.Equal(t, []string{"get_weather", tool.TransferToAgentName}, names)

	require.Len(t, calls[0].Contents, 1)
	assert.Equal(t, "hello", calls[0].Contents[0].Text())
}

func TestModelEngine_ToolLoop(t *testing.T) {
	m := model.NewMockModel("mock", "mock").
		AddFunctionCall(core.FunctionCall{ID: "c1", Name: "get_weather", Arguments: `{"city":"London"}`}).
		AddText("It's cloudy in London.")
	e := NewModelEngine(m)
	msg := core.NewUserMessage("weather in London?")

	events := collect(e.StartTurn(context.Background(), testTeam(t), newTestSession(msg), msg))

	assert.Equal(t, []core.ActionKind{core.ActionToolCall, core.ActionToolResult}, actionKinds(events))
	assert.Equal(t, "It's cloudy in London.", last(events).Text())

	res := events[1].Action.Result
	require.NotNil(t, res)
	assert.True(t, res.IsSuccess())

	calls := m.Calls()
	require.Len(t, calls, 2)

	second := calls[1].Contents
	require.Len(t, second, 3)
	assert.Equal(t, core.ContentRoleAssistant, second[1].Role)
	assert.Equal(t, core.ContentRoleTool, second[2].Role)

	responses := second[2].FunctionResponses()
	require.Len(t, responses, 1)
	assert.Equal(t, "c1", responses[0].ID)
	assert.Equal(t, "success", responses[0].Response["status"])
}

func TestModelEngine_Transfer(t *testing.T) {
	m := model.NewMockModel("mock", "mock").
		AddFunctionCall(core.FunctionCall{ID: "t1", Name: tool.TransferToAgentName, Arguments: `{"agent":"greeting_agent"}`}).
		AddFunctionCall(core.FunctionCall{ID: "h1", Name: "say_hello", Arguments: `{"name":"Ana"}`}).
		AddText("Hello, Ana!")
	e := NewModelEngine(m)
	msg := core.NewUserMessage("hi, I'm Ana")

	events := collect(e.StartTurn(context.Background(), testTeam(t), newTestSession(msg), msg))

	assert.Equal(t, []core.ActionKind{
		core.ActionToolCall, core.ActionToolResult, core.ActionTransfer,
		core.ActionToolCall, core.ActionToolResult,
	}, actionKinds(events))

	assert.Equal(t, "greeting_agent", events[2].Action.Agent)

	final := last(events)
	assert.Equal(t, "greeting_agent", final.Author)
	assert.Equal(t, "Hello, Ana!", final.Text())

	calls := m.Calls()
	require.Len(t, calls, 3)

	// The child is at the delegation limit and has no children.
	for _, d := range calls[1].Tools {
		assert.NotEqual(t, tool.TransferToAgentName, d.Function.Name)
	}
}

func TestModelEngine_TransferToUnknownAgent(t *testing.T) {
	m := model.NewMockModel("mock", "mock").
		AddFunctionCall(core.FunctionCall{ID: "t1", Name: tool.TransferToAgentName, Arguments: `{"agent":"pirate_agent"}`}).
		AddText("I can't do that.")
	e := NewModelEngine(m)
	msg := core.NewUserMessage("arr")

	events := collect(e.StartTurn(context.Background(), testTeam(t), newTestSession(msg), msg))

	assert.Equal(t, []core.ActionKind{core.ActionToolCall, core.ActionToolResult}, actionKinds(events))

	res := events[1].Action.Result
	require.NotNil(t, res)
	assert.False(t, res.IsSuccess())
	assert.Contains(t, res.Message, "pirate_agent")
	assert.Equal(t, "weather_root", last(events).Author)
}

func TestModelEngine_UnknownToolAndBadArgs(t *testing.T) {
	m := model.NewMockModel("mock", "mock").
		AddFunctionCall(
			core.FunctionCall{ID: "a", Name: "launch_rocket"},
			core.FunctionCall{ID: "b", Name: "get_weather", Arguments: `{broken`},
		).
		AddText("Sorry.")
	e := NewModelEngine(m)
	msg := core.NewUserMessage("x")

	events := collect(e.StartTurn(context.Background(), testTeam(t), newTestSession(msg), msg))

	require.Len(t, events, 5)
	assert.Contains(t, events[2].Action.Result.Message, "launch_rocket not found")
	assert.Contains(t, events[3].Action.Result.Message, "invalid function arguments")
}

func TestModelEngine_ParallelToolsKeepOrder(t *testing.T) {
	var running, peak atomic.Int32

	slow := func(name string) tool.Tool {
		return tool.NewFunctionTool(name, name, nil, func(_ *tool.Context, _ map[string]any) (tool.Result, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			defer running.Add(-1)
			return tool.Report(name), nil
		})
	}

	root, err := agent.New("multi", agent.WithTools(slow("one"), slow("two"), slow("three")))
	require.NoError(t, err)

	m := model.NewMockModel("mock", "mock").
		AddFunctionCall(
			core.FunctionCall{ID: "1", Name: "one"},
			core.FunctionCall{ID: "2", Name: "two"},
			core.FunctionCall{ID: "3", Name: "three"},
		).
		AddText("done")
	e := NewModelEngine(m, func(o *ModelEngineOptions) { o.MaxParallelTools = 1 })
	msg := core.NewUserMessage("go")

	events := collect(e.StartTurn(context.Background(), root, newTestSession(msg), msg))

	var results []string
	for _, ev := range events {
		if ev.Action != nil && ev.Action.Kind == core.ActionToolResult {
			results = append(results, ev.Action.Result.Text())
		}
	}

	assert.Equal(t, []string{"one", "two", "three"}, results)
	assert.Equal(t, int32(1), peak.Load())
}

func TestModelEngine_ModelErrorEscalates(t *testing.T) {
	m := model.NewMockModel("mock", "mock").AddError(errors.New("internal timeout"))
	e := NewModelEngine(m)
	msg := core.NewUserMessage("hello")

	events := collect(e.StartTurn(context.Background(), testTeam(t), newTestSession(msg), msg))

	final := last(events)
	require.True(t, final.IsEscalated())
	require.NotNil(t, final.ErrorMessage)
	assert.Contains(t, *final.ErrorMessage, "internal timeout")
}

func TestModelEngine_StepLimit(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	for range 3 {
		m.AddFunctionCall(core.FunctionCall{Name: "get_weather", Arguments: `{"city":"London"}`})
	}

	e := NewModelEngine(m, func(o *ModelEngineOptions) { o.MaxSteps = 2 })
	msg := core.NewUserMessage("loop")

	events := collect(e.StartTurn(context.Background(), testTeam(t), newTestSession(msg), msg))

	final := last(events)
	require.True(t, final.IsEscalated())
	assert.Contains(t, *final.ErrorMessage, "exceeded max steps")
	assert.Len(t, m.Calls(), 2)
}

func TestModelEngine_EmptyAnswerHasNoTerminal(t *testing.T) {
	m := model.NewMockModel("mock", "mock").AddText("   ")
	e := NewModelEngine(m)
	msg := core.NewUserMessage("hello")

	events := collect(e.StartTurn(context.Background(), testTeam(t), newTestSession(msg), msg))
	assert.Empty(t, events)
}

func TestModelEngine_StreamingEmitsReasoning(t *testing.T) {
	m := model.NewMockModel("mock", "mock").AddText("ok")
	e := NewModelEngine(m, func(o *ModelEngineOptions) { o.Stream = true })
	msg := core.NewUserMessage("hello")

	events := collect(e.StartTurn(context.Background(), testTeam(t), newTestSession(msg), msg))

	assert.Equal(t, []core.ActionKind{core.ActionReasoning, core.ActionReasoning}, actionKinds(events))
	assert.Equal(t, "ok", last(events).Text())
}

func TestModelEngine_HistoryBound(t *testing.T) {
	root, err := agent.New("bounded", func(o *agent.Options) { o.MaxHistoryMessages = 2 })
	require.NoError(t, err)

	msg := core.NewUserMessage("third")
	sess := newTestSession(
		core.NewUserMessage("first"),
		core.NewAgentMessage("bounded", "second"),
		msg,
	)

	m := model.NewMockModel("mock", "mock").AddText("ok")
	collect(NewModelEngine(m).StartTurn(context.Background(), root, sess, msg))

	contents := m.Calls()[0].Contents
	require.Len(t, contents, 2)
	assert.Equal(t, "second", contents[0].Text())
	assert.Equal(t, core.ContentRoleAssistant, contents[0].Role)
	assert.Equal(t, "third", contents[1].Text())
}

func TestModelEngine_ModelCallbacks(t *testing.T) {
	var before, after int

	cm := NewCallbackManager(
		NewFunctionCallback(CallbackBeforeModel, func(context.Context, *CallbackContext) error { before++; return nil }),
		NewFunctionCallback(CallbackAfterModel, func(context.Context, *CallbackContext) error { after++; return nil }),
	)

	m := model.NewMockModel("mock", "mock").
		AddFunctionCall(core.FunctionCall{ID: "c1", Name: "get_weather", Arguments: `{"city":"London"}`}).
		AddText("done")
	e := NewModelEngine(m, func(o *ModelEngineOptions) { o.Callbacks = cm })
	msg := core.NewUserMessage("weather")

	collect(e.StartTurn(context.Background(), testTeam(t), newTestSession(msg), msg))

	assert.Equal(t, 2, before)
	assert.Equal(t, 2, after)
}
