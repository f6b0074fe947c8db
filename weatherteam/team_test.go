package weatherteam

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentteam"
	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/engine"
	"github.com/hupe1980/agentteam/model"
	"github.com/hupe1980/agentteam/tool"
)

func TestNewTeam(t *testing.T) {
	root, err := NewTeam(func(o *Options) { o.MaxHistoryMessages = 6 })
	require.NoError(t, err)

	assert.Equal(t, RootAgentName, root.Name())
	assert.Equal(t, []string{GreetingAgentName, FarewellAgentName}, root.SubAgentNames())
	assert.Equal(t, []string{GetWeatherToolName}, root.ToolNames())
	assert.Equal(t, 6, root.MaxHistoryMessages())

	greeter, ok := root.SubAgent(GreetingAgentName)
	require.True(t, ok)
	assert.True(t, greeter.HasTool(SayHelloToolName))
	assert.False(t, greeter.HasTool(GetWeatherToolName))

	farewell, ok := root.SubAgent(FarewellAgentName)
	require.True(t, ok)
	assert.True(t, farewell.HasTool(SayGoodbyeToolName))
}

func TestDemoScript(t *testing.T) {
	root, err := NewTeam()
	require.NoError(t, err)

	team := agentteam.New(root, NewRuleEngine(nil), func(o *agentteam.Options) { o.AppName = "Weather Agent Demo" })

	ctx := context.Background()

	sess, err := team.CreateSession(ctx, "user_1", "session_001")
	require.NoError(t, err)

	script := []struct {
		utterance string
		want      string
		author    string
	}{
		{"Hello!", "Hello!", GreetingAgentName},
		{"What's the weather in Hanoi?", "☀️ Hanoi: Sunny, 25°C", RootAgentName},
		{"What about London?", "☁️ London: Cloudy, 15°C", RootAgentName},
		{"Thanks, bye!", "Goodbye! Have a nice day!", FarewellAgentName},
	}

	for _, step := range script {
		res := team.Turn(ctx, sess, step.utterance)

		assert.Equal(t, step.want, res.Text, step.utterance)
		assert.Equal(t, step.author, res.Author, step.utterance)
	}

	assert.Equal(t, 2*len(script), sess.Len())
}

func TestRuleTeam_Turns(t *testing.T) {
	root, err := NewTeam()
	require.NoError(t, err)

	team := agentteam.New(root, NewRuleEngine(nil))
	ctx := context.Background()

	t.Run("hello", func(t *testing.T) {
		sess, err := team.CreateSession(ctx, "u", "hello")
		require.NoError(t, err)

		assert.Equal(t, "Hello!", team.RunTurn(ctx, sess, "hello"))

		history := sess.History()
		require.Len(t, history, 2)
		assert.Equal(t, core.RoleUser, history[0].Role)
		assert.Equal(t, "hello", history[0].Text)
		assert.Equal(t, core.RoleAgent, history[1].Role)
		assert.Equal(t, "Hello!", history[1].Text)
	})

	t.Run("greeting wins over weather", func(t *testing.T) {
		sess, err := team.CreateSession(ctx, "u", "tie")
		require.NoError(t, err)

		res := team.Turn(ctx, sess, "Hello, what's the weather?")

		assert.Equal(t, "Hello!", res.Text)
		for _, a := range res.Actions {
			assert.NotEqual(t, GetWeatherToolName, a.Tool)
		}
	})

	t.Run("greeting with name", func(t *testing.T) {
		text, err := team.Ask(ctx, "u", "name", "Hi, I'm Alice")
		require.NoError(t, err)
		assert.Equal(t, "Hello, Alice!", text)
	})

	t.Run("unknown city", func(t *testing.T) {
		text, err := team.Ask(ctx, "u", "atlantis", "What's the weather in Atlantis?")
		require.NoError(t, err)
		assert.Equal(t, "Sorry, no weather information for 'Atlantis'.", text)
	})

	t.Run("asks for the city", func(t *testing.T) {
		text, err := team.Ask(ctx, "u", "nocity", "How's the weather?")
		require.NoError(t, err)
		assert.Equal(t, ErrNoCity.Error(), text)
	})

	t.Run("follow-up uses earlier city", func(t *testing.T) {
		_, err := team.Ask(ctx, "u", "followup", "Weather in Tokyo please")
		require.NoError(t, err)

		text, err := team.Ask(ctx, "u", "followup", "And the forecast for tomorrow?")
		require.NoError(t, err)
		assert.Equal(t, "🌧️ Tokyo: Light rain, 18°C", text)
	})

	t.Run("new city replaces earlier city", func(t *testing.T) {
		_, err := team.Ask(ctx, "u", "switch", "What's the weather in Tokyo?")
		require.NoError(t, err)

		text, err := team.Ask(ctx, "u", "switch", "And the weather in paris?")
		require.NoError(t, err)
		assert.Equal(t, "Sorry, no weather information for 'paris'.", text)
	})

	t.Run("decline", func(t *testing.T) {
		text, err := team.Ask(ctx, "u", "decline", "Tell me a joke")
		require.NoError(t, err)
		assert.Equal(t, DeclineText, text)
	})
}

func TestModelTeam_Transfer(t *testing.T) {
	root, err := NewTeam()
	require.NoError(t, err)

	m := model.NewMockModel("mock-model", "mock").
		AddFunctionCall(core.FunctionCall{ID: "t1", Name: tool.TransferToAgentName, Arguments: `{"agent":"greeting_agent"}`}).
		AddFunctionCall(core.FunctionCall{ID: "h1", Name: SayHelloToolName, Arguments: `{"name":"Minh"}`}).
		AddText("Hello, Minh!")

	team := agentteam.New(root, engine.NewModelEngine(m))

	res := team.Turn(context.Background(), mustSession(t, team), "Xin chào, tôi là Minh")

	assert.Equal(t, "Hello, Minh!", res.Text)
	assert.Equal(t, GreetingAgentName, res.Author)

	calls := m.Calls()
	require.Len(t, calls, 3)
	assert.Contains(t, calls[0].Instructions, "greeting_agent")
	assert.Contains(t, calls[1].Instructions, "say_hello")
}

func mustSession(t *testing.T, team *agentteam.Team) *core.Session {
	t.Helper()

	sess, err := team.CreateSession(context.Background(), "u", "s")
	require.NoError(t, err)

	return sess
}
