package weatherteam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/engine"
)

func TestExtractName(t *testing.T) {
	tests := []struct {
		utterance string
		want      string
	}{
		{"Hi, I'm Alice", "Alice"},
		{"hello, my name is Bob!", "Bob"},
		{"Xin chào, tôi là Minh", "Minh"},
		{"hi, I'm fine", ""},
		{"hello", ""},
	}

	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractName(tt.utterance))
		})
	}
}

func TestExtractCity(t *testing.T) {
	known := DefaultSource().Cities()

	tests := []struct {
		name      string
		utterance string
		history   []core.Message
		want      string
	}{
		{name: "known city", utterance: "What's the weather in Hanoi?", want: "Hanoi"},
		{name: "diacritics", utterance: "Thời tiết ở Hà Nội thế nào?", want: "Hanoi"},
		{name: "split words", utterance: "weather in ha noi", want: "Hanoi"},
		{name: "earliest wins", utterance: "Tokyo or London?", want: "Tokyo"},
		{name: "what about", utterance: "What about London?", want: "London"},
		{name: "unknown city", utterance: "What's the weather in Atlantis?", want: "Atlantis"},
		{name: "multi word", utterance: "forecast for New York today", want: "New York"},
		{name: "lower case phrase", utterance: "is it sunny at the beach", want: ""},
		{
			name:      "from history",
			utterance: "And the forecast for tomorrow?",
			history: []core.Message{
				core.NewUserMessage("What's the weather in Tokyo?"),
				core.NewAgentMessage(RootAgentName, "🌧️ Tokyo: Light rain, 18°C"),
				core.NewUserMessage("And the forecast for tomorrow?"),
			},
			want: "Tokyo",
		},
		{
			name:      "lower case city overrides history",
			utterance: "And the weather in paris?",
			history: []core.Message{
				core.NewUserMessage("What's the weather in Tokyo?"),
				core.NewAgentMessage(RootAgentName, "🌧️ Tokyo: Light rain, 18°C"),
				core.NewUserMessage("And the weather in paris?"),
			},
			want: "paris",
		},
		{name: "lower case unknown city", utterance: "weather in atlantis", want: "atlantis"},
		{name: "nothing", utterance: "How's the weather?", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCity(tt.utterance, tt.history, known))
		})
	}
}

func TestRules_Routing(t *testing.T) {
	root, err := NewTeam()
	require.NoError(t, err)

	resolver := engine.NewResolver(Rules(nil))

	tests := []struct {
		utterance string
		kind      engine.DecisionKind
		target    string
	}{
		{"Hello!", engine.DecisionDelegate, GreetingAgentName},
		{"Xin chào", engine.DecisionDelegate, GreetingAgentName},
		{"Hello, what's the weather?", engine.DecisionDelegate, GreetingAgentName},
		{"Thanks, bye!", engine.DecisionDelegate, FarewellAgentName},
		{"Tạm biệt", engine.DecisionDelegate, FarewellAgentName},
		{"What's the weather in Hanoi?", engine.DecisionUseTool, ""},
		{"What about London?", engine.DecisionUseTool, ""},
		{"Tell me a joke", engine.DecisionDecline, ""},
	}

	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			d := resolver.Resolve(root, tt.utterance, 0)

			assert.Equal(t, tt.kind, d.Kind)
			if tt.target != "" {
				require.NotNil(t, d.Target)
				assert.Equal(t, tt.target, d.Target.Name())
			}
			if tt.kind == engine.DecisionUseTool {
				assert.Equal(t, GetWeatherToolName, d.Tool.Name())
			}
		})
	}
}
