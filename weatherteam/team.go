package weatherteam

import (
	"fmt"

	"github.com/hupe1980/agentteam/agent"
)

// Agent names of the team.
const (
	RootAgentName     = "weather_assistant_team"
	GreetingAgentName = "greeting_agent"
	FarewellAgentName = "farewell_agent"
)

const (
	rootInstruction = `You are the main Weather Agent coordinating a team.
Your main responsibility is providing weather information. Use 'get_weather' ONLY for weather requests.
If the tool fails, tell the user politely. If it succeeds, present the report clearly.

Sub-agents:
1. 'greeting_agent' handles greetings like 'Hi' or 'Hello'. Delegate to it.
2. 'farewell_agent' handles farewells like 'Bye' or 'See you'. Delegate to it.

Analyse each query:
- Greeting? Delegate to greeting_agent.
- Farewell? Delegate to farewell_agent.
- Weather? Handle it yourself with get_weather.
- Anything else? Answer politely that you cannot help with it.`

	greetingInstruction = "Your ONLY task is to greet the user in a friendly way. " +
		"Use the 'say_hello' tool. If the user provides their name, pass it to the tool. " +
		"Do not do anything else."

	farewellInstruction = "Your ONLY task is to say goodbye politely. " +
		"Use the 'say_goodbye' tool when the user says bye or goodbye. " +
		"Do not do anything else."
)

// Options configures the team.
type Options struct {
	// Source backs get_weather. Defaults to DefaultSource().
	Source WeatherSource
	// MaxHistoryMessages bounds the history model engines send per agent.
	MaxHistoryMessages int
}

// NewTeam builds the agent tree: weather_assistant_team (get_weather) with
// the children greeting_agent (say_hello) and farewell_agent (say_goodbye),
// in that order.
func NewTeam(optFns ...func(o *Options)) (*agent.Agent, error) {
	opts := defaultOptions(optFns...)

	withHistory := func(o *agent.Options) { o.MaxHistoryMessages = opts.MaxHistoryMessages }

	greeter, err := agent.New(GreetingAgentName,
		agent.WithDescription("Handles simple greetings and hellos using the 'say_hello' tool."),
		agent.WithInstruction(greetingInstruction),
		agent.WithTools(NewHelloTool()),
		withHistory,
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", GreetingAgentName, err)
	}

	farewell, err := agent.New(FarewellAgentName,
		agent.WithDescription("Handles simple farewells and goodbyes using the 'say_goodbye' tool."),
		agent.WithInstruction(farewellInstruction),
		agent.WithTools(NewGoodbyeTool()),
		withHistory,
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", FarewellAgentName, err)
	}

	root, err := agent.New(RootAgentName,
		agent.WithDescription("Coordinator: answers weather requests and delegates greetings and farewells."),
		agent.WithInstruction(rootInstruction),
		agent.WithTools(NewWeatherTool(opts.Source)),
		agent.WithSubAgents(greeter, farewell),
		withHistory,
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", RootAgentName, err)
	}

	return root, nil
}

func defaultOptions(optFns ...func(o *Options)) Options {
	var opts Options

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Source == nil {
		opts.Source = DefaultSource()
	}

	return opts
}
