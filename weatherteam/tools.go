package weatherteam

import (
	"strings"

	"github.com/hupe1980/agentteam/tool"
)

// Tool names.
const (
	GetWeatherToolName = "get_weather"
	SayHelloToolName   = "say_hello"
	SayGoodbyeToolName = "say_goodbye"
)

// HelloArgs are the arguments of say_hello.
type HelloArgs struct {
	Name string `json:"name,omitempty" jsonschema:"description=Name of the person to greet"`
}

// NewHelloTool creates say_hello: "Hello!" or "Hello, <name>!".
func NewHelloTool() tool.Tool {
	return tool.NewFunctionToolFromStruct(
		SayHelloToolName,
		"Provides a simple, friendly greeting, addressing the user by name when known.",
		HelloArgs{},
		func(_ *tool.Context, args map[string]any) (tool.Result, error) {
			if name, _ := args["name"].(string); strings.TrimSpace(name) != "" {
				return tool.Report("Hello, " + strings.TrimSpace(name) + "!"), nil
			}

			return tool.Report("Hello!"), nil
		},
	)
}

// NewGoodbyeTool creates say_goodbye.
func NewGoodbyeTool() tool.Tool {
	return tool.NewFunctionTool(
		SayGoodbyeToolName,
		"Provides a simple farewell message to conclude the conversation.",
		nil,
		func(_ *tool.Context, _ map[string]any) (tool.Result, error) {
			return tool.Report("Goodbye! Have a nice day!"), nil
		},
	)
}
