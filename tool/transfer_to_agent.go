package tool

// TransferToAgentName is the reserved name of the transfer tool.
const TransferToAgentName = "transfer_to_agent"

// transferToAgentTool requests orchestration transfer to a named child agent.
type transferToAgentTool struct{}

// NewTransferToAgentTool constructs the transfer tool instance. Model backed
// engines expose it next to an agent's own tools whenever the agent has children.
func NewTransferToAgentTool() Tool { return &transferToAgentTool{} }

func (t *transferToAgentTool) Name() string { return TransferToAgentName }

func (t *transferToAgentTool) Description() string {
	return "Request transfer of control to another sub-agent by name. Use when another agent is better suited."
}

func (t *transferToAgentTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent": map[string]any{"type": "string", "description": "Target agent name"},
		},
		"required": []string{"agent"},
	}
}

func (t *transferToAgentTool) Call(tc *Context, args map[string]any) Result {
	raw, ok := args["agent"]
	if !ok {
		return Failure("missing required field 'agent'")
	}

	agentName, ok := raw.(string)
	if !ok || agentName == "" {
		return Failure("field 'agent' must be non-empty string")
	}

	tc.RequestTransfer(agentName)

	return Success(map[string]any{"transferred": true, "agent": agentName})
}
