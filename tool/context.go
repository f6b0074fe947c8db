package tool

import (
	"context"

	"github.com/hupe1980/agentteam/logging"
)

// Context is the constrained surface handed to a tool invocation. It exposes
// correlation identifiers and a logger but no way to mutate the session or
// the agent tree. The only signal a tool may raise is a transfer request,
// which the engine interprets after the call returns.
type Context struct {
	ctx          context.Context
	agentName    string
	invocationID string
	callID       string
	logger       logging.Logger

	transferTo string
}

// NewContext constructs a tool context for a single call.
func NewContext(ctx context.Context, agentName, invocationID, callID string, logger logging.Logger) *Context {
	if ctx == nil {
		ctx = context.Background()
	}

	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	return &Context{
		ctx:          ctx,
		agentName:    agentName,
		invocationID: invocationID,
		callID:       callID,
		logger:       logger,
	}
}

// Context returns the context.Context of the turn that triggered the call.
func (tc *Context) Context() context.Context { return tc.ctx }

// AgentName returns the name of the agent owning the invoked tool.
func (tc *Context) AgentName() string { return tc.agentName }

// InvocationID returns the identifier of the current turn.
func (tc *Context) InvocationID() string { return tc.invocationID }

// CallID returns the identifier of this particular call.
func (tc *Context) CallID() string { return tc.callID }

// Logger returns the logger associated with the tool invocation.
func (tc *Context) Logger() logging.Logger { return tc.logger }

// RequestTransfer asks the engine to hand control to another agent.
func (tc *Context) RequestTransfer(agentName string) {
	tc.transferTo = agentName
	tc.logger.Info("tool.transfer.request", "from_agent", tc.agentName, "to_agent", agentName, "call_id", tc.callID)
}

// TransferTarget returns the agent requested through RequestTransfer, if any.
func (tc *Context) TransferTarget() (string, bool) {
	return tc.transferTo, tc.transferTo != ""
}
