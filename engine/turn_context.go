package engine

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/agentteam/agent"
	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/logging"
	"github.com/hupe1980/agentteam/tool"
)

// errConsumerGone is returned internally once the consumer stopped pulling.
var errConsumerGone = errors.New("event consumer stopped")

// TurnContext carries the per-turn execution scope shared by the engines:
//   - the ambient cancellation Context
//   - identifiers (InvocationID, session key)
//   - the root agent, a read-only session view and the user message
//   - the step limiter, logger and callbacks
//   - the yield function of the event sequence
//
// A TurnContext lives on the goroutine driving the sequence and must not be
// shared.
type TurnContext struct {
	Context      context.Context
	InvocationID string
	Root         *agent.Agent
	Session      core.SessionView
	Message      core.Message
	Limiter      *core.StepLimiter

	logger    logging.Logger
	callbacks *CallbackManager
	yield     func(core.Event) bool
	done      bool
	emitted   int
}

func newTurnContext(
	ctx context.Context,
	root *agent.Agent,
	sess core.SessionView,
	msg core.Message,
	maxSteps int,
	logger logging.Logger,
	callbacks *CallbackManager,
	yield func(core.Event) bool,
) *TurnContext {
	return &TurnContext{
		Context:      ctx,
		InvocationID: core.NewID(),
		Root:         root,
		Session:      sess,
		Message:      msg,
		Limiter:      core.NewStepLimiter(maxSteps),
		logger:       logging.OrNoOp(logger),
		callbacks:    callbacks,
		yield:        yield,
	}
}

// Logger returns the logger of the turn.
func (tc *TurnContext) Logger() logging.Logger { return tc.logger }

// sessionKey returns the key of the session view or the zero key.
func (tc *TurnContext) sessionKey() core.SessionKey {
	if tc.Session == nil {
		return core.SessionKey{}
	}
	return tc.Session.Key()
}

// Emit hands ev to the consumer. It returns errConsumerGone once the consumer
// stopped pulling or a terminal event was already emitted, and ctx.Err() if
// the turn was cancelled. Callers must stop producing on any error.
func (tc *TurnContext) Emit(ev core.Event) error {
	if tc.done {
		return errConsumerGone
	}

	if err := tc.Context.Err(); err != nil {
		tc.done = true
		return err
	}

	ev.InvocationID = tc.InvocationID

	if !tc.yield(ev) {
		tc.done = true
		return errConsumerGone
	}

	tc.emitted++

	if ev.IsTerminal() {
		tc.done = true
	}

	return nil
}

// EmitAction emits an intermediate decision trace event.
func (tc *TurnContext) EmitAction(author string, action core.Action) error {
	return tc.Emit(core.NewActionEvent(tc.InvocationID, author, action))
}

// Final emits the final answer authored by author.
func (tc *TurnContext) Final(author, text string) error {
	tc.logger.Debug("engine.turn.final", "invocation", tc.InvocationID, "agent", author)
	return tc.Emit(core.NewFinalEvent(tc.InvocationID, author, text))
}

// Escalate runs the error callbacks and emits an escalated event.
func (tc *TurnContext) Escalate(author string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	tc.logger.Warn("engine.turn.escalated", "invocation", tc.InvocationID, "agent", author, "error", msg)

	tc.notify(CallbackOnError, &CallbackContext{
		InvocationID: tc.InvocationID,
		Session:      tc.sessionKey(),
		AgentName:    author,
		Error:        cause,
	})

	return tc.Emit(core.NewEscalatedEvent(tc.InvocationID, author, msg))
}

// notify runs callbacks that cannot change the outcome of the turn; their
// errors are only logged.
func (tc *TurnContext) notify(typ CallbackType, cc *CallbackContext) {
	if err := tc.callbacks.ExecuteCallbacks(tc.Context, typ, cc); err != nil {
		tc.logger.Warn("engine.callback.error",
			"invocation", tc.InvocationID,
			"callback", string(typ),
			"agent", cc.AgentName,
			"error", err.Error(),
		)
	}
}

// EnterAgent runs the before-agent callbacks for a.
func (tc *TurnContext) EnterAgent(a *agent.Agent) error {
	return tc.callbacks.ExecuteCallbacks(tc.Context, CallbackBeforeAgent, &CallbackContext{
		InvocationID: tc.InvocationID,
		Session:      tc.sessionKey(),
		AgentName:    a.Name(),
	})
}

// CallTool invokes t on behalf of owner with the tool callbacks around it.
// It never fails: callback vetoes and panics become Failure results. The
// returned Context exposes signals raised by the tool (transfer requests).
func (tc *TurnContext) CallTool(owner *agent.Agent, t tool.Tool, callID string, args map[string]any) (tool.Result, *tool.Context) {
	if callID == "" {
		callID = core.NewID()
	}

	toolCtx := tool.NewContext(tc.Context, owner.Name(), tc.InvocationID, callID, tc.logger)

	cc := &CallbackContext{
		InvocationID: tc.InvocationID,
		Session:      tc.sessionKey(),
		AgentName:    owner.Name(),
		ToolName:     t.Name(),
		Args:         args,
	}

	if err := tc.callbacks.ExecuteCallbacks(tc.Context, CallbackBeforeTool, cc); err != nil {
		tc.logger.Warn("engine.tool.vetoed", "agent", owner.Name(), "tool", t.Name(), "error", err.Error())

		res := tool.Failure(err.Error())
		return res, toolCtx
	}

	start := time.Now()
	res := safeCall(t, toolCtx, args)

	tc.logger.Info("engine.tool.executed",
		"agent", owner.Name(),
		"tool", t.Name(),
		"call_id", callID,
		"status", string(res.Status),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	cc.Result = &res
	tc.notify(CallbackAfterTool, cc)

	return res, toolCtx
}

// safeCall shields the engine from tools that panic outside FunctionTool.
func safeCall(t tool.Tool, toolCtx *tool.Context, args map[string]any) (res tool.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = tool.Failuref("tool %s panicked: %v", t.Name(), r)
		}
	}()

	if args == nil {
		args = map[string]any{}
	}

	return t.Call(toolCtx, args)
}
