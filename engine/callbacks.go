package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/logging"
	"github.com/hupe1980/agentteam/tool"
)

// CallbackType defines the specific lifecycle points where callbacks can be executed.
//
// Available callback types:
//   - BeforeAgent: when an agent takes over the turn (root or delegation target)
//   - BeforeModel/AfterModel: around model calls (ModelEngine only)
//   - BeforeTool/AfterTool: around individual tool executions
//   - OnError: when a turn is escalated
//
// Callbacks run inline. Tool callbacks may run concurrently when a model
// requests several tools at once.
type CallbackType string

const (
	// CallbackBeforeAgent is triggered when an agent takes over a turn.
	// Returning an error escalates the turn.
	CallbackBeforeAgent CallbackType = "before_agent"

	// CallbackBeforeModel is triggered before a model call.
	// Returning an error escalates the turn.
	CallbackBeforeModel CallbackType = "before_model"

	// CallbackAfterModel is triggered after a model call returned.
	CallbackAfterModel CallbackType = "after_model"

	// CallbackBeforeTool is triggered before tool execution.
	// Returning an error skips the tool and records a Failure result instead.
	CallbackBeforeTool CallbackType = "before_tool"

	// CallbackAfterTool is triggered after tool execution with the result.
	CallbackAfterTool CallbackType = "after_tool"

	// CallbackOnError is triggered when a turn is escalated.
	CallbackOnError CallbackType = "on_error"
)

// CallbackContext carries the information a callback may inspect.
type CallbackContext struct {
	CallbackType CallbackType
	InvocationID string
	Session      core.SessionKey
	AgentName    string

	// Tool callbacks only.
	ToolName string
	Args     map[string]any
	Result   *tool.Result

	// Error is set for CallbackOnError.
	Error error

	// Metadata provides extensible storage for custom callback data.
	Metadata map[string]any
}

// Callback defines the interface for turn lifecycle hooks.
//
// Implementations should be fast (they run inline) and must not retain the
// CallbackContext after returning.
type Callback interface {
	// Type returns the callback type this implementation handles.
	Type() CallbackType

	// Execute performs the callback logic with the provided context.
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
// Example:
//
//	audit := engine.NewFunctionCallback(engine.CallbackBeforeTool,
//	    func(ctx context.Context, cc *engine.CallbackContext) error {
//	        log.Printf("%s calls %s", cc.AgentName, cc.ToolName)
//	        return nil
//	    })
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType {
	return c.callbackType
}

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager is a registry of callbacks by type.
//
// Callbacks are executed in registration order; the first error stops the
// chain and is returned. Registration and execution are safe for concurrent use.
// A nil *CallbackManager executes nothing.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates an empty callback manager.
func NewCallbackManager(callbacks ...Callback) *CallbackManager {
	cm := &CallbackManager{
		callbacks: make(map[CallbackType][]Callback),
	}

	for _, cb := range callbacks {
		cm.RegisterCallback(cb)
	}

	return cm
}

// RegisterCallback adds a callback to the manager for its type.
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	callbackType := callback.Type()
	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
}

// ExecuteCallbacks executes all registered callbacks for the specified type.
func (cm *CallbackManager) ExecuteCallbacks(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) error {
	if cm == nil {
		return nil
	}

	cm.mu.RLock()
	callbacks := append([]Callback(nil), cm.callbacks[callbackType]...)
	cm.mu.RUnlock()

	callbackCtx.CallbackType = callbackType

	for _, callback := range callbacks {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			return err
		}
	}

	return nil
}

// LoggingCallback writes one debug line per lifecycle point it is registered for.
type LoggingCallback struct {
	callbackType CallbackType
	logger       logging.Logger
}

// NewLoggingCallback creates a new logging callback.
func NewLoggingCallback(callbackType CallbackType, logger logging.Logger) *LoggingCallback {
	return &LoggingCallback{
		callbackType: callbackType,
		logger:       logging.OrNoOp(logger),
	}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType {
	return c.callbackType
}

// Execute logs the lifecycle point with agent and tool details.
func (c *LoggingCallback) Execute(_ context.Context, callbackCtx *CallbackContext) error {
	args := []any{"agent", callbackCtx.AgentName, "invocation", callbackCtx.InvocationID}
	if callbackCtx.ToolName != "" {
		args = append(args, "tool", callbackCtx.ToolName)
	}
	if callbackCtx.Result != nil {
		args = append(args, "status", string(callbackCtx.Result.Status))
	}
	if callbackCtx.Error != nil {
		args = append(args, "error", callbackCtx.Error.Error())
	}

	c.logger.Debug(fmt.Sprintf("engine.callback.%s", c.callbackType), args...)

	return nil
}
