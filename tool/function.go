package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentteam/internal/util"
)

// Func is the signature of a plain Go function exposed through FunctionTool.
// Returning an error (or a *ToolError) produces a Failure result.
type Func func(tc *Context, args map[string]any) (Result, error)

// FunctionTool is a generic adapter that exposes a plain Go function as a Tool.
//
// Responsibilities:
//   - Holds the JSON schema for the accepted arguments
//   - Validates model or engine supplied arguments before execution
//   - Normalizes every failure into a Failure result with a ToolError code:
//     VALIDATION_ERROR  -> schema / argument mismatch
//     EXECUTION_ERROR   -> the function returned an error
//     PANIC             -> the function panicked
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use by multiple goroutines.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          Func
}

// NewFunctionTool constructs a FunctionTool from an explicit schema and function.
//
// Example:
//
//	sumTool := tool.NewFunctionTool(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  func(tc *tool.Context, args map[string]any) (tool.Result, error) {
//	    return tool.Success(map[string]any{"sum": args["a"].(float64) + args["b"].(float64)}), nil
//	  },
//	)
func NewFunctionTool(name, description string, parameters map[string]any, fn Func) *FunctionTool {
	if parameters == nil {
		parameters = map[string]any{"type": "object", "properties": map[string]any{}}
	}

	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewFunctionToolFromStruct derives the parameter schema from an argument struct.
//
// Example:
//
//	type WeatherArgs struct {
//	  City string `json:"city" jsonschema:"description=Name of the city"`
//	}
//
//	weather := tool.NewFunctionToolFromStruct("get_weather", "Look up the weather", WeatherArgs{}, fn)
func NewFunctionToolFromStruct(name, description string, structType any, fn Func) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(structType), fn)
}

// Name returns the unique tool name.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates args then invokes the wrapped function.
//
// Logging Fields:
//
//	tool: tool name
//	call_id: call identifier (correlates engine decision & tool execution)
//	duration_ms: execution time in milliseconds
func (t *FunctionTool) Call(tc *Context, args map[string]any) (res Result) {
	if tc == nil {
		tc = NewContext(context.Background(), "", "", "", nil)
	}

	logger := tc.Logger()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "call_id", tc.CallID())

	if err := util.ValidateParameters(args, t.parameters); err != nil {
		logger.Warn("tool.call.validation_failed", "tool", t.name, "error", err.Error())

		return t.failure(&ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Details: err,
		})
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("tool.call.panic", "tool", t.name, "panic", fmt.Sprint(r))

			res = t.failure(&ToolError{Tool: t.name, Message: fmt.Sprint(r), Code: CodePanic})
		}
	}()

	result, err := t.fn(tc, args)
	if err != nil {
		var toolErr *ToolError
		if !errors.As(err, &toolErr) {
			toolErr = &ToolError{Tool: t.name, Message: err.Error(), Code: CodeExecution}
		}

		logger.Error("tool.call.error", "tool", t.name, "code", toolErr.Code, "error", toolErr.Message)

		return t.failure(toolErr)
	}

	if result.Status == "" {
		result.Status = StatusSuccess
	}

	logger.Info("tool.call.done", "tool", t.name, "status", string(result.Status), "duration_ms", time.Since(start).Milliseconds())

	return result
}

func (t *FunctionTool) failure(err *ToolError) Result {
	r := Failure(err.Message)
	r.Payload = map[string]any{"code": err.Code, "tool": err.Tool}

	return r
}
