// Package tool implements the capability surface agents expose: named tools with
// a JSON schema for their arguments and a structured Success / Failure result.
//
// Tools never abort a turn. Anything that goes wrong inside a tool, including
// argument validation and panics in FunctionTool, is reported back as a
// Failure result so the reasoning engine can phrase it for the user.
package tool

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/agentteam/internal/util"
)

// Tool defines a callable capability owned by an agent.
//
// Implementations must be safe to call zero or more times per turn and must
// not assume any ordering between calls. A Tool only sees the read-only
// Context passed to Call; it cannot mutate sessions or the agent tree.
type Tool interface {
	// Name returns the identifier used by engines and models to address the tool.
	// Names are unique within an agent (snake_case recommended).
	Name() string

	// Description returns the natural language description exposed to models.
	Description() string

	// Parameters returns a JSON schema describing the accepted arguments.
	Parameters() map[string]any

	// Call executes the tool. Failures are reported through the returned Result.
	Call(tc *Context, args map[string]any) Result
}

// Status discriminates Success from Failure results.
type Status string

const (
	// StatusSuccess marks a successful tool result.
	StatusSuccess Status = "success"
	// StatusError marks a failed tool result.
	StatusError Status = "error"
)

// Result is the outcome of a tool invocation.
//
// A Success carries a payload whose "report" (or "message") field is the
// human readable text; a Failure carries Message.
type Result struct {
	Status  Status         `json:"status"`
	Payload map[string]any `json:"payload,omitempty"`
	Message string         `json:"error_message,omitempty"`
}

// Success builds a successful Result around payload.
func Success(payload map[string]any) Result {
	return Result{Status: StatusSuccess, Payload: payload}
}

// Report is shorthand for a Success whose payload is a single "report" field.
func Report(text string) Result {
	return Success(map[string]any{"report": text})
}

// Failure builds a failed Result with a human readable message.
func Failure(message string) Result {
	return Result{Status: StatusError, Message: message}
}

// Failuref is the fmt.Sprintf flavoured variant of Failure.
func Failuref(format string, args ...any) Result {
	return Failure(fmt.Sprintf(format, args...))
}

// IsSuccess reports whether r is a Success.
func (r Result) IsSuccess() bool { return r.Status == StatusSuccess }

// Text returns the human readable part of the result: the payload's "report"
// or "message" string for a Success, the message for a Failure. Payloads
// without either field are rendered as JSON.
func (r Result) Text() string {
	if !r.IsSuccess() {
		return r.Message
	}

	for _, key := range []string{"report", "message"} {
		if s, ok := r.Payload[key].(string); ok {
			return s
		}
	}

	if len(r.Payload) == 0 {
		return ""
	}

	b, err := json.Marshal(r.Payload)
	if err != nil {
		return fmt.Sprint(r.Payload)
	}

	return string(b)
}

// Map flattens the result into the shape handed back to models as a function
// response: the payload fields plus "status" (and "error_message" on failure).
func (r Result) Map() map[string]any {
	m := make(map[string]any, len(r.Payload)+2)
	for k, v := range r.Payload {
		m[k] = v
	}

	m["status"] = string(r.Status)
	if !r.IsSuccess() {
		m["error_message"] = r.Message
	}

	return m
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Error codes attached to ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodePanic      = "PANIC"
)

// ToolError represents errors that occur during tool execution. FunctionTool
// renders it into the message of a Failure result.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
