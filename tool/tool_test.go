package tool

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hupe1980/agentteam/internal/util"
	"github.com/hupe1980/agentteam/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------- Schema & Validation Tests --------------------

type sampleArgs struct {
	A string `json:"a" jsonschema:"description=Field A"`
	B *int   `json:"b,omitempty" jsonschema:"description=Optional pointer field"`
	C int    `json:"c,omitempty"`
}

func TestCreateSchema(t *testing.T) {
	schema := util.CreateSchema(sampleArgs{})

	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")
	assert.Contains(t, props, "c")

	a := props["a"].(map[string]any)
	assert.Equal(t, "Field A", a["description"])

	req, _ := schema["required"].([]any)
	assert.ElementsMatch(t, []any{"a"}, req)
	assert.NotContains(t, schema, "$schema")
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "integer"},
		},
		"required": []any{"x"},
	}

	assert.NoError(t, util.ValidateParameters(map[string]any{"x": 5}, schema))

	err := util.ValidateParameters(map[string]any{}, schema)
	require.Error(t, err)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "x", vErr.Field)

	err = util.ValidateParameters(map[string]any{"x": "not-int"}, schema)
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "x", vErr.Field)
}

func TestValidateParameters_EmptySchemaAcceptsAnything(t *testing.T) {
	assert.NoError(t, util.ValidateParameters(map[string]any{"anything": true}, nil))
}

// -------------------- Result Tests --------------------

func TestResult_Text(t *testing.T) {
	assert.Equal(t, "sunny", Report("sunny").Text())
	assert.Equal(t, "hi", Success(map[string]any{"message": "hi"}).Text())
	assert.Equal(t, `{"n":1}`, Success(map[string]any{"n": 1}).Text())
	assert.Equal(t, "", Success(nil).Text())
	assert.Equal(t, "no data for 'x'", Failuref("no data for '%s'", "x").Text())
}

func TestResult_Map(t *testing.T) {
	ok := Report("sunny").Map()
	assert.Equal(t, "success", ok["status"])
	assert.Equal(t, "sunny", ok["report"])
	assert.NotContains(t, ok, "error_message")

	failed := Failure("nope").Map()
	assert.Equal(t, "error", failed["status"])
	assert.Equal(t, "nope", failed["error_message"])
}

// -------------------- FunctionTool Tests --------------------

func testContext() *Context {
	return NewContext(context.Background(), "agent", "inv-1", "fc-1", logging.NoOpLogger{})
}

func TestFunctionTool_Success(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}

	sumTool := NewFunctionTool("sum", "Add numbers", params, func(_ *Context, args map[string]any) (Result, error) {
		return Success(map[string]any{"sum": args["a"].(float64) + args["b"].(float64)}), nil
	})

	res := sumTool.Call(testContext(), map[string]any{"a": 2.0, "b": 3.0})
	assert.True(t, res.IsSuccess())
	assert.Equal(t, 5.0, res.Payload["sum"])
}

func TestFunctionTool_DefaultsStatusToSuccess(t *testing.T) {
	ft := NewFunctionTool("noop", "Does nothing", nil, func(_ *Context, _ map[string]any) (Result, error) {
		return Result{Payload: map[string]any{"message": "done"}}, nil
	})

	res := ft.Call(nil, nil)
	assert.True(t, res.IsSuccess())
	assert.Equal(t, "done", res.Text())
}

func TestFunctionTool_ValidationError(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
		},
		"required": []any{"a"},
	}
	called := false
	tTool := NewFunctionTool("test", "Test", params, func(_ *Context, _ map[string]any) (Result, error) {
		called = true
		return Report("unreachable"), nil
	})

	res := tTool.Call(testContext(), map[string]any{})
	assert.False(t, res.IsSuccess())
	assert.False(t, called)
	assert.Equal(t, CodeValidation, res.Payload["code"])
	assert.Contains(t, res.Message, "parameter validation failed")
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	execTool := NewFunctionTool("fail", "Fails", nil, func(_ *Context, _ map[string]any) (Result, error) {
		return Result{}, errors.New("boom")
	})

	res := execTool.Call(testContext(), map[string]any{})
	assert.False(t, res.IsSuccess())
	assert.Equal(t, "boom", res.Message)
	assert.Equal(t, CodeExecution, res.Payload["code"])
}

func TestFunctionTool_ToolErrorCodePreserved(t *testing.T) {
	execTool := NewFunctionTool("fail", "Fails", nil, func(_ *Context, _ map[string]any) (Result, error) {
		return Result{}, NewToolError("fail", "upstream down", "UPSTREAM")
	})

	res := execTool.Call(testContext(), nil)
	assert.Equal(t, "UPSTREAM", res.Payload["code"])
	assert.Equal(t, "upstream down", res.Message)
}

func TestFunctionTool_PanicBecomesFailure(t *testing.T) {
	panicky := NewFunctionTool("panicky", "Panics", nil, func(_ *Context, _ map[string]any) (Result, error) {
		panic("kaboom")
	})

	var res Result
	assert.NotPanics(t, func() { res = panicky.Call(testContext(), nil) })
	assert.False(t, res.IsSuccess())
	assert.Equal(t, CodePanic, res.Payload["code"])
	assert.Equal(t, "kaboom", res.Message)
}

func TestFunctionTool_FromStruct(t *testing.T) {
	type cityArgs struct {
		City string `json:"city" jsonschema:"description=City name"`
	}

	ft := NewFunctionToolFromStruct("lookup", "Lookup", cityArgs{}, func(_ *Context, args map[string]any) (Result, error) {
		return Report("ok " + args["city"].(string)), nil
	})

	assert.Equal(t, "ok Paris", ft.Call(testContext(), map[string]any{"city": "Paris"}).Text())
	assert.False(t, ft.Call(testContext(), map[string]any{}).IsSuccess())
}

func TestFunctionTool_ConcurrentCalls(t *testing.T) {
	ft := NewFunctionTool("echo", "Echo", nil, func(_ *Context, args map[string]any) (Result, error) {
		return Success(args), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := ft.Call(testContext(), map[string]any{"i": i})
			assert.Equal(t, i, res.Payload["i"])
		}(i)
	}
	wg.Wait()
}

// -------------------- Transfer Tool --------------------

func TestTransferToAgentTool(t *testing.T) {
	tt := NewTransferToAgentTool()
	assert.Equal(t, TransferToAgentName, tt.Name())

	tc := testContext()
	res := tt.Call(tc, map[string]any{"agent": "greeting_agent"})
	assert.True(t, res.IsSuccess())

	target, ok := tc.TransferTarget()
	assert.True(t, ok)
	assert.Equal(t, "greeting_agent", target)

	tc2 := testContext()
	assert.False(t, tt.Call(tc2, map[string]any{}).IsSuccess())
	_, ok = tc2.TransferTarget()
	assert.False(t, ok)
}

// -------------------- ToolError Formatting --------------------

func TestToolErrorFormatting(t *testing.T) {
	err := NewToolError("demo", "something failed", "E123")
	assert.Contains(t, err.Error(), "E123")
	assert.Contains(t, err.Error(), "demo")
}
