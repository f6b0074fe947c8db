package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/agentteam/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackManager_Order(t *testing.T) {
	var order []string

	cm := NewCallbackManager()
	cm.RegisterCallback(NewFunctionCallback(CallbackBeforeTool, func(context.Context, *CallbackContext) error {
		order = append(order, "first")
		return nil
	}))
	cm.RegisterCallback(NewFunctionCallback(CallbackBeforeTool, func(context.Context, *CallbackContext) error {
		order = append(order, "second")
		return nil
	}))

	cc := &CallbackContext{AgentName: "a"}
	require.NoError(t, cm.ExecuteCallbacks(context.Background(), CallbackBeforeTool, cc))

	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, CallbackBeforeTool, cc.CallbackType)
}

func TestCallbackManager_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	called := false

	cm := NewCallbackManager(
		NewFunctionCallback(CallbackBeforeAgent, func(context.Context, *CallbackContext) error { return boom }),
		NewFunctionCallback(CallbackBeforeAgent, func(context.Context, *CallbackContext) error { called = true; return nil }),
	)

	err := cm.ExecuteCallbacks(context.Background(), CallbackBeforeAgent, &CallbackContext{})
	require.ErrorIs(t, err, boom)
	assert.False(t, called)
}

func TestCallbackManager_Nil(t *testing.T) {
	var cm *CallbackManager
	assert.NoError(t, cm.ExecuteCallbacks(context.Background(), CallbackOnError, &CallbackContext{}))
}

func TestLoggingCallback(t *testing.T) {
	cb := NewLoggingCallback(CallbackAfterTool, logging.NoOpLogger{})

	assert.Equal(t, CallbackAfterTool, cb.Type())
	assert.NoError(t, cb.Execute(context.Background(), &CallbackContext{AgentName: "a", ToolName: "t", Error: errors.New("x")}))
}
