package engine

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentteam/agent"
	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/logging"
	"github.com/hupe1980/agentteam/model"
	"github.com/hupe1980/agentteam/tool"
)

// ModelEngineOptions configures a ModelEngine.
type ModelEngineOptions struct {
	// MaxSteps bounds model calls per turn. Defaults to 8; 0 means unlimited.
	MaxSteps int
	// MaxDelegationDepth bounds delegation hops per turn. Defaults to 1.
	MaxDelegationDepth int
	// MaxParallelTools bounds concurrent tool calls of one model response
	// (0 = no limit).
	MaxParallelTools int
	// Stream requests streaming; partial text is emitted as reasoning events.
	Stream bool
	// Logger provides structured logging. Defaults to NoOp.
	Logger logging.Logger
	// Callbacks are executed around agents, model calls and tools.
	Callbacks *CallbackManager
}

// ModelEngine is an Engine backed by a language model.
//
// Each step sends the active agent's instruction, the conversation and the
// agent's tools to the model. Function calls are executed (in parallel, with
// results kept in call order) and fed back until the model answers with
// text. Agents with children additionally expose transfer_to_agent; a valid
// transfer hands the rest of the turn to the named child.
type ModelEngine struct {
	model model.Model
	opts  ModelEngineOptions
}

// NewModelEngine creates a ModelEngine driving m.
func NewModelEngine(m model.Model, optFns ...func(o *ModelEngineOptions)) *ModelEngine {
	opts := ModelEngineOptions{
		MaxSteps:           8,
		MaxDelegationDepth: 1,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	return &ModelEngine{model: m, opts: opts}
}

// Model returns the underlying model.
func (e *ModelEngine) Model() model.Model { return e.model }

// StartTurn implements Engine.
func (e *ModelEngine) StartTurn(ctx context.Context, root *agent.Agent, sess core.SessionView, msg core.Message) iter.Seq[core.Event] {
	return func(yield func(core.Event) bool) {
		tc := newTurnContext(ctx, root, sess, msg, e.opts.MaxSteps, e.opts.Logger, e.opts.Callbacks, yield)
		_ = e.run(tc)
	}
}

func (e *ModelEngine) run(tc *TurnContext) error {
	current := tc.Root
	depth := 0

	if err := tc.EnterAgent(current); err != nil {
		return tc.Escalate(current.Name(), err)
	}

	contents := e.buildContents(current, tc.Session, tc.Message)

	for {
		if err := tc.Context.Err(); err != nil {
			return err
		}

		if err := tc.Limiter.Increment(); err != nil {
			return tc.Escalate(current.Name(), err)
		}

		exposed := e.exposedTools(current, depth)

		req, err := e.buildRequest(tc.Context, current, depth, contents, exposed)
		if err != nil {
			return tc.Escalate(current.Name(), err)
		}

		cc := &CallbackContext{
			InvocationID: tc.InvocationID,
			Session:      tc.sessionKey(),
			AgentName:    current.Name(),
		}

		if err := tc.callbacks.ExecuteCallbacks(tc.Context, CallbackBeforeModel, cc); err != nil {
			return tc.Escalate(current.Name(), err)
		}

		var emitErr error

		start := time.Now()
		resp, err := model.Collect(tc.Context, e.model, req, func(partial model.Response) {
			if emitErr != nil {
				return
			}
			if text := partial.Content.Text(); text != "" {
				emitErr = tc.EmitAction(current.Name(), core.Action{Kind: core.ActionReasoning, Text: text})
			}
		})

		if emitErr != nil {
			return emitErr
		}

		if err != nil {
			if ctxErr := tc.Context.Err(); ctxErr != nil {
				return ctxErr
			}

			e.opts.Logger.Error("engine.model.error", "agent", current.Name(), "model", e.model.Info().Name, "error", err.Error())

			return tc.Escalate(current.Name(), fmt.Errorf("model %s failed: %w", e.model.Info().Name, err))
		}

		e.opts.Logger.Debug("engine.model.response",
			"agent", current.Name(),
			"step", tc.Limiter.Count(),
			"finish_reason", resp.FinishReason,
			"duration_ms", time.Since(start).Milliseconds(),
		)

		tc.notify(CallbackAfterModel, cc)

		calls := resp.Content.FunctionCalls()
		if len(calls) == 0 {
			text := strings.TrimSpace(resp.Content.Text())
			if text == "" {
				e.opts.Logger.Warn("engine.model.empty_response", "agent", current.Name())
				return nil
			}

			return tc.Final(current.Name(), text)
		}

		calls = assignCallIDs(calls)

		outcome, err := e.executeCalls(tc, current, exposed, calls)
		if err != nil {
			return err
		}

		contents = append(contents, callContent(resp.Content.Text(), calls), outcome.content)

		if outcome.target != nil {
			if err := tc.EmitAction(current.Name(), core.Action{Kind: core.ActionTransfer, Agent: outcome.target.Name()}); err != nil {
				return err
			}

			current = outcome.target
			depth++

			if err := tc.EnterAgent(current); err != nil {
				return tc.Escalate(current.Name(), err)
			}
		}
	}
}

// buildContents converts the (bounded) session history into model content.
// The current message is appended when the view does not already end with it.
func (e *ModelEngine) buildContents(a *agent.Agent, sess core.SessionView, msg core.Message) []core.Content {
	var history []core.Message
	if sess != nil {
		history = sess.History()
	}

	if n := len(history); n == 0 || history[n-1].Role != msg.Role || history[n-1].Text != msg.Text {
		history = append(history, msg)
	}

	if limit := a.MaxHistoryMessages(); limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	contents := make([]core.Content, 0, len(history))
	for _, m := range history {
		if m.Text == "" {
			continue
		}
		contents = append(contents, core.ContentFromMessage(m))
	}

	return contents
}

// exposedTools returns the tools offered to the model for agent a.
func (e *ModelEngine) exposedTools(a *agent.Agent, depth int) map[string]tool.Tool {
	exposed := make(map[string]tool.Tool, len(a.Tools())+1)
	for _, t := range a.Tools() {
		exposed[t.Name()] = t
	}

	if e.canTransfer(a, depth) {
		exposed[tool.TransferToAgentName] = tool.NewTransferToAgentTool()
	}

	return exposed
}

func (e *ModelEngine) canTransfer(a *agent.Agent, depth int) bool {
	return len(a.SubAgents()) > 0 && depth < e.opts.MaxDelegationDepth
}

func (e *ModelEngine) buildRequest(ctx context.Context, a *agent.Agent, depth int, contents []core.Content, exposed map[string]tool.Tool) (model.Request, error) {
	instruction, err := a.ResolveInstruction(ctx)
	if err != nil {
		return model.Request{}, fmt.Errorf("resolve instruction of %s: %w", a.Name(), err)
	}

	if e.canTransfer(a, depth) {
		var sb strings.Builder

		sb.WriteString(instruction)
		sb.WriteString("\n\nYou can hand the conversation to one of these agents with the ")
		sb.WriteString(tool.TransferToAgentName)
		sb.WriteString(" tool when the request matches their role:\n")

		for _, child := range a.SubAgents() {
			fmt.Fprintf(&sb, "- %s: %s\n", child.Name(), child.Description())
		}

		instruction = sb.String()
	}

	defs := make([]model.ToolDefinition, 0, len(exposed))

	for _, t := range a.Tools() {
		defs = append(defs, model.NewToolDefinition(t.Name(), t.Description(), t.Parameters()))
	}

	if t, ok := exposed[tool.TransferToAgentName]; ok {
		defs = append(defs, model.NewToolDefinition(t.Name(), t.Description(), t.Parameters()))
	}

	return model.Request{
		Instructions: instruction,
		Contents:     contents,
		Tools:        defs,
		Stream:       e.opts.Stream,
	}, nil
}

type callOutcome struct {
	content core.Content
	target  *agent.Agent
}

// executeCalls emits the call trace, runs the calls and emits their results
// in call order. The first valid transfer request wins.
func (e *ModelEngine) executeCalls(tc *TurnContext, owner *agent.Agent, exposed map[string]tool.Tool, calls []core.FunctionCall) (callOutcome, error) {
	args := make([]map[string]any, len(calls))
	argErrs := make([]error, len(calls))

	for i, c := range calls {
		args[i], argErrs[i] = model.DecodeArguments(c.Arguments)

		if err := tc.EmitAction(owner.Name(), core.Action{Kind: core.ActionToolCall, Tool: c.Name, CallID: c.ID, Args: args[i]}); err != nil {
			return callOutcome{}, err
		}
	}

	results := make([]tool.Result, len(calls))
	targets := make([]string, len(calls))

	g := new(errgroup.Group)
	if e.opts.MaxParallelTools > 0 {
		g.SetLimit(e.opts.MaxParallelTools)
	}

	for i, c := range calls {
		g.Go(func() error {
			if argErrs[i] != nil {
				results[i] = tool.Failure(argErrs[i].Error())
				return nil
			}

			t, ok := exposed[c.Name]
			if !ok {
				results[i] = tool.Failuref("tool %s not found", c.Name)
				return nil
			}

			res, toolCtx := tc.CallTool(owner, t, c.ID, args[i])
			results[i] = res

			if name, ok := toolCtx.TransferTarget(); ok {
				targets[i] = name
			}

			return nil
		})
	}

	_ = g.Wait()

	var out callOutcome

	for i, name := range targets {
		if name == "" {
			continue
		}

		child, ok := owner.SubAgent(name)
		if !ok {
			results[i] = tool.Failuref("unknown agent %q; available agents: %s", name, strings.Join(owner.SubAgentNames(), ", "))
			continue
		}

		if out.target == nil {
			out.target = child
		}
	}

	parts := make([]core.Part, 0, len(calls))

	for i, c := range calls {
		res := results[i]

		if err := tc.EmitAction(owner.Name(), core.Action{Kind: core.ActionToolResult, Tool: c.Name, CallID: c.ID, Result: &res}); err != nil {
			return callOutcome{}, err
		}

		parts = append(parts, core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{
			ID:       c.ID,
			Name:     c.Name,
			Response: res.Map(),
		}})
	}

	out.content = core.Content{Role: core.ContentRoleTool, Parts: parts}

	return out, nil
}

func assignCallIDs(calls []core.FunctionCall) []core.FunctionCall {
	out := make([]core.FunctionCall, len(calls))

	for i, c := range calls {
		if c.ID == "" {
			c.ID = "call_" + core.NewID()
		}
		out[i] = c
	}

	return out
}

func callContent(text string, calls []core.FunctionCall) core.Content {
	parts := make([]core.Part, 0, len(calls)+1)
	if text != "" {
		parts = append(parts, core.TextPart{Text: text})
	}

	for _, c := range calls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: c})
	}

	return core.Content{Role: core.ContentRoleAssistant, Parts: parts}
}
