package engine

import (
	"context"
	"iter"

	"github.com/hupe1980/agentteam/agent"
	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/logging"
)

// DefaultDeclineText is answered when no agent in the tree claims an utterance.
const DefaultDeclineText = "Sorry, I can't help with that request."

// RuleEngineOptions configures a RuleEngine.
type RuleEngineOptions struct {
	// Rules maps agent names to their routing rules.
	Rules map[string]Rule
	// DeclineText is the polite answer for unserviceable utterances.
	DeclineText string
	// MaxDelegationDepth bounds delegation hops per turn. Defaults to 1.
	MaxDelegationDepth int
	// Logger provides structured logging. Defaults to NoOp.
	Logger logging.Logger
	// Callbacks are executed around agents and tools.
	Callbacks *CallbackManager
}

// RuleEngine is a deterministic Engine that routes utterances through a
// Resolver. It emits the decision trace as intermediate events (transfer,
// tool call, tool result, decline) followed by exactly one final event, or an
// escalated event when a callback vetoes an agent.
//
// It makes no natural-language understanding claims beyond keyword matching
// and is mainly used for tests, offline demos and as a fallback when no model
// is configured.
type RuleEngine struct {
	resolver    *Resolver
	declineText string
	logger      logging.Logger
	callbacks   *CallbackManager
}

// NewRuleEngine creates a RuleEngine.
func NewRuleEngine(optFns ...func(o *RuleEngineOptions)) *RuleEngine {
	opts := RuleEngineOptions{
		DeclineText:        DefaultDeclineText,
		MaxDelegationDepth: 1,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &RuleEngine{
		resolver: NewResolver(opts.Rules, func(o *ResolverOptions) {
			o.MaxDelegationDepth = opts.MaxDelegationDepth
		}),
		declineText: opts.DeclineText,
		logger:      logging.OrNoOp(opts.Logger),
		callbacks:   opts.Callbacks,
	}
}

// Resolver returns the routing policy of the engine.
func (e *RuleEngine) Resolver() *Resolver { return e.resolver }

// StartTurn implements Engine.
func (e *RuleEngine) StartTurn(ctx context.Context, root *agent.Agent, sess core.SessionView, msg core.Message) iter.Seq[core.Event] {
	return func(yield func(core.Event) bool) {
		tc := newTurnContext(ctx, root, sess, msg, 0, e.logger, e.callbacks, yield)
		_ = e.run(tc)
	}
}

func (e *RuleEngine) run(tc *TurnContext) error {
	current := tc.Root
	depth := 0

	var history []core.Message
	if tc.Session != nil {
		history = tc.Session.History()
	}

	e.logger.Debug("engine.turn.start", "invocation", tc.InvocationID, "root", current.Name())

	for {
		if err := tc.Context.Err(); err != nil {
			return err
		}

		if err := tc.EnterAgent(current); err != nil {
			return tc.Escalate(current.Name(), err)
		}

		d := e.resolver.Resolve(current, tc.Message.Text, depth)

		e.logger.Debug("engine.decision", "invocation", tc.InvocationID, "agent", current.Name(), "decision", d.Kind.String())

		switch d.Kind {
		case DecisionDelegate:
			if err := tc.EmitAction(current.Name(), core.Action{Kind: core.ActionTransfer, Agent: d.Target.Name()}); err != nil {
				return err
			}

			current = d.Target
			depth++

		case DecisionUseTool:
			var args map[string]any
			if d.Rule.Args != nil {
				a, err := d.Rule.Args(tc.Message.Text, history)
				if err != nil {
					return tc.Final(current.Name(), err.Error())
				}
				args = a
			}

			callID := core.NewID()
			if err := tc.EmitAction(current.Name(), core.Action{Kind: core.ActionToolCall, Tool: d.Tool.Name(), CallID: callID, Args: args}); err != nil {
				return err
			}

			res, _ := tc.CallTool(current, d.Tool, callID, args)

			if err := tc.EmitAction(current.Name(), core.Action{Kind: core.ActionToolResult, Tool: d.Tool.Name(), CallID: callID, Result: &res}); err != nil {
				return err
			}

			text := res.Text()
			if d.Rule.Render != nil {
				text = d.Rule.Render(tc.Message.Text, res)
			}

			return tc.Final(current.Name(), text)

		default:
			if err := tc.EmitAction(current.Name(), core.Action{Kind: core.ActionDecline}); err != nil {
				return err
			}

			return tc.Final(current.Name(), e.declineText)
		}
	}
}
