package engine

import (
	"strings"

	"github.com/hupe1980/agentteam/agent"
	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/internal/textutil"
	"github.com/hupe1980/agentteam/tool"
)

// DecisionKind is the outcome of resolving an utterance at one agent.
type DecisionKind int

const (
	// DecisionDecline means neither a child nor the agent's own tools apply.
	DecisionDecline DecisionKind = iota
	// DecisionDelegate hands the turn to a child.
	DecisionDelegate
	// DecisionUseTool handles the turn with one of the agent's own tools.
	DecisionUseTool
)

// String returns the string representation of the decision kind.
func (k DecisionKind) String() string {
	switch k {
	case DecisionDelegate:
		return "delegate"
	case DecisionUseTool:
		return "use_tool"
	default:
		return "decline"
	}
}

// ArgsFunc derives tool arguments from the utterance and prior history.
// Returning an error stops the turn with the error text as the answer, which
// lets a rule ask the user for missing information.
type ArgsFunc func(utterance string, history []core.Message) (map[string]any, error)

// RenderFunc phrases a tool result as the final answer.
type RenderFunc func(utterance string, res tool.Result) string

// Rule describes when an agent is responsible for an utterance and how it
// services it.
type Rule struct {
	// Keywords are phrases matched as whole words, ignoring case and diacritics.
	Keywords []string
	// Match is an optional additional matcher; the rule applies if either
	// a keyword or Match hits.
	Match func(utterance string) bool
	// Tool is the owned tool used when the agent handles the utterance itself.
	Tool string
	// Args derives the tool arguments (nil means no arguments).
	Args ArgsFunc
	// Render phrases the result (nil means tool.Result.Text).
	Render RenderFunc
}

// Matches reports whether the rule claims the utterance.
func (r Rule) Matches(utterance string) bool {
	if textutil.ContainsAny(utterance, r.Keywords...) {
		return true
	}
	return r.Match != nil && r.Match(utterance)
}

// Decision is the routing outcome for one agent. It is plain data so the
// engine can record it on the event stream.
type Decision struct {
	Kind   DecisionKind
	Agent  *agent.Agent // the deciding agent
	Target *agent.Agent // delegation target
	Tool   tool.Tool    // tool to use
	Rule   Rule         // rule that produced the decision
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	// MaxDelegationDepth bounds delegation hops per turn. Defaults to 1.
	MaxDelegationDepth int
}

// Resolver applies the delegation policy to an agent tree:
//
//  1. children are consulted first, in declared order; the first child whose
//     rule claims the utterance receives the turn
//  2. otherwise the agent's own rule is consulted; a match is serviced with
//     the rule's tool, provided the agent owns it
//  3. otherwise the utterance is declined
//
// Children beat the parent's own tool, so an utterance that mentions both a
// greeting and the weather goes to the greeter.
type Resolver struct {
	rules    map[string]Rule
	maxDepth int
}

// NewResolver creates a resolver from rules keyed by agent name.
func NewResolver(rules map[string]Rule, optFns ...func(o *ResolverOptions)) *Resolver {
	opts := ResolverOptions{MaxDelegationDepth: 1}

	for _, fn := range optFns {
		fn(&opts)
	}

	cp := make(map[string]Rule, len(rules))
	for k, v := range rules {
		cp[k] = v
	}

	return &Resolver{rules: cp, maxDepth: opts.MaxDelegationDepth}
}

// MaxDelegationDepth returns the configured hop limit.
func (r *Resolver) MaxDelegationDepth() int { return r.maxDepth }

// Rule returns the rule for the named agent.
func (r *Resolver) Rule(agentName string) (Rule, bool) {
	rule, ok := r.rules[agentName]
	return rule, ok
}

// Resolve decides how agent a services the utterance, given that a sits
// depth delegation hops below the root.
func (r *Resolver) Resolve(a *agent.Agent, utterance string, depth int) Decision {
	if strings.TrimSpace(utterance) == "" {
		return Decision{Kind: DecisionDecline, Agent: a}
	}

	if depth < r.maxDepth {
		for _, child := range a.SubAgents() {
			rule, ok := r.rules[child.Name()]
			if ok && rule.Matches(utterance) {
				return Decision{Kind: DecisionDelegate, Agent: a, Target: child, Rule: rule}
			}
		}
	}

	rule, ok := r.rules[a.Name()]
	if !ok || rule.Tool == "" || !rule.Matches(utterance) {
		return Decision{Kind: DecisionDecline, Agent: a}
	}

	t, owned := a.Tool(rule.Tool)
	if !owned {
		return Decision{Kind: DecisionDecline, Agent: a, Rule: rule}
	}

	return Decision{Kind: DecisionUseTool, Agent: a, Tool: t, Rule: rule}
}
