package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/agentteam/internal/util"
	"github.com/hupe1980/agentteam/tool"
)

var (
	// ErrEmptyName is returned when an agent is constructed without a name.
	ErrEmptyName = errors.New("agent name must not be empty")
	// ErrDuplicateTool is returned when an agent declares two tools with the same name.
	ErrDuplicateTool = errors.New("duplicate tool name")
	// ErrDuplicateName is returned when two agents in one tree share a name.
	ErrDuplicateName = errors.New("duplicate agent name in tree")
	// ErrAlreadyAttached is returned when a child already has a parent.
	ErrAlreadyAttached = errors.New("agent already has a parent")
)

// attachMu serializes parent assignment so two trees cannot adopt the same child.
var attachMu sync.Mutex

// Options configures an Agent.
//
// Use functional options with New to override defaults.
type Options struct {
	// Description is the declared responsibility used for routing.
	Description string
	// Instruction is the natural-language policy. It is opaque to the core
	// and only consumed by reasoning engines.
	Instruction Instruction
	// Tools are the capabilities the agent owns. Order is preserved.
	Tools []tool.Tool
	// SubAgents are the children in delegation order.
	SubAgents []*Agent
	// MaxHistoryMessages bounds how much history model backed engines send (0 = all).
	MaxHistoryMessages int
}

// Agent is an immutable descriptor of one node in the delegation tree.
//
// It carries a name (unique within the tree), a description, an instruction,
// the tools the agent owns and its ordered children. Agents are safe to share
// between goroutines; nothing about them changes after New returns, except the
// parent link which is written once when a parent adopts the agent.
type Agent struct {
	name               string
	description        string
	instruction        Instruction
	tools              []tool.Tool
	toolIndex          map[string]tool.Tool
	subAgents          []*Agent
	maxHistoryMessages int

	parent *Agent
}

// New creates an agent and adopts the given children.
//
// It fails when the name is empty, when two tools share a name, when a child
// already belongs to another parent or when any name repeats within the
// resulting tree. Because children must exist before their parent, cycles
// cannot be formed.
func New(name string, optFns ...func(o *Options)) (*Agent, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	opts := Options{
		Description: fmt.Sprintf("Agent %s", name),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Instruction.IsZero() {
		opts.Instruction = NewInstructionFromText(fmt.Sprintf("You are %s, a helpful assistant.", name))
	}

	a := &Agent{
		name:               name,
		description:        opts.Description,
		instruction:        opts.Instruction,
		tools:              make([]tool.Tool, 0, len(opts.Tools)),
		toolIndex:          make(map[string]tool.Tool, len(opts.Tools)),
		subAgents:          make([]*Agent, 0, len(opts.SubAgents)),
		maxHistoryMessages: opts.MaxHistoryMessages,
	}

	for _, t := range opts.Tools {
		if t == nil {
			continue
		}

		if _, dup := a.toolIndex[t.Name()]; dup {
			return nil, fmt.Errorf("%w: %q on agent %q", ErrDuplicateTool, t.Name(), name)
		}

		a.tools = append(a.tools, t)
		a.toolIndex[t.Name()] = t
	}

	seen := map[string]struct{}{name: {}}
	for _, child := range opts.SubAgents {
		if child == nil {
			continue
		}

		var dupErr error
		child.Walk(func(n *Agent) bool {
			if _, dup := seen[n.name]; dup {
				dupErr = fmt.Errorf("%w: %q", ErrDuplicateName, n.name)
				return false
			}
			seen[n.name] = struct{}{}
			return true
		})

		if dupErr != nil {
			return nil, dupErr
		}
	}

	attachMu.Lock()
	defer attachMu.Unlock()

	for _, child := range opts.SubAgents {
		if child != nil && child.parent != nil {
			return nil, fmt.Errorf("%w: %q belongs to %q", ErrAlreadyAttached, child.name, child.parent.name)
		}
	}

	for _, child := range opts.SubAgents {
		if child == nil {
			continue
		}

		child.parent = a
		a.subAgents = append(a.subAgents, child)
	}

	return a, nil
}

// Must panics if err is non-nil. It is meant for static team definitions.
func Must(a *Agent, err error) *Agent {
	if err != nil {
		panic(err)
	}
	return a
}

// WithDescription sets the declared responsibility.
func WithDescription(desc string) func(o *Options) {
	return func(o *Options) { o.Description = desc }
}

// WithInstruction sets a static instruction.
func WithInstruction(text string) func(o *Options) {
	return func(o *Options) { o.Instruction = NewInstructionFromText(text) }
}

// WithTools appends tools.
func WithTools(tools ...tool.Tool) func(o *Options) {
	return func(o *Options) { o.Tools = append(o.Tools, tools...) }
}

// WithSubAgents appends children.
func WithSubAgents(children ...*Agent) func(o *Options) {
	return func(o *Options) { o.SubAgents = append(o.SubAgents, children...) }
}

// Name returns the agent's name.
func (a *Agent) Name() string { return a.name }

// Description returns the agent's declared responsibility.
func (a *Agent) Description() string { return a.description }

// Instruction returns the agent's policy.
func (a *Agent) Instruction() Instruction { return a.instruction }

// MaxHistoryMessages returns the history bound for model backed engines.
func (a *Agent) MaxHistoryMessages() int { return a.maxHistoryMessages }

// ResolveInstruction produces the final instruction text. Static text and
// provider output are both rendered as templates with the agent's name,
// description, tool names and child names available as .Name, .Description,
// .Tools and .SubAgents.
func (a *Agent) ResolveInstruction(ctx context.Context) (string, error) {
	text, err := a.instruction.Resolve(ctx, a)
	if err != nil {
		return "", err
	}

	return util.RenderTemplate(text, map[string]any{
		"Name":        a.name,
		"Description": a.description,
		"Tools":       a.ToolNames(),
		"SubAgents":   a.SubAgentNames(),
	})
}

// Tools returns the owned tools in declaration order.
func (a *Agent) Tools() []tool.Tool {
	out := make([]tool.Tool, len(a.tools))
	copy(out, a.tools)
	return out
}

// ToolNames returns the names of the owned tools in declaration order.
func (a *Agent) ToolNames() []string {
	names := make([]string, len(a.tools))
	for i, t := range a.tools {
		names[i] = t.Name()
	}
	return names
}

// Tool returns the owned tool with the given name.
func (a *Agent) Tool(name string) (tool.Tool, bool) {
	t, ok := a.toolIndex[name]
	return t, ok
}

// HasTool reports whether the agent owns a tool with the given name.
func (a *Agent) HasTool(name string) bool {
	_, ok := a.toolIndex[name]
	return ok
}

// SubAgents returns the children in delegation order.
func (a *Agent) SubAgents() []*Agent {
	out := make([]*Agent, len(a.subAgents))
	copy(out, a.subAgents)
	return out
}

// SubAgentNames returns the names of the children in delegation order.
func (a *Agent) SubAgentNames() []string {
	names := make([]string, len(a.subAgents))
	for i, c := range a.subAgents {
		names[i] = c.name
	}
	return names
}

// SubAgent returns the direct child with the given name.
func (a *Agent) SubAgent(name string) (*Agent, bool) {
	for _, c := range a.subAgents {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

// Parent returns the parent agent or nil for a root.
func (a *Agent) Parent() *Agent {
	attachMu.Lock()
	defer attachMu.Unlock()
	return a.parent
}

// Root returns the top of the tree the agent belongs to.
func (a *Agent) Root() *Agent {
	cur := a
	for p := cur.Parent(); p != nil; p = cur.Parent() {
		cur = p
	}
	return cur
}

// FindAgent performs a depth-first search over the subtree rooted at this
// agent (including itself) returning the first agent whose name matches.
// Returns nil if no match is found.
func (a *Agent) FindAgent(name string) *Agent {
	var found *Agent
	a.Walk(func(n *Agent) bool {
		if n.name == name {
			found = n
			return false
		}
		return true
	})
	return found
}

// Walk visits the subtree depth-first in declaration order until fn returns false.
func (a *Agent) Walk(fn func(*Agent) bool) bool {
	if !fn(a) {
		return false
	}

	for _, c := range a.subAgents {
		if !c.Walk(fn) {
			return false
		}
	}

	return true
}

// String returns the agent's name.
func (a *Agent) String() string { return a.name }
