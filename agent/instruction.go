package agent

import "context"

// Provider supplies dynamic instruction text at runtime.
type Provider interface {
	Instruction(ctx context.Context, a *Agent) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(ctx context.Context, a *Agent) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(ctx context.Context, a *Agent) (string, error) { return f(ctx, a) }

// Instruction represents either a static instruction string or a dynamic provider.
// This mirrors a union of string | provider in a Go-idiomatic way.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(ctx context.Context, a *Agent) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// IsZero reports whether neither text nor provider is set.
func (i Instruction) IsZero() bool { return i.provider == nil && i.text == "" }

// Resolve returns the raw instruction text, invoking the provider if needed.
func (i Instruction) Resolve(ctx context.Context, a *Agent) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(ctx, a)
	}
	return i.text, nil
}
