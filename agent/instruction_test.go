package agent

import (
	"context"
	"errors"
	"testing"
)

type mockProvider struct {
	text string
	err  error
}

func (m mockProvider) Instruction(context.Context, *Agent) (string, error) { return m.text, m.err }

func TestInstruction_Static(t *testing.T) {
	inst := NewInstructionFromText("static instruction")
	if !inst.IsStatic() {
		t.Fatalf("expected static instruction")
	}
	got, err := inst.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "static instruction" {
		t.Fatalf("expected 'static instruction', got %q", got)
	}
}

func TestInstruction_NewInstructionFromFunc(t *testing.T) {
	inst := NewInstructionFromFunc(func(_ context.Context, a *Agent) (string, error) { return "dynamic for " + a.Name(), nil })
	if inst.IsStatic() {
		t.Fatalf("expected dynamic instruction")
	}
	a := Must(New("bot", func(o *Options) { o.Instruction = inst }))
	got, err := a.ResolveInstruction(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "dynamic for bot" {
		t.Fatalf("expected 'dynamic for bot', got %q", got)
	}
}

func TestInstruction_NewInstructionFromProvider(t *testing.T) {
	inst := NewInstructionFromProvider(mockProvider{text: "provider text"})
	if inst.IsStatic() {
		t.Fatalf("expected dynamic instruction")
	}
	got, err := inst.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "provider text" {
		t.Fatalf("expected 'provider text', got %q", got)
	}
}

func TestInstruction_ErrorPropagation(t *testing.T) {
	expectedErr := errors.New("boom")
	a := Must(New("bot", func(o *Options) { o.Instruction = NewInstructionFromProvider(mockProvider{err: expectedErr}) }))
	_, err := a.ResolveInstruction(context.Background())
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected error %v, got %v", expectedErr, err)
	}
}

func TestInstruction_TemplateRendering(t *testing.T) {
	child := Must(New("greeting_agent"))
	a := Must(New("team",
		WithInstruction(`You are {{.Name}}. Delegate to {{join ", " .SubAgents}}. Tools: {{join ", " .Tools}}.`),
		WithSubAgents(child),
		WithTools(noopTool("get_weather")),
	))

	got, err := a.ResolveInstruction(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "You are team. Delegate to greeting_agent. Tools: get_weather."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
