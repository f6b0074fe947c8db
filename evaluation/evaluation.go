// Package evaluation replays scripted conversations against a team and
// checks every answer against expectations.
//
// A Suite holds Cases; a Case is one conversation (one session) made of
// Invocations. Each invocation's actual turn result is judged by the
// configured Evaluators.
package evaluation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/runner"
)

// Invocation is one user utterance and what the team should answer.
// Empty expectations are not checked.
type Invocation struct {
	UserContent string `json:"user" yaml:"user"`
	// FinalResponse must equal the answer exactly.
	FinalResponse string `json:"final_response,omitempty" yaml:"final_response,omitempty"`
	// Contains lists substrings the answer must contain.
	Contains []string `json:"contains,omitempty" yaml:"contains,omitempty"`
	// Author is the agent expected to produce the answer.
	Author string `json:"author,omitempty" yaml:"author,omitempty"`
	// Tools is the expected tool trajectory, in call order.
	Tools []string `json:"tools,omitempty" yaml:"tools,omitempty"`
	// Outcome is the expected runner outcome (final, escalated, no_response).
	Outcome runner.Outcome `json:"outcome,omitempty" yaml:"outcome,omitempty"`
}

// Case is a conversation replayed in a fresh session.
type Case struct {
	Name        string       `json:"name" yaml:"name"`
	Invocations []Invocation `json:"invocations" yaml:"invocations"`
}

// Suite is a named set of cases.
type Suite struct {
	Name  string `json:"name" yaml:"name"`
	Cases []Case `json:"cases" yaml:"cases"`
}

// Validate checks the suite for empty cases.
func (s *Suite) Validate() error {
	if len(s.Cases) == 0 {
		return fmt.Errorf("suite %q has no cases", s.Name)
	}

	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("case %d has no name", i)
		}
		if len(c.Invocations) == 0 {
			return fmt.Errorf("case %q has no invocations", c.Name)
		}
	}

	return nil
}

// Result is the verdict of one evaluator for one invocation.
type Result struct {
	Evaluator string `json:"evaluator"`
	Passed    bool   `json:"passed"`
	Reason    string `json:"reason,omitempty"`
}

// Evaluator judges the actual turn result of an invocation. Evaluators
// return nil when their expectation is not set.
type Evaluator interface {
	Name() string
	Evaluate(invocation Invocation, actual runner.TurnResult) *Result
}

// EvaluatorFunc adapts a function to an Evaluator.
type EvaluatorFunc struct {
	name string
	fn   func(invocation Invocation, actual runner.TurnResult) *Result
}

// NewEvaluatorFunc creates a named function evaluator.
func NewEvaluatorFunc(name string, fn func(invocation Invocation, actual runner.TurnResult) *Result) *EvaluatorFunc {
	return &EvaluatorFunc{name: name, fn: fn}
}

// Name implements Evaluator.
func (e *EvaluatorFunc) Name() string { return e.name }

// Evaluate implements Evaluator.
func (e *EvaluatorFunc) Evaluate(invocation Invocation, actual runner.TurnResult) *Result {
	res := e.fn(invocation, actual)
	if res != nil && res.Evaluator == "" {
		res.Evaluator = e.name
	}
	return res
}

// DefaultEvaluators checks every expectation field of an Invocation.
func DefaultEvaluators() []Evaluator {
	return []Evaluator{
		ExactResponse(),
		ResponseContains(),
		ResponseAuthor(),
		ToolTrajectory(),
		TurnOutcome(),
	}
}

// ExactResponse compares the answer with FinalResponse.
func ExactResponse() Evaluator {
	return NewEvaluatorFunc("final_response", func(inv Invocation, actual runner.TurnResult) *Result {
		if inv.FinalResponse == "" {
			return nil
		}
		if actual.Text == inv.FinalResponse {
			return &Result{Passed: true}
		}
		return &Result{Reason: fmt.Sprintf("expected %q, got %q", inv.FinalResponse, actual.Text)}
	})
}

// ResponseContains requires every Contains substring in the answer.
func ResponseContains() Evaluator {
	return NewEvaluatorFunc("contains", func(inv Invocation, actual runner.TurnResult) *Result {
		if len(inv.Contains) == 0 {
			return nil
		}

		var missing []string
		for _, s := range inv.Contains {
			if !strings.Contains(actual.Text, s) {
				missing = append(missing, s)
			}
		}

		if len(missing) == 0 {
			return &Result{Passed: true}
		}
		return &Result{Reason: fmt.Sprintf("%q lacks %q", actual.Text, missing)}
	})
}

// ResponseAuthor checks which agent answered.
func ResponseAuthor() Evaluator {
	return NewEvaluatorFunc("author", func(inv Invocation, actual runner.TurnResult) *Result {
		if inv.Author == "" {
			return nil
		}
		if actual.Author == inv.Author {
			return &Result{Passed: true}
		}
		return &Result{Reason: fmt.Sprintf("expected author %s, got %q", inv.Author, actual.Author)}
	})
}

// ToolTrajectory compares the tools called during the turn, in order.
// Transfers are not tools.
func ToolTrajectory() Evaluator {
	return NewEvaluatorFunc("tools", func(inv Invocation, actual runner.TurnResult) *Result {
		if inv.Tools == nil {
			return nil
		}

		got := CalledTools(actual.Actions)
		if slices.Equal(got, inv.Tools) {
			return &Result{Passed: true}
		}
		return &Result{Reason: fmt.Sprintf("expected tools %v, got %v", inv.Tools, got)}
	})
}

// TurnOutcome checks how the turn ended.
func TurnOutcome() Evaluator {
	return NewEvaluatorFunc("outcome", func(inv Invocation, actual runner.TurnResult) *Result {
		if inv.Outcome == "" {
			return nil
		}
		if actual.Outcome == inv.Outcome {
			return &Result{Passed: true}
		}
		return &Result{Reason: fmt.Sprintf("expected outcome %s, got %s", inv.Outcome, actual.Outcome)}
	})
}

// CalledTools lists the tool calls of a decision trace, skipping
// transfer_to_agent.
func CalledTools(actions []core.Action) []string {
	out := []string{}

	for _, a := range actions {
		if a.Kind == core.ActionToolCall && a.Tool != "transfer_to_agent" {
			out = append(out, a.Tool)
		}
	}

	return out
}
