package evaluation

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/logging"
	"github.com/hupe1980/agentteam/runner"
)

// Target is what a Harness replays cases against. *agentteam.Team
// implements it.
type Target interface {
	CreateSession(ctx context.Context, userID, sessionID string) (*core.Session, error)
	Turn(ctx context.Context, sess *core.Session, utterance string) runner.TurnResult
}

// Options configures a Harness.
type Options struct {
	// Evaluators judge every invocation. Defaults to DefaultEvaluators().
	Evaluators []Evaluator
	// Parallel bounds concurrently replayed cases. Defaults to 1; 0 or less
	// means no limit.
	Parallel int
	// UserID owns the evaluation sessions.
	UserID string
	// Logger provides structured logging. Defaults to NoOp.
	Logger logging.Logger
}

// TurnReport is the outcome of one invocation.
type TurnReport struct {
	Invocation Invocation        `json:"invocation"`
	Actual     runner.TurnResult `json:"actual"`
	Results    []Result          `json:"results"`
	Passed     bool              `json:"passed"`
}

// CaseReport is the outcome of one case.
type CaseReport struct {
	Name      string        `json:"name"`
	SessionID string        `json:"session_id"`
	Turns     []TurnReport  `json:"turns"`
	Passed    bool          `json:"passed"`
	Duration  time.Duration `json:"duration"`
}

// Report is the outcome of a suite run. Cases keep the suite order.
type Report struct {
	Suite  string       `json:"suite"`
	Cases  []CaseReport `json:"cases"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
}

// OK reports whether every case passed.
func (r *Report) OK() bool { return r.Failed == 0 }

// Harness replays suites against a Target.
type Harness struct {
	target Target
	opts   Options
}

// NewHarness creates a Harness.
func NewHarness(target Target, optFns ...func(o *Options)) *Harness {
	opts := Options{
		Parallel: 1,
		UserID:   "evaluator",
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if len(opts.Evaluators) == 0 {
		opts.Evaluators = DefaultEvaluators()
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Harness{target: target, opts: opts}
}

// Run replays every case of the suite in its own session. Cases run
// concurrently up to Options.Parallel; turns of one case run in order.
func (h *Harness) Run(ctx context.Context, suite *Suite) (*Report, error) {
	if err := suite.Validate(); err != nil {
		return nil, err
	}

	report := &Report{Suite: suite.Name, Cases: make([]CaseReport, len(suite.Cases))}

	g, ctx := errgroup.WithContext(ctx)
	if h.opts.Parallel > 0 {
		g.SetLimit(h.opts.Parallel)
	}

	for i, c := range suite.Cases {
		g.Go(func() error {
			cr, err := h.runCase(ctx, c)
			if err != nil {
				return fmt.Errorf("case %s: %w", c.Name, err)
			}

			report.Cases[i] = cr

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, cr := range report.Cases {
		if cr.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
	}

	h.opts.Logger.Info("evaluation.suite.done", "suite", suite.Name, "passed", report.Passed, "failed", report.Failed)

	return report, nil
}

func (h *Harness) runCase(ctx context.Context, c Case) (CaseReport, error) {
	id, err := gonanoid.New()
	if err != nil {
		return CaseReport{}, fmt.Errorf("generate session id: %w", err)
	}

	sess, err := h.target.CreateSession(ctx, h.opts.UserID, "eval-"+id)
	if err != nil {
		return CaseReport{}, err
	}

	start := time.Now()
	cr := CaseReport{Name: c.Name, SessionID: sess.ID(), Passed: true}

	for _, inv := range c.Invocations {
		if err := ctx.Err(); err != nil {
			return CaseReport{}, err
		}

		actual := h.target.Turn(ctx, sess, inv.UserContent)
		tr := TurnReport{Invocation: inv, Actual: actual, Passed: true}

		for _, ev := range h.opts.Evaluators {
			res := ev.Evaluate(inv, actual)
			if res == nil {
				continue
			}

			tr.Results = append(tr.Results, *res)
			if !res.Passed {
				tr.Passed = false
			}
		}

		if !tr.Passed {
			cr.Passed = false
			h.opts.Logger.Warn("evaluation.turn.failed", "case", c.Name, "user", inv.UserContent, "answer", actual.Text)
		}

		cr.Turns = append(cr.Turns, tr)
	}

	cr.Duration = time.Since(start)

	return cr, nil
}
