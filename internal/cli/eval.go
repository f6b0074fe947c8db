package cli

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentteam/evaluation"
)

//go:embed demo_suite.yaml
var demoSuite []byte

func newEvalCmd(a *app) *cobra.Command {
	var parallel int

	cmd := &cobra.Command{
		Use:   "eval [suite-file]",
		Short: "Replay an evaluation suite and report failures",
		Long: `eval replays every case of a suite (yaml or json) in a fresh session and
checks each answer. Without a file the built-in demo suite runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			suite, err := loadSuite(args)
			if err != nil {
				return err
			}

			team, err := a.newTeam(cmd.Context())
			if err != nil {
				return err
			}

			report, err := evaluation.NewHarness(team, func(o *evaluation.Options) {
				o.Parallel = parallel
				o.UserID = a.cfg.UserID
				o.Logger = a.logger
			}).Run(cmd.Context(), suite)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			for _, c := range report.Cases {
				mark := "✅"
				if !c.Passed {
					mark = "❌"
				}

				fmt.Fprintf(out, "%s %s (%s)\n", mark, c.Name, c.Duration.Round(time.Millisecond))

				for _, t := range c.Turns {
					for _, r := range t.Results {
						if !r.Passed {
							fmt.Fprintf(out, "    %q: %s: %s\n", t.Invocation.UserContent, r.Evaluator, r.Reason)
						}
					}
				}
			}

			fmt.Fprintf(out, "\n%s: %d passed, %d failed\n", report.Suite, report.Passed, report.Failed)

			if !report.OK() {
				return fmt.Errorf("%d of %d cases failed", report.Failed, len(report.Cases))
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&parallel, "parallel", 4, "cases replayed concurrently")

	return cmd
}

func loadSuite(args []string) (*evaluation.Suite, error) {
	if len(args) == 1 {
		return evaluation.LoadSuite(args[0])
	}

	var s evaluation.Suite
	if err := yaml.Unmarshal(demoSuite, &s); err != nil {
		return nil, fmt.Errorf("parse demo suite: %w", err)
	}

	return &s, nil
}
