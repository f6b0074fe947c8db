package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentteam/core"
)

func newAskCmd(a *app) *cobra.Command {
	var trace bool

	cmd := &cobra.Command{
		Use:   "ask <utterance>",
		Short: "Send one utterance and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			team, err := a.newTeam(cmd.Context())
			if err != nil {
				return err
			}

			sess, err := team.CreateSession(cmd.Context(), a.cfg.UserID, a.cfg.SessionID)
			if err != nil {
				return err
			}

			res := team.Turn(cmd.Context(), sess, strings.Join(args, " "))
			out := cmd.OutOrStdout()

			if trace {
				for _, act := range res.Actions {
					fmt.Fprintf(out, "  · %s\n", describe(act))
				}
			}

			fmt.Fprintln(out, res.Text)

			return nil
		},
	}

	cmd.Flags().BoolVar(&trace, "trace", false, "print the decision trace before the answer")

	return cmd
}

func describe(a core.Action) string {
	switch a.Kind {
	case core.ActionTransfer:
		return fmt.Sprintf("%s → %s", a.From, a.Agent)
	case core.ActionToolCall:
		return fmt.Sprintf("%s calls %s %v", a.From, a.Tool, a.Args)
	case core.ActionToolResult:
		if a.Result != nil {
			return fmt.Sprintf("%s ← %s [%s] %s", a.From, a.Tool, a.Result.Status, a.Result.Text())
		}
		return fmt.Sprintf("%s ← %s", a.From, a.Tool)
	case core.ActionDecline:
		return a.From + " declines"
	default:
		return fmt.Sprintf("%s %s %s", a.From, a.Kind, a.Text)
	}
}
