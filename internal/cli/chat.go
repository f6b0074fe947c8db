package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentteam"
)

// DemoScript is the conversation replayed by "weatherteam chat".
var DemoScript = []string{
	"Hello!",
	"What's the weather in Hanoi?",
	"What about London?",
	"Thanks, bye!",
}

const banner = "============================================================"

func newChatCmd(a *app) *cobra.Command {
	var (
		interactive bool
		parallel    int
		scriptFile  string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Replay the demo conversation (or chat interactively)",
		Long: `chat replays a scripted conversation through one session and prints
every answer. Use --script to replay your own utterances (one per line),
--parallel to replay the script in several independent sessions at once and
--interactive to type the utterances yourself.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			team, err := a.newTeam(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if interactive {
				return a.chatInteractive(cmd, team)
			}

			script := DemoScript
			if scriptFile != "" {
				if script, err = readScript(scriptFile); err != nil {
					return err
				}
			}

			if parallel < 1 {
				parallel = 1
			}

			transcripts := make([]string, parallel)

			g, ctx := errgroup.WithContext(cmd.Context())
			for i := range parallel {
				sessionID := a.cfg.SessionID
				if parallel > 1 {
					sessionID = fmt.Sprintf("%s-%d", a.cfg.SessionID, i+1)
				}

				g.Go(func() error {
					sess, err := team.CreateSession(ctx, a.cfg.UserID, sessionID)
					if err != nil {
						return err
					}

					var sb strings.Builder
					if parallel > 1 {
						fmt.Fprintf(&sb, "\n# session %s\n", sessionID)
					}

					for _, utterance := range script {
						fmt.Fprintf(&sb, "\n👤 User: %s\n", utterance)
						fmt.Fprintf(&sb, "🤖 Agent: %s\n", team.RunTurn(ctx, sess, utterance))
					}

					transcripts[i] = sb.String()

					return nil
				})
			}

			if err := g.Wait(); err != nil {
				return err
			}

			fmt.Fprintln(out, banner)
			fmt.Fprintln(out, "🤖 Multi-Agent Weather Assistant Demo")
			fmt.Fprintln(out, banner)

			for _, t := range transcripts {
				fmt.Fprint(out, t)
			}

			fmt.Fprintln(out, "\n"+banner)
			fmt.Fprintln(out, "✅ Demo complete!")
			fmt.Fprintln(out, banner)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "read utterances from stdin")
	cmd.Flags().IntVar(&parallel, "parallel", 1, "number of independent sessions replaying the script")
	cmd.Flags().StringVar(&scriptFile, "script", "", "file with one utterance per line")

	return cmd
}

func (a *app) chatInteractive(cmd *cobra.Command, team *agentteam.Team) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	sess, err := team.CreateSession(ctx, a.cfg.UserID, a.cfg.SessionID)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Type a message, or \"exit\" to quit.")

	scanner := bufio.NewScanner(cmd.InOrStdin())

	for {
		fmt.Fprint(out, "👤 You: ")

		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		fmt.Fprintf(out, "🤖 Agent: %s\n", team.RunTurn(ctx, sess, line))
	}
}

func readScript(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()

	return scanLines(f)
}

func scanLines(r io.Reader) ([]string, error) {
	var lines []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	if len(lines) == 0 {
		return nil, fmt.Errorf("script is empty")
	}

	return lines, nil
}
