package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ramjan-Shaikh/trustaudit/internal/api"
	"github.com/Ramjan-Shaikh/trustaudit/internal/archive"
	"github.com/Ramjan-Shaikh/trustaudit/internal/audit"
	"github.com/Ramjan-Shaikh/trustaudit/internal/input"
	"github.com/Ramjan-Shaikh/trustaudit/internal/session"
)

var chatSessionID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive audited chat session",
	Long: `Start an interactive chat loop. Each answer is shown with the
auditor's verdict. Inside the loop:

  /search <text>   filter the visible transcript
  /reaudit         re-run the audit on the latest answer
  /clear           delete the session transcript (asks for confirmation)
  exit, quit       leave the chat`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "Resume an existing session by id")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	store := session.New(client, cfg.Chat.HistoryLimit)
	integrator := audit.NewIntegrator(client)
	arc := archive.New(cfg.Archive.Path)
	defer arc.Close()

	if chatSessionID != "" {
		msgs, err := store.Switch(ctx, chatSessionID)
		if err != nil {
			return fmt.Errorf("resume session %s: %w", chatSessionID, err)
		}
		printTranscript(out, msgs)
	}
	archived := len(store.Messages())

	reader := input.NewInteractive("> ", 50)
	fmt.Fprintln(out, headerStyle.Render("TrustAudit chat")+dimStyle.Render("  (exit or quit to leave)"))

	for {
		if _, interactive := reader.(*input.InteractiveReader); !interactive {
			fmt.Fprint(out, "> ")
		}
		line, err := reader.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		switch {
		case strings.HasPrefix(line, "/search"):
			query := strings.TrimSpace(strings.TrimPrefix(line, "/search"))
			printTranscript(out, store.Filter(query))

		case line == "/reaudit":
			last := lastAssistantOf(store.Messages())
			if last == nil {
				fmt.Fprintln(out, warnStyle.Render("nothing to re-audit yet"))
				continue
			}
			verdict, err := integrator.Reaudit(ctx, *last)
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render("re-audit failed: "+err.Error()))
				continue
			}
			fmt.Fprintln(out, verdictBadge(verdict))

		case line == "/clear":
			if !confirm(out, reader, "Delete this session's transcript?") {
				continue
			}
			if err := store.Clear(ctx, store.SessionID()); err != nil {
				fmt.Fprintln(out, errorStyle.Render("clear failed: "+err.Error()))
				continue
			}
			archived = 0
			fmt.Fprintln(out, dimStyle.Render("transcript cleared"))

		default:
			reply, verdict, err := store.Submit(ctx, line)
			if err != nil {
				if errors.Is(err, session.ErrSubmitInFlight) {
					fmt.Fprintln(out, warnStyle.Render("previous request still running"))
					continue
				}
				fmt.Fprintln(out, errorStyle.Render(err.Error()))
				continue
			}
			integrator.Set(verdict)
			printReply(out, reply, verdict)

			msgs := store.Messages()
			if archived > len(msgs) {
				archived = 0
			}
			arc.SaveAll(msgs[archived:])
			archived = len(msgs)
		}
	}
}

func printReply(out io.Writer, reply *api.Message, verdict *api.AuditResult) {
	if reply == nil {
		return
	}
	fmt.Fprintln(out, assistantStyle.Render(reply.Content))
	fmt.Fprintln(out, verdictBadge(verdict))
	if meta, presence := audit.ParseMetadata(*reply); presence == audit.MetadataValid && meta.Improved {
		fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("answer improved after %d iterations", meta.Iterations)))
	}
}

func printTranscript(out io.Writer, msgs []api.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(out, dimStyle.Render("(no messages)"))
		return
	}
	for _, m := range msgs {
		speaker := "You"
		if m.Role == api.RoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(out, "%s %s\n", headerStyle.Render(speaker+":"), m.Content)
		if verdict := audit.ExtractFromMessage(m); verdict != nil {
			fmt.Fprintln(out, "  "+verdictBadge(verdict))
		}
	}
}

func lastAssistantOf(msgs []api.Message) *api.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == api.RoleAssistant {
			return &msgs[i]
		}
	}
	return nil
}

// confirm asks a yes/no question on the same reader used for chat input.
func confirm(out io.Writer, reader input.Reader, question string) bool {
	fmt.Fprint(out, warnStyle.Render(question+" [y/N] "))
	answer, err := reader.ReadLine()
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
