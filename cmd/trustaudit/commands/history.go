package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ramjan-Shaikh/trustaudit/internal/archive"
	"github.com/Ramjan-Shaikh/trustaudit/internal/input"
	"github.com/Ramjan-Shaikh/trustaudit/internal/session"
)

var (
	historySessionID string
	historyLimit     int
	historySearch    string
	historyYes       bool
	historyOffline   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and manage chat transcripts",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show a session's transcript",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if historyOffline {
			arc := archive.New(cfg.Archive.Path)
			defer arc.Close()
			printTranscript(out, arc.List(historySessionID))
			return nil
		}

		store := session.New(client, cfg.Chat.HistoryLimit)
		if _, err := store.LoadHistory(cmd.Context(), historySessionID, historyLimit); err != nil {
			return err
		}
		printTranscript(out, store.Filter(historySearch))
		return nil
	},
}

var historySessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List known sessions, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := client.Sessions(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, dimStyle.Render("(no sessions)"))
			return nil
		}
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%-40s %-8s %s", "SESSION", "MSGS", "LAST ACTIVITY")))
		for _, s := range sessions {
			fmt.Fprintf(out, "%-40s %-8d %s\n", s.SessionID, s.MessageCount, s.LastMessageTime)
		}
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete a session's transcript on the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if historySessionID == "" {
			return fmt.Errorf("--session is required")
		}
		if !historyYes && !confirm(out, input.NewStdinReader(os.Stdin), fmt.Sprintf("Delete transcript of session %s?", historySessionID)) {
			fmt.Fprintln(out, dimStyle.Render("aborted"))
			return nil
		}
		resp, err := client.ClearHistory(cmd.Context(), historySessionID)
		if err != nil {
			return err
		}
		msg := strings.TrimSpace(resp.Message)
		if msg == "" {
			msg = fmt.Sprintf("deleted %d messages", resp.Deleted)
		}
		fmt.Fprintln(out, dimStyle.Render(msg))
		return nil
	},
}

func init() {
	historyListCmd.Flags().StringVar(&historySessionID, "session", "", "Session id (defaults to the server's default session)")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 0, "Maximum messages to fetch (0 uses the configured default)")
	historyListCmd.Flags().StringVar(&historySearch, "search", "", "Case-insensitive content filter")
	historyListCmd.Flags().BoolVar(&historyOffline, "offline", false, "Read from the local archive instead of the server")

	historySessionsCmd.Flags().IntVar(&historyLimit, "limit", 0, "Maximum sessions to list (0 means server default)")

	historyClearCmd.Flags().StringVar(&historySessionID, "session", "", "Session id to clear")
	historyClearCmd.Flags().BoolVarP(&historyYes, "yes", "y", false, "Skip the confirmation prompt")

	historyCmd.AddCommand(historyListCmd, historySessionsCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
