package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ramjan-Shaikh/trustaudit/internal/archive"
	"github.com/Ramjan-Shaikh/trustaudit/internal/session"
)

var archiveSessionID string

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Snapshot transcripts into the local archive",
	Long: `The archive is a local SQLite copy of server transcripts, readable
without a server connection (see also "history list --offline").`,
}

var archiveSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Fetch a session's transcript and archive it locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := session.New(client, cfg.Chat.HistoryLimit)
		msgs, err := store.LoadHistory(cmd.Context(), archiveSessionID, 0)
		if err != nil {
			return err
		}

		arc := archive.New(cfg.Archive.Path)
		defer arc.Close()
		arc.SaveAll(msgs)

		fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render(fmt.Sprintf("archived %d messages", len(msgs))))
		return nil
	},
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show archived messages for a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		arc := archive.New(cfg.Archive.Path)
		defer arc.Close()
		printTranscript(cmd.OutOrStdout(), arc.List(archiveSessionID))
		return nil
	},
}

func init() {
	archiveSaveCmd.Flags().StringVar(&archiveSessionID, "session", "", "Session id to archive (defaults to the server's default session)")
	archiveListCmd.Flags().StringVar(&archiveSessionID, "session", "", "Session id to list")

	archiveCmd.AddCommand(archiveSaveCmd, archiveListCmd)
	rootCmd.AddCommand(archiveCmd)
}
