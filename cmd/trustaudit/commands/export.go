package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ramjan-Shaikh/trustaudit/internal/api"
	"github.com/Ramjan-Shaikh/trustaudit/internal/archive"
	"github.com/Ramjan-Shaikh/trustaudit/internal/export"
	"github.com/Ramjan-Shaikh/trustaudit/internal/session"
)

var (
	exportFormat      string
	exportOutput      string
	exportSessionID   string
	exportFromArchive bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a session transcript",
	Long: `Export a session's transcript in a chosen format.

Formats:
  json - pretty-printed, round-trippable JSON
  txt  - plain-text transcript`,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}

		sessionID := exportSessionID
		var msgs []api.Message
		if exportFromArchive {
			arc := archive.New(cfg.Archive.Path)
			defer arc.Close()
			msgs = arc.List(sessionID)
		} else {
			store := session.New(client, cfg.Chat.HistoryLimit)
			msgs, err = store.LoadHistory(cmd.Context(), sessionID, 0)
			if err != nil {
				return err
			}
			sessionID = store.SessionID()
		}

		conv := &export.Conversation{
			SessionID:  sessionID,
			ExportedAt: time.Now().UTC(),
			Messages:   msgs,
		}

		var w io.Writer = cmd.OutOrStdout()
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		if err := exporter.Export(conv, w); err != nil {
			return err
		}
		if exportOutput != "" {
			fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render(fmt.Sprintf("wrote %d messages to %s", len(msgs), exportOutput)))
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Export format: json or txt")
	exportCmd.Flags().StringVarP(&exportOutput, "out", "o", "", "Output file (stdout when omitted)")
	exportCmd.Flags().StringVar(&exportSessionID, "session", "", "Session id to export")
	exportCmd.Flags().BoolVar(&exportFromArchive, "from-archive", false, "Export from the local archive instead of the server")
	rootCmd.AddCommand(exportCmd)
}
