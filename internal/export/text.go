package export

import (
	"fmt"
	"io"

	"github.com/Ramjan-Shaikh/trustaudit/internal/api"
)

const textBanner = "=== TrustAudit Conversation Export ==="

// TextExporter exports conversations as a plain-text transcript.
type TextExporter struct{}

// Export exports a conversation to plain text
func (e *TextExporter) Export(conv *Conversation, w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s\n\n", textBanner); err != nil {
		return err
	}
	for _, msg := range conv.Messages {
		if _, err := fmt.Fprintf(w, "%s: %s\n\n", speaker(msg.Role), msg.Content); err != nil {
			return err
		}
	}
	return nil
}

// Extension returns the file extension for this format
func (e *TextExporter) Extension() string {
	return "txt"
}

func speaker(role string) string {
	switch role {
	case api.RoleUser:
		return "You"
	case api.RoleAssistant:
		return "Assistant"
	default:
		return role
	}
}
