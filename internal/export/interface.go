package export

import (
	"fmt"
	"io"
	"time"

	"github.com/Ramjan-Shaikh/trustaudit/internal/api"
)

// Conversation is the export payload: a session transcript plus the
// moment it was captured.
type Conversation struct {
	SessionID  string        `json:"session_id"`
	ExportedAt time.Time     `json:"exported_at"`
	Messages   []api.Message `json:"messages"`
}

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(conv *Conversation, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "json":
		return &JSONExporter{}, nil
	case "txt", "text":
		return &TextExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, txt)", format)
	}
}
