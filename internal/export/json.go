package export

import (
	"encoding/json"
	"io"
)

// JSONExporter exports conversations in JSON format (pretty-printed).
// Output round-trips cleanly back into a Conversation.
type JSONExporter struct{}

// Export exports a conversation to JSON format
func (e *JSONExporter) Export(conv *Conversation, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(conv)
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
