package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Message roles as persisted by the server.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Audit verdicts.
const (
	VerdictPass    = "pass"
	VerdictRevise  = "revise"
	VerdictFail    = "fail"
	VerdictUnknown = "unknown"
)

// LocalIDPrefix marks message ids minted by this client for optimistic
// echoes. The server never issues ids with this prefix, so a reload that
// replaces the message list drops them by construction.
const LocalIDPrefix = "local-"

// MessageID is a message identity. The server issues numeric ids; the
// client mints string ids prefixed with LocalIDPrefix for provisional
// echo messages, so the type is a string that tolerates JSON numbers.
type MessageID string

// UnmarshalJSON accepts both string and number encodings.
func (id *MessageID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = MessageID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("message id: %w", err)
	}
	*id = MessageID(n.String())
	return nil
}

// IsLocal reports whether the id was minted client-side.
func (id MessageID) IsLocal() bool {
	return strings.HasPrefix(string(id), LocalIDPrefix)
}

// Time wraps time.Time with tolerant decoding: the server emits ISO-8601
// timestamps that may or may not carry a timezone suffix.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// UnmarshalJSON decodes any of the server's timestamp renderings.
func (t *Time) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp %q: unrecognised format", s)
}

// MarshalJSON renders RFC3339 in UTC.
func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// Message is one persisted transcript entry.
type Message struct {
	ID        MessageID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp Time      `json:"timestamp"`
	SessionID string    `json:"session_id,omitempty"`
	// Metadata is an opaque JSON blob present on assistant messages; see
	// package audit for its decoded form.
	Metadata string `json:"message_metadata,omitempty"`
}

// AuditResult is the auditor's verdict on an answer. Never persisted by
// the client; always received on a response or parsed out of metadata.
type AuditResult struct {
	Verdict     string   `json:"verdict"`
	Confidence  *float64 `json:"confidence,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

// ResultNode is the executor's result payload inside an execute response.
type ResultNode struct {
	ID      string `json:"id"`
	Type    string `json:"type,omitempty"`
	Content string `json:"content"`
	// Metadata, when present, is a JSON string that may nest an audit.
	Metadata string `json:"metadata,omitempty"`
}

// ExecuteResponse is the server's answer to one submitted turn.
type ExecuteResponse struct {
	Result     ResultNode   `json:"result"`
	Audit      *AuditResult `json:"audit,omitempty"`
	SessionID  string       `json:"session_id"`
	MessageID  MessageID    `json:"message_id"`
	Iterations int          `json:"iterations"`
	Improved   bool         `json:"improved"`
}

// HistoryResponse wraps the ordered transcript (oldest first).
type HistoryResponse struct {
	Messages []Message `json:"messages"`
}

// ClearHistoryResponse reports a transcript deletion.
type ClearHistoryResponse struct {
	Deleted int    `json:"deleted"`
	Message string `json:"message"`
}

// SessionSummary describes one chat session (most recent first).
type SessionSummary struct {
	SessionID       string `json:"session_id"`
	LastMessageTime string `json:"last_message_time"`
	MessageCount    int    `json:"message_count"`
}

// SessionsResponse wraps the session listing.
type SessionsResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

// Node type lanes recognised by the graph transformer.
const (
	NodeTask   = "task"
	NodeResult = "result"
	NodeAudit  = "audit"
)

// Edge relation labels the server is known to emit.
const (
	EdgeGeneratedBy    = "GeneratedBy"
	EdgeCheckedBy      = "CheckedBy"
	EdgeImprovedBy     = "ImprovedBy"
	EdgeRespondedTo    = "RespondedTo"
	EdgeContainsResult = "ContainsResult"
)

// GraphNode is the raw server form of a knowledge-graph node.
type GraphNode struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// GraphEdge is a provenance relation between two nodes.
type GraphEdge struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

// GraphSnapshot is the full node/edge listing; no pagination.
type GraphSnapshot struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// ClearGraphResponse reports a graph deletion.
type ClearGraphResponse struct {
	DeletedNodes int    `json:"deleted_nodes"`
	DeletedEdges int    `json:"deleted_edges"`
	Message      string `json:"message"`
}

// Token is an issued bearer credential.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// User is an account as returned by signup and whoami.
type User struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	CreatedAt Time   `json:"created_at"`
}
