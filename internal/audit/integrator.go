// Package audit extracts and holds the audit verdict attached to
// assistant messages. Verdicts arrive either inline on an execute
// response or buried in a message's JSON metadata blob; this package
// makes that blob an explicit structured type with a tri-state parse
// (absent / valid / invalid) instead of opaque text.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/Ramjan-Shaikh/trustaudit/internal/api"
	"github.com/Ramjan-Shaikh/trustaudit/internal/logger"
)

// Presence classifies a metadata parse outcome.
type Presence int

const (
	// MetadataAbsent: the message carries no metadata at all.
	MetadataAbsent Presence = iota
	// MetadataValid: the blob decoded into the known shape.
	MetadataValid
	// MetadataInvalid: a blob is present but is not valid JSON. Tolerated,
	// never fatal; treated as "no audit data".
	MetadataInvalid
)

// Metadata is the decoded form of an assistant message's metadata blob.
type Metadata struct {
	ResultID   string           `json:"result_id"`
	Audit      *api.AuditResult `json:"audit"`
	Improved   bool             `json:"improved"`
	Iterations int              `json:"iterations"`
}

// Local failures reported before any network call.
var (
	ErrNoMetadata = errors.New("audit: message has no metadata to re-audit")
	ErrNoResultID = errors.New("audit: message metadata has no result id")
)

// ParseMetadata decodes a message's metadata blob. It never fails: a
// malformed blob yields MetadataInvalid and a zero Metadata.
func ParseMetadata(msg api.Message) (Metadata, Presence) {
	if msg.Metadata == "" {
		return Metadata{}, MetadataAbsent
	}
	var meta Metadata
	if err := json.Unmarshal([]byte(msg.Metadata), &meta); err != nil {
		logger.L.Debug("malformed message metadata", "message_id", msg.ID, "error", err)
		return Metadata{}, MetadataInvalid
	}
	return meta, MetadataValid
}

// ExtractFromMessage returns the audit buried in a message's metadata, or
// nil when the metadata is absent, malformed, or carries no audit.
func ExtractFromMessage(msg api.Message) *api.AuditResult {
	meta, presence := ParseMetadata(msg)
	if presence != MetadataValid {
		return nil
	}
	return meta.Audit
}

// Reauditor is the server capability the integrator needs.
type Reauditor interface {
	Reaudit(ctx context.Context, resultID string) (*api.AuditResult, error)
}

// Integrator holds the currently displayed audit verdict and supports
// manual re-audit of any past answer. Re-audits are advisory: they
// replace the displayed verdict but never rewrite message metadata.
type Integrator struct {
	mu      sync.Mutex
	client  Reauditor
	current *api.AuditResult
}

// NewIntegrator creates an integrator backed by the given client.
func NewIntegrator(client Reauditor) *Integrator {
	return &Integrator{client: client}
}

// Current returns the displayed verdict, or nil when none is set.
func (i *Integrator) Current() *api.AuditResult {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.current
}

// Set replaces the displayed verdict. nil is allowed and means "none".
func (i *Integrator) Set(a *api.AuditResult) {
	i.mu.Lock()
	i.current = a
	i.mu.Unlock()
}

// Reaudit asks the server to re-review the result behind msg. When the
// message has no decodable metadata or no result id, it fails locally
// with no network call, and the displayed verdict is untouched.
func (i *Integrator) Reaudit(ctx context.Context, msg api.Message) (*api.AuditResult, error) {
	meta, presence := ParseMetadata(msg)
	if presence != MetadataValid {
		return nil, ErrNoMetadata
	}
	if meta.ResultID == "" {
		return nil, ErrNoResultID
	}

	fresh, err := i.client.Reaudit(ctx, meta.ResultID)
	if err != nil {
		return nil, err
	}
	i.Set(fresh)
	return fresh, nil
}
