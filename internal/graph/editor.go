package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Ramjan-Shaikh/trustaudit/internal/api"
	"github.com/Ramjan-Shaikh/trustaudit/internal/logger"
)

// Client is the slice of the API gateway the editor depends on.
type Client interface {
	FetchGraph(ctx context.Context) (*api.GraphSnapshot, error)
	EditNode(ctx context.Context, id, content string) (*api.GraphNode, error)
}

// Editor local rejections.
var (
	ErrNoSelection = errors.New("graph: no node selected")
	ErrUnknownNode = errors.New("graph: node not in current snapshot")
)

// Editor applies a user edit to a single node and keeps the rendered
// view consistent. Edits are never patched in place: a successful save
// triggers a full re-fetch and re-layout so the displayed graph cannot
// diverge from the persisted one.
type Editor struct {
	client Client

	mu       sync.Mutex
	snapshot api.GraphSnapshot
	nodes    []RenderNode
	edges    []RenderEdge
	selected string
	buffer   string
	status   string
}

// NewEditor creates an editor backed by the given client.
func NewEditor(client Client) *Editor {
	return &Editor{client: client}
}

// Refresh pulls the full snapshot and re-derives the rendered view from
// scratch; positions are recomputed, never cached. A *DanglingEdgeError
// is passed through for the caller to surface; the view is still
// updated in that case.
func (e *Editor) Refresh(ctx context.Context) error {
	snap, err := e.client.FetchGraph(ctx)
	if err != nil {
		return err
	}
	nodes, edges, layoutErr := Layout(snap.Nodes, snap.Edges)

	e.mu.Lock()
	e.snapshot = *snap
	e.nodes = nodes
	e.edges = edges
	e.mu.Unlock()
	return layoutErr
}

// View returns the current rendered nodes and edges.
func (e *Editor) View() ([]RenderNode, []RenderEdge) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nodes, e.edges
}

// Select makes nodeID the edit target, seeding the edit buffer with the
// node's current content. Switching selection resets any pending buffer
// and transient status from the previous node.
func (e *Editor) Select(nodeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, n := range e.snapshot.Nodes {
		if n.ID == nodeID {
			e.selected = nodeID
			e.buffer = n.Content
			e.status = ""
			return nil
		}
	}
	e.selected = ""
	e.buffer = ""
	e.status = ""
	return fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
}

// Selected returns the current edit target, empty when none.
func (e *Editor) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// SetBuffer replaces the pending edit content.
func (e *Editor) SetBuffer(content string) {
	e.mu.Lock()
	e.buffer = content
	e.mu.Unlock()
}

// Buffer returns the pending edit content.
func (e *Editor) Buffer() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer
}

// Status returns the transient success/failure message for the current
// edit target.
func (e *Editor) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Save sends the pending edit to the server. On success the whole
// snapshot is re-fetched and re-laid-out. On failure the local snapshot
// is left untouched and a distinct, user-visible status is set.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	id := e.selected
	content := e.buffer
	e.mu.Unlock()
	if id == "" {
		return ErrNoSelection
	}

	if _, err := e.client.EditNode(ctx, id, content); err != nil {
		e.mu.Lock()
		e.status = "save failed: " + err.Error()
		e.mu.Unlock()
		return err
	}

	e.mu.Lock()
	e.status = "saved"
	e.mu.Unlock()

	if err := e.Refresh(ctx); err != nil {
		var dangling *DanglingEdgeError
		if errors.As(err, &dangling) {
			return err
		}
		// The edit persisted; only the view refresh failed.
		logger.L.Warn("post-edit graph refresh failed", "node", id, "error", err)
	}
	return nil
}
