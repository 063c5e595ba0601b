// Package graph turns the raw node/edge snapshot into a renderable,
// positioned, labeled graph description. Everything here is a pure
// function of its input: no randomness, no clock, no viewport, so the
// same snapshot always yields byte-identical output.
package graph

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Ramjan-Shaikh/trustaudit/internal/api"
)

// Point is a node position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Style is a node's fixed visual treatment.
type Style struct {
	Color string `json:"color"`
	Size  int    `json:"size"`
}

// RenderNode is the positioned, labeled form of a GraphNode. Raw node
// identity is preserved end to end.
type RenderNode struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Position Point  `json:"position"`
	Style    Style  `json:"style"`
}

// RenderEdge adds a stroke color derived purely from the relation label.
type RenderEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
	Color  string `json:"color"`
}

// Lane x-coordinates by node type. The three-lane layout trades topology
// awareness for a guarantee: no two nodes in a lane overlap vertically,
// and provenance chains read left to right.
const (
	laneTaskX    = 100
	laneResultX  = 400
	laneAuditX   = 700
	laneOtherX   = 200
	laneTopY     = 100
	laneSpacingY = 150
)

// Centralized palette: the single source of truth for node and edge
// colors, shared by the rendered graph and the legend.
var nodeStyles = map[string]Style{
	api.NodeTask:   {Color: "#3b82f6", Size: 26},
	api.NodeResult: {Color: "#22c55e", Size: 30},
	api.NodeAudit:  {Color: "#eab308", Size: 24},
}

var defaultNodeStyle = Style{Color: "#9ca3af", Size: 20}

var edgeColors = map[string]string{
	api.EdgeGeneratedBy: "#16a34a",
	api.EdgeCheckedBy:   "#ca8a04",
	api.EdgeImprovedBy:  "#8b5cf6",
}

// DefaultEdgeColor is the neutral stroke for unrecognized relations.
const DefaultEdgeColor = "#94a3b8"

// NodeStyle maps a node type to its fixed style.
func NodeStyle(nodeType string) Style {
	if s, ok := nodeStyles[nodeType]; ok {
		return s
	}
	return defaultNodeStyle
}

// EdgeColor maps a relation label to its stroke color.
func EdgeColor(label string) string {
	if c, ok := edgeColors[label]; ok {
		return c
	}
	return DefaultEdgeColor
}

// NodeTypes returns the node types with a dedicated style, for legends.
func NodeTypes() []string {
	return []string{api.NodeTask, api.NodeResult, api.NodeAudit}
}

// DanglingEdgeError reports edges whose source or target is missing from
// the snapshot. This indicates a server/client desync and must be
// surfaced; the offending edges are still included in the render output.
type DanglingEdgeError struct {
	Edges []api.GraphEdge
}

func (e *DanglingEdgeError) Error() string {
	refs := make([]string, len(e.Edges))
	for i, edge := range e.Edges {
		refs[i] = fmt.Sprintf("%s->%s", edge.Source, edge.Target)
	}
	return fmt.Sprintf("graph: %d edge(s) reference missing nodes: %s", len(e.Edges), strings.Join(refs, ", "))
}

// Layout converts a raw snapshot into positioned render nodes and colored
// render edges. Deterministic: positions depend only on type and input
// order. The returned error, if any, is a *DanglingEdgeError; the render
// output is complete either way.
func Layout(nodes []api.GraphNode, edges []api.GraphEdge) ([]RenderNode, []RenderEdge, error) {
	renderNodes := make([]RenderNode, 0, len(nodes))
	known := make(map[string]struct{}, len(nodes))
	laneCount := make(map[float64]int)

	for _, n := range nodes {
		x := laneX(n.Type)
		y := float64(laneTopY + laneSpacingY*laneCount[x])
		laneCount[x]++
		known[n.ID] = struct{}{}
		renderNodes = append(renderNodes, RenderNode{
			ID:       n.ID,
			Label:    LabelFor(n),
			Position: Point{X: x, Y: y},
			Style:    NodeStyle(n.Type),
		})
	}

	renderEdges := make([]RenderEdge, 0, len(edges))
	var dangling []api.GraphEdge
	for _, e := range edges {
		id := e.ID
		if id == "" {
			id = e.Source + "-" + e.Target
		}
		if _, ok := known[e.Source]; !ok {
			dangling = append(dangling, e)
		} else if _, ok := known[e.Target]; !ok {
			dangling = append(dangling, e)
		}
		renderEdges = append(renderEdges, RenderEdge{
			ID:     id,
			Source: e.Source,
			Target: e.Target,
			Label:  e.Label,
			Color:  EdgeColor(e.Label),
		})
	}

	if len(dangling) > 0 {
		return renderNodes, renderEdges, &DanglingEdgeError{Edges: dangling}
	}
	return renderNodes, renderEdges, nil
}

func laneX(nodeType string) float64 {
	switch nodeType {
	case api.NodeTask:
		return laneTaskX
	case api.NodeResult:
		return laneResultX
	case api.NodeAudit:
		return laneAuditX
	default:
		return laneOtherX
	}
}

const labelContentRunes = 35

// LabelFor renders a node's display label. Audit nodes parse their
// content (optionally fenced) as JSON into "AUDIT: <verdict>(<conf>)";
// anything unparseable falls back to a truncated raw label. Truncation is
// presentation only; the node content is never mutated.
func LabelFor(n api.GraphNode) string {
	if n.Type == api.NodeAudit {
		if label, ok := auditLabel(n.Content); ok {
			return label
		}
	}
	return strings.ToUpper(n.Type) + ": " + truncate(n.Content)
}

func auditLabel(content string) (string, bool) {
	var verdict struct {
		Verdict    string   `json:"verdict"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(stripFences(content)), &verdict); err != nil || verdict.Verdict == "" {
		return "", false
	}
	if verdict.Confidence == nil {
		return "AUDIT: " + verdict.Verdict, true
	}
	return "AUDIT: " + verdict.Verdict + "(" + strconv.FormatFloat(*verdict.Confidence, 'g', -1, 64) + ")", true
}

// stripFences removes surrounding markdown code-fence markers, with or
// without a language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// Drop the rest of the fence line (e.g. a "json" tag).
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) > labelContentRunes {
		runes = runes[:labelContentRunes]
	}
	return string(runes) + "…"
}
