package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ramjan-Shaikh/trustaudit/internal/api"
)

func TestLayout_LanesAndSpacing(t *testing.T) {
	nodes := []api.GraphNode{
		{ID: "t1", Type: "task", Content: "a"},
		{ID: "t2", Type: "task", Content: "b"},
		{ID: "r1", Type: "result", Content: "c"},
		{ID: "a1", Type: "audit", Content: "d"},
		{ID: "x1", Type: "note", Content: "e"},
	}

	rendered, _, err := Layout(nodes, nil)
	require.NoError(t, err)
	require.Len(t, rendered, 5)

	byID := map[string]RenderNode{}
	for _, n := range rendered {
		byID[n.ID] = n
	}

	require.Equal(t, Point{X: 100, Y: 100}, byID["t1"].Position)
	require.Equal(t, Point{X: 100, Y: 250}, byID["t2"].Position)
	require.Equal(t, Point{X: 400, Y: 100}, byID["r1"].Position)
	require.Equal(t, Point{X: 700, Y: 100}, byID["a1"].Position)
	require.Equal(t, Point{X: 200, Y: 100}, byID["x1"].Position)
}

func TestLayout_Deterministic(t *testing.T) {
	nodes := []api.GraphNode{
		{ID: "t1", Type: "task", Content: "Summarize X"},
		{ID: "r1", Type: "result", Content: "X is a thing"},
		{ID: "a1", Type: "audit", Content: `{"verdict":"pass","confidence":0.9}`},
	}
	edges := []api.GraphEdge{
		{Source: "t1", Target: "r1", Label: api.EdgeGeneratedBy},
		{Source: "r1", Target: "a1", Label: api.EdgeCheckedBy},
	}

	n1, e1, err1 := Layout(nodes, edges)
	n2, e2, err2 := Layout(nodes, edges)
	require.NoError(t, err1)
	require.NoError(t, err2)

	j1n, _ := json.Marshal(n1)
	j2n, _ := json.Marshal(n2)
	require.Equal(t, string(j1n), string(j2n), "same input must produce byte-identical node output")
	j1e, _ := json.Marshal(e1)
	j2e, _ := json.Marshal(e2)
	require.Equal(t, string(j1e), string(j2e), "same input must produce byte-identical edge output")
}

// The worked example: a task, its result, and a passing audit, with the
// result checked by the audit.
func TestLayout_WorkedExample(t *testing.T) {
	nodes := []api.GraphNode{
		{ID: "t1", Type: "task", Content: "Summarize X"},
		{ID: "r1", Type: "result", Content: "X is a concise thing"},
		{ID: "a1", Type: "audit", Content: `{"verdict":"pass","confidence":0.9}`},
	}
	edges := []api.GraphEdge{{Source: "r1", Target: "a1", Label: api.EdgeCheckedBy}}

	rendered, renderedEdges, err := Layout(nodes, edges)
	require.NoError(t, err)

	require.Equal(t, "TASK: Summarize X…", rendered[0].Label)
	require.Equal(t, "RESULT: X is a concise thing…", rendered[1].Label)
	require.Equal(t, "AUDIT: pass(0.9)", rendered[2].Label)

	require.Len(t, renderedEdges, 1)
	require.Equal(t, EdgeColor(api.EdgeCheckedBy), renderedEdges[0].Color)
	require.NotEqual(t, DefaultEdgeColor, renderedEdges[0].Color)
	require.Equal(t, "r1-a1", renderedEdges[0].ID)
}

func TestLayout_DanglingEdgeSurfacedNotDropped(t *testing.T) {
	nodes := []api.GraphNode{{ID: "t1", Type: "task", Content: "a"}}
	edges := []api.GraphEdge{
		{Source: "t1", Target: "ghost", Label: api.EdgeGeneratedBy},
	}

	rendered, renderedEdges, err := Layout(nodes, edges)
	var dangling *DanglingEdgeError
	require.ErrorAs(t, err, &dangling)
	require.Len(t, dangling.Edges, 1)
	require.Equal(t, "ghost", dangling.Edges[0].Target)

	// The render output is complete despite the error.
	require.Len(t, rendered, 1)
	require.Len(t, renderedEdges, 1)
}

func TestLabelFor_AuditVariants(t *testing.T) {
	conf := func(c string) api.GraphNode {
		return api.GraphNode{ID: "a", Type: "audit", Content: c}
	}

	require.Equal(t, "AUDIT: pass(0.9)", LabelFor(conf(`{"verdict":"pass","confidence":0.9}`)))
	require.Equal(t, "AUDIT: fail(0.25)", LabelFor(conf(`{"verdict":"fail","confidence":0.25}`)))
	require.Equal(t, "AUDIT: revise", LabelFor(conf(`{"verdict":"revise"}`)))

	// Fenced content parses too.
	fenced := "```json\n{\"verdict\":\"pass\",\"confidence\":0.8}\n```"
	require.Equal(t, "AUDIT: pass(0.8)", LabelFor(conf(fenced)))

	// Malformed content never raises; it falls back to a truncated raw label.
	require.Equal(t, "AUDIT: not json at all…", LabelFor(conf("not json at all")))
	long := "this malformed audit content is definitely longer than thirty-five characters"
	got := LabelFor(conf(long))
	require.Equal(t, "AUDIT: "+string([]rune(long)[:35])+"…", got)
}

func TestLabelFor_DoesNotMutateContent(t *testing.T) {
	n := api.GraphNode{ID: "t1", Type: "task", Content: "a very long task description that exceeds thirty-five characters"}
	_ = LabelFor(n)
	require.Equal(t, "a very long task description that exceeds thirty-five characters", n.Content)
}

func TestPalette_CentralizedMapping(t *testing.T) {
	require.Equal(t, "#3b82f6", NodeStyle("task").Color)
	require.Equal(t, "#22c55e", NodeStyle("result").Color)
	require.Equal(t, "#eab308", NodeStyle("audit").Color)
	require.Equal(t, defaultNodeStyle, NodeStyle("mystery"))

	require.NotEqual(t, DefaultEdgeColor, EdgeColor(api.EdgeGeneratedBy))
	require.NotEqual(t, DefaultEdgeColor, EdgeColor(api.EdgeCheckedBy))
	require.Equal(t, DefaultEdgeColor, EdgeColor("SomethingElse"))
}
