package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Ramjan-Shaikh/trustaudit/internal/graph"
	"github.com/Ramjan-Shaikh/trustaudit/internal/input"
)

var (
	graphYes     bool
	graphContent string
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect and edit the provenance graph",
	Long: `The server keeps a knowledge graph linking tasks to the results they
generated and the audits that checked them. These commands render that
graph, edit node content, and wipe it.`,
}

var graphShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Render the provenance graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		editor := graph.NewEditor(client)

		err := editor.Refresh(cmd.Context())
		var dangling *graph.DanglingEdgeError
		if err != nil && !errors.As(err, &dangling) {
			return err
		}

		nodes, edges := editor.View()
		printGraph(out, nodes, edges)
		if dangling != nil {
			fmt.Fprintln(out, warnStyle.Render(dangling.Error()))
		}
		return nil
	},
}

var graphEditCmd = &cobra.Command{
	Use:   "edit NODE_ID",
	Short: "Replace a node's content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		editor := graph.NewEditor(client)

		err := editor.Refresh(cmd.Context())
		var dangling *graph.DanglingEdgeError
		if err != nil && !errors.As(err, &dangling) {
			return err
		}
		if err := editor.Select(args[0]); err != nil {
			return err
		}

		content := graphContent
		if content == "" {
			fmt.Fprintln(out, dimStyle.Render("current content:"))
			fmt.Fprintln(out, editor.Buffer())
			fmt.Fprint(out, "new content> ")
			line, err := input.NewStdinReader(os.Stdin).ReadLine()
			if err != nil {
				return err
			}
			content = line
		}
		editor.SetBuffer(content)

		if err := editor.Save(cmd.Context()); err != nil && !errors.As(err, &dangling) {
			return err
		}
		fmt.Fprintln(out, dimStyle.Render(editor.Status()))
		return nil
	},
}

var graphClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every node and edge",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if !graphYes && !confirm(out, input.NewStdinReader(os.Stdin), "Delete the entire provenance graph?") {
			fmt.Fprintln(out, dimStyle.Render("aborted"))
			return nil
		}
		resp, err := client.ClearGraph(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("deleted %d nodes and %d edges", resp.DeletedNodes, resp.DeletedEdges)))
		return nil
	},
}

func printGraph(out io.Writer, nodes []graph.RenderNode, edges []graph.RenderEdge) {
	fmt.Fprintln(out, headerStyle.Render("Nodes"))
	for _, n := range nodes {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(n.Style.Color))
		fmt.Fprintf(out, "  %s %s %s\n",
			style.Render("●"),
			n.Label,
			dimStyle.Render(fmt.Sprintf("[%s @ %.0f,%.0f]", n.ID, n.Position.X, n.Position.Y)))
	}

	fmt.Fprintln(out, headerStyle.Render("Edges"))
	for _, e := range edges {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(e.Color))
		fmt.Fprintf(out, "  %s %s\n", style.Render(e.Label), dimStyle.Render(e.Source+" -> "+e.Target))
	}

	fmt.Fprintln(out, headerStyle.Render("Legend"))
	var parts []string
	for _, nodeType := range graph.NodeTypes() {
		st := graph.NodeStyle(nodeType)
		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color(st.Color)).Render("● "+strings.ToUpper(nodeType)))
	}
	fmt.Fprintln(out, "  "+strings.Join(parts, "  "))
}

func init() {
	graphEditCmd.Flags().StringVar(&graphContent, "content", "", "New node content (prompts when omitted)")
	graphClearCmd.Flags().BoolVarP(&graphYes, "yes", "y", false, "Skip the confirmation prompt")

	graphCmd.AddCommand(graphShowCmd, graphEditCmd, graphClearCmd)
	rootCmd.AddCommand(graphCmd)
}
