package commands

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/Ramjan-Shaikh/trustaudit/internal/api"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	verdictStyles = map[string]lipgloss.Style{
		api.VerdictPass:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("40")),
		api.VerdictRevise: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220")),
		api.VerdictFail:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}

	verdictDefaultStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
)

// verdictBadge renders an audit verdict with its confidence, styled by
// outcome. A nil audit renders as an unknown verdict.
func verdictBadge(a *api.AuditResult) string {
	if a == nil {
		return verdictDefaultStyle.Render("audit: " + api.VerdictUnknown)
	}
	st, ok := verdictStyles[a.Verdict]
	if !ok {
		st = verdictDefaultStyle
	}
	label := "audit: " + a.Verdict
	if a.Confidence != nil {
		label += " (" + strconv.FormatFloat(*a.Confidence, 'g', -1, 64) + ")"
	}
	return st.Render(label)
}
