package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sinh-x/ai-usage-log/internal/cli"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(cli.ColorText).
			Padding(0, 1)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cli.ColorBorder)

	selectedStyle = lipgloss.NewStyle().
			Foreground(cli.ColorAccent).
			Bold(true)

	rowStyle = lipgloss.NewStyle().
			Foreground(cli.ColorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(cli.ColorTextMuted)

	currentStyle = lipgloss.NewStyle().
			Foreground(cli.ColorGreen)

	statusStyle = lipgloss.NewStyle().
			Foreground(cli.ColorOrange).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(cli.ColorBlue).
			Bold(true)
)

func (a *App) View() string {
	if a.loading {
		return fmt.Sprintf("\n  %s loading sessions...\n", a.spinner.View())
	}
	if a.err != nil {
		return fmt.Sprintf("\n  error: %v\n\n  press q to quit\n", a.err)
	}
	if len(a.sessions) == 0 {
		return "\n  No sessions found.\n\n  press q to quit\n"
	}

	header := headerStyle.Render("ai-usage-log") +
		mutedStyle.Render("  j/k navigate · y copy resume · r refresh · q quit")

	left := paneStyle.Width(listPaneWidth).Height(a.paneHeight()).Render(a.renderList())
	right := paneStyle.Width(a.detailWidth()).Height(a.paneHeight()).Render(a.renderDetail())

	status := ""
	if a.statusMsg != "" {
		status = statusStyle.Render(a.statusMsg)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		status,
	)
}

func (a *App) renderList() string {
	var b strings.Builder
	visible := a.paneHeight()

	// Keep the cursor in view with a simple scroll window.
	start := 0
	if a.cursor >= visible {
		start = a.cursor - visible + 1
	}

	for i := start; i < len(a.sessions) && i-start < visible; i++ {
		s := a.sessions[i]
		marker := "  "
		if s.IsCurrent {
			marker = currentStyle.Render("● ")
		}

		line := fmt.Sprintf("%s%s · %s",
			marker,
			cli.Truncate(s.ProjectName, 18),
			cli.Truncate(s.StartTime, 16),
		)
		if i == a.cursor {
			b.WriteString(selectedStyle.Render("▸ " + line))
		} else {
			b.WriteString(rowStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderDetail shows the visible window of the detail lines.
func (a *App) renderDetail() string {
	lines := a.detailLines()
	if len(lines) == 0 {
		return mutedStyle.Render("select a session")
	}

	start := a.detailScroll
	if start >= len(lines) {
		start = len(lines) - 1
	}
	end := start + a.paneHeight()
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}

// detailLines renders the reconstructed conversation as styled lines.
func (a *App) detailLines() []string {
	rec := a.detail
	if rec == nil {
		return nil
	}

	var b strings.Builder
	b.WriteString(promptStyle.Render(rec.ProjectName))
	if rec.GitBranch != "" {
		b.WriteString(mutedStyle.Render("  " + rec.GitBranch))
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%s · %s · %s tokens",
		rec.StartTime,
		cli.FormatMinutes(rec.DurationMinutes),
		cli.FormatTokens(rec.TotalTokens),
	)))
	b.WriteString("\n\n")

	for _, turn := range rec.Conversation {
		b.WriteString(promptStyle.Render("❯ "))
		b.WriteString(rowStyle.Render(turn.UserPrompt))
		b.WriteString("\n")
		if turn.ResponseSummary != "" {
			b.WriteString(rowStyle.Render("  " + turn.ResponseSummary))
			b.WriteString("\n")
		}

		meta := []string{cli.FormatTokens(turn.Tokens.Total()) + " tok"}
		if turn.ContextWindow > 0 {
			meta = append(meta, "ctx "+cli.FormatTokens(turn.ContextWindow))
		}
		if len(turn.ToolsUsed) > 0 {
			meta = append(meta, fmt.Sprintf("%d tools", len(turn.ToolsUsed)))
		}
		if turn.SubagentTokens != nil {
			meta = append(meta, "sub "+cli.FormatTokens(turn.SubagentTokens.Total()))
		}
		b.WriteString(mutedStyle.Render("  " + strings.Join(meta, " · ")))
		b.WriteString("\n\n")
	}

	return strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
}
