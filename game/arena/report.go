package arena

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Terminal palette for the simulation report.
var (
	reportAccent = lipgloss.Color("#7D56F4")
	reportGreen  = lipgloss.Color("#00D26A")
	reportRed    = lipgloss.Color("#FF6B6B")
	reportAmber  = lipgloss.Color("#FFB800")
	reportMuted  = lipgloss.Color("#6B7280")

	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(reportAccent).Padding(0, 1)
	labelStyle   = lipgloss.NewStyle().Foreground(reportMuted)
	valueStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA"))
	winStyle     = lipgloss.NewStyle().Bold(true).Foreground(reportGreen)
	lossStyle    = lipgloss.NewStyle().Bold(true).Foreground(reportRed)
	drawStyle    = lipgloss.NewStyle().Bold(true).Foreground(reportAmber)
	borderStyle  = lipgloss.NewStyle().Foreground(reportMuted)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(reportMuted)
)

// FormatMatchLine renders one finished match as a single log line,
// for verbose batch output.
func FormatMatchLine(seq int, res Result) string {
	var outcome string
	switch res.Outcome {
	case OutcomeOpponentWin:
		outcome = winStyle.Render("opponent")
	case OutcomePlayerWin:
		outcome = lossStyle.Render("player")
	default:
		outcome = drawStyle.Render("draw")
	}
	return fmt.Sprintf("  %s %s %s %s %s",
		labelStyle.Render(fmt.Sprintf("#%04d", seq)),
		borderStyle.Render("[")+outcome+borderStyle.Render("]"),
		valueStyle.Render(res.Opponent),
		labelStyle.Render("vs "+res.Player),
		labelStyle.Render(fmt.Sprintf("%.1fs  hp %.0f/%.0f", res.Duration, res.OpponentHP, res.PlayerHP)),
	)
}

// RenderBatchSummary renders the full post-batch report.
func RenderBatchSummary(s *BatchSummary) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("  " + sectionStyle.Render(fmt.Sprintf("Simulation Results  (%d matches)", s.Matches)) + "\n\n")

	const boxWidth = 50
	const labelW = 22
	const innerW = 46

	border := "+" + strings.Repeat("-", boxWidth-2) + "+"
	row := func(label, value string, style lipgloss.Style) {
		for len(label) < labelW {
			label += " "
		}
		for len([]rune(value)) < innerW-labelW {
			value += " "
		}
		b.WriteString(fmt.Sprintf("  |  %s%s|\n", labelStyle.Render(label), style.Render(value)))
	}
	pct := func(n int) string {
		if s.Matches == 0 {
			return fmt.Sprintf("%d", n)
		}
		return fmt.Sprintf("%d  (%.1f%%)", n, 100*float64(n)/float64(s.Matches))
	}

	b.WriteString(borderStyle.Render("  "+border) + "\n")
	row("Opponent wins:", pct(s.OpponentWins), winStyle)
	row("Player wins:", pct(s.PlayerWins), lossStyle)
	if s.Draws > 0 {
		row("Draws / timeouts:", pct(s.Draws), drawStyle)
	}
	b.WriteString(borderStyle.Render("  "+border) + "\n")
	row("Avg duration:", fmt.Sprintf("%.1fs", s.AvgDuration), valueStyle)
	row("Avg aggression:", fmt.Sprintf("%.3f", s.AvgAggression), valueStyle)
	row("Avg phase shifts:", fmt.Sprintf("%.1f", s.AvgPhaseTransitions), valueStyle)
	row("Wall clock:", s.Elapsed.Round(time.Millisecond).String(), valueStyle)
	b.WriteString(borderStyle.Render("  "+border) + "\n")

	writeRoleTable(&b, "Opponent Role Stats", s.OpponentRoles)
	writeRoleTable(&b, "Player Role Stats", s.PlayerRoles)
	writeArchetypeTable(&b, "Opponent Archetype Distribution", s.Archetypes, winStyle)
	writeArchetypeTable(&b, "Player Archetype Distribution", s.PlayerArchetypes, lossStyle)

	b.WriteString("\n")
	return b.String()
}

// PrintBatchSummary writes the rendered report to stdout.
func PrintBatchSummary(s *BatchSummary) {
	fmt.Print(RenderBatchSummary(s))
}

func writeRoleTable(b *strings.Builder, title string, rows []RoleLine) {
	if len(rows) == 0 {
		return
	}
	b.WriteString("\n  " + valueStyle.Render(title+":") + "\n")
	b.WriteString("    " + headerStyle.Render(fmt.Sprintf("%-12s  %6s  %6s  %4s  %6s  %6s",
		"Role", "Played", "Usage%", "Wins", "WR%", "AvgDur")) + "\n")
	b.WriteString("    " + borderStyle.Render(strings.Repeat("-", 48)) + "\n")
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("    %-12s  %6d  %5.1f%%  %4d  %5.1f%%  %5.1fs\n",
			r.Name, r.Played, 100*r.Usage, r.Won, 100*r.WinRate, r.AvgDuration))
	}
}

func writeArchetypeTable(b *strings.Builder, title string, rows []ArchetypeLine, style lipgloss.Style) {
	if len(rows) == 0 {
		return
	}
	b.WriteString("\n  " + valueStyle.Render(title+":") + "\n")
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("    %-14s  played=%3d  won=%3d  WR=%s\n",
			r.Name, r.Played, r.Won, style.Render(fmt.Sprintf("%5.1f%%", 100*r.WinRate))))
	}
}
