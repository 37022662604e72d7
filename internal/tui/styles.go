package tui

import (
	"hash/fnv"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))

	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)

	targetColumnStyle = columnStyle.
				BorderForeground(lipgloss.Color("#FFB86C"))

	columnTitleStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1)

	cardStyle = lipgloss.NewStyle().
			Padding(0, 1).
			MarginBottom(1)

	selectedCardStyle = cardStyle.
				Bold(true).
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(lipgloss.Color("#3B4252"))

	grabbedCardStyle = cardStyle.
				Faint(true).
				Strikethrough(true)

	dropMarkerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB86C")).
			MarginBottom(1)

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	formStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5B8DEF")).
			Padding(1, 2)

	labelStyle = lipgloss.NewStyle().Width(13).Foreground(lipgloss.Color("#AAAAAA"))
)

// assigneePalette uses the bright and normal ANSI colors so lipgloss can
// degrade them on limited terminals.
var assigneePalette = []lipgloss.Color{"9", "10", "11", "12", "13", "14", "1", "2", "3", "4", "5", "6"}

// assigneeStyle gives every uid a stable color. Unassigned cards stay muted.
func assigneeStyle(uid string) lipgloss.Style {
	if uid == "" {
		return mutedStyle
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(uid))
	return lipgloss.NewStyle().Foreground(assigneePalette[h.Sum32()%uint32(len(assigneePalette))])
}
