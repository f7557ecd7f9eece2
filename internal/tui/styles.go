package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sprite-ai/batchrev/internal/model"
)

// Color palette.
var (
	colorRed       = lipgloss.Color("#ff5555")
	colorGreen     = lipgloss.Color("#50fa7b")
	colorYellow    = lipgloss.Color("#f1fa8c")
	colorBlue      = lipgloss.Color("#8be9fd")
	colorPurple    = lipgloss.Color("#bd93f9")
	colorDim       = lipgloss.Color("#6272a4")
	colorBgLight   = lipgloss.Color("#343746")
	colorFg        = lipgloss.Color("#f8f8f2")
	colorOrange    = lipgloss.Color("#ffb86c")
	colorBorder    = lipgloss.Color("#44475a")
	colorHighlight = lipgloss.Color("#44475a")
)

// Style definitions.
var (
	// Queue panes
	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	paneFocusedStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorPurple).
				Padding(0, 1)

	paneTitleStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true)

	itemStyle = lipgloss.NewStyle().
			Foreground(colorFg)

	itemCursorStyle = lipgloss.NewStyle().
			Foreground(colorFg).
			Background(colorHighlight).
			Bold(true)

	itemDimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	checkStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	chainBadgeStyle = lipgloss.NewStyle().
			Foreground(colorBlue)

	approvedFlagStyle = lipgloss.NewStyle().
				Foreground(colorGreen).
				Bold(true)

	// Confirm prompt
	confirmStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Background(colorBgLight).
			Bold(true).
			Padding(0, 1)

	// Diff preview
	previewHeaderStyle = lipgloss.NewStyle().
				Foreground(colorBlue).
				Bold(true).
				Padding(0, 0, 1, 0)

	addedLineStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	deletedLineStyle = lipgloss.NewStyle().
				Foreground(colorRed)

	contextLineStyle = lipgloss.NewStyle().
				Foreground(colorFg)

	hunkHeaderStyle = lipgloss.NewStyle().
			Foreground(colorPurple).
			Bold(true)

	// Status bar
	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorFg).
			Background(colorBgLight).
			Padding(0, 1)

	statusErrStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Background(colorBgLight).
			Bold(true)

	serverOnStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Background(colorBgLight)

	// Help
	helpBarStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(colorYellow)
)

var severityStyles = map[model.Severity]lipgloss.Style{
	model.SeverityCritical: lipgloss.NewStyle().Foreground(colorRed).Bold(true),
	model.SeverityHigh:     lipgloss.NewStyle().Foreground(colorOrange).Bold(true),
	model.SeverityMedium:   lipgloss.NewStyle().Foreground(colorYellow),
	model.SeverityLow:      lipgloss.NewStyle().Foreground(colorBlue),
	model.SeverityApproved: lipgloss.NewStyle().Foreground(colorGreen),
}

func severityStyle(s model.Severity) lipgloss.Style {
	if st, ok := severityStyles[s]; ok {
		return st
	}
	return itemDimStyle
}
