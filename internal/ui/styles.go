package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/oshokin/flow-monitor/internal/domain/flow"
)

//nolint:gochecknoglobals // Shared palette.
var (
	colorRed     = lipgloss.Color("#FF5555")
	colorYellow  = lipgloss.Color("#F1FA8C")
	colorGreen   = lipgloss.Color("#50FA7B")
	colorCyan    = lipgloss.Color("#8BE9FD")
	colorMagenta = lipgloss.Color("#FF79C6")
	colorWhite   = lipgloss.Color("#F8F8F2")
	colorGray    = lipgloss.Color("#6272A4")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(0, 1)

	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	headerStyle    = lipgloss.NewStyle().Foreground(colorMagenta).Bold(true)
	labelStyle     = lipgloss.NewStyle().Foreground(colorGray)
	valueStyle     = lipgloss.NewStyle().Foreground(colorWhite)
	okStyle        = lipgloss.NewStyle().Foreground(colorGreen)
	warnStyle      = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	critStyle      = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	highlightStyle = lipgloss.NewStyle().Reverse(true)
	helpStyle      = lipgloss.NewStyle().Foreground(colorGray)
)

func statusStyle(status flow.EquipmentStatus) lipgloss.Style {
	switch status {
	case flow.StatusActive:
		return okStyle
	case flow.StatusPause:
		return warnStyle
	case flow.StatusStop:
		return critStyle
	default:
		return labelStyle
	}
}

func specStyle(state flow.SpecState) lipgloss.Style {
	switch state {
	case flow.SpecStateIn:
		return okStyle
	case flow.SpecStateAbove, flow.SpecStateBelow:
		return critStyle
	default:
		return valueStyle
	}
}

func edgeStyle(color flow.Color) lipgloss.Style {
	switch color {
	case flow.ColorGreen:
		return okStyle
	case flow.ColorYellow:
		return warnStyle
	case flow.ColorRed:
		return critStyle
	default:
		return labelStyle
	}
}
