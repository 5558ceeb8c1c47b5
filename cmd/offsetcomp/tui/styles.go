package tui

import (
	catppuccin "github.com/catppuccin/go"
	"github.com/charmbracelet/lipgloss"
)

// Catppuccin Mocha palette.
var flavor = catppuccin.Mocha

var (
	colorBase     = lipgloss.Color(flavor.Base().Hex)
	colorSurface0 = lipgloss.Color(flavor.Surface0().Hex)
	colorSurface1 = lipgloss.Color(flavor.Surface1().Hex)
	colorText     = lipgloss.Color(flavor.Text().Hex)
	colorSubtext0 = lipgloss.Color(flavor.Subtext0().Hex)
	colorBlue     = lipgloss.Color(flavor.Blue().Hex)
	colorGreen    = lipgloss.Color(flavor.Green().Hex)
	colorRed      = lipgloss.Color(flavor.Red().Hex)
	colorYellow   = lipgloss.Color(flavor.Yellow().Hex)
	colorOverlay0 = lipgloss.Color(flavor.Overlay0().Hex)
)

var (
	// TitleStyle renders the top bar with the collection context.
	TitleStyle = lipgloss.NewStyle().
			Foreground(colorBase).
			Background(colorBlue).
			Padding(0, 1).
			Bold(true)

	// ActiveSourceStyle marks the displayed source column header.
	ActiveSourceStyle = lipgloss.NewStyle().
				Foreground(colorBlue).
				Bold(true)

	// SourceStyle renders inactive source column headers.
	SourceStyle = lipgloss.NewStyle().
			Foreground(colorText)

	// CursorRowStyle highlights the selected frame row.
	CursorRowStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Background(colorSurface1).
			Bold(true)

	// RowStyle renders non-selected frame rows.
	RowStyle = lipgloss.NewStyle().
			Foreground(colorText)

	// OffsetStyle renders nonzero offsets.
	OffsetStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	// StatusBarStyle is the bottom status strip.
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(colorSubtext0).
			Background(colorSurface0).
			Padding(0, 1)

	// StatusKeyStyle highlights key hints in the status bar.
	StatusKeyStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Background(colorSurface0).
			Bold(true)

	// ErrorStyle renders error status text.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	// OKStyle renders success status text.
	OKStyle = lipgloss.NewStyle().
		Foreground(colorGreen)

	// HintStyle renders dim helper text.
	HintStyle = lipgloss.NewStyle().
			Foreground(colorOverlay0)
)
