package formatter

import (
	"fmt"
	"strings"

	"github.com/bcharris9/th-26/internal/guard"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

// Predefined lipgloss styles.
var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// TierStyle returns the lipgloss style for the given risk tier.
func TierStyle(tier string) lipgloss.Style {
	switch guard.Tier(tier) {
	case guard.TierHigh:
		return StyleRed
	case guard.TierMedium:
		return StyleYellow
	case guard.TierLow:
		return StyleGreen
	default:
		return StyleDim
	}
}

// TierIndicator returns a colored tier indicator string such as "● HIGH".
func TierIndicator(tier string) string {
	switch guard.Tier(tier) {
	case guard.TierHigh:
		return StyleRed.Render("● HIGH")
	case guard.TierMedium:
		return StyleYellow.Render("● MEDIUM")
	case guard.TierLow:
		return StyleGreen.Render("● LOW")
	default:
		return StyleDim.Render("● —")
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

// Dim renders text in the muted/dim color.
func Dim(text string) string {
	return StyleDim.Render(text)
}

// Bold renders text in bold with the foreground color.
func Bold(text string) string {
	return StyleBold.Render(text)
}
