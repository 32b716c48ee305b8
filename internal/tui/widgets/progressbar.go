// ABOUTME: Progress bar with visual threshold zones
// ABOUTME: Shows how close a packed host sits to its headroom limit

package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ProgressBarConfig holds configuration for the progress bar
type ProgressBarConfig struct {
	Width         int
	WarnThreshold float64 // Percentage where warning zone starts (default 80)
	CritThreshold float64 // Percentage where critical zone starts (default 95)
	OKColor       lipgloss.Color
	WarnColor     lipgloss.Color
	CritColor     lipgloss.Color
	EmptyColor    lipgloss.Color
	ShowZones     bool // Show threshold markers in the bar
}

// DefaultProgressBarConfig returns sensible defaults
func DefaultProgressBarConfig() ProgressBarConfig {
	return ProgressBarConfig{
		Width:         20,
		WarnThreshold: 80,
		CritThreshold: 95,
		OKColor:       lipgloss.Color("#10B981"), // Green
		WarnColor:     lipgloss.Color("#F59E0B"), // Amber
		CritColor:     lipgloss.Color("#EF4444"), // Red
		EmptyColor:    lipgloss.Color("#374151"), // Dark gray
		ShowZones:     true,
	}
}

// ProgressBar renders a progress bar with threshold zones
func ProgressBar(percent float64, config ProgressBarConfig) string {
	if config.Width <= 0 {
		config.Width = 20
	}
	percent = clamp(percent)

	filled := int(percent / 100.0 * float64(config.Width))
	warnPos := int(config.WarnThreshold / 100.0 * float64(config.Width))
	critPos := int(config.CritThreshold / 100.0 * float64(config.Width))

	var bar strings.Builder
	bar.WriteString("[")

	for i := 0; i < config.Width; i++ {
		var char string
		var color lipgloss.Color

		switch {
		case i < filled && i >= critPos:
			char, color = "█", config.CritColor
		case i < filled && i >= warnPos:
			char, color = "█", config.WarnColor
		case i < filled:
			char, color = "█", config.OKColor
		case config.ShowZones && (i == warnPos || i == critPos):
			char, color = "│", config.EmptyColor
		default:
			char, color = "░", config.EmptyColor
		}

		bar.WriteString(lipgloss.NewStyle().Foreground(color).Render(char))
	}

	bar.WriteString("]")
	return bar.String()
}

// ProgressBarWithLabel renders progress bar with a trailing percentage
func ProgressBarWithLabel(percent float64, config ProgressBarConfig) string {
	statusColor := config.OKColor
	if percent >= config.CritThreshold {
		statusColor = config.CritColor
	} else if percent >= config.WarnThreshold {
		statusColor = config.WarnColor
	}

	label := lipgloss.NewStyle().Foreground(statusColor).Render(fmt.Sprintf("%3.0f%%", percent))
	return ProgressBar(percent, config) + " " + label
}

func clamp(percent float64) float64 {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
