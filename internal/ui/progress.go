// Package ui holds the shared terminal styling and the progress bar
// drawn while trials run.
package ui

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
)

// ProgressBar displays a labeled horizontal progress bar with a trailing
// percentage.
type ProgressBar struct {
	Label   string
	Percent float64
	Width   int
}

// NewProgressBar creates a new progress bar. Percent outside [0, 1] is
// clamped when rendering.
func NewProgressBar(label string, percent float64, width int) ProgressBar {
	return ProgressBar{Label: label, Percent: percent, Width: width}
}

// View renders the progress bar.
func (p ProgressBar) View() string {
	percent := p.Percent
	if percent < 0 {
		percent = 0
	}
	if percent > 1 {
		percent = 1
	}

	var result string
	if p.Label != "" {
		result = Body.Render(p.Label) + "  "
	}

	// Reserve room for "  100%".
	barWidth := p.Width - lipgloss.Width(result) - 6
	if barWidth < 4 {
		barWidth = 4
	}

	filled := int(float64(barWidth) * percent)
	result += lipgloss.NewStyle().
		Background(Accent).
		Render(strings.Repeat(" ", filled))
	result += lipgloss.NewStyle().
		Background(Border).
		Render(strings.Repeat(" ", barWidth-filled))

	result += Dim.Render(fmt.Sprintf("  %d%%", int(percent*100)))
	return result
}
