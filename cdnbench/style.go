package cdnbench

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	goodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func speedStyle(speedMbps float64) lipgloss.Style {
	switch {
	case speedMbps >= 50:
		return goodStyle
	case speedMbps >= 10:
		return warnStyle
	default:
		return badStyle
	}
}

func latencyStyle(latencyMS float64) lipgloss.Style {
	switch {
	case latencyMS <= 50:
		return goodStyle
	case latencyMS <= 150:
		return warnStyle
	default:
		return badStyle
	}
}

func formatSpeed(speedMbps, speedMBps float64) string {
	return fmt.Sprintf("%.2f Mbps (%.2f MB/s)", speedMbps, speedMBps)
}

func formatLatency(latencyMS *float64) string {
	if latencyMS == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f ms", *latencyMS)
}
