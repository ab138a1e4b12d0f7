package main

import (
	"github.com/charmbracelet/lipgloss"

	"tourcal/internal/depend"
	"tourcal/internal/risk"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

func severityLabel(s depend.Severity) string {
	switch s {
	case depend.SeverityError:
		return errorStyle.Render(string(s))
	case depend.SeverityWarning:
		return warningStyle.Render(string(s))
	default:
		return string(s)
	}
}

func flagLabel(f risk.Flag) string {
	switch f {
	case risk.FlagOverlap:
		return errorStyle.Render(string(f))
	case risk.FlagIsolated, risk.FlagPending:
		return warningStyle.Render(string(f))
	case risk.FlagNone:
		return mutedStyle.Render("-")
	default:
		return string(f)
	}
}

func headers(names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = headerStyle.Render(n)
	}
	return out
}
