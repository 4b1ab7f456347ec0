// Package util provides small helpers shared across the engine and the CLI.
package util

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// TruncateString truncates s to maxLen runes, adding "..." if truncated.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// TruncateANSI truncates a styled string to maxWidth visual columns.
// Escape sequences and wide characters are measured correctly.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, "...")
}

// Preview collapses a multi-line verse into one line for log output.
func Preview(verse string, maxLen int) string {
	return TruncateString(strings.Join(strings.Fields(verse), " "), maxLen)
}

// Lines splits a verse into trimmed, non-empty bars.
func Lines(verse string) []string {
	var out []string
	for _, line := range strings.Split(verse, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
