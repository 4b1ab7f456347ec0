package util

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"long string truncated", "hello world", 8, "hello..."},
		{"small maxLen returns ellipsis", "hello", 3, "..."},
		{"negative maxLen returns ellipsis", "hello", -1, "..."},
		{"runes counted not bytes", "héllo wörld", 8, "héllo..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateString(tt.input, tt.maxLen); got != tt.expected {
				t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
			}
		})
	}
}

func TestTruncateANSI(t *testing.T) {
	styled := lipgloss.NewStyle().Bold(true).Render("a very long styled verse line")

	got := TruncateANSI(styled, 10)
	if w := lipgloss.Width(got); w > 10 {
		t.Errorf("width = %d, want <= 10", w)
	}
	if TruncateANSI("short", 10) != "short" {
		t.Error("short string should be unchanged")
	}
	if TruncateANSI("anything", 2) != "..." {
		t.Error("tiny width should return ellipsis")
	}
}

func TestPreview(t *testing.T) {
	verse := "Line one of the verse\n   line two\n\nline three"
	if got := Preview(verse, 100); got != "Line one of the verse line two line three" {
		t.Errorf("Preview() = %q", got)
	}
	if got := Preview(verse, 11); got != "Line one..." {
		t.Errorf("Preview() = %q", got)
	}
}

func TestLines(t *testing.T) {
	got := Lines("  bar one \n\n bar two\n")
	if len(got) != 2 || got[0] != "bar one" || got[1] != "bar two" {
		t.Errorf("Lines() = %q", got)
	}
	if Lines("") != nil {
		t.Error("empty verse should have no lines")
	}
}
