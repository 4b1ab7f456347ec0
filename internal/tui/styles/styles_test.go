package styles

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/cypher/internal/battle"
)

func TestIsValidHexColor(t *testing.T) {
	tests := []struct {
		name     string
		color    string
		expected bool
	}{
		{"valid 6-digit hex", "#A78BFA", true},
		{"valid 6-digit hex lowercase", "#a78bfa", true},
		{"valid 3-digit hex", "#ABC", true},
		{"invalid - no hash", "A78BFA", false},
		{"invalid - 4 digits", "#ABCD", false},
		{"invalid - bad characters", "#GHIJKL", false},
		{"empty string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isValidHexColor(tt.color); got != tt.expected {
				t.Errorf("isValidHexColor(%q) = %v, want %v", tt.color, got, tt.expected)
			}
		})
	}
}

func validTheme() ThemeFile {
	return ThemeFile{
		Name:    "Test",
		Version: "1",
		Colors: ThemeColors{
			Primary: "#A78BFA",
			Warning: "#F59E0B",
			Error:   "#F87171",
			Muted:   "#9CA3AF",
			Surface: "#1F2937",
			Text:    "#F9FAFB",
			Border:  "#6B7280",
		},
	}
}

func TestThemeFileValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ThemeFile)
		errMsg string
	}{
		{"valid minimal theme", func(*ThemeFile) {}, ""},
		{"missing name", func(f *ThemeFile) { f.Name = "" }, "name is required"},
		{"missing version", func(f *ThemeFile) { f.Version = "" }, "version is required"},
		{"wrong version", func(f *ThemeFile) { f.Version = "2" }, "unsupported theme version"},
		{"missing color", func(f *ThemeFile) { f.Colors.Border = "" }, "'border' is required"},
		{"bad required color", func(f *ThemeFile) { f.Colors.Text = "white" }, "'text' has invalid format"},
		{"bad optional color", func(f *ThemeFile) { f.Colors.SideA = "#12" }, "'side_a' has invalid format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			theme := validTheme()
			tt.mutate(&theme)
			err := theme.Validate()
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestToPalette_FallsBackToPrimary(t *testing.T) {
	theme := validTheme()
	theme.Colors.SideB = "#FF0000"
	p := theme.ToPalette()

	if p.SideA != lipgloss.Color("#A78BFA") {
		t.Errorf("SideA = %v, want primary", p.SideA)
	}
	if p.SideB != lipgloss.Color("#FF0000") {
		t.Errorf("SideB = %v", p.SideB)
	}
	if p.Winner != p.Primary {
		t.Errorf("Winner = %v, want primary", p.Winner)
	}
}

func TestResolvePalette(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "neon.yaml")
	content := `name: Neon
version: "1"
colors:
  primary: "#FF00FF"
  warning: "#FFFF00"
  error: "#FF0000"
  muted: "#888888"
  surface: "#000000"
  text: "#FFFFFF"
  border: "#444444"
  side_a: "#00FFFF"
`
	if err := os.WriteFile(good, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "bad.yml")
	if err := os.WriteFile(bad, []byte("name: Bad\nversion: \"1\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		theme   string
		primary lipgloss.Color
		wantErr bool
	}{
		{"", DefaultPalette().Primary, false},
		{"nord", NordPalette().Primary, false},
		{"mono", MonoPalette().Primary, false},
		{good, lipgloss.Color("#FF00FF"), false},
		{bad, "", true},
		{filepath.Join(dir, "missing.yaml"), "", true},
		{"solarized", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.theme, func(t *testing.T) {
			p, err := ResolvePalette(tt.theme)
			if tt.wantErr {
				if err == nil {
					t.Error("ResolvePalette() should fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolvePalette() error = %v", err)
			}
			if p.Primary != tt.primary {
				t.Errorf("Primary = %v, want %v", p.Primary, tt.primary)
			}
		})
	}
}

func TestBuiltinPalettesComplete(t *testing.T) {
	for _, name := range BuiltinThemes() {
		p := GetPalette(ThemeName(name))
		for label, c := range map[string]lipgloss.Color{
			"primary": p.Primary, "side_a": p.SideA, "side_b": p.SideB, "winner": p.Winner,
			"warning": p.Warning, "error": p.Error, "muted": p.Muted, "surface": p.Surface,
			"text": p.Text, "border": p.Border,
		} {
			if !isValidHexColor(string(c)) {
				t.Errorf("%s: %s = %q", name, label, c)
			}
		}
	}
	if GetPalette("unknown").Primary != DefaultPalette().Primary {
		t.Error("unknown theme should fall back to the default palette")
	}
}

func TestStylesSide(t *testing.T) {
	s := New(nil)
	if s.Palette == nil {
		t.Fatal("New(nil) should use the default palette")
	}
	if s.Side(battle.SideA).GetForeground() != s.Palette.SideA {
		t.Error("Side(A) should use the side A color")
	}
	if s.Side(battle.SideB).GetForeground() != s.Palette.SideB {
		t.Error("Side(B) should use the side B color")
	}
}
