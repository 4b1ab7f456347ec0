package styles

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// ThemeFile represents a custom theme definition loaded from YAML.
type ThemeFile struct {
	// Name is the theme's display name (e.g., "Neon Nights")
	Name string `yaml:"name"`
	// Author is the theme creator's name (optional)
	Author string `yaml:"author,omitempty"`
	// Version is the theme file format version (currently "1")
	Version string `yaml:"version"`
	// Colors defines the color palette
	Colors ThemeColors `yaml:"colors"`
}

// ThemeColors contains the color definitions of a theme, in hex format
// (#RRGGBB or #RGB). Side and winner colors fall back to the primary color.
type ThemeColors struct {
	Primary string `yaml:"primary"`
	Warning string `yaml:"warning"`
	Error   string `yaml:"error"`
	Muted   string `yaml:"muted"`
	Surface string `yaml:"surface"`
	Text    string `yaml:"text"`
	Border  string `yaml:"border"`

	SideA  string `yaml:"side_a,omitempty"`
	SideB  string `yaml:"side_b,omitempty"`
	Winner string `yaml:"winner,omitempty"`
}

var hexColorRegex = regexp.MustCompile(`^#([0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$`)

// LoadThemeFile loads a theme from a YAML file.
func LoadThemeFile(path string) (*ThemeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading theme file: %w", err)
	}

	var theme ThemeFile
	if err := yaml.Unmarshal(data, &theme); err != nil {
		return nil, fmt.Errorf("parsing theme file: %w", err)
	}

	if err := theme.Validate(); err != nil {
		return nil, fmt.Errorf("invalid theme: %w", err)
	}

	return &theme, nil
}

// Validate checks that the theme file is well-formed.
func (t *ThemeFile) Validate() error {
	if t.Name == "" {
		return errors.New("theme name is required")
	}
	if t.Version == "" {
		return errors.New("theme version is required")
	}
	if t.Version != "1" {
		return fmt.Errorf("unsupported theme version: %s (supported: 1)", t.Version)
	}

	required := []struct{ name, color string }{
		{"primary", t.Colors.Primary},
		{"warning", t.Colors.Warning},
		{"error", t.Colors.Error},
		{"muted", t.Colors.Muted},
		{"surface", t.Colors.Surface},
		{"text", t.Colors.Text},
		{"border", t.Colors.Border},
	}
	for _, c := range required {
		if c.color == "" {
			return fmt.Errorf("color '%s' is required", c.name)
		}
		if !isValidHexColor(c.color) {
			return fmt.Errorf("color '%s' has invalid format: %s (expected #RGB or #RRGGBB)", c.name, c.color)
		}
	}

	optional := []struct{ name, color string }{
		{"side_a", t.Colors.SideA},
		{"side_b", t.Colors.SideB},
		{"winner", t.Colors.Winner},
	}
	for _, c := range optional {
		if c.color != "" && !isValidHexColor(c.color) {
			return fmt.Errorf("color '%s' has invalid format: %s (expected #RGB or #RRGGBB)", c.name, c.color)
		}
	}
	return nil
}

func isValidHexColor(color string) bool {
	return hexColorRegex.MatchString(color)
}

// ToPalette converts the theme file to a ColorPalette.
func (t *ThemeFile) ToPalette() *ColorPalette {
	return &ColorPalette{
		Primary: lipgloss.Color(t.Colors.Primary),
		SideA:   colorOrDefault(t.Colors.SideA, t.Colors.Primary),
		SideB:   colorOrDefault(t.Colors.SideB, t.Colors.Primary),
		Winner:  colorOrDefault(t.Colors.Winner, t.Colors.Primary),
		Warning: lipgloss.Color(t.Colors.Warning),
		Error:   lipgloss.Color(t.Colors.Error),
		Muted:   lipgloss.Color(t.Colors.Muted),
		Surface: lipgloss.Color(t.Colors.Surface),
		Text:    lipgloss.Color(t.Colors.Text),
		Border:  lipgloss.Color(t.Colors.Border),
	}
}

func colorOrDefault(color, defaultColor string) lipgloss.Color {
	if color != "" {
		return lipgloss.Color(color)
	}
	return lipgloss.Color(defaultColor)
}

// ResolvePalette maps a theme setting to a palette. Values ending in .yaml or
// .yml are read as custom theme files; anything else must name a built-in
// theme. An empty value selects the default theme.
func ResolvePalette(theme string) (*ColorPalette, error) {
	switch {
	case theme == "":
		return DefaultPalette(), nil
	case strings.HasSuffix(theme, ".yaml"), strings.HasSuffix(theme, ".yml"):
		file, err := LoadThemeFile(theme)
		if err != nil {
			return nil, err
		}
		return file.ToPalette(), nil
	case IsBuiltinTheme(theme):
		return GetPalette(ThemeName(theme)), nil
	default:
		return nil, fmt.Errorf("unknown theme %q (built-in: %s)", theme, strings.Join(BuiltinThemes(), ", "))
	}
}
