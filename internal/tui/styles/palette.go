package styles

import (
	"slices"

	"github.com/charmbracelet/lipgloss"
)

// ThemeName represents a named color theme.
type ThemeName string

// Available theme names.
const (
	ThemeDefault   ThemeName = "default"   // Violet and pink on dark
	ThemeDracula   ThemeName = "dracula"   // Dracula theme colors
	ThemeNord      ThemeName = "nord"      // Nord theme, cool blue-gray
	ThemeSynthwave ThemeName = "synthwave" // Synthwave '84 retro neon
	ThemeMono      ThemeName = "mono"      // Grayscale for limited terminals
)

// BuiltinThemes returns all built-in theme names.
func BuiltinThemes() []string {
	return []string{
		string(ThemeDefault),
		string(ThemeDracula),
		string(ThemeNord),
		string(ThemeSynthwave),
		string(ThemeMono),
	}
}

// IsBuiltinTheme reports whether name is one of the built-in themes.
func IsBuiltinTheme(name string) bool {
	return slices.Contains(BuiltinThemes(), name)
}

// ColorPalette defines the color scheme of the battle view.
type ColorPalette struct {
	// Primary accent (titles, headers)
	Primary lipgloss.Color
	// SideA and SideB color each participant's name and tally
	SideA lipgloss.Color
	SideB lipgloss.Color
	// Winner highlights the result line
	Winner  lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Muted   lipgloss.Color
	Surface lipgloss.Color
	Text    lipgloss.Color
	Border  lipgloss.Color
}

// DefaultPalette returns the default dark palette.
func DefaultPalette() *ColorPalette {
	return &ColorPalette{
		Primary: lipgloss.Color("#A78BFA"), // Purple (violet-400)
		SideA:   lipgloss.Color("#60A5FA"), // Blue
		SideB:   lipgloss.Color("#F472B6"), // Pink
		Winner:  lipgloss.Color("#10B981"), // Green
		Warning: lipgloss.Color("#F59E0B"), // Amber
		Error:   lipgloss.Color("#F87171"), // Red (red-400)
		Muted:   lipgloss.Color("#9CA3AF"), // Gray
		Surface: lipgloss.Color("#1F2937"),
		Text:    lipgloss.Color("#F9FAFB"),
		Border:  lipgloss.Color("#6B7280"),
	}
}

// DraculaPalette returns the Dracula palette.
func DraculaPalette() *ColorPalette {
	return &ColorPalette{
		Primary: lipgloss.Color("#BD93F9"),
		SideA:   lipgloss.Color("#8BE9FD"),
		SideB:   lipgloss.Color("#FF79C6"),
		Winner:  lipgloss.Color("#50FA7B"),
		Warning: lipgloss.Color("#FFB86C"),
		Error:   lipgloss.Color("#FF5555"),
		Muted:   lipgloss.Color("#6272A4"),
		Surface: lipgloss.Color("#282A36"),
		Text:    lipgloss.Color("#F8F8F2"),
		Border:  lipgloss.Color("#44475A"),
	}
}

// NordPalette returns the Nord palette.
func NordPalette() *ColorPalette {
	return &ColorPalette{
		Primary: lipgloss.Color("#88C0D0"),
		SideA:   lipgloss.Color("#81A1C1"),
		SideB:   lipgloss.Color("#B48EAD"),
		Winner:  lipgloss.Color("#A3BE8C"),
		Warning: lipgloss.Color("#EBCB8B"),
		Error:   lipgloss.Color("#BF616A"),
		Muted:   lipgloss.Color("#7B88A1"),
		Surface: lipgloss.Color("#2E3440"),
		Text:    lipgloss.Color("#ECEFF4"),
		Border:  lipgloss.Color("#4C566A"),
	}
}

// SynthwavePalette returns the Synthwave '84 palette.
func SynthwavePalette() *ColorPalette {
	return &ColorPalette{
		Primary: lipgloss.Color("#FF7EDB"),
		SideA:   lipgloss.Color("#36F9F6"),
		SideB:   lipgloss.Color("#FE4450"),
		Winner:  lipgloss.Color("#72F1B8"),
		Warning: lipgloss.Color("#FEDE5D"),
		Error:   lipgloss.Color("#FE4450"),
		Muted:   lipgloss.Color("#848BBD"),
		Surface: lipgloss.Color("#262335"),
		Text:    lipgloss.Color("#FFFFFF"),
		Border:  lipgloss.Color("#495495"),
	}
}

// MonoPalette returns a grayscale palette.
func MonoPalette() *ColorPalette {
	return &ColorPalette{
		Primary: lipgloss.Color("#FFFFFF"),
		SideA:   lipgloss.Color("#E5E5E5"),
		SideB:   lipgloss.Color("#BDBDBD"),
		Winner:  lipgloss.Color("#FFFFFF"),
		Warning: lipgloss.Color("#D4D4D4"),
		Error:   lipgloss.Color("#FFFFFF"),
		Muted:   lipgloss.Color("#8A8A8A"),
		Surface: lipgloss.Color("#1A1A1A"),
		Text:    lipgloss.Color("#F5F5F5"),
		Border:  lipgloss.Color("#5C5C5C"),
	}
}

// GetPalette returns the palette of a built-in theme, or the default palette
// for unknown names.
func GetPalette(name ThemeName) *ColorPalette {
	switch name {
	case ThemeDracula:
		return DraculaPalette()
	case ThemeNord:
		return NordPalette()
	case ThemeSynthwave:
		return SynthwavePalette()
	case ThemeMono:
		return MonoPalette()
	default:
		return DefaultPalette()
	}
}
