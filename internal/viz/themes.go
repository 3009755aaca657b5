package viz

import "github.com/charmbracelet/lipgloss"

// Theme is the panel colour scheme plus the particle palette it pairs with.
type Theme struct {
	Name    string
	Palette string
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Warning lipgloss.Color
}

var (
	ThemeDeep = Theme{
		Name:    "deep",
		Palette: "ocean",
		Primary: lipgloss.Color("#00a8cc"),
		Accent:  lipgloss.Color("#ffd700"),
		Text:    lipgloss.Color("#e0f0ff"),
		Muted:   lipgloss.Color("#4488aa"),
		Warning: lipgloss.Color("#ffcc00"),
	}

	ThemeLava = Theme{
		Name:    "lava",
		Palette: "inferno",
		Primary: lipgloss.Color("#ff6b6b"),
		Accent:  lipgloss.Color("#feca57"),
		Text:    lipgloss.Color("#fff5f5"),
		Muted:   lipgloss.Color("#8b6b8c"),
		Warning: lipgloss.Color("#ffc048"),
	}

	ThemeLab = Theme{
		Name:    "lab",
		Palette: "viridis",
		Primary: lipgloss.Color("86"),
		Accent:  lipgloss.Color("205"),
		Text:    lipgloss.Color("252"),
		Muted:   lipgloss.Color("245"),
		Warning: lipgloss.Color("220"),
	}

	Themes = []Theme{ThemeLab, ThemeDeep, ThemeLava}
)

// GetTheme returns a theme by name, falling back to the first one.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

// NextTheme returns the theme after name in Themes, wrapping around.
func NextTheme(name string) Theme {
	for i, t := range Themes {
		if t.Name == name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
