package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/san-kum/fluidsim/internal/config"
)

var presetInfo = map[string]string{
	"sph/dam_break":    "column collapse in a box",
	"sph/droplet":      "weightless blob held by surface tension",
	"sph/fountain":     "upward jet from the floor",
	"sph/dam_break_2d": "planar column collapse",
	"sph/plume":        "buoyant warm inflow",
	"flip/dam_break":   "column collapse on a grid",
	"flip/pour":        "stream poured into an empty tank",
	"lbm/cylinder":     "flow past a cylinder",
	"lbm/channel":      "driven channel flow",
	"lbm/quiescent":    "fluid at rest",
}

type entry struct{ solver, preset string }

func (e entry) String() string { return e.solver + "/" + e.preset }

// App is the preset picker. Choosing an entry opens the live viewer; Esc
// returns to the menu.
type App struct {
	entries []entry
	cursor  int
	logger  *log.Logger
	live    *Model
	err     error
}

func NewApp(logger *log.Logger) *App {
	if logger == nil {
		logger = log.Default()
	}
	a := &App{logger: logger}
	for _, s := range config.Solvers {
		for _, p := range config.ListPresets(s) {
			a.entries = append(a.entries, entry{s, p})
		}
	}
	return a
}

func (a *App) Init() tea.Cmd { return nil }

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.live != nil {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			a.live.Close()
			a.live = nil
			return a, nil
		}
		_, cmd := a.live.Update(msg)
		return a, cmd
	}
	k, ok := msg.(tea.KeyMsg)
	if !ok || len(a.entries) == 0 {
		return a, nil
	}
	switch k.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "up", "k":
		a.cursor = (a.cursor - 1 + len(a.entries)) % len(a.entries)
	case "down", "j":
		a.cursor = (a.cursor + 1) % len(a.entries)
	case "enter":
		e := a.entries[a.cursor]
		m, err := NewModel(config.GetPreset(e.solver, e.preset), a.logger)
		if err != nil {
			a.err = err
			return a, nil
		}
		a.err = nil
		a.live = m
		return a, m.Init()
	}
	return a, nil
}

func (a *App) View() string {
	if a.live != nil {
		return a.live.View()
	}
	st := newStyles(Themes[0])
	var b strings.Builder
	b.WriteString(st.header.Render("FLUIDSIM") + "\n")
	for i, e := range a.entries {
		line := fmt.Sprintf("%-18s %s", e, presetInfo[e.String()])
		if i == a.cursor {
			b.WriteString(st.active.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + st.value.Render(line) + "\n")
		}
	}
	if a.err != nil {
		b.WriteString("\n" + st.warn.Render(a.err.Error()) + "\n")
	}
	b.WriteString(st.help.Render("↑↓ select  Enter run  Esc back  Q quit"))
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

// Selected returns the highlighted solver and preset.
func (a *App) Selected() (string, string) {
	if len(a.entries) == 0 {
		return "", ""
	}
	e := a.entries[a.cursor]
	return e.solver, e.preset
}

// Close releases an open viewer.
func (a *App) Close() {
	if a.live != nil {
		a.live.Close()
		a.live = nil
	}
}

// RunInteractive opens the preset picker.
func RunInteractive(logger *log.Logger) error {
	a := NewApp(logger)
	defer a.Close()
	_, err := tea.NewProgram(a, tea.WithAltScreen()).Run()
	return err
}
