package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/palette"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	frameInterval   = time.Second / 30
)

type TickMsg time.Time

// paletteSetter is implemented by every solver in the registry.
type paletteSetter interface {
	SetPalette(p *palette.Palette)
}

// Model is the live terminal viewer. It owns the solver and steps it once
// per tick while running.
type Model struct {
	cfg           *config.Config
	logger        *log.Logger
	solver        experiment.Instance
	plot          *Plotter
	theme         Theme
	styles        styles
	running       bool
	showHelp      bool
	diag          fluid.Diagnostics
	energy        []float64
	params        map[string]float64
	initialParams map[string]float64
	paramKeys     []string
	selected      int
	pokes         int
	err           error
}

// NewModel builds the configured solver and its scene.
func NewModel(cfg *config.Config, logger *log.Logger) (*Model, error) {
	if logger == nil {
		logger = log.Default()
	}
	s, err := experiment.Build(cfg, logger)
	if err != nil {
		return nil, err
	}
	params := s.GetParams()
	initial := make(map[string]float64, len(params))
	keys := make([]string, 0, len(params))
	for k, v := range params {
		initial[k] = v
		keys = append(keys, k)
	}
	sort.Strings(keys)

	m := &Model{
		cfg:           cfg,
		logger:        logger,
		solver:        s,
		plot:          &Plotter{Canvas: NewCanvas(width, height), Camera: NewCamera(), Domain: cfg.Domain()},
		running:       true,
		params:        params,
		initialParams: initial,
		paramKeys:     keys,
		energy:        make([]float64, 0, historyCapacity),
	}
	m.setTheme(Themes[0])
	m.diag = s.Diagnostics()
	m.draw()
	return m, nil
}

// Solver exposes the running solver.
func (m *Model) Solver() experiment.Instance { return m.solver }

// Close releases the solver.
func (m *Model) Close() { m.solver.Close() }

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m *Model) Init() tea.Cmd { return tick() }

// Update handles input events and steps the simulation.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "n":
			if !m.running {
				m.step()
			}
		case "f":
			m.poke()
		case "t":
			m.setTheme(NextTheme(m.theme.Name))
		case "tab":
			if len(m.paramKeys) > 0 {
				m.selected = (m.selected + 1) % len(m.paramKeys)
			}
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "x":
			m.plot.Camera.RotateX(0.1)
		case "X":
			m.plot.Camera.RotateX(-0.1)
		case "y":
			m.plot.Camera.RotateY(0.1)
		case "Y":
			m.plot.Camera.RotateY(-0.1)
		case "+", "=":
			m.plot.Camera.ZoomIn()
		case "-", "_":
			m.plot.Camera.ZoomOut()
		case "?":
			m.showHelp = !m.showHelp
		}
		m.draw()
	case TickMsg:
		if m.running {
			m.step()
		}
		m.draw()
		return m, tick()
	}
	return m, nil
}

func (m *Model) step() {
	m.solver.Update(m.cfg.TimeStep())
	m.diag = m.solver.Diagnostics()
	m.energy = append(m.energy, m.diag.KineticEnergy)
	if len(m.energy) > historyCapacity {
		m.energy = m.energy[1:]
	}
	if !m.diag.Finite && m.running {
		m.running = false
		m.err = fmt.Errorf("step %d: %w", m.diag.Step, fluid.ErrUnstable)
		m.logger.Warn("simulation paused", "err", m.err)
	}
}

// poke pushes the fluid around the domain centre. Each press turns the push
// direction by a quarter turn.
func (m *Model) poke() {
	size := m.plot.Domain.Size()
	centre := r3.Scale(0.5, r3.Add(m.plot.Domain.Min, m.plot.Domain.Max))
	angle := float64(m.pokes) * math.Pi / 2
	m.pokes++

	magnitude := 2.0
	if m.cfg.Solver == "lbm" {
		magnitude = 0.05
	}
	force := r3.Vec{X: magnitude * math.Cos(angle), Y: magnitude * math.Sin(angle)}
	m.solver.ApplyForce(centre, force, 0.25*math.Max(size.X, size.Y))
}

func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	val := m.params[key] * factor
	if val == 0 {
		val = 1e-6 * factor
	}
	if err := m.solver.SetParam(key, val); err != nil {
		m.err = err
		return
	}
	m.params[key] = val
}

func (m *Model) setTheme(t Theme) {
	m.theme = t
	m.styles = newStyles(t)
	if ps, ok := m.solver.(paletteSetter); ok {
		if p, err := palette.New(t.Palette); err == nil {
			ps.SetPalette(p)
		}
	}
}

// reset rebuilds the solver from the configuration, dropping tuned
// parameters.
func (m *Model) reset() {
	s, err := experiment.Build(m.cfg, m.logger)
	if err != nil {
		m.err = err
		return
	}
	m.solver.Close()
	m.solver = s
	for k, v := range m.initialParams {
		m.params[k] = v
	}
	m.energy = m.energy[:0]
	m.pokes = 0
	m.err = nil
	m.plot.Camera.Reset()
	m.setTheme(m.theme)
	m.diag = s.Diagnostics()
}

func (m *Model) draw() {
	m.plot.Canvas.Clear()
	m.solver.Render(m.plot)
}

func (m *Model) capacity() int {
	switch m.cfg.Solver {
	case "sph":
		return m.cfg.SPH.MaxParticles
	case "flip":
		return m.cfg.FLIP.MaxParticles
	}
	return 0
}

// View renders the canvas beside the stats panel.
func (m *Model) View() string {
	st := m.styles
	status := "RUNNING"
	if !m.running {
		status = "PAUSED"
	}

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.solver.Name())) + "\n")
	s.WriteString(status + "\n\n")
	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Kinetic energy"))
		s.WriteString(st.graph.Render(chart) + "\n")
	}
	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Step", fmt.Sprintf("%d", m.diag.Step))
	row("Time", fmt.Sprintf("%.3fs", m.diag.Time))
	row("Count", fmt.Sprintf("%d", m.diag.Count))
	if c := m.capacity(); c > 0 {
		row("Capacity", FillBar(float64(m.diag.Count)/float64(c), 16))
	}
	row("Max speed", fmt.Sprintf("%.3f", m.diag.MaxSpeed))
	row("Density", fmt.Sprintf("%.3f", m.diag.MeanDensity))
	row("Backend", m.diag.Backend)
	row("Palette", m.theme.Palette)

	s.WriteString("\nPARAMETERS\n")
	if len(m.paramKeys) == 0 {
		s.WriteString(st.label.Render("  (none)") + "\n")
	}
	for i, k := range m.paramKeys {
		line := fmt.Sprintf("%-20s %.4g", k, m.params[k])
		if i == m.selected {
			s.WriteString(st.active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + st.label.Width(0).Render(line) + "\n")
		}
	}
	if m.err != nil {
		s.WriteString("\n" + st.warn.Render(m.err.Error()) + "\n")
	}
	s.WriteString(st.help.Render("SP:Pause R:Reset F:Poke T:Theme ?:Help Q:Quit"))

	view := lipgloss.JoinHorizontal(lipgloss.Top,
		st.canvas.Render(m.plot.Canvas.Styled()),
		st.stats.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + view
	}
	return view
}

const helpText = `Space    pause / resume
N        single step while paused
R        rebuild the scene
F        push the fluid at the domain centre
T        cycle theme and particle palette
Tab      select parameter, Up/Down to tune by 5%
x/X y/Y  rotate the view, +/- zoom
Q        quit`

// RunLive opens the live viewer until the user quits.
func RunLive(cfg *config.Config, logger *log.Logger) error {
	m, err := NewModel(cfg, logger)
	if err != nil {
		return err
	}
	defer m.Close()
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
