//go:build gui

package gui

import (
	"fmt"
	"image/color"
	"math"

	"github.com/charmbracelet/log"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/palette"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	colBg  = color.RGBA{10, 10, 10, 255}
	colBox  = color.RGBA{40, 40, 40, 255}
)

// App is the ebiten game driving one solver.
type App struct {
	cfg      *config.Config
	logger   *log.Logger
	solver   experiment.Instance
	view     *View
	running  bool
	palettes []string
	palIdx   int
	drag     bool
	dragX    int
	dragY    int
	gain     float64
	err      error
}

func NewApp(cfg *config.Config, logger *log.Logger) (*App, error) {
	s, err := experiment.Build(cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &App{
		cfg:      cfg,
		logger:   logger,
		solver:   s,
		view:     NewView(cfg.Domain()),
		running:  true,
		palettes: palette.Names(),
		gain:     20,
	}
	if cfg.Solver == "lbm" {
		a.gain = 0.002
	}
	return a, nil
}

func (a *App) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		a.running = !a.running
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		a.reset()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		a.palIdx = (a.palIdx + 1) % len(a.palettes)
		if p, err := palette.New(a.palettes[a.palIdx]); err == nil {
			if ps, ok := a.solver.(interface{ SetPalette(*palette.Palette) }); ok {
				ps.SetPalette(p)
			}
		}
	}
	if ebiten.IsKeyPressed(ebiten.KeyLeft) {
		a.view.Yaw -= 0.02
	}
	if ebiten.IsKeyPressed(ebiten.KeyRight) {
		a.view.Yaw += 0.02
	}

	x, y := ebiten.CursorPosition()
	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		a.drag, a.dragX, a.dragY = true, x, y
	case a.drag && ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft):
		if x != a.dragX || y != a.dragY {
			pos, force, radius := a.view.Drag(a.dragX, a.dragY, x, y, a.gain)
			a.solver.ApplyForce(pos, force, radius)
			a.dragX, a.dragY = x, y
		}
	default:
		a.drag = false
	}

	if a.running {
		a.solver.Update(a.cfg.TimeStep())
	}
	return nil
}

func (a *App) reset() {
	s, err := experiment.Build(a.cfg, a.logger)
	if err != nil {
		a.err = err
		return
	}
	a.solver.Close()
	a.solver = s
	a.err = nil
}

func (a *App) Draw(screen *ebiten.Image) {
	screen.Fill(colBg)
	x0, y0 := a.view.ToScreen(a.view.Domain.Min)
	x1, y1 := a.view.ToScreen(a.view.Domain.Max)
	vector.StrokeRect(screen, x0, y1, x1-x0, y0-y1, 1, colBox, false)

	k := float32(a.view.Scale())
	cells := a.cfg.Solver == "lbm"
	a.solver.Render(fluid.RendererFunc(func(pos r3.Vec, size float64, c color.RGBA) {
		x, y := a.view.ToScreen(pos)
		r := float32(size) * k
		if cells {
			vector.DrawFilledRect(screen, x-r/2, y-r/2, r+1, r+1, c, false)
			return
		}
		vector.DrawFilledCircle(screen, x, y, float32(math.Max(float64(r), 1)), c, true)
	}))

	d := a.solver.Diagnostics()
	status := "RUNNING"
	if !a.running {
		status = "PAUSED"
	}
	hud := fmt.Sprintf("%s  %s  step %d  t=%.3f  n=%d  ke=%.4g  %.0f FPS\n[SPACE] PAUSE  [R] RESET  [C] PALETTE  [DRAG] PUSH  [Q] QUIT",
		a.solver.Name(), status, d.Step, d.Time, d.Count, d.KineticEnergy, ebiten.ActualFPS())
	if a.err != nil {
		hud += "\n" + a.err.Error()
	}
	ebitenutil.DebugPrint(screen, hud)
}

func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	a.view.Width, a.view.Height = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}

// Run opens the window until it is closed.
func Run(cfg *config.Config, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	a, err := NewApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { a.solver.Close() }()

	ebiten.SetWindowSize(ScreenWidth, ScreenHeight)
	ebiten.SetWindowTitle("fluidsim :: " + cfg.Solver)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(a)
}
