package experiment_test

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/lbm"
)

var _ = Describe("Experiment", func() {
	var logger *log.Logger

	BeforeEach(func() {
		logger = log.New(io.Discard)
	})

	run := func(cfg *config.Config) (*experiment.Experiment, map[string]float64, []float64) {
		exp := experiment.New(cfg, nil, logger)
		DeferCleanup(exp.Close)
		Expect(exp.Setup()).To(Succeed())
		result, err := exp.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		return exp, result.Metrics, result.Series("count")
	}

	Describe("SPH dam break", func() {
		It("keeps every particle of a unit block at rest density", func() {
			cfg := config.DefaultConfig()
			cfg.Steps = 10
			cfg.Dt = 1.0 / 120
			cfg.Scene.Volumes = []config.Volume{{Size: r3.Vec{X: 1, Y: 1, Z: 1}, Density: 1000}}

			_, ms, counts := run(cfg)

			Expect(counts).To(HaveLen(11))
			for _, c := range counts {
				Expect(c).To(Equal(8000.0))
			}
			Expect(ms["mass_drift"]).To(BeNumerically("<", 1e-12))
			Expect(ms["stability"]).To(Equal(1.0))
		})

		It("caps repeated volumes at max_particles", func() {
			cfg := config.DefaultConfig()
			cfg.Steps = 1
			cfg.SPH.MaxParticles = 1500
			v := config.Volume{Size: r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, Density: 1000}
			cfg.Scene.Volumes = []config.Volume{v, v}

			_, _, counts := run(cfg)
			Expect(counts[len(counts)-1]).To(Equal(1500.0))
		})
	})

	Describe("LBM", func() {
		It("holds a uniform fluid at rest for 100 steps", func() {
			cfg := config.GetPreset("lbm", "quiescent")
			cfg.LBM.Width, cfg.LBM.Height = 48, 24

			exp, ms, _ := run(cfg)

			s := exp.Solver().(*lbm.Solver)
			for y := 0; y < 24; y++ {
				for x := 0; x < 48; x++ {
					Expect(s.DensityAt(x, y)).To(BeNumerically("~", 1.0, 1e-4))
				}
			}
			Expect(ms["mass_drift"]).To(BeNumerically("<", 1e-12))
		})

		It("records probe series behind an obstacle", func() {
			cfg := config.GetPreset("lbm", "cylinder")
			cfg.Steps = 50

			exp := experiment.New(cfg, nil, logger)
			DeferCleanup(exp.Close)
			Expect(exp.Setup()).To(Succeed())
			result, err := exp.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Columns).To(ContainElement("probe_wake"))
			Expect(result.Series("probe_wake")).To(HaveLen(51))
			Expect(exp.Solver().(*lbm.Solver).IsObstacle(32, 32)).To(BeTrue())
		})
	})

	Describe("FLIP", func() {
		It("runs a dam break with finite state", func() {
			cfg := config.GetPreset("flip", "dam_break")
			cfg.FLIP.Resolution = 12
			cfg.Steps = 20

			exp, ms, counts := run(cfg)

			Expect(ms["stability"]).To(Equal(1.0))
			Expect(counts[0]).To(Equal(counts[len(counts)-1]))
			Expect(exp.Solver().Diagnostics().Finite).To(BeTrue())
		})
	})

	Describe("setup errors", func() {
		It("rejects unknown solvers", func() {
			cfg := config.DefaultConfig()
			cfg.Solver = "vortex"
			err := experiment.New(cfg, nil, logger).Setup()
			Expect(err).To(MatchError(fluid.ErrUnknownSolver))
		})

		It("rejects invalid parameters", func() {
			cfg := config.DefaultConfig()
			cfg.SPH.SmoothingRadius = -1
			Expect(experiment.New(cfg, nil, logger).Setup()).To(MatchError(fluid.ErrInvalidConfig))
		})

		It("refuses to run before setup", func() {
			_, err := experiment.New(config.DefaultConfig(), nil, logger).Run(context.Background())
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Registry", func() {
		It("lists the built-in solvers", func() {
			Expect(experiment.NewRegistry().ListSolvers()).To(Equal([]string{"flip", "lbm", "sph"}))
		})
	})

	Describe("Retune", func() {
		It("applies only the tunables that changed", func() {
			cfg := config.GetPreset("lbm", "quiescent")
			cfg.LBM.Width, cfg.LBM.Height = 8, 8
			s, err := experiment.Build(cfg, logger)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(s.Close)

			changed, err := experiment.Retune(s, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(changed).To(BeEmpty())

			next := cfg.Clone()
			next.LBM.Tau = 0.8
			changed, err = experiment.Retune(s, next)
			Expect(err).NotTo(HaveOccurred())
			Expect(changed).To(Equal([]string{"tau", "viscosity"}))
			Expect(s.GetParams()["tau"]).To(BeNumerically("~", 0.8, 1e-12))
		})

		It("rejects unknown solvers", func() {
			cfg := config.DefaultConfig()
			cfg.Solver = "vortex"
			_, err := experiment.Tunables(cfg)
			Expect(err).To(MatchError(fluid.ErrUnknownSolver))
		})
	})
})
