package experiment_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/breathsim/internal/config"
	"github.com/san-kum/breathsim/internal/dynamo"
	"github.com/san-kum/breathsim/internal/experiment"
	"github.com/san-kum/breathsim/internal/physics"
)

func smallConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.GridSize = 16
	cfg.TMax = 5
	cfg.NTimes = 51
	return cfg
}

func run(cfg *config.Config) *experiment.Result {
	exp, err := experiment.New(cfg)
	Expect(err).NotTo(HaveOccurred())
	res, err := exp.Run(context.Background())
	Expect(err).NotTo(HaveOccurred())
	return res
}

var _ = Describe("SampleTimes", func() {
	It("spans [0, t_max] with both ends included", func() {
		ts := experiment.SampleTimes(500, 2000)
		Expect(ts).To(HaveLen(2000))
		Expect(ts[0]).To(Equal(0.0))
		Expect(ts[1999]).To(Equal(500.0))
		Expect(ts[1]).To(BeNumerically("~", 500.0/1999, 1e-12))
	})
})

var _ = Describe("Experiment", func() {
	Describe("trajectory shape", func() {
		var (
			cfg *config.Config
			res *experiment.Result
		)

		BeforeEach(func() {
			cfg = smallConfig()
			res = run(cfg)
		})

		It("has one row per site and one column per sample", func() {
			Expect(res.Field).To(HaveLen(cfg.GridSize))
			Expect(res.Velocity).To(HaveLen(cfg.GridSize))
			for i := range res.Field {
				Expect(res.Field[i]).To(HaveLen(cfg.NTimes))
				Expect(res.Velocity[i]).To(HaveLen(cfg.NTimes))
			}
			Expect(res.Times).To(HaveLen(cfg.NTimes))
		})

		It("starts at t=0 and ends at t_max", func() {
			Expect(res.Times[0]).To(Equal(0.0))
			Expect(res.Times[len(res.Times)-1]).To(Equal(cfg.TMax))
		})

		It("finds the sample nearest a time", func() {
			Expect(res.SampleAt(2.04)).To(Equal(20))
			Expect(res.SampleAt(-3)).To(Equal(0))
			Expect(res.SampleAt(99)).To(Equal(cfg.NTimes - 1))
			p := res.Profile(res.SampleAt(2.04))
			Expect(p).To(HaveLen(cfg.GridSize))
			Expect(p[3]).To(Equal(res.Field[3][20]))
		})

		It("begins from the seeded initial condition", func() {
			y0 := physics.NewInitializer(cfg.Seed).State(cfg.GridSize)
			Expect([]float64(res.State(0))).To(Equal([]float64(y0)))
		})

		It("records the default metrics", func() {
			Expect(res.Metrics).To(HaveKey("energy"))
			Expect(res.Metrics).To(HaveKey("energy_drift"))
			Expect(res.Metrics).To(HaveKey("velocity_bound"))
			Expect(res.Metrics).To(HaveKey("field_spread"))
			Expect(res.Metrics).To(HaveKeyWithValue("stability", 1.0))
			Expect(res.Stats.Steps).To(BeNumerically(">", 0))
		})
	})

	It("is deterministic for a fixed seed", func() {
		a := run(smallConfig())
		b := run(smallConfig())
		Expect(a.Field).To(Equal(b.Field))
		Expect(a.Velocity).To(Equal(b.Velocity))
	})

	It("depends on the seed", func() {
		cfg := smallConfig()
		cfg.Seed = 7
		Expect(run(cfg).Field).NotTo(Equal(run(smallConfig()).Field))
	})

	It("agrees with a fixed-step RK4 run over a short horizon", func() {
		cfg := smallConfig()
		cfg.GridSize = 8
		cfg.TMax = 2
		cfg.NTimes = 21
		cfg.RTol, cfg.ATol = 1e-9, 1e-12
		adaptive := run(cfg)

		cfg.Integrator = "rk4"
		cfg.Dt = 0.01
		fixed := run(cfg)

		for i := range adaptive.Field {
			for k := range adaptive.Field[i] {
				Expect(fixed.Field[i][k]).To(BeNumerically("~", adaptive.Field[i][k], 1e-5))
			}
		}
	})

	Describe("without coupling", func() {
		const (
			n     = 8
			tMax  = 50.0
			slack = 1e-6
		)
		var (
			cfg *config.Config
			exp *experiment.Experiment
			y0  dynamo.State
			res *experiment.Result
		)

		BeforeEach(func() {
			cfg = config.DefaultConfig()
			cfg.GridSize = n
			cfg.Coupling = 0
			cfg.TMax = tMax
			cfg.NTimes = 501
			cfg.RTol, cfg.ATol = 1e-9, 1e-12

			y0 = physics.NewInitializer(3).State(n)
			for i := 0; i < n; i++ {
				y0[i] *= 0.05
			}

			var err error
			exp, err = experiment.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(exp.SetInitialState(y0)).To(Succeed())
			res, err = exp.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
		})

		It("stays finite", func() {
			for _, row := range res.Field {
				for _, v := range row {
					Expect(math.IsNaN(v) || math.IsInf(v, 0)).To(BeFalse())
				}
			}
		})

		It("conserves energy", func() {
			Expect(res.Metrics["energy_drift"]).To(BeNumerically("<", 1e-6))
		})

		It("keeps each velocity inside its energy bound", func() {
			field := exp.Field()
			l4 := math.Pow(cfg.Lambda, 4)
			for i := 0; i < n; i++ {
				e := field.SiteEnergy(y0[i], y0[n+i])
				bound := math.Sqrt(2 * (e + l4) / cfg.Kappa)
				for _, v := range res.Velocity[i] {
					Expect(math.Abs(v)).To(BeNumerically("<=", bound+slack))
				}
			}
		})

		It("evolves every site independently", func() {
			single := cfg.Clone()
			single.GridSize = 1
			for _, site := range []int{0, 3, n - 1} {
				alone, err := experiment.New(single)
				Expect(err).NotTo(HaveOccurred())
				Expect(alone.SetInitialState(dynamo.State{y0[site], y0[n+site]})).To(Succeed())
				res1, err := alone.Run(context.Background())
				Expect(err).NotTo(HaveOccurred())

				for k := range res.Times {
					Expect(res1.Field[0][k]).To(BeNumerically("~", res.Field[site][k], 1e-5))
				}
			}
		})
	})

	Describe("failures", func() {
		It("rejects an invalid configuration", func() {
			cfg := smallConfig()
			cfg.Kappa = 0
			_, err := experiment.New(cfg)
			Expect(err).To(MatchError(dynamo.ErrParameterBounds))
		})

		It("rejects an unknown integrator", func() {
			cfg := smallConfig()
			cfg.Integrator = "leapfrog"
			_, err := experiment.New(cfg)
			Expect(err).To(MatchError(ContainSubstring("unknown integrator")))
		})

		It("rejects an initial state of the wrong size", func() {
			exp, err := experiment.New(smallConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(exp.SetInitialState(dynamo.State{1, 2, 3})).To(MatchError(dynamo.ErrDimensionMismatch))
		})

		It("surfaces solver failure without a partial result", func() {
			cfg := smallConfig()
			cfg.MaxSteps = 3
			cfg.MaxStep = 0.01
			exp, err := experiment.New(cfg)
			Expect(err).NotTo(HaveOccurred())

			res, err := exp.Run(context.Background())
			Expect(res).To(BeNil())
			Expect(err).To(MatchError(dynamo.ErrMaxSteps))

			var simErr *dynamo.SimulationError
			Expect(errors.As(err, &simErr)).To(BeTrue())
			Expect(simErr.Step).To(Equal(3))
		})

		It("stops when the context is canceled", func() {
			exp, err := experiment.New(smallConfig())
			Expect(err).NotTo(HaveOccurred())

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err = exp.Run(ctx)
			Expect(err).To(MatchError(context.Canceled))
		})
	})
})
