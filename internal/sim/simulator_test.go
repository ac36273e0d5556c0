package sim_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/essim/internal/control"
	"github.com/san-kum/essim/internal/horizon"
	"github.com/san-kum/essim/internal/objective"
	"github.com/san-kum/essim/internal/plant"
	"github.com/san-kum/essim/internal/sim"
)

// traced components append "<stage>:<name>@<kt>" to a shared log.
type trace struct{ log []string }

func (t *trace) add(stage, name string, kt int) {
	t.log = append(t.log, fmt.Sprintf("%s:%s@%d", stage, name, kt))
}

type tracedPlant struct {
	name    string
	tr      *trace
	failAt  int
	sources []plant.ControlSource
}

func (p *tracedPlant) Name() string                           { return p.name }
func (p *tracedPlant) Sources() []plant.ControlSource         { return p.sources }
func (p *tracedPlant) Outputs() int                           { return 1 }
func (p *tracedPlant) OutputInto(dst []float64, kt int) error { return nil }
func (p *tracedPlant) Step(kt int) error {
	if kt == p.failAt {
		return errors.New("boom")
	}
	p.tr.add("system", p.name, kt)
	return nil
}

type tracedObjective struct {
	name    string
	tr      *trace
	systems []objective.Measured
}

func (o *tracedObjective) Name() string                  { return o.name }
func (o *tracedObjective) Systems() []objective.Measured { return o.systems }
func (o *tracedObjective) CollectMeasurements(kt int) error {
	o.tr.add("collect", o.name, kt)
	return nil
}
func (o *tracedObjective) Evaluate(kt int) error {
	o.tr.add("evaluate", o.name, kt)
	return nil
}
func (o *tracedObjective) Value(kt int) (float64, error) { return float64(kt), nil }

type tracedController struct {
	name string
	tr   *trace
	got  []float64
}

func (c *tracedController) Name() string  { return c.name }
func (c *tracedController) Channels() int { return 1 }
func (c *tracedController) RecordObjective(kt int, psi float64) error {
	c.got = append(c.got, psi)
	return nil
}
func (c *tracedController) Advance(kt int) error {
	c.tr.add("controller", c.name, kt)
	return nil
}
func (c *tracedController) ControlInto(dst []float64, kt int) error {
	dst[0] = float64(kt)
	return nil
}

type cancelAt struct {
	step   int
	cancel context.CancelFunc
}

func (c *cancelAt) OnStep(v sim.StepView) {
	if v.Step == c.step {
		c.cancel()
	}
}

type countMetric struct{ n int }

func (m *countMetric) Name() string           { return "count" }
func (m *countMetric) Observe(v sim.StepView) { m.n++ }
func (m *countMetric) Value() float64         { return float64(m.n) }
func (m *countMetric) Reset()                 { m.n = 0 }

func timeBase(dt float64, n int) *horizon.TimeBase {
	tb, err := horizon.New(0, dt, n)
	Expect(err).NotTo(HaveOccurred())
	return tb
}

func esController(tb *horizon.TimeBase, name string, kint float64) *control.ES {
	es, err := control.New(tb, control.Config{
		Name: name,
		Fes:  1,
		Aes:  []float64{0.1},
		Kint: []float64{kint},
	})
	Expect(err).NotTo(HaveOccurred())
	return es
}

func identityPlant(tb *horizon.TimeBase, name string, src *control.ES) *plant.PassThrough {
	p, err := plant.NewPassThrough(tb, plant.PassThroughConfig{
		Name:    name,
		Outputs: src.Channels(),
		Func:    func(u []float64) []float64 { return append([]float64(nil), u...) },
	})
	Expect(err).NotTo(HaveOccurred())
	Expect(p.Bind(src)).To(Succeed())
	return p
}

// squaredObjective is sum((y-target)^2) over the given systems.
func squaredObjective(tb *horizon.TimeBase, name string, target float64, systems ...objective.Measured) *objective.Function {
	f, err := objective.New(tb, objective.Config{
		Name:      name,
		Cost:      objective.SquaredError,
		Reference: objective.ConstantScalar(tb, target),
	})
	Expect(err).NotTo(HaveOccurred())
	Expect(f.Bind(systems...)).To(Succeed())
	return f
}

var _ = Describe("Simulator", func() {
	Describe("construction", func() {
		var tb *horizon.TimeBase

		BeforeEach(func() {
			tb = timeBase(0.1, 5)
		})

		It("rejects an identity mapping with too few objectives", func() {
			tr := &trace{}
			_, err := sim.New(tb, sim.Components{
				Objectives:  []sim.Objective{&tracedObjective{name: "o0", tr: tr}},
				Controllers: []sim.Controller{&tracedController{name: "c0", tr: tr}, &tracedController{name: "c1", tr: tr}},
			}, sim.IdentityMap())
			Expect(err).To(MatchError(horizon.ErrConfig))
		})

		It("rejects out-of-range and short index mappings", func() {
			tr := &trace{}
			comps := sim.Components{
				Objectives:  []sim.Objective{&tracedObjective{name: "o0", tr: tr}},
				Controllers: []sim.Controller{&tracedController{name: "c0", tr: tr}, &tracedController{name: "c1", tr: tr}},
			}
			_, err := sim.New(tb, comps, sim.MapIndices(0, 1))
			Expect(err).To(MatchError(horizon.ErrConfig))
			_, err = sim.New(tb, comps, sim.MapIndices(0))
			Expect(err).To(MatchError(horizon.ErrConfig))
			_, err = sim.New(tb, comps, sim.MapIndices(0, -1))
			Expect(err).To(MatchError(horizon.ErrConfig))
		})

		It("rejects a nil time base", func() {
			_, err := sim.New(nil, sim.Components{}, sim.IdentityMap())
			Expect(err).To(MatchError(horizon.ErrConfig))
		})

		It("rejects an unbound system before running", func() {
			es := esController(tb, "es0", 0.1)
			p, err := plant.NewPassThrough(tb, plant.PassThroughConfig{
				Name:    "p0",
				Outputs: 1,
				Func:    func(u []float64) []float64 { return u },
			})
			Expect(err).NotTo(HaveOccurred())
			other := identityPlant(tb, "p1", es)
			obj := squaredObjective(tb, "obj0", 0, other)

			_, err = sim.New(tb, sim.Components{
				Systems:     []sim.Plant{p, other},
				Objectives:  []sim.Objective{obj},
				Controllers: []sim.Controller{es},
			}, sim.IdentityMap())
			Expect(err).To(MatchError(horizon.ErrNotBound))
			Expect(err.Error()).To(ContainSubstring("p0"))
		})

		It("rejects an unbound objective before running", func() {
			es := esController(tb, "es0", 0.1)
			p := identityPlant(tb, "p0", es)
			obj, err := objective.New(tb, objective.Config{Name: "obj0", Cost: objective.SquaredError})
			Expect(err).NotTo(HaveOccurred())

			_, err = sim.New(tb, sim.Components{
				Systems:     []sim.Plant{p},
				Objectives:  []sim.Objective{obj},
				Controllers: []sim.Controller{es},
			}, sim.IdentityMap())
			Expect(err).To(MatchError(horizon.ErrNotBound))
		})

		It("rejects a system fed by a controller outside the simulation", func() {
			inside := esController(tb, "es0", 0.1)
			outside := esController(tb, "es1", 0.1)
			p := identityPlant(tb, "p0", outside)
			obj := squaredObjective(tb, "obj0", 0, p)

			_, err := sim.New(tb, sim.Components{
				Systems:     []sim.Plant{p},
				Objectives:  []sim.Objective{obj},
				Controllers: []sim.Controller{inside},
			}, sim.IdentityMap())
			Expect(err).To(MatchError(horizon.ErrConfig))
		})

		It("rejects an objective measuring a system outside the simulation", func() {
			es := esController(tb, "es0", 0.1)
			p := identityPlant(tb, "p0", es)
			stray := identityPlant(tb, "p1", es)
			obj := squaredObjective(tb, "obj0", 0, p, stray)

			_, err := sim.New(tb, sim.Components{
				Systems:     []sim.Plant{p},
				Objectives:  []sim.Objective{obj},
				Controllers: []sim.Controller{es},
			}, sim.IdentityMap())
			Expect(err).To(MatchError(horizon.ErrConfig))
		})
	})

	Describe("stage ordering", func() {
		It("runs systems, then objectives, then controllers at every step", func() {
			tb := timeBase(0.1, 2)
			tr := &trace{}
			c0 := &tracedController{name: "c0", tr: tr}
			p0 := &tracedPlant{name: "p0", tr: tr, failAt: -1, sources: []plant.ControlSource{c0}}
			p1 := &tracedPlant{name: "p1", tr: tr, failAt: -1, sources: []plant.ControlSource{c0}}
			s, err := sim.New(tb, sim.Components{
				Systems:     []sim.Plant{p0, p1},
				Objectives:  []sim.Objective{&tracedObjective{name: "o0", tr: tr, systems: []objective.Measured{p0, p1}}},
				Controllers: []sim.Controller{c0},
			}, sim.IdentityMap())
			Expect(err).NotTo(HaveOccurred())

			_, err = s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(tr.log).To(Equal([]string{
				"system:p0@0", "system:p1@0", "collect:o0@0", "evaluate:o0@0", "controller:c0@0",
				"system:p0@1", "system:p1@1", "collect:o0@1", "evaluate:o0@1", "controller:c0@1",
			}))
		})

		It("runs only once", func() {
			s, err := sim.New(timeBase(0.1, 2), sim.Components{}, sim.IdentityMap())
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Run(context.Background())
			Expect(err).To(MatchError(horizon.ErrAlreadyRun))
		})
	})

	Describe("objective mapping", func() {
		run := func(parallel bool) ([]*control.ES, []*objective.Function) {
			tb := timeBase(0.01, 500)
			es := []*control.ES{
				esController(tb, "es0", 0.1),
				esController(tb, "es1", 0.2),
				esController(tb, "es2", 0.3),
			}
			p0 := identityPlant(tb, "p0", es[0])
			p1 := identityPlant(tb, "p1", es[1])
			p2 := identityPlant(tb, "p2", es[2])
			objs := []*objective.Function{
				squaredObjective(tb, "obj0", 1, p0, p1),
				squaredObjective(tb, "obj1", -2, p2),
			}

			s, err := sim.New(tb, sim.Components{
				Systems:     []sim.Plant{p0, p1, p2},
				Objectives:  []sim.Objective{objs[0], objs[1]},
				Controllers: []sim.Controller{es[0], es[1], es[2]},
			}, sim.MapIndices(0, 0, 1))
			Expect(err).NotTo(HaveOccurred())
			s.SetParallel(parallel)

			res, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Steps).To(Equal(500))
			return es, objs
		}

		It("feeds controllers 0 and 1 from objective 0 and controller 2 from objective 1", func() {
			es, objs := run(false)
			Expect(es[0].Psi()).To(Equal(objs[0].Psi()))
			Expect(es[1].Psi()).To(Equal(objs[0].Psi()))
			Expect(es[2].Psi()).To(Equal(objs[1].Psi()))
		})

		It("produces identical arrays when stages run in parallel", func() {
			seqES, seqObj := run(false)
			parES, parObj := run(true)
			for k := range seqES {
				Expect(mat.Equal(seqES[k].Theta(), parES[k].Theta())).To(BeTrue())
			}
			for j := range seqObj {
				Expect(parObj[j].Psi()).To(Equal(seqObj[j].Psi()))
			}
		})
	})

	Describe("failure handling", func() {
		It("wraps a component failure with the step and stage", func() {
			tb := timeBase(0.1, 10)
			tr := &trace{}
			c0 := &tracedController{name: "c0", tr: tr}
			p0 := &tracedPlant{name: "p0", tr: tr, failAt: 3, sources: []plant.ControlSource{c0}}
			s, err := sim.New(tb, sim.Components{
				Systems:     []sim.Plant{p0},
				Objectives:  []sim.Objective{&tracedObjective{name: "o0", tr: tr, systems: []objective.Measured{p0}}},
				Controllers: []sim.Controller{c0},
			}, sim.IdentityMap())
			Expect(err).NotTo(HaveOccurred())

			res, err := s.Run(context.Background())
			var stepErr *horizon.StepError
			Expect(errors.As(err, &stepErr)).To(BeTrue())
			Expect(stepErr.Step).To(Equal(3))
			Expect(stepErr.Stage).To(Equal("system"))
			Expect(stepErr.Component).To(Equal("p0"))
			Expect(res.Steps).To(Equal(3))
			Expect(res.Times).To(HaveLen(3))
		})

		It("surfaces out-of-order components as sequence errors", func() {
			tb := timeBase(0.1, 4)
			es := esController(tb, "es0", 0.1)
			p := identityPlant(tb, "p0", es)
			obj := squaredObjective(tb, "obj0", 0, p)
			Expect(p.Step(0)).To(Succeed())

			s, err := sim.New(tb, sim.Components{
				Systems:     []sim.Plant{p},
				Objectives:  []sim.Objective{obj},
				Controllers: []sim.Controller{es},
			}, sim.IdentityMap())
			Expect(err).NotTo(HaveOccurred())

			_, err = s.Run(context.Background())
			Expect(err).To(MatchError(horizon.ErrSequence))
		})

		It("stops on cancellation and keeps the completed steps", func() {
			tb := timeBase(0.1, 100)
			tr := &trace{}
			ctrl := &tracedController{name: "c0", tr: tr}
			p0 := &tracedPlant{name: "p0", tr: tr, failAt: -1, sources: []plant.ControlSource{ctrl}}
			s, err := sim.New(tb, sim.Components{
				Systems:     []sim.Plant{p0},
				Objectives:  []sim.Objective{&tracedObjective{name: "o0", tr: tr, systems: []objective.Measured{p0}}},
				Controllers: []sim.Controller{ctrl},
			}, sim.IdentityMap())
			Expect(err).NotTo(HaveOccurred())

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			s.AddObserver(&cancelAt{step: 4, cancel: cancel})
			m := &countMetric{}
			s.AddMetric(m)

			res, err := s.Run(ctx)
			Expect(err).To(MatchError(context.Canceled))
			Expect(res.Steps).To(Equal(5))
			Expect(res.Objectives[0]).To(Equal([]float64{0, 1, 2, 3, 4}))
			Expect(res.Controls[0]).To(Equal([]float64{4}))
			Expect(res.Metrics["count"]).To(Equal(5.0))
			Expect(ctrl.got).To(HaveLen(5))
		})
	})

	Describe("closed loop", func() {
		It("drives a quadratic cost to its minimum", func() {
			tb := timeBase(0.01, 20000)
			es := esController(tb, "es0", 0.1)
			p := identityPlant(tb, "p0", es)
			obj := squaredObjective(tb, "obj0", 5, p)

			s, err := sim.New(tb, sim.Components{
				Systems:     []sim.Plant{p},
				Objectives:  []sim.Objective{obj},
				Controllers: []sim.Controller{es},
			}, sim.IdentityMap())
			Expect(err).NotTo(HaveOccurred())

			res, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			setpoint, err := es.Setpoint(tb.Len() - 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(setpoint[0]).To(BeNumerically("~", 5, 0.05))
			Expect(res.Objectives[0][tb.Len()-1]).To(BeNumerically("<", 0.03))
		})

		It("delays the control consumed by the plant by one step", func() {
			tb := timeBase(0.01, 50)
			es := esController(tb, "es0", 0.1)
			p := identityPlant(tb, "p0", es)
			obj := squaredObjective(tb, "obj0", 5, p)

			s, err := sim.New(tb, sim.Components{
				Systems:     []sim.Plant{p},
				Objectives:  []sim.Objective{obj},
				Controllers: []sim.Controller{es},
			}, sim.IdentityMap())
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(p.Input().At(0, 0)).To(Equal(es.Theta().At(0, 0)))
			for kt := 1; kt < tb.Len(); kt++ {
				Expect(p.Input().At(0, kt)).To(Equal(es.Theta().At(0, kt-1)))
			}
		})
	})

	Describe("Ensemble", func() {
		It("runs independent simulators and returns results in order", func() {
			gains := []float64{0.05, 0.1, 0.2}
			ens := sim.NewEnsemble(len(gains), func(i int) (*sim.Simulator, error) {
				defer GinkgoRecover()
				tb, err := horizon.New(0, 0.01, 200)
				if err != nil {
					return nil, err
				}
				es := esController(tb, fmt.Sprintf("es%d", i), gains[i])
				p := identityPlant(tb, "p0", es)
				obj := squaredObjective(tb, "obj0", 1, p)
				return sim.New(tb, sim.Components{
					Systems:     []sim.Plant{p},
					Objectives:  []sim.Objective{obj},
					Controllers: []sim.Controller{es},
				}, sim.IdentityMap())
			})
			ens.SetLimit(2)

			results, err := ens.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			for _, r := range results {
				Expect(r.Steps).To(Equal(200))
			}
		})

		It("reports a member that fails to build", func() {
			ens := sim.NewEnsemble(2, func(i int) (*sim.Simulator, error) {
				if i == 1 {
					return nil, horizon.ErrConfig
				}
				return sim.New(timeBase(0.1, 3), sim.Components{}, sim.IdentityMap())
			})
			_, err := ens.Run(context.Background())
			Expect(err).To(MatchError(horizon.ErrConfig))
		})
	})
})
