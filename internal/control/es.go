package control

import (
	"fmt"
	"math"

	"github.com/san-kum/essim/internal/horizon"
	"gonum.org/v1/gonum/mat"
)

// filterRatio fixes both filter corners at one tenth of the probe frequency.
const filterRatio = 10.0

// ES is an N-channel perturbation-based extremum seeking controller.
//
// Each step it highpass filters the measured objective, demodulates it with
// the probe, lowpass filters the result into a gradient estimate and
// integrates that estimate into the setpoint. The applied control is the
// setpoint plus the probe.
type ES struct {
	name  string
	nc    int
	tb    *horizon.TimeBase
	dt    float64
	mode  Mode
	probe Probe

	fes  float64
	wes  float64
	whpf float64
	wlpf float64
	aes  []float64
	kint []float64

	psi      []float64
	rho      *mat.Dense
	eps      *mat.Dense
	sigma    *mat.Dense
	xihat    *mat.Dense
	thetahat *mat.Dense
	theta    *mat.Dense

	cursor   horizon.Cursor
	recorded bool
}

// New validates cfg against the horizon and preallocates every array.
func New(tb *horizon.TimeBase, cfg Config) (*ES, error) {
	if tb == nil {
		return nil, fmt.Errorf("%w: nil time base", horizon.ErrConfig)
	}
	nc := cfg.Channels
	if nc == 0 {
		nc = 1
	}
	if nc < 0 {
		return nil, fmt.Errorf("%w: channel count must be positive, got %d", horizon.ErrConfig, nc)
	}
	if !(cfg.Fes > 0) || math.IsInf(cfg.Fes, 0) {
		return nil, fmt.Errorf("%w: probe frequency must be positive and finite, got %v", horizon.ErrConfig, cfg.Fes)
	}
	if cfg.Mode != Minimize && cfg.Mode != Maximize {
		return nil, fmt.Errorf("%w: invalid mode %v", horizon.ErrConfig, cfg.Mode)
	}
	if len(cfg.Aes) == 0 {
		return nil, fmt.Errorf("%w: probe amplitude is required", horizon.ErrConfig)
	}
	if len(cfg.Kint) == 0 {
		return nil, fmt.Errorf("%w: integrator gain is required", horizon.ErrConfig)
	}

	aes, err := broadcast("aes", cfg.Aes, nc, 0)
	if err != nil {
		return nil, err
	}
	for c, a := range aes {
		if !(a > 0) || math.IsInf(a, 0) {
			return nil, fmt.Errorf("%w: aes[%d] must be positive and finite, got %v", horizon.ErrConfig, c, a)
		}
	}
	kint, err := broadcast("kint", cfg.Kint, nc, 0)
	if err != nil {
		return nil, err
	}
	for c, k := range kint {
		if math.IsNaN(k) || math.IsInf(k, 0) {
			return nil, fmt.Errorf("%w: kint[%d] must be finite, got %v", horizon.ErrConfig, c, k)
		}
	}
	thetahat0, err := broadcast("thetahat0", cfg.Thetahat0, nc, 0)
	if err != nil {
		return nil, err
	}

	dt := tb.Dt()
	wes := 2 * math.Pi * cfg.Fes
	whpf := wes / filterRatio
	wlpf := wes / filterRatio
	if whpf*dt >= 2 {
		return nil, fmt.Errorf("%w: highpass whpf*dT = %v (must be < 2)", horizon.ErrUnstableFilter, whpf*dt)
	}
	if wlpf*dt >= 2 {
		return nil, fmt.Errorf("%w: lowpass wlpf*dT = %v (must be < 2)", horizon.ErrUnstableFilter, wlpf*dt)
	}

	probe := cfg.Probe
	if probe == nil {
		probe = DefaultProbe
	}

	n := tb.Len()
	es := &ES{
		name:     cfg.Name,
		nc:       nc,
		tb:       tb,
		dt:       dt,
		mode:     cfg.Mode,
		probe:    probe,
		fes:      cfg.Fes,
		wes:      wes,
		whpf:     whpf,
		wlpf:     wlpf,
		aes:      aes,
		kint:     kint,
		psi:      make([]float64, n),
		rho:      mat.NewDense(nc, n, nil),
		eps:      mat.NewDense(nc, n, nil),
		sigma:    mat.NewDense(nc, n, nil),
		xihat:    mat.NewDense(nc, n, nil),
		thetahat: mat.NewDense(nc, n, nil),
		theta:    mat.NewDense(nc, n, nil),
		cursor:   horizon.NewCursor(n),
	}

	wt0 := wes * tb.At(0)
	for c := 0; c < nc; c++ {
		es.thetahat.Set(c, 0, thetahat0[c])
		es.theta.Set(c, 0, thetahat0[c]+aes[c]*probe(c, nc, wt0))
	}

	return es, nil
}

// RecordObjective stores the externally measured objective for index kt.
// At kt = 0 it also seeds eps with the first measurement, since there is
// no history to filter against.
func (e *ES) RecordObjective(kt int, psi float64) error {
	if err := e.cursor.Expect("record objective", kt); err != nil {
		return err
	}
	e.psi[kt] = psi
	if kt == 0 {
		for c := 0; c < e.nc; c++ {
			e.eps.Set(c, 0, psi)
		}
	}
	e.recorded = true
	return nil
}

// Advance runs the recurrence for index kt. Indices must arrive in
// strictly increasing order, each once, after RecordObjective(kt).
func (e *ES) Advance(kt int) error {
	if err := e.cursor.Expect("advance", kt); err != nil {
		return err
	}
	if !e.recorded {
		return fmt.Errorf("%w: objective for index %d not recorded", horizon.ErrSequence, kt)
	}

	if kt >= 1 {
		wt := e.wes * e.tb.At(kt)
		dpsi := e.psi[kt] - e.psi[kt-1]
		hp := 1 - e.whpf*e.dt
		lp := 1 - e.wlpf*e.dt

		for c := 0; c < e.nc; c++ {
			p := e.probe(c, e.nc, wt)

			rho := hp*e.rho.At(c, kt-1) + dpsi
			e.rho.Set(c, kt, rho)

			e.eps.Set(c, kt, e.psi[kt]-rho)

			e.sigma.Set(c, kt, 2/e.aes[c]*p*rho)

			// The lowpass is driven by sigma at kt-1, not kt.
			e.xihat.Set(c, kt, lp*e.xihat.At(c, kt-1)+e.wlpf*e.dt*e.sigma.At(c, kt-1))

			step := e.kint[c] * e.dt * e.xihat.At(c, kt-1)
			if e.mode == Maximize {
				e.thetahat.Set(c, kt, e.thetahat.At(c, kt-1)+step)
			} else {
				e.thetahat.Set(c, kt, e.thetahat.At(c, kt-1)-step)
			}

			e.theta.Set(c, kt, e.thetahat.At(c, kt)+e.aes[c]*p)
		}
	}

	e.cursor.Advance()
	e.recorded = false
	return nil
}

// Step records psi for kt and advances in one call.
func (e *ES) Step(kt int, psi float64) error {
	if err := e.RecordObjective(kt, psi); err != nil {
		return err
	}
	return e.Advance(kt)
}

// ControlInto copies theta[:,kt] into dst. theta[:,0] is available from
// construction; any other index only once it has been advanced.
func (e *ES) ControlInto(dst []float64, kt int) error {
	if len(dst) != e.nc {
		return fmt.Errorf("%w: control buffer has %d slots, controller %q has %d channels",
			horizon.ErrDimensionMismatch, len(dst), e.name, e.nc)
	}
	if kt != 0 && !e.cursor.Completed(kt) {
		return fmt.Errorf("%w: control for index %d of %q not computed yet", horizon.ErrSequence, kt, e.name)
	}
	for c := range dst {
		dst[c] = e.theta.At(c, kt)
	}
	return nil
}

// Setpoint returns thetahat[:,kt], with the same availability as
// ControlInto.
func (e *ES) Setpoint(kt int) ([]float64, error) {
	if kt != 0 && !e.cursor.Completed(kt) {
		return nil, fmt.Errorf("%w: setpoint for index %d of %q not computed yet", horizon.ErrSequence, kt, e.name)
	}
	return mat.Col(nil, kt, e.thetahat), nil
}

func (e *ES) Name() string         { return e.name }
func (e *ES) Channels() int        { return e.nc }
func (e *ES) Mode() Mode           { return e.mode }
func (e *ES) Fes() float64         { return e.fes }
func (e *ES) Wes() float64         { return e.wes }
func (e *ES) Whpf() float64        { return e.whpf }
func (e *ES) Wlpf() float64        { return e.wlpf }
func (e *ES) Steps() int           { return e.cursor.Next() }
func (e *ES) Aes() []float64       { return append([]float64(nil), e.aes...) }
func (e *ES) Kint() []float64      { return append([]float64(nil), e.kint...) }
func (e *ES) Psi() []float64       { return append([]float64(nil), e.psi...) }
func (e *ES) Rho() mat.Matrix      { return e.rho }
func (e *ES) Eps() mat.Matrix      { return e.eps }
func (e *ES) Sigma() mat.Matrix    { return e.sigma }
func (e *ES) Xihat() mat.Matrix    { return e.xihat }
func (e *ES) Thetahat() mat.Matrix { return e.thetahat }
func (e *ES) Theta() mat.Matrix    { return e.theta }
