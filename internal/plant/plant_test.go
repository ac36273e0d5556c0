package plant

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/essim/internal/horizon"
	"gonum.org/v1/gonum/mat"
)

// rampSource emits value k at index k on every channel, so tests can see
// which index a system consumed.
type rampSource struct {
	nc int
}

func (r *rampSource) Channels() int { return r.nc }
func (r *rampSource) ControlInto(dst []float64, kt int) error {
	for i := range dst {
		dst[i] = float64(kt) + float64(i)/10
	}
	return nil
}

type constSource struct {
	v float64
}

func (c *constSource) Channels() int { return 1 }
func (c *constSource) ControlInto(dst []float64, kt int) error {
	dst[0] = c.v
	return nil
}

func mustTimeBase(t *testing.T, dt float64, n int) *horizon.TimeBase {
	t.Helper()
	tb, err := horizon.New(0, dt, n)
	if err != nil {
		t.Fatalf("time base: %v", err)
	}
	return tb
}

func TestPassThroughDelay(t *testing.T) {
	tb := mustTimeBase(t, 0.1, 5)
	sys, err := NewPassThrough(tb, PassThroughConfig{
		Name:    "double",
		Outputs: 3,
		Func: func(u []float64) []float64 {
			out := make([]float64, len(u))
			for i, v := range u {
				out[i] = 2 * v
			}
			return out
		},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := sys.Bind(&rampSource{nc: 2}, &rampSource{nc: 1}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if sys.Inputs() != 3 {
		t.Fatalf("expected 3 inputs, got %d", sys.Inputs())
	}

	for kt := 0; kt < 5; kt++ {
		if err := sys.Step(kt); err != nil {
			t.Fatalf("step %d: %v", kt, err)
		}
	}

	tests := []struct {
		kt, src int
	}{
		{0, 0},
		{1, 0},
		{2, 1},
		{4, 3},
	}
	for _, tt := range tests {
		want := []float64{float64(tt.src), float64(tt.src) + 0.1, float64(tt.src)}
		for i, w := range want {
			if got := sys.Input().At(i, tt.kt); got != w {
				t.Errorf("u[%d,%d] = %v, want %v", i, tt.kt, got, w)
			}
			if got := sys.Output().At(i, tt.kt); got != 2*w {
				t.Errorf("y[%d,%d] = %v, want %v", i, tt.kt, got, 2*w)
			}
		}
	}
}

func TestPassThroughWrongWidth(t *testing.T) {
	tb := mustTimeBase(t, 0.1, 3)
	sys, _ := NewPassThrough(tb, PassThroughConfig{
		Name:    "bad",
		Outputs: 2,
		Func:    func(u []float64) []float64 { return u },
	})
	if err := sys.Bind(&constSource{v: 1}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := sys.Step(0); !errors.Is(err, horizon.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSystemSequence(t *testing.T) {
	tb := mustTimeBase(t, 0.1, 3)
	sys, _ := NewPassThrough(tb, PassThroughConfig{
		Name:    "id",
		Outputs: 1,
		Func:    func(u []float64) []float64 { return u },
	})

	if err := sys.Step(0); !errors.Is(err, horizon.ErrNotBound) {
		t.Errorf("unbound step: expected ErrNotBound, got %v", err)
	}
	if err := sys.Bind(); !errors.Is(err, horizon.ErrConfig) {
		t.Errorf("empty bind: expected ErrConfig, got %v", err)
	}
	if err := sys.Bind(&constSource{v: 1}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := sys.Step(1); !errors.Is(err, horizon.ErrSequence) {
		t.Errorf("skipped index: expected ErrSequence, got %v", err)
	}

	out := make([]float64, 1)
	if err := sys.OutputInto(out, 0); !errors.Is(err, horizon.ErrSequence) {
		t.Errorf("output before step: expected ErrSequence, got %v", err)
	}
	if err := sys.Step(0); err != nil {
		t.Fatalf("step 0: %v", err)
	}
	if err := sys.OutputInto(out, 0); err != nil || out[0] != 1 {
		t.Errorf("output after step = %v, %v", out, err)
	}
	if err := sys.Step(0); !errors.Is(err, horizon.ErrSequence) {
		t.Errorf("repeated index: expected ErrSequence, got %v", err)
	}
	if err := sys.Bind(&constSource{v: 2}); !errors.Is(err, horizon.ErrSequence) {
		t.Errorf("rebind while stepping: expected ErrSequence, got %v", err)
	}
}

func TestLinearIntegrator(t *testing.T) {
	dt := 0.05
	n := 40
	tb := mustTimeBase(t, dt, n)
	sys, err := NewLinear(tb, LinearConfig{
		Name: "integrator",
		A:    mat.NewDense(1, 1, []float64{0}),
		B:    mat.NewDense(1, 1, []float64{1}),
		C:    mat.NewDense(1, 1, []float64{1}),
		D:    mat.NewDense(1, 1, []float64{0}),
		X0:   []float64{0},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := sys.Bind(&constSource{v: 1}); err != nil {
		t.Fatalf("bind: %v", err)
	}

	for kt := 0; kt < n; kt++ {
		if err := sys.Step(kt); err != nil {
			t.Fatalf("step %d: %v", kt, err)
		}
	}

	_, cols := sys.State().Dims()
	if cols != n+1 {
		t.Fatalf("expected state with %d columns, got %d", n+1, cols)
	}
	for kt := 0; kt <= n; kt++ {
		want := float64(kt) * dt
		if got := sys.State().At(0, kt); math.Abs(got-want) > 1e-12 {
			t.Errorf("x[%d] = %v, want %v", kt, got, want)
		}
	}
	for kt := 0; kt < n; kt++ {
		if got := sys.Output().At(0, kt); math.Abs(got-float64(kt)*dt) > 1e-12 {
			t.Errorf("y[%d] = %v, want %v", kt, got, float64(kt)*dt)
		}
		if sys.Derivative().At(0, kt) != 1 {
			t.Errorf("xdot[%d] = %v, want 1", kt, sys.Derivative().At(0, kt))
		}
	}
}

func TestLinearDecay(t *testing.T) {
	dt := 0.01
	n := 100
	tb := mustTimeBase(t, dt, n)
	sys, err := NewLinear(tb, LinearConfig{
		Name: "decay",
		A:    mat.NewDense(2, 2, []float64{-1, 0, 0, -2}),
		B:    mat.NewDense(2, 1, []float64{0, 0}),
		C:    mat.NewDense(1, 2, []float64{1, 1}),
		D:    mat.NewDense(1, 1, []float64{0.5}),
		X0:   []float64{1, 1},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := sys.Bind(&constSource{v: 2}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	for kt := 0; kt < n; kt++ {
		if err := sys.Step(kt); err != nil {
			t.Fatalf("step %d: %v", kt, err)
		}
	}

	x1 := math.Pow(1-dt, float64(n))
	x2 := math.Pow(1-2*dt, float64(n))
	if got := sys.State().At(0, n); math.Abs(got-x1) > 1e-12 {
		t.Errorf("x1[N] = %v, want %v", got, x1)
	}
	if got := sys.State().At(1, n); math.Abs(got-x2) > 1e-12 {
		t.Errorf("x2[N] = %v, want %v", got, x2)
	}
	// y = x1 + x2 + 0.5*u at index 0
	if got := sys.Output().At(0, 0); math.Abs(got-3) > 1e-12 {
		t.Errorf("y[0] = %v, want 3", got)
	}
}

func TestLinearInvalid(t *testing.T) {
	tb := mustTimeBase(t, 0.1, 5)
	one := mat.NewDense(1, 1, []float64{1})

	tests := []struct {
		name string
		cfg  LinearConfig
	}{
		{"missing A", LinearConfig{B: one, C: one}},
		{"non-square A", LinearConfig{A: mat.NewDense(1, 2, nil), B: one, C: one}},
		{"B rows", LinearConfig{A: one, B: mat.NewDense(2, 1, nil), C: one}},
		{"C cols", LinearConfig{A: one, B: one, C: mat.NewDense(1, 2, nil)}},
		{"D shape", LinearConfig{A: one, B: one, C: one, D: mat.NewDense(2, 2, nil)}},
		{"x0 width", LinearConfig{A: one, B: one, C: one, X0: []float64{1, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewLinear(tb, tt.cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	sys, err := NewLinear(tb, LinearConfig{Name: "siso", A: one, B: one, C: one})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := sys.Bind(&rampSource{nc: 2}); !errors.Is(err, horizon.ErrDimensionMismatch) {
		t.Errorf("wide bind: expected ErrDimensionMismatch, got %v", err)
	}
}
