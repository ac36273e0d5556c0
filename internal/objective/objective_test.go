package objective

import (
	"errors"
	"testing"

	"github.com/san-kum/essim/internal/horizon"
	"gonum.org/v1/gonum/mat"
)

// fakeSystem reports output i at index k as 100*k + base + i.
type fakeSystem struct {
	name  string
	ny    int
	base  float64
	ready int
}

func (s *fakeSystem) Name() string { return s.name }
func (s *fakeSystem) Outputs() int { return s.ny }
func (s *fakeSystem) OutputInto(dst []float64, kt int) error {
	if kt >= s.ready {
		return horizon.ErrSequence
	}
	for i := range dst {
		dst[i] = 100*float64(kt) + s.base + float64(i)
	}
	return nil
}

func mustTimeBase(t *testing.T, n int) *horizon.TimeBase {
	t.Helper()
	tb, err := horizon.New(0, 0.1, n)
	if err != nil {
		t.Fatalf("time base: %v", err)
	}
	return tb
}

func TestAggregation(t *testing.T) {
	tb := mustTimeBase(t, 4)
	a := &fakeSystem{name: "a", ny: 2, base: 10, ready: 4}
	b := &fakeSystem{name: "b", ny: 3, base: 20, ready: 4}

	f, err := New(tb, Config{Name: "obj", Cost: Sum})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := f.Bind(a, b); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if f.Outputs() != 5 {
		t.Fatalf("expected aggregate width 5, got %d", f.Outputs())
	}
	rows, cols := f.Measurements().Dims()
	if rows != 5 || cols != 4 {
		t.Fatalf("expected 5x4 measurements, got %dx%d", rows, cols)
	}

	for kt := 0; kt < 4; kt++ {
		if err := f.CollectMeasurements(kt); err != nil {
			t.Fatalf("collect %d: %v", kt, err)
		}
		if err := f.Evaluate(kt); err != nil {
			t.Fatalf("evaluate %d: %v", kt, err)
		}

		want := make([]float64, 0, 5)
		ya := make([]float64, 2)
		yb := make([]float64, 3)
		_ = a.OutputInto(ya, kt)
		_ = b.OutputInto(yb, kt)
		want = append(want, ya...)
		want = append(want, yb...)

		got := mat.Col(nil, kt, f.Measurements())
		sum := 0.0
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("y[%d,%d] = %v, want %v", i, kt, got[i], want[i])
			}
			sum += want[i]
		}
		if v, _ := f.Value(kt); v != sum {
			t.Errorf("psi[%d] = %v, want %v", kt, v, sum)
		}
	}
}

func TestReferenceRanks(t *testing.T) {
	tb := mustTimeBase(t, 3)
	series := []float64{1, 2, 3}

	tests := []struct {
		name string
		ref  *Reference
		want []float64 // psi per index for y = (100k+10, 100k+11)
	}{
		{"no reference", nil, []float64{10*10 + 11*11, 110*110 + 111*111, 210*210 + 211*211}},
		{"scalar", Scalar(series), []float64{9*9 + 10*10, 108*108 + 109*109, 207*207 + 208*208}},
		{"per channel", ConstantPerChannel(tb, 10, 11), []float64{0, 2 * 100 * 100, 2 * 200 * 200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tb, Config{Name: "obj", Cost: SquaredError, Reference: tt.ref})
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			if err := f.Bind(&fakeSystem{name: "s", ny: 2, base: 10, ready: 3}); err != nil {
				t.Fatalf("bind: %v", err)
			}
			for kt := 0; kt < 3; kt++ {
				if err := f.CollectMeasurements(kt); err != nil {
					t.Fatalf("collect: %v", err)
				}
				if err := f.Evaluate(kt); err != nil {
					t.Fatalf("evaluate: %v", err)
				}
			}
			psi := f.Psi()
			for kt, w := range tt.want {
				if psi[kt] != w {
					t.Errorf("psi[%d] = %v, want %v", kt, psi[kt], w)
				}
			}
		})
	}
}

func TestReferenceInvalid(t *testing.T) {
	tb := mustTimeBase(t, 3)

	if _, err := New(tb, Config{Cost: Sum, Reference: Scalar([]float64{1, 2})}); !errors.Is(err, horizon.ErrDimensionMismatch) {
		t.Errorf("short scalar: expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := New(tb, Config{Cost: Sum, Reference: PerChannel(mat.NewDense(1, 5, nil))}); !errors.Is(err, horizon.ErrDimensionMismatch) {
		t.Errorf("long rank-2: expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := New(tb, Config{Cost: Sum, Reference: &Reference{}}); !errors.Is(err, horizon.ErrConfig) {
		t.Errorf("empty reference: expected ErrConfig, got %v", err)
	}

	f, err := New(tb, Config{Cost: Sum, Reference: ConstantPerChannel(tb, 1, 2, 3)})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := f.Bind(&fakeSystem{ny: 2, ready: 3}); !errors.Is(err, horizon.ErrDimensionMismatch) {
		t.Errorf("row mismatch: expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSequence(t *testing.T) {
	tb := mustTimeBase(t, 3)
	sys := &fakeSystem{name: "s", ny: 1, ready: 1}

	if _, err := New(tb, Config{Name: "nocost"}); !errors.Is(err, horizon.ErrConfig) {
		t.Errorf("missing cost: expected ErrConfig, got %v", err)
	}

	f, _ := New(tb, Config{Name: "obj", Cost: Sum})
	if err := f.CollectMeasurements(0); !errors.Is(err, horizon.ErrNotBound) {
		t.Errorf("unbound collect: expected ErrNotBound, got %v", err)
	}
	if err := f.Bind(); !errors.Is(err, horizon.ErrConfig) {
		t.Errorf("empty bind: expected ErrConfig, got %v", err)
	}
	if err := f.Bind(sys); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := f.Evaluate(0); !errors.Is(err, horizon.ErrSequence) {
		t.Errorf("evaluate before collect: expected ErrSequence, got %v", err)
	}
	if _, err := f.Value(0); !errors.Is(err, horizon.ErrSequence) {
		t.Errorf("value before evaluate: expected ErrSequence, got %v", err)
	}
	if err := f.CollectMeasurements(0); err != nil {
		t.Fatalf("collect 0: %v", err)
	}
	if err := f.Evaluate(0); err != nil {
		t.Fatalf("evaluate 0: %v", err)
	}
	// The system has not produced index 1 yet.
	if err := f.CollectMeasurements(1); !errors.Is(err, horizon.ErrSequence) {
		t.Errorf("stale system: expected ErrSequence, got %v", err)
	}
}

func TestCosts(t *testing.T) {
	y := []float64{1, -2}
	ref := []float64{0, 1}

	if got := SquaredError(y, ref); got != 10 {
		t.Errorf("SquaredError = %v, want 10", got)
	}
	if got := NegatedSquaredError(y, ref); got != -10 {
		t.Errorf("NegatedSquaredError = %v, want -10", got)
	}
	if got := AbsoluteError(y, ref); got != 4 {
		t.Errorf("AbsoluteError = %v, want 4", got)
	}
	if got := Sum(y, ref); got != -1 {
		t.Errorf("Sum = %v, want -1", got)
	}
	w := Weighted([]CostFunc{SquaredError, Sum}, []float64{0.5, 2})
	if got := w(y, ref); got != 3 {
		t.Errorf("Weighted = %v, want 3", got)
	}
}
