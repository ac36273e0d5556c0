package horizon

import (
	"fmt"
	"math"
)

// uniformTol is the relative tolerance on step spacing accepted by FromTimes.
const uniformTol = 1e-9

// TimeBase is a uniformly spaced horizon of N samples, step Dt.
type TimeBase struct {
	times []float64
	dt    float64
}

// New builds a horizon of n samples starting at t0.
func New(t0, dt float64, n int) (*TimeBase, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: horizon needs at least one sample, got %d", ErrConfig, n)
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("%w: dt must be positive and finite, got %v", ErrConfig, dt)
	}
	if math.IsNaN(t0) || math.IsInf(t0, 0) {
		return nil, fmt.Errorf("%w: t0 must be finite, got %v", ErrConfig, t0)
	}
	times := make([]float64, n)
	for k := range times {
		times[k] = t0 + float64(k)*dt
	}
	return &TimeBase{times: times, dt: dt}, nil
}

// FromDuration builds a horizon covering [t0, t0+duration) with step dt.
func FromDuration(t0, dt, duration float64) (*TimeBase, error) {
	if !(duration > 0) {
		return nil, fmt.Errorf("%w: duration must be positive, got %v", ErrConfig, duration)
	}
	if !(dt > 0) {
		return nil, fmt.Errorf("%w: dt must be positive, got %v", ErrConfig, dt)
	}
	return New(t0, dt, int(math.Round(duration/dt)))
}

// FromTimes validates an explicit time array: strictly increasing with a
// uniform step. The array is copied.
func FromTimes(times []float64) (*TimeBase, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("%w: empty time array", ErrConfig)
	}
	if len(times) == 1 {
		return nil, fmt.Errorf("%w: step is undefined for a single sample; use New", ErrConfig)
	}
	dt := times[1] - times[0]
	if !(dt > 0) {
		return nil, fmt.Errorf("%w: time array must be strictly increasing", ErrConfig)
	}
	for k := 1; k < len(times); k++ {
		step := times[k] - times[k-1]
		if math.Abs(step-dt) > uniformTol*math.Max(1, math.Abs(dt)) {
			return nil, fmt.Errorf("%w: non-uniform step at index %d (%v != %v)", ErrConfig, k, step, dt)
		}
	}
	c := make([]float64, len(times))
	copy(c, times)
	return &TimeBase{times: c, dt: dt}, nil
}

func (tb *TimeBase) Len() int         { return len(tb.times) }
func (tb *TimeBase) Dt() float64      { return tb.dt }
func (tb *TimeBase) At(k int) float64 { return tb.times[k] }
func (tb *TimeBase) Start() float64   { return tb.times[0] }

// Duration is the span covered by the horizon, N*dT.
func (tb *TimeBase) Duration() float64 {
	return float64(len(tb.times)) * tb.dt
}

// Times returns a copy of the sample instants.
func (tb *TimeBase) Times() []float64 {
	c := make([]float64, len(tb.times))
	copy(c, tb.times)
	return c
}

// CheckLen reports ErrDimensionMismatch when n differs from the horizon length.
func (tb *TimeBase) CheckLen(what string, n int) error {
	if n != len(tb.times) {
		return fmt.Errorf("%w: %s has %d samples, horizon has %d", ErrDimensionMismatch, what, n, len(tb.times))
	}
	return nil
}
