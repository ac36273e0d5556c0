package control

import "math"

// Probe returns the dither waveform of channel c, out of nc channels, at
// phase wt. It must be periodic with period 2*pi and deterministic.
type Probe func(c, nc int, wt float64) float64

// DefaultProbe uses sine for a single channel and the cosine/sine pair for
// two channels, which makes the two demodulated gradients uncorrelated.
// Three or more channels all use sine: cross-channel decoupling is not
// guaranteed there.
func DefaultProbe(c, nc int, wt float64) float64 {
	if nc == 2 && c == 0 {
		return math.Cos(wt)
	}
	return math.Sin(wt)
}

// SineProbe dithers every channel with the same sine.
func SineProbe(c, nc int, wt float64) float64 {
	return math.Sin(wt)
}

// ProbeByName resolves a probe policy name used in scenario files.
func ProbeByName(name string) (Probe, bool) {
	switch name {
	case "", "default":
		return DefaultProbe, true
	case "sine":
		return SineProbe, true
	}
	return nil, false
}
