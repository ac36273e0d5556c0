// Package control provides the perturbation-based extremum seeking
// controller.
//
// An [ES] dithers its setpoint with a sinusoidal probe, correlates the
// measured objective with that probe to estimate the gradient and
// integrates the estimate toward the extremum:
//
//	es, _ := control.New(tb, control.Config{Fes: 1, Aes: []float64{0.1}, Kint: []float64{0.1}})
//	for kt := 0; kt < tb.Len(); kt++ {
//		psi := measure(kt)
//		_ = es.Step(kt, psi)
//	}
//
// [Probe] selects the dither waveform per channel; [DefaultProbe] uses the
// cosine/sine pair for two channels.
package control
