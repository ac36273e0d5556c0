package analysis

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// Spectrum returns the one-sided magnitude spectrum of samples taken at
// interval dt, with the mean removed. freqs are in Hz.
func Spectrum(samples []float64, dt float64) (freqs, power []float64) {
	n := len(samples)
	if n < 2 || dt <= 0 {
		return nil, nil
	}
	mean := stat.Mean(samples, nil)
	centered := make([]float64, n)
	for i, v := range samples {
		centered[i] = v - mean
	}

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, centered)

	freqs = make([]float64, len(coeff))
	power = make([]float64, len(coeff))
	for i, c := range coeff {
		freqs[i] = fft.Freq(i) / dt
		power[i] = cmplx.Abs(c)
	}
	return freqs, power
}

// PowerSpectrum is the magnitude half of Spectrum for unit spacing.
func PowerSpectrum(samples []float64) []float64 {
	_, p := Spectrum(samples, 1)
	return p
}

// DominantFrequency is the strongest non-DC component in Hz, or 0 when
// the signal is constant or too short.
func DominantFrequency(samples []float64, dt float64) float64 {
	freqs, power := Spectrum(samples, dt)
	best, at := 0.0, 0
	for i := 1; i < len(power); i++ {
		if power[i] > best {
			best, at = power[i], i
		}
	}
	if at == 0 {
		return 0
	}
	return freqs[at]
}
