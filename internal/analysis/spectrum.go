package analysis

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// Spectrum is the one-sided power spectrum of a uniformly sampled series.
type Spectrum struct {
	Freq  []float64
	Power []float64
}

// PowerSpectrum returns |X_k|^2 / n for k = 0..n/2 with frequencies in
// cycles per unit time. The series mean is removed first.
func PowerSpectrum(series []float64, dt float64) (*Spectrum, error) {
	n := len(series)
	if n < 2 {
		return nil, fmt.Errorf("spectrum needs at least 2 samples, got %d", n)
	}
	if !(dt > 0) {
		return nil, fmt.Errorf("sample spacing %g must be positive", dt)
	}

	mean := stat.Mean(series, nil)
	centered := make([]float64, n)
	for i, v := range series {
		centered[i] = v - mean
	}

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, centered)

	s := &Spectrum{
		Freq:  make([]float64, len(coeff)),
		Power: make([]float64, len(coeff)),
	}
	for i, c := range coeff {
		s.Freq[i] = fft.Freq(i) / dt
		a := cmplx.Abs(c)
		s.Power[i] = a * a / float64(n)
	}
	return s, nil
}

// Dominant returns the frequency with the most power, ignoring the zero bin.
func (s *Spectrum) Dominant() (freq, power float64) {
	for i := 1; i < len(s.Power); i++ {
		if s.Power[i] > power {
			freq, power = s.Freq[i], s.Power[i]
		}
	}
	return freq, power
}

// DominantFrequency is a shortcut for PowerSpectrum followed by Dominant.
func DominantFrequency(series []float64, dt float64) (float64, error) {
	s, err := PowerSpectrum(series, dt)
	if err != nil {
		return 0, err
	}
	f, _ := s.Dominant()
	return f, nil
}
