// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/window"
)

const (
	minFilterTaps = 3
	maxFilterTaps = 4095

	// Fraction of the output Nyquist band kept by DecimationTaps. The rest
	// is transition band so the stopband starts before anything can alias.
	decimationPassband = 0.9
)

// LowPass designs a linear-phase low-pass FIR filter as a Blackman-windowed
// sinc with unity DC gain. cutoff is normalized to the input sample rate and
// must lie in (0, 0.5).
func LowPass(numTaps int, cutoff float64) ([]float64, error) {
	if numTaps < minFilterTaps || numTaps > maxFilterTaps {
		return nil, fmt.Errorf("dsp: filter length %d out of range [%d, %d]", numTaps, minFilterTaps, maxFilterTaps)
	}
	if cutoff <= 0 || cutoff >= 0.5 {
		return nil, fmt.Errorf("dsp: cutoff %f must be in (0, 0.5)", cutoff)
	}

	taps := make([]float64, numTaps)
	center := float64(numTaps-1) / 2
	for i := range taps {
		x := float64(i) - center
		if x == 0 {
			taps[i] = 2 * cutoff
			continue
		}
		taps[i] = math.Sin(2*math.Pi*cutoff*x) / (math.Pi * x)
	}
	window.Blackman(taps)

	var sum float64
	for _, h := range taps {
		sum += h
	}
	for i := range taps {
		taps[i] /= sum
	}
	return taps, nil
}

// DecimationTaps designs the anti-aliasing filter for decimating (or the
// anti-imaging filter for interpolating) by factor.
func DecimationTaps(factor, numTaps int) ([]float64, error) {
	if factor < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidFactor, factor)
	}
	return LowPass(numTaps, decimationPassband*0.5/float64(factor))
}
