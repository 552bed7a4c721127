// SPDX-License-Identifier: MIT
package analysis

import "math"

// FloorLevel is reported when no magnitude data falls in the passband.
const FloorLevel = -200.0

// PassbandMeter measures the power inside the tuned passband from the
// latest FFT frame. It keeps its own magnitude buffer so repeated calls do
// not allocate. A meter is not safe for concurrent use.
type PassbandMeter struct {
	provider FFTResultProvider
	mags     []float64
}

// NewPassbandMeter returns a meter reading from provider.
func NewPassbandMeter(provider FFTResultProvider) *PassbandMeter {
	return &PassbandMeter{
		provider: provider,
		mags:     make([]float64, provider.GetFFTSize()/2+1),
	}
}

// Level returns the mean in-band power in dB for the passband of the given
// width centred on tune. A zero width measures the single nearest bin.
func (m *PassbandMeter) Level(tune, width float64) float64 {
	if err := m.provider.GetMagnitudesInto(m.mags); err != nil {
		return FloorLevel
	}

	binWidth := m.provider.GetSampleRate() / float64(m.provider.GetFFTSize())
	lowHz := tune - width/2
	highHz := tune + width/2

	var energy float64
	var numBins int
	for i, mag := range m.mags {
		freq := m.provider.GetFrequencyForBin(i)
		if freq >= lowHz && freq <= highHz {
			energy += mag * mag
			numBins++
		}
	}

	if numBins == 0 {
		bin := int(math.Round(tune / binWidth))
		if bin < 0 || bin >= len(m.mags) {
			return FloorLevel
		}
		energy = m.mags[bin] * m.mags[bin]
		numBins = 1
	}

	avg := energy / float64(numBins)
	if avg <= 0 {
		return FloorLevel
	}
	return max(10*math.Log10(avg), FloorLevel)
}
