// SPDX-License-Identifier: MIT
package analysis

// BlockProcessor consumes normalized sample blocks at the processing rate.
// Implementations are called from the audio goroutine and should not block.
type BlockProcessor interface {
	Process(block []float64)
}

// ClosableProcessor combines BlockProcessor with a Close method for resource cleanup.
type ClosableProcessor interface {
	BlockProcessor
	Close() error // Close releases any resources held by the processor.
}

// FFTResultProvider defines an interface for components that can provide FFT magnitude results.
// This decouples consumers (the passband meter, the UDP publisher) from the specific FFT
// implementation.
type FFTResultProvider interface {
	GetMagnitudes() []float64                // GetMagnitudes returns a thread-safe copy of the latest FFT magnitude spectrum.
	GetMagnitudesInto(dest []float64) error  // GetMagnitudesInto copies the latest magnitudes without allocating.
	GetFrequencyForBin(binIndex int) float64 // GetFrequencyForBin returns the center frequency (Hz) for a given FFT bin index.
	GetFFTSize() int                         // GetFFTSize returns the size (number of points) of the FFT.
	GetSampleRate() float64                  // GetSampleRate returns the sample rate used for the FFT analysis.
}

// SpectrumSink receives every power spectrum the analyser produces. The
// slice is reused after Update returns.
type SpectrumSink interface {
	Update(spectrum []float64)
}
