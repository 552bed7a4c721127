// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"sdrfront/internal/log"
	"sdrfront/pkg/bitint"
)

// WindowFunc defines the type for selecting an FFT window function.
type WindowFunc int

// Enum for available window functions.
const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

func (w WindowFunc) String() string {
	switch w {
	case BartlettHann:
		return "bartletthann"
	case Blackman:
		return "blackman"
	case BlackmanNuttall:
		return "blackmannuttall"
	case Hann:
		return "hann"
	case Hamming:
		return "hamming"
	case Lanczos:
		return "lanczos"
	case Nuttall:
		return "nuttall"
	default:
		return fmt.Sprintf("window(%d)", int(w))
	}
}

// FFTConfig configures an FFTProcessor. Hop is the number of new samples
// between frames; zero means Size (no overlap).
type FFTConfig struct {
	Size       int
	SampleRate float64
	Window     WindowFunc
	Hop        int
}

// Pre-allocated buffers for FFT calculations.
type fftWorkspace struct {
	pending   []float64    // Samples accumulated towards the next frame.
	fill      int          // Number of valid samples in pending.
	input     []float64    // Buffer for windowed input signal.
	fftOutput []complex128 // Buffer for FFT complex results.
	power     []float64    // Power spectrum handed to the sink.
	magnitude []float64    // Buffer for calculated magnitudes.
	window    []float64    // Pre-calculated window coefficients.
	mu        sync.RWMutex // Protects concurrent access to magnitude buffer.
}

// FFTProcessor accumulates sample blocks of any length into frames of the
// configured size, transforms each frame and publishes the result twice:
// magnitudes for polling readers via FFTResultProvider, and the power
// spectrum pushed to a SpectrumSink such as the waterfall.
//
// Process belongs to the audio goroutine; the Get* methods may be called
// from any goroutine.
type FFTProcessor struct {
	fftCalculator *fourier.FFT // Reusable FFT calculator instance.
	fftSize       int          // Number of points for the FFT (power of 2).
	hop           int
	sampleRate    float64 // Sample rate of the input audio (Hz).
	windowType    WindowFunc
	workspace     fftWorkspace // Pre-allocated buffers.
	sink          SpectrumSink
	logger        *log.Logger
	frames        atomic.Uint64
}

// Compile-time checks for interface implementations.
var _ BlockProcessor = (*FFTProcessor)(nil)
var _ FFTResultProvider = (*FFTProcessor)(nil)
var _ ClosableProcessor = (*FFTProcessor)(nil)

// NewFFTProcessor validates cfg and pre-allocates every buffer used by
// Process. sink may be nil.
func NewFFTProcessor(cfg FFTConfig, sink SpectrumSink, logger *log.Logger) (*FFTProcessor, error) {
	if !bitint.IsPowerOfTwo(cfg.Size) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", cfg.Size)
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", cfg.SampleRate)
	}
	hop := cfg.Hop
	if hop == 0 {
		hop = cfg.Size
	}
	if hop < 1 || hop > cfg.Size {
		return nil, fmt.Errorf("fft hop must be in [1, %d], got %d", cfg.Size, cfg.Hop)
	}

	windowCoeffs := make([]float64, cfg.Size)
	applyWindow(windowCoeffs, cfg.Window, logger)

	// FFT output size for real input is N/2 + 1 complex values.
	magnitudeSize := cfg.Size/2 + 1

	logger.Infof("Initializing FFTProcessor (Size: %d, Hop: %d, SampleRate: %.1f Hz, Window: %v)",
		cfg.Size, hop, cfg.SampleRate, cfg.Window)

	return &FFTProcessor{
		fftCalculator: fourier.NewFFT(cfg.Size),
		fftSize:       cfg.Size,
		hop:           hop,
		sampleRate:    cfg.SampleRate,
		windowType:    cfg.Window,
		sink:          sink,
		logger:        logger,
		workspace: fftWorkspace{
			pending:   make([]float64, cfg.Size),
			input:     make([]float64, cfg.Size),
			fftOutput: make([]complex128, magnitudeSize),
			power:     make([]float64, magnitudeSize),
			magnitude: make([]float64, magnitudeSize),
			window:    windowCoeffs,
		},
	}, nil
}

// Process appends block to the pending frame and transforms every frame
// that completes. It does not allocate.
func (p *FFTProcessor) Process(block []float64) {
	ws := &p.workspace
	for len(block) > 0 {
		n := copy(ws.pending[ws.fill:], block)
		ws.fill += n
		block = block[n:]
		if ws.fill < p.fftSize {
			return
		}

		p.transform()

		// Keep the overlap for the next frame.
		keep := p.fftSize - p.hop
		copy(ws.pending, ws.pending[p.hop:])
		ws.fill = keep
	}
}

func (p *FFTProcessor) transform() {
	ws := &p.workspace

	for i, x := range ws.pending {
		ws.input[i] = x * ws.window[i]
	}
	p.fftCalculator.Coefficients(ws.fftOutput, ws.input)
	for i, c := range ws.fftOutput {
		ws.power[i] = real(c)*real(c) + imag(c)*imag(c)
	}

	ws.mu.Lock()
	for i, pw := range ws.power {
		ws.magnitude[i] = math.Sqrt(pw)
	}
	ws.mu.Unlock()

	p.frames.Add(1)
	if p.sink != nil {
		p.sink.Update(ws.power)
	}
}

// Frames returns the number of frames transformed so far.
func (p *FFTProcessor) Frames() uint64 {
	return p.frames.Load()
}

// GetMagnitudes returns a thread-safe copy of the latest calculated FFT magnitudes.
// NOTE: This method allocates a new slice for the copy on each call.
// For performance-critical readers wanting to avoid allocation, use GetMagnitudesInto.
func (p *FFTProcessor) GetMagnitudes() []float64 {
	p.workspace.mu.RLock()
	defer p.workspace.mu.RUnlock()

	magCopy := make([]float64, len(p.workspace.magnitude))
	copy(magCopy, p.workspace.magnitude)
	return magCopy
}

// GetMagnitudesInto copies the latest calculated FFT magnitudes into the provided destination slice.
// The destination slice must have the same length as the internal magnitude buffer (fftSize/2 + 1).
func (p *FFTProcessor) GetMagnitudesInto(dest []float64) error {
	p.workspace.mu.RLock()
	defer p.workspace.mu.RUnlock()

	if len(dest) != len(p.workspace.magnitude) {
		return fmt.Errorf("destination slice length %d does not match required length %d", len(dest), len(p.workspace.magnitude))
	}

	copy(dest, p.workspace.magnitude)
	return nil
}

// GetFrequencyForBin returns the center frequency (Hz) for a given FFT bin index.
func (p *FFTProcessor) GetFrequencyForBin(binIndex int) float64 {
	if binIndex < 0 || binIndex >= len(p.workspace.fftOutput) {
		return 0.0
	}
	return float64(binIndex) * (p.sampleRate / float64(p.fftSize))
}

// GetFFTSize returns the configured FFT size (number of points).
func (p *FFTProcessor) GetFFTSize() int {
	return p.fftSize
}

// GetSampleRate returns the configured sample rate (Hz).
func (p *FFTProcessor) GetSampleRate() float64 {
	return p.sampleRate
}

// Reset drops any partially accumulated frame.
func (p *FFTProcessor) Reset() {
	p.workspace.fill = 0
}

// Close handles any necessary cleanup for the FFTProcessor.
func (p *FFTProcessor) Close() error {
	p.logger.Infof("Closing FFTProcessor after %d frames", p.frames.Load())
	return nil
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc
// enum, returns a known default (Hann) and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Hann, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

// applyWindow fills coeffs with the selected window. Unknown types fall
// back to Hann.
func applyWindow(coeffs []float64, windowType WindowFunc, logger *log.Logger) {
	// The gonum windows scale the slice in place, so start from ones.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		logger.Warnf("Unknown window function type %d, defaulting to Hann", windowType)
		window.Hann(coeffs)
	}
}
