// SPDX-License-Identifier: MIT
package dsp

import (
	"errors"
	"fmt"

	"github.com/tphakala/simd/f64"
)

var (
	ErrNoTaps        = errors.New("dsp: filter needs at least one tap")
	ErrInvalidFactor = errors.New("dsp: rate factor must be >= 1")
)

// delayLine is the shift register behind both converters. It stores every
// sample twice, at idx and idx+n, so the newest n samples are always the
// contiguous window line[idx:idx+n] with the newest sample first. Pushing is
// O(1) and the window can go straight into a dot product.
type delayLine struct {
	line []float64
	idx  int
	n    int
}

func newDelayLine(n int) delayLine {
	return delayLine{line: make([]float64, 2*n), n: n}
}

func (d *delayLine) push(x float64) {
	d.idx--
	if d.idx < 0 {
		d.idx = d.n - 1
	}
	d.line[d.idx] = x
	d.line[d.idx+d.n] = x
}

func (d *delayLine) window() []float64 {
	return d.line[d.idx : d.idx+d.n]
}

func (d *delayLine) reset() {
	clear(d.line)
	d.idx = 0
}

func validate(taps []float64, factor int) error {
	if len(taps) == 0 {
		return ErrNoTaps
	}
	if factor < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidFactor, factor)
	}
	return nil
}

// Decimator low-pass filters and downsamples by an integer factor. The
// filter history and the decimation phase persist across calls, so the
// output of a stream does not depend on how it was split into blocks.
//
// A Decimator is not safe for concurrent use; it belongs to the audio
// goroutine that owns the capture device.
type Decimator struct {
	taps    []float64
	factor  int
	history delayLine
	phase   int // accepted samples since the last output
}

// NewDecimator returns a decimator for the given taps (taps[0] applies to
// the newest sample) and factor. The taps are copied.
func NewDecimator(taps []float64, factor int) (*Decimator, error) {
	if err := validate(taps, factor); err != nil {
		return nil, err
	}
	return &Decimator{
		taps:    append([]float64(nil), taps...),
		factor:  factor,
		history: newDelayLine(len(taps)),
	}, nil
}

// Factor returns the decimation factor.
func (d *Decimator) Factor() int { return d.factor }

// Taps returns the number of filter taps.
func (d *Decimator) Taps() int { return len(d.taps) }

// OutputLen returns how many samples the next call with n input samples
// will produce, given the current phase.
func (d *Decimator) OutputLen(n int) int {
	return (d.phase + n) / d.factor
}

// Decimate filters in and returns a newly allocated output block.
func (d *Decimator) Decimate(in []float64) []float64 {
	return d.DecimateInto(make([]float64, 0, d.OutputLen(len(in))), in)
}

// DecimateInto appends the decimated samples of in to dst[:0] and returns
// the result. It does not allocate when dst has room for OutputLen(len(in)).
func (d *Decimator) DecimateInto(dst, in []float64) []float64 {
	dst = dst[:0]
	for _, x := range in {
		d.history.push(x)
		d.phase++
		if d.phase == d.factor {
			d.phase = 0
			dst = append(dst, f64.DotProduct(d.taps, d.history.window()))
		}
	}
	return dst
}

// Reset clears the history and phase.
func (d *Decimator) Reset() {
	d.history.reset()
	d.phase = 0
}

// Interpolator upsamples by an integer factor: each input sample is followed
// by factor-1 zeros and the stream is low-pass filtered. The inserted sample
// is scaled by factor so the passband keeps unity gain.
type Interpolator struct {
	taps    []float64
	factor  int
	gain    float64
	history delayLine
}

// NewInterpolator returns an interpolator for the given taps and factor.
func NewInterpolator(taps []float64, factor int) (*Interpolator, error) {
	if err := validate(taps, factor); err != nil {
		return nil, err
	}
	return &Interpolator{
		taps:    append([]float64(nil), taps...),
		factor:  factor,
		gain:    float64(factor),
		history: newDelayLine(len(taps)),
	}, nil
}

// Factor returns the interpolation factor.
func (p *Interpolator) Factor() int { return p.factor }

// Interpolate returns a newly allocated block of len(in)*factor samples.
func (p *Interpolator) Interpolate(in []float64) []float64 {
	return p.InterpolateInto(make([]float64, 0, len(in)*p.factor), in)
}

// InterpolateInto appends len(in)*factor samples to dst[:0].
func (p *Interpolator) InterpolateInto(dst, in []float64) []float64 {
	dst = dst[:0]
	for _, x := range in {
		p.history.push(x * p.gain)
		dst = append(dst, f64.DotProduct(p.taps, p.history.window()))
		for range p.factor - 1 {
			p.history.push(0)
			dst = append(dst, f64.DotProduct(p.taps, p.history.window()))
		}
	}
	return dst
}

// Reset clears the history.
func (p *Interpolator) Reset() {
	p.history.reset()
}
