// SPDX-License-Identifier: MIT
package engine

import "sdrfront/internal/audio"

// Tuning is the channel the operator is listening to.
type Tuning struct {
	Frequency     float64 // Hz
	PassbandWidth float64 // Hz
}

// Demodulator turns a block at the processing rate into audio for the
// playback sink. Implementations run on the audio goroutine and may return
// a buffer they reuse on the next call.
type Demodulator interface {
	Demodulate(in audio.SampleBlock, t Tuning) audio.SampleBlock
}

// Passthrough plays the captured signal unchanged (monitor loopback).
type Passthrough struct{}

func (Passthrough) Demodulate(in audio.SampleBlock, _ Tuning) audio.SampleBlock { return in }

// DemodulatorFunc adapts a plain function to Demodulator.
type DemodulatorFunc func(in audio.SampleBlock, t Tuning) audio.SampleBlock

func (f DemodulatorFunc) Demodulate(in audio.SampleBlock, t Tuning) audio.SampleBlock {
	return f(in, t)
}
