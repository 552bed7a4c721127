// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const recordingBitDepth = 16

// Recorder writes raw capture PCM to a 16-bit WAV file at the hardware rate.
// It is safe to Write from the audio goroutine while another goroutine
// calls Close.
type Recorder struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	encoder *wav.Encoder
	buf     *audio.IntBuffer
	frames  int64
	closed  bool
}

// NewRecorder creates path and prepares a WAV encoder for interleaved PCM16
// with the given rate and channel count.
func NewRecorder(path string, sampleRate, channels int) (*Recorder, error) {
	if sampleRate <= 0 || channels < 1 {
		return nil, fmt.Errorf("recording: invalid format %d Hz, %d ch", sampleRate, channels)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("recording: %w", err)
	}

	return &Recorder{
		path:    path,
		file:    file,
		encoder: wav.NewEncoder(file, sampleRate, recordingBitDepth, channels, 1),
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: channels,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: recordingBitDepth,
		},
	}, nil
}

// Path returns the file being written.
func (r *Recorder) Path() string { return r.path }

// Frames returns the number of frames written so far.
func (r *Recorder) Frames() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Write appends interleaved samples. Writing after Close fails with ErrClosed.
func (r *Recorder) Write(pcm []int16) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if len(pcm) == 0 {
		return nil
	}

	if cap(r.buf.Data) < len(pcm) {
		r.buf.Data = make([]int, len(pcm))
	}
	r.buf.Data = r.buf.Data[:len(pcm)]
	for i, s := range pcm {
		r.buf.Data[i] = int(s)
	}

	if err := r.encoder.Write(r.buf); err != nil {
		return fmt.Errorf("recording: %w", err)
	}
	r.frames += int64(len(pcm) / r.buf.Format.NumChannels)
	return nil
}

// Close finalizes the WAV header and closes the file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	return errors.Join(r.encoder.Close(), r.file.Close())
}
