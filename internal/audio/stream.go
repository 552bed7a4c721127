// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"time"

	"github.com/gordonklaus/portaudio"
)

// StreamParams describes a blocking PCM16 stream on one device.
type StreamParams struct {
	Device          *portaudio.DeviceInfo
	Channels        int
	SampleRate      float64
	FramesPerBuffer int
	LowLatency      bool
}

func (p StreamParams) latency(low, high time.Duration) time.Duration {
	if p.LowLatency {
		return low
	}
	return high
}

// CaptureStream is a blocking interleaved PCM16 input stream. Read fills
// dst with at most one hardware buffer and may return ErrInputOverflow
// together with valid samples.
type CaptureStream interface {
	Start() error
	Read(dst []int16) (int, error)
	Abort() error
	Close() error
}

// PlaybackStream is a blocking mono PCM16 output stream. Write blocks until
// the device accepts the buffer and may return ErrOutputUnderflow after a
// successful write.
type PlaybackStream interface {
	Start() error
	Write(src []int16) error
	Abort() error
	Close() error
}

type paCapture struct {
	stream *portaudio.Stream
	buf    []int16
}

// OpenCapture opens a PortAudio blocking input stream. The format is
// checked up front so an unsupported rate fails here rather than on Start.
func OpenCapture(p StreamParams) (CaptureStream, error) {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   p.Device,
			Channels: p.Channels,
			Latency:  p.latency(p.Device.DefaultLowInputLatency, p.Device.DefaultHighInputLatency),
		},
		SampleRate:      p.SampleRate,
		FramesPerBuffer: p.FramesPerBuffer,
	}

	buf := make([]int16, p.FramesPerBuffer*p.Channels)
	if err := paLibIsFormatSupported(params, buf); err != nil {
		return nil, err
	}
	stream, err := paLibOpenStream(params, buf)
	if err != nil {
		return nil, err
	}
	return &paCapture{stream: stream, buf: buf}, nil
}

func (c *paCapture) Start() error { return c.stream.Start() }

func (c *paCapture) Read(dst []int16) (int, error) {
	err := c.stream.Read()
	if err != nil && !errors.Is(err, portaudio.InputOverflowed) {
		return 0, err
	}
	n := copy(dst, c.buf)
	if err != nil {
		return n, ErrInputOverflow
	}
	return n, nil
}

func (c *paCapture) Abort() error { return c.stream.Abort() }
func (c *paCapture) Close() error { return c.stream.Close() }

type paPlayback struct {
	stream   *portaudio.Stream
	channels int
	buf      []int16
}

// OpenPlayback opens a PortAudio blocking output stream. Mono samples passed
// to Write are duplicated across all device channels.
func OpenPlayback(p StreamParams) (PlaybackStream, error) {
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   p.Device,
			Channels: p.Channels,
			Latency:  p.latency(p.Device.DefaultLowOutputLatency, p.Device.DefaultHighOutputLatency),
		},
		SampleRate:      p.SampleRate,
		FramesPerBuffer: p.FramesPerBuffer,
	}

	buf := make([]int16, p.FramesPerBuffer*p.Channels)
	if err := paLibIsFormatSupported(params, buf); err != nil {
		return nil, err
	}
	stream, err := paLibOpenStream(params, buf)
	if err != nil {
		return nil, err
	}
	return &paPlayback{stream: stream, channels: max(p.Channels, 1), buf: buf}, nil
}

func (p *paPlayback) Start() error { return p.stream.Start() }

func (p *paPlayback) Write(src []int16) error {
	frames := min(len(src), len(p.buf)/p.channels)
	for i := range frames {
		for c := range p.channels {
			p.buf[i*p.channels+c] = src[i]
		}
	}
	clear(p.buf[frames*p.channels:])

	err := p.stream.Write()
	if errors.Is(err, portaudio.OutputUnderflowed) {
		return ErrOutputUnderflow
	}
	return err
}

func (p *paPlayback) Abort() error { return p.stream.Abort() }
func (p *paPlayback) Close() error { return p.stream.Close() }
