// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"sdrfront/internal/dsp"
	"sdrfront/internal/log"
)

// SinkConfig configures the playback side.
type SinkConfig struct {
	DeviceID        int
	SampleRate      float64 // hardware rate
	Channels        int
	FramesPerBuffer int
	LowLatency      bool

	// Taps is the anti-imaging filter used by Write when Factor > 1.
	Taps   []float64
	Factor int
}

// Sink stages mono samples into hardware-sized PCM16 buffers and writes
// each full buffer to the playback device.
//
// Write and WriteResampled are meant for a single audio goroutine. Close
// may be called from any goroutine.
type Sink struct {
	cfg    SinkConfig
	logger *log.Logger

	lookup func(int) (*portaudio.DeviceInfo, error)
	open   func(StreamParams) (PlaybackStream, error)

	mu       sync.Mutex
	state    handleState
	stream   PlaybackStream
	inflight sync.WaitGroup

	interp    *dsp.Interpolator
	upsampled []float64
	staging   []int16
	cursor    int
	pending   atomic.Int64 // mirrors cursor for readers off the audio goroutine

	flushes    atomic.Uint64
	underflows atomic.Uint64
}

// NewSink validates cfg and builds an unopened sink.
func NewSink(cfg SinkConfig, logger *log.Logger) (*Sink, error) {
	if cfg.Channels < 1 {
		return nil, fmt.Errorf("audio: sink channels must be >= 1, got %d", cfg.Channels)
	}
	if cfg.FramesPerBuffer < 1 {
		return nil, fmt.Errorf("audio: frames per buffer must be >= 1, got %d", cfg.FramesPerBuffer)
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("audio: invalid sample rate %f", cfg.SampleRate)
	}

	s := &Sink{
		cfg:     cfg,
		logger:  logger,
		lookup:  OutputDevice,
		open:    OpenPlayback,
		staging: make([]int16, cfg.FramesPerBuffer),
	}

	if cfg.Factor > 1 {
		taps, err := filterTaps(cfg.Taps, cfg.Factor)
		if err != nil {
			return nil, fmt.Errorf("audio: sink filter: %w", err)
		}
		s.interp, err = dsp.NewInterpolator(taps, cfg.Factor)
		if err != nil {
			return nil, fmt.Errorf("audio: sink filter: %w", err)
		}
	} else if cfg.Factor < 1 {
		return nil, fmt.Errorf("audio: sink filter: %w: got %d", dsp.ErrInvalidFactor, cfg.Factor)
	}
	return s, nil
}

// Flushes returns how many full buffers were handed to the device.
func (s *Sink) Flushes() uint64 { return s.flushes.Load() }

// Underflows returns how many writes reported an output underflow.
func (s *Sink) Underflows() uint64 { return s.underflows.Load() }

// Pending returns the number of samples staged but not yet written. It may
// be called from any goroutine.
func (s *Sink) Pending() int { return int(s.pending.Load()) }

// Open acquires the playback device and starts the stream.
func (s *Sink) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateOpen:
		return nil
	case stateClosed:
		return ErrClosed
	}

	device, err := s.lookup(s.cfg.DeviceID)
	if err != nil {
		return &DeviceInitError{Device: fmt.Sprintf("output device %d", s.cfg.DeviceID), Err: err}
	}

	stream, err := s.open(StreamParams{
		Device:          device,
		Channels:        s.cfg.Channels,
		SampleRate:      s.cfg.SampleRate,
		FramesPerBuffer: s.cfg.FramesPerBuffer,
		LowLatency:      s.cfg.LowLatency,
	})
	if err != nil {
		return &DeviceInitError{Device: device.Name, Err: err}
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return &DeviceInitError{Device: device.Name, Err: err}
	}

	s.stream = stream
	s.state = stateOpen
	s.logger.Infof("opened %s: %.0f Hz, %d ch, %d frames",
		device.Name, s.cfg.SampleRate, s.cfg.Channels, s.cfg.FramesPerBuffer)
	return nil
}

func (s *Sink) acquire() (PlaybackStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateUnopened:
		return nil, ErrNotOpen
	case stateClosed:
		return nil, ErrClosed
	}
	s.inflight.Add(1)
	return s.stream, nil
}

func (s *Sink) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateClosed
}

// Write upsamples a block at the processing rate to the hardware rate and
// queues it for playback.
func (s *Sink) Write(block SampleBlock) error {
	if len(block) == 0 {
		return nil
	}
	if s.interp == nil {
		return s.WriteResampled(block)
	}
	s.upsampled = s.interp.InterpolateInto(s.upsampled, block)
	return s.WriteResampled(s.upsampled)
}

// WriteResampled queues a block that is already at the hardware rate. Every
// time the staging buffer fills it is written to the device, so one call
// may block for several hardware buffers or for none.
func (s *Sink) WriteResampled(block SampleBlock) error {
	if len(block) == 0 {
		return nil
	}
	stream, err := s.acquire()
	if err != nil {
		return err
	}
	defer s.inflight.Done()

	for len(block) > 0 {
		n := dsp.FloatsToPCM16(s.staging[s.cursor:], block)
		s.cursor += n
		block = block[n:]
		if s.cursor < len(s.staging) {
			s.pending.Store(int64(s.cursor))
			break
		}

		s.cursor = 0
		s.pending.Store(0)
		err := stream.Write(s.staging)
		if err != nil && !errors.Is(err, ErrOutputUnderflow) {
			if s.closed() {
				return ErrClosed
			}
			return &DeviceFaultError{Op: "write", Err: err}
		}
		s.flushes.Add(1)
		if err != nil {
			total := s.underflows.Add(1)
			s.logger.Debugf("output underflow (%d total)", total)
		}
	}
	return nil
}

// Close aborts playback and releases the device. A partially filled staging
// buffer is discarded. Close is idempotent.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		return nil
	}
	prev := s.state
	stream := s.stream
	s.state = stateClosed
	s.stream = nil
	s.mu.Unlock()

	if prev != stateOpen || stream == nil {
		return nil
	}

	var errs []error
	if err := stream.Abort(); err != nil {
		errs = append(errs, fmt.Errorf("abort output stream: %w", err))
	}
	s.inflight.Wait()
	if err := stream.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close output stream: %w", err))
	}
	if s.cursor > 0 {
		s.logger.Debugf("discarded %d staged samples", s.cursor)
	}
	s.logger.Infof("closed (%d buffers, %d underflows)", s.flushes.Load(), s.underflows.Load())
	return errors.Join(errs...)
}
