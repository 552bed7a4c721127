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

// handleState is the lifecycle of a Source or Sink. Closed is terminal.
type handleState int

const (
	stateUnopened handleState = iota
	stateOpen
	stateClosed
)

func (s handleState) String() string {
	switch s {
	case stateUnopened:
		return "unopened"
	case stateOpen:
		return "open"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ReadStatus classifies the outcome of Source.Read.
type ReadStatus int

const (
	// ReadData means the result carries a non-empty block.
	ReadData ReadStatus = iota
	// ReadNoData means hardware samples were consumed but the decimator has
	// not completed an output sample yet. Call Read again.
	ReadNoData
	// ReadFault means the read failed; the returned error says why.
	ReadFault
)

func (s ReadStatus) String() string {
	switch s {
	case ReadData:
		return "data"
	case ReadNoData:
		return "no-data"
	case ReadFault:
		return "fault"
	default:
		return "unknown"
	}
}

// ReadResult is what one Source.Read produced. Block aliases the source's
// internal buffer and is only valid until the next Read.
type ReadResult struct {
	Status ReadStatus
	Block  SampleBlock
	Frames int // hardware frames consumed
}

// SourceConfig configures the capture side.
type SourceConfig struct {
	DeviceID        int
	SampleRate      float64 // hardware rate
	Channels        int
	FramesPerBuffer int
	LowLatency      bool

	// Taps is the anti-aliasing filter. When empty, a default low-pass is
	// designed for Factor.
	Taps   []float64
	Factor int
}

const defaultFilterTaps = 63

// filterTaps returns taps, or a default low-pass for factor when taps is empty.
func filterTaps(taps []float64, factor int) ([]float64, error) {
	if len(taps) > 0 {
		return taps, nil
	}
	if factor == 1 {
		return []float64{1}, nil
	}
	return dsp.DecimationTaps(factor, defaultFilterTaps)
}

// Source reads PCM16 from the capture device, normalizes it, mixes it to
// mono and decimates it to the processing rate.
//
// Read is meant for a single audio goroutine. Close may be called from any
// goroutine; it aborts the stream so a blocked Read returns promptly.
type Source struct {
	cfg    SourceConfig
	logger *log.Logger

	lookup func(int) (*portaudio.DeviceInfo, error)
	open   func(StreamParams) (CaptureStream, error)

	mu       sync.Mutex
	state    handleState
	stream   CaptureStream
	inflight sync.WaitGroup

	decimator *dsp.Decimator
	raw       []int16
	mono      []int16
	floats    []float64
	block     SampleBlock

	recorder  atomic.Pointer[Recorder]
	overflows atomic.Uint64
}

// NewSource validates cfg and builds an unopened source.
func NewSource(cfg SourceConfig, logger *log.Logger) (*Source, error) {
	if cfg.Channels < 1 {
		return nil, fmt.Errorf("audio: source channels must be >= 1, got %d", cfg.Channels)
	}
	if cfg.FramesPerBuffer < 1 {
		return nil, fmt.Errorf("audio: frames per buffer must be >= 1, got %d", cfg.FramesPerBuffer)
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("audio: invalid sample rate %f", cfg.SampleRate)
	}

	taps, err := filterTaps(cfg.Taps, cfg.Factor)
	if err != nil {
		return nil, fmt.Errorf("audio: source filter: %w", err)
	}
	dec, err := dsp.NewDecimator(taps, cfg.Factor)
	if err != nil {
		return nil, fmt.Errorf("audio: source filter: %w", err)
	}

	return &Source{
		cfg:       cfg,
		logger:    logger,
		lookup:    InputDevice,
		open:      OpenCapture,
		decimator: dec,
		raw:       make([]int16, cfg.FramesPerBuffer*cfg.Channels),
		mono:      make([]int16, cfg.FramesPerBuffer),
		floats:    make([]float64, cfg.FramesPerBuffer),
		block:     make(SampleBlock, 0, cfg.FramesPerBuffer/cfg.Factor+1),
	}, nil
}

// OutputRate returns the processing sample rate.
func (s *Source) OutputRate() float64 {
	return s.cfg.SampleRate / float64(s.cfg.Factor)
}

// Overflows returns how many reads reported an input overflow.
func (s *Source) Overflows() uint64 {
	return s.overflows.Load()
}

// SetRecorder tees raw hardware PCM into r. Passing nil stops the tee; the
// caller still owns and closes the recorder.
func (s *Source) SetRecorder(r *Recorder) {
	s.recorder.Store(r)
}

// Open acquires the capture device and starts the stream. Opening an open
// source is a no-op; a closed source cannot be reopened.
func (s *Source) Open() error {
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
		return &DeviceInitError{Device: fmt.Sprintf("input device %d", s.cfg.DeviceID), Err: err}
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
	s.logger.Infof("opened %s: %.0f Hz, %d ch, %d frames, decimate by %d",
		device.Name, s.cfg.SampleRate, s.cfg.Channels, s.cfg.FramesPerBuffer, s.cfg.Factor)
	return nil
}

func (s *Source) acquire() (CaptureStream, error) {
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

func (s *Source) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateClosed
}

// Read blocks for one hardware buffer and returns the decimated block.
func (s *Source) Read() (ReadResult, error) {
	stream, err := s.acquire()
	if err != nil {
		return ReadResult{Status: ReadFault}, err
	}
	defer s.inflight.Done()

	n, err := stream.Read(s.raw)
	if err != nil && !errors.Is(err, ErrInputOverflow) {
		if s.closed() {
			return ReadResult{Status: ReadFault}, ErrClosed
		}
		return ReadResult{Status: ReadFault}, &DeviceFaultError{Op: "read", Err: err}
	}
	if err != nil {
		total := s.overflows.Add(1)
		s.logger.Warnf("input overflow (%d total)", total)
	}
	if n < 0 {
		return ReadResult{Status: ReadFault}, &DeviceFaultError{Op: "read", Err: fmt.Errorf("negative sample count %d", n)}
	}

	n = min(n, len(s.raw))
	pcm := s.raw[:n-n%s.cfg.Channels]

	if rec := s.recorder.Load(); rec != nil {
		// ErrClosed means the recording was stopped during this Read.
		if err := rec.Write(pcm); err != nil && !errors.Is(err, ErrClosed) {
			s.logger.Errorf("recording: %v", err)
		}
	}

	s.mono = dsp.Downmix(s.mono, pcm, s.cfg.Channels)
	s.floats = dsp.PCM16ToFloats(s.floats, s.mono)
	s.block = s.decimator.DecimateInto(s.block, s.floats)

	if len(s.block) == 0 {
		return ReadResult{Status: ReadNoData, Frames: len(s.mono)}, nil
	}
	return ReadResult{Status: ReadData, Block: s.block, Frames: len(s.mono)}, nil
}

// Close aborts the stream, waits for an in-flight Read to return and
// releases the device. It is idempotent.
func (s *Source) Close() error {
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
		errs = append(errs, fmt.Errorf("abort input stream: %w", err))
	}
	s.inflight.Wait()
	if err := stream.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close input stream: %w", err))
	}
	s.logger.Infof("closed (%d overflows)", s.overflows.Load())
	return errors.Join(errs...)
}
