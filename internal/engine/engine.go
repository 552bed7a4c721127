// SPDX-License-Identifier: MIT
/*
Package engine wires the capture pipeline to the waterfall.

Two goroutines run under one errgroup:
  - the audio goroutine, on a locked OS thread, reads blocks from the
    source, feeds the analyser (which updates the spectrogram) and plays the
    demodulated block through the sink;
  - the render ticker, which measures the passband level and broadcasts the
    newest waterfall row with its overlay.

They share only the spectrogram, the analyser's magnitudes and the tuning,
each of which is safe for concurrent use. Cancelling the context closes the
device handles so a blocked Read or Write returns at once.
*/
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"sdrfront/internal/analysis"
	"sdrfront/internal/audio"
	"sdrfront/internal/log"
	"sdrfront/internal/transport"
	"sdrfront/internal/waterfall"
)

const defaultRefreshInterval = 100 * time.Millisecond

// ErrRunning is returned by Run when the engine is already running or has run.
var ErrRunning = errors.New("engine: already started")

// Source is the capture side, normally *audio.Source.
type Source interface {
	Open() error
	Read() (audio.ReadResult, error)
	SetRecorder(r *audio.Recorder)
	Close() error
}

// Sink is the playback side, normally *audio.Sink.
type Sink interface {
	Open() error
	Write(block audio.SampleBlock) error
	Close() error
}

// Analyzer consumes blocks and exposes the latest spectrum.
type Analyzer interface {
	analysis.BlockProcessor
	analysis.FFTResultProvider
}

// Config holds the engine settings that are not owned by a component.
type Config struct {
	HardwareRate    float64 // capture rate, used for recordings
	Channels        int     // capture channels, used for recordings
	MaxFrequency    float64 // top of the displayed band
	TickStep        float64
	RefreshInterval time.Duration
	Tuning          Tuning
}

// Deps are the components the engine drives. Sink, Demodulator and
// Transport are optional.
type Deps struct {
	Source      Source
	Sink        Sink
	Analyzer    Analyzer
	Spectrogram *waterfall.Spectrogram
	Demodulator Demodulator
	Transport   transport.Transport
}

// Stats is a snapshot of engine counters.
type Stats struct {
	Blocks  uint64  // blocks read from the source
	Rows    uint64  // rows broadcast
	LevelDB float64 // passband level at the last render tick
}

// Engine runs the audio and render domains.
type Engine struct {
	cfg    Config
	deps   Deps
	logger *log.Logger

	tuneMu sync.Mutex // serializes tuning writers
	tuning atomic.Pointer[Tuning]

	meter     *analysis.PassbandMeter
	rowBuf    []waterfall.Color
	lastRow   uint64
	lastEpoch uint64

	started atomic.Bool
	blocks  atomic.Uint64
	rows    atomic.Uint64
	level   atomic.Uint64 // float64 bits

	recMu    sync.Mutex
	recorder *audio.Recorder

	closeOnce sync.Once
	closeErr  error
}

// New validates the dependencies and builds an engine.
func New(cfg Config, deps Deps, logger *log.Logger) (*Engine, error) {
	if deps.Source == nil {
		return nil, errors.New("engine: source cannot be nil")
	}
	if deps.Analyzer == nil {
		return nil, errors.New("engine: analyzer cannot be nil")
	}
	if deps.Spectrogram == nil {
		return nil, errors.New("engine: spectrogram cannot be nil")
	}
	if cfg.MaxFrequency <= 0 {
		return nil, fmt.Errorf("engine: max frequency must be positive, got %f", cfg.MaxFrequency)
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	if cfg.TickStep <= 0 {
		cfg.TickStep = waterfall.DefaultTickStep
	}
	if deps.Demodulator == nil {
		deps.Demodulator = Passthrough{}
	}

	e := &Engine{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		meter:  analysis.NewPassbandMeter(deps.Analyzer),
	}
	e.tuning.Store(e.clamp(cfg.Tuning))
	e.level.Store(math.Float64bits(analysis.FloorLevel))
	return e, nil
}

func (e *Engine) clamp(t Tuning) *Tuning {
	t.Frequency = min(max(t.Frequency, 0), e.cfg.MaxFrequency)
	t.PassbandWidth = min(max(t.PassbandWidth, 0), e.cfg.MaxFrequency)
	return &t
}

// Tuning returns the current tuning.
func (e *Engine) Tuning() Tuning {
	return *e.tuning.Load()
}

// SetTuning replaces the tuning, clamped to the displayed band.
func (e *Engine) SetTuning(t Tuning) Tuning {
	e.tuneMu.Lock()
	defer e.tuneMu.Unlock()
	c := e.clamp(t)
	e.tuning.Store(c)
	return *c
}

// Retune moves the tuned frequency and passband width by the given deltas.
func (e *Engine) Retune(dFreq, dWidth float64) Tuning {
	e.tuneMu.Lock()
	defer e.tuneMu.Unlock()
	t := *e.tuning.Load()
	t.Frequency += dFreq
	t.PassbandWidth += dWidth
	c := e.clamp(t)
	e.tuning.Store(c)
	return *c
}

// Overlay returns the tuner overlay for a frame of the given size at the
// current tuning.
func (e *Engine) Overlay(width, height int) waterfall.Overlay {
	t := e.Tuning()
	return waterfall.Tuner(waterfall.TunerParams{
		Width:         width,
		Height:        height,
		MaxFrequency:  e.cfg.MaxFrequency,
		TuneFrequency: t.Frequency,
		PassbandWidth: t.PassbandWidth,
		TickStep:      e.cfg.TickStep,
	})
}

// MaxFrequency returns the top of the displayed band.
func (e *Engine) MaxFrequency() float64 { return e.cfg.MaxFrequency }

// TickStep returns the axis tick spacing in Hz.
func (e *Engine) TickStep() float64 { return e.cfg.TickStep }

// Spectrogram returns the buffer the analyser feeds.
func (e *Engine) Spectrogram() *waterfall.Spectrogram { return e.deps.Spectrogram }

// Stats returns the current counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Blocks:  e.blocks.Load(),
		Rows:    e.rows.Load(),
		LevelDB: math.Float64frombits(e.level.Load()),
	}
}

// Run opens the devices and processes audio until ctx is cancelled or a
// device fails. A fault ends Run with that error; there are no retries.
// Run can only be called once.
func (e *Engine) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrRunning
	}

	if err := e.deps.Source.Open(); err != nil {
		return err
	}
	if e.deps.Sink != nil {
		if err := e.deps.Sink.Open(); err != nil {
			e.deps.Source.Close()
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return e.audioLoop(ctx)
	})
	g.Go(func() error {
		return e.renderLoop(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		return e.closeDevices()
	})

	e.logger.Infof("Running (refresh %s, band 0-%.0f Hz)", e.cfg.RefreshInterval, e.cfg.MaxFrequency)
	err := g.Wait()
	e.logger.Infof("Stopped after %d blocks, %d rows", e.blocks.Load(), e.rows.Load())
	return err
}

// audioLoop owns the device handles and the converter state.
func (e *Engine) audioLoop(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for ctx.Err() == nil {
		res, err := e.deps.Source.Read()
		if err != nil {
			if errors.Is(err, audio.ErrClosed) {
				return nil
			}
			return fmt.Errorf("engine: %w", err)
		}
		if res.Status != audio.ReadData {
			continue
		}
		e.blocks.Add(1)
		e.deps.Analyzer.Process(res.Block)

		if e.deps.Sink == nil {
			continue
		}
		out := e.deps.Demodulator.Demodulate(res.Block, e.Tuning())
		if err := e.deps.Sink.Write(out); err != nil {
			if errors.Is(err, audio.ErrClosed) {
				return nil
			}
			return fmt.Errorf("engine: %w", err)
		}
	}
	return nil
}

func (e *Engine) renderLoop(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.renderTick()
		}
	}
}

// renderTick measures the passband and broadcasts the newest row if the
// spectrogram has advanced since the last tick.
func (e *Engine) renderTick() {
	t := e.Tuning()
	level := e.meter.Level(t.Frequency, t.PassbandWidth)
	e.level.Store(math.Float64bits(level))

	if e.deps.Transport == nil {
		return
	}
	// One snapshot so the row, its geometry and the overlay agree even if
	// the viewer resizes in between.
	snap := e.deps.Spectrogram.Latest(e.rowBuf)
	e.rowBuf = snap.Pix
	if snap.Rows == 0 || (snap.Rows == e.lastRow && snap.Epoch == e.lastEpoch) {
		return
	}
	e.lastRow, e.lastEpoch = snap.Rows, snap.Epoch
	row := snap.Rows

	msg := transport.RowMessage{
		Type:       transport.RowMessageType,
		Row:        row,
		Width:      snap.Width,
		Pixels:     make([]uint32, len(snap.Pix)),
		MaxHz:      e.cfg.MaxFrequency,
		TuneHz:     t.Frequency,
		PassbandHz: t.PassbandWidth,
		LevelDB:    level,
	}
	for i, c := range snap.Pix {
		msg.Pixels[i] = uint32(c)
	}
	ov := e.Overlay(snap.Width, snap.Height)
	msg.Overlay, msg.Labels = overlayMessage(ov)

	if err := e.deps.Transport.Send(msg); err != nil {
		e.logger.Warnf("Row %d not sent: %v", row, err)
		return
	}
	e.rows.Add(1)
}

func overlayMessage(ov waterfall.Overlay) ([]transport.OverlayRect, []transport.OverlayLabel) {
	rects := make([]transport.OverlayRect, len(ov.Rects))
	for i, r := range ov.Rects {
		c := r.Color
		rects[i] = transport.OverlayRect{
			Kind:  r.Kind.String(),
			X:     r.Bounds.Min.X,
			Y:     r.Bounds.Min.Y,
			W:     r.Bounds.Dx(),
			H:     r.Bounds.Dy(),
			Color: uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B),
		}
	}
	labels := make([]transport.OverlayLabel, len(ov.Labels))
	for i, l := range ov.Labels {
		labels[i] = transport.OverlayLabel{X: l.X, Y: l.Y, Text: l.Text}
	}
	return rects, labels
}

func (e *Engine) closeDevices() error {
	var errs []error
	if err := e.deps.Source.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close source: %w", err))
	}
	if e.deps.Sink != nil {
		if err := e.deps.Sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sink: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close stops any recording and releases every component. It is safe to
// call after Run has returned, and more than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		var errs []error
		if err := e.StopRecording(); err != nil {
			errs = append(errs, err)
		}
		if err := e.closeDevices(); err != nil {
			errs = append(errs, err)
		}
		if e.deps.Transport != nil {
			if err := e.deps.Transport.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close transport: %w", err))
			}
		}
		if c, ok := e.deps.Analyzer.(analysis.ClosableProcessor); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close analyzer: %w", err))
			}
		}
		e.closeErr = errors.Join(errs...)
	})
	return e.closeErr
}
