// SPDX-License-Identifier: MIT
package waterfall

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"sdrfront/internal/log"
)

const (
	// DefaultScale and DefaultOffset map natural-log power of roughly
	// [-10, 12] onto the palette.
	DefaultScale  = 11.5
	DefaultOffset = 115.0

	// Power values at or below epsilon (and NaN) are clamped to it before
	// the log.
	epsilon = 1e-12

	maxDimension = 1 << 14
)

// GeometryError rejects a non-positive or oversized buffer geometry. The
// buffer keeps its previous geometry and history.
type GeometryError struct {
	Width, Height int
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("waterfall: invalid geometry %dx%d", e.Width, e.Height)
}

func checkGeometry(w, h int) error {
	if w <= 0 || h <= 0 || w > maxDimension || h > maxDimension {
		return &GeometryError{Width: w, Height: h}
	}
	return nil
}

// Frame is a rendered W×H pixel grid, row-major with the newest row last.
// It implements image.Image.
type Frame struct {
	Width, Height int
	Pix           []Color
}

func (f Frame) ColorModel() color.Model { return ColorModel }

func (f Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }

func (f Frame) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return Color(0)
	}
	return f.Pix[y*f.Width+x]
}

// Row returns row y of the frame.
func (f Frame) Row(y int) []Color {
	return f.Pix[y*f.Width : (y+1)*f.Width]
}

// SpectrogramConfig sets the initial geometry and intensity mapping.
// Zero Scale falls back to DefaultScale.
type SpectrogramConfig struct {
	Width, Height int
	Scale         float64
	Offset        float64
}

// Spectrogram is a scrolling history of power spectra, one row per update.
//
// Update and Resize may be called from one goroutine while Render and
// RenderInto are called from another. Updates build the next frame in a
// back buffer and swap it in under a short write lock, so readers never
// observe a half-shifted frame.
type Spectrogram struct {
	logger *log.Logger
	scale  float64
	offset float64

	// Held by Update and Resize. Guards back, mapping and binCount.
	updateMu sync.Mutex
	back     []Color
	mapping  []int
	binCount int

	mu     sync.RWMutex
	front  []Color
	width  int
	height int
	rows   uint64
	epoch  uint64
}

// NewSpectrogram allocates a buffer of the configured geometry filled with
// the coldest palette colour.
func NewSpectrogram(cfg SpectrogramConfig, logger *log.Logger) (*Spectrogram, error) {
	if err := checkGeometry(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}
	if cfg.Scale == 0 {
		cfg.Scale = DefaultScale
		if cfg.Offset == 0 {
			cfg.Offset = DefaultOffset
		}
	}

	s := &Spectrogram{logger: logger, scale: cfg.Scale, offset: cfg.Offset}
	s.allocate(cfg.Width, cfg.Height)
	return s, nil
}

func (s *Spectrogram) allocate(w, h int) {
	front := make([]Color, w*h)
	for i := range front {
		front[i] = palette[0]
	}
	s.back = make([]Color, w*h)
	s.mapping = make([]int, w)
	s.binCount = 0

	s.mu.Lock()
	s.front = front
	s.width = w
	s.height = h
	s.rows = 0
	s.epoch++
	s.mu.Unlock()
}

// Resize reallocates the buffer and discards all history.
func (s *Spectrogram) Resize(width, height int) error {
	if err := checkGeometry(width, height); err != nil {
		s.logger.Warnf("rejected resize: %v", err)
		return err
	}

	s.updateMu.Lock()
	defer s.updateMu.Unlock()
	s.allocate(width, height)
	s.logger.Debugf("resized to %dx%d", width, height)
	return nil
}

// Intensity maps a power value to a palette index.
func (s *Spectrogram) Intensity(power float64) uint8 {
	if !(power > epsilon) {
		power = epsilon
	}
	v := math.Log(power)*s.scale + s.offset
	switch {
	case v != v, v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}

func (s *Spectrogram) remap(bins int) {
	w := len(s.mapping)
	for x := range s.mapping {
		s.mapping[x] = x * bins / w
	}
	s.binCount = bins
}

// Update scrolls the history up one row and draws spectrum as the new bottom
// row. An empty spectrum is ignored.
func (s *Spectrogram) Update(spectrum []float64) {
	if len(spectrum) == 0 {
		return
	}

	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	if len(spectrum) != s.binCount {
		s.remap(len(spectrum))
	}

	// front is only replaced under updateMu, so reading it here is safe.
	w := len(s.mapping)
	copy(s.back, s.front[w:])
	bottom := s.back[len(s.back)-w:]
	for x, bin := range s.mapping {
		bottom[x] = palette[s.Intensity(spectrum[bin])]
	}

	s.mu.Lock()
	s.front, s.back = s.back, s.front
	s.rows++
	s.mu.Unlock()
}

// Render returns the current frame without copying. The pixels are reused
// by later updates; use RenderInto to keep a stable copy.
func (s *Spectrogram) Render() Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Frame{Width: s.width, Height: s.height, Pix: s.front}
}

// RenderInto copies the current frame into dst, growing it if needed.
func (s *Spectrogram) RenderInto(dst []Color) Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if cap(dst) < len(s.front) {
		dst = make([]Color, len(s.front))
	}
	dst = dst[:len(s.front)]
	copy(dst, s.front)
	return Frame{Width: s.width, Height: s.height, Pix: dst}
}

// RowSnapshot is the newest row together with the geometry and counters it
// was read under.
type RowSnapshot struct {
	Pix    []Color
	Width  int
	Height int
	Rows   uint64 // updates since the last resize
	Epoch  uint64 // incremented by every allocation
}

// Latest copies the newest row into dst and reports it with the geometry
// and row count, all taken under one lock.
func (s *Spectrogram) Latest(dst []Color) RowSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.front[len(s.front)-s.width:]
	if cap(dst) < len(row) {
		dst = make([]Color, len(row))
	}
	dst = dst[:len(row)]
	copy(dst, row)
	return RowSnapshot{Pix: dst, Width: s.width, Height: s.height, Rows: s.rows, Epoch: s.epoch}
}
