// SPDX-License-Identifier: MIT
package waterfall

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSpectrogram(t *testing.T, w, h int) *Spectrogram {
	t.Helper()
	s, err := NewSpectrogram(SpectrogramConfig{Width: w, Height: h}, nil)
	require.NoError(t, err)
	return s
}

func ramp(n int, lo, hi float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Exp(lo + (hi-lo)*float64(i)/float64(n-1))
	}
	return out
}

func TestSpectrogramHistoryDepth(t *testing.T) {
	const w, h = 8, 5
	s := newTestSpectrogram(t, w, h)

	first := ramp(16, -10, 12)
	s.Update(first)
	want := append([]Color(nil), s.Render().Row(h-1)...)

	for i := 1; i < h; i++ {
		s.Update(ramp(16, -10, -10+float64(i)))
	}

	frame := s.Render()
	assert.Equal(t, want, frame.Row(0), "oldest surviving row should be the first update")
	assert.Equal(t, uint64(h), s.Latest(nil).Rows)

	s.Update(ramp(16, 0, 0))
	assert.NotEqual(t, want, s.Render().Row(0), "first row should be evicted after H+1 updates")
}

func TestSpectrogramNonPositiveValues(t *testing.T) {
	s := newTestSpectrogram(t, 6, 2)
	s.Update([]float64{0, -1, math.NaN(), math.Inf(-1), math.Inf(1), 1})

	row := s.Render().Row(1)
	for x, c := range row {
		assert.Contains(t, palette[:], c, "column %d is not a palette colour", x)
	}
	assert.Equal(t, palette[0], row[0])
	assert.Equal(t, palette[0], row[1])
	assert.Equal(t, palette[0], row[2])
	assert.Equal(t, palette[0], row[3])
	assert.Equal(t, palette[255], row[4])
}

func TestSpectrogramIntensity(t *testing.T) {
	s := newTestSpectrogram(t, 1, 1)

	assert.Equal(t, uint8(0), s.Intensity(0))
	assert.Equal(t, uint8(0), s.Intensity(math.NaN()))
	assert.Equal(t, uint8(255), s.Intensity(math.Inf(1)))
	assert.Equal(t, uint8(115), s.Intensity(1))
	assert.Equal(t, uint8(255), s.Intensity(math.Exp(15)))

	s0, err := NewSpectrogram(SpectrogramConfig{Width: 1, Height: 1, Scale: 10, Offset: 100}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(100), s0.Intensity(1))
}

func TestSpectrogramMapping(t *testing.T) {
	s := newTestSpectrogram(t, 4, 1)

	// Each column picks bin x*len/W.
	hot := math.Exp(20)
	s.Update([]float64{1, hot, 1e-20, hot, 1e-20, hot, 1e-20, hot})
	row := s.Render().Row(0)
	assert.Equal(t, palette[s.Intensity(1)], row[0])
	assert.Equal(t, palette[0], row[1])
	assert.Equal(t, palette[0], row[2])
	assert.Equal(t, palette[0], row[3])

	// A length change recomputes the mapping.
	s.Update([]float64{1e-20, hot})
	row = s.Render().Row(0)
	assert.Equal(t, palette[0], row[0])
	assert.Equal(t, palette[0], row[1])
	assert.Equal(t, palette[255], row[2])
	assert.Equal(t, palette[255], row[3])

	for x := 1; x < len(s.mapping); x++ {
		assert.GreaterOrEqual(t, s.mapping[x], s.mapping[x-1])
	}
}

func TestSpectrogramEmptyUpdateIsNoop(t *testing.T) {
	s := newTestSpectrogram(t, 3, 3)
	before := s.RenderInto(nil)
	s.Update(nil)
	s.Update([]float64{})
	assert.Equal(t, before.Pix, s.Render().Pix)
	assert.Zero(t, s.Latest(nil).Rows)
}

func TestSpectrogramResize(t *testing.T) {
	s := newTestSpectrogram(t, 4, 4)
	s.Update(ramp(8, 5, 12))

	require.NoError(t, s.Resize(7, 3))
	frame := s.Render()
	assert.Equal(t, 7, frame.Width)
	assert.Equal(t, 3, frame.Height)
	assert.Len(t, frame.Pix, 21)
	for _, c := range frame.Pix {
		assert.Equal(t, palette[0], c, "history must not survive a resize")
	}
	assert.Zero(t, s.Latest(nil).Rows)
}

func TestSpectrogramGeometryError(t *testing.T) {
	_, err := NewSpectrogram(SpectrogramConfig{Width: 0, Height: 10}, nil)
	var geomErr *GeometryError
	require.ErrorAs(t, err, &geomErr)

	s := newTestSpectrogram(t, 4, 2)
	s.Update(ramp(4, 5, 12))
	before := s.RenderInto(nil)

	for _, dims := range [][2]int{{-1, 2}, {4, 0}, {maxDimension + 1, 2}} {
		err := s.Resize(dims[0], dims[1])
		require.ErrorAs(t, err, &geomErr)
		assert.Equal(t, dims[0], geomErr.Width)
		assert.Equal(t, dims[1], geomErr.Height)
	}

	frame := s.Render()
	assert.Equal(t, 4, frame.Width)
	assert.Equal(t, 2, frame.Height)
	assert.Equal(t, before.Pix, s.Render().Pix, "prior buffer must be retained")
}

func TestSpectrogramRenderIntoIsStable(t *testing.T) {
	s := newTestSpectrogram(t, 2, 2)
	s.Update([]float64{1, 1})
	snap := s.RenderInto(nil)
	copyOf := append([]Color(nil), snap.Pix...)

	s.Update([]float64{math.Exp(20), math.Exp(20)})
	s.Update([]float64{math.Exp(20), math.Exp(20)})
	assert.Equal(t, copyOf, snap.Pix)

	row := s.Latest(nil).Pix
	assert.Equal(t, []Color{palette[255], palette[255]}, row)
}

// Every row written in this test is a single colour, so a torn frame would
// show up as a row mixing two colours.
func TestSpectrogramConcurrentUpdateRender(t *testing.T) {
	const w, h = 64, 32
	s := newTestSpectrogram(t, w, h)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 2000 {
			v := math.Exp(float64(i%20) - 10)
			spectrum := make([]float64, 128)
			for j := range spectrum {
				spectrum[j] = v
			}
			s.Update(spectrum)
		}
	}()

	var buf []Color
	go func() {
		defer wg.Done()
		for range 2000 {
			frame := s.RenderInto(buf)
			buf = frame.Pix
			for y := range frame.Height {
				row := frame.Row(y)
				for x := 1; x < len(row); x++ {
					if row[x] != row[0] {
						t.Errorf("torn row %d: %s vs %s", y, row[x].Hex(), row[0].Hex())
						return
					}
				}
			}
		}
	}()
	wg.Wait()
}

func BenchmarkSpectrogramUpdate(b *testing.B) {
	s, _ := NewSpectrogram(SpectrogramConfig{Width: 800, Height: 400}, nil)
	spectrum := ramp(512, -10, 12)
	b.ResetTimer()
	for b.Loop() {
		s.Update(spectrum)
	}
}

func TestSpectrogramLatestMatchesGeometry(t *testing.T) {
	s := newTestSpectrogram(t, 4, 2)
	s.Update([]float64{1, 1, 1, 1})

	snap := s.Latest(nil)
	assert.Equal(t, 4, snap.Width)
	assert.Equal(t, 2, snap.Height)
	assert.Len(t, snap.Pix, 4)
	assert.Equal(t, uint64(1), snap.Rows)
	epoch := snap.Epoch

	require.NoError(t, s.Resize(4, 2))
	s.Update([]float64{1, 1, 1, 1})
	snap = s.Latest(snap.Pix)
	assert.Equal(t, uint64(1), snap.Rows, "row count restarts after a resize")
	assert.Greater(t, snap.Epoch, epoch, "a resize must be visible even at the same geometry")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		spectrum := ramp(16, 0, 12)
		for i := range 2000 {
			_ = s.Resize(8+8*(i%2), 4)
			s.Update(spectrum)
		}
	}()
	for range 2000 {
		snap = s.Latest(snap.Pix)
		require.Len(t, snap.Pix, snap.Width)
		require.Contains(t, []int{4, 8, 16}, snap.Width)
	}
	wg.Wait()
}
