// SPDX-License-Identifier: MIT
package waterfall

import (
	"image"
	"image/color"
	"math"
	"strconv"
)

const (
	// DefaultTickStep is the frequency distance between adjacent ticks.
	DefaultTickStep = 25.0

	mediumTickEvery = 4
	tallTickEvery   = 20

	defaultBandHeight = 16
	minTickSpacing    = 2 // pixels
)

// Overlay colours.
var (
	BandColor     = color.NRGBA{R: 0x10, G: 0x10, B: 0x18, A: 0xc0}
	TickColor     = color.NRGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
	PassbandColor = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0x40}
	MarkerColor   = color.NRGBA{R: 0xff, G: 0x30, B: 0x30, A: 0xff}
)

// RectKind tells display surfaces what a rectangle represents, for
// surfaces that draw with characters rather than pixels.
type RectKind int

const (
	KindBand RectKind = iota
	KindTick
	KindPassband
	KindMarker
)

func (k RectKind) String() string {
	switch k {
	case KindBand:
		return "band"
	case KindTick:
		return "tick"
	case KindPassband:
		return "passband"
	case KindMarker:
		return "marker"
	default:
		return "unknown"
	}
}

// Rect is a filled rectangle to alpha-blend over the frame.
type Rect struct {
	Bounds image.Rectangle
	Color  color.NRGBA
	Kind   RectKind
}

// Label is a text annotation anchored at its top-left pixel.
type Label struct {
	X, Y      int
	Text      string
	Frequency float64
}

// Overlay is the set of draw primitives for one frame, in drawing order.
type Overlay struct {
	Rects  []Rect
	Labels []Label
}

// TunerParams describes the frequency axis and the tuned channel.
// TickStep and BandHeight default when zero.
type TunerParams struct {
	Width, Height int
	MaxFrequency  float64
	TuneFrequency float64
	PassbandWidth float64
	TickStep      float64
	BandHeight    int
}

// FrequencyToX maps a frequency to a column on a width-pixel axis spanning
// [0, maxFrequency).
func FrequencyToX(freq, maxFrequency float64, width int) int {
	return int(math.Floor(freq / maxFrequency * float64(width)))
}

// XToFrequency is the inverse of FrequencyToX for the left edge of column x.
func XToFrequency(x int, maxFrequency float64, width int) float64 {
	return float64(x) * maxFrequency / float64(width)
}

// Tuner computes the overlay for the given parameters: a translucent band
// along the bottom holding the frequency ticks, the passband highlight over
// the full height and a marker at the tuned frequency. It has no state and
// returns an empty overlay for degenerate parameters.
func Tuner(p TunerParams) Overlay {
	var ov Overlay
	if p.Width <= 0 || p.Height <= 0 || !(p.MaxFrequency > 0) {
		return ov
	}
	step := p.TickStep
	if !(step > 0) {
		step = DefaultTickStep
	}
	band := p.BandHeight
	if band <= 0 {
		band = defaultBandHeight
	}
	band = min(band, p.Height)
	top := p.Height - band

	ov.Rects = append(ov.Rects, Rect{
		Bounds: image.Rect(0, top, p.Width, p.Height),
		Color:  BandColor,
		Kind:   KindBand,
	})

	spacing := step / p.MaxFrequency * float64(p.Width)
	ticks := int(p.MaxFrequency / step)
	if spacing*tallTickEvery < minTickSpacing {
		// Even the tall ticks would overlap.
		ticks = -1
	}
	for i := 0; i <= ticks; i++ {
		x := FrequencyToX(float64(i)*step, p.MaxFrequency, p.Width)
		if x >= p.Width {
			break
		}

		var length int
		switch {
		case i%tallTickEvery == 0:
			length = band * 3 / 4
		case i%mediumTickEvery == 0:
			if spacing*mediumTickEvery < minTickSpacing {
				continue
			}
			length = band / 2
		default:
			if spacing < minTickSpacing {
				continue
			}
			length = band / 4
		}
		length = max(length, 1)

		ov.Rects = append(ov.Rects, Rect{
			Bounds: image.Rect(x, p.Height-length, x+1, p.Height),
			Color:  TickColor,
			Kind:   KindTick,
		})
		if i%tallTickEvery == 0 {
			freq := float64(i) * step
			ov.Labels = append(ov.Labels, Label{
				X:         x + 2,
				Y:         top,
				Text:      strconv.FormatFloat(freq, 'f', -1, 64),
				Frequency: freq,
			})
		}
	}

	if p.PassbandWidth > 0 {
		lo := FrequencyToX(p.TuneFrequency-p.PassbandWidth/2, p.MaxFrequency, p.Width)
		hi := FrequencyToX(p.TuneFrequency+p.PassbandWidth/2, p.MaxFrequency, p.Width)
		r := image.Rect(lo, 0, max(hi, lo+1), p.Height).Intersect(image.Rect(0, 0, p.Width, p.Height))
		if !r.Empty() {
			ov.Rects = append(ov.Rects, Rect{Bounds: r, Color: PassbandColor, Kind: KindPassband})
		}
	}

	if mx := FrequencyToX(p.TuneFrequency, p.MaxFrequency, p.Width); mx >= 0 && mx < p.Width {
		ov.Rects = append(ov.Rects, Rect{
			Bounds: image.Rect(mx, 0, mx+1, p.Height),
			Color:  MarkerColor,
			Kind:   KindMarker,
		})
	}

	return ov
}
