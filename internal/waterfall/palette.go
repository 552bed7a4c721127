// SPDX-License-Identifier: MIT
package waterfall

import (
	"fmt"
	"image/color"
)

// Color is an ARGB pixel, 8 bits per channel, alpha in the top byte.
type Color uint32

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	a = uint32(c >> 24)
	r = uint32(c>>16&0xff) * a / 0xff
	g = uint32(c>>8&0xff) * a / 0xff
	b = uint32(c&0xff) * a / 0xff
	return r * 0x101, g * 0x101, b * 0x101, a * 0x101
}

// RGB returns the colour channels without alpha.
func (c Color) RGB() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// Hex formats the colour channels as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%06x", uint32(c)&0xffffff)
}

// ColorModel converts any colour to an opaque-or-not ARGB Color.
var ColorModel = color.ModelFunc(func(c color.Color) color.Color {
	if cc, ok := c.(Color); ok {
		return cc
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Color(uint32(n.A)<<24 | uint32(n.R)<<16 | uint32(n.G)<<8 | uint32(n.B))
})

// palette is the 256-entry intensity ramp: black through blue, cyan-green
// and yellow to white-hot. Built once at init and never written again.
var palette = makePalette()

// PaletteColor returns the ramp colour for intensity index i.
func PaletteColor(i uint8) Color {
	return palette[i]
}

func makePalette() [256]Color {
	var lut [256]Color
	for i := range lut {
		var r, g, b int
		switch {
		case i < 85:
			b = i * 3
		case i < 170:
			g = (i - 85) * 3
			b = 255
		default:
			r = (i - 170) * 3
			g = 255
			b = 255
		}
		lut[i] = Color(0xff<<24 | r<<16 | g<<8 | b)
	}
	return lut
}
