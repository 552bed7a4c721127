// SPDX-License-Identifier: MIT
package waterfall

import (
	"image"
	"image/draw"

	"github.com/lucasb-eyer/go-colorful"
)

// Composite draws frame into dst and blends the overlay rectangles on top.
// dst is clipped to the frame bounds. Labels are left to the caller, since
// text rendering depends on the display surface.
func Composite(dst *image.RGBA, frame Frame, ov Overlay) {
	bounds := dst.Bounds().Intersect(frame.Bounds())
	draw.Draw(dst, bounds, frame, bounds.Min, draw.Src)

	for _, r := range ov.Rects {
		area := r.Bounds.Intersect(bounds)
		if area.Empty() {
			continue
		}
		draw.Draw(dst, area, image.NewUniform(r.Color), image.Point{}, draw.Over)
	}
}

// Blend returns the pixel at (x, y) of base with every overlay rectangle
// covering that point blended over it, for surfaces that composite one cell
// at a time.
func Blend(base Color, ov Overlay, x, y int) Color {
	pt := image.Point{X: x, Y: y}
	out := toColorful(base)
	for _, r := range ov.Rects {
		if !pt.In(r.Bounds) {
			continue
		}
		top := colorful.Color{
			R: float64(r.Color.R) / 0xff,
			G: float64(r.Color.G) / 0xff,
			B: float64(r.Color.B) / 0xff,
		}
		out = out.BlendRgb(top, float64(r.Color.A)/0xff)
	}
	red, green, blue := out.Clamped().RGB255()
	return Color(0xff<<24 | uint32(red)<<16 | uint32(green)<<8 | uint32(blue))
}

func toColorful(c Color) colorful.Color {
	r, g, b := c.RGB()
	return colorful.Color{R: float64(r) / 0xff, G: float64(g) / 0xff, B: float64(b) / 0xff}
}
