// SPDX-License-Identifier: MIT
package dsp

import "math"

// Scale factors between 16-bit PCM and normalized floats. Decoding divides by
// 32768 so the full int16 range maps into [-1, 1); encoding multiplies by
// 32767 so +1.0 cannot overflow.
const (
	pcm16ToFloat = 1.0 / 32768.0
	floatToPCM16 = 32767.0
)

// ToFloat converts one PCM16 sample to a normalized float.
func ToFloat(s int16) float64 {
	return float64(s) * pcm16ToFloat
}

// ToPCM16 converts a normalized float to PCM16. Values outside [-1, 1] are
// clamped first; filter overshoot upstream routinely produces them. NaN
// encodes as silence.
func ToPCM16(v float64) int16 {
	if v != v {
		return 0
	}
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int16(math.Round(v * floatToPCM16))
}

// PCM16ToFloats converts src into dst, growing dst if needed, and returns
// the filled slice.
func PCM16ToFloats(dst []float64, src []int16) []float64 {
	if cap(dst) < len(src) {
		dst = make([]float64, len(src))
	}
	dst = dst[:len(src)]
	for i, s := range src {
		dst[i] = float64(s) * pcm16ToFloat
	}
	return dst
}

// FloatsToPCM16 converts src into dst. It converts min(len(dst), len(src))
// samples and returns that count.
func FloatsToPCM16(dst []int16, src []float64) int {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = ToPCM16(src[i])
	}
	return n
}

// Downmix averages interleaved frames of the given channel count into dst
// and returns the filled slice. Mono input is copied through.
func Downmix(dst []int16, src []int16, channels int) []int16 {
	if channels <= 1 {
		if cap(dst) < len(src) {
			dst = make([]int16, len(src))
		}
		dst = dst[:len(src)]
		copy(dst, src)
		return dst
	}

	frames := len(src) / channels
	if cap(dst) < frames {
		dst = make([]int16, frames)
	}
	dst = dst[:frames]
	for f := range frames {
		var sum int32
		base := f * channels
		for c := range channels {
			sum += int32(src[base+c])
		}
		dst[f] = int16(sum / int32(channels))
	}
	return dst
}
