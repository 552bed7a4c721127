// SPDX-License-Identifier: MIT
//
// Package bitint provides the power-of-two helpers used when sizing FFT
// frames and hardware buffers. All functions are O(1) and allocation free.
//
// The subtraction in NextPowerOfTwo keeps exact powers of two unchanged:
// for 8, bits.Len(7) is 3 and 1<<3 is 8 again, while bits.Len(8) would be 4.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size.
// Zero and negative inputs return 1.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// PrevPowerOfTwo returns the largest power of 2 <= size.
// Zero and negative inputs return 0.
func PrevPowerOfTwo(size int) int {
	if size <= 0 {
		return 0
	}
	return 1 << (bits.Len(uint(size)) - 1)
}

// IsPowerOfTwo reports whether n is a positive power of 2.
// n&(n-1) clears the lowest set bit, so it is zero only when one bit is set.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
