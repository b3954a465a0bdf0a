// SPDX-License-Identifier: MIT

// Package bitint provides power-of-two helpers for transform and buffer
// sizing. All operations are O(1), allocation-free, and safe to call from
// real-time processing paths.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size.
// Exact powers of 2 are returned unchanged; the (size-1) subtraction
// before measuring the bit length is what keeps 8 from becoming 16.
// Non-positive sizes return 1.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len64(uint64(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
// A power of 2 has a single bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
