// Package numeric provides the checked and saturating unsigned arithmetic
// used by the ledger and the kill/spawn counters. Native wraparound is
// never exposed to callers: additions either saturate at the type maximum
// or fail, and subtractions fail instead of underflowing.
package numeric

import (
	"errors"
	"math"
)

var (
	// ErrOverflow is returned when a checked addition would wrap.
	ErrOverflow = errors.New("unsigned counter overflow")
	// ErrUnderflow is returned when a checked subtraction would go below zero.
	ErrUnderflow = errors.New("unsigned counter underflow")
)

// SatAdd32 adds two 32-bit counters, clamping at the maximum.
func SatAdd32(a, b uint32) uint32 {
	if a > math.MaxUint32-b {
		return math.MaxUint32
	}
	return a + b
}

// CheckedAdd64 adds two 64-bit totals, failing on wraparound.
func CheckedAdd64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// CheckedSub64 subtracts b from a, failing instead of underflowing.
func CheckedSub64(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrUnderflow
	}
	return a - b, nil
}
