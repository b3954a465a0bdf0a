// SPDX-License-Identifier: MIT
package dsp

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// RMS returns the root-mean-square level of the buffer, 0 for empty input.
func RMS(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x * x
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// Peak returns the maximum absolute amplitude in the buffer.
func Peak(xs []float64) float64 {
	peak := 0.0
	for _, x := range xs {
		if a := math.Abs(x); a > peak {
			peak = a
		}
	}
	return peak
}

// Percentile returns the p-th percentile (p in [0,1]) of xs using the
// empirical quantile. The input is not modified; 0 for empty input.
func Percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// MedianFilter applies a running median with the given odd kernel size,
// clamping the window at the edges. Inputs shorter than the kernel are
// returned as a copy.
func MedianFilter(xs []float64, kernel int) []float64 {
	out := make([]float64, len(xs))
	if kernel < 3 || len(xs) < kernel {
		copy(out, xs)
		return out
	}

	half := kernel / 2
	window := make([]float64, 0, kernel)
	for i := range xs {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half + 1
		if hi > len(xs) {
			hi = len(xs)
		}
		window = append(window[:0], xs[lo:hi]...)
		sort.Float64s(window)
		out[i] = window[len(window)/2]
	}
	return out
}

// ZeroCrossingRate returns the fraction of adjacent sample pairs whose signs
// differ.
func ZeroCrossingRate(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(xs); i++ {
		if sign(xs[i]) != sign(xs[i-1]) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(xs))
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// DBToLinear converts a decibel value to a linear amplitude factor.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB converts a linear amplitude to decibels with an epsilon floor
// so silence never produces -Inf.
func LinearToDB(amplitude float64) float64 {
	return 20 * math.Log10(math.Abs(amplitude)+1e-8)
}
