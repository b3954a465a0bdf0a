// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"math"
)

// biquad is a single second-order IIR section (RBJ cookbook design),
// coefficients normalized by a0.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// run filters src into dst with fresh filter state. dst and src may alias.
func (q biquad) run(dst, src []float64) {
	var x1, x2, y1, y2 float64
	for i, x0 := range src {
		y0 := q.b0*x0 + q.b1*x1 + q.b2*x2 - q.a1*y1 - q.a2*y2
		x2, x1 = x1, x0
		y2, y1 = y1, y0
		dst[i] = y0
	}
}

// BandFilter is a cascade of biquad sections designed once at construction
// and reused for every buffer. A filter whose band collapsed against Nyquist
// degrades to an identity pass-through instead of failing.
type BandFilter struct {
	stages   []biquad
	identity bool
}

// nyquistGuard keeps band edges strictly below Nyquist, mirroring the
// clamping applied when the upper edge would meet or exceed it.
const nyquistGuard = 0.99

// NewBandPass designs a band-pass filter for [low, high] Hz with a
// Butterworth-equivalent response of the given order (even, typically 4),
// built as order/2 cascaded constant-peak band-pass sections. An upper edge
// at or beyond Nyquist is clamped; if the band collapses entirely the filter
// degrades to identity.
func NewBandPass(low, high, sampleRate float64, order int) *BandFilter {
	nyquist := sampleRate / 2
	if high > nyquist*nyquistGuard {
		high = nyquist * nyquistGuard
	}
	if low <= 0 || low >= high || low >= nyquist*nyquistGuard {
		return &BandFilter{identity: true}
	}

	center := math.Sqrt(low * high) // geometric center of the band
	q := center / (high - low)
	sections := order / 2
	if sections < 1 {
		sections = 1
	}

	f := &BandFilter{stages: make([]biquad, sections)}
	for i := range f.stages {
		f.stages[i] = bandPassSection(center, q, sampleRate)
	}
	return f
}

// NewHighPass designs a high-pass filter with the given cutoff in Hz and a
// Butterworth-equivalent response of the given order (even), as order/2
// cascaded sections. Cutoffs at or beyond Nyquist degrade to identity.
func NewHighPass(cutoff, sampleRate float64, order int) *BandFilter {
	nyquist := sampleRate / 2
	if cutoff <= 0 || cutoff >= nyquist*nyquistGuard {
		return &BandFilter{identity: true}
	}

	sections := order / 2
	if sections < 1 {
		sections = 1
	}

	f := &BandFilter{stages: make([]biquad, sections)}
	for i := range f.stages {
		f.stages[i] = highPassSection(cutoff, sampleRate)
	}
	return f
}

// Identity reports whether the design degraded to a pass-through.
func (f *BandFilter) Identity() bool { return f.identity }

// Apply runs the cascade forward over src, returning a fresh buffer.
func (f *BandFilter) Apply(src []float64) []float64 {
	out := make([]float64, len(src))
	copy(out, src)
	if f.identity {
		return out
	}
	for _, stage := range f.stages {
		stage.run(out, out)
	}
	return out
}

// ApplyZeroPhase filters src forward then backward, cancelling the phase
// distortion of the IIR cascade (two passes of the same filter, the second
// over the reversed signal). The result is checked for numeric blow-up so a
// failing band can be skipped at the stage boundary rather than poisoning
// the rest of the buffer.
func (f *BandFilter) ApplyZeroPhase(src []float64) ([]float64, error) {
	out := f.Apply(src)
	if f.identity {
		return out, nil
	}
	reverse(out)
	for _, stage := range f.stages {
		stage.run(out, out)
	}
	reverse(out)

	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("filter: non-finite output at sample %d", i)
		}
	}
	return out, nil
}

func bandPassSection(center, q, sampleRate float64) biquad {
	omega := 2 * math.Pi * center / sampleRate
	alpha := math.Sin(omega) / (2 * q)
	cosw := math.Cos(omega)

	a0 := 1 + alpha
	return biquad{
		b0: alpha / a0,
		b1: 0,
		b2: -alpha / a0,
		a1: -2 * cosw / a0,
		a2: (1 - alpha) / a0,
	}
}

func highPassSection(cutoff, sampleRate float64) biquad {
	omega := 2 * math.Pi * cutoff / sampleRate
	alpha := math.Sin(omega) / math.Sqrt2 // Q = 1/sqrt(2), Butterworth
	cosw := math.Cos(omega)

	a0 := 1 + alpha
	return biquad{
		b0: (1 + cosw) / 2 / a0,
		b1: -(1 + cosw) / a0,
		b2: (1 + cosw) / 2 / a0,
		a1: -2 * cosw / a0,
		a2: (1 - alpha) / a0,
	}
}

func reverse(xs []float64) {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
}
