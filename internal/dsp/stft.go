// SPDX-License-Identifier: MIT

// Package dsp implements the signal-processing primitives used by the
// enhancement pipeline: a Hann-windowed short-time transform with inverse
// reconstruction, IIR band filter design and zero-phase application, and
// small numeric helpers (percentiles, median filtering, level math).
package dsp

import (
	"fmt"
	"math/cmplx"

	"voicepipe/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// Spectrum is the time-frequency representation of one buffer: magnitude and
// phase per frequency bin per frame. Stages mutate Magnitude in place and
// reconstruct with the original Phase.
type Spectrum struct {
	Magnitude [][]float64 // [frame][bin]
	Phase     [][]float64 // [frame][bin]

	sourceLen int // original buffer length, restored on synthesis
}

// Frames returns the number of analysis frames.
func (s *Spectrum) Frames() int { return len(s.Magnitude) }

// Bins returns the number of frequency bins per frame (windowSize/2 + 1).
func (s *Spectrum) Bins() int {
	if len(s.Magnitude) == 0 {
		return 0
	}
	return len(s.Magnitude[0])
}

// STFT performs Hann-windowed short-time transforms with 50% overlap and the
// corresponding overlap-add inverse. The FFT plan and window coefficients are
// computed once at construction and reused for every buffer.
type STFT struct {
	windowSize int
	hop        int
	sampleRate float64

	fft *fourier.FFT
	win []float64

	// Scratch buffers, reused across calls. One STFT instance serves one
	// stream; callers serialize buffers per stream.
	frameIn  []float64
	frameOut []float64
	coeffs   []complex128
}

// NewSTFT creates a transform engine for the given window size (power of two)
// and sample rate. These are the only fatal construction-time validations in
// the pipeline.
func NewSTFT(windowSize int, sampleRate float64) (*STFT, error) {
	if !bitint.IsPowerOfTwo(windowSize) {
		return nil, fmt.Errorf("stft: window size must be a power of 2, got %d", windowSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("stft: sample rate must be positive, got %g", sampleRate)
	}

	win := make([]float64, windowSize)
	for i := range win {
		win[i] = 1.0
	}
	window.Hann(win)

	return &STFT{
		windowSize: windowSize,
		hop:        windowSize / 2,
		sampleRate: sampleRate,
		fft:        fourier.NewFFT(windowSize),
		win:        win,
		frameIn:    make([]float64, windowSize),
		frameOut:   make([]float64, windowSize),
		coeffs:     make([]complex128, windowSize/2+1),
	}, nil
}

// WindowSize returns the analysis window length in samples.
func (s *STFT) WindowSize() int { return s.windowSize }

// SampleRate returns the configured sample rate in Hz.
func (s *STFT) SampleRate() float64 { return s.sampleRate }

// BinFreq returns the center frequency in Hz for a frequency bin index.
func (s *STFT) BinFreq(bin int) float64 {
	if bin < 0 || bin > s.windowSize/2 {
		return 0
	}
	return float64(bin) * s.sampleRate / float64(s.windowSize)
}

// Analyze computes the windowed transform of samples. Buffers shorter than
// the window bypass spectral processing entirely: Analyze returns nil and the
// caller passes the buffer through unchanged.
func (s *STFT) Analyze(samples []float64) *Spectrum {
	if len(samples) < s.windowSize {
		return nil
	}

	frames := 1 + (len(samples)-s.windowSize+s.hop-1)/s.hop

	spec := &Spectrum{
		Magnitude: make([][]float64, frames),
		Phase:     make([][]float64, frames),
		sourceLen: len(samples),
	}

	for f := 0; f < frames; f++ {
		offset := f * s.hop
		for i := 0; i < s.windowSize; i++ {
			if offset+i < len(samples) {
				s.frameIn[i] = samples[offset+i] * s.win[i]
			} else {
				s.frameIn[i] = 0 // zero-pad the tail frame
			}
		}
		s.fft.Coefficients(s.coeffs, s.frameIn)

		mag := make([]float64, len(s.coeffs))
		phase := make([]float64, len(s.coeffs))
		for b, c := range s.coeffs {
			mag[b] = cmplx.Abs(c)
			phase[b] = cmplx.Phase(c)
		}
		spec.Magnitude[f] = mag
		spec.Phase[f] = phase
	}

	return spec
}

// Synthesize reconstructs a real buffer of the original length from a
// spectrum via windowed overlap-add. The per-sample accumulated window weight
// divides out both the analysis and synthesis windows, so an unmodified
// magnitude/phase pair round-trips within floating-point tolerance.
func (s *STFT) Synthesize(spec *Spectrum) []float64 {
	if spec == nil || spec.Frames() == 0 {
		return nil
	}

	frames := spec.Frames()
	padded := s.windowSize + (frames-1)*s.hop
	out := make([]float64, padded)
	weight := make([]float64, padded)
	norm := 1.0 / float64(s.windowSize) // gonum's inverse is unnormalized

	for f := 0; f < frames; f++ {
		for b := range s.coeffs {
			s.coeffs[b] = cmplx.Rect(spec.Magnitude[f][b], spec.Phase[f][b])
		}
		s.fft.Sequence(s.frameOut, s.coeffs)

		offset := f * s.hop
		for i := 0; i < s.windowSize; i++ {
			out[offset+i] += s.frameOut[i] * norm * s.win[i]
			weight[offset+i] += s.win[i] * s.win[i]
		}
	}

	for i := range out {
		if weight[i] > 1e-12 {
			out[i] /= weight[i]
		}
	}

	return out[:spec.sourceLen]
}
