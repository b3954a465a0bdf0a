// SPDX-License-Identifier: MIT
package enhance

import (
	"voicepipe/internal/dsp"
)

const (
	// silenceRMSFloor is the level below which AGC does nothing: near
	// silence must not be amplified and must not disturb the smoothed gain.
	silenceRMSFloor = 1e-6

	// clipGuardPeak is the hard output ceiling; buffers exceeding it are
	// rescaled whole rather than clipped sample-by-sample.
	clipGuardPeak = 0.95
)

// applyAGC normalizes the buffer toward the target level with an
// exponentially smoothed gain that persists in StreamState, so the gain
// trajectory stays continuous across buffers. Returns the leveled buffer and
// whether a gain adjustment happened.
func applyAGC(samples []float64, s *Settings, st *StreamState) ([]float64, bool) {
	rms := dsp.RMS(samples)
	if rms <= silenceRMSFloor {
		return samples, false
	}

	required := dsp.DBToLinear(s.TargetLevelDB) / rms
	if maxGain := dsp.DBToLinear(s.MaxGainDB); required > maxGain {
		required = maxGain
	}

	alpha := s.GainSmoothing
	st.gainSmoothed = alpha*st.gainSmoothed + (1-alpha)*required

	out := make([]float64, len(samples))
	for i, x := range samples {
		out[i] = x * st.gainSmoothed
	}

	rescaleIfClipping(out)
	return out, true
}

// rescaleIfClipping scales the whole buffer down when its peak exceeds the
// clip guard, preserving waveform shape.
func rescaleIfClipping(samples []float64) {
	peak := dsp.Peak(samples)
	if peak <= clipGuardPeak {
		return
	}
	scale := clipGuardPeak / peak
	for i := range samples {
		samples[i] *= scale
	}
}
