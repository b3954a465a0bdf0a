// SPDX-License-Identifier: MIT
package enhance

import (
	"math"

	"voicepipe/internal/dsp"
)

const (
	compressorAttackSec  = 0.001 // ~1 ms: gain reductions engage fast
	compressorReleaseSec = 0.1   // ~100 ms: recovery is gradual
)

// applyCompression applies a threshold/ratio gain curve in the dB domain,
// then smooths the resulting gain with an asymmetric one-pole envelope
// follower. The envelope moves toward a lower gain with the attack constant
// and toward a higher gain with the release constant, so transients are
// caught quickly and recovery is audible-smooth. The envelope persists in
// StreamState across buffers.
func applyCompression(samples []float64, s *Settings, st *StreamState, sampleRate float64) []float64 {
	if len(samples) == 0 {
		return samples
	}

	attack := math.Exp(-1 / (compressorAttackSec * sampleRate))
	release := math.Exp(-1 / (compressorReleaseSec * sampleRate))

	out := make([]float64, len(samples))
	env := st.compressorEnvelope

	for i, x := range samples {
		db := dsp.LinearToDB(x)

		gainDB := 0.0
		if db > s.CompressorThresholdDB {
			compressed := s.CompressorThresholdDB + (db-s.CompressorThresholdDB)/s.CompressorRatio
			gainDB = compressed - db
		}
		target := dsp.DBToLinear(gainDB)

		if env == 0 {
			env = target // prime the follower on the very first sample
		} else if target < env {
			env = attack*env + (1-attack)*target
		} else {
			env = release*env + (1-release)*target
		}

		out[i] = x * env
	}

	st.compressorEnvelope = env
	return out
}
