// SPDX-License-Identifier: MIT
package enhance

import (
	"math"

	"voicepipe/internal/dsp"
)

const (
	// minWienerGain floors the per-bin attenuation; deeper cuts produce
	// audible musical-noise artifacts.
	minWienerGain = 0.1

	// noiseProfileFrames is how many leading frames must all be non-voice
	// before the stored noise profile is refreshed from them.
	noiseProfileFrames = 5
)

// noiseSuppressor attenuates stationary noise with a per-bin Wiener-style
// gain derived from a rolling noise spectral profile. The profile lives in
// StreamState and persists across buffers; it is only refreshed when the
// buffer opens with silence.
type noiseSuppressor struct {
	stft *dsp.STFT
}

// process returns the suppressed buffer and whether suppression ran; buffers
// shorter than the transform window pass through unchanged.
func (ns *noiseSuppressor) process(samples []float64, strength float64, st *StreamState) ([]float64, bool) {
	spec := ns.stft.Analyze(samples)
	if spec == nil {
		return samples, false
	}

	vad := detectVoiceActivity(spec)
	st.recordVAD(vad)

	leading := noiseProfileFrames
	if leading > len(vad) {
		leading = len(vad)
	}
	silentStart := true
	for _, voiced := range vad[:leading] {
		if voiced {
			silentStart = false
			break
		}
	}
	if silentStart {
		refreshNoiseProfile(st.noiseProfile, spec, leading)
	}

	for f := 0; f < spec.Frames(); f++ {
		mag := spec.Magnitude[f]
		for b := range mag {
			sp := mag[b] * mag[b]
			np := st.noiseProfile[b] * st.noiseProfile[b]
			mag[b] *= wienerGain(sp, np, strength)
		}
	}

	return ns.stft.Synthesize(spec), true
}

// wienerGain computes the per-bin attenuation signalPower/(signalPower+
// noisePower), shaped by the suppression strength and floored at
// minWienerGain.
func wienerGain(signalPower, noisePower, strength float64) float64 {
	g := signalPower / (signalPower + noisePower + 1e-8)
	g = math.Pow(g, strength)
	if g < minWienerGain {
		g = minWienerGain
	}
	return g
}

// detectVoiceActivity classifies each frame as voiced or not: frame energies
// are median-smoothed and thresholded at twice their 30th percentile, so the
// cutoff adapts to the buffer's own noise floor.
func detectVoiceActivity(spec *dsp.Spectrum) []bool {
	energy := make([]float64, spec.Frames())
	for f := range energy {
		for _, m := range spec.Magnitude[f] {
			energy[f] += m * m
		}
	}

	smooth := dsp.MedianFilter(energy, 3)
	threshold := dsp.Percentile(smooth, 0.30) * 2

	vad := make([]bool, len(smooth))
	for f, e := range smooth {
		vad[f] = e > threshold
	}
	return vad
}

// refreshNoiseProfile replaces the stored profile with the mean magnitude of
// the first leading frames.
func refreshNoiseProfile(profile []float64, spec *dsp.Spectrum, leading int) {
	if leading == 0 {
		return
	}
	for b := range profile {
		sum := 0.0
		for f := 0; f < leading; f++ {
			sum += spec.Magnitude[f][b]
		}
		profile[b] = sum / float64(leading)
	}
}
