// SPDX-License-Identifier: MIT
package enhance

import (
	"math"

	"github.com/sirupsen/logrus"

	"voicepipe/internal/dsp"
)

const (
	breathAttenuation  = 0.3  // flagged breath samples keep 30% amplitude
	breathAmplitudeCap = 0.1  // breath candidates must be quiet overall
	breathPercentile   = 0.70 // high-band energy threshold
	deEssGain          = 0.6  // sibilant samples lose 40%
	deEssPercentile    = 0.85
	deEssMaskKernel    = 5
	formantBoostAmount = 0.15
)

// voiceEnhancer runs the three perceptual sub-stages: breath-sound
// attenuation, de-essing, and a formant clarity boost. All of its filters
// are designed once at construction.
type voiceEnhancer struct {
	breathHP   *dsp.BandFilter // 150 Hz high-pass isolates breath-like energy
	sibilantBP *dsp.BandFilter // 4-8 kHz sibilance band
	formantBP  *dsp.BandFilter // 800-2500 Hz vocal formants
	log        *logrus.Logger
}

func newVoiceEnhancer(sampleRate float64, log *logrus.Logger) *voiceEnhancer {
	return &voiceEnhancer{
		breathHP:   dsp.NewHighPass(150, sampleRate, 4),
		sibilantBP: dsp.NewBandPass(4000, 8000, sampleRate, 4),
		formantBP:  dsp.NewBandPass(800, 2500, sampleRate, 4),
		log:        log,
	}
}

func (ve *voiceEnhancer) process(samples []float64, s *Settings) []float64 {
	out := make([]float64, len(samples))
	copy(out, samples)

	if s.BreathReduction {
		out = ve.reduceBreath(out)
	}
	if s.DeEssing {
		out = ve.deEss(out)
	}
	return ve.boostClarity(out)
}

// reduceBreath attenuates samples that carry high breath-band energy while
// being quiet overall, the signature of an audible inhale.
func (ve *voiceEnhancer) reduceBreath(samples []float64) []float64 {
	highFreq, err := ve.breathHP.ApplyZeroPhase(samples)
	if err != nil {
		ve.log.WithError(err).Debug("breath filter failed, skipping breath reduction")
		return samples
	}

	absHigh := make([]float64, len(highFreq))
	for i, v := range highFreq {
		absHigh[i] = math.Abs(v)
	}
	threshold := dsp.Percentile(absHigh, breathPercentile)

	for i := range samples {
		if absHigh[i] > threshold && math.Abs(samples[i]) < breathAmplitudeCap {
			samples[i] *= breathAttenuation
		}
	}
	return samples
}

// deEss derives a per-sample gain mask from sibilant-band energy and
// median-filters the mask so the gain never switches abruptly.
func (ve *voiceEnhancer) deEss(samples []float64) []float64 {
	sibilant, err := ve.sibilantBP.ApplyZeroPhase(samples)
	if err != nil {
		ve.log.WithError(err).Debug("sibilance filter failed, skipping de-essing")
		return samples
	}

	energy := make([]float64, len(sibilant))
	for i, v := range sibilant {
		energy[i] = math.Abs(v)
	}
	threshold := dsp.Percentile(energy, deEssPercentile)

	mask := make([]float64, len(samples))
	for i := range mask {
		if energy[i] > threshold {
			mask[i] = deEssGain
		} else {
			mask[i] = 1.0
		}
	}
	mask = dsp.MedianFilter(mask, deEssMaskKernel)

	for i := range samples {
		samples[i] *= mask[i]
	}
	return samples
}

// boostClarity adds back a fraction of the vocal formant band, then guards
// against clipping.
func (ve *voiceEnhancer) boostClarity(samples []float64) []float64 {
	formants, err := ve.formantBP.ApplyZeroPhase(samples)
	if err != nil {
		ve.log.WithError(err).Debug("formant filter failed, skipping clarity boost")
		return samples
	}

	for i := range samples {
		samples[i] += formants[i] * formantBoostAmount
	}
	rescaleIfClipping(samples)
	return samples
}
