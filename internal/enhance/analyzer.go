// SPDX-License-Identifier: MIT
package enhance

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"voicepipe/internal/dsp"
)

// NoiseType is a detected noise category. Zero or more can be flagged for a
// single buffer.
type NoiseType string

const (
	NoiseBackground    NoiseType = "background_noise"
	NoiseKeyboard      NoiseType = "keyboard_typing"
	NoiseTraffic       NoiseType = "traffic"
	NoiseHVAC          NoiseType = "hvac"
	NoiseElectricalHum NoiseType = "electrical_hum"
	NoiseWind          NoiseType = "wind"
)

// snrCeiling is reported when no noise floor is measurable (silence or a
// perfectly clean signal); it keeps the estimate finite instead of diverging.
const snrCeiling = 60.0

// Metrics is the per-buffer quality report. It is immutable after creation
// and consumed by the caller for logging and telemetry only.
type Metrics struct {
	SNR          float64 `json:"snr_db"`
	DynamicRange float64 `json:"dynamic_range_db"`
	PeakLevel    float64 `json:"peak_level"`
	RMSLevel     float64 `json:"rms_level"`

	SpectralCentroid float64 `json:"spectral_centroid_hz"`
	SpectralRolloff  float64 `json:"spectral_rolloff_hz"`
	ZeroCrossingRate float64 `json:"zero_crossing_rate"`

	NoiseFloor            float64     `json:"noise_floor"`
	DetectedNoiseTypes    []NoiseType `json:"detected_noise_types"`
	NoiseReductionApplied float64     `json:"noise_reduction_applied"`

	ClarityScore         float64 `json:"clarity_score"`
	NaturalnessScore     float64 `json:"naturalness_score"`
	IntelligibilityScore float64 `json:"intelligibility_score"`

	LatencyMS  float64   `json:"latency_ms"`
	MeasuredAt time.Time `json:"measured_at"`
}

// baseAnalysis holds the signal-level and spectral statistics computed on the
// incoming buffer before any stage runs.
type baseAnalysis struct {
	rms        float64
	peak       float64
	centroid   float64
	rolloff    float64
	zcr        float64
	noiseFloor float64
	snr        float64
}

// analyzer scores buffers and classifies noise. Its filters are designed once
// at construction and shared by every call.
type analyzer struct {
	stft       *dsp.STFT
	sampleRate float64

	clarityHP *dsp.BandFilter // > 2 kHz content
	speechBP  *dsp.BandFilter // 300-3000 Hz speech-critical band
}

func newAnalyzer(stft *dsp.STFT, sampleRate float64) *analyzer {
	return &analyzer{
		stft:       stft,
		sampleRate: sampleRate,
		clarityHP:  dsp.NewHighPass(2000, sampleRate, 4),
		speechBP:   dsp.NewBandPass(300, 3000, sampleRate, 4),
	}
}

// snapshot computes the base statistics of a buffer. Buffers too short to
// transform get zeroed spectral statistics, matching the short-buffer bypass
// of the processing stages.
func (a *analyzer) snapshot(samples []float64) baseAnalysis {
	ba := baseAnalysis{
		rms:  dsp.RMS(samples),
		peak: dsp.Peak(samples),
	}

	if spec := a.stft.Analyze(samples); spec != nil {
		ba.centroid = a.spectralCentroid(spec)
		ba.rolloff = a.spectralRolloff(spec)
		ba.zcr = dsp.ZeroCrossingRate(samples)
		ba.noiseFloor = magnitudePercentile(spec, 0.10)
	}

	signalPower := ba.rms * ba.rms
	noisePower := ba.noiseFloor * ba.noiseFloor
	if signalPower <= 0 {
		ba.snr = snrCeiling
	} else {
		ba.snr = 10 * math.Log10(signalPower/(noisePower+1e-8))
	}
	return ba
}

// spectralCentroid is the energy-weighted mean frequency across all frames.
func (a *analyzer) spectralCentroid(spec *dsp.Spectrum) float64 {
	var weighted, total float64
	for f := 0; f < spec.Frames(); f++ {
		for b, m := range spec.Magnitude[f] {
			weighted += a.stft.BinFreq(b) * m
			total += m
		}
	}
	if total <= 0 {
		return 0
	}
	return weighted / total
}

// spectralRolloff is the mean over frames of the frequency below which 85%
// of the frame's cumulative energy lies.
func (a *analyzer) spectralRolloff(spec *dsp.Spectrum) float64 {
	const rolloffFraction = 0.85

	var sum float64
	for f := 0; f < spec.Frames(); f++ {
		mag := spec.Magnitude[f]
		total := 0.0
		for _, m := range mag {
			total += m * m
		}
		if total <= 0 {
			continue
		}

		cumulative := 0.0
		for b, m := range mag {
			cumulative += m * m
			if cumulative >= rolloffFraction*total {
				sum += a.stft.BinFreq(b)
				break
			}
		}
	}
	return sum / float64(spec.Frames())
}

// clarity scores the share of high-frequency (>2 kHz) energy, scaled so a
// typical clean voice lands mid-range.
func (a *analyzer) clarity(samples []float64) float64 {
	high, err := a.clarityHP.ApplyZeroPhase(samples)
	if err != nil {
		return 0
	}
	return cappedEnergyRatio(high, samples, 5)
}

// intelligibility scores the share of energy in the speech-critical
// 300-3000 Hz band.
func (a *analyzer) intelligibility(samples []float64) float64 {
	speech, err := a.speechBP.ApplyZeroPhase(samples)
	if err != nil {
		return 0
	}
	return cappedEnergyRatio(speech, samples, 2)
}

// naturalness correlates the original and processed spectrogram magnitudes;
// heavy-handed processing decorrelates them. Buffers too short to transform,
// or degenerate (constant) spectra, default to 0.8.
func (a *analyzer) naturalness(original, processed []float64) float64 {
	const defaultNaturalness = 0.8

	specOrig := a.stft.Analyze(original)
	specProc := a.stft.Analyze(processed)
	if specOrig == nil || specProc == nil {
		return defaultNaturalness
	}

	flatOrig := flattenMagnitudes(specOrig)
	flatProc := flattenMagnitudes(specProc)
	n := len(flatOrig)
	if len(flatProc) < n {
		n = len(flatProc)
	}
	if n == 0 {
		return defaultNaturalness
	}

	corr := stat.Correlation(flatOrig[:n], flatProc[:n], nil)
	if math.IsNaN(corr) {
		return defaultNaturalness
	}
	if corr < 0 {
		return 0
	}
	return corr
}

// estimateSNR is the cheap percentile-based estimator used by the adaptive
// feedback loop: noise power is the 10th percentile of squared samples.
func (a *analyzer) estimateSNR(samples []float64) float64 {
	if len(samples) == 0 {
		return snrCeiling
	}

	squared := make([]float64, len(samples))
	var signalPower float64
	for i, x := range samples {
		squared[i] = x * x
		signalPower += squared[i]
	}
	signalPower /= float64(len(samples))

	noisePower := dsp.Percentile(squared, 0.10)
	if noisePower <= 0 || signalPower <= 0 {
		return snrCeiling
	}
	return 10 * math.Log10(signalPower/noisePower)
}

// noiseReduction measures how much the quiet-sample floor dropped between
// the original and processed buffers, as a fraction of the original floor.
func noiseReduction(original, processed []float64) float64 {
	absOrig := make([]float64, len(original))
	for i, x := range original {
		absOrig[i] = math.Abs(x)
	}
	absProc := make([]float64, len(processed))
	for i, x := range processed {
		absProc[i] = math.Abs(x)
	}

	before := dsp.Percentile(absOrig, 0.10)
	after := dsp.Percentile(absProc, 0.10)
	reduction := (before - after) / (before + 1e-8)
	if reduction < 0 {
		return 0
	}
	return reduction
}

func cappedEnergyRatio(band, full []float64, scale float64) float64 {
	bandRMS := dsp.RMS(band)
	fullRMS := dsp.RMS(full)
	ratio := bandRMS * bandRMS / (fullRMS*fullRMS + 1e-8) * scale
	if ratio > 1 {
		return 1
	}
	return ratio
}

func magnitudePercentile(spec *dsp.Spectrum, p float64) float64 {
	flat := flattenMagnitudes(spec)
	return dsp.Percentile(flat, p)
}

func flattenMagnitudes(spec *dsp.Spectrum) []float64 {
	flat := make([]float64, 0, spec.Frames()*spec.Bins())
	for f := 0; f < spec.Frames(); f++ {
		flat = append(flat, spec.Magnitude[f]...)
	}
	return flat
}
