// SPDX-License-Identifier: MIT
package enhance

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"voicepipe/internal/dsp"
)

// Noise-category thresholds. These are hand-tuned starting points meant to
// be calibrated against labeled audio, not exact constants.
const (
	hvacLowBandShare    = 0.6  // low-band energy share flagging HVAC rumble
	keyboardVarianceK   = 0.5  // temporal std vs mean flagging typing transients
	humPeakRatio        = 1.5  // narrow peak vs neighborhood flagging mains hum
	windVarianceK       = 0.3  // spectral flatness bound for wind
	windEnergyFloor     = 0.02 // wind must carry real energy
	trafficGradualShare = 0.7  // share of gradual frames flagging traffic
	backgroundFloor     = 0.01 // median magnitude flagging generic noise
)

// classifyNoise inspects per-band energy ratios and temporal patterns and
// returns every category that triggers. Buffers too short to transform
// return no categories.
func (a *analyzer) classifyNoise(samples []float64) []NoiseType {
	spec := a.stft.Analyze(samples)
	if spec == nil {
		return nil
	}

	var detected []NoiseType

	lowEnergy := a.bandMeanMagnitude(spec, 0, 200)
	midEnergy := a.bandMeanMagnitude(spec, 200, 2000)
	highEnergy := a.bandMeanMagnitude(spec, 2000, a.sampleRate/2+1)
	total := lowEnergy + midEnergy + highEnergy

	if total > 0 {
		if lowEnergy/total > hvacLowBandShare {
			detected = append(detected, NoiseHVAC)
		}
		if a.detectKeyboardTransients(spec) {
			detected = append(detected, NoiseKeyboard)
		}
		if a.detectElectricalHum(spec) {
			detected = append(detected, NoiseElectricalHum)
		}
		if a.detectWind(spec) {
			detected = append(detected, NoiseWind)
		}
		if a.detectTraffic(spec) {
			detected = append(detected, NoiseTraffic)
		}
	}

	if len(detected) == 0 && magnitudePercentile(spec, 0.50) > backgroundFloor {
		detected = append(detected, NoiseBackground)
	}
	return detected
}

// detectKeyboardTransients looks for high temporal variance of the 1-8 kHz
// band energy: typing is a train of sharp broadband clicks.
func (a *analyzer) detectKeyboardTransients(spec *dsp.Spectrum) bool {
	perFrame := a.bandEnergyPerFrame(spec, 1000, 8000)
	if len(perFrame) < 2 {
		return false
	}

	mean := stat.Mean(perFrame, nil)
	if mean <= 0 {
		return false
	}
	return stat.StdDev(perFrame, nil) > mean*keyboardVarianceK
}

// detectElectricalHum checks 60 Hz and its first harmonics for a narrow
// spectral peak standing out of its neighborhood.
func (a *analyzer) detectElectricalHum(spec *dsp.Spectrum) bool {
	for _, humFreq := range []float64{60, 120, 180, 240} {
		bin := int(math.Round(humFreq * float64(a.stft.WindowSize()) / a.sampleRate))
		if bin >= spec.Bins() {
			continue
		}

		local := a.timeMeanAtBin(spec, bin)

		lo := bin - 2
		if lo < 0 {
			lo = 0
		}
		hi := bin + 3
		if hi > spec.Bins() {
			hi = spec.Bins()
		}
		var surrounding float64
		for b := lo; b < hi; b++ {
			surrounding += a.timeMeanAtBin(spec, b)
		}
		surrounding /= float64(hi - lo)

		if surrounding > 0 && local > surrounding*humPeakRatio {
			return true
		}
	}
	return false
}

// detectWind looks for broadband low-frequency energy that is unusually flat
// across bins: wind rumble lacks the spectral structure of voice.
func (a *analyzer) detectWind(spec *dsp.Spectrum) bool {
	var binMeans []float64
	for b := 0; b < spec.Bins(); b++ {
		if a.stft.BinFreq(b) >= 1000 {
			break
		}
		binMeans = append(binMeans, a.timeMeanAtBin(spec, b))
	}
	if len(binMeans) < 2 {
		return false
	}

	mean := stat.Mean(binMeans, nil)
	return stat.StdDev(binMeans, nil) < mean*windVarianceK && mean > windEnergyFloor
}

// detectTraffic looks for gradually rolling broadband energy: most
// frame-to-frame changes stay below the gradient's own spread.
func (a *analyzer) detectTraffic(spec *dsp.Spectrum) bool {
	broadband := make([]float64, spec.Frames())
	for f := range broadband {
		broadband[f] = stat.Mean(spec.Magnitude[f], nil)
	}
	if len(broadband) <= 5 {
		return false
	}

	grad := gradient(broadband)
	spread := stat.StdDev(grad, nil)
	gradual := 0
	for _, g := range grad {
		if math.Abs(g) < spread {
			gradual++
		}
	}
	return float64(gradual) > float64(len(broadband))*trafficGradualShare
}

// bandMeanMagnitude averages magnitudes over all frames for bins whose
// center frequency lies in [low, high).
func (a *analyzer) bandMeanMagnitude(spec *dsp.Spectrum, low, high float64) float64 {
	var sum float64
	count := 0
	for b := 0; b < spec.Bins(); b++ {
		freq := a.stft.BinFreq(b)
		if freq < low || freq >= high {
			continue
		}
		for f := 0; f < spec.Frames(); f++ {
			sum += spec.Magnitude[f][b]
		}
		count += spec.Frames()
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// bandEnergyPerFrame returns the mean magnitude of [low, high) per frame.
func (a *analyzer) bandEnergyPerFrame(spec *dsp.Spectrum, low, high float64) []float64 {
	out := make([]float64, spec.Frames())
	for f := range out {
		var sum float64
		count := 0
		for b := 0; b < spec.Bins(); b++ {
			freq := a.stft.BinFreq(b)
			if freq < low || freq >= high {
				continue
			}
			sum += spec.Magnitude[f][b]
			count++
		}
		if count > 0 {
			out[f] = sum / float64(count)
		}
	}
	return out
}

func (a *analyzer) timeMeanAtBin(spec *dsp.Spectrum, bin int) float64 {
	var sum float64
	for f := 0; f < spec.Frames(); f++ {
		sum += spec.Magnitude[f][bin]
	}
	return sum / float64(spec.Frames())
}

// gradient returns central differences with one-sided edges.
func gradient(xs []float64) []float64 {
	n := len(xs)
	out := make([]float64, n)
	if n < 2 {
		return out
	}
	out[0] = xs[1] - xs[0]
	out[n-1] = xs[n-1] - xs[n-2]
	for i := 1; i < n-1; i++ {
		out[i] = (xs[i+1] - xs[i-1]) / 2
	}
	return out
}
