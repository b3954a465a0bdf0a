// SPDX-License-Identifier: MIT
package enhance

import (
	"math"

	"github.com/sirupsen/logrus"

	"voicepipe/internal/dsp"
)

// eqGainDeadband: bands within this of 0 dB are treated as flat and skipped.
const eqGainDeadband = 0.1

type eqBand struct {
	name      string
	low, high float64
	filter    *dsp.BandFilter
}

// equalizer blends pre-designed band-pass content back into the signal. A
// 0 dB band is a no-op; positive or negative gains boost or cut only that
// band's contribution. Filters are designed once at construction; bands that
// collapse against Nyquist degrade to identity and are skipped per buffer.
type equalizer struct {
	bands []eqBand
	log   *logrus.Logger
}

func newEqualizer(sampleRate float64, log *logrus.Logger) *equalizer {
	nyquist := sampleRate / 2
	defs := []struct {
		name      string
		low, high float64
	}{
		{"low", 80, 250},
		{"mid_low", 250, 800},
		{"mid", 800, 2500},
		{"mid_high", 2500, 8000},
		{"high", 8000, nyquist},
	}

	eq := &equalizer{bands: make([]eqBand, 0, len(defs)), log: log}
	for _, d := range defs {
		f := dsp.NewBandPass(d.low, d.high, sampleRate, 4)
		if f.Identity() {
			log.WithFields(logrus.Fields{
				"band": d.name,
				"low":  d.low,
				"high": d.high,
			}).Warn("eq band collapsed against Nyquist, degraded to pass-through")
		}
		eq.bands = append(eq.bands, eqBand{name: d.name, low: d.low, high: d.high, filter: f})
	}
	return eq
}

// process applies every active band. One band's filter failure is logged and
// skipped; it never aborts the rest of the buffer.
func (eq *equalizer) process(samples []float64, gains EQGains) []float64 {
	out := make([]float64, len(samples))
	copy(out, samples)

	for _, band := range eq.bands {
		gainDB := gains.forBand(band.name)
		if math.Abs(gainDB) <= eqGainDeadband || band.filter.Identity() {
			continue
		}

		filtered, err := band.filter.ApplyZeroPhase(out)
		if err != nil {
			eq.log.WithError(err).WithField("band", band.name).Warn("eq band filter failed, skipping band")
			continue
		}

		linear := dsp.DBToLinear(gainDB)
		for i := range out {
			out[i] += (filtered[i] - out[i]) * (linear - 1)
		}
	}
	return out
}

func (g EQGains) forBand(name string) float64 {
	switch name {
	case "low":
		return g.Low
	case "mid_low":
		return g.MidLow
	case "mid":
		return g.Mid
	case "mid_high":
		return g.MidHigh
	case "high":
		return g.High
	default:
		return 0
	}
}
