// SPDX-License-Identifier: MIT
package enhance

import (
	"github.com/sirupsen/logrus"

	"voicepipe/internal/dsp"
)

// echoCoupling is the fixed fraction of the delayed signal assumed to
// re-enter the microphone.
const echoCoupling = 0.3

// echoCanceller subtracts a delayed, attenuated copy of the buffer as the
// echo estimate, then high-passes the result to remove the low-frequency
// rumble the subtraction introduces.
type echoCanceller struct {
	sampleRate float64
	rumbleHP   *dsp.BandFilter // 80 Hz, 2nd order, applied zero-phase
	log        *logrus.Logger
}

func newEchoCanceller(sampleRate float64, log *logrus.Logger) *echoCanceller {
	return &echoCanceller{
		sampleRate: sampleRate,
		rumbleHP:   dsp.NewHighPass(80, sampleRate, 2),
		log:        log,
	}
}

// process returns the echo-cancelled buffer and whether cancellation ran. A
// delay at or beyond the buffer length means there is nothing to subtract;
// the input passes through unchanged.
func (ec *echoCanceller) process(samples []float64, delayMS int) ([]float64, bool) {
	delay := delayMS * int(ec.sampleRate) / 1000
	if delay <= 0 || delay >= len(samples) {
		return samples, false
	}

	out := make([]float64, len(samples))
	copy(out, samples[:delay]) // head is zero-delayed, no echo estimate yet
	for i := delay; i < len(samples); i++ {
		out[i] = samples[i] - samples[i-delay]*echoCoupling
	}

	filtered, err := ec.rumbleHP.ApplyZeroPhase(out)
	if err != nil {
		ec.log.WithError(err).Debug("echo rumble filter failed, keeping unfiltered buffer")
		return out, true
	}
	return filtered, true
}
