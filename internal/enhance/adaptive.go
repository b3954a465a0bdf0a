// SPDX-License-Identifier: MIT
package enhance

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// adaptWindow is how many recent records the retuning decision averages.
	adaptWindow = 10

	// Mean-improvement thresholds: below the low mark the suppressor is
	// not earning its keep, above the high mark it is over-aggressive.
	improvementLowDB  = 1.0
	improvementHighDB = 3.0

	// Strength bounds for adaptive retuning; tighter than the settings
	// range so the loop can never push suppression to a useless extreme.
	adaptiveStrengthFloor   = 0.3
	adaptiveStrengthCeiling = 0.95
)

// updateAdaptation records this buffer's SNR improvement and, once enough
// history exists, nudges the suppression strength by one learning-rate step.
// This is the only feedback loop in the pipeline; every nudge is clamped to
// the declared bounds.
func updateAdaptation(original, processed []float64, s *Settings, st *StreamState, a *analyzer, log *logrus.Logger) {
	improvement := a.estimateSNR(processed) - a.estimateSNR(original)
	st.recordAdaptation(AdaptationRecord{
		At:             time.Now(),
		SNRImprovement: improvement,
		Strength:       s.NoiseSuppressionStrength,
	})

	if len(st.adaptation) < adaptWindow {
		return
	}

	recent := st.adaptation[len(st.adaptation)-adaptWindow:]
	var sum float64
	for _, rec := range recent {
		sum += rec.SNRImprovement
	}
	avg := sum / adaptWindow

	switch {
	case avg < improvementLowDB:
		next := s.NoiseSuppressionStrength + s.LearningRate
		if next > adaptiveStrengthCeiling {
			next = adaptiveStrengthCeiling
		}
		s.SetSuppressionStrength(next)
		log.WithFields(logrus.Fields{
			"avg_improvement_db": avg,
			"strength":           s.NoiseSuppressionStrength,
		}).Debug("adaptive: raising suppression strength")
	case avg > improvementHighDB:
		next := s.NoiseSuppressionStrength - s.LearningRate
		if next < adaptiveStrengthFloor {
			next = adaptiveStrengthFloor
		}
		s.SetSuppressionStrength(next)
		log.WithFields(logrus.Fields{
			"avg_improvement_db": avg,
			"strength":           s.NoiseSuppressionStrength,
		}).Debug("adaptive: lowering suppression strength")
	}
}
