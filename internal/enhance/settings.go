// SPDX-License-Identifier: MIT
package enhance

import (
	"github.com/sirupsen/logrus"
)

// EQGains holds the per-band gains in dB for the five fixed equalizer bands.
type EQGains struct {
	Low     float64 // 80-250 Hz
	MidLow  float64 // 250-800 Hz, voice warmth
	Mid     float64 // 800-2500 Hz, main voice body
	MidHigh float64 // 2500-8000 Hz, consonants
	High    float64 // 8000 Hz-Nyquist, sibilance
}

// Settings holds every stage toggle and numeric parameter for one pipeline
// instance. Every ratio and strength parameter stays inside its declared
// bound after any mutation; values are clamped on write, never rejected.
type Settings struct {
	NoiseSuppressionEnabled  bool
	NoiseSuppressionStrength float64 // [0, 1]

	AutoGainControl bool
	TargetLevelDB   float64
	MaxGainDB       float64
	GainSmoothing   float64 // [0, 1)

	EchoCancellationEnabled bool
	EchoDelayMS             int

	CompressorEnabled     bool
	CompressorRatio       float64 // >= 1
	CompressorThresholdDB float64

	EQEnabled bool
	EQGains   EQGains

	VoiceEnhancement bool
	BreathReduction  bool
	DeEssing         bool

	AdaptiveProcessing bool
	LearningRate       float64 // [0, 1]
}

// DefaultSettings returns the tuning used for a fresh stream: moderate
// suppression, conversational leveling, and a voice-forward EQ curve.
func DefaultSettings() Settings {
	return Settings{
		NoiseSuppressionEnabled:  true,
		NoiseSuppressionStrength: 0.7,
		AutoGainControl:          true,
		TargetLevelDB:            -20.0,
		MaxGainDB:                30.0,
		GainSmoothing:            0.95,
		EchoCancellationEnabled:  true,
		EchoDelayMS:              50,
		CompressorEnabled:        true,
		CompressorRatio:          3.0,
		CompressorThresholdDB:    -25.0,
		EQEnabled:                true,
		EQGains: EQGains{
			Low:     0.0,
			MidLow:  2.0,
			Mid:     3.0,
			MidHigh: 1.0,
			High:    -2.0,
		},
		VoiceEnhancement:   true,
		BreathReduction:    true,
		DeEssing:           true,
		AdaptiveProcessing: true,
		LearningRate:       0.01,
	}
}

// Clamped setters. All mutation paths (mode overlays, adaptive updates,
// external Update calls) go through these so no out-of-range value ever
// lands in Settings.

func (s *Settings) SetSuppressionStrength(v float64) {
	s.NoiseSuppressionStrength = clamp(v, 0, 1)
}

func (s *Settings) SetGainSmoothing(v float64) {
	// Strictly below 1: a smoothing of 1 would freeze the gain forever.
	s.GainSmoothing = clamp(v, 0, 0.999)
}

func (s *Settings) SetCompressorRatio(v float64) {
	if v < 1 {
		v = 1
	}
	s.CompressorRatio = v
}

func (s *Settings) SetLearningRate(v float64) {
	s.LearningRate = clamp(v, 0, 1)
}

func (s *Settings) SetEchoDelayMS(v int) {
	if v < 0 {
		v = 0
	}
	s.EchoDelayMS = v
}

// applyMode overlays the mode-specific tuning. Unknown modes and Music leave
// the settings untouched.
func (s *Settings) applyMode(mode Mode) {
	overlay, ok := modeOverlays[mode]
	if !ok {
		return
	}
	s.SetSuppressionStrength(overlay.suppressionStrength)
	s.TargetLevelDB = overlay.targetLevelDB
	s.SetCompressorRatio(overlay.compressorRatio)
	s.VoiceEnhancement = overlay.voiceEnhancement
}

// Update applies recognized, type-matching fields from changes. The accepted
// field names form a closed set dispatched explicitly below; unknown fields
// are ignored and logged, never an error. Numeric fields accept any numeric
// type, and every write is clamped.
func (s *Settings) Update(changes map[string]any, log *logrus.Logger) {
	for key, value := range changes {
		if !s.applyField(key, value) {
			log.WithFields(logrus.Fields{
				"field": key,
				"value": value,
			}).Debug("ignoring unrecognized settings field")
			continue
		}
		log.WithFields(logrus.Fields{
			"field": key,
			"value": value,
		}).Info("updated processing setting")
	}
}

// applyField dispatches one named field to its setter. Returns false when the
// name is unknown or the value's type does not match.
func (s *Settings) applyField(key string, value any) bool {
	switch key {
	case "noise_suppression_enabled":
		return setBool(&s.NoiseSuppressionEnabled, value)
	case "noise_suppression_strength":
		if f, ok := toFloat(value); ok {
			s.SetSuppressionStrength(f)
			return true
		}
	case "auto_gain_control":
		return setBool(&s.AutoGainControl, value)
	case "target_level_db":
		if f, ok := toFloat(value); ok {
			s.TargetLevelDB = f
			return true
		}
	case "max_gain_db":
		if f, ok := toFloat(value); ok {
			s.MaxGainDB = f
			return true
		}
	case "gain_smoothing":
		if f, ok := toFloat(value); ok {
			s.SetGainSmoothing(f)
			return true
		}
	case "echo_cancellation_enabled":
		return setBool(&s.EchoCancellationEnabled, value)
	case "echo_delay_ms":
		if f, ok := toFloat(value); ok {
			s.SetEchoDelayMS(int(f))
			return true
		}
	case "compressor_enabled":
		return setBool(&s.CompressorEnabled, value)
	case "compressor_ratio":
		if f, ok := toFloat(value); ok {
			s.SetCompressorRatio(f)
			return true
		}
	case "compressor_threshold_db":
		if f, ok := toFloat(value); ok {
			s.CompressorThresholdDB = f
			return true
		}
	case "eq_enabled":
		return setBool(&s.EQEnabled, value)
	case "eq_gain_low":
		if f, ok := toFloat(value); ok {
			s.EQGains.Low = f
			return true
		}
	case "eq_gain_mid_low":
		if f, ok := toFloat(value); ok {
			s.EQGains.MidLow = f
			return true
		}
	case "eq_gain_mid":
		if f, ok := toFloat(value); ok {
			s.EQGains.Mid = f
			return true
		}
	case "eq_gain_mid_high":
		if f, ok := toFloat(value); ok {
			s.EQGains.MidHigh = f
			return true
		}
	case "eq_gain_high":
		if f, ok := toFloat(value); ok {
			s.EQGains.High = f
			return true
		}
	case "voice_enhancement":
		return setBool(&s.VoiceEnhancement, value)
	case "breath_reduction":
		return setBool(&s.BreathReduction, value)
	case "de_essing":
		return setBool(&s.DeEssing, value)
	case "adaptive_processing":
		return setBool(&s.AdaptiveProcessing, value)
	case "learning_rate":
		if f, ok := toFloat(value); ok {
			s.SetLearningRate(f)
			return true
		}
	}
	return false
}

func setBool(dst *bool, value any) bool {
	b, ok := value.(bool)
	if ok {
		*dst = b
	}
	return ok
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
