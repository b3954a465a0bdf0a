// SPDX-License-Identifier: MIT
package enhance

import (
	"fmt"
	"strings"
)

// Mode selects a fixed settings overlay applied before each buffer is
// processed. It is the only external configuration knob besides direct
// settings mutation.
type Mode int

const (
	VoiceChat Mode = iota // optimized for conversation
	Conference            // optimized for multi-participant calls
	Broadcast             // optimized for one-to-many
	Music                 // no overlay, settings left as configured
	NoiseReduction        // aggressive suppression, enhancement off
)

// String returns the wire/config name of the mode.
func (m Mode) String() string {
	switch m {
	case VoiceChat:
		return "voice_chat"
	case Conference:
		return "conference"
	case Broadcast:
		return "broadcast"
	case Music:
		return "music"
	case NoiseReduction:
		return "noise_reduction"
	default:
		return "unknown"
	}
}

// ParseMode converts a config name (case-insensitive) to a Mode.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(name) {
	case "voice_chat", "voicechat":
		return VoiceChat, nil
	case "conference":
		return Conference, nil
	case "broadcast":
		return Broadcast, nil
	case "music":
		return Music, nil
	case "noise_reduction", "noisereduction":
		return NoiseReduction, nil
	default:
		return VoiceChat, fmt.Errorf("unknown processing mode %q", name)
	}
}

// modeOverlay holds the per-mode settings overrides. Music deliberately has
// no entry: it leaves the configured settings untouched.
type modeOverlay struct {
	suppressionStrength float64
	targetLevelDB       float64
	compressorRatio     float64
	voiceEnhancement    bool
}

var modeOverlays = map[Mode]modeOverlay{
	VoiceChat:      {0.8, -20.0, 3.0, true},
	Conference:     {0.9, -18.0, 4.0, true},
	Broadcast:      {0.95, -16.0, 6.0, true},
	NoiseReduction: {0.95, -22.0, 2.0, false},
}
