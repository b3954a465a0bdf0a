// SPDX-License-Identifier: MIT
package enhance

import "time"

// adaptationCapacity bounds the adaptation history; the oldest record is
// dropped beyond this.
const adaptationCapacity = 100

// AdaptationRecord is one sample of the feedback loop: how much the SNR
// improved on a buffer and what suppression strength was active.
type AdaptationRecord struct {
	At             time.Time
	SNRImprovement float64
	Strength       float64
}

// StreamState carries everything that persists across buffers of a single
// audio stream. It is owned exclusively by one pipeline instance, mutated
// only by the stages in sequence, and discarded when the stream closes.
type StreamState struct {
	// noiseProfile is the rolling noise spectral magnitude per frequency
	// bin, refreshed when the suppressor sees leading non-voice frames.
	noiseProfile []float64

	// gainSmoothed is the AGC's exponentially smoothed gain; starting at
	// unity means the first buffer moves off unprocessed level gradually.
	gainSmoothed float64

	// compressorEnvelope is the one-pole envelope follower state; zero
	// means "not primed yet".
	compressorEnvelope float64

	adaptation []AdaptationRecord

	// vadRecent holds the voice-activity flags of the most recent
	// analyzed frames, newest last.
	vadRecent []bool
}

const vadHistoryLen = 10

func newStreamState(bins int) *StreamState {
	return &StreamState{
		noiseProfile: make([]float64, bins),
		gainSmoothed: 1.0,
		adaptation:   make([]AdaptationRecord, 0, adaptationCapacity),
		vadRecent:    make([]bool, 0, vadHistoryLen),
	}
}

func (st *StreamState) recordAdaptation(rec AdaptationRecord) {
	st.adaptation = append(st.adaptation, rec)
	if len(st.adaptation) > adaptationCapacity {
		st.adaptation = st.adaptation[len(st.adaptation)-adaptationCapacity:]
	}
}

func (st *StreamState) recordVAD(frames []bool) {
	st.vadRecent = append(st.vadRecent, frames...)
	if len(st.vadRecent) > vadHistoryLen {
		st.vadRecent = st.vadRecent[len(st.vadRecent)-vadHistoryLen:]
	}
}

// resetLearned clears the adaptation history and the learned noise profile
// without touching any settings.
func (st *StreamState) resetLearned() {
	st.adaptation = st.adaptation[:0]
	for i := range st.noiseProfile {
		st.noiseProfile[i] = 0
	}
	st.vadRecent = st.vadRecent[:0]
}
