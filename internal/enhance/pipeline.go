// SPDX-License-Identifier: MIT
/*
Package enhance implements the real-time voice enhancement pipeline: a fixed
chain of noise suppression, echo cancellation, automatic gain control,
dynamic compression, equalization, and voice enhancement, followed by quality
scoring and an adaptive feedback loop that retunes suppression strength.

One Pipeline instance owns exactly one stream's state. Callers must serialize
Process calls per stream; independent streams on separate Pipeline instances
can run fully in parallel with no shared mutable state. Buffers are handed
off by ownership transfer: every stage consumes its input and produces a
fresh output, and no stage retains a reference to a previous buffer.
*/
package enhance

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"voicepipe/internal/dsp"
)

// DefaultWindowSize is the analysis window used when Config leaves it zero.
const DefaultWindowSize = 512

// metricsHistoryCap bounds the retained per-buffer metrics used for the
// recent-performance averages.
const metricsHistoryCap = 100

// ErrClosed is returned by Process after Close.
var ErrClosed = errors.New("enhance: pipeline is closed")

// MetricsSink receives the metrics of each processed buffer, e.g. for
// telemetry export. Implementations should be fast; send errors are logged
// and never fail the buffer.
type MetricsSink interface {
	Send(m Metrics) error
}

// Config configures a Pipeline.
type Config struct {
	SampleRate int // Hz, required, must be positive
	WindowSize int // transform window, power of two; 0 means DefaultWindowSize

	Logger  *logrus.Logger // nil means the standard logger
	Metrics MetricsSink    // optional telemetry sink
}

// Statistics is the cumulative and recent-window telemetry snapshot.
type Statistics struct {
	TotalSamplesProcessed uint64 `json:"total_samples_processed"`
	NoiseReductionEvents  uint64 `json:"noise_reduction_events"`
	GainAdjustments       uint64 `json:"gain_adjustments"`
	EchoCancellations     uint64 `json:"echo_cancellations"`

	AverageClarity     float64 `json:"average_clarity_score"`
	AverageNaturalness float64 `json:"average_naturalness_score"`
	AverageSNR         float64 `json:"average_snr"`
	AverageLatencyMS   float64 `json:"average_latency_ms"`

	AdaptationHistorySize int `json:"adaptation_history_size"`
	MetricsCollected      int `json:"metrics_collected"`
}

// Pipeline is the orchestrator: it owns the settings, the per-stream state,
// and the fixed stage order.
type Pipeline struct {
	sampleRate float64
	settings   Settings
	state      *StreamState

	stft       *dsp.STFT
	suppressor *noiseSuppressor
	echo       *echoCanceller
	eq         *equalizer
	enhancer   *voiceEnhancer
	analyzer   *analyzer

	log  *logrus.Logger
	sink MetricsSink

	stats          Statistics
	metricsHistory []Metrics
	closed         bool
}

// New builds a pipeline for one audio stream. Invalid configuration (a
// non-positive sample rate, a non-power-of-two window) is the only fatal
// error in the pipeline's lifetime.
func New(cfg Config) (*Pipeline, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("enhance: sample rate must be positive, got %d", cfg.SampleRate)
	}
	windowSize := cfg.WindowSize
	if windowSize == 0 {
		windowSize = DefaultWindowSize
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	sampleRate := float64(cfg.SampleRate)
	stft, err := dsp.NewSTFT(windowSize, sampleRate)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		sampleRate: sampleRate,
		settings:   DefaultSettings(),
		state:      newStreamState(windowSize/2 + 1),
		stft:       stft,
		suppressor: &noiseSuppressor{stft: stft},
		echo:       newEchoCanceller(sampleRate, log),
		eq:         newEqualizer(sampleRate, log),
		enhancer:   newVoiceEnhancer(sampleRate, log),
		analyzer:   newAnalyzer(stft, sampleRate),
		log:        log,
		sink:       cfg.Metrics,
	}

	log.WithFields(logrus.Fields{
		"sample_rate": cfg.SampleRate,
		"window_size": windowSize,
	}).Info("enhancement pipeline ready")

	return p, nil
}

// Process runs one buffer through the full stage chain and returns the
// processed buffer plus its quality metrics. The mode overlay is applied to
// the settings before processing. The input slice is never retained or
// modified.
func (p *Pipeline) Process(samples []float64, mode Mode) ([]float64, Metrics, error) {
	if p.closed {
		return nil, Metrics{}, ErrClosed
	}

	start := time.Now()

	original := make([]float64, len(samples))
	copy(original, samples)

	p.settings.applyMode(mode)
	base := p.analyzer.snapshot(original)

	buf := make([]float64, len(samples))
	copy(buf, samples)

	if p.settings.NoiseSuppressionEnabled {
		processed, applied := p.suppressor.process(buf, p.settings.NoiseSuppressionStrength, p.state)
		if applied {
			p.stats.NoiseReductionEvents++
		}
		buf = processed
	}
	if p.settings.EchoCancellationEnabled {
		processed, cancelled := p.echo.process(buf, p.settings.EchoDelayMS)
		if cancelled {
			p.stats.EchoCancellations++
		}
		buf = processed
	}
	if p.settings.AutoGainControl {
		processed, adjusted := applyAGC(buf, &p.settings, p.state)
		if adjusted {
			p.stats.GainAdjustments++
		}
		buf = processed
	}
	if p.settings.CompressorEnabled {
		buf = applyCompression(buf, &p.settings, p.state, p.sampleRate)
	}
	if p.settings.EQEnabled {
		buf = p.eq.process(buf, p.settings.EQGains)
	}
	if p.settings.VoiceEnhancement {
		buf = p.enhancer.process(buf, &p.settings)
	}

	if p.settings.AdaptiveProcessing {
		updateAdaptation(original, buf, &p.settings, p.state, p.analyzer, p.log)
	}

	metrics := p.buildMetrics(original, buf, base, time.Since(start))

	p.stats.TotalSamplesProcessed += uint64(len(samples))
	p.metricsHistory = append(p.metricsHistory, metrics)
	if len(p.metricsHistory) > metricsHistoryCap {
		p.metricsHistory = p.metricsHistory[len(p.metricsHistory)-metricsHistoryCap:]
	}

	if p.sink != nil {
		if err := p.sink.Send(metrics); err != nil {
			p.log.WithError(err).Debug("metrics sink send failed")
		}
	}

	return buf, metrics, nil
}

func (p *Pipeline) buildMetrics(original, processed []float64, base baseAnalysis, elapsed time.Duration) Metrics {
	return Metrics{
		SNR:                   base.snr,
		DynamicRange:          20 * logRatio(base.peak, base.rms),
		PeakLevel:             base.peak,
		RMSLevel:              base.rms,
		SpectralCentroid:      base.centroid,
		SpectralRolloff:       base.rolloff,
		ZeroCrossingRate:      base.zcr,
		NoiseFloor:            base.noiseFloor,
		DetectedNoiseTypes:    p.analyzer.classifyNoise(original),
		NoiseReductionApplied: noiseReduction(original, processed),
		ClarityScore:          p.analyzer.clarity(processed),
		NaturalnessScore:      p.analyzer.naturalness(original, processed),
		IntelligibilityScore:  p.analyzer.intelligibility(processed),
		LatencyMS:             float64(elapsed.Microseconds()) / 1000,
		MeasuredAt:            time.Now(),
	}
}

// UpdateSettings applies recognized fields from changes; unknown fields are
// ignored. Every numeric write is clamped to its declared bound.
func (p *Pipeline) UpdateSettings(changes map[string]any) {
	p.settings.Update(changes, p.log)
}

// Settings returns a copy of the current settings.
func (p *Pipeline) Settings() Settings {
	return p.settings
}

// Statistics returns cumulative counters plus averages over the most recent
// processed buffers.
func (p *Pipeline) Statistics() Statistics {
	stats := p.stats
	if p.state != nil {
		stats.AdaptationHistorySize = len(p.state.adaptation)
	}
	stats.MetricsCollected = len(p.metricsHistory)

	recent := p.metricsHistory
	if len(recent) > adaptWindow {
		recent = recent[len(recent)-adaptWindow:]
	}
	if len(recent) > 0 {
		for _, m := range recent {
			stats.AverageClarity += m.ClarityScore
			stats.AverageNaturalness += m.NaturalnessScore
			stats.AverageSNR += m.SNR
			stats.AverageLatencyMS += m.LatencyMS
		}
		n := float64(len(recent))
		stats.AverageClarity /= n
		stats.AverageNaturalness /= n
		stats.AverageSNR /= n
		stats.AverageLatencyMS /= n
	}
	return stats
}

// ResetAdaptation clears the adaptation history and the learned noise
// profile without touching the settings.
func (p *Pipeline) ResetAdaptation() {
	if p.closed {
		return
	}
	p.state.resetLearned()
	p.log.Info("adaptation state reset")
}

// Close marks end-of-stream and discards the stream state. Further Process
// calls return ErrClosed. A new stream needs a new Pipeline, even for the
// same logical participant.
func (p *Pipeline) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.state = nil
	p.log.Info("enhancement pipeline closed")
	return nil
}

// logRatio is log10(num/den) with epsilon floors on both sides so silence
// yields 0 instead of -Inf.
func logRatio(num, den float64) float64 {
	return math.Log10((num + 1e-8) / (den + 1e-8))
}
