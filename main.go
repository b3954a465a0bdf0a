// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"voicepipe/cmd"
	"voicepipe/internal/config"
	"voicepipe/internal/enhance"
	"voicepipe/internal/telemetry"
	"voicepipe/internal/wavio"
	"voicepipe/pkg/build"
)

// main wires the phases together: parse and validate configuration, then
// run the requested command. All processing logic lives in the internal
// packages; main only connects them.
func main() {
	// ==================== STARTUP PHASE ====================

	build.Initialize()

	opts, err := cmd.ParseArgs()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if opts.Command == "" {
		// Help or version output only.
		return
	}

	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	applyCLIOverrides(cfg, opts)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)
	log.WithFields(logrus.Fields{
		"version": build.GetBuildFlags().Version,
		"commit":  build.GetBuildFlags().Commit,
	}).Debug("starting")

	// ==================== PROCESSING PHASE ====================

	if err := runEnhance(cfg, opts, log); err != nil {
		log.Fatal(err)
	}
}

// applyCLIOverrides layers explicitly-given CLI flags over the loaded
// configuration. Flags the user did not set leave the file values alone.
func applyCLIOverrides(cfg *config.Config, opts *cmd.Options) {
	if opts.Mode != "" {
		cfg.Audio.Mode = opts.Mode
	}
	if opts.Frames != 0 {
		cfg.Audio.FramesPerBuffer = opts.Frames
	}
	if opts.Telemetry {
		cfg.Telemetry.Enabled = true
	}
	if opts.TelemetryPort != 0 {
		cfg.Telemetry.Enabled = true
		cfg.Telemetry.Port = opts.TelemetryPort
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return log
}

// runEnhance processes one WAV file through the pipeline in buffer-sized
// chunks, exactly as a live caller would feed it, and writes the result.
func runEnhance(cfg *config.Config, opts *cmd.Options, log *logrus.Logger) error {
	samples, rate, err := wavio.ReadMono(opts.InputFile)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"file":        opts.InputFile,
		"samples":     len(samples),
		"sample_rate": rate,
	}).Info("loaded input")

	var sink enhance.MetricsSink
	if cfg.Telemetry.Enabled {
		srv := telemetry.NewServer(cfg.Telemetry.Port, cfg.Telemetry.SendInterval, log)
		srv.Serve()
		defer srv.Close()
		sink = srv
	}

	pipeline, err := enhance.New(enhance.Config{
		SampleRate: rate,
		Logger:     log,
		Metrics:    sink,
	})
	if err != nil {
		return err
	}
	defer pipeline.Close()

	if len(cfg.Settings) > 0 {
		pipeline.UpdateSettings(cfg.Settings)
	}
	mode := cfg.Mode()

	// Interrupt aborts mid-file; whatever is processed so far is written.
	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupted)

	out := make([]float64, 0, len(samples))
	frames := cfg.Audio.FramesPerBuffer

loop:
	for offset := 0; offset < len(samples); offset += frames {
		select {
		case <-interrupted:
			log.Warn("interrupted, writing partial output")
			break loop
		default:
		}

		end := offset + frames
		if end > len(samples) {
			end = len(samples)
		}

		processed, _, err := pipeline.Process(samples[offset:end], mode)
		if err != nil {
			return err
		}
		out = append(out, processed...)
	}

	if err := wavio.WriteMono(opts.OutputFile, out, rate); err != nil {
		return err
	}

	stats := pipeline.Statistics()
	log.WithFields(logrus.Fields{
		"file":                   opts.OutputFile,
		"samples_processed":      stats.TotalSamplesProcessed,
		"noise_reduction_events": stats.NoiseReductionEvents,
		"gain_adjustments":       stats.GainAdjustments,
		"echo_cancellations":     stats.EchoCancellations,
		"avg_clarity":            fmt.Sprintf("%.3f", stats.AverageClarity),
		"avg_naturalness":        fmt.Sprintf("%.3f", stats.AverageNaturalness),
		"avg_latency_ms":         fmt.Sprintf("%.2f", stats.AverageLatencyMS),
	}).Info("enhancement complete")

	return nil
}
