// SPDX-License-Identifier: MIT
package enhance

import (
	"io"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
)

const (
	testSampleRate = 16000
	testWindowSize = 512
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestPipeline() *Pipeline {
	p, err := New(Config{
		SampleRate: testSampleRate,
		WindowSize: testWindowSize,
		Logger:     testLogger(),
	})
	if err != nil {
		panic(err)
	}
	return p
}

func sineWave(n int, sampleRate, freq, amplitude float64) []float64 {
	buf := make([]float64, n)
	for i := range buf {
		buf[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
	}
	return buf
}

// noisySine returns a sine buried in white noise at roughly the given SNR in
// dB, using a fixed seed so tests are repeatable.
func noisySine(n int, sampleRate, freq, amplitude, snrDB float64) []float64 {
	rng := rand.New(rand.NewSource(42))
	signalRMS := amplitude / math.Sqrt2
	noiseRMS := signalRMS / math.Pow(10, snrDB/20)

	buf := sineWave(n, sampleRate, freq, amplitude)
	for i := range buf {
		buf[i] += rng.NormFloat64() * noiseRMS
	}
	return buf
}
