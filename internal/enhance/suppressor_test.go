// SPDX-License-Identifier: MIT
package enhance

import (
	"math"
	"math/rand"
	"testing"

	"voicepipe/internal/dsp"
)

func newTestSuppressor(t *testing.T) (*noiseSuppressor, *StreamState) {
	t.Helper()
	stft, err := dsp.NewSTFT(testWindowSize, testSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	return &noiseSuppressor{stft: stft}, newStreamState(testWindowSize/2 + 1)
}

func TestSuppressorShortBufferPassThrough(t *testing.T) {
	ns, st := newTestSuppressor(t)

	in := sineWave(testWindowSize-1, testSampleRate, 440, 0.5)
	out, applied := ns.process(in, 0.7, st)

	if applied {
		t.Error("suppression should not run on a buffer shorter than the window")
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d changed: %v != %v", i, out[i], in[i])
		}
	}
}

func TestSuppressorPreservesLength(t *testing.T) {
	ns, st := newTestSuppressor(t)

	in := noisySine(4096, testSampleRate, 440, 0.5, 10)
	out, applied := ns.process(in, 0.7, st)

	if !applied {
		t.Fatal("suppression should run on a full-length buffer")
	}
	if len(out) != len(in) {
		t.Fatalf("length changed: %d != %d", len(out), len(in))
	}
	for i, x := range out {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			t.Fatalf("non-finite sample at %d: %v", i, x)
		}
	}
}

func TestSuppressorLearnsNoiseProfile(t *testing.T) {
	ns, st := newTestSuppressor(t)

	// Low-level noise throughout: no frame clears the 2x-percentile voice
	// threshold, so the leading frames refresh the profile.
	rng := rand.New(rand.NewSource(7))
	in := make([]float64, 4096)
	for i := range in {
		in[i] = rng.NormFloat64() * 0.02
	}

	if _, applied := ns.process(in, 0.7, st); !applied {
		t.Fatal("suppression should run")
	}

	var nonzero int
	for _, v := range st.noiseProfile {
		if v > 0 {
			nonzero++
		}
	}
	if nonzero == 0 {
		t.Error("noise profile was not refreshed from leading non-voice frames")
	}
}

func TestSuppressorAttenuatesStationaryNoise(t *testing.T) {
	ns, st := newTestSuppressor(t)

	rng := rand.New(rand.NewSource(11))
	in := make([]float64, 8192)
	for i := range in {
		in[i] = rng.NormFloat64() * 0.05
	}

	out, _ := ns.process(in, 0.7, st)

	// Every bin gain is strictly below one once a noise profile exists, so
	// the interior must lose energy. Edges are excluded: the first and last
	// window are only partially covered by the overlap-add.
	interior := func(xs []float64) []float64 { return xs[testWindowSize : len(xs)-testWindowSize] }
	if rmsOut, rmsIn := dsp.RMS(interior(out)), dsp.RMS(interior(in)); rmsOut >= rmsIn {
		t.Errorf("noise energy did not drop: out %v >= in %v", rmsOut, rmsIn)
	}
}

func TestWienerGain(t *testing.T) {
	tests := []struct {
		name          string
		signal, noise float64
		strength      float64
		want          float64
		tol           float64
	}{
		{"pure noise floors out", 0, 1, 0.7, minWienerGain, 0},
		{"zero everything floors out", 0, 0, 0.7, minWienerGain, 0},
		{"clean signal passes", 1, 0, 0.7, 1.0, 1e-6},
		{"equal powers at full strength", 1, 1, 1.0, 0.5, 1e-6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wienerGain(tt.signal, tt.noise, tt.strength)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("wienerGain(%v, %v, %v) = %v, want %v", tt.signal, tt.noise, tt.strength, got, tt.want)
			}
		})
	}
}

func TestWienerGainBounds(t *testing.T) {
	for _, sp := range []float64{0, 1e-6, 0.01, 1, 100} {
		for _, np := range []float64{0, 1e-6, 0.01, 1, 100} {
			for _, strength := range []float64{0, 0.3, 0.7, 1} {
				g := wienerGain(sp, np, strength)
				if g < minWienerGain || g > 1+1e-12 {
					t.Fatalf("wienerGain(%v, %v, %v) = %v out of [%v, 1]", sp, np, strength, g, minWienerGain)
				}
			}
		}
	}
}

func TestDetectVoiceActivity(t *testing.T) {
	stft, err := dsp.NewSTFT(testWindowSize, testSampleRate)
	if err != nil {
		t.Fatal(err)
	}

	// Silence for the first half, loud tone for the second.
	in := make([]float64, 4096)
	copy(in[2048:], sineWave(2048, testSampleRate, 440, 0.8))

	spec := stft.Analyze(in)
	if spec == nil {
		t.Fatal("expected a spectrum")
	}
	vad := detectVoiceActivity(spec)

	if vad[0] {
		t.Error("leading silent frame flagged as voice")
	}
	// Frame 10 covers samples 2560-3072, fully inside the tone.
	if !vad[10] {
		t.Error("loud tone frame not flagged as voice")
	}
}

func BenchmarkSuppressorProcess(b *testing.B) {
	stft, _ := dsp.NewSTFT(testWindowSize, testSampleRate)
	ns := &noiseSuppressor{stft: stft}
	st := newStreamState(testWindowSize/2 + 1)
	in := noisySine(4096, testSampleRate, 440, 0.5, 10)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ns.process(in, 0.7, st)
	}
}
