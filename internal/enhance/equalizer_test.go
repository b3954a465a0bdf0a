// SPDX-License-Identifier: MIT
package enhance

import (
	"math"
	"testing"
)

func TestEqualizerFlatIsIdentity(t *testing.T) {
	eq := newEqualizer(testSampleRate, testLogger())

	in := noisySine(4096, testSampleRate, 440, 0.5, 10)
	out := eq.process(in, EQGains{})

	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("flat EQ changed sample %d: %v != %v", i, out[i], in[i])
		}
	}
}

func TestEqualizerDeadband(t *testing.T) {
	eq := newEqualizer(testSampleRate, testLogger())

	in := sineWave(2048, testSampleRate, 1000, 0.5)
	out := eq.process(in, EQGains{Low: 0.05, Mid: -0.09, High: 0.1})

	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("in-deadband gains changed sample %d", i)
		}
	}
}

func TestEqualizerActiveBandChangesSignal(t *testing.T) {
	eq := newEqualizer(testSampleRate, testLogger())

	in := noisySine(4096, testSampleRate, 1500, 0.5, 10)
	out := eq.process(in, EQGains{Mid: 3.0})

	if len(out) != len(in) {
		t.Fatalf("length changed: %d != %d", len(out), len(in))
	}
	var changed bool
	for i := range in {
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			t.Fatalf("non-finite sample at %d", i)
		}
		if out[i] != in[i] {
			changed = true
		}
	}
	if !changed {
		t.Error("active EQ band left the signal untouched")
	}
}

func TestEqualizerBandCount(t *testing.T) {
	eq := newEqualizer(testSampleRate, testLogger())
	if len(eq.bands) != 5 {
		t.Fatalf("band count = %d, want 5", len(eq.bands))
	}
	for _, band := range eq.bands {
		if band.filter.Identity() {
			t.Errorf("band %s degraded to identity at %v Hz", band.name, testSampleRate)
		}
	}
}

func TestEqualizerLowRateDegradesHighBand(t *testing.T) {
	// At 8 kHz the 8000 Hz - Nyquist band has no room and must degrade to a
	// logged pass-through instead of producing an unstable filter.
	eq := newEqualizer(8000, testLogger())

	var high *eqBand
	for i := range eq.bands {
		if eq.bands[i].name == "high" {
			high = &eq.bands[i]
		}
	}
	if high == nil {
		t.Fatal("high band missing")
	}
	if !high.filter.Identity() {
		t.Error("high band should be identity at 8 kHz sample rate")
	}

	// Processing with the degraded band must still work.
	in := sineWave(2048, 8000, 440, 0.5)
	out := eq.process(in, EQGains{High: 6.0})
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("degraded band changed sample %d", i)
		}
	}
}

func TestEQGainsForBand(t *testing.T) {
	g := EQGains{Low: 1, MidLow: 2, Mid: 3, MidHigh: 4, High: 5}
	tests := []struct {
		name string
		want float64
	}{
		{"low", 1},
		{"mid_low", 2},
		{"mid", 3},
		{"mid_high", 4},
		{"high", 5},
		{"bogus", 0},
	}
	for _, tt := range tests {
		if got := g.forBand(tt.name); got != tt.want {
			t.Errorf("forBand(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func BenchmarkEqualizer(b *testing.B) {
	eq := newEqualizer(testSampleRate, testLogger())
	in := noisySine(4096, testSampleRate, 440, 0.5, 10)
	gains := DefaultSettings().EQGains

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		eq.process(in, gains)
	}
}

// The blend keeps buffers finite even at extreme gains.
func TestEqualizerExtremeGains(t *testing.T) {
	eq := newEqualizer(testSampleRate, testLogger())

	in := noisySine(2048, testSampleRate, 440, 0.5, 10)
	out := eq.process(in, EQGains{Low: 24, MidLow: -24, Mid: 24, MidHigh: -24, High: 24})

	for i, x := range out {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			t.Fatalf("non-finite sample at %d: %v", i, x)
		}
	}
}
