package stori_test

import (
	"math"
	"testing"

	stori "github.com/cgcardona/Stori-sub010"
)

func TestFadeSamples(t *testing.T) {
	var tests = []struct {
		fade       float64
		sampleRate int
		want       int
	}{
		{0.1, 48000, 4800},
		{0, 48000, 0},
		{-1, 48000, 0},
		{0.5, 44100, 22050},
		{0.0001, 48000, 5},
	}
	for _, tt := range tests {
		if got := stori.FadeSamples(tt.fade, tt.sampleRate); got != tt.want {
			t.Errorf("FadeSamples(%v, %v) got %v, want %v", tt.fade, tt.sampleRate, got, tt.want)
		}
	}
}

func ones(n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = 1
	}
	return s
}

func TestApplyFadeIn(t *testing.T) {
	samples := ones(48000)
	stori.ApplyFades(samples, 1, 48000, 0.1, 0)
	if samples[0] != 0 {
		t.Errorf("first sample got %v, want 0", samples[0])
	}
	if got := samples[2400]; math.Abs(float64(got)-0.5) > 1e-6 {
		t.Errorf("sample at half the fade got %v, want 0.5", got)
	}
	if samples[4800] != 1 {
		t.Errorf("first sample past the fade got %v, want 1", samples[4800])
	}
	if samples[47999] != 1 {
		t.Errorf("last sample got %v, want 1", samples[47999])
	}
}

func TestApplyFadeOut(t *testing.T) {
	samples := ones(48000)
	stori.ApplyFades(samples, 1, 48000, 0, 0.1)
	if samples[0] != 1 {
		t.Errorf("first sample got %v, want 1", samples[0])
	}
	start := 48000 - 4800
	if samples[start-1] != 1 {
		t.Errorf("last sample before the fade got %v, want 1", samples[start-1])
	}
	if got := samples[start+2400]; math.Abs(float64(got)-0.5) > 1e-6 {
		t.Errorf("sample at half the fade got %v, want 0.5", got)
	}
	if got := samples[47999]; got > 0.001 {
		t.Errorf("last sample got %v, want near 0", got)
	}
}

func TestFadesClampToHalfRegion(t *testing.T) {
	// the requested fades together exceed the region, so both clamp to half
	samples := ones(100)
	stori.ApplyFades(samples, 1, 48000, 0.002, 0.002)
	if samples[0] != 0 {
		t.Errorf("first sample got %v, want 0", samples[0])
	}
	if got := samples[49]; got != float32(49)/50 {
		t.Errorf("last fade-in sample got %v, want %v", got, float32(49)/50)
	}
	if got := samples[50]; got != 1 {
		t.Errorf("first fade-out sample got %v, want 1", got)
	}
	if got := samples[99]; math.Abs(float64(got)-0.02) > 1e-6 {
		t.Errorf("last sample got %v, want 0.02", got)
	}
}

func TestStereoFadesRampPerFrame(t *testing.T) {
	samples := ones(2 * 4800)
	stori.ApplyFades(samples, 2, 48000, 0.05, 0)
	for frame := 0; frame < 2400; frame += 97 {
		l, r := samples[frame*2], samples[frame*2+1]
		if l != r {
			t.Errorf("frame %d channels diverge: %v vs %v", frame, l, r)
		}
		want := float32(frame) / 2400
		if math.Abs(float64(l-want)) > 1e-6 {
			t.Errorf("frame %d got gain %v, want %v", frame, l, want)
		}
	}
}
