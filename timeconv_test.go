package stori_test

import (
	"math"
	"testing"

	stori "github.com/cgcardona/Stori-sub010"
)

func TestBeatsToSeconds(t *testing.T) {
	var tests = []struct {
		tempo float64
		beats float64
		want  float64
	}{
		{120, 0, 0},
		{120, 1, 0.5},
		{120, 4, 2},
		{60, 3, 3},
		{90, 2, 4.0 / 3.0},
		{0, 4, 0},
		{-10, 4, 0},
	}
	for _, tt := range tests {
		conv := stori.TimeConv{Tempo: tt.tempo}
		if got := conv.BeatsToSeconds(tt.beats); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("BeatsToSeconds(%v) at tempo %v got %v, want %v", tt.beats, tt.tempo, got, tt.want)
		}
	}
}

func TestSecondsBeatsRoundTrip(t *testing.T) {
	conv := stori.TimeConv{Tempo: 137.3}
	for beats := 0.0; beats <= 100000; beats += 1237.7 {
		got := conv.SecondsToBeats(conv.BeatsToSeconds(beats))
		if math.Abs(got-beats) > 1e-4 {
			t.Errorf("round trip of %v beats got %v, error %v", beats, got, math.Abs(got-beats))
		}
	}
}

func TestUnplayableTempo(t *testing.T) {
	for _, tempo := range []float64{0, -1, -120} {
		conv := stori.TimeConv{Tempo: tempo}
		if conv.Playable() {
			t.Errorf("tempo %v should not be playable", tempo)
		}
		if got := conv.SecondsToBeats(10); got != 0 {
			t.Errorf("SecondsToBeats at tempo %v got %v, want 0", tempo, got)
		}
		if got := conv.BeatsToFrames(10, 48000); got != 0 {
			t.Errorf("BeatsToFrames at tempo %v got %v, want 0", tempo, got)
		}
	}
}

func TestBeatsToFrames(t *testing.T) {
	conv := stori.TimeConv{Tempo: 120}
	if got := conv.BeatsToFrames(1, 48000); got != 24000 {
		t.Errorf("BeatsToFrames(1) got %v, want 24000", got)
	}
	if got := conv.BeatsToFrames(4, 44100); got != 88200 {
		t.Errorf("BeatsToFrames(4) at 44.1k got %v, want 88200", got)
	}
}

func TestPositionBars(t *testing.T) {
	var tests = []struct {
		beats       float64
		beatsPerBar int
		wantBar     int
		wantInBar   float64
	}{
		{0, 4, 0, 0},
		{3.5, 4, 0, 3.5},
		{4, 4, 1, 0},
		{10.25, 4, 2, 2.25},
		{6, 3, 2, 0},
	}
	for _, tt := range tests {
		p := stori.Position{Beats: tt.beats}
		if got := p.Bar(tt.beatsPerBar); got != tt.wantBar {
			t.Errorf("Bar(%v) at beat %v got %v, want %v", tt.beatsPerBar, tt.beats, got, tt.wantBar)
		}
		if got := p.BeatInBar(tt.beatsPerBar); math.Abs(got-tt.wantInBar) > 1e-12 {
			t.Errorf("BeatInBar(%v) at beat %v got %v, want %v", tt.beatsPerBar, tt.beats, got, tt.wantInBar)
		}
	}
}
