package stori_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	stori "github.com/cgcardona/Stori-sub010"
)

func TestParseFormat(t *testing.T) {
	var tests = []struct {
		in      string
		want    stori.Format
		wantErr bool
	}{
		{"wav", stori.FormatWAV, false},
		{"WAV", stori.FormatWAV, false},
		{"aiff", stori.FormatAIFF, false},
		{"flac", stori.FormatFLAC, false},
		{"m4a", stori.FormatM4A, false},
		{"ogg", 0, true},
	}
	for _, tt := range tests {
		got, err := stori.ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseFormat(%q) got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestM4aFallsBackToWav(t *testing.T) {
	if stori.FormatM4A.Supported() {
		t.Error("m4a should not report as supported")
	}
	if got := stori.FormatM4A.FallbackFormat(); got != stori.FormatWAV {
		t.Errorf("fallback got %v, want %v", got, stori.FormatWAV)
	}
	for _, f := range []stori.Format{stori.FormatWAV, stori.FormatAIFF, stori.FormatFLAC} {
		if !f.Supported() {
			t.Errorf("%v should be supported", f)
		}
	}
}

func TestWavRoundTrip16Bit(t *testing.T) {
	src := []float32{0, 0.5, -0.5, 1, -1, 0.25}
	var buf bytes.Buffer
	if err := stori.EncodeAudio(&buf, src, stori.FormatWAV, stori.Depth16, 2, 48000); err != nil {
		t.Fatalf("encode: %v", err)
	}
	clip, err := stori.DecodeWav(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if clip.Channels != 2 || clip.SampleRate != 48000 {
		t.Fatalf("got %d channels at %d Hz, want 2 at 48000", clip.Channels, clip.SampleRate)
	}
	if len(clip.Samples) != len(src) {
		t.Fatalf("got %d samples, want %d", len(clip.Samples), len(src))
	}
	for i, want := range src {
		if math.Abs(float64(clip.Samples[i]-want)) > 1.0/32000 {
			t.Errorf("sample %d got %v, want %v", i, clip.Samples[i], want)
		}
	}
}

func TestWavRoundTripFloat(t *testing.T) {
	src := []float32{0, 0.123, -0.987, 1.5}
	var buf bytes.Buffer
	if err := stori.EncodeAudio(&buf, src, stori.FormatWAV, stori.Depth32Float, 1, 44100); err != nil {
		t.Fatalf("encode: %v", err)
	}
	clip, err := stori.DecodeWav(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if clip.Channels != 1 || clip.SampleRate != 44100 {
		t.Fatalf("got %d channels at %d Hz, want 1 at 44100", clip.Channels, clip.SampleRate)
	}
	for i, want := range src {
		if clip.Samples[i] != want {
			t.Errorf("sample %d got %v, want %v (float must be bit-exact)", i, clip.Samples[i], want)
		}
	}
}

func TestAiffHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := stori.EncodeAudio(&buf, make([]float32, 96), stori.FormatAIFF, stori.Depth24, 2, 48000); err != nil {
		t.Fatalf("encode: %v", err)
	}
	b := buf.Bytes()
	if string(b[0:4]) != "FORM" || string(b[8:12]) != "AIFF" {
		t.Errorf("header got %q %q, want FORM AIFF", b[0:4], b[8:12])
	}
	size := binary.BigEndian.Uint32(b[4:8])
	if int(size) != len(b)-8 {
		t.Errorf("FORM size got %d, want %d", size, len(b)-8)
	}
}

func TestEncodeRejectsM4a(t *testing.T) {
	var buf bytes.Buffer
	err := stori.EncodeAudio(&buf, []float32{0}, stori.FormatM4A, stori.Depth16, 1, 48000)
	if err == nil {
		t.Fatal("expected an error for the m4a encoder")
	}
}
