package stori

import "github.com/viterin/vek/vek32"

// FadeSamples converts a fade duration in seconds to a whole sample count.
func FadeSamples(fade float64, sampleRate int) int {
	if fade <= 0 {
		return 0
	}
	return int(fade*float64(sampleRate) + 0.5)
}

// ApplyFades applies linear fade-in and fade-out gain ramps in place to
// interleaved samples. The same ramp is applied to every channel of a frame.
// When the two fades together would exceed the region length, both are
// clamped to half the region so they never overlap. Callers fade each loop
// iteration independently; a looped region hands a fresh copy of its source
// to every scheduled iteration.
//
// This runs in the control domain at schedule-build time, never on the audio
// callback.
func ApplyFades(samples []float32, channels, sampleRate int, fadeIn, fadeOut float64) {
	if channels <= 0 || len(samples) == 0 {
		return
	}
	frames := len(samples) / channels
	fadeInSamples := FadeSamples(fadeIn, sampleRate)
	fadeOutSamples := FadeSamples(fadeOut, sampleRate)
	if fadeInSamples+fadeOutSamples > frames {
		fadeInSamples = frames / 2
		fadeOutSamples = frames / 2
	}
	if fadeInSamples > 0 {
		ramp := fadeRamp(fadeInSamples, channels, false)
		vek32.Mul_Inplace(samples[:fadeInSamples*channels], ramp)
	}
	if fadeOutSamples > 0 {
		ramp := fadeRamp(fadeOutSamples, channels, true)
		vek32.Mul_Inplace(samples[(frames-fadeOutSamples)*channels:], ramp)
	}
}

// fadeRamp builds a per-sample gain ramp over n frames, each frame gain
// repeated for every interleaved channel. out = false ramps 0 -> 1, out =
// true ramps 1 -> 0.
func fadeRamp(n, channels int, out bool) []float32 {
	ramp := make([]float32, n*channels)
	for i := 0; i < n; i++ {
		g := float32(i) / float32(n)
		if out {
			g = 1 - g
		}
		for c := 0; c < channels; c++ {
			ramp[i*channels+c] = g
		}
	}
	return ramp
}
