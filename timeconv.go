package stori

type (
	// TimeConv converts between musical beats and wall-clock seconds for a
	// fixed tempo. The zero value (tempo 0) is unplayable: all conversions
	// return 0 rather than dividing by zero, and Playable reports false so
	// callers can treat the transport as paused.
	TimeConv struct {
		Tempo float64 // beats per minute
	}
)

// Playable reports whether the tempo allows meaningful playback.
func (tc TimeConv) Playable() bool {
	return tc.Tempo > 0
}

// SecondsPerBeat returns 60/tempo, or 0 for an unplayable tempo.
func (tc TimeConv) SecondsPerBeat() float64 {
	if !tc.Playable() {
		return 0
	}
	return 60.0 / tc.Tempo
}

// BeatsToSeconds converts a beat position or duration to seconds.
func (tc TimeConv) BeatsToSeconds(beats float64) float64 {
	return beats * tc.SecondsPerBeat()
}

// SecondsToBeats is the inverse of BeatsToSeconds. For an unplayable tempo it
// returns 0, matching BeatsToSeconds.
func (tc TimeConv) SecondsToBeats(seconds float64) float64 {
	spb := tc.SecondsPerBeat()
	if spb == 0 {
		return 0
	}
	return seconds / spb
}

// BeatsToFrames converts a beat duration to a whole number of sample frames at
// the given sample rate.
func (tc TimeConv) BeatsToFrames(beats float64, sampleRate int) int {
	return int(tc.BeatsToSeconds(beats)*float64(sampleRate) + 0.5)
}
