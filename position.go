package stori

import "math"

type (
	// Position is a playback position in musical time. Beats may be 0 or
	// positive during normal playback; negative values are unusual but are
	// handled without panicking.
	Position struct {
		Beats float64
	}
)

// Bar returns the zero-based bar index for the given time signature numerator.
// A numerator below 1 is treated as 1.
func (p Position) Bar(beatsPerBar int) int {
	if beatsPerBar < 1 {
		beatsPerBar = 1
	}
	return int(math.Floor(p.Beats / float64(beatsPerBar)))
}

// BeatInBar returns the beat offset within the current bar, in [0, beatsPerBar).
func (p Position) BeatInBar(beatsPerBar int) float64 {
	if beatsPerBar < 1 {
		beatsPerBar = 1
	}
	b := math.Mod(p.Beats, float64(beatsPerBar))
	if b < 0 {
		b += float64(beatsPerBar)
	}
	return b
}
