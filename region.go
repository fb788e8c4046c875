package stori

type (
	// Region is an audio region on a track's timeline. Offset is how far into
	// the source clip playback starts; it is clamped to >= 0 on construction
	// but may still exceed the clip length, which scheduling clamps again.
	// DurationBeats may be 0, yielding a degenerate silent region.
	Region struct {
		Name          string
		StartBeat     float64
		DurationBeats float64
		Offset        float64 // seconds into the source clip
		FadeIn        float64 // seconds
		FadeOut       float64 // seconds
		Looped        bool

		// Clip holds the decoded source samples. It is not part of the
		// persisted snapshot; the project manager attaches it after decoding
		// the file named by File. A nil clip schedules as silence.
		Clip *AudioClip `yaml:"-" json:"-"`
		File string     `yaml:",omitempty"`
	}

	// MIDIRegion is a region of MIDI notes and controller changes. Pitches
	// are stored as full 8-bit values; anything above 127 is out of MIDI
	// range and is clamped at scheduling time rather than rejected.
	MIDIRegion struct {
		Name          string
		StartBeat     float64
		DurationBeats float64
		Notes         []MIDINote        `yaml:",omitempty"`
		Controllers   []ControllerEvent `yaml:",omitempty"`
	}

	// MIDINote is one note within a MIDI region. Beats are relative to the
	// region start.
	MIDINote struct {
		Pitch         uint8
		Velocity      uint8
		StartBeat     float64
		DurationBeats float64
	}

	// ControllerEvent is a beat-stamped MIDI controller change, relative to
	// the region start.
	ControllerEvent struct {
		Controller uint8
		Beat       float64
		Value      uint8
	}
)

// NewRegion constructs an audio region, clamping a negative source offset to
// zero.
func NewRegion(name string, startBeat, durationBeats, offset float64) Region {
	if offset < 0 {
		offset = 0
	}
	return Region{Name: name, StartBeat: startBeat, DurationBeats: durationBeats, Offset: offset}
}

// EndBeat returns StartBeat + DurationBeats.
func (r *Region) EndBeat() float64 {
	return r.StartBeat + r.DurationBeats
}

// ClampedOffset returns the source offset clamped into the clip's duration.
// An offset beyond the end of the source plays as silence, so the clamped
// value points at the clip end (zero remaining frames) rather than wrapping.
func (r *Region) ClampedOffset() float64 {
	off := r.Offset
	if off < 0 {
		off = 0
	}
	if d := r.Clip.Duration(); off > d {
		off = d
	}
	return off
}

// Copy makes a deep copy of a Region. The clip is shared, not duplicated:
// clips are immutable source data.
func (r *Region) Copy() Region {
	c := *r
	return c
}

// EndBeat returns StartBeat + DurationBeats.
func (r *MIDIRegion) EndBeat() float64 {
	return r.StartBeat + r.DurationBeats
}

// Copy makes a deep copy of a MIDIRegion.
func (r *MIDIRegion) Copy() MIDIRegion {
	notes := make([]MIDINote, len(r.Notes))
	copy(notes, r.Notes)
	ccs := make([]ControllerEvent, len(r.Controllers))
	copy(ccs, r.Controllers)
	return MIDIRegion{
		Name:          r.Name,
		StartBeat:     r.StartBeat,
		DurationBeats: r.DurationBeats,
		Notes:         notes,
		Controllers:   ccs,
	}
}
