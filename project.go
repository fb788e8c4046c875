package stori

import (
	"errors"

	"github.com/google/uuid"
)

type (
	// Project is the top-level snapshot the engine schedules from. The owning
	// project manager mutates it; the engine only ever reads a consistent
	// copy, re-read on transport changes or when the project identity (ID)
	// changes.
	Project struct {
		ID         uuid.UUID
		Name       string
		Tempo      float64 // beats per minute; must be > 0 for playback
		TimeSigNum int     // beats per bar
		TimeSigDen int
		SampleRate int        `yaml:",omitempty"` // 0 means the engine default (48 kHz)
		Cycle      CycleState `yaml:",omitempty"`
		Tracks     []Track
	}

	// Track is one mixer channel: static mixer settings, automation lanes and
	// the regions placed on its timeline.
	Track struct {
		Name        string
		Instrument  int // MIDI program used for the track's MIDI regions
		Mixer       Mixer
		Lanes       []AutomationLane `yaml:",omitempty"`
		Regions     []Region         `yaml:",omitempty"`
		MIDIRegions []MIDIRegion     `yaml:",omitempty"`
	}

	// Mixer holds a track's static mixer state. Automation lanes override
	// these values over time; EQ holds per-band gains (low, mid, high) with
	// 1.0 = unity.
	Mixer struct {
		Volume float32 // 0.0 .. 2.0
		Pan    float32 // 0.0 .. 1.0, 0.5 = center
		Mute   bool
		Solo   bool
		EQ     [3]float32 `yaml:",flow"`
	}

	// CycleState is the transport's loop window. A window with End <= Start is
	// invalid and scheduling falls back to the non-cycling path.
	CycleState struct {
		Enabled   bool
		StartBeat float64
		EndBeat   float64
	}
)

// DefaultMixer returns mixer settings at unity: full volume, centered pan,
// flat EQ.
func DefaultMixer() Mixer {
	return Mixer{Volume: 1.0, Pan: 0.5, EQ: [3]float32{1, 1, 1}}
}

// NewProject returns an empty project with a fresh identity and engine
// defaults.
func NewProject(name string) Project {
	return Project{
		ID:         uuid.New(),
		Name:       name,
		Tempo:      120,
		TimeSigNum: 4,
		TimeSigDen: 4,
		SampleRate: SampleRate,
	}
}

// TimeConv returns the beat/second converter for the project tempo.
func (p *Project) TimeConv() TimeConv {
	return TimeConv{Tempo: p.Tempo}
}

// Rate returns the project sample rate, defaulting to the engine rate.
func (p *Project) Rate() int {
	if p.SampleRate > 0 {
		return p.SampleRate
	}
	return SampleRate
}

// EndBeat returns the end of the last region on any track, in beats.
func (p *Project) EndBeat() float64 {
	var end float64
	for _, t := range p.Tracks {
		for _, r := range t.Regions {
			if e := r.EndBeat(); e > end {
				end = e
			}
		}
		for _, r := range t.MIDIRegions {
			if e := r.EndBeat(); e > end {
				end = e
			}
		}
	}
	return end
}

// AnySolo reports whether any track has its solo flag set. When true, only
// soloed tracks are audible; solo takes precedence over mute.
func (p *Project) AnySolo() bool {
	for _, t := range p.Tracks {
		if t.Mixer.Solo {
			return true
		}
	}
	return false
}

// Audible reports whether the track produces output given the project-wide
// solo state.
func (t *Track) Audible(anySolo bool) bool {
	if anySolo {
		return t.Mixer.Solo
	}
	return !t.Mixer.Mute
}

// Lane returns the track's automation lane for the given parameter, or nil if
// the parameter is not automated on this track.
func (t *Track) Lane(param Parameter) *AutomationLane {
	for i := range t.Lanes {
		if t.Lanes[i].Parameter == param {
			return &t.Lanes[i]
		}
	}
	return nil
}

// Copy makes a deep copy of a Track.
func (t *Track) Copy() Track {
	lanes := make([]AutomationLane, len(t.Lanes))
	for i, l := range t.Lanes {
		lanes[i] = l.Copy()
	}
	regions := make([]Region, len(t.Regions))
	for i, r := range t.Regions {
		regions[i] = r.Copy()
	}
	midiRegions := make([]MIDIRegion, len(t.MIDIRegions))
	for i, r := range t.MIDIRegions {
		midiRegions[i] = r.Copy()
	}
	return Track{
		Name:        t.Name,
		Instrument:  t.Instrument,
		Mixer:       t.Mixer,
		Lanes:       lanes,
		Regions:     regions,
		MIDIRegions: midiRegions,
	}
}

// Copy makes a deep copy of a Project. The identity is preserved: a copy is
// the same project, not a new one.
func (p *Project) Copy() Project {
	tracks := make([]Track, len(p.Tracks))
	for i, t := range p.Tracks {
		tracks[i] = t.Copy()
	}
	return Project{
		ID:         p.ID,
		Name:       p.Name,
		Tempo:      p.Tempo,
		TimeSigNum: p.TimeSigNum,
		TimeSigDen: p.TimeSigDen,
		SampleRate: p.SampleRate,
		Cycle:      p.Cycle,
		Tracks:     tracks,
	}
}

// Validate checks that the project is playable: positive tempo, sane time
// signature, mixer values within range.
func (p *Project) Validate() error {
	if p.Tempo <= 0 {
		return errors.New("tempo should be > 0")
	}
	if p.TimeSigNum < 1 {
		return errors.New("time signature numerator should be >= 1")
	}
	for i := range p.Tracks {
		m := &p.Tracks[i].Mixer
		if m.Volume < 0 || m.Volume > 2 {
			return errors.New("track volume should be within 0.0 .. 2.0")
		}
		if m.Pan < 0 || m.Pan > 1 {
			return errors.New("track pan should be within 0.0 .. 1.0")
		}
	}
	return nil
}

// Valid reports whether the cycle window can drive cycle-aware scheduling: it
// must be enabled and have positive length.
func (c CycleState) Valid() bool {
	return c.Enabled && c.EndBeat > c.StartBeat
}

// Contains reports whether the beat lies inside the half-open window
// [StartBeat, EndBeat).
func (c CycleState) Contains(beat float64) bool {
	return beat >= c.StartBeat && beat < c.EndBeat
}

// Duration returns the window length in beats.
func (c CycleState) Duration() float64 {
	return c.EndBeat - c.StartBeat
}
