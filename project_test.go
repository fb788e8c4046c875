package stori_test

import (
	"testing"

	stori "github.com/cgcardona/Stori-sub010"
)

func TestCopyPreservesIdentity(t *testing.T) {
	p := stori.NewProject("Demo")
	p.Tracks = []stori.Track{{Name: "Drums", Mixer: stori.DefaultMixer()}}
	c := p.Copy()
	if c.ID != p.ID {
		t.Errorf("copy has ID %v, want %v", c.ID, p.ID)
	}
	c.Tracks[0].Name = "Bass"
	c.Tracks[0].Lanes = append(c.Tracks[0].Lanes, stori.NewAutomationLane(stori.ParamVolume, 1))
	if p.Tracks[0].Name != "Drums" || len(p.Tracks[0].Lanes) != 0 {
		t.Error("mutating the copy leaked into the original")
	}
}

func TestCopyIsDeep(t *testing.T) {
	p := stori.NewProject("Demo")
	lane := stori.NewAutomationLane(stori.ParamVolume, 0.5)
	lane.AddPoint(stori.AutomationPoint{Beat: 1, Value: 0.9})
	p.Tracks = []stori.Track{{
		Mixer:   stori.DefaultMixer(),
		Lanes:   []stori.AutomationLane{lane},
		Regions: []stori.Region{stori.NewRegion("r", 0, 4, 0)},
	}}
	c := p.Copy()
	c.Tracks[0].Lanes[0].Points[0].Value = 0.1
	c.Tracks[0].Regions[0].StartBeat = 99
	if p.Tracks[0].Lanes[0].Points[0].Value != 0.9 {
		t.Error("automation points are shared between copies")
	}
	if p.Tracks[0].Regions[0].StartBeat != 0 {
		t.Error("regions are shared between copies")
	}
}

func TestSoloTakesPrecedenceOverMute(t *testing.T) {
	var tests = []struct {
		mute, solo, anySolo bool
		want                bool
	}{
		{false, false, false, true},
		{true, false, false, false},
		{false, false, true, false},
		{false, true, true, true},
		{true, true, true, true}, // muted but soloed still plays
	}
	for _, tt := range tests {
		track := stori.Track{Mixer: stori.Mixer{Mute: tt.mute, Solo: tt.solo}}
		if got := track.Audible(tt.anySolo); got != tt.want {
			t.Errorf("Audible with mute=%v solo=%v anySolo=%v got %v, want %v", tt.mute, tt.solo, tt.anySolo, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	p := stori.NewProject("Demo")
	if err := p.Validate(); err != nil {
		t.Errorf("fresh project should validate, got %v", err)
	}
	p.Tempo = 0
	if err := p.Validate(); err == nil {
		t.Error("zero tempo should not validate")
	}
	p.Tempo = 120
	p.Tracks = []stori.Track{{Mixer: stori.Mixer{Volume: 3}}}
	if err := p.Validate(); err == nil {
		t.Error("out-of-range volume should not validate")
	}
}

func TestCycleStateValidity(t *testing.T) {
	var tests = []struct {
		cycle stori.CycleState
		want  bool
	}{
		{stori.CycleState{Enabled: true, StartBeat: 0, EndBeat: 4}, true},
		{stori.CycleState{Enabled: false, StartBeat: 0, EndBeat: 4}, false},
		{stori.CycleState{Enabled: true, StartBeat: 4, EndBeat: 4}, false},
		{stori.CycleState{Enabled: true, StartBeat: 5, EndBeat: 4}, false},
	}
	for _, tt := range tests {
		if got := tt.cycle.Valid(); got != tt.want {
			t.Errorf("Valid() for %+v got %v, want %v", tt.cycle, got, tt.want)
		}
	}
	window := stori.CycleState{Enabled: true, StartBeat: 2, EndBeat: 6}
	if !window.Contains(2) || window.Contains(6) {
		t.Error("the window should be half-open: start inside, end outside")
	}
}

func TestRegionOffsetClamping(t *testing.T) {
	clip := &stori.AudioClip{Channels: 1, SampleRate: 48000, Samples: make([]float32, 48000)}
	r := stori.NewRegion("r", 0, 4, 0.5)
	r.Clip = clip
	if got := r.ClampedOffset(); got != 0.5 {
		t.Errorf("in-range offset got %v, want 0.5", got)
	}
	r.Offset = 5
	if got := r.ClampedOffset(); got != 1 {
		t.Errorf("beyond-end offset got %v, want the clip duration 1", got)
	}
	neg := stori.NewRegion("r", 0, 4, -2)
	if neg.Offset != 0 {
		t.Errorf("negative offset got %v, want 0", neg.Offset)
	}
}
