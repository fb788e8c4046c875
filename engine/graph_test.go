package engine

import (
	"testing"

	stori "github.com/cgcardona/Stori-sub010"
)

func twoTrackProject() *stori.Project {
	p := stori.NewProject("Test")
	p.Tracks = []stori.Track{
		{Name: "A", Mixer: stori.DefaultMixer()},
		{Name: "B", Mixer: stori.DefaultMixer()},
	}
	return &p
}

func TestNeedsRebuildComparesIdentityOnly(t *testing.T) {
	p := twoTrackProject()
	g := NewGraph(p)

	edited := p.Copy()
	edited.Tracks[0].Mixer.Volume = 0.3
	edited.Tracks = edited.Tracks[:1] // delete a track
	if g.NeedsRebuild(&edited) {
		t.Error("edits to the same project should update incrementally, not rebuild")
	}

	other := stori.NewProject("Other")
	if !g.NeedsRebuild(&other) {
		t.Error("a different project identity should force a rebuild")
	}
}

func TestUpdateAppliesTrackChanges(t *testing.T) {
	p := twoTrackProject()
	g := NewGraph(p)

	edited := p.Copy()
	edited.Tracks[0].Mixer.Volume = 0.25
	edited.Tracks[1].Mixer.Mute = true
	g.Update(&edited)

	if got := g.tracks[0].volume; got != 0.25 {
		t.Errorf("track 0 volume got %v, want 0.25", got)
	}
	if g.tracks[1].audible {
		t.Error("track 1 should be inaudible after muting")
	}
}

func TestUpdateResizesOnTrackAddAndDelete(t *testing.T) {
	p := twoTrackProject()
	g := NewGraph(p)

	grown := p.Copy()
	grown.Tracks = append(grown.Tracks, stori.Track{Name: "C", Mixer: stori.DefaultMixer()})
	g.Update(&grown)
	if len(g.tracks) != 3 {
		t.Fatalf("got %d chains after adding a track, want 3", len(g.tracks))
	}

	shrunk := p.Copy()
	shrunk.Tracks = shrunk.Tracks[:1]
	g.Update(&shrunk)
	if len(g.tracks) != 1 {
		t.Fatalf("got %d chains after deleting a track, want 1", len(g.tracks))
	}
}

func TestSoloUpdatesAudibility(t *testing.T) {
	p := twoTrackProject()
	g := NewGraph(p)
	if !g.tracks[0].audible || !g.tracks[1].audible {
		t.Fatal("both tracks should start audible")
	}

	edited := p.Copy()
	edited.Tracks[1].Mixer.Solo = true
	g.Update(&edited)
	if g.tracks[0].audible {
		t.Error("an unsoloed track should be inaudible while another is soloed")
	}
	if !g.tracks[1].audible {
		t.Error("the soloed track should be audible")
	}
}

func TestPanLawIsCenterUnity(t *testing.T) {
	p := twoTrackProject()
	g := NewGraph(p)
	c := &g.tracks[0]

	c.setPan(0.5)
	if c.panL != 1 || c.panR != 1 {
		t.Errorf("center pan got (%v, %v), want unity on both sides", c.panL, c.panR)
	}
	c.setPan(0)
	if c.panL != 1 || c.panR != 0 {
		t.Errorf("hard left got (%v, %v), want (1, 0)", c.panL, c.panR)
	}
	c.setPan(1)
	if c.panL != 0 || c.panR != 1 {
		t.Errorf("hard right got (%v, %v), want (0, 1)", c.panL, c.panR)
	}
}

func TestLimiterHoldsCeiling(t *testing.T) {
	lim := newLimiter(48000)
	var peak float32
	for i := 0; i < 4800; i++ {
		l, _ := lim.process(1.5, 1.5)
		if a := absFloat32(l); a > peak {
			peak = a
		}
	}
	if peak > limiterCeiling+1e-4 {
		t.Errorf("limited peak got %v, want at most %v", peak, limiterCeiling)
	}
}

func TestPlayerKeepsGraphAcrossRestarts(t *testing.T) {
	broker := NewBroker()
	player := NewPlayer(broker)
	p := twoTrackProject()
	broker.ToPlayer <- StartMsg{Project: p, Schedule: BuildSchedule(p, 0, stori.CycleState{})}
	buffer := make([]float32, 64)
	player.Process(buffer)
	g := player.graph
	if g == nil || len(g.tracks) != 2 {
		t.Fatal("the player should have built a graph for the snapshot")
	}

	edited := p.Copy()
	edited.Tracks = edited.Tracks[:1]
	broker.ToPlayer <- StartMsg{Project: &edited, Schedule: BuildSchedule(&edited, 0, stori.CycleState{})}
	player.Process(buffer)
	if player.graph != g {
		t.Error("a same-project restart should update the graph in place")
	}
	if len(player.graph.tracks) != 1 {
		t.Errorf("got %d chains after the track delete, want 1", len(player.graph.tracks))
	}

	other := stori.NewProject("Other")
	broker.ToPlayer <- StartMsg{Project: &other, Schedule: BuildSchedule(&other, 0, stori.CycleState{})}
	player.Process(buffer)
	if player.graph == g {
		t.Error("a different project identity should rebuild the graph")
	}
}
