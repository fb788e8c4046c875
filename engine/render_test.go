package engine

import (
	"math"
	"testing"

	stori "github.com/cgcardona/Stori-sub010"
)

func constClip(frames int, value float32) *stori.AudioClip {
	c := &stori.AudioClip{Channels: 1, SampleRate: 48000, Samples: make([]float32, frames)}
	for i := range c.Samples {
		c.Samples[i] = value
	}
	return c
}

func renderAll(p *stori.Project) []float32 {
	schedule := BuildSchedule(p, 0, stori.CycleState{})
	rd := newRenderer(p, NewGraph(p), schedule, nil)
	out := make([]float32, 0, schedule.EndFrame*2)
	block := make([]float32, maxBlockFrames*2)
	for rd.frame < schedule.EndFrame {
		remain := schedule.EndFrame - rd.frame
		if remain > maxBlockFrames {
			remain = maxBlockFrames
		}
		n := rd.renderBlock(block[:remain*2])
		out = append(out, block[:n*2]...)
	}
	return out
}

func TestAutomatedParameterMatchesStaticValue(t *testing.T) {
	// a lane holding a constant must sound identical to the same value set
	// statically on the mixer, over every parameter stage
	build := func(automated bool) *stori.Project {
		r := stori.NewRegion("r", 0, 2, 0)
		r.Clip = constClip(48000, 0.5)
		p := stori.NewProject("Test")
		track := stori.Track{Mixer: stori.DefaultMixer(), Regions: []stori.Region{r}}
		if automated {
			lane := stori.NewAutomationLane(stori.ParamVolume, 0.6)
			track.Lanes = []stori.AutomationLane{lane}
		} else {
			track.Mixer.Volume = 0.6
		}
		p.Tracks = []stori.Track{track}
		return &p
	}
	a := renderAll(build(true))
	b := renderAll(build(false))
	if len(a) != len(b) {
		t.Fatalf("lengths diverge: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d diverges: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestEQBandAutomationLeavesOtherBandsStatic(t *testing.T) {
	// automating one band must fall back to the static mixer gain for the
	// others instead of skipping the stage
	r := stori.NewRegion("r", 0, 2, 0)
	r.Clip = constClip(48000, 0.5)
	p := stori.NewProject("Test")
	track := stori.Track{Mixer: stori.DefaultMixer(), Regions: []stori.Region{r}}
	track.Mixer.EQ = [3]float32{1, 0.25, 0.25}
	lane := stori.NewAutomationLane(stori.ParamEQLow, 1)
	lane.AddPoint(stori.AutomationPoint{Beat: 0, Value: 0})
	track.Lanes = []stori.AutomationLane{lane}
	p.Tracks = []stori.Track{track}

	schedule := BuildSchedule(&p, 0, stori.CycleState{})
	rd := newRenderer(&p, NewGraph(&p), schedule, nil)
	rd.applyAutomation(0)
	chain := &rd.graph.tracks[0]
	if got := chain.eq.gains[0]; got != 0 {
		t.Errorf("automated low gain got %v, want 0", got)
	}
	if got := chain.eq.gains[1]; got != 0.25 {
		t.Errorf("static mid gain got %v, want 0.25", got)
	}
	if got := chain.eq.gains[2]; got != 0.25 {
		t.Errorf("static high gain got %v, want 0.25", got)
	}
}

func TestMutedTrackRendersSilence(t *testing.T) {
	r := stori.NewRegion("r", 0, 2, 0)
	r.Clip = constClip(48000, 0.5)
	p := stori.NewProject("Test")
	p.Tracks = []stori.Track{{Mixer: stori.DefaultMixer(), Regions: []stori.Region{r}}}
	p.Tracks[0].Mixer.Mute = true
	for i, v := range renderAll(&p) {
		if v != 0 {
			t.Fatalf("sample %d got %v, want silence from a muted track", i, v)
		}
	}
}

func TestClipDetectionCountsOverfullSamples(t *testing.T) {
	r := stori.NewRegion("r", 0, 1, 0)
	r.Clip = constClip(24000, 0.9)
	p := stori.NewProject("Test")
	// two tracks summing to 1.8 drive the master over full scale
	p.Tracks = []stori.Track{
		{Mixer: stori.DefaultMixer(), Regions: []stori.Region{r.Copy()}},
		{Mixer: stori.DefaultMixer(), Regions: []stori.Region{r.Copy()}},
	}
	schedule := BuildSchedule(&p, 0, stori.CycleState{})
	rd := newRenderer(&p, NewGraph(&p), schedule, nil)
	block := make([]float32, maxBlockFrames*2)
	for rd.frame < schedule.EndFrame {
		rd.renderBlock(block)
	}
	if rd.clipped == 0 {
		t.Error("summing two hot tracks should register clipped samples")
	}
}

func TestBeatAtUnwindsCycleIterations(t *testing.T) {
	p := stori.NewProject("Test")
	cycle := stori.CycleState{Enabled: true, StartBeat: 0, EndBeat: 4}
	schedule := BuildSchedule(&p, 2, cycle)
	rd := newRenderer(&p, NewGraph(&p), schedule, nil)
	var tests = []struct {
		frame int
		want  float64
	}{
		{0, 2},          // transport start
		{24000, 3},      // halfway through the first pass
		{48000, 0},      // wrapped to the window start
		{96000, 2},      // inside iteration 1
		{144000, 0},     // iteration 2 begins
		{24000 * 13, 3}, // deep into the loop
	}
	for _, tt := range tests {
		if got := rd.beatAt(tt.frame); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("beatAt(%d) got %v, want %v", tt.frame, got, tt.want)
		}
	}
}

func TestDisableCycleTruncatesAndAppendsTail(t *testing.T) {
	r := stori.NewRegion("r", 0, 4, 0)
	r.Clip = constClip(96000, 0.5)
	p := stori.NewProject("Test")
	p.Tracks = []stori.Track{{Mixer: stori.DefaultMixer(), Regions: []stori.Region{r}}}
	cycle := stori.CycleState{Enabled: true, StartBeat: 0, EndBeat: 4}
	schedule := BuildSchedule(&p, 0, cycle)
	rd := newRenderer(&p, NewGraph(&p), schedule, nil)
	if rd.done() {
		t.Fatal("a cycling schedule is never done")
	}

	rd.disableCycle(0)
	for _, cmd := range rd.schedule.Commands {
		if cmd.Iteration > 0 {
			t.Errorf("iteration %d survived the truncation", cmd.Iteration)
		}
	}
	// the loop end of iteration 0 is two seconds in
	if rd.schedule.EndFrame != 96000 {
		t.Errorf("EndFrame got %d, want 96000", rd.schedule.EndFrame)
	}
	if got := rd.beatAt(96000); math.Abs(got-4) > 1e-9 {
		t.Errorf("beat at the tail start got %v, want the window end 4", got)
	}
	rd.frame = 96000
	if !rd.done() {
		t.Error("the truncated schedule should finish at the tail end")
	}
}
