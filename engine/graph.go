package engine

import (
	"math"

	stori "github.com/cgcardona/Stori-sub010"
	"github.com/google/uuid"
)

type (
	// Graph is the signal-path state shared verbatim by live playback and
	// offline export: one chain per track (gain, pan, 3-band EQ) followed by
	// the master chain (EQ and limiter). Export instantiating this same type
	// is what makes the two paths aurally identical.
	Graph struct {
		projectID  uuid.UUID
		sampleRate int
		tracks     []trackChain
		masterEQ   eq3
		limiter    limiter
	}

	// trackChain is the per-track node chain. Gains are written by the render
	// loop itself from evaluated automation, so no locking is needed.
	trackChain struct {
		audible bool
		volume  float32
		panL    float32
		panR    float32
		eq      eq3
	}

	// eq3 is a 3-band equalizer built from two one-pole crossovers, split at
	// 300 Hz and 3 kHz. Gains are per band, 1.0 = unity.
	eq3 struct {
		gains    [3]float32
		lpAlpha  float32
		hpAlpha  float32
		lpL, lpR float32
		hpL, hpR float32
	}

	// limiter is a peak limiter: a hard-knee, high-ratio gain computer with
	// instant attack and exponential release, keeping the master bus at or
	// under the threshold.
	limiter struct {
		threshold float32
		release   float32 // per-sample envelope release coefficient
		envelope  float32
	}
)

const (
	eqLowCrossover  = 300.0
	eqHighCrossover = 3000.0
	limiterCeiling  = 0.985
	limiterRelease  = 0.050 // seconds
)

// NewGraph builds the full graph for a project snapshot.
func NewGraph(project *stori.Project) *Graph {
	g := &Graph{
		projectID:  project.ID,
		sampleRate: project.Rate(),
		masterEQ:   newEQ3(project.Rate()),
		limiter:    newLimiter(project.Rate()),
	}
	g.tracks = make([]trackChain, len(project.Tracks))
	for i := range project.Tracks {
		g.tracks[i] = newTrackChain(project.Rate())
	}
	g.Update(project)
	return g
}

// NeedsRebuild reports whether the snapshot belongs to a different project.
// Only an identity change forces a full rebuild; in-place mutations of the
// same project are handled incrementally by Update.
func (g *Graph) NeedsRebuild(project *stori.Project) bool {
	return g.projectID != project.ID
}

// Update applies a same-project snapshot incrementally: track chains are
// added or removed to match, and static mixer values are refreshed, without
// tearing the graph down. The player owns the graph once playback has
// started, so Update runs in the audio domain between blocks; a renderer
// never observes the chain count changing mid-block.
func (g *Graph) Update(project *stori.Project) {
	for len(g.tracks) < len(project.Tracks) {
		g.tracks = append(g.tracks, newTrackChain(g.sampleRate))
	}
	g.tracks = g.tracks[:len(project.Tracks)]
	anySolo := project.AnySolo()
	for i := range project.Tracks {
		t := &project.Tracks[i]
		c := &g.tracks[i]
		c.audible = t.Audible(anySolo)
		c.setVolume(t.Mixer.Volume)
		c.setPan(t.Mixer.Pan)
		for band := 0; band < 3; band++ {
			c.eq.gains[band] = t.Mixer.EQ[band]
		}
	}
}

func newTrackChain(sampleRate int) trackChain {
	c := trackChain{audible: true, eq: newEQ3(sampleRate)}
	c.setVolume(1)
	c.setPan(0.5)
	return c
}

func (c *trackChain) setVolume(v float32) {
	if v < 0 {
		v = 0
	}
	c.volume = v
}

// setPan applies a center-unity linear pan law: 0.5 leaves both channels at
// full gain, the extremes silence the opposite channel.
func (c *trackChain) setPan(pan float32) {
	if pan < 0 {
		pan = 0
	}
	if pan > 1 {
		pan = 1
	}
	c.panL = minFloat32(2*(1-pan), 1)
	c.panR = minFloat32(2*pan, 1)
}

// process runs one stereo sample through the track chain.
func (c *trackChain) process(l, r float32) (float32, float32) {
	if !c.audible {
		return 0, 0
	}
	l, r = c.eq.process(l, r)
	return l * c.volume * c.panL, r * c.volume * c.panR
}

func newEQ3(sampleRate int) eq3 {
	dt := 1.0 / float64(sampleRate)
	lpRC := 1.0 / (2 * math.Pi * eqLowCrossover)
	hpRC := 1.0 / (2 * math.Pi * eqHighCrossover)
	return eq3{
		gains:   [3]float32{1, 1, 1},
		lpAlpha: float32(dt / (lpRC + dt)),
		hpAlpha: float32(dt / (hpRC + dt)),
	}
}

func (eq *eq3) process(l, r float32) (float32, float32) {
	eq.lpL += eq.lpAlpha * (l - eq.lpL)
	eq.lpR += eq.lpAlpha * (r - eq.lpR)
	lowL, lowR := eq.lpL, eq.lpR

	eq.hpL += eq.hpAlpha * (l - eq.hpL)
	eq.hpR += eq.hpAlpha * (r - eq.hpR)
	highL := l - eq.hpL
	highR := r - eq.hpR

	midL := l - lowL - highL
	midR := r - lowR - highR

	return lowL*eq.gains[0] + midL*eq.gains[1] + highL*eq.gains[2],
		lowR*eq.gains[0] + midR*eq.gains[1] + highR*eq.gains[2]
}

func (eq *eq3) reset() {
	eq.lpL, eq.lpR, eq.hpL, eq.hpR = 0, 0, 0, 0
}

func newLimiter(sampleRate int) limiter {
	return limiter{
		threshold: limiterCeiling,
		release:   float32(math.Exp(-1 / (limiterRelease * float64(sampleRate)))),
		envelope:  1,
	}
}

func (lim *limiter) process(l, r float32) (float32, float32) {
	peak := maxFloat32(absFloat32(l), absFloat32(r))
	gain := float32(1)
	if peak > lim.threshold {
		gain = lim.threshold / peak
	}
	if gain < lim.envelope {
		lim.envelope = gain // instant attack
	} else {
		lim.envelope = lim.envelope*lim.release + gain*(1-lim.release)
	}
	return l * lim.envelope, r * lim.envelope
}

func (lim *limiter) reset() {
	lim.envelope = 1
}

// Reset clears all filter and envelope state, as done between renders.
func (g *Graph) Reset() {
	for i := range g.tracks {
		g.tracks[i].eq.reset()
	}
	g.masterEQ.reset()
	g.limiter.reset()
}

func minFloat32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxFloat32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func absFloat32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
