package engine

import (
	stori "github.com/cgcardona/Stori-sub010"
)

type (
	// CyclePlan decides between cycle-aware and standard scheduling for one
	// transport start, and yields the wall-clock offset of every loop
	// iteration. Iteration 0 is the remainder of the current pass and begins
	// immediately; iteration k >= 1 begins at
	//
	//	(cycleEnd - startTime) + (k-1) * cycleDuration
	//
	// seconds after the scheduling call. Pre-scheduling several iterations
	// ahead is what keeps the loop boundary gap-free: the audio callback
	// never has to reschedule synchronously at the loop point.
	CyclePlan struct {
		Active    bool
		Start     stori.CycleState
		startTime float64 // transport start in seconds
		conv      stori.TimeConv
	}

	// cycleSession is the control-domain state machine for one playing cycle.
	// Inactive -> Active (lookAhead iterations armed) -> Inactive on stop,
	// seek outside the window, or cycle disable. scheduled counts iterations
	// handed to the player so far; extension always continues in ascending
	// order.
	cycleSession struct {
		plan      CyclePlan
		scheduled int
	}
)

// lookAhead is how many loop iterations are kept scheduled past the playing
// one. Small and fixed: enough that the player never reaches unscheduled
// time, without committing unbounded work that a cancel would have to unwind.
const lookAhead = 3

// PlanCycle decides the scheduling mode for a transport start at startBeat.
// Cycle-aware scheduling requires an enabled, non-inverted window that
// contains the start position; anything else falls back to standard
// scheduling of the remaining timeline.
func PlanCycle(conv stori.TimeConv, cycle stori.CycleState, startBeat float64) CyclePlan {
	if !cycle.Valid() || !cycle.Contains(startBeat) || !conv.Playable() {
		return CyclePlan{conv: conv, startTime: conv.BeatsToSeconds(startBeat)}
	}
	return CyclePlan{
		Active:    true,
		Start:     cycle,
		startTime: conv.BeatsToSeconds(startBeat),
		conv:      conv,
	}
}

// IterationOffset returns the offset in seconds, relative to the scheduling
// call, at which iteration k begins. Iteration 0 begins immediately.
func (p CyclePlan) IterationOffset(k int) float64 {
	if k <= 0 {
		return 0
	}
	cycleStart := p.conv.BeatsToSeconds(p.Start.StartBeat)
	cycleEnd := p.conv.BeatsToSeconds(p.Start.EndBeat)
	cycleDuration := cycleEnd - cycleStart
	return (cycleEnd - p.startTime) + float64(k-1)*cycleDuration
}

// IterationStartBeat returns the beat at which iteration k starts playing:
// the transport start for iteration 0, the window start for every later one.
func (p CyclePlan) IterationStartBeat(k int) float64 {
	if k == 0 {
		return p.conv.SecondsToBeats(p.startTime)
	}
	return p.Start.StartBeat
}

func newCycleSession(plan CyclePlan) *cycleSession {
	return &cycleSession{plan: plan}
}

// pending returns how many further iterations should be scheduled right now
// to keep lookAhead iterations armed beyond the playing one. playingIteration
// is the iteration the play head is currently inside.
func (s *cycleSession) pending(playingIteration int) int {
	if s == nil || !s.plan.Active {
		return 0
	}
	want := playingIteration + 1 + lookAhead
	if want <= s.scheduled {
		return 0
	}
	return want - s.scheduled
}

// take marks n further iterations as scheduled and returns their indices.
func (s *cycleSession) take(n int) (first, last int) {
	first = s.scheduled
	s.scheduled += n
	return first, s.scheduled - 1
}

// playingIteration maps an elapsed time since the scheduling call to the
// cycle iteration containing it.
func (p CyclePlan) playingIteration(elapsed float64) int {
	if !p.Active {
		return 0
	}
	first := p.IterationOffset(1)
	if elapsed < first {
		return 0
	}
	cycleDuration := p.conv.BeatsToSeconds(p.Start.Duration())
	if cycleDuration <= 0 {
		return 0
	}
	return 1 + int((elapsed-first)/cycleDuration)
}
