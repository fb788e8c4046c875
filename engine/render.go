package engine

import (
	stori "github.com/cgcardona/Stori-sub010"
)

type (
	// InstrumentSink receives the timed MIDI events of scheduled MIDI
	// regions. The external instrument host implements it; midi.Collector
	// and midi.Port in this repo are ready-made sinks.
	InstrumentSink interface {
		NoteOn(track, instrument int, key, velocity byte)
		NoteOff(track, instrument int, key byte)
		Controller(track, instrument int, controller, value byte)
	}

	// renderer advances a schedule through the graph block by block. Live
	// playback and offline export both drive this exact type; that shared
	// path is the parity guarantee, not a convention. All fields are
	// preallocated at start so renderBlock stays allocation-free for the
	// audio callback.
	renderer struct {
		project   *stori.Project
		graph     *Graph
		schedule  *Schedule
		sink      InstrumentSink
		frame     int // play head in schedule frames
		firstLive int // index of the first command that may still overlap the play head
		nextNote  int
		clipped   int
		// tailIteration is the iteration at which cycling was abandoned: from
		// its offset onward the schedule is a standard continuation past the
		// loop end. Negative while cycling normally.
		tailIteration int
		trackBuf      []float32
		detector      clipDetector
	}
)

// maxBlockFrames bounds the per-call work of renderBlock.
const maxBlockFrames = 2048

func newRenderer(project *stori.Project, graph *Graph, schedule *Schedule, sink InstrumentSink) *renderer {
	return &renderer{
		project:       project,
		graph:         graph,
		schedule:      schedule,
		sink:          sink,
		tailIteration: -1,
		trackBuf:      make([]float32, maxBlockFrames*2),
		detector:      newClipDetector(),
	}
}

// beatAt maps a schedule frame to the musical beat heard at that frame,
// unwinding cycle iterations back into the loop window.
func (rd *renderer) beatAt(frame int) float64 {
	s := rd.schedule
	elapsed := float64(frame) / float64(s.SampleRate)
	if !s.Plan.Active {
		return s.StartBeat + s.Conv.SecondsToBeats(elapsed)
	}
	if rd.tailIteration >= 0 {
		if tail := s.Plan.IterationOffset(rd.tailIteration); elapsed >= tail {
			return s.Plan.Start.EndBeat + s.Conv.SecondsToBeats(elapsed-tail)
		}
	}
	k := s.Plan.playingIteration(elapsed)
	return s.Plan.IterationStartBeat(k) + s.Conv.SecondsToBeats(elapsed-s.Plan.IterationOffset(k))
}

// laneOr evaluates the track's automation lane for param at the given beat,
// falling back to the static mixer value when the parameter has no lane.
// A missing lane must default, never skip the stage.
func laneOr(t *stori.Track, param stori.Parameter, beat float64, static float32) float32 {
	if lane := t.Lane(param); lane != nil {
		return lane.ValueAt(beat)
	}
	return static
}

// applyAutomation refreshes every track chain from evaluated automation at
// the block-start beat. Lookup is binary search over fixed slices, so this is
// safe on the audio callback.
func (rd *renderer) applyAutomation(beat float64) {
	for i := range rd.project.Tracks {
		t := &rd.project.Tracks[i]
		c := &rd.graph.tracks[i]
		c.setVolume(laneOr(t, stori.ParamVolume, beat, t.Mixer.Volume))
		c.setPan(laneOr(t, stori.ParamPan, beat, t.Mixer.Pan))
		for band := 0; band < 3; band++ {
			c.eq.gains[band] = laneOr(t, stori.EQBandParameter(band), beat, t.Mixer.EQ[band])
		}
	}
}

// renderBlock renders up to len(out)/2 frames of the schedule into out
// (interleaved stereo) and returns the number of frames written. It never
// allocates and never blocks.
func (rd *renderer) renderBlock(out []float32) int {
	frames := len(out) / 2
	if frames > maxBlockFrames {
		frames = maxBlockFrames
	}
	if frames == 0 {
		return 0
	}
	out = out[:frames*2]
	for i := range out {
		out[i] = 0
	}
	rd.applyAutomation(rd.beatAt(rd.frame))
	rd.emitNotes(rd.frame, rd.frame+frames)

	blockEnd := rd.frame + frames
	cmds := rd.schedule.Commands
	for rd.firstLive < len(cmds) && cmds[rd.firstLive].StartFrame+len(cmds[rd.firstLive].Samples)/2 <= rd.frame {
		rd.firstLive++
	}
	for ti := range rd.graph.tracks {
		buf := rd.trackBuf[:frames*2]
		mixed := false
		for ci := rd.firstLive; ci < len(cmds); ci++ {
			cmd := &cmds[ci]
			if cmd.StartFrame >= blockEnd {
				break
			}
			if cmd.Track != ti {
				continue
			}
			cmdFrames := len(cmd.Samples) / 2
			if cmd.StartFrame+cmdFrames <= rd.frame {
				continue
			}
			if !mixed {
				for i := range buf {
					buf[i] = 0
				}
				mixed = true
			}
			// overlap of [cmd.StartFrame, cmd.StartFrame+cmdFrames) with the block
			lo := maxInt(cmd.StartFrame, rd.frame)
			hi := cmd.StartFrame + cmdFrames
			if hi > blockEnd {
				hi = blockEnd
			}
			src := cmd.Samples[(lo-cmd.StartFrame)*2 : (hi-cmd.StartFrame)*2]
			dst := buf[(lo-rd.frame)*2:]
			for i, v := range src {
				dst[i] += v
			}
		}
		if !mixed {
			continue
		}
		chain := &rd.graph.tracks[ti]
		for i := 0; i < frames; i++ {
			l, r := chain.process(buf[i*2], buf[i*2+1])
			out[i*2] += l
			out[i*2+1] += r
		}
	}
	for i := 0; i < frames; i++ {
		l, r := rd.graph.masterEQ.process(out[i*2], out[i*2+1])
		out[i*2] = l
		out[i*2+1] = r
	}
	// detect before the limiter: the limiter hides the overshoot from the
	// output but the overshoot is still what the meter must report
	rd.clipped += rd.detector.count(out)
	for i := 0; i < frames; i++ {
		l, r := rd.graph.limiter.process(out[i*2], out[i*2+1])
		out[i*2] = l
		out[i*2+1] = r
	}
	rd.frame = blockEnd
	return frames
}

// emitNotes forwards every note command in [from, to) to the instrument
// sink, in schedule order.
func (rd *renderer) emitNotes(from, to int) {
	if rd.sink == nil {
		return
	}
	notes := rd.schedule.Notes
	for rd.nextNote < len(notes) && notes[rd.nextNote].Frame < to {
		n := &notes[rd.nextNote]
		rd.nextNote++
		if n.Frame < from {
			continue
		}
		instrument := 0
		if n.Track < len(rd.project.Tracks) {
			instrument = rd.project.Tracks[n.Track].Instrument
		}
		switch n.Kind {
		case NoteOn:
			rd.sink.NoteOn(n.Track, instrument, n.Key, n.Velocity)
		case NoteOff:
			rd.sink.NoteOff(n.Track, instrument, n.Key)
		case NoteControl:
			rd.sink.Controller(n.Track, instrument, n.Key, n.Value)
		}
	}
}

// done reports whether the play head has consumed all scheduled material. A
// cycle schedule is never done while cycling (its window is topped up before
// the head can reach it), only once cycling was abandoned for a tail.
func (rd *renderer) done() bool {
	if rd.schedule.Plan.Active && rd.tailIteration < 0 {
		return false
	}
	return rd.frame >= rd.schedule.EndFrame
}

// disableCycle cancels all iterations after keep and marks the schedule as
// continuing in a standard tail from iteration keep+1 onward.
func (rd *renderer) disableCycle(keep int) {
	rd.truncate(keep)
	rd.tailIteration = keep + 1
	rd.schedule.EndFrame = int(rd.schedule.Plan.IterationOffset(keep+1) * float64(rd.schedule.SampleRate))
}

// truncate drops all commands and notes of iterations > keep, cancelling
// not-yet-started pre-scheduled work in one step.
func (rd *renderer) truncate(keep int) {
	cmds := rd.schedule.Commands
	n := 0
	for _, c := range cmds {
		if c.Iteration <= keep {
			cmds[n] = c
			n++
		}
	}
	rd.schedule.Commands = cmds[:n]
	notes := rd.schedule.Notes
	n = 0
	for _, note := range notes {
		if note.Iteration <= keep {
			notes[n] = note
			n++
		}
	}
	rd.schedule.Notes = notes[:n]
	if rd.firstLive > len(rd.schedule.Commands) {
		rd.firstLive = len(rd.schedule.Commands)
	}
	if rd.nextNote > len(rd.schedule.Notes) {
		rd.nextNote = len(rd.schedule.Notes)
	}
}
