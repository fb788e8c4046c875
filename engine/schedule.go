package engine

import (
	"sort"

	stori "github.com/cgcardona/Stori-sub010"
)

type (
	// Schedule is the immutable product of a schedule build: every region of
	// the snapshot converted into timed buffer-playback and note commands,
	// ready for the audio domain to consume without any beat math. Commands
	// are ordered by start frame; within a track they keep natural timeline
	// order, and cycle iterations are strictly ascending.
	Schedule struct {
		SampleRate int
		StartBeat  float64
		Conv       stori.TimeConv
		Plan       CyclePlan
		Commands   []PlayCommand
		Notes      []NoteCommand
		EndFrame   int
	}

	// PlayCommand plays a pre-faded stereo buffer on a track's node at a
	// fixed frame offset from the schedule start.
	PlayCommand struct {
		Track      int
		StartFrame int
		Samples    []float32 // interleaved stereo, fades already applied
		Iteration  int
	}

	// NoteCommand is a timed MIDI event for the instrument assigned to a
	// track.
	NoteCommand struct {
		Track     int
		Frame     int
		Kind      NoteCommandKind
		Key       byte
		Velocity  byte
		Value     byte // controller value for NoteControl
		Iteration int
	}

	NoteCommandKind int
)

const (
	NoteOn NoteCommandKind = iota
	NoteOff
	NoteControl
)

// BuildSchedule converts a project snapshot into a schedule for playback
// starting at startBeat. With a valid cycle window containing the start, the
// first lookAhead+1 loop iterations are pre-scheduled; otherwise the whole
// remaining timeline is scheduled in one standard pass. An unplayable tempo
// yields an empty schedule: the transport stays effectively paused rather
// than failing.
func BuildSchedule(project *stori.Project, startBeat float64, cycle stori.CycleState) *Schedule {
	conv := project.TimeConv()
	s := &Schedule{
		SampleRate: project.Rate(),
		StartBeat:  startBeat,
		Conv:       conv,
		Plan:       PlanCycle(conv, cycle, startBeat),
	}
	if !conv.Playable() {
		return s
	}
	if s.Plan.Active {
		for k := 0; k <= lookAhead; k++ {
			s.AppendIteration(project, k)
		}
	} else {
		s.appendWindow(project, startBeat, project.EndBeat(), 0, 0)
		s.sortCommands()
	}
	return s
}

// AppendIteration schedules cycle iteration k on top of the existing
// schedule. Iterations must be appended in ascending order; each one assumes
// the earlier ones have already reserved their time slots.
func (s *Schedule) AppendIteration(project *stori.Project, k int) {
	if !s.Plan.Active {
		return
	}
	from := s.Plan.IterationStartBeat(k)
	s.appendWindow(project, from, s.Plan.Start.EndBeat, s.Plan.IterationOffset(k), k)
	s.sortCommands()
}

func (s *Schedule) sortCommands() {
	sort.SliceStable(s.Commands, func(i, j int) bool {
		if s.Commands[i].Iteration != s.Commands[j].Iteration {
			return s.Commands[i].Iteration < s.Commands[j].Iteration
		}
		return s.Commands[i].StartFrame < s.Commands[j].StartFrame
	})
	sort.SliceStable(s.Notes, func(i, j int) bool {
		if s.Notes[i].Iteration != s.Notes[j].Iteration {
			return s.Notes[i].Iteration < s.Notes[j].Iteration
		}
		return s.Notes[i].Frame < s.Notes[j].Frame
	})
}

// appendWindow schedules every region overlapping [fromBeat, toBeat) with the
// given base offset in seconds. The window start is the play head: regions
// already in progress are entered mid-source.
func (s *Schedule) appendWindow(project *stori.Project, fromBeat, toBeat, baseOffset float64, iteration int) {
	base := int(baseOffset*float64(s.SampleRate) + 0.5)
	for ti := range project.Tracks {
		track := &project.Tracks[ti]
		for ri := range track.Regions {
			s.appendRegion(track, ti, &track.Regions[ri], fromBeat, toBeat, base, iteration)
		}
		for ri := range track.MIDIRegions {
			s.appendMIDIRegion(ti, &track.MIDIRegions[ri], fromBeat, toBeat, base, iteration)
		}
	}
	if end := base + s.Conv.BeatsToFrames(toBeat-fromBeat, s.SampleRate); end > s.EndFrame {
		s.EndFrame = end
	}
}

func (s *Schedule) appendRegion(track *stori.Track, trackIndex int, r *stori.Region, fromBeat, toBeat float64, base, iteration int) {
	if r.DurationBeats <= 0 || r.EndBeat() <= fromBeat || r.StartBeat >= toBeat {
		return
	}
	clip := r.Clip
	if clip == nil || clip.Frames() == 0 {
		// missing source data degrades to a silently skipped region; the
		// model reports the anomaly separately
		return
	}
	// source segment available to this region, after offset clamping
	offFrames := int(r.ClampedOffset()*float64(clip.SampleRate) + 0.5)
	remaining := clip.Frames() - offFrames
	if remaining <= 0 {
		return // offset beyond the source end plays as silence
	}

	visibleStart := r.StartBeat
	if visibleStart < fromBeat {
		visibleStart = fromBeat
	}
	visibleEnd := r.EndBeat()
	if visibleEnd > toBeat {
		visibleEnd = toBeat
	}
	regionFrames := s.Conv.BeatsToFrames(visibleEnd-visibleStart, s.SampleRate)
	if regionFrames <= 0 {
		return
	}
	// how far into the region the window start lands, in output frames
	skip := s.Conv.BeatsToFrames(visibleStart-r.StartBeat, s.SampleRate)
	startFrame := base + s.Conv.BeatsToFrames(visibleStart-fromBeat, s.SampleRate)

	// Each pass over the source is faded independently, so a looped region
	// fades in and out on every repeat, exactly as a live listener hears it.
	// One pass covers the remaining source, measured in output frames: a
	// source at a foreign rate is resampled, so its loop period stretches by
	// the same ratio renderTile reads it with.
	ratio := 1.0
	if clip.SampleRate > 0 && clip.SampleRate != s.SampleRate {
		ratio = float64(clip.SampleRate) / float64(s.SampleRate)
	}
	tileFrames := int(float64(remaining)/ratio + 0.5)
	if tileFrames <= 0 {
		return
	}
	if !r.Looped {
		full := s.Conv.BeatsToFrames(r.DurationBeats, s.SampleRate)
		if tileFrames > full {
			tileFrames = full
		}
	}
	end := skip + regionFrames
	if !r.Looped && end > tileFrames {
		end = tileFrames // source exhausted; the rest of the region is silence
	}
	for tileStart := 0; tileStart < end; tileStart += tileFrames {
		tileEnd := tileStart + tileFrames
		if tileEnd > end {
			tileEnd = end
		}
		if tileEnd <= skip {
			continue
		}
		tile := renderTile(clip, offFrames, tileFrames, s.SampleRate)
		stori.ApplyFades(tile, 2, s.SampleRate, r.FadeIn, r.FadeOut)
		// trim the part of this pass that falls before the window start
		lo := 0
		if tileStart < skip {
			lo = skip - tileStart
		}
		hi := tileEnd - tileStart
		s.Commands = append(s.Commands, PlayCommand{
			Track:      trackIndex,
			StartFrame: startFrame + maxInt(tileStart-skip, 0),
			Samples:    tile[lo*2 : hi*2],
			Iteration:  iteration,
		})
	}
	if end := startFrame + regionFrames; end > s.EndFrame {
		s.EndFrame = end
	}
}

// renderTile copies frames source frames starting at offFrames into a fresh
// stereo buffer at the graph rate. Mono sources are duplicated to both
// channels; sources at a different rate are linearly resampled.
func renderTile(clip *stori.AudioClip, offFrames, frames, sampleRate int) []float32 {
	out := make([]float32, frames*2)
	srcFrames := clip.Frames()
	ratio := 1.0
	if clip.SampleRate > 0 && clip.SampleRate != sampleRate {
		ratio = float64(clip.SampleRate) / float64(sampleRate)
	}
	for i := 0; i < frames; i++ {
		pos := float64(offFrames) + float64(i)*ratio
		j := int(pos)
		if j >= srcFrames {
			break // past the source end; remainder stays silent
		}
		frac := float32(pos - float64(j))
		l, r := clipFrame(clip, j)
		if frac > 0 && j+1 < srcFrames {
			l2, r2 := clipFrame(clip, j+1)
			l += (l2 - l) * frac
			r += (r2 - r) * frac
		}
		out[i*2] = l
		out[i*2+1] = r
	}
	return out
}

func clipFrame(clip *stori.AudioClip, frame int) (l, r float32) {
	base := frame * clip.Channels
	l = clip.Samples[base]
	if clip.Channels > 1 {
		r = clip.Samples[base+1]
	} else {
		r = l
	}
	return l, r
}

func (s *Schedule) appendMIDIRegion(trackIndex int, r *stori.MIDIRegion, fromBeat, toBeat float64, base, iteration int) {
	if r.DurationBeats <= 0 || r.EndBeat() <= fromBeat || r.StartBeat >= toBeat {
		return
	}
	frameAt := func(beat float64) int {
		return base + s.Conv.BeatsToFrames(beat-fromBeat, s.SampleRate)
	}
	regionEnd := r.EndBeat()
	if regionEnd > toBeat {
		regionEnd = toBeat
	}
	for _, n := range r.Notes {
		start := r.StartBeat + n.StartBeat
		if start < fromBeat || start >= regionEnd {
			continue
		}
		end := start + n.DurationBeats
		if end > regionEnd {
			end = regionEnd
		}
		key := clampMIDI(n.Pitch)
		s.Notes = append(s.Notes,
			NoteCommand{Track: trackIndex, Frame: frameAt(start), Kind: NoteOn, Key: key, Velocity: clampMIDI(n.Velocity), Iteration: iteration},
			NoteCommand{Track: trackIndex, Frame: frameAt(end), Kind: NoteOff, Key: key, Iteration: iteration},
		)
	}
	for _, cc := range r.Controllers {
		beat := r.StartBeat + cc.Beat
		if beat < fromBeat || beat >= regionEnd {
			continue
		}
		s.Notes = append(s.Notes, NoteCommand{
			Track: trackIndex, Frame: frameAt(beat), Kind: NoteControl,
			Key: clampMIDI(cc.Controller), Value: clampMIDI(cc.Value), Iteration: iteration,
		})
	}
	if end := frameAt(regionEnd); end > s.EndFrame {
		s.EndFrame = end
	}
}

// clampMIDI clamps an 8-bit stored value into the 7-bit MIDI range.
// Out-of-range pitches are data errors, not crashes.
func clampMIDI(v uint8) byte {
	if v > 127 {
		return 127
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
