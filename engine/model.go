package engine

import (
	"fmt"

	stori "github.com/cgcardona/Stori-sub010"
)

type (
	// Model is the control-domain half of the engine: it owns the project,
	// converts edits and transport requests into immutable schedules, and
	// hands them to the audio domain through the broker. The audio domain
	// never sees a mutable project.
	//
	// A Model belongs to one goroutine. All methods, including
	// ProcessMessages, must be called from the goroutine that owns it; the
	// audio domain talks back exclusively through the broker channels.
	Model struct {
		broker  *Broker
		project *stori.Project

		playing   bool
		position  stori.Position
		frame     int
		session   *cycleSession
		clipTotal int
		sink      InstrumentSink

		recording *recording
	}

	// recording accumulates the master output while the record tap is
	// installed. The tap hands pooled buffers over the broker, so the
	// samples are only ever appended on the model side.
	recording struct {
		samples []float32
	}
)

func NewModel(broker *Broker) *Model {
	blank := stori.NewProject("Untitled")
	return &Model{broker: broker, project: &blank}
}

func (m *Model) Project() *stori.Project { return m.project }
func (m *Model) Playing() bool          { return m.playing }
func (m *Model) Position() stori.Position {
	return m.position
}

// SetProject installs a project snapshot. A different project identity makes
// the player tear its routing graph down and rebuild it; edits to the current
// project are applied incrementally in the audio domain, so the graph keeps
// its filter state across parameter changes, mute and solo flips, and track
// add or delete.
func (m *Model) SetProject(project *stori.Project) {
	snapshot := project.Copy()
	replaced := snapshot.ID != m.project.ID
	m.project = &snapshot
	if replaced {
		TrySend(m.broker.ToUI, Event(ProjectReplacedMsg{}))
		TrySend(m.broker.ToUI, Event(GraphRebuiltMsg{}))
	}
	if m.playing {
		m.startAt(m.position.Beats)
	}
}

// Play starts playback at the given beat. With a valid cycle window
// containing the start, loop iterations are pre-scheduled; otherwise the
// remaining timeline plays once.
func (m *Model) Play(atBeat float64) {
	m.startAt(atBeat)
}

func (m *Model) startAt(beat float64) {
	for ti := range m.project.Tracks {
		for ri := range m.project.Tracks[ti].Regions {
			r := &m.project.Tracks[ti].Regions[ri]
			if r.Clip == nil && r.DurationBeats > 0 {
				TrySend(m.broker.ToUI, Event(WarningMsg{Text: fmt.Sprintf("region %q has no audio data and plays as silence", r.Name)}))
			}
		}
	}
	schedule := BuildSchedule(m.project, beat, m.project.Cycle)
	m.session = newCycleSession(schedule.Plan)
	if schedule.Plan.Active {
		m.session.take(lookAhead + 1)
	}
	m.playing = true
	m.position = stori.Position{Beats: beat}
	m.frame = 0
	m.broker.ToPlayer <- StartMsg{
		Project:  m.project,
		Schedule: schedule,
		Sink:     m.sink,
	}
}

// Stop halts the transport. Every scheduled, not-yet-triggered command is
// discarded in the audio domain in one step.
func (m *Model) Stop() {
	m.playing = false
	m.session = nil
	m.broker.ToPlayer <- StopMsg{}
}

// Seek moves the play head. While playing this is a stop and restart at the
// new position; the cycle decision is re-evaluated against the new beat.
func (m *Model) Seek(toBeat float64) {
	m.position = stori.Position{Beats: toBeat}
	if m.playing {
		m.broker.ToPlayer <- StopMsg{}
		m.startAt(toBeat)
	}
}

// SetCycle replaces the cycle state. Disabling a cycle mid-playback cancels
// the not-yet-reached loop iterations atomically and lets the current pass
// run straight through into the rest of the timeline. Other mid-playback
// cycle changes restart scheduling from the play head.
func (m *Model) SetCycle(cycle stori.CycleState) {
	prev := m.project.Cycle
	m.project.Cycle = cycle
	if !m.playing {
		return
	}
	if prev.Enabled && !cycle.Enabled && m.session != nil && m.session.plan.Active {
		m.disableCycle()
		return
	}
	m.startAt(m.position.Beats)
}

func (m *Model) disableCycle() {
	plan := m.session.plan
	keep := plan.playingIteration(float64(m.frame) / float64(m.project.Rate()))
	m.broker.ToPlayer <- TruncateMsg{Keep: keep}

	tail := &Schedule{
		SampleRate: m.project.Rate(),
		StartBeat:  plan.Start.EndBeat,
		Conv:       plan.conv,
		Plan:       plan,
	}
	tail.appendWindow(m.project, plan.Start.EndBeat, m.project.EndBeat(), plan.IterationOffset(keep+1), keep+1)
	tail.sortCommands()
	m.broker.ToPlayer <- AppendMsg{Commands: tail.Commands, Notes: tail.Notes, EndFrame: tail.EndFrame}
	m.session = nil
}

// Record arms audio capture and starts playback at the current position. The
// capture tap is installed before the transport starts, so the recording
// includes the very first buffer period. The tap copies each rendered buffer
// into a pooled buffer and hands it over the broker; appending to the take
// happens on the model side, never on the audio thread.
func (m *Model) Record() {
	m.recording = &recording{}
	broker := m.broker
	m.broker.ToPlayer <- TapMsg{Tap: func(buffer []float32) {
		buf := broker.GetBuffer()
		*buf = append(*buf, buffer...)
		if !TrySend(broker.ToModel, MsgToModel{Data: buf}) {
			broker.PutBuffer(buf)
		}
	}}
	m.startAt(m.position.Beats)
}

// StopRecording stops the transport and returns the captured master output
// as a clip. Nil without a prior Record.
func (m *Model) StopRecording() *stori.AudioClip {
	m.broker.ToPlayer <- TapMsg{Tap: nil}
	m.Stop()
	m.ProcessMessages() // collect buffers still in flight
	rec := m.recording
	m.recording = nil
	if rec == nil {
		return nil
	}
	return &stori.AudioClip{
		Name:       "Recording",
		Channels:   2,
		SampleRate: m.project.Rate(),
		Samples:    rec.samples,
	}
}

// SetSink routes scheduled note commands to an instrument sink, typically a
// MIDI collector or port sender. Nil routes them nowhere. Takes effect on
// the next transport start.
func (m *Model) SetSink(sink InstrumentSink) {
	m.sink = sink
}

// ProcessMessages drains the status channel, advancing the play head,
// topping up cycle iterations and surfacing clip detections. Call it from
// the owning control loop; it never blocks.
func (m *Model) ProcessMessages() {
loop:
	for {
		select {
		case msg := <-m.broker.ToModel:
			m.handleStatus(msg)
		default:
			break loop
		}
	}
}

func (m *Model) handleStatus(msg MsgToModel) {
	if buf, ok := msg.Data.(*[]float32); ok {
		if m.recording != nil {
			m.recording.samples = append(m.recording.samples, *buf...)
		}
		m.broker.PutBuffer(buf)
	}
	if !msg.HasStatus {
		return
	}
	m.position = msg.Position
	m.frame = msg.Frame
	if m.playing && !msg.Playing {
		m.playing = false
	}
	if msg.ClipCount > m.clipTotal {
		TrySend(m.broker.ToUI, Event(ClipDetectedMsg{Count: msg.ClipCount - m.clipTotal}))
		m.clipTotal = msg.ClipCount
	}
	m.topUpCycle()
}

// topUpCycle keeps lookAhead loop iterations armed beyond the playing one.
// The top-up iterations are built into a fresh schedule sharing only the
// plan, so the schedule already handed to the audio domain is never touched
// from this side.
func (m *Model) topUpCycle() {
	if !m.playing || m.session == nil || !m.session.plan.Active {
		return
	}
	playing := m.session.plan.playingIteration(float64(m.frame) / float64(m.project.Rate()))
	n := m.session.pending(playing)
	if n == 0 {
		return
	}
	first, last := m.session.take(n)
	extra := &Schedule{
		SampleRate: m.project.Rate(),
		StartBeat:  m.session.plan.Start.StartBeat,
		Conv:       m.session.plan.conv,
		Plan:       m.session.plan,
	}
	for k := first; k <= last; k++ {
		extra.AppendIteration(m.project, k)
	}
	m.broker.ToPlayer <- AppendMsg{Commands: extra.Commands, Notes: extra.Notes, EndFrame: extra.EndFrame}
}
