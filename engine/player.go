package engine

import (
	stori "github.com/cgcardona/Stori-sub010"
)

type (
	// Player is the audio-domain half of the engine. The audio backend pulls
	// from it through Process (or the stori.AudioSource adaptation); it
	// consumes pre-built schedules from the broker and never performs beat
	// math or allocation beyond the bounded message handling at block
	// boundaries. All sends back to the model are non-blocking, so the
	// player can never deadlock the audio callback.
	Player struct {
		broker *Broker
		// graph is owned by the audio domain: it is built and incrementally
		// updated here, between rendered blocks, and persists across
		// restarts of the same project so filter and envelope state carry
		// over. The control domain never holds a reference to it.
		graph   *Graph
		rd      *renderer
		playing bool
		tap     func(buffer []float32)
	}
)

func NewPlayer(broker *Broker) *Player {
	return &Player{broker: broker}
}

// Process renders the next interleaved stereo buffer. Silence is rendered
// when the transport is stopped or the schedule is exhausted.
func (p *Player) Process(buffer []float32) {
	p.processMessages()
	rendered := 0
	for p.playing && p.rd != nil && rendered < len(buffer)/2 {
		rendered += p.rd.renderBlock(buffer[rendered*2:])
		if p.rd.done() {
			p.playing = false
			p.sendStatus()
		}
	}
	for i := rendered * 2; i < len(buffer); i++ {
		buffer[i] = 0
	}
	// the capture tap sees every buffer period from the first one on,
	// because the tap is always installed before the start command
	if p.tap != nil {
		p.tap(buffer)
	}
	p.sendStatus()
}

func (p *Player) processMessages() {
loop:
	for {
		select {
		case msg := <-p.broker.ToPlayer:
			switch m := msg.(type) {
			case StartMsg:
				if p.graph == nil || p.graph.NeedsRebuild(m.Project) {
					p.graph = NewGraph(m.Project)
				} else {
					p.graph.Update(m.Project)
				}
				p.rd = newRenderer(m.Project, p.graph, m.Schedule, m.Sink)
				p.playing = true
			case AppendMsg:
				if p.rd != nil {
					p.rd.schedule.Commands = append(p.rd.schedule.Commands, m.Commands...)
					p.rd.schedule.Notes = append(p.rd.schedule.Notes, m.Notes...)
					if m.EndFrame > p.rd.schedule.EndFrame {
						p.rd.schedule.EndFrame = m.EndFrame
					}
				}
			case TruncateMsg:
				if p.rd != nil {
					p.rd.disableCycle(m.Keep)
				}
			case StopMsg:
				// dropping the renderer cancels every not-yet-triggered
				// command and note in one step
				p.playing = false
				p.rd = nil
			case TapMsg:
				p.tap = m.Tap
			}
		default:
			break loop
		}
	}
}

func (p *Player) sendStatus() {
	msg := MsgToModel{HasStatus: true, Playing: p.playing}
	if p.rd != nil {
		msg.Position = stori.Position{Beats: p.rd.beatAt(p.rd.frame)}
		msg.ClipCount = p.rd.clipped
		msg.Frame = p.rd.frame
	}
	TrySend(p.broker.ToModel, msg)
}

type playerSource struct {
	player *Player
}

// Source adapts the player to stori.AudioSource for the audio backend.
func (p *Player) Source() stori.AudioSource {
	return playerSource{player: p}
}

func (s playerSource) ReadAudio(buffer []float32) (int, error) {
	s.player.Process(buffer)
	return len(buffer), nil
}
