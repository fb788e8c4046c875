// Package engine is the playback scheduling and automation core. The control
// domain (Model) builds immutable schedules from project snapshots and hands
// them over typed channels to the audio domain (Player), which only consumes
// pre-scheduled work. The offline export pipeline drives the exact same
// schedule and graph code into a file instead of the live output.
package engine

import (
	"sync"

	stori "github.com/cgcardona/Stori-sub010"
)

type (
	// Broker carries all communication between the control domain, the audio
	// domain and the subscribing UI layer. One buffered channel per
	// recipient; sends from the audio domain are always non-blocking.
	// A sync.Pool of sample buffers lets the player pass rendered audio to
	// the control domain without allocating on the audio thread.
	Broker struct {
		ToPlayer chan PlayerMsg
		ToModel  chan MsgToModel
		ToUI     chan Event

		bufferPool sync.Pool
	}

	// PlayerMsg is a command consumed by the audio-domain player. The
	// interface is sealed so the player's input surface stays explicit.
	PlayerMsg interface{ playerMsg() }

	// MsgToModel is a message sent from the player to the model. The
	// frequently sent status fields are unboxed to avoid allocations on the
	// audio thread.
	MsgToModel struct {
		HasStatus bool
		Position  stori.Position
		Playing   bool
		ClipCount int
		Frame     int // play head position in schedule frames

		Data any
	}

	// Event is a notification published to the UI layer.
	Event interface{ engineEvent() }

	// StartMsg hands a pre-built immutable schedule and the project snapshot
	// it was built from, and starts playback. The schedule is built in the
	// control domain; the routing graph lives in the audio domain, where the
	// player rebuilds or incrementally updates it from the snapshot.
	StartMsg struct {
		Project  *stori.Project
		Schedule *Schedule
		Sink     InstrumentSink
	}

	// AppendMsg appends further pre-scheduled cycle iterations to the
	// currently playing schedule. Iterations are appended in ascending order
	// and never reordered.
	AppendMsg struct {
		Commands []PlayCommand
		Notes    []NoteCommand
		EndFrame int
	}

	// StopMsg stops playback and cancels all not-yet-triggered work.
	StopMsg struct{}

	// TruncateMsg cancels all pre-scheduled cycle iterations after Keep in
	// one atomic step, used when cycle mode is disabled mid-playback. The
	// model follows up with an AppendMsg carrying the standard continuation
	// of the timeline past the loop end.
	TruncateMsg struct {
		Keep int
	}

	// TapMsg installs (or removes) the capture tap. During recording the tap
	// must be installed before the play command is issued; FIFO ordering on
	// ToPlayer guarantees the tap is armed before the first rendered buffer.
	TapMsg struct {
		Tap func(buffer []float32)
	}

	// ProjectReplacedMsg signals that a different project was loaded and the
	// graph was fully rebuilt.
	ProjectReplacedMsg struct{}

	// GraphRebuiltMsg signals that the audio graph finished (re)building and
	// is stable again.
	GraphRebuiltMsg struct{}

	// ClipDetectedMsg reports samples exceeding full scale.
	ClipDetectedMsg struct {
		Count int
	}

	// WarningMsg surfaces a non-fatal anomaly (missing clip data, substituted
	// export format) to the UI layer.
	WarningMsg struct {
		Text string
	}
)

func (StartMsg) playerMsg()    {}
func (AppendMsg) playerMsg()   {}
func (StopMsg) playerMsg()     {}
func (TruncateMsg) playerMsg() {}
func (TapMsg) playerMsg()      {}

func (ProjectReplacedMsg) engineEvent() {}
func (GraphRebuiltMsg) engineEvent()    {}
func (ClipDetectedMsg) engineEvent()    {}
func (WarningMsg) engineEvent()         {}

func NewBroker() *Broker {
	return &Broker{
		ToPlayer:   make(chan PlayerMsg, 1024),
		ToModel:    make(chan MsgToModel, 1024),
		ToUI:       make(chan Event, 1024),
		bufferPool: sync.Pool{New: func() any { b := make([]float32, 0, 4096); return &b }},
	}
}

// GetBuffer returns an empty sample buffer from the pool.
func (b *Broker) GetBuffer() *[]float32 {
	return b.bufferPool.Get().(*[]float32)
}

// PutBuffer returns a buffer to the pool, resetting its length but keeping
// its capacity.
func (b *Broker) PutBuffer(buf *[]float32) {
	if len(*buf) > 0 {
		*buf = (*buf)[:0]
	}
	b.bufferPool.Put(buf)
}

// TrySend sends a value to a channel if it is not full. It is guaranteed to
// be non-blocking, so the audio domain can use it without risking a deadlock.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}
