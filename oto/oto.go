// Package oto adapts an ebitengine/oto context to the engine's audio
// interfaces, pulling interleaved stereo float32 buffers from an
// AudioSource and streaming them to the system output.
package oto

import (
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"

	stori "github.com/cgcardona/Stori-sub010"
)

type OtoContext struct {
	context *oto.Context
}

type OtoPlayer struct {
	player *oto.Player
}

// NewContext opens the system audio output at the engine rate, stereo
// float32. It blocks until the device is ready.
func NewContext() (*OtoContext, error) {
	context, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   stori.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   50 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{context: context}, nil
}

var _ stori.AudioContext = (*OtoContext)(nil)

// Play starts streaming the source to the output and returns the player.
func (c *OtoContext) Play(source stori.AudioSource) stori.AudioOutput {
	player := c.context.NewPlayer(&sourceReader{source: source})
	player.Play()
	return &OtoPlayer{player: player}
}

func (c *OtoContext) Suspend() error { return c.context.Suspend() }
func (c *OtoContext) Resume() error  { return c.context.Resume() }

func (p *OtoPlayer) Close() error {
	if err := p.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
