// Package midi provides instrument sinks that turn scheduled note commands
// into gomidi messages, either collected in memory or sent to a hardware
// output port.
package midi

import (
	"fmt"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// Collector gathers the messages emitted during playback. It is safe to call
// from the audio domain; the messages can be drained from any goroutine.
type Collector struct {
	mu       sync.Mutex
	messages []midi.Message
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) NoteOn(track, instrument int, key, velocity byte) {
	c.add(midi.NoteOn(channel(instrument), key, velocity))
}

func (c *Collector) NoteOff(track, instrument int, key byte) {
	c.add(midi.NoteOff(channel(instrument), key))
}

func (c *Collector) Controller(track, instrument int, controller, value byte) {
	c.add(midi.ControlChange(channel(instrument), controller, value))
}

func (c *Collector) add(msg midi.Message) {
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
}

// Drain returns the collected messages and resets the collector.
func (c *Collector) Drain() []midi.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := c.messages
	c.messages = nil
	return msgs
}

// Port sends note commands to a hardware MIDI output. Send errors are
// swallowed: a vanished device must not take the transport down with it.
type Port struct {
	driver *rtmididrv.Driver
	out    drivers.Out
	send   func(midi.Message) error
}

// OpenPort opens the MIDI output whose name contains the given substring, or
// the first available output when name is empty.
func OpenPort(name string) (*Port, error) {
	driver, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("opening midi driver: %w", err)
	}
	outs, err := driver.Outs()
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("listing midi outputs: %w", err)
	}
	var out drivers.Out
	if name == "" && len(outs) > 0 {
		out = outs[0]
	} else {
		for _, o := range outs {
			if o.String() == name {
				out = o
				break
			}
		}
	}
	if out == nil {
		driver.Close()
		return nil, fmt.Errorf("no midi output matching %q", name)
	}
	if err := out.Open(); err != nil {
		driver.Close()
		return nil, fmt.Errorf("opening midi output %s: %w", out, err)
	}
	send, err := midi.SendTo(out)
	if err != nil {
		out.Close()
		driver.Close()
		return nil, fmt.Errorf("midi output %s: %w", out, err)
	}
	return &Port{driver: driver, out: out, send: send}, nil
}

func (p *Port) NoteOn(track, instrument int, key, velocity byte) {
	p.send(midi.NoteOn(channel(instrument), key, velocity))
}

func (p *Port) NoteOff(track, instrument int, key byte) {
	p.send(midi.NoteOff(channel(instrument), key))
}

func (p *Port) Controller(track, instrument int, controller, value byte) {
	p.send(midi.ControlChange(channel(instrument), controller, value))
}

func (p *Port) Close() error {
	err := p.out.Close()
	if derr := p.driver.Close(); err == nil {
		err = derr
	}
	return err
}

func channel(instrument int) uint8 {
	if instrument < 0 {
		return 0
	}
	return uint8(instrument % 16)
}
