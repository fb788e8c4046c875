package stori

import "fmt"

// SampleRate is the fixed sample rate of the live audio graph. Offline export
// renders at the same rate so that the two paths stay sample-for-sample
// comparable.
const SampleRate = 48000

type (
	// Parameter identifies a mixer or effect parameter that can be automated
	// per track.
	Parameter int

	// AudioSource produces interleaved stereo float32 frames, filling as much
	// of the buffer as it can and returning the number of samples written.
	AudioSource interface {
		ReadAudio(buffer []float32) (n int, err error)
	}

	// AudioOutput is a source playing on the audio device. Closing it stops
	// the stream.
	AudioOutput interface {
		Close() error
	}

	// AudioContext is the audio backend: it starts sources playing on the
	// system output. The oto package provides the real implementation.
	AudioContext interface {
		Play(source AudioSource) AudioOutput
		Suspend() error
		Resume() error
	}

	// AudioClip holds decoded source samples for an audio region. Samples are
	// interleaved; Channels tells the interleave stride.
	AudioClip struct {
		Name       string  `yaml:",omitempty"`
		Channels   int     `yaml:",omitempty"`
		SampleRate int     `yaml:",omitempty"`
		Samples    []float32 `yaml:",flow,omitempty"`
	}
)

const (
	ParamVolume Parameter = iota
	ParamPan
	ParamEQLow
	ParamEQMid
	ParamEQHigh
	NumParameters
)

// DefaultValue is the built-in value of a parameter, used when an automation
// lane has neither points nor an initial value.
func (p Parameter) DefaultValue() float32 {
	switch p {
	case ParamVolume:
		return 1.0
	case ParamPan:
		return 0.5
	case ParamEQLow, ParamEQMid, ParamEQHigh:
		return 1.0
	}
	return 0
}

func (p Parameter) String() string {
	switch p {
	case ParamVolume:
		return "volume"
	case ParamPan:
		return "pan"
	case ParamEQLow:
		return "eq-low"
	case ParamEQMid:
		return "eq-mid"
	case ParamEQHigh:
		return "eq-high"
	}
	return fmt.Sprintf("parameter(%d)", int(p))
}

// EQBand returns the EQ band index (0-2) for an EQ parameter, or -1 if the
// parameter is not an EQ band.
func (p Parameter) EQBand() int {
	switch p {
	case ParamEQLow:
		return 0
	case ParamEQMid:
		return 1
	case ParamEQHigh:
		return 2
	}
	return -1
}

// EQBandParameter is the inverse of EQBand.
func EQBandParameter(band int) Parameter {
	switch band {
	case 0:
		return ParamEQLow
	case 1:
		return ParamEQMid
	case 2:
		return ParamEQHigh
	}
	return NumParameters
}

// Frames returns the number of sample frames in the clip.
func (c *AudioClip) Frames() int {
	if c == nil || c.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// Duration returns the clip length in seconds.
func (c *AudioClip) Duration() float64 {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return float64(c.Frames()) / float64(c.SampleRate)
}

// Copy makes a deep copy of an AudioClip.
func (c *AudioClip) Copy() AudioClip {
	samples := make([]float32, len(c.Samples))
	copy(samples, c.Samples)
	return AudioClip{Name: c.Name, Channels: c.Channels, SampleRate: c.SampleRate, Samples: samples}
}
