package stori

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// DecodeWav reads a RIFF wave file into a clip. PCM 16 and 24 bit and IEEE
// 32-bit float data are accepted, mono or stereo, at any source rate; rate
// conversion happens at schedule time, not here.
func DecodeWav(r io.Reader) (*AudioClip, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, errors.New("not a wave file")
	}
	var (
		format     uint16
		channels   int
		sampleRate int
		bitDepth   int
		haveFmt    bool
	)
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, errors.New("no data chunk")
			}
			return nil, fmt.Errorf("reading chunk: %w", err)
		}
		size := int(binary.LittleEndian.Uint32(chunk[4:8]))
		switch string(chunk[0:4]) {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("reading fmt chunk: %w", err)
			}
			format = binary.LittleEndian.Uint16(body[0:2])
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitDepth = int(binary.LittleEndian.Uint16(body[14:16]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, errors.New("data chunk before fmt chunk")
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("reading data chunk: %w", err)
			}
			return decodeWavData(body, format, channels, sampleRate, bitDepth)
		default:
			if size%2 == 1 {
				size++
			}
			if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
				return nil, fmt.Errorf("skipping chunk: %w", err)
			}
		}
	}
}

func decodeWavData(body []byte, format uint16, channels, sampleRate, bitDepth int) (*AudioClip, error) {
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}
	var samples []float32
	switch {
	case format == 1 && bitDepth == 16:
		samples = make([]float32, len(body)/2)
		for i := range samples {
			v := int16(binary.LittleEndian.Uint16(body[i*2:]))
			samples[i] = float32(v) / 32768
		}
	case format == 1 && bitDepth == 24:
		samples = make([]float32, len(body)/3)
		for i := range samples {
			b := body[i*3 : i*3+3]
			v := int32(b[0])<<8 | int32(b[1])<<16 | int32(b[2])<<24
			samples[i] = float32(v>>8) / 8388608
		}
	case format == 3 && bitDepth == 32:
		samples = make([]float32, len(body)/4)
		for i := range samples {
			samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:]))
		}
	default:
		return nil, fmt.Errorf("unsupported sample format (tag %d, %d bit)", format, bitDepth)
	}
	samples = samples[:len(samples)/channels*channels]
	return &AudioClip{
		Channels:   channels,
		SampleRate: sampleRate,
		Samples:    samples,
	}, nil
}
