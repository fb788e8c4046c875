package stori

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

type (
	// Format is an export container format.
	Format int

	// BitDepth is the sample depth of an exported file.
	BitDepth int
)

const (
	FormatWAV Format = iota
	FormatAIFF
	FormatFLAC
	FormatM4A
)

const (
	Depth16      BitDepth = 16
	Depth24      BitDepth = 24
	Depth32Float BitDepth = 32
)

// ErrFormatUnsupported is returned when the requested format cannot be
// encoded on this system. Callers fall back to FallbackFormat and report the
// substitution instead of failing the export.
var ErrFormatUnsupported = errors.New("export format not supported on this system")

func (f Format) String() string {
	switch f {
	case FormatWAV:
		return "wav"
	case FormatAIFF:
		return "aiff"
	case FormatFLAC:
		return "flac"
	case FormatM4A:
		return "m4a"
	}
	return "unknown"
}

// Extension returns the filename extension including the dot.
func (f Format) Extension() string {
	return "." + f.String()
}

// ParseFormat parses a format name as used in flags and filenames.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "wav":
		return FormatWAV, nil
	case "aiff", "aif":
		return FormatAIFF, nil
	case "flac":
		return FormatFLAC, nil
	case "m4a", "aac":
		return FormatM4A, nil
	}
	return FormatWAV, fmt.Errorf("unknown export format %q", s)
}

// Supported reports whether the format can be encoded in-process. M4A (AAC)
// needs a platform encoder that is not available here, so it always falls
// back.
func (f Format) Supported() bool {
	switch f {
	case FormatWAV, FormatAIFF, FormatFLAC:
		return true
	}
	return false
}

// FallbackFormat returns the format substituted when f is unsupported.
func (f Format) FallbackFormat() Format {
	if f.Supported() {
		return f
	}
	return FormatWAV
}

// Lossless reports whether the format supports a configurable bit depth.
func (f Format) Lossless() bool {
	return f.Supported()
}

// EncodeAudio encodes interleaved float32 samples into the given format.
// FLAC only supports integer depths; a 32-float request is encoded at 24
// bits. Unsupported formats return ErrFormatUnsupported without writing.
func EncodeAudio(w io.Writer, samples []float32, format Format, depth BitDepth, channels, sampleRate int) error {
	if channels < 1 {
		return errors.New("channel count should be >= 1")
	}
	switch format {
	case FormatWAV:
		return encodeWav(w, samples, depth, channels, sampleRate)
	case FormatAIFF:
		return encodeAiff(w, samples, depth, channels, sampleRate)
	case FormatFLAC:
		return encodeFlac(w, samples, depth, channels, sampleRate)
	}
	return ErrFormatUnsupported
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func sampleToInt(v float32, depth BitDepth) int {
	switch depth {
	case Depth24:
		return clampInt(int(float64(v)*8388607), -8388608, 8388607)
	default:
		return clampInt(int(float64(v)*math.MaxInt16), math.MinInt16, math.MaxInt16)
	}
}

// encodeWav writes a RIFF/WAVE file: PCM for 16/24 bit depths, IEEE float for
// Depth32Float.
// Refer to: http://www-mmsp.ece.mcgill.ca/Documents/AudioFormats/WAVE/WAVE.html
func encodeWav(w io.Writer, samples []float32, depth BitDepth, channels, sampleRate int) error {
	buf := new(bytes.Buffer)
	bytesPerSample := int(depth) / 8
	dataSize := len(samples) * bytesPerSample
	isFloat := depth == Depth32Float
	var fmtChunkSize, waveFormat int
	if isFloat {
		fmtChunkSize = 18
		waveFormat = 3 // IEEE float
	} else {
		fmtChunkSize = 16
		waveFormat = 1 // PCM
	}
	chunkSize := 20 + fmtChunkSize + dataSize
	if isFloat {
		chunkSize += 12 // fact chunk
	}
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(chunkSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(fmtChunkSize))
	binary.Write(buf, binary.LittleEndian, uint16(waveFormat))
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*channels*bytesPerSample)) // avgBytesPerSec
	binary.Write(buf, binary.LittleEndian, uint16(channels*bytesPerSample))            // blockAlign
	binary.Write(buf, binary.LittleEndian, uint16(depth))                              // bits per sample
	if isFloat {
		binary.Write(buf, binary.LittleEndian, uint16(0)) // size of extension
		buf.WriteString("fact")
		binary.Write(buf, binary.LittleEndian, uint32(4))
		binary.Write(buf, binary.LittleEndian, uint32(len(samples)))
	}
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	switch depth {
	case Depth32Float:
		binary.Write(buf, binary.LittleEndian, samples)
	case Depth24:
		for _, v := range samples {
			s := sampleToInt(v, Depth24)
			buf.Write([]byte{byte(s), byte(s >> 8), byte(s >> 16)})
		}
	default:
		for _, v := range samples {
			binary.Write(buf, binary.LittleEndian, int16(sampleToInt(v, Depth16)))
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// encodeAiff writes an AIFF file for integer depths, or an AIFF-C file with
// the "fl32" compression type for Depth32Float. AIFF data is big-endian.
func encodeAiff(w io.Writer, samples []float32, depth BitDepth, channels, sampleRate int) error {
	buf := new(bytes.Buffer)
	bytesPerSample := int(depth) / 8
	numFrames := len(samples) / channels
	dataSize := len(samples) * bytesPerSample
	isFloat := depth == Depth32Float

	ssndSize := 8 + dataSize
	commSize := 18
	formSize := 4 + 8 + commSize + 8 + ssndSize
	if isFloat {
		commSize += 10 // compression type + pascal-string name "fl32"
		formSize = 4 + 8 + 12 + 8 + commSize + 8 + ssndSize
	}
	buf.WriteString("FORM")
	binary.Write(buf, binary.BigEndian, uint32(formSize))
	if isFloat {
		buf.WriteString("AIFC")
		buf.WriteString("FVER")
		binary.Write(buf, binary.BigEndian, uint32(4))
		binary.Write(buf, binary.BigEndian, uint32(0xA2805140)) // AIFC version 1
	} else {
		buf.WriteString("AIFF")
	}
	buf.WriteString("COMM")
	binary.Write(buf, binary.BigEndian, uint32(commSize))
	binary.Write(buf, binary.BigEndian, uint16(channels))
	binary.Write(buf, binary.BigEndian, uint32(numFrames))
	binary.Write(buf, binary.BigEndian, uint16(depth))
	buf.Write(extendedFloat(float64(sampleRate)))
	if isFloat {
		buf.WriteString("fl32")
		buf.Write([]byte{4, 'f', 'l', '3', '2', 0}) // pascal string, padded to even
	}
	buf.WriteString("SSND")
	binary.Write(buf, binary.BigEndian, uint32(ssndSize))
	binary.Write(buf, binary.BigEndian, uint32(0)) // offset
	binary.Write(buf, binary.BigEndian, uint32(0)) // block size
	switch depth {
	case Depth32Float:
		binary.Write(buf, binary.BigEndian, samples)
	case Depth24:
		for _, v := range samples {
			s := sampleToInt(v, Depth24)
			buf.Write([]byte{byte(s >> 16), byte(s >> 8), byte(s)})
		}
	default:
		for _, v := range samples {
			binary.Write(buf, binary.BigEndian, int16(sampleToInt(v, Depth16)))
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// extendedFloat encodes a positive value as an 80-bit IEEE 754 extended
// precision float, as the AIFF COMM chunk requires for the sample rate.
func extendedFloat(v float64) []byte {
	out := make([]byte, 10)
	if v <= 0 {
		return out
	}
	exp := 16383
	for v < 32768 {
		v *= 2
		exp--
	}
	for v >= 65536 {
		v /= 2
		exp++
	}
	mantissa := uint64(v * (1 << 48)) // v is in [32768, 65536), top bit lands at bit 63
	binary.BigEndian.PutUint16(out, uint16(exp))
	binary.BigEndian.PutUint64(out[2:], mantissa)
	return out
}

// encodeFlac writes a FLAC file using verbatim subframes. FLAC carries
// integer samples only, so Depth32Float is encoded at 24 bits.
func encodeFlac(w io.Writer, samples []float32, depth BitDepth, channels, sampleRate int) error {
	if depth == Depth32Float {
		depth = Depth24
	}
	numFrames := len(samples) / channels
	info := &meta.StreamInfo{
		BlockSizeMin:  16,
		BlockSizeMax:  65535,
		SampleRate:    uint32(sampleRate),
		NChannels:     uint8(channels),
		BitsPerSample: uint8(depth),
		NSamples:      uint64(numFrames),
	}
	enc, err := flac.NewEncoder(w, info)
	if err != nil {
		return fmt.Errorf("could not create flac encoder: %w", err)
	}
	chanMode := frame.ChannelsMono
	if channels == 2 {
		chanMode = frame.ChannelsLR
	}
	const blockSize = 4096
	for start := 0; start < numFrames; start += blockSize {
		n := numFrames - start
		if n > blockSize {
			n = blockSize
		}
		subframes := make([]*frame.Subframe, channels)
		for ch := 0; ch < channels; ch++ {
			sf := &frame.Subframe{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				NSamples:  n,
				Samples:   make([]int32, n),
			}
			for i := 0; i < n; i++ {
				sf.Samples[i] = int32(sampleToInt(samples[(start+i)*channels+ch], depth))
			}
			subframes[ch] = sf
		}
		f := &frame.Frame{
			Header: frame.Header{
				HasFixedBlockSize: false,
				BlockSize:         uint16(n),
				SampleRate:        uint32(sampleRate),
				Channels:          chanMode,
				BitsPerSample:     uint8(depth),
			},
			Subframes: subframes,
		}
		if err := enc.WriteFrame(f); err != nil {
			enc.Close()
			return fmt.Errorf("could not write flac frame: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("could not finish flac stream: %w", err)
	}
	return nil
}
