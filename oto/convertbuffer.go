package oto

import (
	"encoding/binary"
	"math"

	stori "github.com/cgcardona/Stori-sub010"
)

// sourceReader pulls float32 frames from an AudioSource and serves them to
// oto as little-endian float32 bytes. The float and byte buffers are reused
// across calls.
type sourceReader struct {
	source    stori.AudioSource
	floatBuf  []float32
	remainder []byte
}

func (r *sourceReader) Read(p []byte) (int, error) {
	if len(r.remainder) > 0 {
		n := copy(p, r.remainder)
		r.remainder = r.remainder[n:]
		return n, nil
	}
	samples := len(p) / 4
	if samples%2 == 1 {
		samples--
	}
	if samples == 0 {
		samples = 2
	}
	if cap(r.floatBuf) < samples {
		r.floatBuf = make([]float32, samples)
	}
	buf := r.floatBuf[:samples]
	read, err := r.source.ReadAudio(buf)
	if err != nil {
		return 0, err
	}
	raw := floatBufferToBytes(buf[:read], nil)
	n := copy(p, raw)
	r.remainder = raw[n:]
	return n, nil
}

// floatBufferToBytes converts a float32 buffer to little-endian float32
// bytes, appending to dst.
func floatBufferToBytes(buf []float32, dst []byte) []byte {
	for _, v := range buf {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}
