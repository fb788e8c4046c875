package engine

import "github.com/viterin/vek/vek32"

// clipDetector counts samples whose peak exceeds full scale. Scratch buffers
// are preallocated so counting stays allocation-free on the audio callback.
type clipDetector struct {
	tmp     []float32
	tmp2    []float32
	tmpbool []bool
}

func newClipDetector() clipDetector {
	return clipDetector{
		tmp:     make([]float32, maxBlockFrames*2),
		tmp2:    make([]float32, maxBlockFrames*2),
		tmpbool: make([]bool, maxBlockFrames*2),
	}
}

// count returns how many samples in the buffer exceed full scale (|v| > 1).
func (d *clipDetector) count(buffer []float32) int {
	if len(buffer) > len(d.tmp) {
		buffer = buffer[:len(d.tmp)]
	}
	abs := vek32.Abs_Into(d.tmp, buffer)
	over := vek32.GtNumber_Into(d.tmpbool, abs, 1)
	return len(vek32.Select_Into(d.tmp2, abs, over))
}
