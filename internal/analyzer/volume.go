package analyzer

import (
	"gonum.org/v1/gonum/stat"
)

// Bias is the centre value of unsigned 8-bit time-domain audio.
const Bias = 128

// Sampler reduces one audio buffer per frame to a loudness value.
// Each call is independent; nothing is carried between frames.
type Sampler struct {
	bias uint8
	dev  []float64
}

// NewSampler returns a Sampler for buffers centred at bias.
func NewSampler(bias uint8) *Sampler {
	return &Sampler{bias: bias}
}

// Volume returns mean(|sample - bias|) for buf, or 0 for an empty buffer.
func (s *Sampler) Volume(buf []uint8) float64 {
	if len(buf) == 0 {
		return 0
	}
	if cap(s.dev) < len(buf) {
		s.dev = make([]float64, len(buf))
	}
	dev := s.dev[:len(buf)]
	for i, v := range buf {
		d := float64(v) - float64(s.bias)
		if d < 0 {
			d = -d
		}
		dev[i] = d
	}
	return stat.Mean(dev, nil)
}
