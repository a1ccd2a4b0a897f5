package app

import (
	"math"
	"math/rand"

	"github.com/guidoenr/dandelion/internal/audio"
	"github.com/ojrac/opensimplex-go"
)

// VolumeSource yields the latest time-domain window, bias 128. It must not block.
type VolumeSource interface {
	Read() []uint8
}

// synthSource stands in for a microphone: a hum whose loudness drifts with
// simplex noise, so the field sees quiet gaps and gusts of breath.
type synthSource struct {
	noise opensimplex.Noise
	rng   *rand.Rand
	t     float64
	phase float64
	buf   []uint8
}

func newSynthSource(window int, seed int64) *synthSource {
	if window <= 0 {
		window = 128
	}
	return &synthSource{
		noise: opensimplex.New(seed),
		rng:   rand.New(rand.NewSource(seed)),
		buf:   make([]uint8, window),
	}
}

func (s *synthSource) Read() []uint8 {
	s.t += 1.0 / 60.0

	// Noise in [-1,1]; only the positive lobes are audible.
	env := s.noise.Eval2(s.t*0.35, 0)*1.4 + s.noise.Eval2(s.t*2.1, 7.3)*0.3
	amp := math.Max(0, env) * 0.7

	const step = 2 * math.Pi * 220 / 44_100
	for i := range s.buf {
		s.phase += step
		v := amp*math.Sin(s.phase) + (s.rng.Float64()-0.5)*0.01
		s.buf[i] = audio.ToByte(float32(v))
	}
	if s.phase > 2*math.Pi {
		s.phase = math.Mod(s.phase, 2*math.Pi)
	}
	return s.buf
}
