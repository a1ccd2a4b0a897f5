// Package analyzer turns raw time-domain audio into the scalars the animation reacts to.
package analyzer

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/stat"
)

// Bands is a coarse three-band energy split, each roughly in [0,1].
type Bands struct {
	Bass   float64 `json:"bass"`
	Mid    float64 `json:"mid"`
	Treble float64 `json:"treble"`
}

// Spectrum estimates band energies from the same byte buffer the volume
// sampler reads. It only feeds the status line and web stats.
type Spectrum struct {
	sampleRate float64
	window     []float64
	buf        []float64
	mags       []float64
	level      Bands
}

// NewSpectrum creates a Spectrum for audio captured at sampleRate.
func NewSpectrum(sampleRate float64) *Spectrum {
	if sampleRate <= 0 {
		sampleRate = 44_100
	}
	return &Spectrum{sampleRate: sampleRate}
}

// Analyze returns smoothed band levels for samples centred at Bias.
func (s *Spectrum) Analyze(samples []uint8) Bands {
	if len(samples) < 4 {
		s.level = decayBands(s.level)
		return s.level
	}

	size := len(samples)
	s.ensureWorkspace(size)
	for i, v := range samples {
		s.buf[i] = (float64(v) - Bias) / Bias * s.window[i]
	}

	spec := fft.FFTReal(s.buf)
	half := size / 2
	norm := float64(size) / 4
	for i := 0; i < half; i++ {
		s.mags[i] = cmplx.Abs(spec[i]) / norm
	}

	res := s.sampleRate / float64(size)
	raw := Bands{
		Bass:   s.bandEnergy(res, 20, 250),
		Mid:    s.bandEnergy(res, 250, 2000),
		Treble: s.bandEnergy(res, 2000, 8000),
	}

	s.level = Bands{
		Bass:   envelope(s.level.Bass, raw.Bass),
		Mid:    envelope(s.level.Mid, raw.Mid),
		Treble: envelope(s.level.Treble, raw.Treble),
	}
	return s.level
}

func (s *Spectrum) ensureWorkspace(size int) {
	if len(s.window) != size {
		s.window = window.Hann(size)
		s.buf = make([]float64, size)
		s.mags = make([]float64, size/2)
	}
}

func (s *Spectrum) bandEnergy(resolution, minHz, maxHz float64) float64 {
	lo := int(math.Floor(minHz / resolution))
	hi := int(math.Ceil(maxHz/resolution)) + 1
	if hi > len(s.mags) {
		hi = len(s.mags)
	}
	if lo >= hi {
		return 0
	}
	return clamp(stat.Mean(s.mags[lo:hi], nil), 0, 1)
}

func envelope(current, input float64) float64 {
	if input > current {
		return current + (input-current)*0.6
	}
	return current*0.85 + input*0.15
}

func decayBands(b Bands) Bands {
	return Bands{Bass: b.Bass * 0.85, Mid: b.Mid * 0.85, Treble: b.Treble * 0.85}
}

func clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
