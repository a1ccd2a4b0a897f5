package analyzer

import (
	"math"
	"math/rand"
	"testing"
)

func sineBuffer(n int, freq, sampleRate, amp float64) []uint8 {
	buf := make([]uint8, n)
	for i := range buf {
		v := Bias + amp*math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
		buf[i] = uint8(math.Round(v))
	}
	return buf
}

// meanAbs is an integer reference for Sampler.Volume.
func meanAbs(buf []uint8) float64 {
	sum := 0
	for _, v := range buf {
		d := int(v) - Bias
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return float64(sum) / float64(len(buf))
}

func TestVolumeSilentIsZero(t *testing.T) {
	buf := make([]uint8, 128)
	for i := range buf {
		buf[i] = Bias
	}
	if got := NewSampler(Bias).Volume(buf); got != 0 {
		t.Fatalf("silent volume=%f want=0", got)
	}
}

func TestVolumeEmptyBuffer(t *testing.T) {
	if got := NewSampler(Bias).Volume(nil); got != 0 {
		t.Fatalf("empty volume=%f want=0", got)
	}
}

func TestVolumeNeverNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := NewSampler(Bias)
	for round := 0; round < 200; round++ {
		buf := make([]uint8, 1+rng.Intn(256))
		for i := range buf {
			buf[i] = uint8(rng.Intn(256))
		}
		got := s.Volume(buf)
		if got < 0 {
			t.Fatalf("negative volume %f", got)
		}
		if want := meanAbs(buf); math.Abs(got-want) > 1e-9 {
			t.Fatalf("volume=%f want=%f", got, want)
		}
	}
}

func TestVolumeKnownValue(t *testing.T) {
	buf := []uint8{128, 138, 118, 148}
	// |0| + |10| + |-10| + |20| = 40, / 4
	if got := NewSampler(Bias).Volume(buf); got != 10 {
		t.Fatalf("volume=%f want=10", got)
	}
}

func TestVolumeMonotonicInAmplitude(t *testing.T) {
	s := NewSampler(Bias)
	prev := -1.0
	for _, amp := range []float64{0, 10, 30, 60, 120} {
		v := s.Volume(sineBuffer(128, 440, 44_100, amp))
		if v < prev {
			t.Fatalf("amp %.0f volume=%f below previous %f", amp, v, prev)
		}
		prev = v
	}
}

func TestSpectrumSilentIsZero(t *testing.T) {
	sp := NewSpectrum(8000)
	buf := make([]uint8, 128)
	for i := range buf {
		buf[i] = Bias
	}
	b := sp.Analyze(buf)
	if b != (Bands{}) {
		t.Fatalf("silent bands=%+v want zero", b)
	}
}

func TestSpectrumSeparatesBands(t *testing.T) {
	low := NewSpectrum(8000).Analyze(sineBuffer(128, 125, 8000, 100))
	if low.Bass <= low.Treble {
		t.Fatalf("125 Hz tone: bass=%f treble=%f", low.Bass, low.Treble)
	}

	high := NewSpectrum(8000).Analyze(sineBuffer(128, 3000, 8000, 100))
	if high.Treble <= high.Bass {
		t.Fatalf("3 kHz tone: bass=%f treble=%f", high.Bass, high.Treble)
	}
}

func TestSpectrumShortBufferDecays(t *testing.T) {
	sp := NewSpectrum(8000)
	first := sp.Analyze(sineBuffer(128, 125, 8000, 100))
	next := sp.Analyze(nil)
	if next.Bass >= first.Bass {
		t.Fatalf("expected decay on empty input: %f -> %f", first.Bass, next.Bass)
	}
}

func TestClamp(t *testing.T) {
	if clamp(2, 0, 1) != 1 {
		t.Fatalf("expected clamp high to be 1")
	}
	if clamp(-1, 0, 1) != 0 {
		t.Fatalf("expected clamp low to be 0")
	}
	if clamp(0.5, 0, 1) != 0.5 {
		t.Fatalf("expected clamp middle to be unchanged")
	}
}
