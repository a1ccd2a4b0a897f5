package field

import (
	"math"
	"math/rand"

	"github.com/guidoenr/dandelion/internal/style"
)

// Emitter is a dandelion head that seeds are released from.
// ID is stable across resizes; only the position moves.
type Emitter struct {
	ID int
	X  float64
	Y  float64
}

// RemainingPetals returns how many petals are still drawn on an emitter
// with live seeds in flight: max(0, total - live/divisor).
func RemainingPetals(total, live int, divisor float64) float64 {
	if divisor <= 0 {
		divisor = 1
	}
	return math.Max(0, float64(total)-float64(live)/divisor)
}

// layoutEmitters positions n emitters on a width x height canvas.
// Center layout is deterministic. Scatter draws fresh positions from rng on
// every call, so resizing there and back moves the flowers.
func layoutEmitters(n int, layout style.Layout, width, height float64, rng *rand.Rand) []Emitter {
	out := make([]Emitter, n)
	for i := range out {
		var x, y float64
		switch layout {
		case style.LayoutScatter:
			x = width * (0.1 + 0.8*rng.Float64())
			y = height * (0.55 + 0.3*rng.Float64())
		default:
			x = width * float64(i+1) / float64(n+1)
			y = height * 0.75
		}
		out[i] = Emitter{
			ID: i,
			X:  clampFloat(x, 0, math.Max(0, width)),
			Y:  clampFloat(y, 0, math.Max(0, height)),
		}
	}
	return out
}

func (e Emitter) draw(s Surface, remaining float64, st style.Style, pal style.Palette) {
	_, height := s.Size()

	s.Save()
	s.SetAlpha(1)

	s.SetColor(pal.Stem)
	s.SetLineWidth(st.StemWidth)
	s.StrokeLine(e.X, e.Y, e.X, height)

	s.SetColor(pal.Disk)
	s.FillEllipse(e.X, e.Y, st.DiskRadius, st.DiskRadius)

	if st.Petals > 0 && st.PetalLength > 0 {
		s.SetColor(pal.Petal)
		s.SetLineWidth(1)
		step := 2 * math.Pi / float64(st.Petals)
		count := int(math.Floor(remaining))
		for i := 0; i < count; i++ {
			sin, cos := math.Sincos(float64(i) * step)
			s.StrokeLine(e.X, e.Y, e.X+cos*st.PetalLength, e.Y+sin*st.PetalLength)
		}
	}
	s.Restore()
}

func clampFloat(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
