package field

import (
	"math"
	"math/rand"

	"github.com/guidoenr/dandelion/internal/style"
)

// Particle is one seed in flight.
type Particle struct {
	X, Y   float64
	VX, VY float64
	Angle  float64
	Spin   float64
	Size   float64
	Alpha  float64
	Origin int // Emitter.ID the seed left from

	wind     float64
	decaying bool
}

// Physics is the subset of a style that drives Particle.Update.
type Physics struct {
	Gravity   float64
	Drag      float64
	Decay     style.DecayMode
	DecayRate float64
}

// PhysicsOf extracts the physics constants of st.
func PhysicsOf(st style.Style) Physics {
	return Physics{
		Gravity:   st.Gravity,
		Drag:      st.Drag,
		Decay:     st.Decay,
		DecayRate: st.DecayRate,
	}
}

// NewParticle releases a seed from e with kinematics drawn from st's ranges.
func NewParticle(e Emitter, st style.Style, rng *rand.Rand) Particle {
	return Particle{
		X:      e.X,
		Y:      e.Y,
		VX:     uniform(rng, -st.DriftX, st.DriftX),
		VY:     -uniform(rng, st.RiseMin, st.RiseMax),
		Angle:  rng.Float64() * 2 * math.Pi,
		Spin:   uniform(rng, -st.Spin, st.Spin),
		Size:   uniform(rng, st.SizeMin, st.SizeMax),
		Alpha:  1,
		Origin: e.ID,
	}
}

// Update advances the seed one frame on a width x height canvas.
// Order: drag, wind snapshot, forces, position, rotation, fade.
func (p *Particle) Update(wind float64, ph Physics, width, height float64) {
	p.VX *= ph.Drag
	p.VY *= ph.Drag

	p.wind = wind

	p.VX += p.wind
	p.VY += ph.Gravity

	p.X += p.VX
	p.Y += p.VY

	p.Angle += p.Spin

	switch ph.Decay {
	case style.DecayContinuous:
		p.decaying = true
	default:
		if !p.decaying && p.outside(width, height) {
			p.decaying = true
		}
	}
	if p.decaying {
		p.Alpha = math.Max(0, p.Alpha-ph.DecayRate)
	}
}

// Decaying reports whether the seed has started to fade.
func (p *Particle) Decaying() bool { return p.decaying }

// Dead reports whether the seed should be removed.
func (p *Particle) Dead() bool { return p.Alpha <= 0 }

// The top edge is open: seeds may rise above the canvas and fall back in.
func (p *Particle) outside(width, height float64) bool {
	return p.X < 0 || p.X > width || p.Y > height
}

func (p *Particle) draw(s Surface, st style.Style, pal style.Palette) {
	s.Save()
	s.Translate(p.X, p.Y)
	s.Rotate(p.Angle)
	s.SetAlpha(p.Alpha)
	s.SetColor(pal.Seed)
	s.FillEllipse(0, 0, p.Size*st.SeedAspect, p.Size)

	if st.PappusLines > 0 && st.PappusLength > 0 {
		s.SetLineWidth(1)
		step := 2 * math.Pi / float64(st.PappusLines)
		for i := 0; i < st.PappusLines; i++ {
			sin, cos := math.Sincos(float64(i) * step)
			s.StrokeLine(0, 0, cos*st.PappusLength, sin*st.PappusLength)
		}
	}
	s.Restore()
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Float64()*(hi-lo)
}
