package field

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/guidoenr/dandelion/internal/style"
)

// Field owns the emitters and every live seed.
// It is not safe for concurrent use; one goroutine drives Step.
type Field struct {
	style   style.Style
	palette style.Palette
	physics Physics
	wind    *Wind
	rng     *rand.Rand

	emitters  []Emitter
	live      []int // live seeds per Emitter.ID
	next      int   // emitter served first by the next Spawn
	particles []Particle

	width  float64
	height float64
	laid   bool
}

// Stats summarises the last completed step.
type Stats struct {
	Live    int
	Max     int
	Spawned int
	Culled  int
}

// New creates a Field for st. Emitters are placed on the first Step or Resize.
func New(st style.Style, wind *Wind, rng *rand.Rand) (*Field, error) {
	if wind == nil {
		return nil, fmt.Errorf("field: nil wind")
	}
	if rng == nil {
		return nil, fmt.Errorf("field: nil rng")
	}
	f := &Field{wind: wind, rng: rng}
	if err := f.SetStyle(st); err != nil {
		return nil, err
	}
	return f, nil
}

// SetStyle switches to st. Seeds in flight are dropped and emitters re-laid out,
// since the emitter count and depletion constants may change.
func (f *Field) SetStyle(st style.Style) error {
	if err := st.Validate(); err != nil {
		return fmt.Errorf("field: style %q: %w", st.Name, err)
	}
	pal, err := st.Palette()
	if err != nil {
		return err
	}
	f.style = st
	f.palette = pal
	f.physics = PhysicsOf(st)
	f.wind.SetScale(st.WindScale)
	f.particles = f.particles[:0]
	f.live = make([]int, st.Emitters)
	if f.laid {
		f.emitters = layoutEmitters(st.Emitters, st.Layout, f.width, f.height, f.rng)
	}
	return nil
}

// Style returns the active style.
func (f *Field) Style() style.Style { return f.style }

// Resize repositions the emitters for a width x height canvas.
// Negative or zero sizes are tolerated: positions clamp to the canvas.
func (f *Field) Resize(width, height float64) {
	f.width = math.Max(0, width)
	f.height = math.Max(0, height)
	f.emitters = layoutEmitters(f.style.Emitters, f.style.Layout, f.width, f.height, f.rng)
	f.laid = true
}

// Relayout places the emitters again at the current size.
func (f *Field) Relayout() {
	f.Resize(f.width, f.height)
}

// Step runs one frame: spawn for volume, update and cull, then draw onto s.
func (f *Field) Step(volume float64, s Surface) Stats {
	w, h := s.Size()
	if !f.laid || w != f.width || h != f.height {
		f.Resize(w, h)
	}

	spawned := f.Spawn(volume)
	culled := f.Update()
	f.Draw(s)

	return Stats{
		Live:    len(f.particles),
		Max:     f.style.MaxParticles,
		Spawned: spawned,
		Culled:  culled,
	}
}

// SpawnCount is the per-emitter seed count for volume, before the global cap:
// 0 at or below the threshold, else min(ceil(volume/divisor), cap).
func SpawnCount(volume float64, st style.Style) int {
	if volume <= st.VolumeThreshold {
		return 0
	}
	n := int(math.Ceil(volume / st.SpawnDivisor))
	if n > st.SpawnCap {
		n = st.SpawnCap
	}
	return n
}

// Spawn releases seeds for volume from every emitter and returns how many.
// The live count never exceeds MaxParticles afterwards.
func (f *Field) Spawn(volume float64) int {
	if !f.laid || len(f.particles) >= f.style.MaxParticles {
		return 0
	}
	n := SpawnCount(volume, f.style)
	if n == 0 || len(f.emitters) == 0 {
		return 0
	}

	// One seed per emitter per pass, starting one emitter later each call.
	start := f.next % len(f.emitters)
	f.next = start + 1
	budget := f.style.MaxParticles - len(f.particles)
	total := 0
	for pass := 0; pass < n && budget > 0; pass++ {
		for j := 0; j < len(f.emitters) && budget > 0; j++ {
			e := f.emitters[(start+j)%len(f.emitters)]
			f.particles = append(f.particles, NewParticle(e, f.style, f.rng))
			f.live[e.ID]++
			budget--
			total++
		}
	}
	return total
}

// Update advances every seed one frame and removes those that faded out.
// Survivors keep their order. Returns the number removed.
func (f *Field) Update() int {
	wind := f.wind.Value()
	alive := 0
	for i := range f.particles {
		p := &f.particles[i]
		p.Update(wind, f.physics, f.width, f.height)
		if p.Dead() {
			f.live[p.Origin]--
			continue
		}
		f.particles[alive] = *p
		alive++
	}
	culled := len(f.particles) - alive
	f.particles = f.particles[:alive]
	return culled
}

// Draw clears s and paints emitters first, then seeds over the stems.
func (f *Field) Draw(s Surface) {
	s.Clear()
	for _, e := range f.emitters {
		e.draw(s, f.Remaining(e.ID), f.style, f.palette)
	}
	for i := range f.particles {
		f.particles[i].draw(s, f.style, f.palette)
	}
}

// Remaining returns the petal count still shown on emitter id.
func (f *Field) Remaining(id int) float64 {
	return RemainingPetals(f.style.Petals, f.LiveFor(id), f.style.PetalDivisor)
}

// LiveFor returns how many live seeds came from emitter id.
func (f *Field) LiveFor(id int) int {
	if id < 0 || id >= len(f.live) {
		return 0
	}
	return f.live[id]
}

// Len returns the number of live seeds.
func (f *Field) Len() int { return len(f.particles) }

// Particles exposes the live seeds. Callers must not retain or modify the slice.
func (f *Field) Particles() []Particle { return f.particles }

// Emitters returns a copy of the emitter positions.
func (f *Field) Emitters() []Emitter {
	out := make([]Emitter, len(f.emitters))
	copy(out, f.emitters)
	return out
}
