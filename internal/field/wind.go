package field

// Wind is the single horizontal force applied to every seed.
// Pointer moves overwrite it; nothing accumulates.
type Wind struct {
	scale    float64
	fraction float64 // last pointer position as a fraction of the width, minus 0.5
	value    float64
}

// NewWind returns a calm Wind with the given scale.
func NewWind(scale float64) *Wind {
	return &Wind{scale: scale}
}

// SetFromPointer sets wind = (x/width - 0.5) * scale.
// A non-positive width leaves the wind calm.
func (w *Wind) SetFromPointer(x, width float64) {
	if width <= 0 {
		w.fraction = 0
		w.value = 0
		return
	}
	w.fraction = x/width - 0.5
	w.value = w.fraction * w.scale
}

// SetScale changes the scale and re-derives the value from the last pointer position.
func (w *Wind) SetScale(scale float64) {
	w.scale = scale
	w.value = w.fraction * scale
}

// Value returns the current wind force.
func (w *Wind) Value() float64 { return w.value }

// Scale returns the configured scale.
func (w *Wind) Scale() float64 { return w.scale }
