// Package field runs the dandelion seed simulation: emitters, seeds, wind and
// the per-frame spawn/update/cull/draw step.
package field

import "github.com/lucasb-eyer/go-colorful"

// Surface is the 2D drawing target the field renders onto.
// Size is read every frame because the surface may be resized between steps.
// Transform, alpha, color and line width are saved and restored together.
type Surface interface {
	Size() (width, height float64)
	Clear()
	Save()
	Restore()
	Translate(x, y float64)
	Rotate(theta float64)
	SetAlpha(alpha float64)
	SetColor(c colorful.Color)
	SetLineWidth(w float64)
	FillEllipse(cx, cy, rx, ry float64)
	StrokeLine(x0, y0, x1, y1 float64)
}
