package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/vector"
)

// kappa places cubic control points so four segments approximate a quarter ellipse each.
const kappa = 0.5522847498307936

var identity = f64.Aff3{1, 0, 0, 0, 1, 0}

func apply(m f64.Aff3, x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

func translate(m f64.Aff3, tx, ty float64) f64.Aff3 {
	m[2] += m[0]*tx + m[1]*ty
	m[5] += m[3]*tx + m[4]*ty
	return m
}

func rotate(m f64.Aff3, theta float64) f64.Aff3 {
	sin, cos := math.Sincos(theta)
	return f64.Aff3{
		m[0]*cos + m[1]*sin, m[1]*cos - m[0]*sin, m[2],
		m[3]*cos + m[4]*sin, m[4]*cos - m[3]*sin, m[5],
	}
}

// scale is the linear stretch of m, used to size line widths.
func scale(m f64.Aff3) float64 {
	return math.Sqrt(math.Abs(m[0]*m[4] - m[1]*m[3]))
}

type drawState struct {
	m         f64.Aff3
	alpha     float64
	color     colorful.Color
	lineWidth float64
}

// Canvas is an RGBA raster drawn through x/image/vector. Every primitive is
// one path, so overlapping parts of a shape composite once.
type Canvas struct {
	img *image.RGBA
	ras *vector.Rasterizer
	src *image.Uniform
	bg  *image.Uniform

	state drawState
	stack []drawState

	// pen maps local path points into the rasterizer of the current primitive.
	pen   f64.Aff3
	origX float64
	origY float64
}

// NewCanvas allocates a width x height canvas with a black background.
func NewCanvas(width, height int) *Canvas {
	c := &Canvas{
		ras: vector.NewRasterizer(0, 0),
		src: image.NewUniform(color.NRGBA{}),
		bg:  image.NewUniform(color.RGBA{A: 255}),
	}
	c.Resize(width, height)
	c.state = defaultState()
	return c
}

func defaultState() drawState {
	return drawState{m: identity, alpha: 1, color: colorful.Color{R: 1, G: 1, B: 1}, lineWidth: 1}
}

// Resize reallocates the raster. Contents are cleared.
func (c *Canvas) Resize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	c.img = image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(c.img, c.img.Bounds(), c.bg, image.Point{}, draw.Src)
}

// Dimensions returns the raster size in pixels.
func (c *Canvas) Dimensions() (int, int) {
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

// Size implements field.Surface.
func (c *Canvas) Size() (float64, float64) {
	w, h := c.Dimensions()
	return float64(w), float64(h)
}

// Clear fills the raster with the background and resets the drawing state.
func (c *Canvas) Clear() {
	draw.Draw(c.img, c.img.Bounds(), c.bg, image.Point{}, draw.Src)
	c.state = defaultState()
	c.stack = c.stack[:0]
}

func (c *Canvas) Save() {
	c.stack = append(c.stack, c.state)
}

func (c *Canvas) Restore() {
	if len(c.stack) == 0 {
		return
	}
	c.state = c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
}

func (c *Canvas) Translate(x, y float64) { c.state.m = translate(c.state.m, x, y) }

func (c *Canvas) Rotate(theta float64) { c.state.m = rotate(c.state.m, theta) }

func (c *Canvas) SetAlpha(alpha float64) { c.state.alpha = clamp01(alpha) }

func (c *Canvas) SetColor(col colorful.Color) { c.state.color = col }

func (c *Canvas) SetLineWidth(w float64) { c.state.lineWidth = w }

// At returns the pixel at (x, y), or black outside the raster.
func (c *Canvas) At(x, y int) colorful.Color {
	if !(image.Point{X: x, Y: y}).In(c.img.Bounds()) {
		return colorful.Color{}
	}
	p := c.img.RGBAAt(x, y)
	return colorful.Color{R: float64(p.R) / 255, G: float64(p.G) / 255, B: float64(p.B) / 255}
}

// FillEllipse fills an axis-aligned ellipse in the current transform.
// Ellipses smaller than a pixel light the whole pixel under their centre.
func (c *Canvas) FillEllipse(cx, cy, rx, ry float64) {
	if rx <= 0 || ry <= 0 || c.state.alpha <= 0 {
		return
	}
	m := c.state.m
	bounds, w, h := deviceBounds(m, [][2]float64{
		{cx - rx, cy - ry}, {cx + rx, cy - ry}, {cx - rx, cy + ry}, {cx + rx, cy + ry},
	})
	if w < 1 && h < 1 {
		x, y := apply(m, cx, cy)
		c.fillPixel(int(math.Floor(x)), int(math.Floor(y)))
		return
	}
	if !c.begin(bounds, m) {
		return
	}
	kx, ky := rx*kappa, ry*kappa
	c.moveTo(cx+rx, cy)
	c.cubeTo(cx+rx, cy+ky, cx+kx, cy+ry, cx, cy+ry)
	c.cubeTo(cx-kx, cy+ry, cx-rx, cy+ky, cx-rx, cy)
	c.cubeTo(cx-rx, cy-ky, cx-kx, cy-ry, cx, cy-ry)
	c.cubeTo(cx+kx, cy-ry, cx+rx, cy-ky, cx+rx, cy)
	c.ras.ClosePath()
	c.finish(bounds)
}

// StrokeLine draws a butt-capped line with the current line width and transform.
// Lines thinner than a pixel are widened to one.
func (c *Canvas) StrokeLine(x0, y0, x1, y1 float64) {
	if c.state.alpha <= 0 {
		return
	}
	m := c.state.m
	s := scale(m)
	if s == 0 {
		return
	}
	half := math.Max(c.state.lineWidth, 1/s) / 2

	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	if length == 0 {
		dx, dy, length = 1, 0, 1
		x0, x1 = x0-half, x0+half
	}
	nx, ny := -dy/length*half, dx/length*half
	quad := [][2]float64{
		{x0 + nx, y0 + ny}, {x1 + nx, y1 + ny}, {x1 - nx, y1 - ny}, {x0 - nx, y0 - ny},
	}

	bounds, _, _ := deviceBounds(m, quad)
	if !c.begin(bounds, m) {
		return
	}
	c.moveTo(quad[0][0], quad[0][1])
	for _, p := range quad[1:] {
		c.lineTo(p[0], p[1])
	}
	c.ras.ClosePath()
	c.finish(bounds)
}

func (c *Canvas) fillPixel(x, y int) {
	bounds := image.Rect(x, y, x+1, y+1)
	if !c.begin(bounds, identity) {
		return
	}
	fx, fy := float64(x), float64(y)
	c.moveTo(fx, fy)
	c.lineTo(fx+1, fy)
	c.lineTo(fx+1, fy+1)
	c.lineTo(fx, fy+1)
	c.ras.ClosePath()
	c.finish(bounds)
}

// deviceBounds returns the pixel rectangle covering pts under m and its real extent.
func deviceBounds(m f64.Aff3, pts [][2]float64) (image.Rectangle, float64, float64) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		x, y := apply(m, p[0], p[1])
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	r := image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
	return r, maxX - minX, maxY - minY
}

// begin sizes the rasterizer to bounds clipped to the canvas. It reports
// false when nothing of the primitive is visible.
func (c *Canvas) begin(bounds image.Rectangle, m f64.Aff3) bool {
	bounds = bounds.Intersect(c.img.Bounds())
	if bounds.Empty() {
		return false
	}
	c.ras.Reset(bounds.Dx(), bounds.Dy())
	c.pen = m
	c.origX, c.origY = float64(bounds.Min.X), float64(bounds.Min.Y)
	return true
}

func (c *Canvas) point(x, y float64) (float32, float32) {
	px, py := apply(c.pen, x, y)
	return float32(px - c.origX), float32(py - c.origY)
}

func (c *Canvas) moveTo(x, y float64) {
	c.ras.MoveTo(c.point(x, y))
}

func (c *Canvas) lineTo(x, y float64) {
	c.ras.LineTo(c.point(x, y))
}

func (c *Canvas) cubeTo(bx, by, cx, cy, dx, dy float64) {
	x1, y1 := c.point(bx, by)
	x2, y2 := c.point(cx, cy)
	x3, y3 := c.point(dx, dy)
	c.ras.CubeTo(x1, y1, x2, y2, x3, y3)
}

// finish composites the current path over the raster in the current color and alpha.
func (c *Canvas) finish(bounds image.Rectangle) {
	bounds = bounds.Intersect(c.img.Bounds())
	r, g, b := c.state.color.Clamped().RGB255()
	c.src.C = color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(c.state.alpha * 255))}
	c.ras.DrawOp = draw.Over
	c.ras.Draw(c.img, bounds, c.src, image.Point{})
}

// RGBA writes the raster into dst as 8-bit R, G, B, A quadruples.
func (c *Canvas) RGBA(dst []byte) {
	copy(dst, c.img.Pix)
}
