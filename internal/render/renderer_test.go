package render

import (
	"math"
	"strings"
	"testing"

	"github.com/guidoenr/dandelion/internal/field"
	"github.com/lucasb-eyer/go-colorful"
)

var _ field.Surface = (*Canvas)(nil)

var white = colorful.Color{R: 1, G: 1, B: 1}

// near reports whether got is within two 8-bit steps of want on every channel.
func near(got, want colorful.Color) bool {
	const tol = 2.0 / 255
	return math.Abs(got.R-want.R) <= tol && math.Abs(got.G-want.G) <= tol && math.Abs(got.B-want.B) <= tol
}

func TestCanvasFillEllipse(t *testing.T) {
	c := NewCanvas(20, 20)
	c.Clear()
	c.SetColor(white)
	c.FillEllipse(10, 10, 3, 3)

	if got := c.At(10, 10); !near(got, white) {
		t.Fatalf("centre pixel=%v want white", got)
	}
	if got := c.At(0, 0); got != (colorful.Color{}) {
		t.Fatalf("corner pixel=%v want black", got)
	}
	if got := c.At(13, 13); got.R >= 1 {
		t.Fatalf("pixel outside the rim fully lit: %v", got)
	}
}

func TestCanvasTinyEllipseStillLightsCentre(t *testing.T) {
	c := NewCanvas(10, 10)
	c.Clear()
	c.SetColor(white)
	c.FillEllipse(4.9, 4.9, 0.1, 0.1)
	if got := c.At(4, 4); !near(got, white) {
		t.Fatalf("sub-pixel ellipse did not light its pixel: %v", got)
	}
	if got := c.At(5, 5); got != (colorful.Color{}) {
		t.Fatalf("sub-pixel ellipse spilled into a neighbour: %v", got)
	}
}

func TestCanvasAlphaBlendsOncePerPrimitive(t *testing.T) {
	c := NewCanvas(10, 10)
	c.Clear()
	c.SetColor(white)
	c.SetAlpha(0.5)
	c.SetLineWidth(3)
	c.StrokeLine(1, 5, 8, 5)

	got := c.At(5, 5)
	if !near(got, colorful.Color{R: 0.5, G: 0.5, B: 0.5}) {
		t.Fatalf("pixel=%v want half white", got)
	}

	c.StrokeLine(1, 5, 8, 5)
	if got := c.At(5, 5); !near(got, colorful.Color{R: 0.75, G: 0.75, B: 0.75}) {
		t.Fatalf("second stroke should composite over the first, pixel=%v", got)
	}
}

func TestCanvasSaveRestoreTransform(t *testing.T) {
	c := NewCanvas(40, 40)
	c.Clear()
	c.SetColor(white)

	c.Save()
	c.Translate(30, 30)
	c.Rotate(math.Pi / 2)
	c.StrokeLine(0, 0, 5, 0) // rotated to point down
	c.Restore()

	if got := c.At(30, 34); got.R < 0.3 {
		t.Fatalf("rotated line missing at (30,34): %v", got)
	}
	if got := c.At(34, 30); got.R > 0.1 {
		t.Fatalf("line was not rotated: %v", got)
	}

	c.FillEllipse(2, 2, 1, 1)
	if got := c.At(2, 2); got.R < 0.5 {
		t.Fatalf("restore did not reset the transform: %v", got)
	}
}

func TestCanvasClearResetsState(t *testing.T) {
	c := NewCanvas(8, 8)
	c.SetAlpha(0)
	c.Translate(100, 100)
	c.Clear()
	c.SetColor(white)
	c.FillEllipse(4, 4, 2, 2)
	if got := c.At(4, 4); !near(got, white) {
		t.Fatalf("clear should reset alpha and transform, pixel=%v", got)
	}
}

func TestCanvasClipsAtEdges(t *testing.T) {
	c := NewCanvas(10, 10)
	c.Clear()
	c.SetColor(white)
	c.FillEllipse(-50, -50, 3, 3)
	c.StrokeLine(-20, 5, -10, 5)
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if got := c.At(x, y); got != (colorful.Color{}) {
				t.Fatalf("off-canvas shapes lit (%d,%d)=%v", x, y, got)
			}
		}
	}

	c.FillEllipse(0, 0, 3, 3)
	if got := c.At(0, 0); !near(got, white) {
		t.Fatalf("ellipse clipped by the corner should still fill it, pixel=%v", got)
	}
}

func TestCanvasRGBA(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Clear()
	c.SetColor(colorful.Color{R: 1})
	c.FillEllipse(0.5, 0.5, 0.4, 0.4)
	buf := make([]byte, 8)
	c.RGBA(buf)
	if buf[0] < 250 || buf[1] != 0 || buf[3] != 255 || buf[4] != 0 || buf[7] != 255 {
		t.Fatalf("rgba=%v", buf)
	}
}

func newTestRenderer(t *testing.T, useANSI bool) *Renderer {
	t.Helper()
	r, err := New(Config{Width: 10, Height: 5, Resolution: 2, UseANSI: useANSI})
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return r
}

func TestRendererCanvasSize(t *testing.T) {
	r := newTestRenderer(t, false)
	if w, h := r.Canvas().Dimensions(); w != 20 || h != 20 {
		t.Fatalf("canvas=%dx%d want 20x20", w, h)
	}
	r.Resize(30, 10)
	if w, h := r.Canvas().Dimensions(); w != 60 || h != 40 {
		t.Fatalf("canvas=%dx%d want 60x40", w, h)
	}
	r.Resize(0, 10)
	if w, h := r.Dimensions(); w != 30 || h != 10 {
		t.Fatalf("zero resize should be ignored, got %dx%d", w, h)
	}
}

func TestRenderBlankAndLit(t *testing.T) {
	r := newTestRenderer(t, false)
	c := r.Canvas()
	c.Clear()
	frame := r.Render(Status{Style: "breeze"})
	for _, line := range frame.Lines {
		if strings.TrimSpace(line) != "" {
			t.Fatalf("blank canvas rendered %q", line)
		}
	}

	c.SetColor(white)
	c.FillEllipse(5, 5, 4, 4)
	frame = r.Render(Status{Style: "breeze"})
	if len(frame.Lines) != 5 {
		t.Fatalf("lines=%d want=5", len(frame.Lines))
	}
	cell := []rune(frame.Lines[1])[2]
	if cell == ' ' {
		t.Fatalf("lit cell rendered blank: %q", frame.Lines[1])
	}
	if frame.Present != nil {
		t.Fatalf("terminal frames print their lines, Present must be nil")
	}
}

func TestRenderANSIColors(t *testing.T) {
	r := newTestRenderer(t, true)
	c := r.Canvas()
	c.Clear()
	c.SetColor(colorful.Color{R: 0.53, G: 0.69, B: 0.29})
	c.FillEllipse(5, 5, 4, 4)
	frame := r.Render(Status{})
	if !strings.Contains(frame.Lines[1], "\x1b[38;5;") {
		t.Fatalf("expected ANSI color in %q", frame.Lines[1])
	}
	if !strings.HasSuffix(frame.Lines[1], resetANSI) {
		t.Fatalf("line should end with reset")
	}
}

func TestStatusLine(t *testing.T) {
	r := newTestRenderer(t, false)
	frame := r.Render(Status{Style: "meadow", Live: 12, Max: 900, Volume: 23.4, Wind: -0.0126, FPS: 59.9})
	for _, want := range []string{"MEADOW", "seeds 12/900", "vol 23.4", "wind -0.013", "fps 59.9"} {
		if !strings.Contains(frame.Status, want) {
			t.Fatalf("status %q missing %q", frame.Status, want)
		}
	}
}

func TestNewRejectsBadDimensions(t *testing.T) {
	if _, err := New(Config{Width: 0, Height: 5}); err == nil {
		t.Fatalf("expected error for zero width")
	}
}

func TestRGBToANSI(t *testing.T) {
	cases := map[[3]float64]int{
		{0, 0, 0}: 232,
		{1, 1, 1}: 255,
		{1, 0, 0}: 196,
		{0, 0, 1}: 21,
	}
	for in, want := range cases {
		if got := rgbToANSI(in[0], in[1], in[2]); got != want {
			t.Fatalf("rgbToANSI(%v)=%d want=%d", in, got, want)
		}
	}
}
