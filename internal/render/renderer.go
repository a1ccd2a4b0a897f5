package render

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/guidoenr/dandelion/internal/analyzer"
	"github.com/lucasb-eyer/go-colorful"
)

type colorMode string
type backendMode string

const (
	colorModeStyle colorMode = "style"
	colorModeMono  colorMode = "mono"

	backendTerminal backendMode = "terminal"
	backendSDL      backendMode = "sdl"
)

var colorModeNames = []string{
	string(colorModeStyle),
	string(colorModeMono),
}

// ErrRendererQuit is returned by Frame.Present when the window was closed.
var ErrRendererQuit = errors.New("renderer: window closed")

// ColorModeNames returns the supported color modes.
func ColorModeNames() []string {
	out := make([]string, len(colorModeNames))
	copy(out, colorModeNames)
	sort.Strings(out)
	return out
}

func parseColorMode(name string) colorMode {
	switch strings.ToLower(name) {
	case "mono", "monochrome", "bw", "gray":
		return colorModeMono
	default:
		return colorModeStyle
	}
}

// Config controls how a Renderer is created.
type Config struct {
	// Width and Height are terminal cells, or window pixels with the SDL backend.
	Width      int
	Height     int
	Palette    string
	ColorMode  string
	Backend    string
	Resolution int // canvas pixels per terminal column; rows get twice as many
	UseANSI    bool
}

// Renderer owns the drawing canvas and turns it into terminal text or an SDL frame.
type Renderer struct {
	width         int
	height        int
	resolution    int
	canvas        *Canvas
	palette       []rune
	colorMode     colorMode
	mode          backendMode
	useANSI       bool
	pointer       func(x, width float64)
	sdl           *sdlState
	statusBuilder strings.Builder
}

// Frame contains the rendered ASCII lines and status text.
// Present is set when the backend draws somewhere other than stdout.
type Frame struct {
	Lines   []string
	Status  string
	Present func(status string) error
}

// Status is what the status bar reports for a frame.
type Status struct {
	Style  string
	Live   int
	Max    int
	Volume float64
	Wind   float64
	Bands  analyzer.Bands
	FPS    float64
}

var (
	resetANSI       = "\x1b[0m"
	precomputedANSI [256]string
)

func init() {
	for i := range precomputedANSI {
		precomputedANSI[i] = "\x1b[38;5;" + strconv.Itoa(i) + "m"
	}
}

// New creates a Renderer.
func New(cfg Config) (*Renderer, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid dimensions: width=%d height=%d", cfg.Width, cfg.Height)
	}
	if cfg.Resolution <= 0 {
		cfg.Resolution = 2
	}

	r := &Renderer{
		resolution: cfg.Resolution,
		useANSI:    cfg.UseANSI,
		mode:       backendTerminal,
		canvas:     NewCanvas(0, 0),
	}
	r.configure(cfg.Palette, cfg.ColorMode)

	if strings.EqualFold(cfg.Backend, string(backendSDL)) {
		if err := r.initSDL(cfg.Width, cfg.Height); err != nil {
			return nil, fmt.Errorf("sdl backend: %w", err)
		}
	}
	r.Resize(cfg.Width, cfg.Height)
	return r, nil
}

// configure sets the glyph palette and color mode.
func (r *Renderer) configure(paletteName, colorModeName string) {
	if paletteName == "" {
		paletteName = "default"
	}
	r.palette = Palette(paletteName)
	r.colorMode = parseColorMode(colorModeName)
}

// OnPointer registers fn to receive pointer x positions from backends that
// have a pointer. fn runs on the goroutine that calls Present.
func (r *Renderer) OnPointer(fn func(x, width float64)) {
	r.pointer = fn
}

// Canvas returns the drawing surface for the current frame.
func (r *Renderer) Canvas() *Canvas { return r.canvas }

// Resize updates the output dimensions and the canvas behind them.
func (r *Renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if width == r.width && height == r.height {
		return
	}
	r.width = width
	r.height = height
	if r.mode == backendSDL {
		r.canvas.Resize(width, height)
		r.resizeSDL()
		return
	}
	r.canvas.Resize(width*r.resolution, height*r.resolution*2)
}

// Dimensions returns the output size in cells or pixels.
func (r *Renderer) Dimensions() (int, int) { return r.width, r.height }

// Windowed reports whether frames go to an SDL window instead of the terminal.
func (r *Renderer) Windowed() bool { return r.mode == backendSDL }

// Render converts the canvas into a frame.
func (r *Renderer) Render(st Status) Frame {
	status := r.buildStatus(st)
	if r.mode == backendSDL {
		return r.renderSDL(status)
	}
	if r.width <= 0 || r.height <= 0 {
		return Frame{Status: status}
	}

	cellW := r.resolution
	cellH := r.resolution * 2
	lines := make([]string, r.height)
	var builder strings.Builder
	for y := 0; y < r.height; y++ {
		builder.Reset()
		builder.Grow(r.width * 8)
		lastColor := -1
		for x := 0; x < r.width; x++ {
			char, fg := r.sampleCell(x*cellW, y*cellH, cellW, cellH)
			if r.useANSI && char != ' ' && fg != lastColor {
				builder.WriteString(colorCode(fg))
				lastColor = fg
			}
			builder.WriteRune(char)
		}
		if r.useANSI {
			builder.WriteString(resetANSI)
		}
		lines[y] = builder.String()
	}

	return Frame{Lines: lines, Status: status}
}

// sampleCell folds a block of canvas pixels into one glyph and ANSI color.
// Brightness follows the brightest pixel, weighted by how much of the cell is lit,
// so one-pixel pappus lines stay visible.
func (r *Renderer) sampleCell(x0, y0, w, h int) (rune, int) {
	var (
		sum     colorful.Color
		peak    float64
		lit     int
		samples = w * h
	)
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			p := r.canvas.At(x, y)
			l := math.Max(p.R, math.Max(p.G, p.B))
			if l <= 0.02 {
				continue
			}
			lit++
			sum.R += p.R
			sum.G += p.G
			sum.B += p.B
			if l > peak {
				peak = l
			}
		}
	}
	if lit == 0 {
		return ' ', 16
	}

	coverage := float64(lit) / float64(samples)
	brightness := clamp01(peak * (0.35 + 0.65*coverage))
	index := clampInt(int(brightness*float64(len(r.palette)-1)+0.5), 1, len(r.palette)-1)

	if r.colorMode == colorModeMono {
		return r.palette[index], rgbToANSI(brightness, brightness, brightness)
	}
	avg := colorful.Color{R: sum.R / float64(lit), G: sum.G / float64(lit), B: sum.B / float64(lit)}
	return r.palette[index], colorToANSI(avg)
}

// Close releases backend resources.
func (r *Renderer) Close() error {
	return r.closeSDL()
}

func colorCode(index int) string {
	if index < 0 {
		index = 0
	} else if index >= len(precomputedANSI) {
		index = len(precomputedANSI) - 1
	}
	return precomputedANSI[index]
}

// colorToANSI maps a color to the 256-color cube, normalising its value so
// faded seeds keep their hue and the glyph carries the brightness.
func colorToANSI(c colorful.Color) int {
	h, s, _ := c.Hsv()
	if s < 0.08 {
		return 255
	}
	n := colorful.Hsv(h, s, 1)
	return rgbToANSI(n.R, n.G, n.B)
}

func rgbToANSI(r, g, b float64) int {
	r = clamp01(r)
	g = clamp01(g)
	b = clamp01(b)

	// Grayscale ramp for unsaturated colors
	if math.Abs(r-g) < 0.02 && math.Abs(g-b) < 0.02 {
		gray := int(clampFloat(math.Round(r*23), 0, 23))
		return 232 + gray
	}

	ri := int(clampFloat(r*5+0.5, 0, 5))
	gi := int(clampFloat(g*5+0.5, 0, 5))
	bi := int(clampFloat(b*5+0.5, 0, 5))

	return 16 + 36*ri + 6*gi + bi
}

func (r *Renderer) buildStatus(st Status) string {
	builder := &r.statusBuilder
	builder.Reset()
	builder.Grow(128)
	builder.WriteString(strings.ToUpper(st.Style))
	builder.WriteString(" | seeds ")
	builder.WriteString(strconv.Itoa(st.Live))
	builder.WriteByte('/')
	builder.WriteString(strconv.Itoa(st.Max))
	builder.WriteString(" vol ")
	appendFloat(builder, st.Volume, 1)
	builder.WriteString(" wind ")
	if st.Wind >= 0 {
		builder.WriteByte('+')
	}
	appendFloat(builder, st.Wind, 3)
	builder.WriteString(" | bass ")
	appendFloat(builder, st.Bands.Bass, 2)
	builder.WriteString(" mid ")
	appendFloat(builder, st.Bands.Mid, 2)
	builder.WriteString(" treble ")
	appendFloat(builder, st.Bands.Treble, 2)
	builder.WriteString(" fps ")
	appendFloat(builder, st.FPS, 1)
	return builder.String()
}

func appendFloat(builder *strings.Builder, value float64, precision int) {
	var buf [32]byte
	b := strconv.AppendFloat(buf[:0], value, 'f', precision, 64)
	builder.Write(b)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
