package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/eiannone/keyboard"
	"github.com/guidoenr/dandelion/internal/analyzer"
	"github.com/guidoenr/dandelion/internal/audio"
	"github.com/guidoenr/dandelion/internal/field"
	"github.com/guidoenr/dandelion/internal/render"
	"github.com/guidoenr/dandelion/internal/style"
	"golang.org/x/term"
)

// Config configures the application runtime.
type Config struct {
	DeviceName    string
	Width         int
	Height        int
	TargetFPS     float64
	BufferSize    int
	Window        int
	DisableAudio  bool
	ShowStatusBar bool
	Palette       string
	ColorMode     string
	Backend       string
	Resolution    int
	UseANSI       bool
	Styles        *style.Set
	Style         string
	Seed          int64
	ProfilePath   string
	Out           io.Writer
	Log           *log.Logger

	// Source and Clock replace the microphone and the frame ticker when set.
	Source VolumeSource
	Clock  FrameClock
	// FixedSize keeps Width and Height instead of following the terminal.
	FixedSize       bool
	DisableKeyboard bool
}

// EventKind identifies an input event.
type EventKind int

const (
	EventPointer EventKind = iota
	EventNudge
	EventNextStyle
	EventSetStyle
	EventRelayout
	EventQuit
)

// Event is an input delivered to the simulation goroutine.
// X and Width are used by EventPointer, Delta by EventNudge and Style by EventSetStyle.
type Event struct {
	Kind  EventKind
	X     float64
	Width float64
	Delta float64
	Style string
}

// EmitterStatus describes one emitter in a Snapshot.
type EmitterStatus struct {
	ID        int     `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Live      int     `json:"live"`
	Remaining float64 `json:"remaining"`
}

// Snapshot is the state published after each frame.
type Snapshot struct {
	Style    string          `json:"style"`
	Styles   []string        `json:"styles"`
	Live     int             `json:"live"`
	Max      int             `json:"max"`
	Spawned  int             `json:"spawned"`
	Culled   int             `json:"culled"`
	Volume   float64         `json:"volume"`
	Wind     float64         `json:"wind"`
	Pointer  float64         `json:"pointer"`
	Bands    analyzer.Bands  `json:"bands"`
	FPS      float64         `json:"fps"`
	Frame    uint64          `json:"frame"`
	Emitters []EmitterStatus `json:"emitters"`
}

const (
	nudgeStep     = 1.0 / 24.0
	eventCapacity = 64
)

var errQuit = errors.New("quit")

// App ties together audio capture, analysis, simulation, and rendering.
type App struct {
	cfg      Config
	styles   *style.Set
	field    *field.Field
	wind     *field.Wind
	renderer *render.Renderer
	capture  *audio.Capture
	source   VolumeSource
	sampler  *analyzer.Sampler
	spectrum *analyzer.Spectrum
	clock    FrameClock
	prof     *profiler
	out      *bufio.Writer
	log      *log.Logger

	events       chan Event
	last         time.Time
	frame        uint64
	pointer      float64 // fraction of the width, 0..1
	width        int
	height       int
	renderHeight int
	deviceLabel  string

	mu       sync.RWMutex
	snapshot Snapshot
}

// New constructs the application using the provided configuration.
func New(cfg Config) (*App, error) {
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = 60
	}
	if cfg.Log == nil {
		cfg.Log = log.New(os.Stderr, "", log.LstdFlags)
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Width <= 0 {
		cfg.Width = 80
	}
	if cfg.Height <= 0 {
		cfg.Height = 24
	}
	if cfg.Window <= 0 {
		cfg.Window = 128
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Styles == nil {
		set, err := style.Load("")
		if err != nil {
			return nil, err
		}
		cfg.Styles = set
	}
	st, err := cfg.Styles.Get(cfg.Style)
	if err != nil {
		return nil, err
	}

	renderHeight := cfg.Height
	if cfg.ShowStatusBar && renderHeight > 1 {
		renderHeight--
	}
	renderer, err := render.New(render.Config{
		Width:      cfg.Width,
		Height:     renderHeight,
		Palette:    cfg.Palette,
		ColorMode:  cfg.ColorMode,
		Backend:    cfg.Backend,
		Resolution: cfg.Resolution,
		UseANSI:    cfg.UseANSI,
	})
	if err != nil {
		return nil, err
	}

	wind := field.NewWind(st.WindScale)
	fld, err := field.New(st, wind, rand.New(rand.NewSource(cfg.Seed)))
	if err != nil {
		_ = renderer.Close()
		return nil, err
	}

	app := &App{
		cfg:          cfg,
		styles:       cfg.Styles,
		field:        fld,
		wind:         wind,
		renderer:     renderer,
		sampler:      analyzer.NewSampler(analyzer.Bias),
		log:          cfg.Log,
		out:          bufio.NewWriter(cfg.Out),
		events:       make(chan Event, eventCapacity),
		pointer:      0.5,
		width:        cfg.Width,
		height:       cfg.Height,
		renderHeight: renderHeight,
	}
	renderer.OnPointer(app.applyPointer)

	sampleRate := 44_100.0
	switch {
	case cfg.Source != nil:
		app.source = cfg.Source
	case cfg.DisableAudio:
		app.source = newSynthSource(cfg.Window, cfg.Seed)
		app.log.Println("audio disabled, using synthetic generator")
	default:
		capture, err := audio.NewCapture(audio.Config{
			DeviceName: cfg.DeviceName,
			BufferSize: cfg.BufferSize,
			Channels:   2,
			Window:     cfg.Window,
		})
		if err != nil {
			_ = renderer.Close()
			return nil, fmt.Errorf("audio capture: %w", err)
		}
		app.capture = capture
		app.source = capture
		sampleRate = capture.SampleRate()
		if info := capture.Device(); info != nil {
			app.deviceLabel = info.Name
			app.log.Printf("audio capture started on \"%s\" @ %.0f Hz", info.Name, sampleRate)
		} else {
			app.log.Printf("audio capture started @ %.0f Hz", sampleRate)
		}
	}
	app.spectrum = analyzer.NewSpectrum(sampleRate)

	app.clock = cfg.Clock
	if app.clock == nil {
		app.clock = NewTickerClock(cfg.TargetFPS)
	}
	app.prof = newProfiler(cfg.ProfilePath, app.log)
	app.last = time.Now()
	app.log.Printf("style %s, %d emitter(s), max %d seeds", st.Name, st.Emitters, st.MaxParticles)
	return app, nil
}

// Post queues an event for the simulation goroutine. It reports false when
// the queue is full and the event was dropped.
func (a *App) Post(evt Event) bool {
	select {
	case a.events <- evt:
		return true
	default:
		return false
	}
}

// Snapshot returns the state published after the latest frame.
func (a *App) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	snap := a.snapshot
	snap.Emitters = append([]EmitterStatus(nil), a.snapshot.Emitters...)
	snap.Styles = append([]string(nil), a.snapshot.Styles...)
	return snap
}

// Styles lists the available style names.
func (a *App) Styles() []string { return a.styles.Names() }

// Run starts the frame loop until context cancellation or a quit request.
func (a *App) Run(ctx context.Context) error {
	defer a.clock.Stop()

	terminal := !a.renderer.Windowed()
	if terminal {
		enterAltScreen(a.out)
		clearScreen(a.out)
		hideCursor(a.out)
		_ = a.out.Flush()
		defer func() {
			showCursor(a.out)
			exitAltScreen(a.out)
			_ = a.out.Flush()
		}()
	}

	inputCtx, cancelInput := context.WithCancel(ctx)
	defer cancelInput()
	if !a.cfg.DisableKeyboard {
		a.startInputListener(inputCtx)
	}
	a.ensureDimensions()

	ticks := a.clock.C()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-a.events:
			if err := a.handleEvent(evt); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				return err
			}
		case <-ticks:
			if err := a.step(); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				return err
			}
		}
	}
}

// Close releases held resources.
func (a *App) Close() error {
	var errs []error
	if a.capture != nil {
		errs = append(errs, a.capture.Close())
	}
	errs = append(errs, a.prof.Close(), a.renderer.Close())
	return errors.Join(errs...)
}

func (a *App) step() error {
	a.ensureDimensions()

	now := time.Now()
	delta := now.Sub(a.last).Seconds()
	if delta <= 0 {
		delta = 1.0 / a.cfg.TargetFPS
	}
	a.last = now
	a.frame++

	a.prof.beginFrame()
	buf := a.source.Read()
	volume := a.sampler.Volume(buf)
	bands := a.spectrum.Analyze(buf)
	a.prof.markSection("analyze", a.field.Len())

	stats := a.field.Step(volume, a.renderer.Canvas())
	a.prof.markSection("simulate", stats.Live)

	fps := 1.0 / delta
	frame := a.renderer.Render(render.Status{
		Style:  a.field.Style().Name,
		Live:   stats.Live,
		Max:    stats.Max,
		Volume: volume,
		Wind:   a.wind.Value(),
		Bands:  bands,
		FPS:    fps,
	})
	statusText := frame.Status
	if a.deviceLabel != "" {
		statusText = fmt.Sprintf("%s | mic=%s", statusText, a.deviceLabel)
	}
	a.prof.markSection("raster", stats.Live)

	if frame.Present != nil {
		if err := frame.Present(statusText); err != nil {
			if errors.Is(err, render.ErrRendererQuit) {
				return errQuit
			}
			return err
		}
	} else {
		moveCursorHome(a.out)
		for _, line := range frame.Lines {
			a.out.WriteString(line)
			a.out.WriteByte('\n')
		}
		if a.cfg.ShowStatusBar {
			a.out.WriteString(statusBar(statusText, a.width))
		}
		if err := a.out.Flush(); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
	}
	a.prof.markSection("present", stats.Live)
	a.prof.endFrame(stats.Live)

	a.publish(stats, volume, bands, fps)
	return nil
}

func (a *App) publish(stats field.Stats, volume float64, bands analyzer.Bands, fps float64) {
	emitters := a.field.Emitters()
	statuses := make([]EmitterStatus, len(emitters))
	for i, e := range emitters {
		statuses[i] = EmitterStatus{
			ID:        e.ID,
			X:         e.X,
			Y:         e.Y,
			Live:      a.field.LiveFor(e.ID),
			Remaining: a.field.Remaining(e.ID),
		}
	}

	a.mu.Lock()
	a.snapshot = Snapshot{
		Style:    a.field.Style().Name,
		Styles:   a.styles.Names(),
		Live:     stats.Live,
		Max:      stats.Max,
		Spawned:  stats.Spawned,
		Culled:   stats.Culled,
		Volume:   volume,
		Wind:     a.wind.Value(),
		Pointer:  a.pointer,
		Bands:    bands,
		FPS:      fps,
		Frame:    a.frame,
		Emitters: statuses,
	}
	a.mu.Unlock()
}

func (a *App) handleEvent(evt Event) error {
	switch evt.Kind {
	case EventPointer:
		a.applyPointer(evt.X, evt.Width)
	case EventNudge:
		a.pointer = clamp01(a.pointer + evt.Delta)
		a.wind.SetFromPointer(a.pointer, 1)
	case EventNextStyle:
		return a.switchStyle(a.styles.Next(a.field.Style().Name))
	case EventSetStyle:
		st, err := a.styles.Get(evt.Style)
		if err != nil {
			a.log.Printf("style %q: %v", evt.Style, err)
			return nil
		}
		return a.switchStyle(st)
	case EventRelayout:
		a.field.Relayout()
		a.log.Printf("emitters relaid out")
	case EventQuit:
		return errQuit
	}
	return nil
}

func (a *App) applyPointer(x, width float64) {
	if width <= 0 {
		a.wind.SetFromPointer(x, width)
		return
	}
	a.pointer = clamp01(x / width)
	a.wind.SetFromPointer(x, width)
}

func (a *App) switchStyle(st style.Style) error {
	if err := a.field.SetStyle(st); err != nil {
		return fmt.Errorf("set style %s: %w", st.Name, err)
	}
	a.log.Printf("style -> %s", st.Name)
	return nil
}

func (a *App) ensureDimensions() {
	if a.cfg.FixedSize || a.renderer.Windowed() {
		return
	}
	fd := int(os.Stdout.Fd())
	if fd < 0 {
		return
	}
	w, h, err := term.GetSize(fd)
	if err != nil || w <= 0 || h <= 0 {
		return
	}

	renderHeight := h
	if a.cfg.ShowStatusBar && renderHeight > 1 {
		renderHeight--
	}
	if renderHeight <= 0 {
		renderHeight = 1
	}

	if w == a.width && h == a.height && renderHeight == a.renderHeight {
		return
	}

	a.width = w
	a.height = h
	a.renderHeight = renderHeight
	a.renderer.Resize(w, renderHeight)
}

func (a *App) startInputListener(ctx context.Context) {
	if err := keyboard.Open(); err != nil {
		a.log.Printf("keyboard input disabled: %v", err)
		return
	}

	closeOnce := &sync.Once{}
	go func() {
		<-ctx.Done()
		closeOnce.Do(func() {
			_ = keyboard.Close()
		})
	}()

	go func() {
		defer closeOnce.Do(func() {
			_ = keyboard.Close()
		})
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			evt, ok := keyEvent(char, key)
			if !ok {
				continue
			}
			if evt.Kind == EventQuit {
				select {
				case a.events <- evt:
				case <-ctx.Done():
				}
				return
			}
			a.Post(evt)
		}
	}()
}

func keyEvent(char rune, key keyboard.Key) (Event, bool) {
	switch {
	case key == keyboard.KeyEsc || key == keyboard.KeyCtrlC:
		return Event{Kind: EventQuit}, true
	case key == keyboard.KeyArrowLeft:
		return Event{Kind: EventNudge, Delta: -nudgeStep}, true
	case key == keyboard.KeyArrowRight:
		return Event{Kind: EventNudge, Delta: nudgeStep}, true
	}
	switch char {
	case 'q', 'Q':
		return Event{Kind: EventQuit}, true
	case 's', 'S':
		return Event{Kind: EventNextStyle}, true
	case 'r', 'R':
		return Event{Kind: EventRelayout}, true
	}
	return Event{}, false
}

func statusBar(text string, width int) string {
	if width <= 0 {
		return text
	}
	n := utf8.RuneCountInString(text)
	if n > width {
		return string([]rune(text)[:width])
	}
	return text + strings.Repeat(" ", width-n)
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

func clearScreen(w io.Writer) {
	io.WriteString(w, "\x1b[2J")
	moveCursorHome(w)
}

func moveCursorHome(w io.Writer) { io.WriteString(w, "\x1b[H") }
func hideCursor(w io.Writer) { io.WriteString(w, "\x1b[?25l") }
func showCursor(w io.Writer) { io.WriteString(w, "\x1b[?25h") }
func enterAltScreen(w io.Writer) { io.WriteString(w, "\x1b[?1049h") }
func exitAltScreen(w io.Writer) { io.WriteString(w, "\x1b[?1049l\x1b[0m") }
