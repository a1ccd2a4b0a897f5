package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/guidoenr/dandelion/internal/app"
	"github.com/guidoenr/dandelion/internal/audio"
	"github.com/guidoenr/dandelion/internal/render"
	"github.com/guidoenr/dandelion/internal/style"
	"github.com/guidoenr/dandelion/internal/web"
	"golang.org/x/term"
)

func main() {
	var (
		deviceName = flag.String("audio-device", "", "Optional PortAudio device name (substring match)")
		width      = flag.Int("width", 80, "Frame width in columns (or pixels with -backend sdl)")
		height     = flag.Int("height", 24, "Frame height in rows (or pixels with -backend sdl)")
		targetFPS  = flag.Float64("fps", 60, "Target frames per second")
		bufferSize = flag.Int("buffer-size", 4096, "Capture ring buffer size in samples")
		window     = flag.Int("window", 128, "Samples per volume reading (power of two)")
		noAudio    = flag.Bool("no-audio", false, "Run with a synthetic microphone")
		debug      = flag.Bool("debug", false, "Enable verbose logging")
		showStatus = flag.Bool("status", true, "Display status bar")
		styleName  = flag.String("style", "", "Style preset (see -list-styles)")
		configPath = flag.String("config", "", "YAML file overlaying the built-in styles")
		listStyles = flag.Bool("list-styles", false, "List style presets and exit")
		palette    = flag.String("palette", "default", "Glyph palette ("+strings.Join(render.PaletteNames(), "|")+")")
		colorMode  = flag.String("color-mode", "style", "Color mode ("+strings.Join(render.ColorModeNames(), "|")+")")
		backend    = flag.String("backend", "terminal", "Output backend (terminal|sdl)")
		resolution = flag.Int("resolution", 2, "Canvas pixels per terminal column")
		listDevs   = flag.Bool("list-audio-devices", false, "List available audio input devices and exit")
		noColor    = flag.Bool("no-color", false, "Disable ANSI color output")
		webPort    = flag.Int("web-port", 0, "Serve the web remote on this port (0 disables)")
		profile    = flag.String("profile", "", "Write per-frame timings to this CSV file")
		seed       = flag.Int64("seed", 0, "Random seed (0 picks one from the clock)")
	)

	flag.Parse()

	if *width <= 0 || *height <= 0 {
		log.Fatalf("invalid dimensions: width=%d height=%d", *width, *height)
	}
	if *targetFPS <= 0 {
		log.Fatalf("fps must be positive (got %.2f)", *targetFPS)
	}
	if !audio.IsPow2(*window) {
		log.Fatalf("window must be a power of two (got %d)", *window)
	}
	if *backend == "sdl" {
		if !render.SupportsSDL() {
			log.Fatalf("this binary was built without SDL support; rebuild with -tags sdl")
		}
		if !flagSet("width") {
			*width = 900
		}
		if !flagSet("height") {
			*height = 600
		}
	}

	logger := log.New(os.Stdout, "[dandelion] ", log.LstdFlags)
	if !*debug {
		logger.SetOutput(os.Stderr)
		logger.SetFlags(0)
	}

	styles, err := style.Load(*configPath)
	if err != nil {
		logger.Fatalf("styles: %v", err)
	}
	if *listStyles {
		for _, name := range styles.Names() {
			marker := ""
			if name == styles.Default {
				marker = " (default)"
			}
			st, _ := styles.Get(name)
			fmt.Printf("- %s%s: %d emitter(s), %s layout, %s decay, max %d seeds\n",
				name, marker, st.Emitters, st.Layout, st.Decay, st.MaxParticles)
		}
		return
	}

	if *backend != "sdl" {
		if fd := int(os.Stdout.Fd()); fd >= 0 {
			if w, h, err := term.GetSize(fd); err == nil {
				if w > 0 {
					*width = w
				}
				if h > 0 {
					*height = h
				}
			}
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	needAudio := !*noAudio || *listDevs
	if needAudio {
		if err := audio.Initialize(); err != nil {
			logger.Fatalf("failed to initialize PortAudio: %v", err)
		}
		defer audio.Terminate()
	}

	if *listDevs {
		devices, err := audio.ListInputs()
		if err != nil {
			logger.Fatalf("list devices: %v", err)
		}
		fmt.Printf("\n=== Audio Input Devices ===\n\n")
		for _, dev := range devices {
			marker := ""
			if dev.IsDefault {
				marker = " (default)"
			}
			fmt.Printf("- %s [%s]%s\n    inputs:%d sample:%.0f Hz\n",
				dev.Name, dev.HostAPI, marker, dev.Channels, dev.DefaultSampleHz)
		}
		if dev, err := audio.AutoDetectDevice(); err == nil && dev != nil {
			fmt.Printf("\nAuto-detected input: %s (%.0f Hz, %d channels)\n", dev.Name, dev.DefaultSampleRate, dev.MaxInputChannels)
		}
		return
	}

	a, err := app.New(app.Config{
		DeviceName:    *deviceName,
		Width:         *width,
		Height:        *height,
		TargetFPS:     *targetFPS,
		BufferSize:    *bufferSize,
		Window:        *window,
		DisableAudio:  *noAudio,
		ShowStatusBar: *showStatus,
		Palette:       *palette,
		ColorMode:     *colorMode,
		Backend:       *backend,
		Resolution:    *resolution,
		UseANSI:       !*noColor,
		Styles:        styles,
		Style:         *styleName,
		Seed:          *seed,
		ProfilePath:   *profile,
		Log:           logger,
	})
	if err != nil {
		audio.Terminate()
		os.Exit(reportStartupError(os.Stderr, err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "cleanup error: %v\n", err)
		}
	}()

	if *webPort > 0 {
		srv := web.NewServer(a, logger)
		go func() {
			if err := srv.Start(ctx, *webPort); err != nil {
				logger.Printf("[web] server stopped: %v", err)
			}
		}()
	}

	if err := a.Run(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Println("\nExiting...")
			return
		}
		logger.Fatalf("runtime error: %v", err)
	}
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// reportStartupError explains why the app could not start and returns the exit code.
func reportStartupError(w io.Writer, err error) int {
	if errors.Is(err, audio.ErrPermissionDenied) {
		fmt.Fprintf(w, "\ndandelion needs a microphone: %v\n", err)
		fmt.Fprintf(w, "Grant microphone access or pick a device with -audio-device (see -list-audio-devices).\n")
		return 1
	}
	fmt.Fprintf(w, "dandelion: failed to start: %v\n", err)
	return 1
}
