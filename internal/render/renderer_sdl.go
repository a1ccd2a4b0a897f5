//go:build sdl

package render

import (
	"errors"
	"fmt"

	"github.com/veandco/go-sdl2/sdl"
)

// sdlState holds the window that shows the canvas one pixel per pixel.
type sdlState struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	pixels   []byte
	texW     int
	texH     int
	title    string
}

func (r *Renderer) initSDL(width, height int) error {
	if r.sdl == nil {
		if err := sdl.InitSubSystem(sdl.INIT_VIDEO); err != nil {
			return err
		}
		r.sdl = &sdlState{}
	}
	r.mode = backendSDL
	r.useANSI = false
	return nil
}

func (r *Renderer) ensureSDLResources() error {
	st := r.sdl
	if st == nil {
		return errors.New("SDL backend not initialized")
	}
	if st.window == nil {
		win, err := sdl.CreateWindow("dandelion",
			sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
			int32(r.width), int32(r.height), sdl.WINDOW_SHOWN)
		if err != nil {
			return fmt.Errorf("create window: %w", err)
		}
		st.window = win
	}
	if st.renderer == nil {
		ren, err := sdl.CreateRenderer(st.window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
		if err != nil {
			return fmt.Errorf("create renderer: %w", err)
		}
		st.renderer = ren
	}
	if st.texture != nil && st.texW == r.width && st.texH == r.height {
		return nil
	}
	if st.texture != nil {
		st.texture.Destroy()
	}
	_ = st.renderer.SetLogicalSize(int32(r.width), int32(r.height))
	tex, err := st.renderer.CreateTexture(sdl.PIXELFORMAT_ABGR8888, sdl.TEXTUREACCESS_STREAMING,
		int32(r.width), int32(r.height))
	if err != nil {
		st.texture = nil
		return fmt.Errorf("create texture: %w", err)
	}
	st.texture = tex
	st.texW, st.texH = r.width, r.height
	st.pixels = make([]byte, r.width*r.height*4)
	return nil
}

func (r *Renderer) renderSDL(status string) Frame {
	if err := r.ensureSDLResources(); err != nil {
		return Frame{
			Status:  "SDL error: " + err.Error(),
			Present: func(string) error { return err },
		}
	}
	r.canvas.RGBA(r.sdl.pixels)
	return Frame{Status: status, Present: r.presentSDL}
}

func (r *Renderer) presentSDL(status string) error {
	st := r.sdl
	if status != "" && status != st.title {
		st.window.SetTitle(status)
		st.title = status
	}
	if err := st.texture.Update(nil, st.pixels, st.texW*4); err != nil {
		return err
	}
	if err := st.renderer.Clear(); err != nil {
		return err
	}
	if err := st.renderer.Copy(st.texture, nil, nil); err != nil {
		return err
	}
	st.renderer.Present()
	return r.pollSDL()
}

// pollSDL drains pending window events. Mouse motion becomes wind.
func (r *Renderer) pollSDL() error {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			return ErrRendererQuit
		case *sdl.KeyboardEvent:
			if e.Type == sdl.KEYDOWN && (e.Keysym.Sym == sdl.K_ESCAPE || e.Keysym.Sym == sdl.K_q) {
				return ErrRendererQuit
			}
		case *sdl.MouseMotionEvent:
			if r.pointer != nil {
				r.pointer(float64(e.X), float64(r.width))
			}
		}
	}
	return nil
}

func (r *Renderer) resizeSDL() {
	if r.sdl != nil {
		r.sdl.texW, r.sdl.texH = 0, 0
	}
}

func (r *Renderer) closeSDL() error {
	st := r.sdl
	if st == nil {
		return nil
	}
	if st.texture != nil {
		st.texture.Destroy()
	}
	if st.renderer != nil {
		st.renderer.Destroy()
	}
	if st.window != nil {
		st.window.Destroy()
	}
	sdl.QuitSubSystem(sdl.INIT_VIDEO)
	r.sdl = nil
	return nil
}

// SupportsSDL reports whether the binary was built with the SDL backend.
func SupportsSDL() bool { return true }
