// Package sdl hosts the emulator's screen on an SDL2 window. It
// implements ports.PixelSink with a double-buffered frame: the
// emulation thread writes pixels into the back buffer and swaps it
// forward at RefreshFrame; the UI thread copies the front buffer into
// an SDL texture whenever it renders. The two only ever meet under the
// window's own lock, which is the synchronization contract the CORE
// asks of its sinks.
package sdl

import (
	"fmt"
	"sync"

	"github.com/veandco/go-sdl2/sdl"
)

const (
	// ScreenWidth and ScreenHeight are the Game Boy's LCD dimensions.
	ScreenWidth  = 160
	ScreenHeight = 144

	bytesPerPixel = 3
	frameSize     = ScreenWidth * ScreenHeight * bytesPerPixel
)

// Window is an SDL2 window that doubles as the CORE's pixel sink.
type Window struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture

	mu      sync.Mutex
	front   []byte
	back    []byte
	powered bool
	dirty   bool
}

// NewWindow opens an SDL2 window scaled up from the native 160x144 by
// scale.
func NewWindow(title string, scale int) (*Window, error) {
	if err := sdl.InitSubSystem(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("sdl video init: %w", err)
	}

	window, err := sdl.CreateWindow(
		title,
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(ScreenWidth*scale), int32(ScreenHeight*scale),
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		return nil, fmt.Errorf("sdl window: %w", err)
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		window.Destroy()
		return nil, fmt.Errorf("sdl renderer: %w", err)
	}

	texture, err := renderer.CreateTexture(
		sdl.PIXELFORMAT_RGB24,
		sdl.TEXTUREACCESS_STREAMING,
		ScreenWidth, ScreenHeight,
	)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		return nil, fmt.Errorf("sdl texture: %w", err)
	}

	return &Window{
		window:   window,
		renderer: renderer,
		texture:  texture,
		front:    make([]byte, frameSize),
		back:     make([]byte, frameSize),
		powered:  true,
	}, nil
}

// PutPixel stores one finished pixel in the back buffer. Called from
// the emulation thread only.
func (w *Window) PutPixel(x, y uint8, r, g, b uint8) {
	i := (int(y)*ScreenWidth + int(x)) * bytesPerPixel
	w.back[i] = r
	w.back[i+1] = g
	w.back[i+2] = b
}

// RefreshFrame publishes the back buffer as the new front buffer.
func (w *Window) RefreshFrame() {
	w.mu.Lock()
	w.front, w.back = w.back, w.front
	w.dirty = true
	w.mu.Unlock()
}

// Power tracks the LCD enable bit; turning the LCD off fills both
// buffers with white, which the next render shows.
func (w *Window) Power(on bool) {
	w.mu.Lock()
	if w.powered && !on {
		for i := range w.back {
			w.back[i] = 0xFF
		}
		copy(w.front, w.back)
		w.dirty = true
	}
	w.powered = on
	w.mu.Unlock()
}

// Render uploads the current front buffer to the texture and presents
// it. Called from the UI thread.
func (w *Window) Render() error {
	w.mu.Lock()
	if w.dirty {
		if err := w.texture.Update(nil, w.front, ScreenWidth*bytesPerPixel); err != nil {
			w.mu.Unlock()
			return err
		}
		w.dirty = false
	}
	w.mu.Unlock()

	if err := w.renderer.Clear(); err != nil {
		return err
	}
	if err := w.renderer.Copy(w.texture, nil, nil); err != nil {
		return err
	}
	w.renderer.Present()
	return nil
}

// SetTitle updates the window title.
func (w *Window) SetTitle(title string) { w.window.SetTitle(title) }

// Destroy releases the window's SDL resources.
func (w *Window) Destroy() {
	w.texture.Destroy()
	w.renderer.Destroy()
	w.window.Destroy()
}
