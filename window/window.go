// Package window owns the SDL2 window the graphics context is brought up
// against.
package window

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
)

// Window is a Vulkan-capable SDL2 window. All methods must be called from
// the thread that called Open.
type Window struct {
	window *sdl.Window
	closed bool
}

// Open initializes SDL video and creates the window.
func Open(title string, width, height int) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "init sdl video")
	}

	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, int32(width), int32(height), sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "create window")
	}

	return &Window{window: window}, nil
}

// RequiredInstanceExtensions lists the instance extensions needed to
// present to this window.
func (w *Window) RequiredInstanceExtensions() []string {
	return w.window.VulkanGetInstanceExtensions()
}

// ProcAddr returns the vkGetInstanceProcAddr SDL loaded for this window.
func (w *Window) ProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

// PollEvents drains the event queue and reports whether the window should
// close.
func (w *Window) PollEvents() bool {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if IsCloseEvent(event) {
			w.closed = true
		}
	}
	return w.closed
}

func (w *Window) ShouldClose() bool {
	return w.closed
}

// Destroy closes the window and shuts SDL down.
func (w *Window) Destroy() {
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
	}
	sdl.Quit()
}

// IsCloseEvent reports whether the event asks the application to exit:
// a quit, a window close or Escape being pressed.
func IsCloseEvent(event sdl.Event) bool {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		return true
	case *sdl.WindowEvent:
		return e.Event == sdl.WINDOWEVENT_CLOSE
	case *sdl.KeyboardEvent:
		return e.Type == sdl.KEYDOWN && e.Keysym.Sym == sdl.K_ESCAPE
	}
	return false
}
