// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package window implements the engine's windowing system with SDL2.
package window

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"
	vk "github.com/vulkan-go/vulkan"
)

// Init starts SDL video and events and loads the Vulkan library.
// Every Init must be paired with Quit, both on the main thread.
func Init() error {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return errors.Wrap(err, "sdl.Init()")
	}
	if err := sdl.VulkanLoadLibrary(""); err != nil {
		sdl.Quit()
		return errors.Wrap(err, "sdl.VulkanLoadLibrary()")
	}
	return nil
}

// Quit unloads the Vulkan library and shuts SDL down
func Quit() {
	sdl.VulkanUnloadLibrary()
	sdl.Quit()
}

// New creates a Vulkan capable window centered on the screen.
func New(title string, width, height uint32) (*SDL, error) {
	w, err := sdl.CreateWindow(title,
		sdl.WINDOWPOS_CENTERED,
		sdl.WINDOWPOS_CENTERED,
		int32(width),
		int32(height),
		sdl.WINDOW_VULKAN|sdl.WINDOW_SHOWN)
	if err != nil {
		return nil, errors.Wrap(err, "sdl.CreateWindow()")
	}
	return &SDL{window: w}, nil
}

// SDL is an SDL2 window the engine renders into
type SDL struct {
	window *sdl.Window
}

// VulkanInstanceExtensions implements core.Window
func (s *SDL) VulkanInstanceExtensions() []string {
	return s.window.VulkanGetInstanceExtensions()
}

// CreateSurface implements core.Window
func (s *SDL) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	pSurface, err := s.window.VulkanCreateSurface(instance)
	if err != nil {
		return nil, errors.Wrap(err, "window.VulkanCreateSurface()")
	}
	return vk.SurfaceFromPointer(uintptr(pSurface)), nil
}

// DrawableSize implements core.Window
func (s *SDL) DrawableSize() (uint32, uint32) {
	w, h := s.window.VulkanGetDrawableSize()
	if w < 0 || h < 0 {
		return 0, 0
	}
	return uint32(w), uint32(h)
}

// ProcAddr implements core.Window
func (s *SDL) ProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

// SetTitle replaces the window title
func (s *SDL) SetTitle(title string) {
	s.window.SetTitle(title)
}

// Destroy closes the window
func (s *SDL) Destroy() error {
	return s.window.Destroy()
}

// CloseRequested drains pending events and reports whether the
// window was closed or escape was pressed.
func CloseRequested() bool {
	closed := false
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch et := event.(type) {
		case *sdl.KeyboardEvent:
			if et.Keysym.Sym == sdl.K_ESCAPE {
				closed = true
			}
		case *sdl.QuitEvent:
			closed = true
		}
	}
	return closed
}
