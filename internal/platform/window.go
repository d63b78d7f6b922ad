// Package platform implements the windowing & input collaborator: window/
// surface creation, relative-mouse-mode toggle, a bound
// keymap stack, and the wall-clock/performance counters the FPS console
// command and frame-timing read. The core treats all of this as an
// external contract it never implements directly; this package is the
// concrete implementation cmd/voxelengine wires in, grounded on
// openglhelper/window.go's GLFW window, generalized from an OpenGL
// context window to a bare Vulkan surface window (no gl.Init, no context
// creation, glfw.NoAPI instead of a GL context hint).
package platform

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
)

// Window is the surface + input source the engine drives each frame.
type Window struct {
	handle        *glfw.Window
	width, height int
	mouseCaptured bool

	lastCursorX, lastCursorY float64
	haveLastCursor           bool

	keys *Stack
}

// NewWindow creates a GLFW window hinted for a Vulkan (not OpenGL)
// surface, grounded on NewWindow's glfw.Init/WindowHint/CreateWindow
// sequence, generalized to omit the OpenGL context entirely (Vulkan owns
// its own device/swapchain instead).
func NewWindow(width, height int, title string, resizable bool) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("platform: init glfw: %w", err)
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return nil, fmt.Errorf("platform: glfw built without Vulkan support")
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	if resizable {
		glfw.WindowHint(glfw.Resizable, glfw.True)
	} else {
		glfw.WindowHint(glfw.Resizable, glfw.False)
	}

	handle, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("platform: create window: %w", err)
	}

	w := &Window{handle: handle, width: width, height: height, keys: NewStack()}
	handle.SetKeyCallback(w.keyCallback)
	handle.SetCursorPosCallback(w.cursorPosCallback)
	handle.SetFramebufferSizeCallback(w.framebufferSizeCallback)
	return w, nil
}

// RequiredInstanceExtensions returns the VK_KHR_surface family of
// extensions glfw needs for vk.CreateInstance, per
// glfw.GetRequiredInstanceExtensions.
func RequiredInstanceExtensions() []string {
	return glfw.GetRequiredInstanceExtensions()
}

// CreateSurface wraps glfw's CreateWindowSurface, the collaborator
// contract's "Vulkan surface" obligation.
func (w *Window) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surfacePtr, err := w.handle.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.Surface(vk.NullHandle), fmt.Errorf("platform: create surface: %w", err)
	}
	return vk.SurfaceFromPointer(surfacePtr), nil
}

// FramebufferSize returns the window's current pixel dimensions, read by
// the resize-on-suboptimal path.
func (w *Window) FramebufferSize() (int, int) {
	return w.handle.GetFramebufferSize()
}

// ShouldClose reports the quit collaborator event.
func (w *Window) ShouldClose() bool { return w.handle.ShouldClose() }

// PollEvents pumps the platform event queue, dispatching to the bound
// keymap stack via the registered callbacks.
func (w *Window) PollEvents() { glfw.PollEvents() }

// Keymaps returns the bound keymap stack events are dispatched through.
func (w *Window) Keymaps() *Stack { return w.keys }

// SetRelativeMouseMode toggles cursor capture, grounded on
// Window.SetMouseCaptured.
func (w *Window) SetRelativeMouseMode(enabled bool) {
	w.mouseCaptured = enabled
	if enabled {
		w.handle.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	} else {
		w.handle.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	}
}

// RelativeMouseMode reports whether the cursor is currently captured.
func (w *Window) RelativeMouseMode() bool { return w.mouseCaptured }

// Close tears down the window and terminates glfw.
func (w *Window) Close() {
	w.handle.Destroy()
	glfw.Terminate()
}

func (w *Window) keyCallback(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	if action != glfw.Press && action != glfw.Repeat {
		return
	}
	w.keys.DispatchKey(int(key))
}

func (w *Window) cursorPosCallback(_ *glfw.Window, xpos, ypos float64) {
	if !w.mouseCaptured {
		w.haveLastCursor = false
		return
	}
	if !w.haveLastCursor {
		w.lastCursorX, w.lastCursorY = xpos, ypos
		w.haveLastCursor = true
		return
	}
	xrel, yrel := xpos-w.lastCursorX, ypos-w.lastCursorY
	w.lastCursorX, w.lastCursorY = xpos, ypos
	w.keys.DispatchMouseMotion(xrel, yrel)
}

func (w *Window) framebufferSizeCallback(_ *glfw.Window, width, height int) {
	w.width, w.height = width, height
}
