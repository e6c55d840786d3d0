package platform

import (
	"runtime"
	"sync/atomic"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

var keyMap = map[glfw.Key]core.KeyCode{
	glfw.KeyEnter:  core.KEY_ENTER,
	glfw.KeyEscape: core.KEY_ESCAPE,
	glfw.KeySpace:  core.KEY_SPACE,
	glfw.KeyA:      core.KEY_A,
	glfw.KeyD:      core.KEY_D,
	glfw.KeyP:      core.KEY_P,
	glfw.KeyS:      core.KEY_S,
	glfw.KeyW:      core.KEY_W,
}

/**
 * @brief The application window. Input is translated into core events; the
 * framebuffer size is fixed for the lifetime of the window.
 */
type Platform struct {
	Window *glfw.Window

	bus   *core.EventBus
	input *core.Input

	closeRequested atomic.Bool
}

func New(bus *core.EventBus, input *core.Input) *Platform {
	return &Platform{
		bus:   bus,
		input: input,
	}
}

func (p *Platform) Startup(applicationName string, x, y, width, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return errors.Wrap(err, "failed to initialize glfw")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		err := errors.New("glfw reports no Vulkan loader")
		core.LogError(err.Error())
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	// The swapchain is never recreated, so the window keeps its size.
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		glfw.Terminate()
		core.LogError("failed to create window: %s", err)
		return errors.Wrap(err, "failed to create window")
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetCursorPosCallback(p.cursorPosCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetCloseCallback(func(w *glfw.Window) {
		p.bus.Post(core.EVENT_CODE_APPLICATION_QUIT, p, core.EventContext{})
	})
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	core.LogInfo("Window '%s' created (%dx%d).", applicationName, width, height)
	return nil
}

func (p *Platform) Shutdown() {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
}

// PollEvents pumps the window system and delivers the events it produced.
func (p *Platform) PollEvents() {
	p.input.Update()
	glfw.PollEvents()
	p.bus.Dispatch()
}

func (p *Platform) ShouldClose() bool {
	return p.closeRequested.Load() || p.Window.ShouldClose()
}

// RequestClose may be called from any goroutine; the frame loop observes it
// on its next iteration.
func (p *Platform) RequestClose() {
	p.closeRequested.Store(true)
}

func (p *Platform) IsMinimized() bool {
	if p.Window.GetAttrib(glfw.Iconified) == glfw.True {
		return true
	}
	return p.FramebufferExtent().IsZero()
}

func (p *Platform) FramebufferExtent() metadata.Extent2D {
	w, h := p.Window.GetFramebufferSize()
	if w < 0 || h < 0 {
		return metadata.Extent2D{}
	}
	return metadata.Extent2D{Width: uint32(w), Height: uint32(h)}
}

func (p *Platform) GetRequiredExtensionNames() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

// CreateSurface returns the raw VkSurfaceKHR for instance.
func (p *Platform) CreateSurface(instance interface{}) (uintptr, error) {
	surface, err := p.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		return 0, errors.Wrap(err, "vulkan surface creation failed")
	}
	return surface, nil
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	code, ok := keyMap[key]
	if !ok || action == glfw.Repeat {
		return
	}
	p.input.ProcessKey(code, action == glfw.Press)
}

func (p *Platform) cursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	p.input.ProcessMouseMove(xpos, ypos)
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	ctx := core.EventContext{}
	ctx.Data.U32[0] = uint32(width)
	ctx.Data.U32[1] = uint32(height)
	p.bus.Post(core.EVENT_CODE_RESIZED, p, ctx)
}
