package engine

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/assets"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/platform"
	"github.com/spaghettifunk/reina/engine/renderer"
	"github.com/spaghettifunk/reina/engine/renderer/vulkan"
	"github.com/spaghettifunk/reina/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Everything has been released
	EngineStageShutdown
)

type Engine struct {
	currentStage Stage
	config       *ApplicationConfig
	runID        uuid.UUID

	bus           *core.EventBus
	input         *core.Input
	platform      *platform.Platform
	assetManager  *assets.AssetManager
	systemManager *systems.SystemManager
	backend       *vulkan.VulkanBackend
	renderer      *renderer.Renderer
}

func New(config *ApplicationConfig) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.New()
	core.LogWith("run", runID.String())
	core.LogSetLevel(config.logLevel())

	bus := core.NewEventBus()
	input := core.NewInput(bus)

	am, err := assets.NewAssetManager(bus)
	if err != nil {
		return nil, err
	}

	sm, err := systems.NewSystemManager(am, bus)
	if err != nil {
		am.Shutdown()
		return nil, err
	}

	return &Engine{
		currentStage:  EngineStageUninitialized,
		config:        config,
		runID:         runID,
		bus:           bus,
		input:         input,
		platform:      platform.New(bus, input),
		assetManager:  am,
		systemManager: sm,
	}, nil
}

func (e *Engine) RunID() uuid.UUID {
	return e.runID
}

/**
 * @brief Opens the window, loads shaders and the scene, brings up the Vulkan
 * backend and builds the renderer. On failure everything acquired so far is
 * released.
 */
func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	// register some events
	e.bus.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.bus.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.bus.Register(core.EVENT_CODE_RESIZED, e, e.onResized)

	if err := e.initialize(); err != nil {
		e.Shutdown()
		return err
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("Engine initialized.")
	return nil
}

func (e *Engine) initialize() error {
	w := e.config.Window
	if err := e.platform.Startup(w.Name, w.StartPosX, w.StartPosY, w.StartWidth, w.StartHeight); err != nil {
		return err
	}

	if err := e.assetManager.Initialize(e.config.AssetDir); err != nil {
		return err
	}

	shaders, err := e.systemManager.LoadShaders(e.config.Shaders)
	if err != nil {
		return err
	}
	models, err := e.systemManager.BuildScene(e.config.SceneObjects())
	if err != nil {
		return err
	}

	e.backend = vulkan.New(e.platform, vulkan.Config{
		ApplicationName: w.Name,
		Validation:      e.config.Renderer.Validation,
	})
	if err := e.backend.Initialize(); err != nil {
		e.backend = nil
		return errors.Wrap(err, "vulkan backend")
	}

	r, err := renderer.New(e.backend, e.backend.Swapchain(), e.platform, models, shaders, renderer.Config{
		MaxFrames:    e.config.Renderer.MaxFrames,
		ClearColor:   e.config.clearColor(),
		MaxRecursion: e.config.Renderer.MaxRecursion,
	})
	if err != nil {
		return err
	}
	e.renderer = r
	return nil
}

// Run drives the frame loop until the window closes, the frame limit is
// reached or a frame fails.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return errors.New("engine is not initialized")
	}
	e.currentStage = EngineStageRunning

	err := e.renderer.Run()
	metrics := e.renderer.FrameLoop().Metrics()
	core.LogInfo("Rendered %d frames (last average %.2fms).", metrics.TotalFrames(), metrics.FrameTime())
	return err
}

// RequestClose is safe to call from any goroutine.
func (e *Engine) RequestClose() {
	e.platform.RequestClose()
}

// Shutdown releases everything in reverse order of creation. It tolerates a
// partially initialized engine and repeated calls.
func (e *Engine) Shutdown() {
	if e.currentStage == EngineStageShutdown {
		return
	}
	e.currentStage = EngineStageShuttingDown

	if e.renderer != nil {
		e.renderer.Shutdown()
		e.renderer = nil
	}
	if e.backend != nil {
		e.backend.Shutdown()
		e.backend = nil
	}
	e.systemManager.Shutdown()
	e.assetManager.Shutdown()
	e.platform.Shutdown()

	e.bus.Unregister(core.EVENT_CODE_APPLICATION_QUIT, e)
	e.bus.Unregister(core.EVENT_CODE_KEY_PRESSED, e)
	e.bus.Unregister(core.EVENT_CODE_RESIZED, e)

	e.currentStage = EngineStageShutdown
	core.LogInfo("Engine shut down.")
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.platform.RequestClose()
		return true
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	keyCode := core.KeyCode(data.Data.U16[0])
	if keyCode == core.KEY_ESCAPE {
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		e.bus.Fire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
		// Block anything else from processing this.
		return true
	}
	core.LogDebug("'%c' key pressed in window.", rune(keyCode))
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	width, height := data.Data.U32[0], data.Data.U32[1]
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, presentation is paused until it is restored.")
		return false
	}
	core.LogDebug("Window resize: %d, %d. The swapchain keeps its original extent.", width, height)
	return false
}
