package systems

import (
	"runtime"

	"github.com/spaghettifunk/reina/engine/assets"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

// SystemManager owns the CPU-side systems the renderer is fed from.
type SystemManager struct {
	jobSystem    *JobSystem
	shaderSystem *ShaderSystem
}

func NewSystemManager(am *assets.AssetManager, bus *core.EventBus) (*SystemManager, error) {
	js, err := NewJobSystem(runtime.NumCPU(), 0)
	if err != nil {
		return nil, err
	}

	return &SystemManager{
		jobSystem:    js,
		shaderSystem: NewShaderSystem(am, js, bus),
	}, nil
}

func (sm *SystemManager) LoadShaders(files ShaderFiles) (renderer.Shaders, error) {
	return sm.shaderSystem.Load(files)
}

func (sm *SystemManager) BuildScene(objects []SceneObject) ([]metadata.Model, error) {
	models, err := BuildScene(objects)
	if err != nil {
		return nil, err
	}
	core.LogInfo("Scene generated: %d models.", len(models))
	return models, nil
}

func (sm *SystemManager) Shutdown() {
	sm.shaderSystem.Shutdown()
	sm.jobSystem.Shutdown()
}
