package systems

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/assets"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

/** @brief Compiled SPIR-V file names, relative to the asset directory. */
type ShaderFiles struct {
	RayGen            string `toml:"raygen"`
	Miss              string `toml:"miss"`
	ClosestHit        string `toml:"closest_hit"`
	CompositeVertex   string `toml:"composite_vertex"`
	CompositeFragment string `toml:"composite_fragment"`
}

func DefaultShaderFiles() ShaderFiles {
	return ShaderFiles{
		RayGen:            "shaders/raytrace.rgen.spv",
		Miss:              "shaders/raytrace.rmiss.spv",
		ClosestHit:        "shaders/raytrace.rchit.spv",
		CompositeVertex:   "shaders/composite.vert.spv",
		CompositeFragment: "shaders/composite.frag.spv",
	}
}

// ShaderSystem loads the pipeline shaders. Pipelines are built once, so a
// shader that changes on disk afterwards only takes effect after a restart.
type ShaderSystem struct {
	assetManager *assets.AssetManager
	jobs         *JobSystem
	bus          *core.EventBus
	loaded       map[string]bool
}

func NewShaderSystem(am *assets.AssetManager, jobs *JobSystem, bus *core.EventBus) *ShaderSystem {
	ss := &ShaderSystem{
		assetManager: am,
		jobs:         jobs,
		bus:          bus,
		loaded:       make(map[string]bool),
	}
	bus.Register(core.EVENT_CODE_SHADER_CHANGED, ss, ss.onShaderChanged)
	return ss
}

func (ss *ShaderSystem) Shutdown() {
	ss.bus.Unregister(core.EVENT_CODE_SHADER_CHANGED, ss)
}

// Load reads every stage on the job system and waits for all of them.
func (ss *ShaderSystem) Load(files ShaderFiles) (renderer.Shaders, error) {
	var shaders renderer.Shaders
	stages := []struct {
		name string
		file string
		dst  *[]uint32
	}{
		{"raygen", files.RayGen, &shaders.RayGen},
		{"miss", files.Miss, &shaders.Miss},
		{"closest hit", files.ClosestHit, &shaders.ClosestHit},
		{"composite vertex", files.CompositeVertex, &shaders.CompositeVertex},
		{"composite fragment", files.CompositeFragment, &shaders.CompositeFragment},
	}

	tasks := make([]JobTask, 0, len(stages))
	for _, stage := range stages {
		stage := stage
		if stage.file == "" {
			err := errors.Errorf("no file configured for the %s shader", stage.name)
			core.LogError(err.Error())
			return renderer.Shaders{}, err
		}
		tasks = append(tasks, JobTask{
			Name: stage.name,
			Run: func() error {
				res, err := ss.assetManager.LoadAsset(stage.file, map[string]string{"name": stage.name})
				if err != nil {
					return err
				}
				code, ok := res.Data.([]uint32)
				if !ok {
					return errors.Errorf("%s is not a compiled shader", stage.file)
				}
				*stage.dst = code
				return nil
			},
		})
	}

	if err := ss.jobs.RunAll(tasks); err != nil {
		core.LogError("failed to load shaders: %s", err)
		return renderer.Shaders{}, err
	}
	for _, stage := range stages {
		ss.loaded[stage.file] = true
		core.LogDebug("loaded %s shader from %s (%d words)", stage.name, stage.file, len(*stage.dst))
	}
	return shaders, nil
}

func (ss *ShaderSystem) onShaderChanged(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	path := data.Data.C[0]
	name := ss.assetManager.Relative(path)
	info, ok := ss.assetManager.Lookup(name)
	if !ok || info.Type != metadata.ResourceTypeShader {
		return false
	}
	if ss.loaded[name] {
		core.LogWarn("shader %s changed on disk; restart to rebuild the pipelines", path)
	}
	return false
}
