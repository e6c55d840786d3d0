package engine

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/math"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
	"github.com/spaghettifunk/reina/engine/systems"
)

const maxWindowDimension = 16384

type WindowConfig struct {
	// The application name used in windowing.
	Name string `toml:"name"`
	// Window starting position x axis.
	StartPosX uint32 `toml:"x"`
	// Window starting position y axis.
	StartPosY uint32 `toml:"y"`
	// Window starting width.
	StartWidth uint32 `toml:"width"`
	// Window starting height.
	StartHeight uint32 `toml:"height"`
}

type RendererConfig struct {
	// Validation enables the Khronos validation layer.
	Validation bool `toml:"validation"`
	// MaxFrames stops after that many frames; zero runs until the window closes.
	MaxFrames    uint64     `toml:"max_frames"`
	MaxRecursion uint32     `toml:"max_recursion"`
	ClearColor   [4]float32 `toml:"clear_color"`
}

// SceneObjectConfig is one [[scene]] table. Vectors are [x, y, z].
type SceneObjectConfig struct {
	Shape    string     `toml:"shape"`
	Size     [3]float32 `toml:"size"`
	Segments uint32     `toml:"segments"`
	Position [3]float32 `toml:"position"`
	Yaw      float32    `toml:"yaw"`
	Scale    [3]float32 `toml:"scale"`
	Albedo   [3]float32 `toml:"albedo"`
}

type ApplicationConfig struct {
	Window   WindowConfig        `toml:"window"`
	LogLevel string              `toml:"log_level"`
	AssetDir string              `toml:"asset_dir"`
	Shaders  systems.ShaderFiles `toml:"shaders"`
	Renderer RendererConfig      `toml:"renderer"`
	// An empty scene falls back to systems.DefaultScene.
	Scene []SceneObjectConfig `toml:"scene"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Window: WindowConfig{
			Name:        "Reina",
			StartPosX:   100,
			StartPosY:   100,
			StartWidth:  1280,
			StartHeight: 720,
		},
		LogLevel: string(core.LogLevelInfo),
		AssetDir: "assets",
		Shaders:  systems.DefaultShaderFiles(),
		Renderer: RendererConfig{
			MaxRecursion: 1,
			ClearColor:   [4]float32{0, 0, 0, 1},
		},
	}
}

/**
 * @brief Loads the configuration at path on top of the defaults. A missing file
 * yields the defaults; unknown keys are rejected.
 */
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		core.LogWarn("config file %s not found, using defaults", path)
		return config, config.Validate()
	}
	if err != nil {
		core.LogError("failed to open config %s: %s", path, err)
		return nil, errors.Wrapf(err, "failed to open config %s", path)
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(config); err != nil {
		core.LogError("failed to parse config %s: %s", path, err)
		return nil, errors.Wrapf(err, "failed to parse config %s", path)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return config, nil
}

// applyDefaults fills the keys that were present but empty.
func (c *ApplicationConfig) applyDefaults() {
	def := DefaultApplicationConfig()
	if c.Window.Name == "" {
		c.Window.Name = def.Window.Name
	}
	if c.AssetDir == "" {
		c.AssetDir = def.AssetDir
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Renderer.MaxRecursion == 0 {
		c.Renderer.MaxRecursion = def.Renderer.MaxRecursion
	}
	files := []struct {
		dst *string
		def string
	}{
		{&c.Shaders.RayGen, def.Shaders.RayGen},
		{&c.Shaders.Miss, def.Shaders.Miss},
		{&c.Shaders.ClosestHit, def.Shaders.ClosestHit},
		{&c.Shaders.CompositeVertex, def.Shaders.CompositeVertex},
		{&c.Shaders.CompositeFragment, def.Shaders.CompositeFragment},
	}
	for _, f := range files {
		if *f.dst == "" {
			*f.dst = f.def
		}
	}
}

func (c *ApplicationConfig) Validate() error {
	var err error
	switch {
	case c.Window.StartWidth == 0 || c.Window.StartHeight == 0:
		err = errors.Errorf("window size %dx%d must be non-zero", c.Window.StartWidth, c.Window.StartHeight)
	case c.Window.StartWidth > maxWindowDimension || c.Window.StartHeight > maxWindowDimension:
		err = errors.Errorf("window size %dx%d exceeds %d", c.Window.StartWidth, c.Window.StartHeight, maxWindowDimension)
	}
	if err == nil {
		_, err = core.ParseLogLevel(c.LogLevel)
	}
	if err == nil {
		for i, o := range c.Scene {
			if o.Shape != systems.ShapeCube && o.Shape != systems.ShapePlane {
				err = errors.Errorf("scene object %d: unknown shape %q", i, o.Shape)
				break
			}
		}
	}
	if err != nil {
		core.LogError("invalid config: %s", err)
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

func (c *ApplicationConfig) logLevel() core.LogLevel {
	level, err := core.ParseLogLevel(c.LogLevel)
	if err != nil {
		return core.LogLevelInfo
	}
	return level
}

// SceneObjects converts the [[scene]] tables, or returns the default scene
// when none are configured.
func (c *ApplicationConfig) SceneObjects() []systems.SceneObject {
	if len(c.Scene) == 0 {
		return systems.DefaultScene()
	}
	vec := func(v [3]float32) math.Vec3 { return math.NewVec3(v[0], v[1], v[2]) }
	objects := make([]systems.SceneObject, 0, len(c.Scene))
	for _, o := range c.Scene {
		objects = append(objects, systems.SceneObject{
			Shape:    o.Shape,
			Size:     vec(o.Size),
			Segments: o.Segments,
			Position: vec(o.Position),
			Yaw:      o.Yaw,
			Scale:    vec(o.Scale),
			Albedo:   vec(o.Albedo),
		})
	}
	return objects
}

func (c *ApplicationConfig) clearColor() metadata.ClearColor {
	cc := c.Renderer.ClearColor
	return metadata.ClearColor{R: cc[0], G: cc[1], B: cc[2], A: cc[3]}
}
