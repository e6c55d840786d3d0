package renderer

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

// Ray tracing descriptor set layout.
const (
	BindingTarget uint32 = iota
	BindingTLAS
	BindingVertices
	BindingIndices
	BindingModelRanges
	BindingObjectProperties
)

// Composite descriptor set layout.
const (
	BindingCompositeSource uint32 = 0
)

// Shaders is the SPIR-V for every stage. Modules are created for pipeline
// construction and destroyed right after.
type Shaders struct {
	RayGen            []uint32
	Miss              []uint32
	ClosestHit        []uint32
	CompositeVertex   []uint32
	CompositeFragment []uint32
}

type Config struct {
	// MaxFrames stops the loop after that many frames. Zero runs until close.
	MaxFrames    uint64
	ClearColor   metadata.ClearColor
	TargetFormat metadata.Format
	MaxRecursion uint32
}

// Renderer wires the allocator, acceleration structures, descriptor sets,
// pipelines, shader binding table and frame loop together. Everything it
// creates is tracked by an arena and released in reverse order.
type Renderer struct {
	backend   Backend
	swapchain Swapchain
	window    Window

	arena     *Arena
	registry  *core.Registry
	allocator *Allocator
	builder   *AccelerationStructureBuilder

	scene        *SceneBuffers
	bottomLevels []*AccelerationStructure
	topLevel     *AccelerationStructure
	target       *Image

	rayTracingSet    *DescriptorBindingSet
	compositeSet     *DescriptorBindingSet
	rayTracingLayout metadata.Handle
	compositeLayout  metadata.Handle
	rayTracing       metadata.Pipeline
	composite        metadata.Pipeline
	sbt              *ShaderBindingTable
	loop             *FrameLoop
}

// New performs the whole setup. On failure everything acquired so far is
// released and no renderer is returned.
func New(backend Backend, swapchain Swapchain, window Window, models []metadata.Model, shaders Shaders, cfg Config) (*Renderer, error) {
	if cfg.TargetFormat == metadata.FormatUndefined {
		cfg.TargetFormat = metadata.FormatR32G32B32A32Sfloat
	}
	if cfg.MaxRecursion == 0 {
		cfg.MaxRecursion = 1
	}

	r := &Renderer{
		backend:   backend,
		swapchain: swapchain,
		window:    window,
		arena:     NewArena(),
		registry:  core.NewRegistry(),
		allocator: NewAllocator(backend),
	}
	props := backend.RayTracingProperties()
	r.builder = NewAccelerationStructureBuilder(backend, r.allocator, props.MinScratchOffsetAlignment)

	steps := []struct {
		name string
		fn   func() error
	}{
		{"scene buffers", func() error { return r.createScene(models) }},
		{"acceleration structures", r.createAccelerationStructures},
		{"ray trace target", func() error { return r.createTarget(cfg.TargetFormat) }},
		{"descriptor sets", r.createDescriptorSets},
		{"pipelines", func() error { return r.createPipelines(shaders, cfg.MaxRecursion) }},
		{"shader binding table", func() error { return r.createShaderBindingTable(props) }},
		{"frame loop", func() error { return r.createFrameLoop(cfg) }},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			r.arena.Release()
			return nil, errors.Wrapf(err, "renderer setup: %s", step.name)
		}
		core.LogDebug("renderer setup: %s done", step.name)
	}
	return r, nil
}

func (r *Renderer) createScene(models []metadata.Model) error {
	scene, err := NewSceneBuffers(r.allocator, models)
	if err != nil {
		return err
	}
	r.scene = scene
	r.arena.Track("scene buffers", func() { scene.Destroy(r.allocator) })
	return nil
}

func (r *Renderer) createAccelerationStructures() error {
	instances := make([]Instance, 0, len(r.scene.ModelRanges))
	for i := range r.scene.ModelRanges {
		blas, err := r.builder.BuildBottomLevel(r.scene.Geometry(i))
		if err != nil {
			return errors.Wrapf(err, "model %d", i)
		}
		r.bottomLevels = append(r.bottomLevels, blas)
		r.arena.Track("bottom-level acceleration structure", func() { r.builder.Destroy(blas) })
	}
	for i, blas := range r.bottomLevels {
		instances = append(instances, NewInstance(blas, r.scene.Transforms[i], uint32(i)))
	}

	tlas, err := r.builder.BuildTopLevel(instances)
	if err != nil {
		return err
	}
	r.topLevel = tlas
	r.arena.Track("top-level acceleration structure", func() { r.builder.Destroy(tlas) })
	return nil
}

func (r *Renderer) createTarget(format metadata.Format) error {
	extent := r.swapchain.Extent()
	img, err := r.allocator.CreateImage(format, extent,
		metadata.ImageUsageStorage|metadata.ImageUsageTransferSrc,
		metadata.MemoryPropertyDeviceLocal)
	if err != nil {
		return err
	}
	r.target = img
	r.arena.Track("ray trace target", func() { r.allocator.DestroyImage(img) })
	return nil
}

func (r *Renderer) rayTracingWrites() []BindingWrite {
	buffer := func(b *Buffer) metadata.DescriptorResource {
		return metadata.DescriptorResource{Buffer: b.Handle, Range: b.Size}
	}
	return []BindingWrite{
		{BindingTarget, metadata.DescriptorResource{ImageView: r.target.View, ImageLayout: metadata.ImageLayoutGeneral}},
		{BindingTLAS, metadata.DescriptorResource{AccelerationStructure: r.topLevel.Handle}},
		{BindingVertices, buffer(r.scene.Vertices)},
		{BindingIndices, buffer(r.scene.Indices)},
		{BindingModelRanges, buffer(r.scene.Ranges)},
		{BindingObjectProperties, buffer(r.scene.Properties)},
	}
}

func (r *Renderer) compositeWrites() []BindingWrite {
	return []BindingWrite{
		{BindingCompositeSource, metadata.DescriptorResource{ImageView: r.target.View, ImageLayout: metadata.ImageLayoutGeneral}},
	}
}

func (r *Renderer) createDescriptorSets() error {
	hit := metadata.ShaderStageClosestHit
	rtSet, err := NewDescriptorBindingSet(r.backend, r.registry, []DescriptorBinding{
		{BindingPoint: BindingTarget, Type: metadata.DescriptorTypeStorageImage, DescriptorCount: 1, StageFlags: metadata.ShaderStageRaygen},
		{BindingPoint: BindingTLAS, Type: metadata.DescriptorTypeAccelerationStructure, DescriptorCount: 1, StageFlags: metadata.ShaderStageRaygen | hit},
		{BindingPoint: BindingVertices, Type: metadata.DescriptorTypeStorageBuffer, DescriptorCount: 1, StageFlags: hit},
		{BindingPoint: BindingIndices, Type: metadata.DescriptorTypeStorageBuffer, DescriptorCount: 1, StageFlags: hit},
		{BindingPoint: BindingModelRanges, Type: metadata.DescriptorTypeStorageBuffer, DescriptorCount: 1, StageFlags: hit},
		{BindingPoint: BindingObjectProperties, Type: metadata.DescriptorTypeStorageBuffer, DescriptorCount: 1, StageFlags: hit},
	})
	if err != nil {
		return err
	}
	r.rayTracingSet = rtSet
	r.arena.Track("ray tracing descriptor set", rtSet.Destroy)

	compositeSet, err := NewDescriptorBindingSet(r.backend, r.registry, []DescriptorBinding{
		{BindingPoint: BindingCompositeSource, Type: metadata.DescriptorTypeStorageImage, DescriptorCount: 1, StageFlags: metadata.ShaderStageFragment},
	})
	if err != nil {
		return err
	}
	r.compositeSet = compositeSet
	r.arena.Track("composite descriptor set", compositeSet.Destroy)
	return nil
}

// shaderModules creates one module per non-empty code blob. The returned
// release destroys all of them.
func (r *Renderer) shaderModules(codes ...[]uint32) ([]metadata.Handle, func(), error) {
	modules := make([]metadata.Handle, len(codes))
	release := func() {
		for _, m := range modules {
			if !m.IsNull() {
				r.backend.DestroyShaderModule(m)
			}
		}
	}
	for i, code := range codes {
		if len(code) == 0 {
			continue
		}
		m, err := r.backend.CreateShaderModule(code)
		if err != nil {
			release()
			return nil, nil, errors.Wrapf(err, "shader module %d", i)
		}
		modules[i] = m
	}
	return modules, release, nil
}

func (r *Renderer) createPipelines(shaders Shaders, maxRecursion uint32) error {
	// The shader binding table assumes ray generation, miss and hit groups in that order.
	for name, code := range map[string][]uint32{
		"ray generation":     shaders.RayGen,
		"miss":               shaders.Miss,
		"closest hit":        shaders.ClosestHit,
		"composite vertex":   shaders.CompositeVertex,
		"composite fragment": shaders.CompositeFragment,
	} {
		if len(code) != 0 {
			continue
		}
		err := errors.Errorf("%s shader is required", name)
		core.LogError(err.Error())
		return err
	}

	modules, releaseModules, err := r.shaderModules(shaders.RayGen, shaders.Miss, shaders.ClosestHit, shaders.CompositeVertex, shaders.CompositeFragment)
	if err != nil {
		return err
	}
	defer releaseModules()

	rtLayout, err := r.backend.CreatePipelineLayout([]metadata.Handle{r.rayTracingSet.Layout}, metadata.ShaderStageRaygen, PushConstantsSize)
	if err != nil {
		return errors.Wrap(err, "ray tracing pipeline layout")
	}
	r.rayTracingLayout = rtLayout
	r.arena.Track("ray tracing pipeline layout", func() { r.backend.DestroyPipelineLayout(rtLayout) })

	rt, err := r.backend.CreateRayTracingPipeline(rtLayout, metadata.RayTracingShaders{
		RayGen:     modules[0],
		Miss:       modules[1],
		ClosestHit: modules[2],
	}, maxRecursion)
	if err != nil {
		return errors.Wrap(err, "ray tracing pipeline")
	}
	r.rayTracing = rt
	r.arena.Track("ray tracing pipeline", func() { r.backend.DestroyPipeline(rt) })

	compositeLayout, err := r.backend.CreatePipelineLayout([]metadata.Handle{r.compositeSet.Layout}, 0, 0)
	if err != nil {
		return errors.Wrap(err, "composite pipeline layout")
	}
	r.compositeLayout = compositeLayout
	r.arena.Track("composite pipeline layout", func() { r.backend.DestroyPipelineLayout(compositeLayout) })

	cp, err := r.backend.CreateCompositePipeline(compositeLayout, modules[3], modules[4], r.swapchain.RenderPass())
	if err != nil {
		return errors.Wrap(err, "composite pipeline")
	}
	r.composite = cp
	r.arena.Track("composite pipeline", func() { r.backend.DestroyPipeline(cp) })
	return nil
}

func (r *Renderer) createShaderBindingTable(props metadata.RayTracingProperties) error {
	sbt, err := BuildShaderBindingTable(r.backend, r.allocator, r.rayTracing, SpacingFromProperties(props), r.rayTracing.GroupCount)
	if err != nil {
		return err
	}
	r.sbt = sbt
	r.arena.Track("shader binding table", func() { sbt.Destroy(r.allocator) })
	return nil
}

func (r *Renderer) createFrameLoop(cfg Config) error {
	loop, err := NewFrameLoop(r.backend, r.window, r.swapchain, FrameResources{
		Target:             r.target,
		RayTracingPipeline: r.rayTracing,
		RayTracingSet:      r.rayTracingSet,
		RayTracingWrites:   r.rayTracingWrites(),
		SBT:                r.sbt,
		CompositePipeline:  r.composite,
		CompositeSet:       r.compositeSet,
		CompositeWrites:    r.compositeWrites(),
		ClearColor:         cfg.ClearColor,
	}, cfg.MaxFrames)
	if err != nil {
		return err
	}
	r.loop = loop
	r.arena.Track("frame loop", loop.Destroy)
	return nil
}

func (r *Renderer) Run() error {
	return r.loop.Run()
}

func (r *Renderer) FrameLoop() *FrameLoop {
	return r.loop
}

// Shutdown waits for the device through the frame loop teardown and then
// releases everything else in reverse creation order.
func (r *Renderer) Shutdown() {
	r.arena.Release()
}
