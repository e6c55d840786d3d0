package renderer

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

type fenceState struct {
	signaled bool
	pending  bool
}

// fakeBackend records every call in order and tracks live objects so tests can
// check ordering and leaks. Calls named in failOn return the given error.
type fakeBackend struct {
	next   uint64
	events []string
	live   map[metadata.Handle]string
	faults []string
	failOn map[string]error

	memoryProperties metadata.MemoryProperties
	memoryTypeBits   uint32
	memory           map[metadata.Handle][]byte
	allocations      []fakeAllocation
	addressOffset    uint64

	buildSizes metadata.AccelerationStructureBuildSizes
	builds     []metadata.AccelerationStructureBuildGeometry

	rtProperties metadata.RayTracingProperties
	handleBytes  int

	writes  []metadata.DescriptorWrite
	pools   map[metadata.Handle][]metadata.DescriptorPoolSize
	layouts map[metadata.Handle][]metadata.DescriptorSetLayoutBinding

	fences  map[metadata.Handle]*fenceState
	submits []SubmitInfo
	cmds    []*fakeCommandBuffer
}

type fakeAllocation struct {
	Size      uint64
	TypeIndex uint32
	Flags     metadata.MemoryAllocateFlags
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		live:   map[metadata.Handle]string{},
		failOn: map[string]error{},
		memoryProperties: metadata.MemoryProperties{Types: []metadata.MemoryType{
			{PropertyFlags: metadata.MemoryPropertyDeviceLocal},
			{PropertyFlags: metadata.MemoryPropertyHostVisible | metadata.MemoryPropertyHostCoherent},
		}},
		memoryTypeBits: 0b11,
		memory:         map[metadata.Handle][]byte{},
		buildSizes: metadata.AccelerationStructureBuildSizes{
			AccelerationStructureSize: 1024,
			BuildScratchSize:          512,
		},
		rtProperties: metadata.RayTracingProperties{
			ShaderGroupHandleSize:      32,
			ShaderGroupHandleAlignment: 32,
			ShaderGroupBaseAlignment:   64,
			MaxRayRecursionDepth:       1,
			MinScratchOffsetAlignment:  128,
		},
		pools:   map[metadata.Handle][]metadata.DescriptorPoolSize{},
		layouts: map[metadata.Handle][]metadata.DescriptorSetLayoutBinding{},
		fences:  map[metadata.Handle]*fenceState{},
	}
}

func (f *fakeBackend) record(format string, args ...interface{}) {
	f.events = append(f.events, fmt.Sprintf(format, args...))
}

func (f *fakeBackend) fail(name string) error {
	if err, ok := f.failOn[name]; ok {
		f.record("%s failed", name)
		return err
	}
	return nil
}

func (f *fakeBackend) create(kind string) metadata.Handle {
	f.next++
	h := metadata.Handle(f.next)
	f.live[h] = kind
	f.record("create %s", kind)
	return h
}

func (f *fakeBackend) destroy(kind string, h metadata.Handle) {
	got, ok := f.live[h]
	if !ok || got != kind {
		f.faults = append(f.faults, fmt.Sprintf("destroy %s %d: not live (%q)", kind, h, got))
		return
	}
	delete(f.live, h)
	f.record("destroy %s", kind)
}

// index returns the position of the first event starting with prefix at or after from.
func (f *fakeBackend) index(prefix string, from int) int {
	for i := from; i < len(f.events); i++ {
		if strings.HasPrefix(f.events[i], prefix) {
			return i
		}
	}
	return -1
}

func (f *fakeBackend) count(prefix string) int {
	n := 0
	for _, e := range f.events {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeBackend) liveOf(kind string) int {
	n := 0
	for _, k := range f.live {
		if k == kind {
			n++
		}
	}
	return n
}

func (f *fakeBackend) MemoryProperties() metadata.MemoryProperties {
	return f.memoryProperties
}

func (f *fakeBackend) CreateBuffer(size uint64, usage metadata.BufferUsageFlags) (metadata.Handle, metadata.MemoryRequirements, error) {
	if err := f.fail("CreateBuffer"); err != nil {
		return metadata.NullHandle, metadata.MemoryRequirements{}, err
	}
	return f.create("buffer"), metadata.MemoryRequirements{Size: size, Alignment: 256, MemoryTypeBits: f.memoryTypeBits}, nil
}

func (f *fakeBackend) DestroyBuffer(buffer metadata.Handle) { f.destroy("buffer", buffer) }

func (f *fakeBackend) BindBufferMemory(buffer, memory metadata.Handle) error {
	if err := f.fail("BindBufferMemory"); err != nil {
		return err
	}
	f.record("bind buffer memory")
	return nil
}

func (f *fakeBackend) BufferDeviceAddress(buffer metadata.Handle) (uint64, error) {
	if err := f.fail("BufferDeviceAddress"); err != nil {
		return 0, err
	}
	return uint64(buffer)<<16 + f.addressOffset, nil
}

func (f *fakeBackend) CreateImage(format metadata.Format, extent metadata.Extent2D, usage metadata.ImageUsageFlags) (metadata.Handle, metadata.MemoryRequirements, error) {
	if err := f.fail("CreateImage"); err != nil {
		return metadata.NullHandle, metadata.MemoryRequirements{}, err
	}
	size := uint64(extent.Width) * uint64(extent.Height) * 16
	return f.create("image"), metadata.MemoryRequirements{Size: size, Alignment: 4096, MemoryTypeBits: f.memoryTypeBits}, nil
}

func (f *fakeBackend) DestroyImage(image metadata.Handle) { f.destroy("image", image) }

func (f *fakeBackend) BindImageMemory(image, memory metadata.Handle) error {
	return f.fail("BindImageMemory")
}

func (f *fakeBackend) CreateImageView(image metadata.Handle, format metadata.Format) (metadata.Handle, error) {
	if err := f.fail("CreateImageView"); err != nil {
		return metadata.NullHandle, err
	}
	return f.create("image view"), nil
}

func (f *fakeBackend) DestroyImageView(view metadata.Handle) { f.destroy("image view", view) }

func (f *fakeBackend) AllocateMemory(size uint64, memoryTypeIndex uint32, flags metadata.MemoryAllocateFlags) (metadata.Handle, error) {
	if err := f.fail("AllocateMemory"); err != nil {
		return metadata.NullHandle, err
	}
	f.allocations = append(f.allocations, fakeAllocation{Size: size, TypeIndex: memoryTypeIndex, Flags: flags})
	h := f.create("memory")
	f.memory[h] = make([]byte, size)
	return h, nil
}

func (f *fakeBackend) FreeMemory(memory metadata.Handle) {
	f.destroy("memory", memory)
	delete(f.memory, memory)
}

func (f *fakeBackend) WriteMemory(memory metadata.Handle, offset uint64, data []byte) error {
	if err := f.fail("WriteMemory"); err != nil {
		return err
	}
	mem, ok := f.memory[memory]
	if !ok {
		return errors.Errorf("memory %d not allocated", memory)
	}
	copy(mem[offset:], data)
	return nil
}

func (f *fakeBackend) CreateDescriptorSetLayout(bindings []metadata.DescriptorSetLayoutBinding) (metadata.Handle, error) {
	if err := f.fail("CreateDescriptorSetLayout"); err != nil {
		return metadata.NullHandle, err
	}
	h := f.create("descriptor set layout")
	f.layouts[h] = bindings
	return h, nil
}

func (f *fakeBackend) DestroyDescriptorSetLayout(layout metadata.Handle) {
	f.destroy("descriptor set layout", layout)
}

func (f *fakeBackend) CreateDescriptorPool(sizes []metadata.DescriptorPoolSize, maxSets uint32) (metadata.Handle, error) {
	if err := f.fail("CreateDescriptorPool"); err != nil {
		return metadata.NullHandle, err
	}
	h := f.create("descriptor pool")
	f.pools[h] = sizes
	return h, nil
}

func (f *fakeBackend) DestroyDescriptorPool(pool metadata.Handle) {
	f.destroy("descriptor pool", pool)
}

func (f *fakeBackend) AllocateDescriptorSet(pool, layout metadata.Handle) (metadata.Handle, error) {
	if err := f.fail("AllocateDescriptorSet"); err != nil {
		return metadata.NullHandle, err
	}
	// sets are freed with their pool
	f.next++
	f.record("allocate descriptor set")
	return metadata.Handle(f.next), nil
}

func (f *fakeBackend) UpdateDescriptorSet(write metadata.DescriptorWrite) {
	f.writes = append(f.writes, write)
	f.record("update descriptor set %d binding %d", write.Set, write.Binding)
}

func (f *fakeBackend) AccelerationStructureBuildSizes(build metadata.AccelerationStructureBuildGeometry) (metadata.AccelerationStructureBuildSizes, error) {
	if err := f.fail("AccelerationStructureBuildSizes"); err != nil {
		return metadata.AccelerationStructureBuildSizes{}, err
	}
	f.record("query %s build sizes", build.Level)
	return f.buildSizes, nil
}

func (f *fakeBackend) CreateAccelerationStructure(buffer metadata.Handle, size uint64, level metadata.AccelerationStructureLevel) (metadata.Handle, error) {
	if err := f.fail("CreateAccelerationStructure"); err != nil {
		return metadata.NullHandle, err
	}
	return f.create("acceleration structure"), nil
}

func (f *fakeBackend) AccelerationStructureDeviceAddress(as metadata.Handle) (uint64, error) {
	f.record("acceleration structure address")
	return uint64(as)<<20 | 0xA5, nil
}

func (f *fakeBackend) DestroyAccelerationStructure(as metadata.Handle) {
	f.destroy("acceleration structure", as)
}

func (f *fakeBackend) RayTracingProperties() metadata.RayTracingProperties {
	return f.rtProperties
}

func (f *fakeBackend) ShaderGroupHandles(pipeline metadata.Handle, firstGroup, groupCount uint32, dataSize int) ([]byte, error) {
	if err := f.fail("ShaderGroupHandles"); err != nil {
		return nil, err
	}
	size := int(f.rtProperties.ShaderGroupHandleSize)
	n := dataSize
	if f.handleBytes > 0 {
		n = f.handleBytes
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i/size) + 1
	}
	return out, nil
}

func (f *fakeBackend) CreateShaderModule(code []uint32) (metadata.Handle, error) {
	if err := f.fail("CreateShaderModule"); err != nil {
		return metadata.NullHandle, err
	}
	return f.create("shader module"), nil
}

func (f *fakeBackend) DestroyShaderModule(module metadata.Handle) {
	f.destroy("shader module", module)
}

func (f *fakeBackend) CreatePipelineLayout(setLayouts []metadata.Handle, pushConstantStages metadata.ShaderStageFlags, pushConstantSize uint32) (metadata.Handle, error) {
	if err := f.fail("CreatePipelineLayout"); err != nil {
		return metadata.NullHandle, err
	}
	return f.create("pipeline layout"), nil
}

func (f *fakeBackend) DestroyPipelineLayout(layout metadata.Handle) {
	f.destroy("pipeline layout", layout)
}

func (f *fakeBackend) CreateRayTracingPipeline(layout metadata.Handle, shaders metadata.RayTracingShaders, maxRecursion uint32) (metadata.Pipeline, error) {
	if err := f.fail("CreateRayTracingPipeline"); err != nil {
		return metadata.Pipeline{}, err
	}
	var groups uint32
	for _, m := range []metadata.Handle{shaders.RayGen, shaders.Miss, shaders.ClosestHit} {
		if !m.IsNull() {
			groups++
		}
	}
	return metadata.Pipeline{Handle: f.create("pipeline"), Layout: layout, GroupCount: groups}, nil
}

func (f *fakeBackend) CreateCompositePipeline(layout, vertex, fragment, renderPass metadata.Handle) (metadata.Pipeline, error) {
	if err := f.fail("CreateCompositePipeline"); err != nil {
		return metadata.Pipeline{}, err
	}
	return metadata.Pipeline{Handle: f.create("pipeline"), Layout: layout}, nil
}

func (f *fakeBackend) DestroyPipeline(pipeline metadata.Pipeline) {
	f.destroy("pipeline", pipeline.Handle)
}

func (f *fakeBackend) CreateFence(signaled bool) (metadata.Handle, error) {
	if err := f.fail("CreateFence"); err != nil {
		return metadata.NullHandle, err
	}
	h := f.create("fence")
	f.fences[h] = &fenceState{signaled: signaled}
	return h, nil
}

func (f *fakeBackend) DestroyFence(fence metadata.Handle) {
	f.destroy("fence", fence)
	delete(f.fences, fence)
}

// WaitForFence completes the submission the fence guards. Waiting on a fence
// that is neither signalled nor pending would block forever.
func (f *fakeBackend) WaitForFence(fence metadata.Handle, timeout uint64) error {
	f.record("wait fence")
	s := f.fences[fence]
	if s.pending {
		s.pending = false
		s.signaled = true
	}
	if !s.signaled {
		f.faults = append(f.faults, "wait on fence that will never signal")
		return errors.New("deadlock")
	}
	return nil
}

func (f *fakeBackend) ResetFence(fence metadata.Handle) error {
	if err := f.fail("ResetFence"); err != nil {
		return err
	}
	f.record("reset fence")
	f.fences[fence].signaled = false
	return nil
}

func (f *fakeBackend) CreateSemaphore() (metadata.Handle, error) {
	if err := f.fail("CreateSemaphore"); err != nil {
		return metadata.NullHandle, err
	}
	return f.create("semaphore"), nil
}

func (f *fakeBackend) DestroySemaphore(semaphore metadata.Handle) {
	f.destroy("semaphore", semaphore)
}

func (f *fakeBackend) AllocateCommandBuffer() (CommandBuffer, error) {
	if err := f.fail("AllocateCommandBuffer"); err != nil {
		return nil, err
	}
	cmd := &fakeCommandBuffer{device: f, handle: f.create("command buffer")}
	f.cmds = append(f.cmds, cmd)
	return cmd, nil
}

func (f *fakeBackend) FreeCommandBuffer(cmd CommandBuffer) {
	f.destroy("command buffer", cmd.Handle())
}

func (f *fakeBackend) pendingWork() bool {
	for _, s := range f.fences {
		if s.pending {
			return true
		}
	}
	for _, c := range f.cmds {
		if c.submitted {
			return true
		}
	}
	return false
}

func (f *fakeBackend) Submit(info SubmitInfo) error {
	if err := f.fail("Submit"); err != nil {
		return err
	}
	f.record("submit")
	if !info.Fence.IsNull() {
		s := f.fences[info.Fence]
		if s.signaled || s.pending {
			f.faults = append(f.faults, "submit with a fence that was not reset")
		}
		s.pending = true
	} else {
		info.CommandBuffer.(*fakeCommandBuffer).submitted = true
	}
	f.submits = append(f.submits, info)
	return nil
}

func (f *fakeBackend) QueueWaitIdle() error {
	if err := f.fail("QueueWaitIdle"); err != nil {
		return err
	}
	f.record("queue wait idle")
	f.completeAll()
	return nil
}

func (f *fakeBackend) DeviceWaitIdle() error {
	f.record("device wait idle")
	f.completeAll()
	return nil
}

func (f *fakeBackend) completeAll() {
	for _, s := range f.fences {
		if s.pending {
			s.pending = false
			s.signaled = true
		}
	}
	for _, c := range f.cmds {
		c.submitted = false
	}
}

type fakeCommandBuffer struct {
	device    *fakeBackend
	handle    metadata.Handle
	recording bool
	submitted bool

	barriers []fakeBarrier
	pushes   [][]byte
	traces   []fakeTrace
}

type fakeBarrier struct {
	Src, Dst metadata.PipelineStageFlags
	Images   []metadata.ImageBarrier
}

type fakeTrace struct {
	Regions              metadata.SbtRegions
	Width, Height, Depth uint32
}

func (c *fakeCommandBuffer) Handle() metadata.Handle { return c.handle }

func (c *fakeCommandBuffer) Begin(usage metadata.CommandBufferUsageFlags) error {
	if c.device.pendingWork() {
		c.device.faults = append(c.device.faults, "command buffer reset while the device may still read it")
	}
	c.recording = true
	c.device.record("begin")
	return nil
}

func (c *fakeCommandBuffer) End() error {
	if !c.recording {
		return errors.New("not recording")
	}
	c.recording = false
	c.device.record("end")
	return c.device.fail("End")
}

func (c *fakeCommandBuffer) PipelineBarrier(srcStage, dstStage metadata.PipelineStageFlags, memory []metadata.MemoryBarrier, images []metadata.ImageBarrier) {
	c.barriers = append(c.barriers, fakeBarrier{Src: srcStage, Dst: dstStage, Images: images})
	c.device.record("barrier")
}

func (c *fakeCommandBuffer) BindPipeline(bindPoint metadata.PipelineBindPoint, pipeline metadata.Handle) {
	c.device.record("bind pipeline %d", bindPoint)
}

func (c *fakeCommandBuffer) BindDescriptorSet(bindPoint metadata.PipelineBindPoint, layout, set metadata.Handle) {
	c.device.record("bind descriptor set %d", set)
}

func (c *fakeCommandBuffer) PushConstants(layout metadata.Handle, stages metadata.ShaderStageFlags, offset uint32, data []byte) {
	c.pushes = append(c.pushes, append([]byte(nil), data...))
	c.device.record("push constants")
}

func (c *fakeCommandBuffer) BuildAccelerationStructure(build metadata.AccelerationStructureBuildGeometry) {
	c.device.builds = append(c.device.builds, build)
	c.device.record("build %s", build.Level)
}

func (c *fakeCommandBuffer) TraceRays(regions metadata.SbtRegions, width, height, depth uint32) {
	c.traces = append(c.traces, fakeTrace{Regions: regions, Width: width, Height: height, Depth: depth})
	c.device.record("trace rays")
}

func (c *fakeCommandBuffer) BeginRenderPass(renderPass, framebuffer metadata.Handle, extent metadata.Extent2D, clear metadata.ClearColor) {
	c.device.record("begin render pass")
}

func (c *fakeCommandBuffer) SetViewport(extent metadata.Extent2D) { c.device.record("viewport") }

func (c *fakeCommandBuffer) SetScissor(extent metadata.Extent2D) { c.device.record("scissor") }

func (c *fakeCommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	c.device.record("draw %d", vertexCount)
}

func (c *fakeCommandBuffer) EndRenderPass() { c.device.record("end render pass") }

// fakeWindow closes after closeAfter polls when closeAfter is positive.
type fakeWindow struct {
	extent     metadata.Extent2D
	minimized  bool
	closeAfter int
	polls      int
}

func (w *fakeWindow) FramebufferExtent() metadata.Extent2D { return w.extent }
func (w *fakeWindow) IsMinimized() bool                    { return w.minimized }
func (w *fakeWindow) ShouldClose() bool                    { return w.closeAfter > 0 && w.polls >= w.closeAfter }
func (w *fakeWindow) PollEvents()                          { w.polls++ }

type fakeSwapchain struct {
	device     *fakeBackend
	extent     metadata.Extent2D
	images     uint32
	next       uint32
	acquired   []uint32
	presented  []uint32
	acquireErr error
	presentErr error
}

func (s *fakeSwapchain) AcquireNextImage(signal metadata.Handle) (uint32, error) {
	if s.acquireErr != nil {
		return 0, s.acquireErr
	}
	idx := s.next
	s.next = (s.next + 1) % s.images
	s.acquired = append(s.acquired, idx)
	s.device.record("acquire")
	return idx, nil
}

func (s *fakeSwapchain) Present(imageIndex uint32, wait metadata.Handle) error {
	if s.presentErr != nil {
		return s.presentErr
	}
	s.presented = append(s.presented, imageIndex)
	s.device.record("present")
	return nil
}

func (s *fakeSwapchain) Extent() metadata.Extent2D   { return s.extent }
func (s *fakeSwapchain) Format() metadata.Format     { return metadata.FormatB8G8R8A8Unorm }
func (s *fakeSwapchain) ImageCount() uint32          { return s.images }
func (s *fakeSwapchain) RenderPass() metadata.Handle { return 0xBEEF }
func (s *fakeSwapchain) Framebuffer(i uint32) metadata.Handle {
	return metadata.Handle(0xF000 + uint64(i))
}

func newFakeSwapchain(device *fakeBackend) *fakeSwapchain {
	return &fakeSwapchain{device: device, extent: metadata.Extent2D{Width: 800, Height: 600}, images: 3}
}
