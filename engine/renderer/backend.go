package renderer

import "github.com/spaghettifunk/reina/engine/renderer/metadata"

// MemoryDevice creates and binds device memory, buffers and images.
type MemoryDevice interface {
	MemoryProperties() metadata.MemoryProperties

	CreateBuffer(size uint64, usage metadata.BufferUsageFlags) (metadata.Handle, metadata.MemoryRequirements, error)
	DestroyBuffer(buffer metadata.Handle)
	BindBufferMemory(buffer, memory metadata.Handle) error
	BufferDeviceAddress(buffer metadata.Handle) (uint64, error)

	CreateImage(format metadata.Format, extent metadata.Extent2D, usage metadata.ImageUsageFlags) (metadata.Handle, metadata.MemoryRequirements, error)
	DestroyImage(image metadata.Handle)
	BindImageMemory(image, memory metadata.Handle) error
	CreateImageView(image metadata.Handle, format metadata.Format) (metadata.Handle, error)
	DestroyImageView(view metadata.Handle)

	AllocateMemory(size uint64, memoryTypeIndex uint32, flags metadata.MemoryAllocateFlags) (metadata.Handle, error)
	FreeMemory(memory metadata.Handle)
	// WriteMemory copies data into host-visible memory at offset.
	WriteMemory(memory metadata.Handle, offset uint64, data []byte) error
}

type DescriptorDevice interface {
	CreateDescriptorSetLayout(bindings []metadata.DescriptorSetLayoutBinding) (metadata.Handle, error)
	DestroyDescriptorSetLayout(layout metadata.Handle)
	CreateDescriptorPool(sizes []metadata.DescriptorPoolSize, maxSets uint32) (metadata.Handle, error)
	DestroyDescriptorPool(pool metadata.Handle)
	AllocateDescriptorSet(pool, layout metadata.Handle) (metadata.Handle, error)
	UpdateDescriptorSet(write metadata.DescriptorWrite)
}

type AccelerationDevice interface {
	AccelerationStructureBuildSizes(build metadata.AccelerationStructureBuildGeometry) (metadata.AccelerationStructureBuildSizes, error)
	CreateAccelerationStructure(buffer metadata.Handle, size uint64, level metadata.AccelerationStructureLevel) (metadata.Handle, error)
	AccelerationStructureDeviceAddress(as metadata.Handle) (uint64, error)
	DestroyAccelerationStructure(as metadata.Handle)
}

type PipelineDevice interface {
	RayTracingProperties() metadata.RayTracingProperties
	// ShaderGroupHandles returns groupCount opaque handles, packed, starting at firstGroup.
	ShaderGroupHandles(pipeline metadata.Handle, firstGroup, groupCount uint32, dataSize int) ([]byte, error)

	CreateShaderModule(code []uint32) (metadata.Handle, error)
	DestroyShaderModule(module metadata.Handle)
	CreatePipelineLayout(setLayouts []metadata.Handle, pushConstantStages metadata.ShaderStageFlags, pushConstantSize uint32) (metadata.Handle, error)
	DestroyPipelineLayout(layout metadata.Handle)
	CreateRayTracingPipeline(layout metadata.Handle, shaders metadata.RayTracingShaders, maxRecursion uint32) (metadata.Pipeline, error)
	CreateCompositePipeline(layout metadata.Handle, vertex, fragment metadata.Handle, renderPass metadata.Handle) (metadata.Pipeline, error)
	// DestroyPipeline destroys the pipeline only; its layout is released separately.
	DestroyPipeline(pipeline metadata.Pipeline)
}

type SyncDevice interface {
	CreateFence(signaled bool) (metadata.Handle, error)
	DestroyFence(fence metadata.Handle)
	WaitForFence(fence metadata.Handle, timeout uint64) error
	ResetFence(fence metadata.Handle) error
	CreateSemaphore() (metadata.Handle, error)
	DestroySemaphore(semaphore metadata.Handle)
}

// SubmitInfo describes one queue submission of a single command buffer.
// WaitStages pairs with WaitSemaphores.
type SubmitInfo struct {
	CommandBuffer    CommandBuffer
	WaitSemaphores   []metadata.Handle
	WaitStages       []metadata.PipelineStageFlags
	SignalSemaphores []metadata.Handle
	Fence            metadata.Handle
}

type CommandDevice interface {
	AllocateCommandBuffer() (CommandBuffer, error)
	FreeCommandBuffer(cmd CommandBuffer)
	Submit(info SubmitInfo) error
	QueueWaitIdle() error
	DeviceWaitIdle() error
}

// CommandBuffer records commands. Recording methods do not fail; errors surface
// at End or at submission, as with the underlying API.
type CommandBuffer interface {
	Handle() metadata.Handle
	Begin(usage metadata.CommandBufferUsageFlags) error
	End() error

	PipelineBarrier(srcStage, dstStage metadata.PipelineStageFlags, memory []metadata.MemoryBarrier, images []metadata.ImageBarrier)
	BindPipeline(bindPoint metadata.PipelineBindPoint, pipeline metadata.Handle)
	BindDescriptorSet(bindPoint metadata.PipelineBindPoint, layout, set metadata.Handle)
	PushConstants(layout metadata.Handle, stages metadata.ShaderStageFlags, offset uint32, data []byte)

	BuildAccelerationStructure(build metadata.AccelerationStructureBuildGeometry)
	TraceRays(regions metadata.SbtRegions, width, height, depth uint32)

	BeginRenderPass(renderPass, framebuffer metadata.Handle, extent metadata.Extent2D, clear metadata.ClearColor)
	SetViewport(extent metadata.Extent2D)
	SetScissor(extent metadata.Extent2D)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	EndRenderPass()
}

// Backend is everything the renderer needs from a GPU device.
type Backend interface {
	MemoryDevice
	DescriptorDevice
	AccelerationDevice
	PipelineDevice
	SyncDevice
	CommandDevice
}

// Window is the surface owner, polled once per frame.
type Window interface {
	FramebufferExtent() metadata.Extent2D
	IsMinimized() bool
	ShouldClose() bool
	PollEvents()
}

// Swapchain is the presentation engine and the render pass/framebuffers that target it.
type Swapchain interface {
	AcquireNextImage(signal metadata.Handle) (uint32, error)
	Present(imageIndex uint32, wait metadata.Handle) error
	Extent() metadata.Extent2D
	Format() metadata.Format
	ImageCount() uint32
	RenderPass() metadata.Handle
	Framebuffer(imageIndex uint32) metadata.Handle
}
