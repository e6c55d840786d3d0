package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type VulkanCommandBuffer struct {
	handle  vk.CommandBuffer
	context *VulkanContext
	// Command buffer state.
	State VulkanCommandBufferState
}

func NewVulkanCommandBuffer(context *VulkanContext, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              vk.CommandBufferLevelPrimary,
	}

	handles := make([]vk.CommandBuffer, 1)
	if err := context.locks.SafeCall(CommandPoolManagement, func() error {
		if res := vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles); res != vk.Success {
			return vulkanError(res, "failed to allocate command buffer")
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &VulkanCommandBuffer{
		handle:  handles[0],
		context: context,
		State:   COMMAND_BUFFER_STATE_READY,
	}, nil
}

func (v *VulkanCommandBuffer) Free(pool vk.CommandPool) {
	v.context.locks.SafeCall(CommandPoolManagement, func() error {
		vk.FreeCommandBuffers(v.context.Device.LogicalDevice, pool, 1, []vk.CommandBuffer{v.handle})
		return nil
	})
	v.handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Handle() metadata.Handle {
	return handleOf(v.handle)
}

// Begin resets the buffer implicitly; the pool allows per-buffer resets.
func (v *VulkanCommandBuffer) Begin(usage metadata.CommandBufferUsageFlags) error {
	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(usage),
	}

	if res := vk.BeginCommandBuffer(v.handle, beginInfo); res != vk.Success {
		err := vulkanError(res, "failed to begin command buffer")
		core.LogError(err.Error())
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if res := vk.EndCommandBuffer(v.handle); res != vk.Success {
		err := vulkanError(res, "failed to end command buffer")
		core.LogError(err.Error())
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) PipelineBarrier(srcStage, dstStage metadata.PipelineStageFlags, memory []metadata.MemoryBarrier, images []metadata.ImageBarrier) {
	memoryBarriers := make([]vk.MemoryBarrier, len(memory))
	for i, b := range memory {
		memoryBarriers[i] = vk.MemoryBarrier{
			SType:         vk.StructureTypeMemoryBarrier,
			SrcAccessMask: vk.AccessFlags(b.SrcAccessMask),
			DstAccessMask: vk.AccessFlags(b.DstAccessMask),
		}
	}

	imageBarriers := make([]vk.ImageMemoryBarrier, len(images))
	for i, b := range images {
		imageBarriers[i] = vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       vk.AccessFlags(b.SrcAccessMask),
			DstAccessMask:       vk.AccessFlags(b.DstAccessMask),
			OldLayout:           vk.ImageLayout(b.OldLayout),
			NewLayout:           vk.ImageLayout(b.NewLayout),
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               objectOf[vk.Image](b.Image),
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   b.Range.BaseMipLevel,
				LevelCount:     b.Range.LevelCount,
				BaseArrayLayer: b.Range.BaseArrayLayer,
				LayerCount:     b.Range.LayerCount,
			},
		}
	}

	vk.CmdPipelineBarrier(v.handle,
		vk.PipelineStageFlags(srcStage), vk.PipelineStageFlags(dstStage), 0,
		uint32(len(memoryBarriers)), memoryBarriers,
		0, nil,
		uint32(len(imageBarriers)), imageBarriers)
}

func (v *VulkanCommandBuffer) BindPipeline(bindPoint metadata.PipelineBindPoint, pipeline metadata.Handle) {
	vk.CmdBindPipeline(v.handle, vk.PipelineBindPoint(bindPoint), objectOf[vk.Pipeline](pipeline))
}

func (v *VulkanCommandBuffer) BindDescriptorSet(bindPoint metadata.PipelineBindPoint, layout, set metadata.Handle) {
	vk.CmdBindDescriptorSets(v.handle, vk.PipelineBindPoint(bindPoint), objectOf[vk.PipelineLayout](layout),
		0, 1, []vk.DescriptorSet{objectOf[vk.DescriptorSet](set)}, 0, nil)
}

func (v *VulkanCommandBuffer) PushConstants(layout metadata.Handle, stages metadata.ShaderStageFlags, offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(v.handle, objectOf[vk.PipelineLayout](layout), vk.ShaderStageFlags(stages),
		offset, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (v *VulkanCommandBuffer) BuildAccelerationStructure(build metadata.AccelerationStructureBuildGeometry) {
	v.context.khr.cmdBuild(v.handle, build)
}

func (v *VulkanCommandBuffer) TraceRays(regions metadata.SbtRegions, width, height, depth uint32) {
	v.context.khr.cmdTraceRays(v.handle, regions, width, height, depth)
}

func (v *VulkanCommandBuffer) BeginRenderPass(renderPass, framebuffer metadata.Handle, extent metadata.Extent2D, clear metadata.ClearColor) {
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  objectOf[vk.RenderPass](renderPass),
		Framebuffer: objectOf[vk.Framebuffer](framebuffer),
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: extent.Width, Height: extent.Height},
		},
	}

	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor([]float32{clear.R, clear.G, clear.B, clear.A})
	beginInfo.ClearValueCount = 1
	beginInfo.PClearValues = clearValues

	vk.CmdBeginRenderPass(v.handle, &beginInfo, vk.SubpassContentsInline)
	v.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (v *VulkanCommandBuffer) SetViewport(extent metadata.Extent2D) {
	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	vk.CmdSetViewport(v.handle, 0, 1, []vk.Viewport{viewport})
}

func (v *VulkanCommandBuffer) SetScissor(extent metadata.Extent2D) {
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: extent.Width, Height: extent.Height},
	}
	vk.CmdSetScissor(v.handle, 0, 1, []vk.Rect2D{scissor})
}

func (v *VulkanCommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(v.handle, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (v *VulkanCommandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(v.handle)
	v.State = COMMAND_BUFFER_STATE_RECORDING
}

func (vb *VulkanBackend) AllocateCommandBuffer() (renderer.CommandBuffer, error) {
	return NewVulkanCommandBuffer(vb.context, vb.context.Device.CommandPool)
}

func (vb *VulkanBackend) FreeCommandBuffer(cmd renderer.CommandBuffer) {
	vcb, ok := cmd.(*VulkanCommandBuffer)
	if !ok {
		core.LogWarn("cannot free foreign command buffer %T", cmd)
		return
	}
	vcb.Free(vb.context.Device.CommandPool)
}

func (vb *VulkanBackend) Submit(info renderer.SubmitInfo) error {
	vcb, ok := info.CommandBuffer.(*VulkanCommandBuffer)
	if !ok {
		err := errors.Errorf("cannot submit foreign command buffer %T", info.CommandBuffer)
		core.LogError(err.Error())
		return err
	}
	if len(info.WaitSemaphores) != len(info.WaitStages) {
		err := errors.Errorf("%d wait semaphores but %d wait stages", len(info.WaitSemaphores), len(info.WaitStages))
		core.LogError(err.Error())
		return err
	}

	waitSemaphores := make([]vk.Semaphore, len(info.WaitSemaphores))
	waitStages := make([]vk.PipelineStageFlags, len(info.WaitStages))
	for i := range info.WaitSemaphores {
		waitSemaphores[i] = objectOf[vk.Semaphore](info.WaitSemaphores[i])
		waitStages[i] = vk.PipelineStageFlags(info.WaitStages[i])
	}
	signalSemaphores := make([]vk.Semaphore, len(info.SignalSemaphores))
	for i, s := range info.SignalSemaphores {
		signalSemaphores[i] = objectOf[vk.Semaphore](s)
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waitSemaphores)),
		PWaitSemaphores:      waitSemaphores,
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{vcb.handle},
		SignalSemaphoreCount: uint32(len(signalSemaphores)),
		PSignalSemaphores:    signalSemaphores,
	}

	fence := vk.NullFence
	if !info.Fence.IsNull() {
		fence = objectOf[vk.Fence](info.Fence)
	}

	if err := vb.context.locks.SafeQueueCall(vb.context.Device.QueueIndex, func() error {
		if res := vk.QueueSubmit(vb.context.Device.Queue, 1, []vk.SubmitInfo{submitInfo}, fence); res != vk.Success {
			return vulkanError(res, "failed to submit to queue")
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return err
	}
	vcb.State = COMMAND_BUFFER_STATE_SUBMITTED
	return nil
}

func (vb *VulkanBackend) QueueWaitIdle() error {
	return vb.context.locks.SafeQueueCall(vb.context.Device.QueueIndex, func() error {
		if res := vk.QueueWaitIdle(vb.context.Device.Queue); res != vk.Success {
			err := vulkanError(res, "queue failed to wait in idle mode")
			core.LogError(err.Error())
			return err
		}
		return nil
	})
}

func (vb *VulkanBackend) DeviceWaitIdle() error {
	if res := vk.DeviceWaitIdle(vb.device()); res != vk.Success {
		err := vulkanError(res, "device failed to wait in idle mode")
		core.LogError(err.Error())
		return err
	}
	return nil
}
