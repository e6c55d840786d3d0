package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

func (vb *VulkanBackend) CreateFence(signaled bool) (metadata.Handle, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	// Make sure to signal the fence if required.
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var fence vk.Fence
	if err := vb.context.locks.SafeCall(SynchronizationManagement, func() error {
		if res := vk.CreateFence(vb.device(), &fenceCreateInfo, vb.context.Allocator, &fence); res != vk.Success {
			return vulkanError(res, "failed to create fence")
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return metadata.NullHandle, err
	}
	return handleOf(fence), nil
}

func (vb *VulkanBackend) DestroyFence(fence metadata.Handle) {
	vb.context.locks.SafeCall(SynchronizationManagement, func() error {
		vk.DestroyFence(vb.device(), objectOf[vk.Fence](fence), vb.context.Allocator)
		return nil
	})
}

func (vb *VulkanBackend) WaitForFence(fence metadata.Handle, timeout uint64) error {
	result := vk.WaitForFences(vb.device(), 1, []vk.Fence{objectOf[vk.Fence](fence)}, vk.True, timeout)
	switch result {
	case vk.Success:
		return nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
		return errors.Errorf("fence wait timed out after %dns", timeout)
	default:
		err := vulkanError(result, "vk_fence_wait")
		core.LogError(err.Error())
		return err
	}
}

func (vb *VulkanBackend) ResetFence(fence metadata.Handle) error {
	if res := vk.ResetFences(vb.device(), 1, []vk.Fence{objectOf[vk.Fence](fence)}); res != vk.Success {
		err := vulkanError(res, "failed to reset fence")
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (vb *VulkanBackend) CreateSemaphore() (metadata.Handle, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	var semaphore vk.Semaphore
	if err := vb.context.locks.SafeCall(SynchronizationManagement, func() error {
		if res := vk.CreateSemaphore(vb.device(), &semaphoreCreateInfo, vb.context.Allocator, &semaphore); res != vk.Success {
			return vulkanError(res, "failed to create semaphore")
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return metadata.NullHandle, err
	}
	return handleOf(semaphore), nil
}

func (vb *VulkanBackend) DestroySemaphore(semaphore metadata.Handle) {
	vb.context.locks.SafeCall(SynchronizationManagement, func() error {
		vk.DestroySemaphore(vb.device(), objectOf[vk.Semaphore](semaphore), vb.context.Allocator)
		return nil
	})
}
