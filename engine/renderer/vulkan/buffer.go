package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

func (vb *VulkanBackend) CreateBuffer(size uint64, usage metadata.BufferUsageFlags) (metadata.Handle, metadata.MemoryRequirements, error) {
	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}

	var buffer vk.Buffer
	if err := vb.context.locks.SafeCall(BufferManagement, func() error {
		if res := vk.CreateBuffer(vb.device(), &createInfo, vb.context.Allocator, &buffer); res != vk.Success {
			return vulkanError(res, "failed to create buffer")
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return metadata.NullHandle, metadata.MemoryRequirements{}, err
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(vb.device(), buffer, &requirements)
	requirements.Deref()

	return handleOf(buffer), metadata.MemoryRequirements{
		Size:           uint64(requirements.Size),
		Alignment:      uint64(requirements.Alignment),
		MemoryTypeBits: requirements.MemoryTypeBits,
	}, nil
}

func (vb *VulkanBackend) DestroyBuffer(buffer metadata.Handle) {
	vb.context.locks.SafeCall(BufferManagement, func() error {
		vk.DestroyBuffer(vb.device(), objectOf[vk.Buffer](buffer), vb.context.Allocator)
		return nil
	})
}

func (vb *VulkanBackend) BindBufferMemory(buffer, memory metadata.Handle) error {
	if res := vk.BindBufferMemory(vb.device(), objectOf[vk.Buffer](buffer), objectOf[vk.DeviceMemory](memory), 0); res != vk.Success {
		err := vulkanError(res, "failed to bind buffer memory")
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (vb *VulkanBackend) BufferDeviceAddress(buffer metadata.Handle) (uint64, error) {
	address := vb.context.khr.bufferAddress(vb.device(), buffer)
	if address == 0 {
		err := errors.New("buffer device address query returned zero")
		core.LogError(err.Error())
		return 0, err
	}
	return address, nil
}

// AllocateMemory goes through cgo so the allocate flags can be chained on pNext.
func (vb *VulkanBackend) AllocateMemory(size uint64, memoryTypeIndex uint32, flags metadata.MemoryAllocateFlags) (metadata.Handle, error) {
	var memory metadata.Handle
	if err := vb.context.locks.SafeCall(MemoryManagement, func() error {
		h, res := allocateMemory(vb.device(), size, memoryTypeIndex, flags)
		if res != vk.Success {
			return vulkanError(res, "failed to allocate memory")
		}
		memory = h
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return metadata.NullHandle, err
	}
	return memory, nil
}

func (vb *VulkanBackend) FreeMemory(memory metadata.Handle) {
	vb.context.locks.SafeCall(MemoryManagement, func() error {
		vk.FreeMemory(vb.device(), objectOf[vk.DeviceMemory](memory), vb.context.Allocator)
		return nil
	})
}

func (vb *VulkanBackend) WriteMemory(memory metadata.Handle, offset uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	mem := objectOf[vk.DeviceMemory](memory)

	var ptr unsafe.Pointer
	if res := vk.MapMemory(vb.device(), mem, vk.DeviceSize(offset), vk.DeviceSize(len(data)), 0, &ptr); res != vk.Success {
		err := vulkanError(res, "failed to map memory")
		core.LogError(err.Error())
		return err
	}
	vk.Memcopy(ptr, data)
	vk.UnmapMemory(vb.device(), mem)
	return nil
}
