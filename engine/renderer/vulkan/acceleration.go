package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

func (vb *VulkanBackend) AccelerationStructureBuildSizes(build metadata.AccelerationStructureBuildGeometry) (metadata.AccelerationStructureBuildSizes, error) {
	if (build.Triangles == nil) == (build.Instances == nil) {
		err := errors.Errorf("%s build needs exactly one of triangles or instances", build.Level)
		core.LogError(err.Error())
		return metadata.AccelerationStructureBuildSizes{}, err
	}
	return vb.context.khr.buildSizes(vb.device(), build), nil
}

func (vb *VulkanBackend) CreateAccelerationStructure(buffer metadata.Handle, size uint64, level metadata.AccelerationStructureLevel) (metadata.Handle, error) {
	var as metadata.Handle
	if err := vb.context.locks.SafeCall(ResourceManagement, func() error {
		h, res := vb.context.khr.createAccelerationStructure(vb.device(), buffer, size, level)
		if res != vk.Success {
			return vulkanError(res, "vkCreateAccelerationStructureKHR failed")
		}
		as = h
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return metadata.NullHandle, err
	}
	return as, nil
}

func (vb *VulkanBackend) AccelerationStructureDeviceAddress(as metadata.Handle) (uint64, error) {
	address := vb.context.khr.accelerationStructureAddress(vb.device(), as)
	if address == 0 {
		err := errors.New("acceleration structure device address query returned zero")
		core.LogError(err.Error())
		return 0, err
	}
	return address, nil
}

func (vb *VulkanBackend) DestroyAccelerationStructure(as metadata.Handle) {
	vb.context.locks.SafeCall(ResourceManagement, func() error {
		vb.context.khr.destroyAccelerationStructure(vb.device(), as)
		return nil
	})
}
