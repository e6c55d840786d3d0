package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

/**
 * @brief Creates a shader module from SPIR-V words. The words are copied by the
 * driver, so the slice can be dropped once this returns.
 */
func (vb *VulkanBackend) CreateShaderModule(code []uint32) (metadata.Handle, error) {
	if len(code) == 0 {
		err := errors.New("shader module has no code")
		core.LogError(err.Error())
		return metadata.NullHandle, err
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code) * 4),
		PCode:    code,
	}

	var module vk.ShaderModule
	if err := vb.context.locks.SafeCall(ShaderManagement, func() error {
		if res := vk.CreateShaderModule(vb.device(), &createInfo, vb.context.Allocator, &module); res != vk.Success {
			return vulkanError(res, "failed to create shader module")
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return metadata.NullHandle, err
	}
	return handleOf(module), nil
}

func (vb *VulkanBackend) DestroyShaderModule(module metadata.Handle) {
	vb.context.locks.SafeCall(ShaderManagement, func() error {
		vk.DestroyShaderModule(vb.device(), objectOf[vk.ShaderModule](module), vb.context.Allocator)
		return nil
	})
}
