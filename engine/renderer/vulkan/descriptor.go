package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

func (vb *VulkanBackend) CreateDescriptorSetLayout(bindings []metadata.DescriptorSetLayoutBinding) (metadata.Handle, error) {
	layoutBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		layoutBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  vk.DescriptorType(b.DescriptorType),
			DescriptorCount: b.DescriptorCount,
			StageFlags:      vk.ShaderStageFlags(b.StageFlags),
		}
	}

	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(layoutBindings)),
		PBindings:    layoutBindings,
	}

	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(vb.device(), &createInfo, vb.context.Allocator, &layout); res != vk.Success {
		err := vulkanError(res, "failed to create descriptor set layout")
		core.LogError(err.Error())
		return metadata.NullHandle, err
	}
	return handleOf(layout), nil
}

func (vb *VulkanBackend) DestroyDescriptorSetLayout(layout metadata.Handle) {
	vk.DestroyDescriptorSetLayout(vb.device(), objectOf[vk.DescriptorSetLayout](layout), vb.context.Allocator)
}

func (vb *VulkanBackend) CreateDescriptorPool(sizes []metadata.DescriptorPoolSize, maxSets uint32) (metadata.Handle, error) {
	poolSizes := make([]vk.DescriptorPoolSize, len(sizes))
	for i, s := range sizes {
		poolSizes[i] = vk.DescriptorPoolSize{
			Type:            vk.DescriptorType(s.Type),
			DescriptorCount: s.DescriptorCount,
		}
	}

	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}

	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(vb.device(), &createInfo, vb.context.Allocator, &pool); res != vk.Success {
		err := vulkanError(res, "failed to create descriptor pool")
		core.LogError(err.Error())
		return metadata.NullHandle, err
	}
	return handleOf(pool), nil
}

// DestroyDescriptorPool also frees every set allocated from the pool.
func (vb *VulkanBackend) DestroyDescriptorPool(pool metadata.Handle) {
	vk.DestroyDescriptorPool(vb.device(), objectOf[vk.DescriptorPool](pool), vb.context.Allocator)
}

func (vb *VulkanBackend) AllocateDescriptorSet(pool, layout metadata.Handle) (metadata.Handle, error) {
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     objectOf[vk.DescriptorPool](pool),
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{objectOf[vk.DescriptorSetLayout](layout)},
	}

	var set vk.DescriptorSet
	if res := vk.AllocateDescriptorSets(vb.device(), &allocInfo, &set); res != vk.Success {
		err := vulkanError(res, "failed to allocate descriptor set")
		core.LogError(err.Error())
		return metadata.NullHandle, err
	}
	return handleOf(set), nil
}

func (vb *VulkanBackend) UpdateDescriptorSet(write metadata.DescriptorWrite) {
	if write.DescriptorType == metadata.DescriptorTypeAccelerationStructure {
		// The acceleration structure rides on pNext, which goki cannot express.
		writeAccelerationStructureDescriptor(vb.device(), write.Set, write.Binding, write.Resource.AccelerationStructure)
		return
	}

	descriptorWrite := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          objectOf[vk.DescriptorSet](write.Set),
		DstBinding:      write.Binding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorType(write.DescriptorType),
	}

	r := write.Resource
	switch write.DescriptorType {
	case metadata.DescriptorTypeStorageImage, metadata.DescriptorTypeSampledImage,
		metadata.DescriptorTypeCombinedImageSampler, metadata.DescriptorTypeSampler:
		descriptorWrite.PImageInfo = []vk.DescriptorImageInfo{{
			Sampler:     objectOf[vk.Sampler](r.Sampler),
			ImageView:   objectOf[vk.ImageView](r.ImageView),
			ImageLayout: vk.ImageLayout(r.ImageLayout),
		}}
	default:
		rng := vk.DeviceSize(r.Range)
		if r.Range == 0 {
			rng = vk.DeviceSize(vk.WholeSize)
		}
		descriptorWrite.PBufferInfo = []vk.DescriptorBufferInfo{{
			Buffer: objectOf[vk.Buffer](r.Buffer),
			Offset: vk.DeviceSize(r.Offset),
			Range:  rng,
		}}
	}

	vk.UpdateDescriptorSets(vb.device(), 1, []vk.WriteDescriptorSet{descriptorWrite}, 0, nil)
}
