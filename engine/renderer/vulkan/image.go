package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

func (vb *VulkanBackend) CreateImage(format metadata.Format, extent metadata.Extent2D, usage metadata.ImageUsageFlags) (metadata.Handle, metadata.MemoryRequirements, error) {
	createInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    vk.Format(format),
		Extent: vk.Extent3D{
			Width:  extent.Width,
			Height: extent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var image vk.Image
	if err := vb.context.locks.SafeCall(ImageManagement, func() error {
		if res := vk.CreateImage(vb.device(), &createInfo, vb.context.Allocator, &image); res != vk.Success {
			return vulkanError(res, "failed to create image")
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return metadata.NullHandle, metadata.MemoryRequirements{}, err
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(vb.device(), image, &requirements)
	requirements.Deref()

	return handleOf(image), metadata.MemoryRequirements{
		Size:           uint64(requirements.Size),
		Alignment:      uint64(requirements.Alignment),
		MemoryTypeBits: requirements.MemoryTypeBits,
	}, nil
}

func (vb *VulkanBackend) DestroyImage(image metadata.Handle) {
	vb.context.locks.SafeCall(ImageManagement, func() error {
		vk.DestroyImage(vb.device(), objectOf[vk.Image](image), vb.context.Allocator)
		return nil
	})
}

func (vb *VulkanBackend) BindImageMemory(image, memory metadata.Handle) error {
	if res := vk.BindImageMemory(vb.device(), objectOf[vk.Image](image), objectOf[vk.DeviceMemory](memory), 0); res != vk.Success {
		err := vulkanError(res, "failed to bind image memory")
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (vb *VulkanBackend) CreateImageView(image metadata.Handle, format metadata.Format) (metadata.Handle, error) {
	view, err := createImageView(vb.context, objectOf[vk.Image](image), vk.Format(format))
	if err != nil {
		return metadata.NullHandle, err
	}
	return handleOf(view), nil
}

func (vb *VulkanBackend) DestroyImageView(view metadata.Handle) {
	vk.DestroyImageView(vb.device(), objectOf[vk.ImageView](view), vb.context.Allocator)
}

// createImageView makes a 2D color view over the first mip level and layer.
func createImageView(context *VulkanContext, image vk.Image, format vk.Format) (vk.ImageView, error) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var view vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &view); res != vk.Success {
		err := vulkanError(res, "failed to create image view")
		core.LogError(err.Error())
		return nil, err
	}
	return view, nil
}
