package vulkan

import (
	gomath "math"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/math"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

/**
 * @brief The presentation engine together with the composite render pass and
 * one framebuffer per swapchain image. The swapchain is never recreated:
 * out-of-date and suboptimal results are reported to the caller as errors.
 */
type VulkanSwapchain struct {
	context     *VulkanContext
	ImageFormat vk.SurfaceFormat
	Handle      vk.Swapchain
	imageCount  uint32
	Images      []vk.Image
	Views       []vk.ImageView
	extent      vk.Extent2D

	Renderpass *VulkanRenderpass
	// framebuffers used for on-screen rendering.
	Framebuffers []*VulkanFramebuffer
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

func SwapchainCreate(context *VulkanContext, extent metadata.Extent2D) (*VulkanSwapchain, error) {
	swapchain := &VulkanSwapchain{context: context}
	if err := swapchain.create(extent); err != nil {
		swapchain.SwapchainDestroy()
		return nil, err
	}
	return swapchain, nil
}

func (vs *VulkanSwapchain) create(extent metadata.Extent2D) error {
	context := vs.context
	support := &context.Device.SwapchainSupport

	// Choose a swap surface format.
	vs.ImageFormat = support.Formats[0]
	for _, format := range support.Formats {
		// Preferred formats
		if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			vs.ImageFormat = format
			break
		}
	}

	// FIFO is always available and caps the frame rate at the display's.
	presentMode := vk.PresentModeFifo

	swapchainExtent := vk.Extent2D{Width: extent.Width, Height: extent.Height}
	if support.Capabilities.CurrentExtent.Width != gomath.MaxUint32 {
		swapchainExtent = support.Capabilities.CurrentExtent
	}

	// Clamp to the value allowed by the GPU.
	min := support.Capabilities.MinImageExtent
	max := support.Capabilities.MaxImageExtent
	swapchainExtent.Width = math.Clamp(swapchainExtent.Width, min.Width, max.Width)
	swapchainExtent.Height = math.Clamp(swapchainExtent.Height, min.Height, max.Height)
	vs.extent = swapchainExtent

	imageCount := support.Capabilities.MinImageCount + 1
	if support.Capabilities.MaxImageCount > 0 && imageCount > support.Capabilities.MaxImageCount {
		imageCount = support.Capabilities.MaxImageCount
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      vs.ImageFormat.Format,
		ImageColorSpace:  vs.ImageFormat.ColorSpace,
		ImageExtent:      swapchainExtent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		// Graphics and present share one queue family.
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
	}

	var swapchainHandle vk.Swapchain
	if res := vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &swapchainHandle); res != vk.Success {
		err := vulkanError(res, "failed to create swapchain")
		core.LogError(err.Error())
		return err
	}
	vs.Handle = swapchainHandle

	// Images
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, vs.Handle, &vs.imageCount, nil); res != vk.Success {
		err := vulkanError(res, "failed to get swapchain images")
		core.LogError(err.Error())
		return err
	}
	vs.Images = make([]vk.Image, vs.imageCount)
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, vs.Handle, &vs.imageCount, vs.Images); res != vk.Success {
		err := vulkanError(res, "failed to get swapchain images")
		core.LogError(err.Error())
		return err
	}

	// Views
	vs.Views = make([]vk.ImageView, 0, vs.imageCount)
	for _, image := range vs.Images {
		view, err := createImageView(context, image, vs.ImageFormat.Format)
		if err != nil {
			return err
		}
		vs.Views = append(vs.Views, view)
	}

	rp, err := RenderpassCreate(context, vs.ImageFormat.Format)
	if err != nil {
		return err
	}
	vs.Renderpass = rp

	vs.Framebuffers = make([]*VulkanFramebuffer, 0, vs.imageCount)
	for _, view := range vs.Views {
		fb, err := FramebufferCreate(context, vs.Renderpass, vs.extent, []vk.ImageView{view})
		if err != nil {
			return err
		}
		vs.Framebuffers = append(vs.Framebuffers, fb)
	}

	core.LogInfo("Swapchain created successfully: %d images, %dx%d.", vs.imageCount, vs.extent.Width, vs.extent.Height)
	return nil
}

// SwapchainDestroy tolerates a partially created swapchain.
func (vs *VulkanSwapchain) SwapchainDestroy() {
	context := vs.context
	for _, fb := range vs.Framebuffers {
		fb.Destroy(context)
	}
	vs.Framebuffers = nil

	if vs.Renderpass != nil {
		vs.Renderpass.RenderpassDestroy(context)
		vs.Renderpass = nil
	}

	// Only destroy the views, not the images, since those are owned by the swapchain and are thus
	// destroyed when it is.
	for _, view := range vs.Views {
		vk.DestroyImageView(context.Device.LogicalDevice, view, context.Allocator)
	}
	vs.Views = nil
	vs.Images = nil

	if vs.Handle != nil {
		vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = nil
	}
}

func (vs *VulkanSwapchain) AcquireNextImage(signal metadata.Handle) (uint32, error) {
	var imageIndex uint32
	err := vs.context.locks.SafeCall(SwapchainManagement, func() error {
		result := vk.AcquireNextImage(vs.context.Device.LogicalDevice, vs.Handle, gomath.MaxUint64,
			objectOf[vk.Semaphore](signal), vk.NullFence, &imageIndex)
		return swapchainResult(result, "failed to acquire swapchain image")
	})
	if err != nil {
		return 0, err
	}
	return imageIndex, nil
}

func (vs *VulkanSwapchain) Present(imageIndex uint32, wait metadata.Handle) error {
	// Return the image to the swapchain for presentation.
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{objectOf[vk.Semaphore](wait)},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{imageIndex},
	}

	return vs.context.locks.SafeQueueCall(vs.context.Device.QueueIndex, func() error {
		return swapchainResult(vk.QueuePresent(vs.context.Device.Queue, &presentInfo), "failed to present swapchain image")
	})
}

func swapchainResult(result vk.Result, what string) error {
	var err error
	switch result {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDate:
		err = errors.Wrap(core.ErrSwapchainOutOfDate, what)
	case vk.Suboptimal:
		err = errors.Wrap(core.ErrSwapchainSuboptimal, what)
	default:
		err = vulkanError(result, what)
	}
	core.LogError(err.Error())
	return err
}

func (vs *VulkanSwapchain) Extent() metadata.Extent2D {
	return metadata.Extent2D{Width: vs.extent.Width, Height: vs.extent.Height}
}

func (vs *VulkanSwapchain) Format() metadata.Format {
	return metadata.Format(vs.ImageFormat.Format)
}

func (vs *VulkanSwapchain) ImageCount() uint32 {
	return vs.imageCount
}

func (vs *VulkanSwapchain) RenderPass() metadata.Handle {
	return handleOf(vs.Renderpass.Handle)
}

func (vs *VulkanSwapchain) Framebuffer(imageIndex uint32) metadata.Handle {
	return handleOf(vs.Framebuffers[imageIndex].Handle)
}
