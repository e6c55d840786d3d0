package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

type VulkanDevice struct {
	PhysicalDevice   vk.PhysicalDevice
	LogicalDevice    vk.Device
	SwapchainSupport VulkanSwapchainSupportInfo

	// The renderer records, submits and presents from one queue family.
	QueueIndex uint32
	Queue      vk.Queue

	CommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Memory     metadata.MemoryProperties
	RayTracing metadata.RayTracingProperties
}

type VulkanPhysicalDeviceRequirements struct {
	DeviceExtensionNames []string
	RayTracing           bool
}

// rayTracingDeviceExtensions are required on every selected device.
var rayTracingDeviceExtensions = []string{
	vk.KhrSwapchainExtensionName,
	"VK_KHR_acceleration_structure",
	"VK_KHR_ray_tracing_pipeline",
	"VK_KHR_deferred_host_operations",
	"VK_KHR_buffer_device_address",
	"VK_KHR_spirv_1_4",
	"VK_KHR_shader_float_controls",
}

func DeviceCreate(context *VulkanContext) error {
	if err := SelectPhysicalDevice(context); err != nil {
		return err
	}

	core.LogInfo("Creating logical device...")

	queueCreateInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: context.Device.QueueIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}

	features, freeFeatures := rayTracingFeatureChain()
	defer freeFeatures()

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   features,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		EnabledExtensionCount:   uint32(len(rayTracingDeviceExtensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(append([]string(nil), rayTracingDeviceExtensions...)),
	}

	var device vk.Device
	if res := vk.CreateDevice(context.Device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &device); res != vk.Success {
		err := vulkanError(res, "failed to create logical device")
		core.LogError(err.Error())
		return err
	}
	context.Device.LogicalDevice = device
	core.LogInfo("Logical device created.")

	khr, err := loadKhrEntryPoints(device)
	if err != nil {
		DeviceDestroy(context)
		return err
	}
	context.khr = khr

	var queue vk.Queue
	vk.GetDeviceQueue(device, context.Device.QueueIndex, 0, &queue)
	context.Device.Queue = queue
	core.LogInfo("Queue obtained.")

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: context.Device.QueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(device, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
		err := vulkanError(res, "failed to create command pool")
		core.LogError(err.Error())
		DeviceDestroy(context)
		return err
	}
	context.Device.CommandPool = pool
	core.LogInfo("Command pool created.")

	return nil
}

func DeviceDestroy(context *VulkanContext) {
	context.Device.Queue = nil

	if context.Device.CommandPool != nil {
		core.LogInfo("Destroying command pool...")
		vk.DestroyCommandPool(context.Device.LogicalDevice, context.Device.CommandPool, context.Allocator)
		context.Device.CommandPool = nil
	}

	if context.khr != nil {
		context.khr.release()
		context.khr = nil
	}

	if context.Device.LogicalDevice != nil {
		core.LogInfo("Destroying logical device...")
		vk.DestroyDevice(context.Device.LogicalDevice, context.Allocator)
		context.Device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	context.Device.PhysicalDevice = nil
	context.Device.SwapchainSupport = VulkanSwapchainSupportInfo{}
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface, supportInfo *VulkanSwapchainSupportInfo) error {
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &supportInfo.Capabilities); res != vk.Success {
		return vulkanError(res, "failed to get surface capabilities")
	}
	supportInfo.Capabilities.Deref()
	supportInfo.Capabilities.CurrentExtent.Deref()
	supportInfo.Capabilities.MinImageExtent.Deref()
	supportInfo.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return vulkanError(res, "failed to get surface formats")
	}
	supportInfo.Formats = make([]vk.SurfaceFormat, formatCount)
	if formatCount != 0 {
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, supportInfo.Formats); res != vk.Success {
			return vulkanError(res, "failed to get surface formats")
		}
		for i := range supportInfo.Formats {
			supportInfo.Formats[i].Deref()
		}
	}

	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		return vulkanError(res, "failed to get physical device surface present modes")
	}
	supportInfo.PresentModes = make([]vk.PresentMode, presentModeCount)
	if presentModeCount != 0 {
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, supportInfo.PresentModes); res != vk.Success {
			return vulkanError(res, "failed to get physical device surface present modes")
		}
	}
	return nil
}

// SelectPhysicalDevice picks the first discrete GPU that meets the requirements,
// falling back to the first suitable device of any type.
func SelectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		err := vulkanError(res, "failed to enumerate physical devices")
		core.LogError(err.Error())
		return err
	}
	if physicalDeviceCount == 0 {
		err := errors.Wrap(core.ErrNoSuitableDevice, "no devices which support Vulkan were found")
		core.LogError(err.Error())
		return err
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		err := vulkanError(res, "failed to enumerate physical devices")
		core.LogError(err.Error())
		return err
	}

	requirements := VulkanPhysicalDeviceRequirements{
		DeviceExtensionNames: rayTracingDeviceExtensions,
		RayTracing:           true,
	}

	selected := -1
	var selectedQueue uint32
	var selectedSupport VulkanSwapchainSupportInfo
	var selectedProperties vk.PhysicalDeviceProperties
	for i, device := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(device, &properties)
		properties.Deref()

		var support VulkanSwapchainSupportInfo
		queueIndex, ok := PhysicalDeviceMeetsRequirements(device, context.Surface, &properties, &requirements, &support)
		if !ok {
			continue
		}
		if selected < 0 || properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu && selectedProperties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
			selected = i
			selectedQueue = queueIndex
			selectedSupport = support
			selectedProperties = properties
		}
	}

	if selected < 0 {
		err := errors.WithStack(core.ErrNoSuitableDevice)
		core.LogError("No physical devices were found which meet the requirements.")
		return err
	}

	device := physicalDevices[selected]
	core.LogInfo("Selected device: '%s'.", vk.ToString(selectedProperties.DeviceName[:]))
	switch selectedProperties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(selectedProperties.ApiVersion).Major(),
		vk.Version(selectedProperties.ApiVersion).Minor(),
		vk.Version(selectedProperties.ApiVersion).Patch(),
	)

	context.Device.PhysicalDevice = device
	context.Device.QueueIndex = selectedQueue
	context.Device.SwapchainSupport = selectedSupport
	context.Device.Properties = selectedProperties
	context.Device.Memory = queryMemoryProperties(device)
	context.Device.RayTracing = queryRayTracingProperties(device)

	for i, t := range context.Device.Memory.Types {
		core.LogDebug("Memory type %d: flags 0x%x heap %d", i, uint32(t.PropertyFlags), t.HeapIndex)
	}
	core.LogInfo("Physical device selected.")
	return nil
}

// PhysicalDeviceMeetsRequirements returns the index of a queue family that
// supports both graphics and presentation when the device is usable.
func PhysicalDeviceMeetsRequirements(device vk.PhysicalDevice, surface vk.Surface, properties *vk.PhysicalDeviceProperties, requirements *VulkanPhysicalDeviceRequirements, outSwapchainSupport *VulkanSwapchainSupportInfo) (uint32, bool) {
	name := vk.ToString(properties.DeviceName[:])

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	queueIndex := -1
	for i := range queueFamilies {
		queueFamilies[i].Deref()
		if vk.QueueFlagBits(queueFamilies[i].QueueFlags)&vk.QueueGraphicsBit == 0 {
			continue
		}
		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent); res != vk.Success {
			return 0, false
		}
		if supportsPresent == vk.True {
			queueIndex = i
			break
		}
	}
	if queueIndex < 0 {
		core.LogInfo("Device '%s' has no queue family with graphics and present support, skipping.", name)
		return 0, false
	}

	if err := DeviceQuerySwapchainSupport(device, surface, outSwapchainSupport); err != nil {
		core.LogWarn("Device '%s': %s, skipping.", name, err)
		return 0, false
	}
	if len(outSwapchainSupport.Formats) < 1 || len(outSwapchainSupport.PresentModes) < 1 {
		core.LogInfo("Required swapchain support not present, skipping device.")
		return 0, false
	}

	if missing := missingDeviceExtension(device, requirements.DeviceExtensionNames); missing != "" {
		core.LogInfo("Required extension not found: '%s', skipping device.", missing)
		return 0, false
	}

	if requirements.RayTracing && !supportsRayTracing(device) {
		core.LogInfo("Device '%s' does not support ray tracing pipelines, skipping.", name)
		return 0, false
	}

	core.LogDebug("Device '%s' meets requirements, queue family %d.", name, queueIndex)
	return uint32(queueIndex), true
}

func missingDeviceExtension(device vk.PhysicalDevice, required []string) string {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success {
		return fmt.Sprintf("<VkResult %d>", res)
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, available); res != vk.Success {
		return fmt.Sprintf("<VkResult %d>", res)
	}
	names := make(map[string]struct{}, count)
	for i := range available {
		available[i].Deref()
		names[vk.ToString(available[i].ExtensionName[:])] = struct{}{}
	}
	for _, ext := range required {
		if _, ok := names[ext]; !ok {
			return ext
		}
	}
	return ""
}

func queryMemoryProperties(device vk.PhysicalDevice) metadata.MemoryProperties {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(device, &memoryProperties)
	memoryProperties.Deref()

	out := metadata.MemoryProperties{Types: make([]metadata.MemoryType, memoryProperties.MemoryTypeCount)}
	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryProperties.MemoryTypes[i].Deref()
		out.Types[i] = metadata.MemoryType{
			PropertyFlags: metadata.MemoryPropertyFlags(memoryProperties.MemoryTypes[i].PropertyFlags),
			HeapIndex:     memoryProperties.MemoryTypes[i].HeapIndex,
		}
	}
	return out
}
