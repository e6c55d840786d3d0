package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/platform"
	"github.com/spaghettifunk/reina/engine/renderer"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

var (
	_ renderer.Backend       = (*VulkanBackend)(nil)
	_ renderer.Swapchain     = (*VulkanSwapchain)(nil)
	_ renderer.CommandBuffer = (*VulkanCommandBuffer)(nil)
)

type Config struct {
	ApplicationName string
	// Validation enables the Khronos validation layer and the debug report callback.
	Validation bool
}

/**
 * @brief VulkanBackend owns the instance, surface, device and swapchain and
 * implements renderer.Backend on top of them.
 */
type VulkanBackend struct {
	platform  *platform.Platform
	context   *VulkanContext
	swapchain *VulkanSwapchain
	config    Config
}

func New(p *platform.Platform, config Config) *VulkanBackend {
	return &VulkanBackend{
		platform: p,
		context: &VulkanContext{
			Allocator: nil,
			Device:    &VulkanDevice{},
			locks:     NewVulkanLockPool(),
		},
		config: config,
	}
}

// Initialize creates everything up to and including the swapchain. On failure
// whatever was created is destroyed again.
func (vb *VulkanBackend) Initialize() error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := errors.New("GetInstanceProcAddress is nil")
		core.LogError(err.Error())
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return errors.Wrap(err, "failed to initialize vk")
	}

	if err := vb.createInstance(); err != nil {
		vb.Shutdown()
		return err
	}

	if vb.config.Validation {
		if err := vb.createDebugCallback(); err != nil {
			vb.Shutdown()
			return err
		}
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := vb.platform.CreateSurface(vb.context.Instance)
	if err != nil {
		core.LogError("Vulkan surface creation failed: %s", err)
		vb.Shutdown()
		return errors.Wrap(err, "failed to create platform surface")
	}
	vb.context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(vb.context); err != nil {
		vb.Shutdown()
		return err
	}
	vb.context.locks.SetQueueFamily(vb.context.Device.QueueIndex)

	sc, err := SwapchainCreate(vb.context, vb.platform.FramebufferExtent())
	if err != nil {
		vb.Shutdown()
		return err
	}
	vb.swapchain = sc

	core.LogInfo("Vulkan backend initialized successfully.")
	return nil
}

func (vb *VulkanBackend) createInstance() error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 2, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(vb.config.ApplicationName),
		PEngineName:        VulkanSafeString("Reina"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := append([]string{}, vb.platform.GetRequiredExtensionNames()...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions, "VK_KHR_portability_enumeration")
		createInfo.Flags |= 1
	}
	if vb.config.Validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	core.LogDebug("Required extensions: %v", requiredExtensions)

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	// Validation layers should only be enabled on non-release builds.
	var layers []string
	if vb.config.Validation {
		core.LogInfo("Validation layers enabled. Enumerating...")
		layers = []string{"VK_LAYER_KHRONOS_validation"}

		var count uint32
		if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
			return vulkanError(res, "failed to enumerate instance layers")
		}
		available := make([]vk.LayerProperties, count)
		if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
			return vulkanError(res, "failed to enumerate instance layers")
		}

		for _, required := range layers {
			found := false
			for j := range available {
				available[j].Deref()
				if required == vk.ToString(available[j].LayerName[:]) {
					found = true
					break
				}
			}
			if !found {
				err := errors.Errorf("required validation layer is missing: %s", required)
				core.LogError(err.Error())
				return err
			}
		}
		core.LogInfo("All required validation layers are present.")
	}

	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, vb.context.Allocator, &instance); res != vk.Success {
		err := vulkanError(res, "failed in creating the Vulkan Instance")
		core.LogError(err.Error())
		return err
	}
	vb.context.Instance = instance
	if err := vk.InitInstance(instance); err != nil {
		core.LogError(err.Error())
		return errors.Wrap(err, "failed to load instance functions")
	}

	core.LogInfo("Vulkan Instance created.")
	return nil
}

func (vb *VulkanBackend) createDebugCallback() error {
	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}

	var dbg vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(vb.context.Instance, &debugCreateInfo, vb.context.Allocator, &dbg)); err != nil {
		core.LogError("vk.CreateDebugReportCallback failed with %s", err)
		return errors.Wrap(err, "failed to create debug report callback")
	}
	vb.context.debugCallback = dbg
	core.LogDebug("Vulkan debugger created.")
	return nil
}

// Shutdown destroys everything Initialize created, in reverse order. Resources
// handed out through renderer.Backend must already be released.
func (vb *VulkanBackend) Shutdown() {
	if vb.context.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(vb.context.Device.LogicalDevice)
	}

	if vb.swapchain != nil {
		vb.swapchain.SwapchainDestroy()
		vb.swapchain = nil
	}

	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(vb.context)

	if vb.context.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(vb.context.Instance, vb.context.Surface, vb.context.Allocator)
		vb.context.Surface = vk.NullSurface
	}

	if vb.context.debugCallback != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vb.context.Instance, vb.context.debugCallback, vb.context.Allocator)
		vb.context.debugCallback = vk.NullDebugReportCallback
	}

	if vb.context.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(vb.context.Instance, vb.context.Allocator)
		vb.context.Instance = nil
	}
}

func (vb *VulkanBackend) Swapchain() *VulkanSwapchain {
	return vb.swapchain
}

func (vb *VulkanBackend) MemoryProperties() metadata.MemoryProperties {
	return vb.context.Device.Memory
}

func (vb *VulkanBackend) RayTracingProperties() metadata.RayTracingProperties {
	return vb.context.Device.RayTracing
}

func (vb *VulkanBackend) device() vk.Device {
	return vb.context.Device.LogicalDevice
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
