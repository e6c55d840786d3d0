package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugCallback vk.DebugReportCallback

	Device *VulkanDevice

	khr   *khrEntryPoints
	locks *VulkanLockPool
}

// handleOf stores a goki/vulkan handle, which is a pointer-sized value, in an
// opaque metadata.Handle.
func handleOf[T any](obj T) metadata.Handle {
	return metadata.Handle(*(*uintptr)(unsafe.Pointer(&obj)))
}

// objectOf is the inverse of handleOf.
func objectOf[T any](h metadata.Handle) T {
	u := uintptr(h)
	return *(*T)(unsafe.Pointer(&u))
}
