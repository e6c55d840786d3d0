package vulkan

/*
#cgo linux LDFLAGS: -lvulkan
#cgo darwin LDFLAGS: -lvulkan
#cgo windows LDFLAGS: -lvulkan-1

#include <stdlib.h>
#include <string.h>
#include <vulkan/vulkan.h>

#define REINA_HANDLE(T, h) ((T)(uintptr_t)(h))
#define REINA_U64(h) ((uint64_t)(uintptr_t)(h))

typedef struct {
	PFN_vkGetBufferDeviceAddress getBufferDeviceAddress;
	PFN_vkGetAccelerationStructureBuildSizesKHR getBuildSizes;
	PFN_vkCreateAccelerationStructureKHR createAccelerationStructure;
	PFN_vkDestroyAccelerationStructureKHR destroyAccelerationStructure;
	PFN_vkGetAccelerationStructureDeviceAddressKHR getAccelerationStructureAddress;
	PFN_vkCmdBuildAccelerationStructuresKHR cmdBuildAccelerationStructures;
	PFN_vkCreateRayTracingPipelinesKHR createRayTracingPipelines;
	PFN_vkGetRayTracingShaderGroupHandlesKHR getShaderGroupHandles;
	PFN_vkCmdTraceRaysKHR cmdTraceRays;
} reina_khr;

// Returns zero when every entry point resolved, otherwise the 1-based index of
// the first missing one in the order of reina_khr's fields.
static int reina_khr_load(VkDevice device, reina_khr* k) {
	k->getBufferDeviceAddress = (PFN_vkGetBufferDeviceAddress)vkGetDeviceProcAddr(device, "vkGetBufferDeviceAddress");
	if (!k->getBufferDeviceAddress) return 1;
	k->getBuildSizes = (PFN_vkGetAccelerationStructureBuildSizesKHR)vkGetDeviceProcAddr(device, "vkGetAccelerationStructureBuildSizesKHR");
	if (!k->getBuildSizes) return 2;
	k->createAccelerationStructure = (PFN_vkCreateAccelerationStructureKHR)vkGetDeviceProcAddr(device, "vkCreateAccelerationStructureKHR");
	if (!k->createAccelerationStructure) return 3;
	k->destroyAccelerationStructure = (PFN_vkDestroyAccelerationStructureKHR)vkGetDeviceProcAddr(device, "vkDestroyAccelerationStructureKHR");
	if (!k->destroyAccelerationStructure) return 4;
	k->getAccelerationStructureAddress = (PFN_vkGetAccelerationStructureDeviceAddressKHR)vkGetDeviceProcAddr(device, "vkGetAccelerationStructureDeviceAddressKHR");
	if (!k->getAccelerationStructureAddress) return 5;
	k->cmdBuildAccelerationStructures = (PFN_vkCmdBuildAccelerationStructuresKHR)vkGetDeviceProcAddr(device, "vkCmdBuildAccelerationStructuresKHR");
	if (!k->cmdBuildAccelerationStructures) return 6;
	k->createRayTracingPipelines = (PFN_vkCreateRayTracingPipelinesKHR)vkGetDeviceProcAddr(device, "vkCreateRayTracingPipelinesKHR");
	if (!k->createRayTracingPipelines) return 7;
	k->getShaderGroupHandles = (PFN_vkGetRayTracingShaderGroupHandlesKHR)vkGetDeviceProcAddr(device, "vkGetRayTracingShaderGroupHandlesKHR");
	if (!k->getShaderGroupHandles) return 8;
	k->cmdTraceRays = (PFN_vkCmdTraceRaysKHR)vkGetDeviceProcAddr(device, "vkCmdTraceRaysKHR");
	if (!k->cmdTraceRays) return 9;
	return 0;
}

typedef struct {
	uint32_t level;
	uint32_t flags;
	uint32_t geometry_flags;
	uint32_t triangles;
	uint32_t vertex_format;
	uint64_t vertex_address;
	uint64_t vertex_stride;
	uint32_t max_vertex;
	uint32_t index_type;
	uint64_t index_address;
	uint64_t instances_address;
	uint32_t primitive_count;
	uint64_t dst;
	uint64_t scratch_address;
} reina_build;

static void reina_fill_build(const reina_build* b, VkAccelerationStructureGeometryKHR* geometry, VkAccelerationStructureBuildGeometryInfoKHR* info) {
	memset(geometry, 0, sizeof(*geometry));
	geometry->sType = VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_KHR;
	geometry->flags = b->geometry_flags;
	if (b->triangles) {
		VkAccelerationStructureGeometryTrianglesDataKHR* t = &geometry->geometry.triangles;
		geometry->geometryType = VK_GEOMETRY_TYPE_TRIANGLES_KHR;
		t->sType = VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_TRIANGLES_DATA_KHR;
		t->vertexFormat = (VkFormat)b->vertex_format;
		t->vertexData.deviceAddress = b->vertex_address;
		t->vertexStride = b->vertex_stride;
		t->maxVertex = b->max_vertex;
		t->indexType = (VkIndexType)b->index_type;
		t->indexData.deviceAddress = b->index_address;
	} else {
		VkAccelerationStructureGeometryInstancesDataKHR* in = &geometry->geometry.instances;
		geometry->geometryType = VK_GEOMETRY_TYPE_INSTANCES_KHR;
		in->sType = VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_INSTANCES_DATA_KHR;
		in->arrayOfPointers = VK_FALSE;
		in->data.deviceAddress = b->instances_address;
	}

	memset(info, 0, sizeof(*info));
	info->sType = VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_BUILD_GEOMETRY_INFO_KHR;
	info->type = (VkAccelerationStructureTypeKHR)b->level;
	info->flags = b->flags;
	info->mode = VK_BUILD_ACCELERATION_STRUCTURE_MODE_BUILD_KHR;
	info->dstAccelerationStructure = REINA_HANDLE(VkAccelerationStructureKHR, b->dst);
	info->geometryCount = 1;
	info->pGeometries = geometry;
	info->scratchData.deviceAddress = b->scratch_address;
}

static void reina_build_sizes(const reina_khr* k, VkDevice device, const reina_build* b, VkAccelerationStructureBuildSizesInfoKHR* out) {
	VkAccelerationStructureGeometryKHR geometry;
	VkAccelerationStructureBuildGeometryInfoKHR info;
	uint32_t count = b->primitive_count;

	reina_fill_build(b, &geometry, &info);
	memset(out, 0, sizeof(*out));
	out->sType = VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_BUILD_SIZES_INFO_KHR;
	k->getBuildSizes(device, VK_ACCELERATION_STRUCTURE_BUILD_TYPE_DEVICE_KHR, &info, &count, out);
}

static void reina_cmd_build(const reina_khr* k, VkCommandBuffer cmd, const reina_build* b) {
	VkAccelerationStructureGeometryKHR geometry;
	VkAccelerationStructureBuildGeometryInfoKHR info;
	VkAccelerationStructureBuildRangeInfoKHR range;
	const VkAccelerationStructureBuildRangeInfoKHR* ranges = &range;

	reina_fill_build(b, &geometry, &info);
	memset(&range, 0, sizeof(range));
	range.primitiveCount = b->primitive_count;
	k->cmdBuildAccelerationStructures(cmd, 1, &info, &ranges);
}

static VkResult reina_create_acceleration_structure(const reina_khr* k, VkDevice device, uint64_t buffer, uint64_t size, uint32_t level, uint64_t* out) {
	VkAccelerationStructureCreateInfoKHR info;
	VkAccelerationStructureKHR handle = VK_NULL_HANDLE;
	VkResult res;

	memset(&info, 0, sizeof(info));
	info.sType = VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_CREATE_INFO_KHR;
	info.buffer = REINA_HANDLE(VkBuffer, buffer);
	info.size = size;
	info.type = (VkAccelerationStructureTypeKHR)level;
	res = k->createAccelerationStructure(device, &info, NULL, &handle);
	*out = REINA_U64(handle);
	return res;
}

static void reina_destroy_acceleration_structure(const reina_khr* k, VkDevice device, uint64_t as) {
	k->destroyAccelerationStructure(device, REINA_HANDLE(VkAccelerationStructureKHR, as), NULL);
}

static uint64_t reina_acceleration_structure_address(const reina_khr* k, VkDevice device, uint64_t as) {
	VkAccelerationStructureDeviceAddressInfoKHR info;
	memset(&info, 0, sizeof(info));
	info.sType = VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_DEVICE_ADDRESS_INFO_KHR;
	info.accelerationStructure = REINA_HANDLE(VkAccelerationStructureKHR, as);
	return k->getAccelerationStructureAddress(device, &info);
}

static uint64_t reina_buffer_address(const reina_khr* k, VkDevice device, uint64_t buffer) {
	VkBufferDeviceAddressInfo info;
	memset(&info, 0, sizeof(info));
	info.sType = VK_STRUCTURE_TYPE_BUFFER_DEVICE_ADDRESS_INFO;
	info.buffer = REINA_HANDLE(VkBuffer, buffer);
	return k->getBufferDeviceAddress(device, &info);
}

static VkResult reina_allocate_memory(VkDevice device, uint64_t size, uint32_t type_index, uint32_t flags, uint64_t* out) {
	VkMemoryAllocateFlagsInfo flags_info;
	VkMemoryAllocateInfo info;
	VkDeviceMemory memory = VK_NULL_HANDLE;
	VkResult res;

	memset(&flags_info, 0, sizeof(flags_info));
	flags_info.sType = VK_STRUCTURE_TYPE_MEMORY_ALLOCATE_FLAGS_INFO;
	flags_info.flags = flags;

	memset(&info, 0, sizeof(info));
	info.sType = VK_STRUCTURE_TYPE_MEMORY_ALLOCATE_INFO;
	info.pNext = flags ? &flags_info : NULL;
	info.allocationSize = size;
	info.memoryTypeIndex = type_index;
	res = vkAllocateMemory(device, &info, NULL, &memory);
	*out = REINA_U64(memory);
	return res;
}

static VkResult reina_create_ray_tracing_pipeline(const reina_khr* k, VkDevice device, uint64_t layout, uint64_t raygen, uint64_t miss, uint64_t closest_hit, uint32_t max_recursion, uint64_t* out, uint32_t* group_count) {
	VkPipelineShaderStageCreateInfo stages[3];
	VkRayTracingShaderGroupCreateInfoKHR groups[3];
	uint64_t modules[3] = {raygen, miss, closest_hit};
	VkShaderStageFlagBits bits[3] = {VK_SHADER_STAGE_RAYGEN_BIT_KHR, VK_SHADER_STAGE_MISS_BIT_KHR, VK_SHADER_STAGE_CLOSEST_HIT_BIT_KHR};
	VkRayTracingPipelineCreateInfoKHR info;
	VkPipeline pipeline = VK_NULL_HANDLE;
	VkResult res;
	uint32_t n = 0;
	int i;

	memset(stages, 0, sizeof(stages));
	memset(groups, 0, sizeof(groups));
	for (i = 0; i < 3; i++) {
		int hit = i == 2;
		if (modules[i] == 0) continue;
		stages[n].sType = VK_STRUCTURE_TYPE_PIPELINE_SHADER_STAGE_CREATE_INFO;
		stages[n].stage = bits[i];
		stages[n].module = REINA_HANDLE(VkShaderModule, modules[i]);
		stages[n].pName = "main";

		groups[n].sType = VK_STRUCTURE_TYPE_RAY_TRACING_SHADER_GROUP_CREATE_INFO_KHR;
		groups[n].type = hit ? VK_RAY_TRACING_SHADER_GROUP_TYPE_TRIANGLES_HIT_GROUP_KHR : VK_RAY_TRACING_SHADER_GROUP_TYPE_GENERAL_KHR;
		groups[n].generalShader = hit ? VK_SHADER_UNUSED_KHR : n;
		groups[n].closestHitShader = hit ? n : VK_SHADER_UNUSED_KHR;
		groups[n].anyHitShader = VK_SHADER_UNUSED_KHR;
		groups[n].intersectionShader = VK_SHADER_UNUSED_KHR;
		n++;
	}

	memset(&info, 0, sizeof(info));
	info.sType = VK_STRUCTURE_TYPE_RAY_TRACING_PIPELINE_CREATE_INFO_KHR;
	info.stageCount = n;
	info.pStages = stages;
	info.groupCount = n;
	info.pGroups = groups;
	info.maxPipelineRayRecursionDepth = max_recursion;
	info.layout = REINA_HANDLE(VkPipelineLayout, layout);

	res = k->createRayTracingPipelines(device, VK_NULL_HANDLE, VK_NULL_HANDLE, 1, &info, NULL, &pipeline);
	*out = REINA_U64(pipeline);
	*group_count = n;
	return res;
}

static VkResult reina_shader_group_handles(const reina_khr* k, VkDevice device, uint64_t pipeline, uint32_t first, uint32_t count, size_t size, void* data) {
	return k->getShaderGroupHandles(device, REINA_HANDLE(VkPipeline, pipeline), first, count, size, data);
}

static void reina_trace_rays(const reina_khr* k, VkCommandBuffer cmd, const VkStridedDeviceAddressRegionKHR* regions, uint32_t width, uint32_t height, uint32_t depth) {
	k->cmdTraceRays(cmd, &regions[0], &regions[1], &regions[2], &regions[3], width, height, depth);
}

static void reina_write_acceleration_structure(VkDevice device, uint64_t set, uint32_t binding, uint64_t as) {
	VkAccelerationStructureKHR handle = REINA_HANDLE(VkAccelerationStructureKHR, as);
	VkWriteDescriptorSetAccelerationStructureKHR as_info;
	VkWriteDescriptorSet write;

	memset(&as_info, 0, sizeof(as_info));
	as_info.sType = VK_STRUCTURE_TYPE_WRITE_DESCRIPTOR_SET_ACCELERATION_STRUCTURE_KHR;
	as_info.accelerationStructureCount = 1;
	as_info.pAccelerationStructures = &handle;

	memset(&write, 0, sizeof(write));
	write.sType = VK_STRUCTURE_TYPE_WRITE_DESCRIPTOR_SET;
	write.pNext = &as_info;
	write.dstSet = REINA_HANDLE(VkDescriptorSet, set);
	write.dstBinding = binding;
	write.descriptorCount = 1;
	write.descriptorType = VK_DESCRIPTOR_TYPE_ACCELERATION_STRUCTURE_KHR;
	vkUpdateDescriptorSets(device, 1, &write, 0, NULL);
}

typedef struct {
	VkPhysicalDeviceVulkan12Features vulkan12;
	VkPhysicalDeviceAccelerationStructureFeaturesKHR acceleration;
	VkPhysicalDeviceRayTracingPipelineFeaturesKHR pipeline;
	VkPhysicalDeviceFeatures2 features2;
} reina_features;

static void reina_features_init(reina_features* f) {
	memset(f, 0, sizeof(*f));
	f->features2.sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_FEATURES_2;
	f->features2.pNext = &f->vulkan12;
	f->vulkan12.sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_VULKAN_1_2_FEATURES;
	f->vulkan12.pNext = &f->acceleration;
	f->acceleration.sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_ACCELERATION_STRUCTURE_FEATURES_KHR;
	f->acceleration.pNext = &f->pipeline;
	f->pipeline.sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_RAY_TRACING_PIPELINE_FEATURES_KHR;
}

static int reina_query_features(VkPhysicalDevice device, reina_features* f) {
	reina_features_init(f);
	vkGetPhysicalDeviceFeatures2(device, &f->features2);
	return f->vulkan12.bufferDeviceAddress && f->acceleration.accelerationStructure && f->pipeline.rayTracingPipeline;
}

// Fills f with only the features the renderer enables and returns the head of
// the chain to hang off VkDeviceCreateInfo.pNext.
static void* reina_enable_features(reina_features* f) {
	reina_features_init(f);
	f->vulkan12.bufferDeviceAddress = VK_TRUE;
	f->acceleration.accelerationStructure = VK_TRUE;
	f->pipeline.rayTracingPipeline = VK_TRUE;
	return &f->vulkan12;
}

typedef struct {
	VkPhysicalDeviceRayTracingPipelinePropertiesKHR pipeline;
	VkPhysicalDeviceAccelerationStructurePropertiesKHR acceleration;
} reina_properties;

static void reina_query_properties(VkPhysicalDevice device, reina_properties* p) {
	VkPhysicalDeviceProperties2 props;

	memset(p, 0, sizeof(*p));
	p->pipeline.sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_RAY_TRACING_PIPELINE_PROPERTIES_KHR;
	p->pipeline.pNext = &p->acceleration;
	p->acceleration.sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_ACCELERATION_STRUCTURE_PROPERTIES_KHR;

	memset(&props, 0, sizeof(props));
	props.sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_PROPERTIES_2;
	props.pNext = &p->pipeline;
	vkGetPhysicalDeviceProperties2(device, &props);
}
*/
import "C"

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

var khrEntryPointNames = []string{
	"vkGetBufferDeviceAddress",
	"vkGetAccelerationStructureBuildSizesKHR",
	"vkCreateAccelerationStructureKHR",
	"vkDestroyAccelerationStructureKHR",
	"vkGetAccelerationStructureDeviceAddressKHR",
	"vkCmdBuildAccelerationStructuresKHR",
	"vkCreateRayTracingPipelinesKHR",
	"vkGetRayTracingShaderGroupHandlesKHR",
	"vkCmdTraceRaysKHR",
}

/**
 * @brief Device-level entry points for acceleration structures, ray tracing
 * pipelines and buffer device addresses, resolved once per logical device.
 * The table lives in C memory so the function pointers never cross into Go.
 */
type khrEntryPoints struct {
	table *C.reina_khr
}

func loadKhrEntryPoints(device vk.Device) (*khrEntryPoints, error) {
	table := (*C.reina_khr)(C.calloc(1, C.sizeof_reina_khr))
	if missing := int(C.reina_khr_load(cDevice(device), table)); missing != 0 {
		C.free(unsafe.Pointer(table))
		err := errors.Wrapf(core.ErrMissingEntryPoint, "%s", khrEntryPointNames[missing-1])
		core.LogError(err.Error())
		return nil, err
	}
	return &khrEntryPoints{table: table}, nil
}

func (k *khrEntryPoints) release() {
	if k.table != nil {
		C.free(unsafe.Pointer(k.table))
		k.table = nil
	}
}

func cDevice(device vk.Device) C.VkDevice {
	return C.VkDevice(unsafe.Pointer(device))
}

func cPhysicalDevice(device vk.PhysicalDevice) C.VkPhysicalDevice {
	return C.VkPhysicalDevice(unsafe.Pointer(device))
}

func cCommandBuffer(cmd vk.CommandBuffer) C.VkCommandBuffer {
	return C.VkCommandBuffer(unsafe.Pointer(cmd))
}

func cBuild(build metadata.AccelerationStructureBuildGeometry) C.reina_build {
	b := C.reina_build{
		level:           C.uint32_t(build.Level),
		flags:           C.uint32_t(build.Flags),
		geometry_flags:  C.uint32_t(build.GeometryFlags),
		primitive_count: C.uint32_t(build.PrimitiveCount),
		dst:             C.uint64_t(build.Destination),
		scratch_address: C.uint64_t(build.ScratchAddress),
	}
	if t := build.Triangles; t != nil {
		b.triangles = 1
		b.vertex_format = C.uint32_t(t.VertexFormat)
		b.vertex_address = C.uint64_t(t.VertexAddress)
		b.vertex_stride = C.uint64_t(t.VertexStride)
		b.max_vertex = C.uint32_t(t.MaxVertex)
		b.index_type = C.uint32_t(t.IndexType)
		b.index_address = C.uint64_t(t.IndexAddress)
	}
	if in := build.Instances; in != nil {
		b.instances_address = C.uint64_t(in.DataAddress)
	}
	return b
}

func (k *khrEntryPoints) buildSizes(device vk.Device, build metadata.AccelerationStructureBuildGeometry) metadata.AccelerationStructureBuildSizes {
	b := cBuild(build)
	var out C.VkAccelerationStructureBuildSizesInfoKHR
	C.reina_build_sizes(k.table, cDevice(device), &b, &out)
	return metadata.AccelerationStructureBuildSizes{
		AccelerationStructureSize: uint64(out.accelerationStructureSize),
		UpdateScratchSize:         uint64(out.updateScratchSize),
		BuildScratchSize:          uint64(out.buildScratchSize),
	}
}

func (k *khrEntryPoints) cmdBuild(cmd vk.CommandBuffer, build metadata.AccelerationStructureBuildGeometry) {
	b := cBuild(build)
	C.reina_cmd_build(k.table, cCommandBuffer(cmd), &b)
}

func (k *khrEntryPoints) createAccelerationStructure(device vk.Device, buffer metadata.Handle, size uint64, level metadata.AccelerationStructureLevel) (metadata.Handle, vk.Result) {
	var out C.uint64_t
	res := C.reina_create_acceleration_structure(k.table, cDevice(device), C.uint64_t(buffer), C.uint64_t(size), C.uint32_t(level), &out)
	return metadata.Handle(out), vk.Result(res)
}

func (k *khrEntryPoints) destroyAccelerationStructure(device vk.Device, as metadata.Handle) {
	C.reina_destroy_acceleration_structure(k.table, cDevice(device), C.uint64_t(as))
}

func (k *khrEntryPoints) accelerationStructureAddress(device vk.Device, as metadata.Handle) uint64 {
	return uint64(C.reina_acceleration_structure_address(k.table, cDevice(device), C.uint64_t(as)))
}

func (k *khrEntryPoints) bufferAddress(device vk.Device, buffer metadata.Handle) uint64 {
	return uint64(C.reina_buffer_address(k.table, cDevice(device), C.uint64_t(buffer)))
}

func (k *khrEntryPoints) createRayTracingPipeline(device vk.Device, layout metadata.Handle, shaders metadata.RayTracingShaders, maxRecursion uint32) (metadata.Handle, uint32, vk.Result) {
	var out C.uint64_t
	var groups C.uint32_t
	res := C.reina_create_ray_tracing_pipeline(k.table, cDevice(device),
		C.uint64_t(layout),
		C.uint64_t(shaders.RayGen), C.uint64_t(shaders.Miss), C.uint64_t(shaders.ClosestHit),
		C.uint32_t(maxRecursion), &out, &groups)
	return metadata.Handle(out), uint32(groups), vk.Result(res)
}

func (k *khrEntryPoints) shaderGroupHandles(device vk.Device, pipeline metadata.Handle, first, count uint32, data []byte) vk.Result {
	return vk.Result(C.reina_shader_group_handles(k.table, cDevice(device), C.uint64_t(pipeline),
		C.uint32_t(first), C.uint32_t(count), C.size_t(len(data)), unsafe.Pointer(&data[0])))
}

func (k *khrEntryPoints) cmdTraceRays(cmd vk.CommandBuffer, regions metadata.SbtRegions, width, height, depth uint32) {
	var r [4]C.VkStridedDeviceAddressRegionKHR
	for i, region := range []metadata.StridedRegion{regions.RayGen, regions.Miss, regions.Hit, regions.Callable} {
		r[i].deviceAddress = C.VkDeviceAddress(region.DeviceAddress)
		r[i].stride = C.VkDeviceSize(region.Stride)
		r[i].size = C.VkDeviceSize(region.Size)
	}
	C.reina_trace_rays(k.table, cCommandBuffer(cmd), &r[0], C.uint32_t(width), C.uint32_t(height), C.uint32_t(depth))
}

func allocateMemory(device vk.Device, size uint64, typeIndex uint32, flags metadata.MemoryAllocateFlags) (metadata.Handle, vk.Result) {
	var out C.uint64_t
	res := C.reina_allocate_memory(cDevice(device), C.uint64_t(size), C.uint32_t(typeIndex), C.uint32_t(flags), &out)
	return metadata.Handle(out), vk.Result(res)
}

func writeAccelerationStructureDescriptor(device vk.Device, set metadata.Handle, binding uint32, as metadata.Handle) {
	C.reina_write_acceleration_structure(cDevice(device), C.uint64_t(set), C.uint32_t(binding), C.uint64_t(as))
}

// supportsRayTracing reports whether the device exposes every feature the
// renderer enables at device creation.
func supportsRayTracing(device vk.PhysicalDevice) bool {
	f := (*C.reina_features)(C.calloc(1, C.sizeof_reina_features))
	defer C.free(unsafe.Pointer(f))
	return C.reina_query_features(cPhysicalDevice(device), f) != 0
}

// rayTracingFeatureChain allocates the pNext chain enabling buffer device
// addresses, acceleration structures and ray tracing pipelines. The caller frees it.
func rayTracingFeatureChain() (unsafe.Pointer, func()) {
	f := (*C.reina_features)(C.calloc(1, C.sizeof_reina_features))
	head := C.reina_enable_features(f)
	return unsafe.Pointer(head), func() { C.free(unsafe.Pointer(f)) }
}

func queryRayTracingProperties(device vk.PhysicalDevice) metadata.RayTracingProperties {
	p := (*C.reina_properties)(C.calloc(1, C.sizeof_reina_properties))
	defer C.free(unsafe.Pointer(p))
	C.reina_query_properties(cPhysicalDevice(device), p)
	return metadata.RayTracingProperties{
		ShaderGroupHandleSize:      uint32(p.pipeline.shaderGroupHandleSize),
		ShaderGroupHandleAlignment: uint32(p.pipeline.shaderGroupHandleAlignment),
		ShaderGroupBaseAlignment:   uint32(p.pipeline.shaderGroupBaseAlignment),
		MaxRayRecursionDepth:       uint32(p.pipeline.maxRayRecursionDepth),
		MinScratchOffsetAlignment:  uint32(p.acceleration.minAccelerationStructureScratchOffsetAlignment),
	}
}
