package metadata

// The numeric values below match the Vulkan headers so that backends can pass
// them through without translation tables.

type MemoryPropertyFlags uint32

const (
	MemoryPropertyDeviceLocal     MemoryPropertyFlags = 0x00000001
	MemoryPropertyHostVisible     MemoryPropertyFlags = 0x00000002
	MemoryPropertyHostCoherent    MemoryPropertyFlags = 0x00000004
	MemoryPropertyHostCached      MemoryPropertyFlags = 0x00000008
	MemoryPropertyLazilyAllocated MemoryPropertyFlags = 0x00000010
)

// Has reports whether every bit of required is set in f.
func (f MemoryPropertyFlags) Has(required MemoryPropertyFlags) bool {
	return f&required == required
}

type MemoryAllocateFlags uint32

const (
	MemoryAllocateDeviceAddress MemoryAllocateFlags = 0x00000002
)

type BufferUsageFlags uint32

const (
	BufferUsageTransferSrc                             BufferUsageFlags = 0x00000001
	BufferUsageTransferDst                             BufferUsageFlags = 0x00000002
	BufferUsageUniformBuffer                           BufferUsageFlags = 0x00000010
	BufferUsageStorageBuffer                           BufferUsageFlags = 0x00000020
	BufferUsageIndexBuffer                             BufferUsageFlags = 0x00000040
	BufferUsageVertexBuffer                            BufferUsageFlags = 0x00000080
	BufferUsageShaderBindingTable                      BufferUsageFlags = 0x00000400
	BufferUsageShaderDeviceAddress                     BufferUsageFlags = 0x00020000
	BufferUsageAccelerationStructureBuildInputReadOnly BufferUsageFlags = 0x00080000
	BufferUsageAccelerationStructureStorage            BufferUsageFlags = 0x00100000
)

func (f BufferUsageFlags) Has(bits BufferUsageFlags) bool {
	return f&bits == bits
}

type ImageUsageFlags uint32

const (
	ImageUsageTransferSrc     ImageUsageFlags = 0x00000001
	ImageUsageTransferDst     ImageUsageFlags = 0x00000002
	ImageUsageSampled         ImageUsageFlags = 0x00000004
	ImageUsageStorage         ImageUsageFlags = 0x00000008
	ImageUsageColorAttachment ImageUsageFlags = 0x00000010
)

type Format uint32

const (
	FormatUndefined          Format = 0
	FormatR8G8B8A8Unorm      Format = 37
	FormatB8G8R8A8Unorm      Format = 44
	FormatB8G8R8A8Srgb       Format = 50
	FormatR32G32B32Sfloat    Format = 106
	FormatR32G32B32A32Sfloat Format = 109
)

type ImageLayout uint32

const (
	ImageLayoutUndefined              ImageLayout = 0
	ImageLayoutGeneral                ImageLayout = 1
	ImageLayoutColorAttachmentOptimal ImageLayout = 2
	ImageLayoutShaderReadOnlyOptimal  ImageLayout = 5
	ImageLayoutTransferDstOptimal     ImageLayout = 7
	ImageLayoutPresentSrc             ImageLayout = 1000001002
)

type AccessFlags uint32

const (
	AccessNone                       AccessFlags = 0
	AccessShaderRead                 AccessFlags = 0x00000020
	AccessShaderWrite                AccessFlags = 0x00000040
	AccessColorAttachmentWrite       AccessFlags = 0x00000100
	AccessTransferWrite              AccessFlags = 0x00001000
	AccessHostWrite                  AccessFlags = 0x00004000
	AccessAccelerationStructureRead  AccessFlags = 0x00200000
	AccessAccelerationStructureWrite AccessFlags = 0x00400000
)

type PipelineStageFlags uint32

const (
	PipelineStageTopOfPipe                  PipelineStageFlags = 0x00000001
	PipelineStageVertexShader               PipelineStageFlags = 0x00000008
	PipelineStageFragmentShader             PipelineStageFlags = 0x00000080
	PipelineStageColorAttachmentOutput      PipelineStageFlags = 0x00000400
	PipelineStageTransfer                   PipelineStageFlags = 0x00001000
	PipelineStageBottomOfPipe               PipelineStageFlags = 0x00002000
	PipelineStageHost                       PipelineStageFlags = 0x00004000
	PipelineStageAllCommands                PipelineStageFlags = 0x00010000
	PipelineStageRayTracingShader           PipelineStageFlags = 0x00200000
	PipelineStageAccelerationStructureBuild PipelineStageFlags = 0x02000000
)

type ShaderStageFlags uint32

const (
	ShaderStageVertex       ShaderStageFlags = 0x00000001
	ShaderStageFragment     ShaderStageFlags = 0x00000010
	ShaderStageCompute      ShaderStageFlags = 0x00000020
	ShaderStageRaygen       ShaderStageFlags = 0x00000100
	ShaderStageAnyHit       ShaderStageFlags = 0x00000200
	ShaderStageClosestHit   ShaderStageFlags = 0x00000400
	ShaderStageMiss         ShaderStageFlags = 0x00000800
	ShaderStageIntersection ShaderStageFlags = 0x00001000
	ShaderStageCallable     ShaderStageFlags = 0x00002000
)

type DescriptorType uint32

const (
	DescriptorTypeSampler               DescriptorType = 0
	DescriptorTypeCombinedImageSampler  DescriptorType = 1
	DescriptorTypeSampledImage          DescriptorType = 2
	DescriptorTypeStorageImage          DescriptorType = 3
	DescriptorTypeUniformBuffer         DescriptorType = 6
	DescriptorTypeStorageBuffer         DescriptorType = 7
	DescriptorTypeAccelerationStructure DescriptorType = 1000150000
)

func (t DescriptorType) String() string {
	switch t {
	case DescriptorTypeSampler:
		return "sampler"
	case DescriptorTypeCombinedImageSampler:
		return "combined-image-sampler"
	case DescriptorTypeSampledImage:
		return "sampled-image"
	case DescriptorTypeStorageImage:
		return "storage-image"
	case DescriptorTypeUniformBuffer:
		return "uniform-buffer"
	case DescriptorTypeStorageBuffer:
		return "storage-buffer"
	case DescriptorTypeAccelerationStructure:
		return "acceleration-structure"
	default:
		return "unknown"
	}
}

type PipelineBindPoint uint32

const (
	PipelineBindPointGraphics   PipelineBindPoint = 0
	PipelineBindPointCompute    PipelineBindPoint = 1
	PipelineBindPointRayTracing PipelineBindPoint = 1000165000
)

type CommandBufferUsageFlags uint32

const (
	CommandBufferUsageOneTimeSubmit      CommandBufferUsageFlags = 0x00000001
	CommandBufferUsageRenderPassContinue CommandBufferUsageFlags = 0x00000002
	CommandBufferUsageSimultaneousUse    CommandBufferUsageFlags = 0x00000004
)

type IndexType uint32

const (
	IndexTypeUint16 IndexType = 0
	IndexTypeUint32 IndexType = 1
)
