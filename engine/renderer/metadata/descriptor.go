package metadata

type DescriptorSetLayoutBinding struct {
	Binding         uint32
	DescriptorType  DescriptorType
	DescriptorCount uint32
	StageFlags      ShaderStageFlags
}

type DescriptorPoolSize struct {
	Type            DescriptorType
	DescriptorCount uint32
}

/**
 * @brief A reference to the resource a descriptor points at. Exactly one group of
 * fields is meaningful depending on the descriptor type: image view and layout for
 * images, buffer and range for buffers, or the acceleration structure handle.
 */
type DescriptorResource struct {
	ImageView   Handle
	ImageLayout ImageLayout
	Sampler     Handle

	Buffer Handle
	Offset uint64
	// Range of zero means the whole buffer.
	Range uint64

	AccelerationStructure Handle
}

// DescriptorWrite is a single immediate update of one binding of a descriptor set.
type DescriptorWrite struct {
	Set             Handle
	Binding         uint32
	DescriptorType  DescriptorType
	DescriptorCount uint32
	Resource        DescriptorResource
}
