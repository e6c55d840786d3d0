package metadata

type ImageSubresourceRange struct {
	BaseMipLevel   uint32
	LevelCount     uint32
	BaseArrayLayer uint32
	LayerCount     uint32
}

// ColorSubresource covers the single mip level and layer of a plain 2D color image.
var ColorSubresource = ImageSubresourceRange{LevelCount: 1, LayerCount: 1}

type ImageBarrier struct {
	Image         Handle
	OldLayout     ImageLayout
	NewLayout     ImageLayout
	SrcAccessMask AccessFlags
	DstAccessMask AccessFlags
	Range         ImageSubresourceRange
}

type MemoryBarrier struct {
	SrcAccessMask AccessFlags
	DstAccessMask AccessFlags
}
