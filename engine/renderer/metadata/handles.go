package metadata

// Handle is an opaque backend object. Zero is the null handle.
type Handle uint64

const NullHandle Handle = 0

func (h Handle) IsNull() bool {
	return h == NullHandle
}

/** @brief A pipeline together with the layout its descriptor sets and push constants are bound against. */
type Pipeline struct {
	Handle Handle
	Layout Handle
	// GroupCount is the number of shader groups for ray tracing pipelines, zero otherwise.
	GroupCount uint32
}

// Extent2D is a width/height pair in pixels.
type Extent2D struct {
	Width  uint32
	Height uint32
}

func (e Extent2D) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}
