package metadata

/** @brief Shader group handle limits reported by the device. */
type RayTracingProperties struct {
	ShaderGroupHandleSize      uint32
	ShaderGroupHandleAlignment uint32
	ShaderGroupBaseAlignment   uint32
	MaxRayRecursionDepth       uint32
	// MinScratchOffsetAlignment comes from the acceleration structure properties.
	MinScratchOffsetAlignment uint32
}

// StridedRegion addresses one category of shader binding table records.
type StridedRegion struct {
	DeviceAddress uint64
	Stride        uint64
	Size          uint64
}

type SbtRegions struct {
	RayGen   StridedRegion
	Miss     StridedRegion
	Hit      StridedRegion
	Callable StridedRegion
}

// RayTracingShaders holds one module per stage. Miss and closest hit may be null.
type RayTracingShaders struct {
	RayGen     Handle
	Miss       Handle
	ClosestHit Handle
}

type ClearColor struct {
	R, G, B, A float32
}
