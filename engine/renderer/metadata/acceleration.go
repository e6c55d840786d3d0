package metadata

type AccelerationStructureLevel uint32

const (
	AccelerationStructureTopLevel    AccelerationStructureLevel = 0
	AccelerationStructureBottomLevel AccelerationStructureLevel = 1
)

func (l AccelerationStructureLevel) String() string {
	if l == AccelerationStructureTopLevel {
		return "top-level"
	}
	return "bottom-level"
}

type BuildAccelerationStructureFlags uint32

const (
	BuildAccelerationStructureAllowUpdate     BuildAccelerationStructureFlags = 0x00000001
	BuildAccelerationStructureAllowCompaction BuildAccelerationStructureFlags = 0x00000002
	BuildAccelerationStructurePreferFastTrace BuildAccelerationStructureFlags = 0x00000004
	BuildAccelerationStructurePreferFastBuild BuildAccelerationStructureFlags = 0x00000008
)

type GeometryFlags uint32

const (
	GeometryOpaque                      GeometryFlags = 0x00000001
	GeometryNoDuplicateAnyHitInvocation GeometryFlags = 0x00000002
)

type GeometryInstanceFlags uint8

const (
	GeometryInstanceTriangleFacingCullDisable GeometryInstanceFlags = 0x01
	GeometryInstanceTriangleFlipFacing        GeometryInstanceFlags = 0x02
	GeometryInstanceForceOpaque               GeometryInstanceFlags = 0x04
	GeometryInstanceForceNoOpaque             GeometryInstanceFlags = 0x08
)

// AccelerationStructureInstanceSize is the size in bytes of one packed
// top-level instance record.
const AccelerationStructureInstanceSize = 64

/** @brief Triangle input of a bottom-level build, addressed by device address. */
type TrianglesGeometry struct {
	VertexFormat  Format
	VertexAddress uint64
	VertexStride  uint64
	MaxVertex     uint32
	IndexType     IndexType
	IndexAddress  uint64
}

/** @brief Instance input of a top-level build. */
type InstancesGeometry struct {
	DataAddress uint64
}

/**
 * @brief Describes one acceleration structure build. Exactly one of Triangles or
 * Instances is set. For size queries Destination and ScratchAddress are left empty.
 */
type AccelerationStructureBuildGeometry struct {
	Level          AccelerationStructureLevel
	Flags          BuildAccelerationStructureFlags
	GeometryFlags  GeometryFlags
	Triangles      *TrianglesGeometry
	Instances      *InstancesGeometry
	PrimitiveCount uint32
	Destination    Handle
	ScratchAddress uint64
}

type AccelerationStructureBuildSizes struct {
	AccelerationStructureSize uint64
	UpdateScratchSize         uint64
	BuildScratchSize          uint64
}
