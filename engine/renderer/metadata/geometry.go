package metadata

import "github.com/spaghettifunk/reina/engine/math"

/** @brief The name of the default geometry. */
const DefaultGeometryName string = "default"

// VertexStride is the byte size of one packed position.
const VertexStride = 12

/**
 * @brief Positions and triangle indices of one mesh. Indices are relative to the
 * first vertex of the mesh.
 */
type GeometryConfig struct {
	Name      string
	Positions []math.Vec3
	Indices   []uint32
}

func (g *GeometryConfig) TriangleCount() uint32 {
	return uint32(len(g.Indices) / 3)
}

// Model is one mesh placed in the scene.
type Model struct {
	Geometry  *GeometryConfig
	Transform math.Mat4
	Albedo    math.Vec3
}

/**
 * @brief Where a model lives inside the packed vertex and index buffers. Read by
 * the closest hit shader, so the layout is three tightly packed uint32 values
 * padded to 16 bytes.
 */
type ModelRange struct {
	FirstVertex uint32
	IndexOffset uint32
	IndexCount  uint32
}

const ModelRangeSize = 16

// ObjectPropertiesSize is one per-instance material record: vec3 albedo plus
// padding.
const ObjectPropertiesSize = 16
