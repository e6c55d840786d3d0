package systems

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/math"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

const (
	ShapeCube  = "cube"
	ShapePlane = "plane"
)

/**
 * @brief Generates configuration for plane geometries lying on the XZ plane,
 * facing +Y. Indices are relative to the first vertex of the plane.
 *
 * @param width The overall width of the plane (x). Must be non-zero.
 * @param depth The overall depth of the plane (z). Must be non-zero.
 * @param xSegmentCount The number of segments along the x-axis. Must be non-zero.
 * @param zSegmentCount The number of segments along the z-axis. Must be non-zero.
 * @param name The name of the generated geometry.
 * @return A geometry configuration ready to be packed into the scene buffers.
 */
func GeneratePlaneConfig(width, depth float32, xSegmentCount, zSegmentCount uint32, name string) *metadata.GeometryConfig {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if depth == 0 {
		core.LogWarn("Depth must be nonzero. Defaulting to one.")
		depth = 1.0
	}
	if xSegmentCount < 1 {
		core.LogWarn("xSegmentCount must be a positive number. Defaulting to one.")
		xSegmentCount = 1
	}
	if zSegmentCount < 1 {
		core.LogWarn("zSegmentCount must be a positive number. Defaulting to one.")
		zSegmentCount = 1
	}

	config := &metadata.GeometryConfig{
		Name:      geometryName(name),
		Positions: make([]math.Vec3, xSegmentCount*zSegmentCount*4), // 4 verts per segment
		Indices:   make([]uint32, xSegmentCount*zSegmentCount*6),    // 6 indices per segment
	}

	// Neighbouring segments duplicate their shared corners.
	segWidth := width / float32(xSegmentCount)
	segDepth := depth / float32(zSegmentCount)
	halfWidth := width * 0.5
	halfDepth := depth * 0.5
	for z := uint32(0); z < zSegmentCount; z++ {
		for x := uint32(0); x < xSegmentCount; x++ {
			minX := (float32(x) * segWidth) - halfWidth
			minZ := (float32(z) * segDepth) - halfDepth
			maxX := minX + segWidth
			maxZ := minZ + segDepth

			vOffset := ((z * xSegmentCount) + x) * 4
			config.Positions[vOffset+0] = math.NewVec3(minX, 0, minZ)
			config.Positions[vOffset+1] = math.NewVec3(maxX, 0, maxZ)
			config.Positions[vOffset+2] = math.NewVec3(minX, 0, maxZ)
			config.Positions[vOffset+3] = math.NewVec3(maxX, 0, minZ)

			iOffset := ((z * xSegmentCount) + x) * 6
			config.Indices[iOffset+0] = vOffset + 0
			config.Indices[iOffset+1] = vOffset + 1
			config.Indices[iOffset+2] = vOffset + 2
			config.Indices[iOffset+3] = vOffset + 0
			config.Indices[iOffset+4] = vOffset + 3
			config.Indices[iOffset+5] = vOffset + 1
		}
	}
	return config
}

// cubeFaces lists the four corners of each face as min(0)/max(1) selectors
// per axis, in the same corner order as the plane segments.
var cubeFaces = [6][4][3]int{
	{{0, 0, 1}, {1, 1, 1}, {0, 1, 1}, {1, 0, 1}}, // front
	{{1, 0, 0}, {0, 1, 0}, {1, 1, 0}, {0, 0, 0}}, // back
	{{0, 0, 0}, {0, 1, 1}, {0, 1, 0}, {0, 0, 1}}, // left
	{{1, 0, 1}, {1, 1, 0}, {1, 1, 1}, {1, 0, 0}}, // right
	{{1, 0, 1}, {0, 0, 0}, {1, 0, 0}, {0, 0, 1}}, // bottom
	{{0, 1, 1}, {1, 1, 0}, {0, 1, 0}, {1, 1, 1}}, // top
}

/**
 * @brief Generates configuration for an axis-aligned box centered on the origin.
 * Each face has its own four vertices.
 */
func GenerateCubeConfig(width, height, depth float32, name string) *metadata.GeometryConfig {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if height == 0 {
		core.LogWarn("Height must be nonzero. Defaulting to one.")
		height = 1.0
	}
	if depth == 0 {
		core.LogWarn("Depth must be nonzero. Defaulting to one.")
		depth = 1
	}

	half := [3]float32{width * 0.5, height * 0.5, depth * 0.5}
	corner := func(sel [3]int) math.Vec3 {
		var v [3]float32
		for axis := 0; axis < 3; axis++ {
			v[axis] = -half[axis]
			if sel[axis] == 1 {
				v[axis] = half[axis]
			}
		}
		return math.NewVec3(v[0], v[1], v[2])
	}

	config := &metadata.GeometryConfig{
		Name:      geometryName(name),
		Positions: make([]math.Vec3, 0, 4*6), // 4 verts per side, 6 sides
		Indices:   make([]uint32, 0, 6*6),    // 6 indices per side, 6 sides
	}
	for i, face := range cubeFaces {
		for _, sel := range face {
			config.Positions = append(config.Positions, corner(sel))
		}
		v := uint32(i * 4)
		config.Indices = append(config.Indices, v+0, v+1, v+2, v+0, v+3, v+1)
	}
	return config
}

func geometryName(name string) string {
	if len(name) > 0 {
		return name
	}
	return metadata.DefaultGeometryName
}

/**
 * @brief One generated shape placed in the world. Yaw is in degrees around the
 * y axis; Size is the shape's extent before Scale (the plane ignores Size.Y).
 */
type SceneObject struct {
	Shape    string
	Size     math.Vec3
	Segments uint32
	Position math.Vec3
	Yaw      float32
	Scale    math.Vec3
	Albedo   math.Vec3
}

// DefaultScene is a ground plane with two boxes standing on it.
func DefaultScene() []SceneObject {
	return []SceneObject{
		{
			Shape:    ShapePlane,
			Size:     math.NewVec3(20, 0, 20),
			Segments: 1,
			Position: math.NewVec3(0, -1, 0),
			Scale:    math.NewVec3One(),
			Albedo:   math.NewVec3(0.8, 0.8, 0.8),
		},
		{
			Shape:    ShapeCube,
			Size:     math.NewVec3(2, 2, 2),
			Position: math.NewVec3(-1.5, 0, 0),
			Yaw:      30,
			Scale:    math.NewVec3One(),
			Albedo:   math.NewVec3(0.9, 0.2, 0.2),
		},
		{
			Shape:    ShapeCube,
			Size:     math.NewVec3(1, 3, 1),
			Position: math.NewVec3(2, 0.5, -1),
			Scale:    math.NewVec3One(),
			Albedo:   math.NewVec3(0.2, 0.4, 0.9),
		},
	}
}

// BuildScene generates the geometry of every object and turns the placement
// into a transform. Objects with the same shape and size share one geometry.
func BuildScene(objects []SceneObject) ([]metadata.Model, error) {
	if len(objects) == 0 {
		err := errors.New("scene has no objects")
		core.LogError(err.Error())
		return nil, err
	}

	type key struct {
		shape    string
		size     math.Vec3
		segments uint32
	}
	cache := make(map[key]*metadata.GeometryConfig)

	models := make([]metadata.Model, 0, len(objects))
	for i, o := range objects {
		k := key{o.Shape, o.Size, o.Segments}
		geometry, ok := cache[k]
		if !ok {
			switch o.Shape {
			case ShapeCube:
				geometry = GenerateCubeConfig(o.Size.X, o.Size.Y, o.Size.Z, ShapeCube)
			case ShapePlane:
				geometry = GeneratePlaneConfig(o.Size.X, o.Size.Z, o.Segments, o.Segments, ShapePlane)
			default:
				err := errors.Errorf("scene object %d: unknown shape %q", i, o.Shape)
				core.LogError(err.Error())
				return nil, err
			}
			cache[k] = geometry
		}

		scale := o.Scale
		if scale == (math.Vec3{}) {
			scale = math.NewVec3One()
		}
		models = append(models, metadata.Model{
			Geometry:  geometry,
			Transform: math.NewMat4TRS(o.Position, math.DegToRad(o.Yaw), scale),
			Albedo:    o.Albedo,
		})
	}
	return models, nil
}
