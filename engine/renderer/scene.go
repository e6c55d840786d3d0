package renderer

import (
	"encoding/binary"
	gomath "math"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/math"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

// PackedScene is every model's geometry concatenated into shared streams.
type PackedScene struct {
	Vertices     []byte
	Indices      []byte
	Ranges       []byte
	Properties   []byte
	ModelRanges  []metadata.ModelRange
	VertexCounts []uint32
}

// PackScene concatenates positions as float3 and indices as uint32 (relative
// to each model's first vertex), and encodes one range record and one
// material record per model.
func PackScene(models []metadata.Model) (*PackedScene, error) {
	p := &PackedScene{}
	var firstVertex, indexOffset uint32
	for i, m := range models {
		if m.Geometry == nil || len(m.Geometry.Positions) == 0 || m.Geometry.TriangleCount() == 0 || len(m.Geometry.Indices)%3 != 0 {
			err := errors.Wrapf(core.ErrEmptyGeometry, "model %d", i)
			core.LogError(err.Error())
			return nil, err
		}
		for _, idx := range m.Geometry.Indices {
			if int(idx) >= len(m.Geometry.Positions) {
				err := errors.Errorf("model %d (%s): index %d out of range of %d vertices", i, m.Geometry.Name, idx, len(m.Geometry.Positions))
				core.LogError(err.Error())
				return nil, err
			}
		}

		for _, v := range m.Geometry.Positions {
			p.Vertices = binary.LittleEndian.AppendUint32(p.Vertices, gomath.Float32bits(v.X))
			p.Vertices = binary.LittleEndian.AppendUint32(p.Vertices, gomath.Float32bits(v.Y))
			p.Vertices = binary.LittleEndian.AppendUint32(p.Vertices, gomath.Float32bits(v.Z))
		}
		for _, idx := range m.Geometry.Indices {
			p.Indices = binary.LittleEndian.AppendUint32(p.Indices, idx)
		}

		r := metadata.ModelRange{
			FirstVertex: firstVertex,
			IndexOffset: indexOffset,
			IndexCount:  uint32(len(m.Geometry.Indices)),
		}
		p.ModelRanges = append(p.ModelRanges, r)
		p.VertexCounts = append(p.VertexCounts, uint32(len(m.Geometry.Positions)))
		p.Ranges = binary.LittleEndian.AppendUint32(p.Ranges, r.FirstVertex)
		p.Ranges = binary.LittleEndian.AppendUint32(p.Ranges, r.IndexOffset)
		p.Ranges = binary.LittleEndian.AppendUint32(p.Ranges, r.IndexCount)
		p.Ranges = binary.LittleEndian.AppendUint32(p.Ranges, 0)

		p.Properties = binary.LittleEndian.AppendUint32(p.Properties, gomath.Float32bits(m.Albedo.X))
		p.Properties = binary.LittleEndian.AppendUint32(p.Properties, gomath.Float32bits(m.Albedo.Y))
		p.Properties = binary.LittleEndian.AppendUint32(p.Properties, gomath.Float32bits(m.Albedo.Z))
		p.Properties = binary.LittleEndian.AppendUint32(p.Properties, 0)

		firstVertex += uint32(len(m.Geometry.Positions))
		indexOffset += uint32(len(m.Geometry.Indices))
	}
	if len(p.ModelRanges) == 0 {
		err := errors.Wrap(core.ErrEmptyGeometry, "scene has no models")
		core.LogError(err.Error())
		return nil, err
	}
	return p, nil
}

// SceneBuffers are the device copies of a packed scene. They are read both as
// acceleration structure build input and as storage buffers by the hit shader.
type SceneBuffers struct {
	Vertices   *Buffer
	Indices    *Buffer
	Ranges     *Buffer
	Properties *Buffer

	ModelRanges  []metadata.ModelRange
	VertexCounts []uint32
	Transforms   []math.Mat4
}

func NewSceneBuffers(allocator *Allocator, models []metadata.Model) (*SceneBuffers, error) {
	packed, err := PackScene(models)
	if err != nil {
		return nil, err
	}

	geometryUsage := metadata.BufferUsageStorageBuffer |
		metadata.BufferUsageShaderDeviceAddress |
		metadata.BufferUsageAccelerationStructureBuildInputReadOnly

	s := &SceneBuffers{
		ModelRanges:  packed.ModelRanges,
		VertexCounts: packed.VertexCounts,
	}
	for _, m := range models {
		s.Transforms = append(s.Transforms, m.Transform)
	}
	uploads := []struct {
		dst   **Buffer
		usage metadata.BufferUsageFlags
		data  []byte
	}{
		{&s.Vertices, geometryUsage, packed.Vertices},
		{&s.Indices, geometryUsage, packed.Indices},
		{&s.Ranges, metadata.BufferUsageStorageBuffer, packed.Ranges},
		{&s.Properties, metadata.BufferUsageStorageBuffer, packed.Properties},
	}
	for _, u := range uploads {
		b, err := allocator.CreateBufferWithData(u.usage, u.data)
		if err != nil {
			s.Destroy(allocator)
			return nil, err
		}
		*u.dst = b
	}

	core.LogDebug("scene uploaded: %d models, %d vertex bytes, %d index bytes", len(models), len(packed.Vertices), len(packed.Indices))
	return s, nil
}

// Geometry returns the bottom-level build input of model i.
func (s *SceneBuffers) Geometry(i int) TriangleGeometry {
	r := s.ModelRanges[i]
	return TriangleGeometry{
		VertexBuffer: s.Vertices,
		VertexOffset: uint64(r.FirstVertex) * metadata.VertexStride,
		VertexStride: metadata.VertexStride,
		VertexCount:  s.VertexCounts[i],
		IndexBuffer:  s.Indices,
		IndexOffset:  uint64(r.IndexOffset) * 4,
		IndexCount:   r.IndexCount,
	}
}

func (s *SceneBuffers) Destroy(allocator *Allocator) {
	allocator.DestroyBuffer(s.Properties)
	allocator.DestroyBuffer(s.Ranges)
	allocator.DestroyBuffer(s.Indices)
	allocator.DestroyBuffer(s.Vertices)
}
