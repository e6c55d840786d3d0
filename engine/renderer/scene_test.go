package renderer

import (
	"encoding/binary"
	gomath "math"
	"testing"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/math"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triangleModel(albedo math.Vec3) metadata.Model {
	return metadata.Model{
		Geometry: &metadata.GeometryConfig{
			Name:      "triangle",
			Positions: []math.Vec3{math.NewVec3(0, 0, 0), math.NewVec3(1, 0, 0), math.NewVec3(0, 1, 0)},
			Indices:   []uint32{0, 1, 2},
		},
		Transform: math.NewMat4Identity(),
		Albedo:    albedo,
	}
}

func quadModel() metadata.Model {
	return metadata.Model{
		Geometry: &metadata.GeometryConfig{
			Name: "quad",
			Positions: []math.Vec3{
				math.NewVec3(-1, 0, -1), math.NewVec3(1, 0, -1), math.NewVec3(1, 0, 1), math.NewVec3(-1, 0, 1),
			},
			Indices: []uint32{0, 1, 2, 2, 3, 0},
		},
		Transform: math.NewMat4Translation(math.NewVec3(0, -1, 0)),
		Albedo:    math.NewVec3(0.5, 0.5, 0.5),
	}
}

func TestPackSceneConcatenatesModels(t *testing.T) {
	p, err := PackScene([]metadata.Model{triangleModel(math.NewVec3(1, 0, 0)), quadModel()})
	require.NoError(t, err)

	assert.Len(t, p.Vertices, 7*metadata.VertexStride)
	assert.Len(t, p.Indices, 9*4)
	assert.Equal(t, []metadata.ModelRange{
		{FirstVertex: 0, IndexOffset: 0, IndexCount: 3},
		{FirstVertex: 3, IndexOffset: 3, IndexCount: 6},
	}, p.ModelRanges)
	assert.Equal(t, []uint32{3, 4}, p.VertexCounts)

	// indices stay relative to their model
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(p.Indices[7*4:]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(p.Indices[8*4:]))

	require.Len(t, p.Ranges, 2*metadata.ModelRangeSize)
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(p.Ranges[16:]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(p.Ranges[20:]))
	assert.Equal(t, uint32(6), binary.LittleEndian.Uint32(p.Ranges[24:]))

	require.Len(t, p.Properties, 2*metadata.ObjectPropertiesSize)
	assert.Equal(t, float32(1), gomath.Float32frombits(binary.LittleEndian.Uint32(p.Properties[0:])))
	assert.Equal(t, float32(0.5), gomath.Float32frombits(binary.LittleEndian.Uint32(p.Properties[16:])))
}

func TestPackSceneRejectsBadGeometry(t *testing.T) {
	_, err := PackScene(nil)
	assert.True(t, errors.Is(err, core.ErrEmptyGeometry))

	_, err = PackScene([]metadata.Model{{}})
	assert.True(t, errors.Is(err, core.ErrEmptyGeometry))

	m := triangleModel(math.NewVec3One())
	m.Geometry.Indices = []uint32{0, 1, 3}
	_, err = PackScene([]metadata.Model{m})
	assert.Error(t, err)
}

func TestSceneBuffersGeometry(t *testing.T) {
	dev := newFakeBackend()
	a := NewAllocator(dev)

	s, err := NewSceneBuffers(a, []metadata.Model{triangleModel(math.NewVec3One()), quadModel()})
	require.NoError(t, err)
	assert.NotZero(t, s.Vertices.Address)
	assert.NotZero(t, s.Indices.Address)
	assert.Len(t, s.Transforms, 2)

	g := s.Geometry(1)
	assert.Equal(t, uint64(3*metadata.VertexStride), g.VertexOffset)
	assert.Equal(t, uint64(3*4), g.IndexOffset)
	assert.Equal(t, uint32(4), g.VertexCount)
	assert.Equal(t, uint32(6), g.IndexCount)

	s.Destroy(a)
	assert.Empty(t, dev.live)
}

func TestSceneBuffersCleanUpOnFailure(t *testing.T) {
	dev := newFakeBackend()
	dev.failOn["WriteMemory"] = errors.New("memory map failed")
	a := NewAllocator(dev)

	_, err := NewSceneBuffers(a, []metadata.Model{triangleModel(math.NewVec3One())})
	require.Error(t, err)
	assert.Empty(t, dev.live)
	assert.Empty(t, dev.faults)
}
