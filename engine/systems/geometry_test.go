package systems

import (
	"testing"

	"github.com/spaghettifunk/reina/engine/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCubeConfig(t *testing.T) {
	cube := GenerateCubeConfig(2, 4, 6, "")

	assert.Equal(t, "default", cube.Name)
	require.Len(t, cube.Positions, 24)
	require.Len(t, cube.Indices, 36)
	assert.Equal(t, uint32(12), cube.TriangleCount())

	for _, p := range cube.Positions {
		assert.Equal(t, float32(1), abs(p.X))
		assert.Equal(t, float32(2), abs(p.Y))
		assert.Equal(t, float32(3), abs(p.Z))
	}
	for _, idx := range cube.Indices {
		assert.Less(t, idx, uint32(24))
	}
}

func TestGenerateCubeConfigFacesAreFlat(t *testing.T) {
	cube := GenerateCubeConfig(1, 1, 1, "cube")
	for face := 0; face < 6; face++ {
		corners := cube.Positions[face*4 : face*4+4]
		// Exactly one axis is constant across a face.
		constant := 0
		for _, get := range []func(math.Vec3) float32{
			func(v math.Vec3) float32 { return v.X },
			func(v math.Vec3) float32 { return v.Y },
			func(v math.Vec3) float32 { return v.Z },
		} {
			if get(corners[0]) == get(corners[1]) && get(corners[1]) == get(corners[2]) && get(corners[2]) == get(corners[3]) {
				constant++
			}
		}
		assert.Equal(t, 1, constant, "face %d", face)
	}
}

func TestGeneratePlaneConfig(t *testing.T) {
	plane := GeneratePlaneConfig(4, 2, 2, 3, "ground")

	assert.Equal(t, "ground", plane.Name)
	require.Len(t, plane.Positions, 2*3*4)
	require.Len(t, plane.Indices, 2*3*6)
	for _, p := range plane.Positions {
		assert.Zero(t, p.Y)
		assert.LessOrEqual(t, abs(p.X), float32(2))
		assert.LessOrEqual(t, abs(p.Z), float32(1))
	}
	for _, idx := range plane.Indices {
		assert.Less(t, idx, uint32(len(plane.Positions)))
	}
}

func TestGeneratePlaneConfigDefaultsZeroInputs(t *testing.T) {
	plane := GeneratePlaneConfig(0, 0, 0, 0, "")
	require.Len(t, plane.Positions, 4)
	assert.Equal(t, math.NewVec3(-0.5, 0, -0.5), plane.Positions[0])
	assert.Equal(t, math.NewVec3(0.5, 0, 0.5), plane.Positions[1])
}

func TestBuildSceneSharesGeometry(t *testing.T) {
	models, err := BuildScene([]SceneObject{
		{Shape: ShapeCube, Size: math.NewVec3One(), Albedo: math.NewVec3(1, 0, 0)},
		{Shape: ShapeCube, Size: math.NewVec3One(), Position: math.NewVec3(3, 0, 0)},
		{Shape: ShapePlane, Size: math.NewVec3(10, 0, 10), Segments: 1},
	})
	require.NoError(t, err)
	require.Len(t, models, 3)

	assert.Same(t, models[0].Geometry, models[1].Geometry)
	assert.NotSame(t, models[0].Geometry, models[2].Geometry)
	assert.Equal(t, math.NewVec3(1, 0, 0), models[0].Albedo)

	// Zero scale is treated as identity; translation sits in the last row.
	assert.Equal(t, math.NewMat4Identity(), models[0].Transform)
	assert.Equal(t, float32(3), models[1].Transform.Data[12])
}

func TestBuildSceneRejectsBadInput(t *testing.T) {
	_, err := BuildScene(nil)
	assert.Error(t, err)

	_, err = BuildScene([]SceneObject{{Shape: "sphere"}})
	assert.ErrorContains(t, err, "unknown shape")
}

func TestDefaultSceneBuilds(t *testing.T) {
	models, err := BuildScene(DefaultScene())
	require.NoError(t, err)
	assert.Len(t, models, 3)
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
