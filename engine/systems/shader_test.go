package systems

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/assets"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSpirv(t *testing.T, path string, marker uint32) {
	t.Helper()
	words := []uint32{0x07230203, marker}
	data := make([]byte, 0, 8)
	for _, w := range words {
		data = append(data, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func newShaderSystem(t *testing.T, dir string) (*ShaderSystem, *core.EventBus) {
	t.Helper()
	bus := core.NewEventBus()
	am, err := assets.NewAssetManager(bus)
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir))
	t.Cleanup(am.Shutdown)

	jobs, err := NewJobSystem(2, 0)
	require.NoError(t, err)
	t.Cleanup(jobs.Shutdown)

	ss := NewShaderSystem(am, jobs, bus)
	t.Cleanup(ss.Shutdown)
	return ss, bus
}

func TestShaderSystemLoadsEveryStage(t *testing.T) {
	dir := t.TempDir()
	files := DefaultShaderFiles()
	for i, f := range []string{files.RayGen, files.Miss, files.ClosestHit, files.CompositeVertex, files.CompositeFragment} {
		writeSpirv(t, filepath.Join(dir, f), uint32(i+1))
	}

	ss, _ := newShaderSystem(t, dir)
	shaders, err := ss.Load(files)
	require.NoError(t, err)

	assert.Equal(t, uint32(1), shaders.RayGen[1])
	assert.Equal(t, uint32(2), shaders.Miss[1])
	assert.Equal(t, uint32(3), shaders.ClosestHit[1])
	assert.Equal(t, uint32(4), shaders.CompositeVertex[1])
	assert.Equal(t, uint32(5), shaders.CompositeFragment[1])
}

func TestShaderSystemMissingStage(t *testing.T) {
	dir := t.TempDir()
	files := DefaultShaderFiles()
	writeSpirv(t, filepath.Join(dir, files.RayGen), 1)

	ss, _ := newShaderSystem(t, dir)
	_, err := ss.Load(files)
	assert.True(t, errors.Is(err, assets.ErrAssetNotFound))
}

func TestShaderSystemRejectsEmptyFileName(t *testing.T) {
	ss, _ := newShaderSystem(t, t.TempDir())
	files := DefaultShaderFiles()
	files.ClosestHit = ""

	_, err := ss.Load(files)
	assert.ErrorContains(t, err, "closest hit")
}

func TestShaderSystemIgnoresUnknownChanges(t *testing.T) {
	dir := t.TempDir()
	ss, bus := newShaderSystem(t, dir)

	ctx := core.EventContext{}
	ctx.Data.C[0] = filepath.Join(dir, "shaders", "unknown.spv")
	assert.False(t, bus.Fire(core.EVENT_CODE_SHADER_CHANGED, nil, ctx))
	assert.Empty(t, ss.loaded)
}
