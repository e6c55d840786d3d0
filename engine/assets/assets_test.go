package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var spirvHeader = []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x05, 0x01, 0x00}

func newManager(t *testing.T, dir string) (*AssetManager, *core.EventBus) {
	t.Helper()
	bus := core.NewEventBus()
	am, err := NewAssetManager(bus)
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir))
	t.Cleanup(am.Shutdown)
	return am, bus
}

func TestDetermineAssetType(t *testing.T) {
	assert.Equal(t, metadata.ResourceTypeShader, determineAssetType("shaders/raytrace.rgen.spv"))
	assert.Equal(t, metadata.ResourceTypeShaderSource, determineAssetType("shaders/raytrace.rchit"))
	assert.Equal(t, metadata.ResourceTypeShaderSource, determineAssetType("composite.frag"))
	assert.Equal(t, metadata.ResourceTypeBinary, determineAssetType("data.bin"))
	assert.Equal(t, metadata.ResourceTypeNone, determineAssetType("README.md"))
}

func TestAssetManagerIndexesAndLoads(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "shaders"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shaders", "miss.rmiss.spv"), spirvHeader, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	am, _ := newManager(t, dir)

	info, ok := am.Lookup("shaders/miss.rmiss.spv")
	require.True(t, ok)
	assert.Equal(t, metadata.ResourceTypeShader, info.Type)
	_, ok = am.Lookup("notes.txt")
	assert.False(t, ok)

	res, err := am.LoadAsset("shaders/miss.rmiss.spv", nil)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x07230203, 0x00010500}, res.Data)

	info, _ = am.Lookup("shaders/miss.rmiss.spv")
	assert.False(t, info.LastLoaded.IsZero())
	require.NoError(t, am.UnloadAsset(res, metadata.ResourceTypeShader))
}

func TestAssetManagerMissingAsset(t *testing.T) {
	am, _ := newManager(t, t.TempDir())

	_, err := am.LoadAsset("shaders/none.spv", nil)
	assert.True(t, errors.Is(err, ErrAssetNotFound))
}

func TestAssetManagerPostsShaderChanges(t *testing.T) {
	dir := t.TempDir()
	am, bus := newManager(t, dir)

	var changed []string
	bus.Register(core.EVENT_CODE_SHADER_CHANGED, t, func(_ core.SystemEventCode, _ interface{}, _ interface{}, data core.EventContext) bool {
		changed = append(changed, data.Data.C[0])
		return true
	})

	path := filepath.Join(dir, "composite.frag.spv")
	require.NoError(t, os.WriteFile(path, spirvHeader, 0o644))

	require.Eventually(t, func() bool {
		bus.Dispatch()
		return len(changed) > 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, path, changed[0])

	_, ok := am.Lookup("composite.frag.spv")
	assert.True(t, ok)
}

func TestAssetManagerShutdownIsIdempotent(t *testing.T) {
	bus := core.NewEventBus()
	am, err := NewAssetManager(bus)
	require.NoError(t, err)
	require.NoError(t, am.Initialize(t.TempDir()))

	am.Shutdown()
	am.Shutdown()
	assert.Error(t, am.addRecursive(t.TempDir()))
}
