package renderer

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rayTracingBindings() []DescriptorBinding {
	return []DescriptorBinding{
		{BindingPoint: 0, Type: metadata.DescriptorTypeStorageImage, DescriptorCount: 1, StageFlags: metadata.ShaderStageRaygen},
		{BindingPoint: 1, Type: metadata.DescriptorTypeAccelerationStructure, DescriptorCount: 1, StageFlags: metadata.ShaderStageRaygen | metadata.ShaderStageClosestHit},
		{BindingPoint: 2, Type: metadata.DescriptorTypeStorageBuffer, DescriptorCount: 1, StageFlags: metadata.ShaderStageClosestHit},
		{BindingPoint: 3, Type: metadata.DescriptorTypeStorageBuffer, DescriptorCount: 2, StageFlags: metadata.ShaderStageClosestHit},
	}
}

func TestDescriptorBindingSetPoolSizes(t *testing.T) {
	dev := newFakeBackend()
	s, err := NewDescriptorBindingSet(dev, core.NewRegistry(), rayTracingBindings())
	require.NoError(t, err)

	expected := []metadata.DescriptorPoolSize{
		{Type: metadata.DescriptorTypeStorageImage, DescriptorCount: 1},
		{Type: metadata.DescriptorTypeAccelerationStructure, DescriptorCount: 1},
		{Type: metadata.DescriptorTypeStorageBuffer, DescriptorCount: 3},
	}
	assert.Equal(t, expected, s.PoolSizes())
	assert.Equal(t, expected, dev.pools[s.Pool])
	assert.Len(t, dev.layouts[s.Layout], 4)
	assert.Equal(t, uint32(3), dev.layouts[s.Layout][3].Binding)
}

func TestDescriptorBindingSetRejectsDuplicateBindingPoint(t *testing.T) {
	dev := newFakeBackend()
	bindings := append(rayTracingBindings(), DescriptorBinding{BindingPoint: 2, Type: metadata.DescriptorTypeUniformBuffer, DescriptorCount: 1})

	_, err := NewDescriptorBindingSet(dev, core.NewRegistry(), bindings)
	assert.True(t, errors.Is(err, core.ErrDuplicateBindingPoint))
	assert.Empty(t, dev.live)
}

func TestDescriptorBindingSetWriteBinding(t *testing.T) {
	dev := newFakeBackend()
	s, err := NewDescriptorBindingSet(dev, core.NewRegistry(), rayTracingBindings())
	require.NoError(t, err)

	require.NoError(t, s.WriteBinding(2, metadata.DescriptorResource{Buffer: 42, Range: 64}))
	require.Len(t, dev.writes, 1)
	w := dev.writes[0]
	assert.Equal(t, s.Set, w.Set)
	assert.Equal(t, uint32(2), w.Binding)
	assert.Equal(t, metadata.DescriptorTypeStorageBuffer, w.DescriptorType)
	assert.Equal(t, metadata.Handle(42), w.Resource.Buffer)

	err = s.WriteBinding(7, metadata.DescriptorResource{Buffer: 42})
	assert.True(t, errors.Is(err, core.ErrUnknownBindingPoint))

	// an image where a buffer is declared
	err = s.WriteBinding(2, metadata.DescriptorResource{ImageView: 5, ImageLayout: metadata.ImageLayoutGeneral})
	assert.True(t, errors.Is(err, core.ErrDescriptorResourceMismatch))

	err = s.WriteBinding(1, metadata.DescriptorResource{Buffer: 9})
	assert.True(t, errors.Is(err, core.ErrDescriptorResourceMismatch))

	assert.Len(t, dev.writes, 1)
}

func TestDescriptorBindingSetWritesInitialResources(t *testing.T) {
	dev := newFakeBackend()
	bindings := rayTracingBindings()
	bindings[0].Resource = &metadata.DescriptorResource{ImageView: 11, ImageLayout: metadata.ImageLayoutGeneral}

	s, err := NewDescriptorBindingSet(dev, core.NewRegistry(), bindings)
	require.NoError(t, err)
	require.Len(t, dev.writes, 1)
	assert.Equal(t, metadata.Handle(11), dev.writes[0].Resource.ImageView)
	assert.Equal(t, s.Set, dev.writes[0].Set)
}

func TestDescriptorBindingSetIdentifiers(t *testing.T) {
	dev := newFakeBackend()
	registry := core.NewRegistry()

	a, err := NewDescriptorBindingSet(dev, registry, rayTracingBindings())
	require.NoError(t, err)
	b, err := NewDescriptorBindingSet(dev, registry, rayTracingBindings())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, registry.InUse())

	a.Destroy()
	assert.Equal(t, 1, registry.InUse())
	c, err := NewDescriptorBindingSet(dev, registry, rayTracingBindings())
	require.NoError(t, err)
	assert.Equal(t, a.ID, c.ID)

	b.Destroy()
	c.Destroy()
	assert.Empty(t, dev.live)
	assert.Empty(t, dev.faults)
}

func TestDescriptorBindingSetBind(t *testing.T) {
	dev := newFakeBackend()
	s, err := NewDescriptorBindingSet(dev, core.NewRegistry(), rayTracingBindings())
	require.NoError(t, err)
	cmd, err := dev.AllocateCommandBuffer()
	require.NoError(t, err)

	before := len(dev.events)
	s.Bind(cmd, metadata.PipelineBindPointRayTracing, 77)
	assert.Equal(t, len(dev.events)-1, dev.index("bind descriptor set", before))
}

func TestDescriptorBindingSetCleansUpOnFailure(t *testing.T) {
	for _, name := range []string{"CreateDescriptorSetLayout", "CreateDescriptorPool", "AllocateDescriptorSet"} {
		t.Run(name, func(t *testing.T) {
			dev := newFakeBackend()
			dev.failOn[name] = errors.New("out of pool memory")
			registry := core.NewRegistry()
			_, err := NewDescriptorBindingSet(dev, registry, rayTracingBindings())
			require.Error(t, err)
			assert.Empty(t, dev.live)
			assert.Equal(t, 0, registry.InUse())
		})
	}
}
