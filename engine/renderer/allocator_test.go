package renderer

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindMemoryTypeReturnsFirstMatch(t *testing.T) {
	props := metadata.MemoryProperties{Types: []metadata.MemoryType{
		{PropertyFlags: metadata.MemoryPropertyDeviceLocal},
		{PropertyFlags: metadata.MemoryPropertyHostVisible},
		{PropertyFlags: metadata.MemoryPropertyHostVisible | metadata.MemoryPropertyHostCoherent},
		{PropertyFlags: metadata.MemoryPropertyHostVisible | metadata.MemoryPropertyHostCoherent | metadata.MemoryPropertyHostCached},
	}}

	idx, err := FindMemoryType(props, 0b1111, metadata.MemoryPropertyHostVisible|metadata.MemoryPropertyHostCoherent)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), idx)

	// type 2 filtered out
	idx, err = FindMemoryType(props, 0b1011, metadata.MemoryPropertyHostVisible|metadata.MemoryPropertyHostCoherent)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), idx)

	idx, err = FindMemoryType(props, 0b1111, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), idx)
}

func TestFindMemoryTypeUnsatisfiable(t *testing.T) {
	props := metadata.MemoryProperties{Types: []metadata.MemoryType{
		{PropertyFlags: metadata.MemoryPropertyDeviceLocal},
		{PropertyFlags: metadata.MemoryPropertyHostVisible},
	}}

	_, err := FindMemoryType(props, 0b01, metadata.MemoryPropertyHostVisible)
	assert.True(t, errors.Is(err, core.ErrNoSuitableMemoryType))

	_, err = FindMemoryType(props, 0, metadata.MemoryPropertyDeviceLocal)
	assert.True(t, errors.Is(err, core.ErrNoSuitableMemoryType))
}

func TestCreateBufferRejectsZeroSize(t *testing.T) {
	dev := newFakeBackend()
	_, err := NewAllocator(dev).CreateBuffer(0, metadata.BufferUsageStorageBuffer, metadata.MemoryPropertyDeviceLocal)
	assert.True(t, errors.Is(err, core.ErrInvalidBufferSize))
	assert.Empty(t, dev.live)
}

func TestCreateBufferWithDeviceAddress(t *testing.T) {
	dev := newFakeBackend()
	a := NewAllocator(dev)

	b, err := a.CreateBuffer(256, metadata.BufferUsageStorageBuffer|metadata.BufferUsageShaderDeviceAddress, metadata.MemoryPropertyDeviceLocal)
	require.NoError(t, err)
	assert.NotZero(t, b.Address)
	require.Len(t, dev.allocations, 1)
	assert.Equal(t, metadata.MemoryAllocateDeviceAddress, dev.allocations[0].Flags)
	assert.Equal(t, uint32(0), dev.allocations[0].TypeIndex)

	plain, err := a.CreateBuffer(64, metadata.BufferUsageStorageBuffer, metadata.MemoryPropertyHostVisible)
	require.NoError(t, err)
	assert.Zero(t, plain.Address)
	assert.Equal(t, metadata.MemoryAllocateFlags(0), dev.allocations[1].Flags)
	assert.Equal(t, uint32(1), dev.allocations[1].TypeIndex)

	a.DestroyBuffer(b)
	a.DestroyBuffer(plain)
	assert.Empty(t, dev.live)
	assert.Empty(t, dev.faults)
}

func TestCreateBufferCleansUpOnFailure(t *testing.T) {
	tests := []struct {
		name   string
		failOn string
		setup  func(*fakeBackend)
	}{
		{name: "no memory type", setup: func(d *fakeBackend) { d.memoryTypeBits = 0b01 }},
		{name: "allocation", failOn: "AllocateMemory"},
		{name: "bind", failOn: "BindBufferMemory"},
		{name: "device address", failOn: "BufferDeviceAddress"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newFakeBackend()
			if tt.failOn != "" {
				dev.failOn[tt.failOn] = errors.New("device lost")
			}
			if tt.setup != nil {
				tt.setup(dev)
			}
			a := NewAllocator(dev)
			_, err := a.CreateBuffer(128, metadata.BufferUsageStorageBuffer|metadata.BufferUsageShaderDeviceAddress,
				metadata.MemoryPropertyHostVisible|metadata.MemoryPropertyHostCoherent)
			require.Error(t, err)
			assert.Empty(t, dev.live)
			assert.Empty(t, dev.faults)
		})
	}
}

func TestCreateBufferWithDataWritesContents(t *testing.T) {
	dev := newFakeBackend()
	a := NewAllocator(dev)

	b, err := a.CreateBufferWithData(metadata.BufferUsageStorageBuffer, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), b.Size)
	assert.Equal(t, []byte{1, 2, 3, 4}, dev.memory[b.Memory])

	require.NoError(t, a.Write(b, 2, []byte{9, 9}))
	assert.Equal(t, []byte{1, 2, 9, 9}, dev.memory[b.Memory])

	assert.Error(t, a.Write(b, 3, []byte{1, 2}))
}

func TestWriteRejectsDeviceLocalBuffer(t *testing.T) {
	dev := newFakeBackend()
	a := NewAllocator(dev)
	b, err := a.CreateBuffer(16, metadata.BufferUsageStorageBuffer, metadata.MemoryPropertyDeviceLocal)
	require.NoError(t, err)
	assert.Error(t, a.Write(b, 0, []byte{1}))
}

func TestCreateImage(t *testing.T) {
	dev := newFakeBackend()
	a := NewAllocator(dev)

	img, err := a.CreateImage(metadata.FormatR32G32B32A32Sfloat, metadata.Extent2D{Width: 4, Height: 2},
		metadata.ImageUsageStorage, metadata.MemoryPropertyDeviceLocal)
	require.NoError(t, err)
	assert.False(t, img.View.IsNull())
	assert.Equal(t, uint64(4*2*16), dev.allocations[0].Size)

	a.DestroyImage(img)
	assert.Empty(t, dev.live)

	dev.failOn["CreateImageView"] = errors.New("out of host memory")
	_, err = a.CreateImage(metadata.FormatR32G32B32A32Sfloat, metadata.Extent2D{Width: 4, Height: 2},
		metadata.ImageUsageStorage, metadata.MemoryPropertyDeviceLocal)
	require.Error(t, err)
	assert.Empty(t, dev.live)
	assert.Empty(t, dev.faults)
}
