package renderer

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

// Buffer is a device buffer together with the memory bound to it at offset 0.
// Address is only set when the buffer was created with the shader device
// address usage.
type Buffer struct {
	Handle     metadata.Handle
	Memory     metadata.Handle
	Size       uint64
	Usage      metadata.BufferUsageFlags
	Properties metadata.MemoryPropertyFlags
	Address    uint64
}

// Image is a 2D image, its memory and a color view over it.
type Image struct {
	Handle metadata.Handle
	Memory metadata.Handle
	View   metadata.Handle
	Format metadata.Format
	Extent metadata.Extent2D
}

type Allocator struct {
	device     MemoryDevice
	properties metadata.MemoryProperties
}

func NewAllocator(device MemoryDevice) *Allocator {
	return &Allocator{
		device:     device,
		properties: device.MemoryProperties(),
	}
}

// FindMemoryType returns the first memory type index allowed by typeFilter
// whose property flags contain every requested flag.
func FindMemoryType(properties metadata.MemoryProperties, typeFilter uint32, flags metadata.MemoryPropertyFlags) (uint32, error) {
	for i, t := range properties.Types {
		if i >= 32 {
			break
		}
		if typeFilter&(1<<uint(i)) != 0 && t.PropertyFlags.Has(flags) {
			return uint32(i), nil
		}
	}
	return 0, errors.Wrapf(core.ErrNoSuitableMemoryType, "type filter %#b, property flags %#x", typeFilter, uint32(flags))
}

// Allocate picks a memory type for the request and allocates size bytes from it.
func (a *Allocator) Allocate(size uint64, typeFilter uint32, flags metadata.MemoryPropertyFlags, allocateFlags metadata.MemoryAllocateFlags) (metadata.Handle, error) {
	index, err := FindMemoryType(a.properties, typeFilter, flags)
	if err != nil {
		core.LogError(err.Error())
		return metadata.NullHandle, err
	}
	memory, err := a.device.AllocateMemory(size, index, allocateFlags)
	if err != nil {
		err = errors.Wrapf(err, "failed to allocate %d bytes from memory type %d", size, index)
		core.LogError(err.Error())
		return metadata.NullHandle, err
	}
	return memory, nil
}

// CreateBuffer creates a buffer, allocates matching memory and binds it at
// offset 0. Nothing is left behind when any step fails.
func (a *Allocator) CreateBuffer(size uint64, usage metadata.BufferUsageFlags, properties metadata.MemoryPropertyFlags) (*Buffer, error) {
	if size == 0 {
		err := errors.WithStack(core.ErrInvalidBufferSize)
		core.LogError(err.Error())
		return nil, err
	}

	handle, reqs, err := a.device.CreateBuffer(size, usage)
	if err != nil {
		err = errors.Wrap(err, "failed to create buffer")
		core.LogError(err.Error())
		return nil, err
	}

	var allocateFlags metadata.MemoryAllocateFlags
	wantsAddress := usage.Has(metadata.BufferUsageShaderDeviceAddress)
	if wantsAddress {
		allocateFlags |= metadata.MemoryAllocateDeviceAddress
	}

	memory, err := a.Allocate(reqs.Size, reqs.MemoryTypeBits, properties, allocateFlags)
	if err != nil {
		a.device.DestroyBuffer(handle)
		return nil, err
	}

	if err := a.device.BindBufferMemory(handle, memory); err != nil {
		a.device.FreeMemory(memory)
		a.device.DestroyBuffer(handle)
		err = errors.Wrap(err, "failed to bind buffer memory")
		core.LogError(err.Error())
		return nil, err
	}

	b := &Buffer{
		Handle:     handle,
		Memory:     memory,
		Size:       size,
		Usage:      usage,
		Properties: properties,
	}
	if wantsAddress {
		addr, err := a.device.BufferDeviceAddress(handle)
		if err != nil {
			a.DestroyBuffer(b)
			err = errors.Wrap(err, "failed to query buffer device address")
			core.LogError(err.Error())
			return nil, err
		}
		b.Address = addr
	}
	return b, nil
}

// CreateBufferWithData creates a host-visible, coherent buffer holding data.
func (a *Allocator) CreateBufferWithData(usage metadata.BufferUsageFlags, data []byte) (*Buffer, error) {
	b, err := a.CreateBuffer(uint64(len(data)), usage, metadata.MemoryPropertyHostVisible|metadata.MemoryPropertyHostCoherent)
	if err != nil {
		return nil, err
	}
	if err := a.Write(b, 0, data); err != nil {
		a.DestroyBuffer(b)
		return nil, err
	}
	return b, nil
}

// Write copies data into a host-visible buffer.
func (a *Allocator) Write(b *Buffer, offset uint64, data []byte) error {
	if !b.Properties.Has(metadata.MemoryPropertyHostVisible) {
		err := errors.Errorf("buffer %#x is not host visible", uint64(b.Handle))
		core.LogError(err.Error())
		return err
	}
	if offset+uint64(len(data)) > b.Size {
		err := errors.Errorf("write of %d bytes at offset %d overflows buffer of %d bytes", len(data), offset, b.Size)
		core.LogError(err.Error())
		return err
	}
	if err := a.device.WriteMemory(b.Memory, offset, data); err != nil {
		err = errors.Wrap(err, "failed to write buffer memory")
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (a *Allocator) DestroyBuffer(b *Buffer) {
	if b == nil {
		return
	}
	a.device.DestroyBuffer(b.Handle)
	a.device.FreeMemory(b.Memory)
}

// CreateImage creates a 2D single-mip image with bound memory and a color view.
func (a *Allocator) CreateImage(format metadata.Format, extent metadata.Extent2D, usage metadata.ImageUsageFlags, properties metadata.MemoryPropertyFlags) (*Image, error) {
	handle, reqs, err := a.device.CreateImage(format, extent, usage)
	if err != nil {
		err = errors.Wrap(err, "failed to create image")
		core.LogError(err.Error())
		return nil, err
	}

	memory, err := a.Allocate(reqs.Size, reqs.MemoryTypeBits, properties, 0)
	if err != nil {
		a.device.DestroyImage(handle)
		return nil, err
	}

	if err := a.device.BindImageMemory(handle, memory); err != nil {
		a.device.FreeMemory(memory)
		a.device.DestroyImage(handle)
		err = errors.Wrap(err, "failed to bind image memory")
		core.LogError(err.Error())
		return nil, err
	}

	view, err := a.device.CreateImageView(handle, format)
	if err != nil {
		a.device.DestroyImage(handle)
		a.device.FreeMemory(memory)
		err = errors.Wrap(err, "failed to create image view")
		core.LogError(err.Error())
		return nil, err
	}

	return &Image{
		Handle: handle,
		Memory: memory,
		View:   view,
		Format: format,
		Extent: extent,
	}, nil
}

func (a *Allocator) DestroyImage(img *Image) {
	if img == nil {
		return
	}
	a.device.DestroyImageView(img.View)
	a.device.DestroyImage(img.Handle)
	a.device.FreeMemory(img.Memory)
}
