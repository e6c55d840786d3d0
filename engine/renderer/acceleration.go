package renderer

import (
	"encoding/binary"
	gomath "math"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/math"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

// AccelerationStructure is a built structure and the buffer backing it. Top
// level structures additionally own the instance buffer they were built from.
type AccelerationStructure struct {
	Handle         metadata.Handle
	Level          metadata.AccelerationStructureLevel
	Buffer         *Buffer
	InstanceBuffer *Buffer
	Address        uint64

	// built is set only after the build submission has been waited on.
	built bool
}

func (as *AccelerationStructure) Built() bool {
	return as != nil && as.built
}

// TriangleGeometry borrows a range of packed float3 positions and uint32
// indices. Offsets are in bytes.
type TriangleGeometry struct {
	VertexBuffer *Buffer
	VertexOffset uint64
	VertexStride uint64
	VertexCount  uint32
	IndexBuffer  *Buffer
	IndexOffset  uint64
	IndexCount   uint32
}

// Instance places a bottom-level structure in the top-level one.
type Instance struct {
	BottomLevel     *AccelerationStructure
	Transform       math.Mat4
	CustomIndex     uint32
	Mask            uint8
	SbtRecordOffset uint32
	Flags           metadata.GeometryInstanceFlags
}

// NewInstance returns an instance visible to every ray mask with back face
// culling disabled.
func NewInstance(blas *AccelerationStructure, transform math.Mat4, customIndex uint32) Instance {
	return Instance{
		BottomLevel: blas,
		Transform:   transform,
		CustomIndex: customIndex,
		Mask:        0xFF,
		Flags:       metadata.GeometryInstanceTriangleFacingCullDisable,
	}
}

type AccelerationBuildDevice interface {
	AccelerationDevice
	CommandDevice
}

// AccelerationStructureBuilder builds structures once, synchronously. Every
// build blocks until the queue is idle before returning.
type AccelerationStructureBuilder struct {
	device           AccelerationBuildDevice
	allocator        *Allocator
	scratchAlignment uint64
}

func NewAccelerationStructureBuilder(device AccelerationBuildDevice, allocator *Allocator, scratchAlignment uint32) *AccelerationStructureBuilder {
	return &AccelerationStructureBuilder{
		device:           device,
		allocator:        allocator,
		scratchAlignment: uint64(scratchAlignment),
	}
}

func (b *AccelerationStructureBuilder) BuildBottomLevel(g TriangleGeometry) (*AccelerationStructure, error) {
	if g.IndexCount == 0 || g.IndexCount%3 != 0 || g.VertexCount == 0 {
		err := errors.Wrapf(core.ErrEmptyGeometry, "%d vertices, %d indices", g.VertexCount, g.IndexCount)
		core.LogError(err.Error())
		return nil, err
	}
	if g.VertexBuffer == nil || g.IndexBuffer == nil || g.VertexBuffer.Address == 0 || g.IndexBuffer.Address == 0 {
		err := errors.Wrap(core.ErrMissingDeviceAddress, "bottom-level vertex and index buffers")
		core.LogError(err.Error())
		return nil, err
	}

	stride := g.VertexStride
	if stride == 0 {
		stride = metadata.VertexStride
	}

	return b.build(metadata.AccelerationStructureBuildGeometry{
		Level:         metadata.AccelerationStructureBottomLevel,
		Flags:         metadata.BuildAccelerationStructurePreferFastTrace,
		GeometryFlags: metadata.GeometryOpaque,
		Triangles: &metadata.TrianglesGeometry{
			VertexFormat:  metadata.FormatR32G32B32Sfloat,
			VertexAddress: g.VertexBuffer.Address + g.VertexOffset,
			VertexStride:  stride,
			MaxVertex:     g.VertexCount - 1,
			IndexType:     metadata.IndexTypeUint32,
			IndexAddress:  g.IndexBuffer.Address + g.IndexOffset,
		},
		PrimitiveCount: g.IndexCount / 3,
	})
}

// BuildTopLevel refuses any instance whose bottom-level build has not completed.
func (b *AccelerationStructureBuilder) BuildTopLevel(instances []Instance) (*AccelerationStructure, error) {
	if len(instances) == 0 {
		err := errors.WithStack(core.ErrNoInstances)
		core.LogError(err.Error())
		return nil, err
	}
	for i, inst := range instances {
		if !inst.BottomLevel.Built() || inst.BottomLevel.Level != metadata.AccelerationStructureBottomLevel {
			err := errors.Wrapf(core.ErrBottomLevelNotBuilt, "instance %d", i)
			core.LogError(err.Error())
			return nil, err
		}
	}

	instanceBuffer, err := b.allocator.CreateBufferWithData(
		metadata.BufferUsageAccelerationStructureBuildInputReadOnly|metadata.BufferUsageShaderDeviceAddress,
		EncodeInstances(instances),
	)
	if err != nil {
		return nil, err
	}

	as, err := b.build(metadata.AccelerationStructureBuildGeometry{
		Level:          metadata.AccelerationStructureTopLevel,
		Flags:          metadata.BuildAccelerationStructurePreferFastTrace,
		GeometryFlags:  metadata.GeometryOpaque,
		Instances:      &metadata.InstancesGeometry{DataAddress: instanceBuffer.Address},
		PrimitiveCount: uint32(len(instances)),
	})
	if err != nil {
		b.allocator.DestroyBuffer(instanceBuffer)
		return nil, err
	}
	as.InstanceBuffer = instanceBuffer
	return as, nil
}

func (b *AccelerationStructureBuilder) build(geometry metadata.AccelerationStructureBuildGeometry) (*AccelerationStructure, error) {
	sizes, err := b.device.AccelerationStructureBuildSizes(geometry)
	if err != nil {
		err = errors.Wrapf(err, "failed to query %s build sizes", geometry.Level)
		core.LogError(err.Error())
		return nil, err
	}
	if sizes.AccelerationStructureSize == 0 || sizes.BuildScratchSize == 0 {
		err := errors.Wrapf(core.ErrAccelerationStructureSizeQueryFailed, "%s: structure %d bytes, scratch %d bytes",
			geometry.Level, sizes.AccelerationStructureSize, sizes.BuildScratchSize)
		core.LogError(err.Error())
		return nil, err
	}

	storage, err := b.allocator.CreateBuffer(sizes.AccelerationStructureSize,
		metadata.BufferUsageAccelerationStructureStorage|metadata.BufferUsageShaderDeviceAddress,
		metadata.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, err
	}

	handle, err := b.device.CreateAccelerationStructure(storage.Handle, sizes.AccelerationStructureSize, geometry.Level)
	if err != nil {
		b.allocator.DestroyBuffer(storage)
		err = errors.Wrapf(err, "failed to create %s acceleration structure", geometry.Level)
		core.LogError(err.Error())
		return nil, err
	}

	destroy := func() {
		b.device.DestroyAccelerationStructure(handle)
		b.allocator.DestroyBuffer(storage)
	}

	// over-allocate so the scratch address can be aligned inside the buffer
	scratch, err := b.allocator.CreateBuffer(sizes.BuildScratchSize+b.scratchAlignment,
		metadata.BufferUsageStorageBuffer|metadata.BufferUsageShaderDeviceAddress,
		metadata.MemoryPropertyDeviceLocal)
	if err != nil {
		destroy()
		return nil, err
	}
	defer b.allocator.DestroyBuffer(scratch)

	geometry.Destination = handle
	geometry.ScratchAddress = math.AlignUp(scratch.Address, b.scratchAlignment)

	cmd, err := beginSingleUse(b.device)
	if err != nil {
		destroy()
		return nil, err
	}
	cmd.BuildAccelerationStructure(geometry)
	if err := endSingleUse(b.device, cmd); err != nil {
		destroy()
		return nil, errors.Wrapf(err, "%s build", geometry.Level)
	}

	address, err := b.device.AccelerationStructureDeviceAddress(handle)
	if err != nil {
		destroy()
		err = errors.Wrapf(err, "failed to query %s device address", geometry.Level)
		core.LogError(err.Error())
		return nil, err
	}

	core.LogDebug("built %s acceleration structure: %d primitives, %d bytes", geometry.Level, geometry.PrimitiveCount, sizes.AccelerationStructureSize)
	return &AccelerationStructure{
		Handle:  handle,
		Level:   geometry.Level,
		Buffer:  storage,
		Address: address,
		built:   true,
	}, nil
}

func (b *AccelerationStructureBuilder) Destroy(as *AccelerationStructure) {
	if as == nil {
		return
	}
	b.device.DestroyAccelerationStructure(as.Handle)
	b.allocator.DestroyBuffer(as.Buffer)
	b.allocator.DestroyBuffer(as.InstanceBuffer)
}

// EncodeInstances packs instances into 64-byte little-endian records: a
// row-major 3x4 transform, custom index (24 bits) and mask (8 bits), SBT
// record offset (24 bits) and flags (8 bits), then the bottom-level address.
func EncodeInstances(instances []Instance) []byte {
	out := make([]byte, len(instances)*metadata.AccelerationStructureInstanceSize)
	for i, inst := range instances {
		rec := out[i*metadata.AccelerationStructureInstanceSize:]
		for j, f := range inst.Transform.ToAffine3x4() {
			binary.LittleEndian.PutUint32(rec[j*4:], gomath.Float32bits(f))
		}
		binary.LittleEndian.PutUint32(rec[48:], inst.CustomIndex&0xFFFFFF|uint32(inst.Mask)<<24)
		binary.LittleEndian.PutUint32(rec[52:], inst.SbtRecordOffset&0xFFFFFF|uint32(inst.Flags)<<24)
		var address uint64
		if inst.BottomLevel != nil {
			address = inst.BottomLevel.Address
		}
		binary.LittleEndian.PutUint64(rec[56:], address)
	}
	return out
}
