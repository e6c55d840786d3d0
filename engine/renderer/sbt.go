package renderer

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/math"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

// Shader group order inside the table.
const (
	SbtGroupRayGen uint32 = iota
	SbtGroupMiss
	SbtGroupHit
	SbtGroupCallable
	SbtMaxGroups
)

// SbtSpacing describes the record layout of a shader binding table.
// Stride is a multiple of HandleAlignment and at least HeaderSize.
type SbtSpacing struct {
	HeaderSize      uint64
	BaseAlignment   uint64
	HandleAlignment uint64
	Stride          uint64
}

// ComputeSpacing sizes one record: the handle rounded up to the handle alignment.
// Base alignment constrains where each group category starts, see GroupOffset.
func ComputeSpacing(handleSize, handleAlignment, baseAlignment uint64) SbtSpacing {
	return SbtSpacing{
		HeaderSize:      handleSize,
		BaseAlignment:   baseAlignment,
		HandleAlignment: handleAlignment,
		Stride:          math.AlignUp(handleSize, handleAlignment),
	}
}

func SpacingFromProperties(props metadata.RayTracingProperties) SbtSpacing {
	return ComputeSpacing(uint64(props.ShaderGroupHandleSize), uint64(props.ShaderGroupHandleAlignment), uint64(props.ShaderGroupBaseAlignment))
}

// GroupOffset is the byte offset of group i: i*Stride rounded up to
// BaseAlignment. Region addresses passed to trace rays must be multiples of
// BaseAlignment.
func (s SbtSpacing) GroupOffset(group uint32) uint64 {
	return math.AlignUp(uint64(group)*s.Stride, s.BaseAlignment)
}

// TableSize is the byte size of a table holding groupCount groups.
func (s SbtSpacing) TableSize(groupCount uint32) uint64 {
	if groupCount == 0 {
		return 0
	}
	return s.GroupOffset(groupCount-1) + s.Stride
}

// LayoutTable lays groupCount handles of spacing.HeaderSize bytes out at
// their group offsets, zero padding everything else.
func LayoutTable(handles []byte, spacing SbtSpacing, groupCount uint32) []byte {
	table := make([]byte, spacing.TableSize(groupCount))
	for i := uint32(0); i < groupCount; i++ {
		offset := spacing.GroupOffset(i)
		src := uint64(i) * spacing.HeaderSize
		copy(table[offset:offset+spacing.HeaderSize], handles[src:src+spacing.HeaderSize])
	}
	return table
}

// ShaderBindingTable is the host-written, device-read buffer of shader group records.
type ShaderBindingTable struct {
	Buffer     *Buffer
	Spacing    SbtSpacing
	GroupCount uint32
}

// BuildShaderBindingTable fetches the pipeline's group handles and writes them
// into a new device addressable buffer.
func BuildShaderBindingTable(device PipelineDevice, allocator *Allocator, pipeline metadata.Pipeline, spacing SbtSpacing, groupCount uint32) (*ShaderBindingTable, error) {
	if groupCount == 0 || groupCount > SbtMaxGroups || pipeline.GroupCount < groupCount {
		err := errors.Wrapf(core.ErrShaderGroupHandleQueryFailed, "pipeline has %d groups, %d expected", pipeline.GroupCount, groupCount)
		core.LogError(err.Error())
		return nil, err
	}
	if spacing.Stride == 0 || spacing.Stride < spacing.HeaderSize {
		err := errors.Errorf("invalid shader binding table spacing %+v", spacing)
		core.LogError(err.Error())
		return nil, err
	}

	dataSize := int(uint64(groupCount) * spacing.HeaderSize)
	handles, err := device.ShaderGroupHandles(pipeline.Handle, 0, groupCount, dataSize)
	if err != nil {
		err = errors.Wrap(core.ErrShaderGroupHandleQueryFailed, err.Error())
		core.LogError(err.Error())
		return nil, err
	}
	if len(handles) < dataSize {
		err := errors.Wrapf(core.ErrShaderGroupHandleQueryFailed, "got %d bytes of handles, %d expected", len(handles), dataSize)
		core.LogError(err.Error())
		return nil, err
	}

	buffer, err := allocator.CreateBuffer(spacing.TableSize(groupCount),
		metadata.BufferUsageShaderBindingTable|metadata.BufferUsageShaderDeviceAddress,
		metadata.MemoryPropertyHostVisible|metadata.MemoryPropertyHostCoherent)
	if err != nil {
		return nil, err
	}
	if !math.IsAligned(buffer.Address, spacing.BaseAlignment) {
		allocator.DestroyBuffer(buffer)
		err := errors.Wrapf(core.ErrMisalignedShaderBindingTable, "address %#x, alignment %d", buffer.Address, spacing.BaseAlignment)
		core.LogError(err.Error())
		return nil, err
	}
	if err := allocator.Write(buffer, 0, LayoutTable(handles, spacing, groupCount)); err != nil {
		allocator.DestroyBuffer(buffer)
		return nil, err
	}

	core.LogDebug("shader binding table: %d groups, stride %d, %d bytes", groupCount, spacing.Stride, buffer.Size)
	return &ShaderBindingTable{
		Buffer:     buffer,
		Spacing:    spacing,
		GroupCount: groupCount,
	}, nil
}

// Regions addresses each group category at its group offset. Categories beyond
// GroupCount get an empty region.
func (t *ShaderBindingTable) Regions() metadata.SbtRegions {
	region := func(group uint32) metadata.StridedRegion {
		if group >= t.GroupCount {
			return metadata.StridedRegion{}
		}
		return metadata.StridedRegion{
			DeviceAddress: t.Buffer.Address + t.Spacing.GroupOffset(group),
			Stride:        t.Spacing.Stride,
			Size:          t.Spacing.Stride,
		}
	}
	return metadata.SbtRegions{
		RayGen:   region(SbtGroupRayGen),
		Miss:     region(SbtGroupMiss),
		Hit:      region(SbtGroupHit),
		Callable: region(SbtGroupCallable),
	}
}

func (t *ShaderBindingTable) Destroy(allocator *Allocator) {
	allocator.DestroyBuffer(t.Buffer)
}
