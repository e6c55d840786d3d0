package renderer

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

// DescriptorBinding declares one shader-visible slot. Resource, when set, is
// written once right after the set is allocated.
type DescriptorBinding struct {
	BindingPoint    uint32
	Type            metadata.DescriptorType
	DescriptorCount uint32
	StageFlags      metadata.ShaderStageFlags
	Resource        *metadata.DescriptorResource
}

// DescriptorBindingSet owns one layout, one pool sized for its bindings and one
// descriptor set allocated from that pool.
//
// Writes go straight to the descriptor set. They are neither batched nor
// double buffered, which is only safe while a single frame is in flight.
type DescriptorBindingSet struct {
	ID uint32

	device    DescriptorDevice
	registry  *core.Registry
	bindings  []DescriptorBinding
	poolSizes []metadata.DescriptorPoolSize

	Layout metadata.Handle
	Pool   metadata.Handle
	Set    metadata.Handle
}

// NewDescriptorBindingSet validates the bindings and creates the layout, pool
// and set. The set identifier comes from registry.
func NewDescriptorBindingSet(device DescriptorDevice, registry *core.Registry, bindings []DescriptorBinding) (*DescriptorBindingSet, error) {
	seen := make(map[uint32]struct{}, len(bindings))
	for _, b := range bindings {
		if _, dup := seen[b.BindingPoint]; dup {
			err := errors.Wrapf(core.ErrDuplicateBindingPoint, "binding point %d", b.BindingPoint)
			core.LogError(err.Error())
			return nil, err
		}
		seen[b.BindingPoint] = struct{}{}
	}

	s := &DescriptorBindingSet{
		device:    device,
		registry:  registry,
		bindings:  append([]DescriptorBinding(nil), bindings...),
		poolSizes: aggregatePoolSizes(bindings),
	}

	layoutBindings := make([]metadata.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		layoutBindings[i] = metadata.DescriptorSetLayoutBinding{
			Binding:         b.BindingPoint,
			DescriptorType:  b.Type,
			DescriptorCount: b.DescriptorCount,
			StageFlags:      b.StageFlags,
		}
	}

	layout, err := device.CreateDescriptorSetLayout(layoutBindings)
	if err != nil {
		err = errors.Wrap(err, "failed to create descriptor set layout")
		core.LogError(err.Error())
		return nil, err
	}

	pool, err := device.CreateDescriptorPool(s.poolSizes, 1)
	if err != nil {
		device.DestroyDescriptorSetLayout(layout)
		err = errors.Wrap(err, "failed to create descriptor pool")
		core.LogError(err.Error())
		return nil, err
	}

	set, err := device.AllocateDescriptorSet(pool, layout)
	if err != nil {
		device.DestroyDescriptorPool(pool)
		device.DestroyDescriptorSetLayout(layout)
		err = errors.Wrap(err, "failed to allocate descriptor set")
		core.LogError(err.Error())
		return nil, err
	}

	s.Layout, s.Pool, s.Set = layout, pool, set
	s.ID = registry.Acquire(s)

	for _, b := range bindings {
		if b.Resource == nil {
			continue
		}
		if err := s.WriteBinding(b.BindingPoint, *b.Resource); err != nil {
			s.Destroy()
			return nil, err
		}
	}

	core.LogDebug("descriptor set %d created with %d bindings", s.ID, len(bindings))
	return s, nil
}

// aggregatePoolSizes sums descriptor counts per type, in order of first appearance.
func aggregatePoolSizes(bindings []DescriptorBinding) []metadata.DescriptorPoolSize {
	var sizes []metadata.DescriptorPoolSize
	index := make(map[metadata.DescriptorType]int)
	for _, b := range bindings {
		if i, ok := index[b.Type]; ok {
			sizes[i].DescriptorCount += b.DescriptorCount
			continue
		}
		index[b.Type] = len(sizes)
		sizes = append(sizes, metadata.DescriptorPoolSize{Type: b.Type, DescriptorCount: b.DescriptorCount})
	}
	return sizes
}

func (s *DescriptorBindingSet) PoolSizes() []metadata.DescriptorPoolSize {
	return append([]metadata.DescriptorPoolSize(nil), s.poolSizes...)
}

func (s *DescriptorBindingSet) Bindings() []DescriptorBinding {
	return append([]DescriptorBinding(nil), s.bindings...)
}

func (s *DescriptorBindingSet) binding(point uint32) (DescriptorBinding, bool) {
	for _, b := range s.bindings {
		if b.BindingPoint == point {
			return b, true
		}
	}
	return DescriptorBinding{}, false
}

// WriteBinding points the slot at bindingPoint to resource. The update is
// visible to every command recorded after this call.
func (s *DescriptorBindingSet) WriteBinding(bindingPoint uint32, resource metadata.DescriptorResource) error {
	b, ok := s.binding(bindingPoint)
	if !ok {
		err := errors.Wrapf(core.ErrUnknownBindingPoint, "set %d, binding point %d", s.ID, bindingPoint)
		core.LogError(err.Error())
		return err
	}
	if !resourceMatches(b.Type, resource) {
		err := errors.Wrapf(core.ErrDescriptorResourceMismatch, "set %d, binding point %d expects %s", s.ID, bindingPoint, b.Type)
		core.LogError(err.Error())
		return err
	}

	s.device.UpdateDescriptorSet(metadata.DescriptorWrite{
		Set:             s.Set,
		Binding:         bindingPoint,
		DescriptorType:  b.Type,
		DescriptorCount: b.DescriptorCount,
		Resource:        resource,
	})
	return nil
}

func resourceMatches(t metadata.DescriptorType, r metadata.DescriptorResource) bool {
	switch t {
	case metadata.DescriptorTypeStorageImage, metadata.DescriptorTypeSampledImage:
		return !r.ImageView.IsNull()
	case metadata.DescriptorTypeCombinedImageSampler:
		return !r.ImageView.IsNull() && !r.Sampler.IsNull()
	case metadata.DescriptorTypeSampler:
		return !r.Sampler.IsNull()
	case metadata.DescriptorTypeUniformBuffer, metadata.DescriptorTypeStorageBuffer:
		return !r.Buffer.IsNull()
	case metadata.DescriptorTypeAccelerationStructure:
		return !r.AccelerationStructure.IsNull()
	default:
		return false
	}
}

// Bind records binding this set at set index 0 of layout. Nothing happens on
// the device until the command buffer is submitted.
func (s *DescriptorBindingSet) Bind(cmd CommandBuffer, bindPoint metadata.PipelineBindPoint, pipelineLayout metadata.Handle) {
	cmd.BindDescriptorSet(bindPoint, pipelineLayout, s.Set)
}

// Destroy frees the pool (and with it the set), the layout and the identifier.
func (s *DescriptorBindingSet) Destroy() {
	s.device.DestroyDescriptorPool(s.Pool)
	s.device.DestroyDescriptorSetLayout(s.Layout)
	if err := s.registry.Release(s.ID); err != nil {
		core.LogWarn("descriptor set %d: %s", s.ID, err)
	}
}
