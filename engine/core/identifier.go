package core

import "fmt"

// Registry hands out small integer identifiers to owners and recycles
// released slots. The owner of a collection of objects keeps its own registry;
// there is no process-wide instance.
type Registry struct {
	owners []interface{}
}

func NewRegistry() *Registry {
	return &Registry{owners: make([]interface{}, 0, 16)}
}

// Acquire returns the lowest free identifier and records owner against it.
func (r *Registry) Acquire(owner interface{}) uint32 {
	for i, o := range r.owners {
		// Existing free spot. Take it.
		if o == nil {
			r.owners[i] = owner
			return uint32(i)
		}
	}
	r.owners = append(r.owners, owner)
	return uint32(len(r.owners) - 1)
}

func (r *Registry) Release(id uint32) error {
	if int(id) >= len(r.owners) {
		return fmt.Errorf("identifier %d out of range (max=%d). Nothing was done", id, len(r.owners))
	}
	if r.owners[id] == nil {
		return fmt.Errorf("identifier %d is not in use", id)
	}
	r.owners[id] = nil
	return nil
}

func (r *Registry) Owner(id uint32) (interface{}, bool) {
	if int(id) >= len(r.owners) || r.owners[id] == nil {
		return nil, false
	}
	return r.owners[id], true
}

// InUse counts live identifiers.
func (r *Registry) InUse() int {
	n := 0
	for _, o := range r.owners {
		if o != nil {
			n++
		}
	}
	return n
}
