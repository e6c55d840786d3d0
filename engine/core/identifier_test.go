package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAcquireIsSequential(t *testing.T) {
	r := NewRegistry()
	a, b := &struct{ n int }{1}, &struct{ n int }{2}

	assert.Equal(t, uint32(0), r.Acquire(a))
	assert.Equal(t, uint32(1), r.Acquire(b))
	assert.Equal(t, 2, r.InUse())

	owner, ok := r.Owner(1)
	require.True(t, ok)
	assert.Same(t, b, owner)
}

func TestRegistryReusesReleasedSlot(t *testing.T) {
	r := NewRegistry()
	r.Acquire("first")
	r.Acquire("second")
	require.NoError(t, r.Release(0))

	_, ok := r.Owner(0)
	assert.False(t, ok)
	assert.Equal(t, uint32(0), r.Acquire("third"))
}

func TestRegistryReleaseErrors(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Release(0))

	id := r.Acquire("x")
	require.NoError(t, r.Release(id))
	assert.Error(t, r.Release(id), "double release must fail")
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	assert.Equal(t, uint32(0), a.Acquire("a"))
	assert.Equal(t, uint32(0), b.Acquire("b"))
}
