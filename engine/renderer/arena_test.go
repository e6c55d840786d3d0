package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArenaReleasesInReverseOrder(t *testing.T) {
	a := NewArena()
	var order []string
	for _, name := range []string{"buffer", "image", "pipeline"} {
		name := name
		a.Track(name, func() { order = append(order, name) })
	}
	assert.Equal(t, 3, a.Len())

	a.Release()
	assert.Equal(t, []string{"pipeline", "image", "buffer"}, order)
	assert.Equal(t, 0, a.Len())

	a.Release()
	assert.Len(t, order, 3)
}
