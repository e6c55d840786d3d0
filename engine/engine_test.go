package engine

import (
	"bytes"
	"os"
	"testing"

	"github.com/spaghettifunk/reina/engine/core"
	"github.com/stretchr/testify/assert"
)

func TestOnResizedMinimizedPausesPresentation(t *testing.T) {
	var out bytes.Buffer
	core.LogSetOutput(&out)
	t.Cleanup(func() { core.LogSetOutput(os.Stderr) })

	e := &Engine{}
	var data core.EventContext
	data.Data.U32[0], data.Data.U32[1] = 0, 720

	assert.False(t, e.onResized(core.EVENT_CODE_RESIZED, nil, e, data))
	assert.Contains(t, out.String(), "presentation is paused")
	assert.NotContains(t, out.String(), "frames are skipped")

	out.Reset()
	data.Data.U32[0] = 1280
	assert.False(t, e.onResized(core.EVENT_CODE_RESIZED, nil, e, data))
	assert.NotContains(t, out.String(), "presentation is paused")
}
