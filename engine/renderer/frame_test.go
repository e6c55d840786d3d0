package renderer

import (
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameWaitsForPreviousSubmission(t *testing.T) {
	rig := newTestRig(t, Config{})
	loop := rig.renderer.FrameLoop()
	dev := rig.dev

	start := len(dev.events)
	for i := 0; i < 3; i++ {
		require.NoError(t, loop.RenderFrame())
	}
	assert.Empty(t, dev.faults)

	prevSubmit := -1
	cursor := start
	for i := 0; i < 3; i++ {
		wait := dev.index("wait fence", cursor)
		reset := dev.index("reset fence", wait)
		begin := dev.index("begin", reset)
		submit := dev.index("submit", begin)
		require.True(t, wait >= 0 && reset > wait && begin > reset && submit > begin, "frame %d: %v", i, dev.events[start:])
		assert.Greater(t, wait, prevSubmit)
		prevSubmit = submit
		cursor = submit + 1
	}
	assert.Equal(t, []uint32{0, 1, 2}, rig.swapchain.acquired)
	assert.Equal(t, []uint32{0, 1, 2}, rig.swapchain.presented)
}

func TestFrameRewritesDescriptorsBeforeDispatch(t *testing.T) {
	rig := newTestRig(t, Config{})
	dev := rig.dev
	loop := rig.renderer.FrameLoop()

	for i := 0; i < 2; i++ {
		start := len(dev.events)
		writes := len(dev.writes)
		require.NoError(t, loop.RenderFrame())

		bindRT := dev.index("bind pipeline 1000165000", start)
		trace := dev.index("trace rays", start)
		firstWrite := dev.index("update descriptor set", start)
		require.True(t, firstWrite >= 0 && bindRT > firstWrite && trace > bindRT)

		rtWrites := 0
		for j := start; j < bindRT; j++ {
			if dev.index("update descriptor set", j) == j {
				rtWrites++
			}
		}
		assert.Equal(t, 6, rtWrites)

		renderPass := dev.index("begin render pass", start)
		compositeWrite := dev.index("update descriptor set", trace)
		assert.True(t, compositeWrite > trace && compositeWrite < renderPass)
		assert.Equal(t, writes+7, len(dev.writes))
	}
}

func TestFrameBarriers(t *testing.T) {
	rig := newTestRig(t, Config{})
	loop := rig.renderer.FrameLoop()
	target := rig.renderer.target.Handle

	require.NoError(t, loop.RenderFrame())
	require.NoError(t, loop.RenderFrame())

	barriers := rig.frameCommands().barriers
	require.Len(t, barriers, 4)

	first := barriers[0]
	assert.Equal(t, metadata.PipelineStageTopOfPipe, first.Src)
	assert.Equal(t, metadata.PipelineStageRayTracingShader, first.Dst)
	require.Len(t, first.Images, 1)
	assert.Equal(t, target, first.Images[0].Image)
	assert.Equal(t, metadata.ImageLayoutUndefined, first.Images[0].OldLayout)
	assert.Equal(t, metadata.ImageLayoutGeneral, first.Images[0].NewLayout)
	assert.Equal(t, metadata.AccessNone, first.Images[0].SrcAccessMask)
	assert.Equal(t, metadata.AccessShaderRead|metadata.AccessShaderWrite, first.Images[0].DstAccessMask)

	for _, post := range []fakeBarrier{barriers[1], barriers[3]} {
		assert.Equal(t, metadata.PipelineStageRayTracingShader, post.Src)
		assert.Equal(t, metadata.PipelineStageFragmentShader, post.Dst)
		assert.Equal(t, metadata.AccessShaderWrite, post.Images[0].SrcAccessMask)
		assert.Equal(t, metadata.AccessShaderRead, post.Images[0].DstAccessMask)
		assert.Equal(t, metadata.ImageLayoutGeneral, post.Images[0].NewLayout)
	}

	second := barriers[2]
	assert.Equal(t, metadata.PipelineStageFragmentShader, second.Src)
	assert.Equal(t, metadata.ImageLayoutGeneral, second.Images[0].OldLayout)
	assert.Equal(t, metadata.AccessShaderRead, second.Images[0].SrcAccessMask)
}

func TestFramePushesSampleBatch(t *testing.T) {
	rig := newTestRig(t, Config{})
	loop := rig.renderer.FrameLoop()

	for i := 0; i < 3; i++ {
		require.NoError(t, loop.RenderFrame())
	}
	assert.Equal(t, uint32(3), loop.SampleBatch())
	assert.Equal(t, uint64(3), loop.FrameNumber())

	pushes := rig.frameCommands().pushes
	require.Len(t, pushes, 3)
	for i, p := range pushes {
		assert.Equal(t, uint32(i), binary.LittleEndian.Uint32(p))
	}

	traces := rig.frameCommands().traces
	require.Len(t, traces, 3)
	assert.Equal(t, uint32(800), traces[0].Width)
	assert.Equal(t, uint32(600), traces[0].Height)
	assert.Equal(t, uint32(1), traces[0].Depth)
	assert.Equal(t, rig.renderer.sbt.Regions(), traces[0].Regions)
}

func TestFrameWhileMinimized(t *testing.T) {
	rig := newTestRig(t, Config{})
	loop := rig.renderer.FrameLoop()
	dev := rig.dev
	rig.window.minimized = true

	start := len(dev.events)
	require.NoError(t, loop.RenderFrame())
	require.NoError(t, loop.RenderFrame())

	assert.Empty(t, rig.swapchain.acquired)
	assert.Empty(t, rig.swapchain.presented)
	assert.Equal(t, -1, dev.index("begin render pass", start))
	assert.Equal(t, 2, len(rig.frameCommands().traces))
	assert.Equal(t, uint32(2), loop.SampleBatch())

	last := dev.submits[len(dev.submits)-1]
	assert.Empty(t, last.WaitSemaphores)
	assert.Empty(t, last.SignalSemaphores)
	assert.False(t, last.Fence.IsNull())
	assert.Empty(t, dev.faults)

	rig.window.minimized = false
	require.NoError(t, loop.RenderFrame())
	assert.Equal(t, []uint32{0}, rig.swapchain.presented)
	last = dev.submits[len(dev.submits)-1]
	assert.Len(t, last.WaitSemaphores, 1)
	assert.Equal(t, []metadata.PipelineStageFlags{metadata.PipelineStageColorAttachmentOutput}, last.WaitStages)
}

func TestFrameSwapchainErrorsAreFatal(t *testing.T) {
	rig := newTestRig(t, Config{})
	rig.swapchain.acquireErr = errors.WithStack(core.ErrSwapchainOutOfDate)

	err := rig.renderer.Run()
	assert.True(t, errors.Is(err, core.ErrSwapchainOutOfDate))
	assert.Equal(t, uint64(0), rig.renderer.FrameLoop().FrameNumber())

	rig = newTestRig(t, Config{})
	rig.swapchain.presentErr = errors.WithStack(core.ErrSwapchainSuboptimal)
	err = rig.renderer.FrameLoop().RenderFrame()
	assert.True(t, errors.Is(err, core.ErrSwapchainSuboptimal))
	assert.Equal(t, uint64(1), rig.renderer.FrameLoop().FrameNumber())
}

func TestRunStopsAtFrameLimit(t *testing.T) {
	rig := newTestRig(t, Config{MaxFrames: 4})
	require.NoError(t, rig.renderer.Run())
	assert.Equal(t, uint64(4), rig.renderer.FrameLoop().FrameNumber())
	assert.Equal(t, 4, rig.window.polls)
	assert.Equal(t, uint64(4), rig.renderer.FrameLoop().Metrics().TotalFrames())

	rig.renderer.Shutdown()
	assert.Empty(t, rig.dev.live)
	assert.Empty(t, rig.dev.faults)
}

func TestRunStopsWhenWindowCloses(t *testing.T) {
	rig := newTestRig(t, Config{})
	rig.window.closeAfter = 2
	require.NoError(t, rig.renderer.Run())
	assert.Equal(t, uint64(2), rig.renderer.FrameLoop().FrameNumber())
}
