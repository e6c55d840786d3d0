package renderer

import (
	"encoding/binary"
	gomath "math"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

// CompositeVertexCount is the full screen primitive: two triangles.
const CompositeVertexCount = 6

const PushConstantsSize = 4

// PushConstants is copied into the command stream every frame and read by
// the ray generation stage.
type PushConstants struct {
	SampleBatch uint32
}

// Bytes encodes the record as a single little-endian uint32.
func (p PushConstants) Bytes() []byte {
	b := make([]byte, PushConstantsSize)
	binary.LittleEndian.PutUint32(b, p.SampleBatch)
	return b
}

// FrameSync holds the signals of the single frame in flight.
type FrameSync struct {
	ImageAvailable metadata.Handle
	RenderFinished metadata.Handle
	InFlight       metadata.Handle
}

// NewFrameSync creates both semaphores and the in-flight fence, signalled so
// the first wait returns at once.
func NewFrameSync(device SyncDevice) (*FrameSync, error) {
	s := &FrameSync{}
	var err error
	if s.ImageAvailable, err = device.CreateSemaphore(); err != nil {
		err = errors.Wrap(err, "failed to create image available semaphore")
		core.LogError(err.Error())
		return nil, err
	}
	if s.RenderFinished, err = device.CreateSemaphore(); err != nil {
		device.DestroySemaphore(s.ImageAvailable)
		err = errors.Wrap(err, "failed to create render finished semaphore")
		core.LogError(err.Error())
		return nil, err
	}
	if s.InFlight, err = device.CreateFence(true); err != nil {
		device.DestroySemaphore(s.RenderFinished)
		device.DestroySemaphore(s.ImageAvailable)
		err = errors.Wrap(err, "failed to create in-flight fence")
		core.LogError(err.Error())
		return nil, err
	}
	return s, nil
}

func (s *FrameSync) Destroy(device SyncDevice) {
	device.DestroyFence(s.InFlight)
	device.DestroySemaphore(s.RenderFinished)
	device.DestroySemaphore(s.ImageAvailable)
}

// BindingWrite is one slot rewritten every frame.
type BindingWrite struct {
	BindingPoint uint32
	Resource     metadata.DescriptorResource
}

// FrameResources are the long-lived objects a frame records against.
type FrameResources struct {
	Target *Image

	RayTracingPipeline metadata.Pipeline
	RayTracingSet      *DescriptorBindingSet
	RayTracingWrites   []BindingWrite
	SBT                *ShaderBindingTable

	CompositePipeline metadata.Pipeline
	CompositeSet      *DescriptorBindingSet
	CompositeWrites   []BindingWrite

	ClearColor metadata.ClearColor
}

type FrameDevice interface {
	SyncDevice
	CommandDevice
}

// FrameLoop records and submits one frame at a time. The next frame starts
// recording only after the in-flight fence reports the previous one complete,
// which is what makes reusing the command buffer and rewriting descriptors safe.
type FrameLoop struct {
	device    FrameDevice
	window    Window
	swapchain Swapchain
	res       FrameResources
	sync      *FrameSync
	cmd       CommandBuffer

	pushConstants PushConstants
	frameNumber   uint64
	maxFrames     uint64

	clock   *core.Clock
	metrics *core.Metrics
}

// NewFrameLoop allocates the frame's command buffer and sync objects.
// maxFrames of zero runs until the window asks to close.
func NewFrameLoop(device FrameDevice, window Window, swapchain Swapchain, res FrameResources, maxFrames uint64) (*FrameLoop, error) {
	if res.Target == nil || res.SBT == nil || res.RayTracingSet == nil || res.CompositeSet == nil {
		err := errors.New("frame loop needs a target image, a shader binding table and both descriptor sets")
		core.LogError(err.Error())
		return nil, err
	}

	sync, err := NewFrameSync(device)
	if err != nil {
		return nil, err
	}
	cmd, err := device.AllocateCommandBuffer()
	if err != nil {
		sync.Destroy(device)
		err = errors.Wrap(err, "failed to allocate frame command buffer")
		core.LogError(err.Error())
		return nil, err
	}

	return &FrameLoop{
		device:    device,
		window:    window,
		swapchain: swapchain,
		res:       res,
		sync:      sync,
		cmd:       cmd,
		maxFrames: maxFrames,
		clock:     core.NewClock(),
		metrics:   core.NewMetrics(),
	}, nil
}

func (l *FrameLoop) SampleBatch() uint32 {
	return l.pushConstants.SampleBatch
}

func (l *FrameLoop) FrameNumber() uint64 {
	return l.frameNumber
}

func (l *FrameLoop) Metrics() *core.Metrics {
	return l.metrics
}

// Run renders until the window requests close or the frame limit is reached.
// The close request is observed between frames; a frame in progress always
// completes.
func (l *FrameLoop) Run() error {
	lastReport := 0.0
	l.clock.Start()
	last := l.clock.Elapsed()

	for !l.window.ShouldClose() {
		if l.maxFrames > 0 && l.frameNumber >= l.maxFrames {
			core.LogInfo("frame limit of %d reached", l.maxFrames)
			break
		}
		if err := l.RenderFrame(); err != nil {
			return err
		}
		l.window.PollEvents()

		l.clock.Update()
		now := l.clock.Elapsed()
		l.metrics.Update(now - last)
		last = now
		if now-lastReport >= 1.0 {
			core.LogDebug("fps %.0f, frame %.2fms, sample batch %d", l.metrics.FPS(), l.metrics.FrameTime(), l.pushConstants.SampleBatch)
			lastReport = now
		}
	}
	return nil
}

// RenderFrame runs one iteration:
// WAIT_FENCE, RESET_FENCE, ACQUIRE (unless minimized), RECORD, SUBMIT, PRESENT (unless minimized).
func (l *FrameLoop) RenderFrame() error {
	if err := l.device.WaitForFence(l.sync.InFlight, gomath.MaxUint64); err != nil {
		err = errors.Wrap(err, "failed waiting for in-flight fence")
		core.LogError(err.Error())
		return err
	}
	if err := l.device.ResetFence(l.sync.InFlight); err != nil {
		err = errors.Wrap(err, "failed to reset in-flight fence")
		core.LogError(err.Error())
		return err
	}

	minimized := l.window.IsMinimized()

	var imageIndex uint32
	if !minimized {
		var err error
		imageIndex, err = l.swapchain.AcquireNextImage(l.sync.ImageAvailable)
		if err != nil {
			err = errors.Wrap(err, "failed to acquire swapchain image")
			core.LogError(err.Error())
			return err
		}
	}

	if err := l.record(minimized, imageIndex); err != nil {
		return err
	}

	submit := SubmitInfo{
		CommandBuffer: l.cmd,
		Fence:         l.sync.InFlight,
	}
	if !minimized {
		submit.WaitSemaphores = []metadata.Handle{l.sync.ImageAvailable}
		submit.WaitStages = []metadata.PipelineStageFlags{metadata.PipelineStageColorAttachmentOutput}
		submit.SignalSemaphores = []metadata.Handle{l.sync.RenderFinished}
	}
	if err := l.device.Submit(submit); err != nil {
		err = errors.Wrap(err, "failed to submit frame")
		core.LogError(err.Error())
		return err
	}
	l.pushConstants.SampleBatch++
	l.frameNumber++

	if !minimized {
		if err := l.swapchain.Present(imageIndex, l.sync.RenderFinished); err != nil {
			err = errors.Wrap(err, "failed to present swapchain image")
			core.LogError(err.Error())
			return err
		}
	}
	return nil
}

func (l *FrameLoop) record(minimized bool, imageIndex uint32) error {
	cmd := l.cmd
	if err := cmd.Begin(0); err != nil {
		err = errors.Wrap(err, "failed to begin frame command buffer")
		core.LogError(err.Error())
		return err
	}

	target := l.res.Target
	cmd.PipelineBarrier(l.preTraceStage(), metadata.PipelineStageRayTracingShader, nil, []metadata.ImageBarrier{l.preTraceBarrier()})

	// descriptor updates must precede the bind that captures them
	for _, w := range l.res.RayTracingWrites {
		if err := l.res.RayTracingSet.WriteBinding(w.BindingPoint, w.Resource); err != nil {
			return err
		}
	}
	rt := l.res.RayTracingPipeline
	cmd.BindPipeline(metadata.PipelineBindPointRayTracing, rt.Handle)
	l.res.RayTracingSet.Bind(cmd, metadata.PipelineBindPointRayTracing, rt.Layout)

	cmd.PushConstants(rt.Layout, metadata.ShaderStageRaygen, 0, l.pushConstants.Bytes())
	cmd.TraceRays(l.res.SBT.Regions(), target.Extent.Width, target.Extent.Height, 1)

	cmd.PipelineBarrier(metadata.PipelineStageRayTracingShader, metadata.PipelineStageFragmentShader, nil, []metadata.ImageBarrier{{
		Image:         target.Handle,
		OldLayout:     metadata.ImageLayoutGeneral,
		NewLayout:     metadata.ImageLayoutGeneral,
		SrcAccessMask: metadata.AccessShaderWrite,
		DstAccessMask: metadata.AccessShaderRead,
		Range:         metadata.ColorSubresource,
	}})

	if !minimized {
		for _, w := range l.res.CompositeWrites {
			if err := l.res.CompositeSet.WriteBinding(w.BindingPoint, w.Resource); err != nil {
				return err
			}
		}
		extent := l.swapchain.Extent()
		cmd.BeginRenderPass(l.swapchain.RenderPass(), l.swapchain.Framebuffer(imageIndex), extent, l.res.ClearColor)
		cp := l.res.CompositePipeline
		cmd.BindPipeline(metadata.PipelineBindPointGraphics, cp.Handle)
		l.res.CompositeSet.Bind(cmd, metadata.PipelineBindPointGraphics, cp.Layout)
		cmd.SetViewport(extent)
		cmd.SetScissor(extent)
		cmd.Draw(CompositeVertexCount, 1, 0, 0)
		cmd.EndRenderPass()
	}

	if err := cmd.End(); err != nil {
		err = errors.Wrap(err, "failed to end frame command buffer")
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (l *FrameLoop) preTraceStage() metadata.PipelineStageFlags {
	if l.frameNumber == 0 {
		return metadata.PipelineStageTopOfPipe
	}
	return metadata.PipelineStageFragmentShader
}

// preTraceBarrier moves the target into the general layout for the ray
// generation stage. The first frame discards the undefined contents; later
// frames wait for the previous composite read.
func (l *FrameLoop) preTraceBarrier() metadata.ImageBarrier {
	b := metadata.ImageBarrier{
		Image:         l.res.Target.Handle,
		NewLayout:     metadata.ImageLayoutGeneral,
		DstAccessMask: metadata.AccessShaderRead | metadata.AccessShaderWrite,
		Range:         metadata.ColorSubresource,
	}
	if l.frameNumber == 0 {
		b.OldLayout = metadata.ImageLayoutUndefined
		b.SrcAccessMask = metadata.AccessNone
	} else {
		b.OldLayout = metadata.ImageLayoutGeneral
		b.SrcAccessMask = metadata.AccessShaderRead
	}
	return b
}

// Destroy waits for the device and releases the frame's sync objects and
// command buffer.
func (l *FrameLoop) Destroy() {
	if err := l.device.DeviceWaitIdle(); err != nil {
		core.LogWarn("device wait idle before frame loop teardown: %s", err)
	}
	l.device.FreeCommandBuffer(l.cmd)
	l.sync.Destroy(l.device)
}
