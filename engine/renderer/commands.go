package renderer

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

// beginSingleUse allocates a command buffer and begins it for one submission.
func beginSingleUse(device CommandDevice) (CommandBuffer, error) {
	cmd, err := device.AllocateCommandBuffer()
	if err != nil {
		err = errors.Wrap(err, "failed to allocate single use command buffer")
		core.LogError(err.Error())
		return nil, err
	}
	if err := cmd.Begin(metadata.CommandBufferUsageOneTimeSubmit); err != nil {
		device.FreeCommandBuffer(cmd)
		err = errors.Wrap(err, "failed to begin single use command buffer")
		core.LogError(err.Error())
		return nil, err
	}
	return cmd, nil
}

// endSingleUse ends, submits and waits for the queue to go idle, then frees
// the command buffer whatever the outcome.
func endSingleUse(device CommandDevice, cmd CommandBuffer) error {
	defer device.FreeCommandBuffer(cmd)

	if err := cmd.End(); err != nil {
		err = errors.Wrap(err, "failed to end single use command buffer")
		core.LogError(err.Error())
		return err
	}
	if err := device.Submit(SubmitInfo{CommandBuffer: cmd}); err != nil {
		err = errors.Wrap(err, "failed to submit single use command buffer")
		core.LogError(err.Error())
		return err
	}
	if err := device.QueueWaitIdle(); err != nil {
		err = errors.Wrap(err, "failed waiting for queue idle")
		core.LogError(err.Error())
		return err
	}
	return nil
}
