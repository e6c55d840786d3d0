package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

func (vb *VulkanBackend) CreatePipelineLayout(setLayouts []metadata.Handle, pushConstantStages metadata.ShaderStageFlags, pushConstantSize uint32) (metadata.Handle, error) {
	layouts := make([]vk.DescriptorSetLayout, len(setLayouts))
	for i, l := range setLayouts {
		layouts[i] = objectOf[vk.DescriptorSetLayout](l)
	}

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(layouts)),
		PSetLayouts:    layouts,
	}

	// NOTE: the device only guarantees 128 bytes of push constants.
	if pushConstantSize > 0 {
		pipelineLayoutCreateInfo.PushConstantRangeCount = 1
		pipelineLayoutCreateInfo.PPushConstantRanges = []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(pushConstantStages),
			Offset:     0,
			Size:       pushConstantSize,
		}}
	}

	var layout vk.PipelineLayout
	if err := vb.context.locks.SafeCall(PipelineManagement, func() error {
		if res := vk.CreatePipelineLayout(vb.device(), &pipelineLayoutCreateInfo, vb.context.Allocator, &layout); res != vk.Success {
			return vulkanError(res, "vkCreatePipelineLayout failed")
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return metadata.NullHandle, err
	}
	return handleOf(layout), nil
}

func (vb *VulkanBackend) DestroyPipelineLayout(layout metadata.Handle) {
	vb.context.locks.SafeCall(PipelineManagement, func() error {
		vk.DestroyPipelineLayout(vb.device(), objectOf[vk.PipelineLayout](layout), vb.context.Allocator)
		return nil
	})
}

// CreateRayTracingPipeline creates one general group per ray generation and miss
// shader and one triangle hit group for the closest hit shader, in that order.
func (vb *VulkanBackend) CreateRayTracingPipeline(layout metadata.Handle, shaders metadata.RayTracingShaders, maxRecursion uint32) (metadata.Pipeline, error) {
	if maxRecursion > vb.context.Device.RayTracing.MaxRayRecursionDepth {
		err := errors.Errorf("ray recursion depth %d exceeds device limit %d", maxRecursion, vb.context.Device.RayTracing.MaxRayRecursionDepth)
		core.LogError(err.Error())
		return metadata.Pipeline{}, err
	}

	var pipeline metadata.Pipeline
	if err := vb.context.locks.SafeCall(PipelineManagement, func() error {
		handle, groups, res := vb.context.khr.createRayTracingPipeline(vb.device(), layout, shaders, maxRecursion)
		if res != vk.Success {
			return vulkanError(res, "vkCreateRayTracingPipelinesKHR failed")
		}
		pipeline = metadata.Pipeline{Handle: handle, Layout: layout, GroupCount: groups}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return metadata.Pipeline{}, err
	}

	core.LogDebug("Ray tracing pipeline created with %d shader groups.", pipeline.GroupCount)
	return pipeline, nil
}

func (vb *VulkanBackend) ShaderGroupHandles(pipeline metadata.Handle, firstGroup, groupCount uint32, dataSize int) ([]byte, error) {
	if dataSize <= 0 {
		err := errors.Wrapf(core.ErrShaderGroupHandleQueryFailed, "data size %d", dataSize)
		core.LogError(err.Error())
		return nil, err
	}
	data := make([]byte, dataSize)
	if res := vb.context.khr.shaderGroupHandles(vb.device(), pipeline, firstGroup, groupCount, data); res != vk.Success {
		err := errors.Wrapf(core.ErrShaderGroupHandleQueryFailed, "VkResult %d", res)
		core.LogError(err.Error())
		return nil, err
	}
	return data, nil
}

/**
 * @brief Creates the graphics pipeline that draws the ray traced image onto a
 * swapchain framebuffer. It has no vertex input: the vertex shader emits a
 * fullscreen triangle from gl_VertexIndex. Viewport and scissor are dynamic.
 */
func (vb *VulkanBackend) CreateCompositePipeline(layout metadata.Handle, vertex, fragment metadata.Handle, renderPass metadata.Handle) (metadata.Pipeline, error) {
	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: objectOf[vk.ShaderModule](vertex),
			PName:  VulkanSafeString("main"),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: objectOf[vk.ShaderModule](fragment),
			PName:  VulkanSafeString("main"),
		},
	}

	// Viewport and scissor are set while recording.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(vk.CullModeNone),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		StencilTestEnable: vk.False,
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable: vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              objectOf[vk.PipelineLayout](layout),
		RenderPass:          objectOf[vk.RenderPass](renderPass),
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := vb.context.locks.SafeCall(PipelineManagement, func() error {
		if res := vk.CreateGraphicsPipelines(vb.device(), vk.NullPipelineCache, 1,
			[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, vb.context.Allocator, pipelines); res != vk.Success {
			return vulkanError(res, "vkCreateGraphicsPipelines failed")
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return metadata.Pipeline{}, err
	}

	core.LogDebug("Composite pipeline created!")
	return metadata.Pipeline{Handle: handleOf(pipelines[0]), Layout: layout}, nil
}

func (vb *VulkanBackend) DestroyPipeline(pipeline metadata.Pipeline) {
	if pipeline.Handle.IsNull() {
		return
	}
	vb.context.locks.SafeCall(PipelineManagement, func() error {
		vk.DestroyPipeline(vb.device(), objectOf[vk.Pipeline](pipeline.Handle), vb.context.Allocator)
		return nil
	})
}
