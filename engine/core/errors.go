package core

import (
	"errors"
)

var (
	ErrUnknown = errors.New("unknown")

	// resources
	ErrNoSuitableMemoryType = errors.New("failed to find suitable memory type")
	ErrInvalidBufferSize    = errors.New("buffer size must be greater than zero")

	// descriptors
	ErrDuplicateBindingPoint      = errors.New("duplicate descriptor binding point")
	ErrUnknownBindingPoint        = errors.New("descriptor binding point not declared in set")
	ErrDescriptorResourceMismatch = errors.New("resource reference does not match descriptor type")

	// acceleration structures
	ErrAccelerationStructureSizeQueryFailed = errors.New("acceleration structure size query returned zero")
	ErrBottomLevelNotBuilt                  = errors.New("bottom-level acceleration structure build has not completed")
	ErrEmptyGeometry                        = errors.New("geometry has no triangles")
	ErrMissingDeviceAddress                 = errors.New("build input buffer has no device address")
	ErrNoInstances                          = errors.New("top-level build has no instances")

	// shader binding table
	ErrShaderGroupHandleQueryFailed = errors.New("shader group handle query failed")
	ErrMisalignedShaderBindingTable = errors.New("shader binding table address violates base alignment")

	// device
	ErrMissingEntryPoint = errors.New("required device entry point missing")
	ErrNoSuitableDevice  = errors.New("no physical device supports ray tracing and presentation")

	// swapchain
	ErrSwapchainOutOfDate  = errors.New("swapchain out of date")
	ErrSwapchainSuboptimal = errors.New("swapchain suboptimal")
)
