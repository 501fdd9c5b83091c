// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"fmt"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Kind classifies an engine failure.
type Kind int

// Error kinds, one per failing operation class.
const (
	KindUnknown Kind = iota
	KindInstance
	KindSurface
	KindNoDevice
	KindNoSuitableDevice
	KindNoReadyQueue
	KindLogicalDevice
	KindAllocator
	KindDescriptorPool
	KindSwapchainDetails
	KindPresentMode
	KindSwapchain
	KindImageView
	KindFramebuffer
	KindShader
	KindRenderPass
	KindPipeline
	KindSync
	KindCommand
	KindBuffer
	KindSubmit
	KindPresent
	KindFrameOrder
	KindNotInitialized
)

var kindNames = map[Kind]string{
	KindUnknown:          "unknown",
	KindInstance:         "instance",
	KindSurface:          "surface",
	KindNoDevice:         "no device",
	KindNoSuitableDevice: "no suitable device",
	KindNoReadyQueue:     "no ready queue",
	KindLogicalDevice:    "logical device",
	KindAllocator:        "allocator",
	KindDescriptorPool:   "descriptor pool",
	KindSwapchainDetails: "swapchain details",
	KindPresentMode:      "present mode",
	KindSwapchain:        "swapchain",
	KindImageView:        "image view",
	KindFramebuffer:      "framebuffer",
	KindShader:           "shader",
	KindRenderPass:       "render pass",
	KindPipeline:         "pipeline",
	KindSync:             "synchronization",
	KindCommand:          "command",
	KindBuffer:           "buffer",
	KindSubmit:           "submit",
	KindPresent:          "present",
	KindFrameOrder:       "frame order",
	KindNotInitialized:   "not initialized",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// NoIndex marks an Error that is not tied to a resource index.
const NoIndex = -1

// Error is an engine failure of a known Kind. Detail is a short
// human readable reason, Index points at the failing resource
// in an index-aligned array when relevant.
type Error struct {
	Kind   Kind
	Detail string
	Index  int
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Index != NoIndex {
		msg = fmt.Sprintf("%s[%d]", msg, e.Index)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates an Error of kind k with a formatted detail.
func Errorf(k Kind, format string, args ...interface{}) error {
	return &Error{
		Kind:   k,
		Detail: fmt.Sprintf(format, args...),
		Index:  NoIndex,
	}
}

// IndexError creates an Error for the resource at idx.
func IndexError(k Kind, idx int, detail string) error {
	return &Error{
		Kind:   k,
		Detail: detail,
		Index:  idx,
	}
}

// KindOf returns the Kind of the first Error found in the chain of err.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ResultReason maps a native result code to a short fixed description.
func ResultReason(res vk.Result) string {
	switch res {
	case vk.Success:
		return "success"
	case vk.ErrorOutOfHostMemory:
		return "out of host memory"
	case vk.ErrorOutOfDeviceMemory:
		return "out of device memory"
	case vk.ErrorDeviceLost:
		return "device lost"
	case vk.ErrorSurfaceLost:
		return "surface lost"
	case vk.ErrorNativeWindowInUse:
		return "native window in use"
	case vk.ErrorInitializationFailed:
		return "initialization failed"
	case vk.ErrorExtensionNotPresent:
		return "extension not present"
	case vk.ErrorFeatureNotPresent:
		return "feature not present"
	case vk.ErrorLayerNotPresent:
		return "layer not present"
	case vk.ErrorIncompatibleDriver:
		return "incompatible driver"
	case vk.ErrorTooManyObjects:
		return "too many objects"
	case vk.ErrorInvalidShaderNv:
		return "invalid shader"
	case vk.ErrorOutOfDate:
		return "out of date"
	}
	return "undocumented error"
}

// ResultError converts a native result into an Error of kind k.
// op names the native call. Returns nil on success.
func ResultError(k Kind, op string, res vk.Result) error {
	if res == vk.Success {
		return nil
	}
	return &Error{
		Kind:   k,
		Detail: fmt.Sprintf("%s: %s", op, ResultReason(res)),
		Index:  NoIndex,
	}
}

// IndexResultError is ResultError for the resource at idx.
func IndexResultError(k Kind, idx int, op string, res vk.Result) error {
	if res == vk.Success {
		return nil
	}
	return &Error{
		Kind:   k,
		Detail: fmt.Sprintf("%s: %s", op, ResultReason(res)),
		Index:  idx,
	}
}
