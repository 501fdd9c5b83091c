// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package core drives the engine: it creates the Vulkan instance, runs the
// gated initialisation steps and the per frame protocol of the renderer.
package core

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// ApplicationName is reported to the driver and used as the window title
const ApplicationName = "FrameTech"

// Version is a semantic version of the application and engine
type Version struct {
	Major uint32
	Minor uint32
	Patch uint32
}

// EngineVersion is the current engine version
var EngineVersion = Version{Major: 0, Minor: 1, Patch: 0}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Vulkan packs the version the way the Vulkan API expects it
func (v Version) Vulkan() uint32 {
	return vk.MakeVersion(int(v.Major), int(v.Minor), int(v.Patch))
}

// Window is the windowing system the engine renders into.
type Window interface {
	// VulkanInstanceExtensions lists the instance extensions
	// the window needs to create a surface
	VulkanInstanceExtensions() []string

	// CreateSurface creates the presentation surface on instance
	CreateSurface(vk.Instance) (vk.Surface, error)

	// DrawableSize returns the size of the drawable area in pixels
	DrawableSize() (uint32, uint32)

	// ProcAddr returns vkGetInstanceProcAddr as loaded by the
	// window system, or nil to use the default loader
	ProcAddr() unsafe.Pointer
}

// State is the lifecycle state of the engine
type State int

// Engine states. Error is terminal.
const (
	Uninitialized State = iota
	Initialized
	Error
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Error:
		return "error"
	}
	return "unknown"
}
