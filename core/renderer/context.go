// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package renderer builds the swapchain, the graphics pipeline and
// the per frame command recording on top of a logical device.
package renderer

import (
	"github.com/devblok/frametech/device"
	"github.com/devblok/frametech/gfx/vkr"
	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// Context carries the objects every renderer component works against.
// It is built by the engine once the logical device exists.
type Context struct {
	Device    *device.Vulkan
	Allocator *vkr.MemoryAllocator
	Surface   vk.Surface

	Configuration Configuration
	Log           log.FieldLogger
}

func (c *Context) logger() log.FieldLogger {
	if c.Log == nil {
		return log.StandardLogger()
	}
	return c.Log
}
