// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package renderer

import (
	"github.com/devblok/frametech/gfx"
	"github.com/devblok/frametech/model"
)

// MaxBuffers is the number of swapchain images requested
const MaxBuffers = 3

// Configuration describes the renderer configuration
type Configuration struct {
	ScreenWidth  uint32
	ScreenHeight uint32

	// FrameCapped selects the vsync present mode
	FrameCapped bool

	// Shaders provides the SPIR-V blobs of the graphics pipeline
	Shaders gfx.ShaderLoader

	// Mesh is uploaded into the vertex and index buffers
	Mesh model.Mesh
}
