// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package model

import (
	"unsafe"

	glm "github.com/go-gl/mathgl/mgl32"
	vk "github.com/vulkan-go/vulkan"
)

// Vertex is a model vertex, laid out as the vertex shader expects it
type Vertex struct {
	Pos   glm.Vec2
	Color glm.Vec3
}

// Index is a vertex index
type Index uint16

// IndexType is the Vulkan type matching Index
const IndexType = vk.IndexTypeUint16

// Mesh holds the geometry uploaded to the vertex and index buffers
type Mesh struct {
	Vertices []Vertex
	Indices  []Index
}

// VertexData returns the raw bytes of the vertices, nil when there are none.
func (m Mesh) VertexData() []byte {
	if len(m.Vertices) == 0 {
		return nil
	}
	size := len(m.Vertices) * int(unsafe.Sizeof(Vertex{}))
	return unsafe.Slice((*byte)(unsafe.Pointer(&m.Vertices[0])), size)
}

// IndexData returns the raw bytes of the indices, nil when there are none.
func (m Mesh) IndexData() []byte {
	if len(m.Indices) == 0 {
		return nil
	}
	size := len(m.Indices) * int(unsafe.Sizeof(Index(0)))
	return unsafe.Slice((*byte)(unsafe.Pointer(&m.Indices[0])), size)
}

// IndexCount is the number of indices drawn for the mesh
func (m Mesh) IndexCount() uint32 {
	return uint32(len(m.Indices))
}

// VertexBindingDescriptions return Vulkan Vertex descriptors
func VertexBindingDescriptions() []vk.VertexInputBindingDescription {
	return []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(Vertex{})),
		InputRate: vk.VertexInputRateVertex,
	}}
}

// VertexAttributeDescriptions return Vulkan attribute descriptors
func VertexAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Pos)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Color)),
		},
	}
}
